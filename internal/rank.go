package internal

import (
	"fmt"
	"frontierbacktest/internal/calculator"
	"frontierbacktest/internal/domain"
	"math"

	"github.com/maja42/goval"
)

const (
	RankMetricCAGR        = "cagr"
	RankMetricVolatility  = "volatility"
	RankMetricSharpe      = "sharpe"
	RankMetricMaxDrawdown = "maxDrawdown"
	RankMetricFinalValue  = "finalValue"
)

// Ranker scores a grid cell's metrics so results can be ordered. The
// metric is either one of the builtin names or a goval expression over
// {cagr, volatility, sharpe, maxDrawdown, finalValue}, e.g.
// "cagr / (maxDrawdown + 0.01)". Results rank descending by score,
// ties broken by ascending max drawdown.
type Ranker struct {
	metric     string
	expression bool
}

// NewRanker validates the metric up front so a bad expression fails the
// run before any grid work starts.
func NewRanker(metric string) (*Ranker, error) {
	if metric == "" {
		metric = RankMetricCAGR
	}
	switch metric {
	case RankMetricCAGR, RankMetricVolatility, RankMetricSharpe, RankMetricMaxDrawdown, RankMetricFinalValue:
		return &Ranker{metric: metric}, nil
	}

	// anything else must evaluate as an expression on probe values
	probe := &calculator.CalculateMetricsResult{CAGR: 0.1, Volatility: 0.2, MaxDrawdown: 0.3, FinalValue: 10000}
	r := &Ranker{metric: metric, expression: true}
	if _, err := r.Score(probe); err != nil {
		return nil, domain.InputValidationError{Err: fmt.Errorf("invalid rank metric %q: %w", metric, err)}
	}
	return r, nil
}

func (r Ranker) Score(m *calculator.CalculateMetricsResult) (float64, error) {
	sharpe := math.Inf(-1)
	if m.SharpeRatio != nil {
		sharpe = *m.SharpeRatio
	}

	if !r.expression {
		switch r.metric {
		case RankMetricCAGR:
			return m.CAGR, nil
		case RankMetricVolatility:
			return m.Volatility, nil
		case RankMetricSharpe:
			return sharpe, nil
		case RankMetricMaxDrawdown:
			return m.MaxDrawdown, nil
		case RankMetricFinalValue:
			return m.FinalValue, nil
		}
	}

	if math.IsInf(sharpe, -1) {
		// expressions cannot consume an undefined ratio
		sharpe = 0
	}
	variables := map[string]interface{}{
		"cagr":        m.CAGR,
		"volatility":  m.Volatility,
		"sharpe":      sharpe,
		"maxDrawdown": m.MaxDrawdown,
		"finalValue":  m.FinalValue,
	}
	result, err := goval.NewEvaluator().Evaluate(r.metric, variables, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate rank expression: %w", err)
	}
	switch v := result.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("rank expression produced %T, want a number", result)
	}
}
