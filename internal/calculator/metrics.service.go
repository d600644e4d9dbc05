package calculator

import (
	"fmt"
	"frontierbacktest/internal/domain"
	"frontierbacktest/internal/util"
	"math"

	"github.com/montanaflynn/stats"
)

type CalculateMetricsResult struct {
	CAGR       float64
	Volatility float64
	// nil when volatility is zero, in which case the ratio is
	// undefined rather than infinite
	SharpeRatio *float64
	MaxDrawdown float64
	FinalValue  float64
}

// CalculateMetrics derives the standard risk-adjusted metrics from an
// equity curve. The same formulas apply to the buy-and-hold baseline
// and every grid-cell curve.
func CalculateMetrics(curve domain.EquityCurve, riskFreeRate float64) (*CalculateMetricsResult, error) {
	if len(curve) < 2 {
		return nil, domain.InsufficientDataError{Err: fmt.Errorf("cannot calculate metrics on %d equity points", len(curve))}
	}
	for i, point := range curve {
		if point.Value <= 0 || math.IsNaN(point.Value) || math.IsInf(point.Value, 0) {
			return nil, domain.DataIntegrityError{Err: fmt.Errorf("equity curve has invalid value %f at index %d", point.Value, i)}
		}
	}

	totalDays := util.CalendarDays(curve[0].Date, curve[len(curve)-1].Date)
	if totalDays <= 0 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("equity curve spans %f days", totalDays)}
	}
	cagr := math.Pow(curve.FinalValue()/curve[0].Value, 365.25/totalDays) - 1

	// sample stdev needs at least two returns; on one it comes back NaN
	// with a nil error
	returns := curve.DailyReturns()
	if len(returns) < 2 {
		return nil, domain.InsufficientDataError{Err: fmt.Errorf("cannot estimate volatility on %d daily returns", len(returns))}
	}
	stdev, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate stdev of daily returns: %w", err)
	}
	volatility := stdev * math.Sqrt(252)

	var sharpe *float64
	if volatility > 0 {
		s := (cagr - riskFreeRate) / volatility
		sharpe = &s
	}

	return &CalculateMetricsResult{
		CAGR:        cagr,
		Volatility:  volatility,
		SharpeRatio: sharpe,
		MaxDrawdown: MaxDrawdown(curve),
		FinalValue:  curve.FinalValue(),
	}, nil
}

// MaxDrawdown is the largest peak-to-trough decline, with the peak
// tracked causally. Always in [0, 1] for a positive curve, and 0 iff
// the curve never declines.
func MaxDrawdown(curve domain.EquityCurve) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Value
	maxDD := 0.0
	for _, point := range curve {
		if point.Value > peak {
			peak = point.Value
		}
		dd := (peak - point.Value) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
