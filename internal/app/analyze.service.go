package app

import (
	"context"
	"fmt"
	"frontierbacktest/internal"
	"frontierbacktest/internal/calculator"
	"frontierbacktest/internal/domain"
	"frontierbacktest/internal/logger"
)

// AnalyzeHandler drives the whole flow: panel -> returns/covariance ->
// frontier optimization -> buy-and-hold baseline -> moving-average grid
// search. It performs no I/O; panels come in and reports go out at the
// boundary.
type AnalyzeHandler struct {
	BacktestHandler   BacktestHandler
	GridSearchService GridSearchService
}

func NewAnalyzeHandler() AnalyzeHandler {
	backtestHandler := BacktestHandler{}
	return AnalyzeHandler{
		BacktestHandler:   backtestHandler,
		GridSearchService: NewGridSearchService(backtestHandler),
	}
}

type AnalyzeInput struct {
	Panel *domain.PricePanel

	InitialCapital    float64
	RiskFreeRate      float64
	LongOnly          bool
	NumFrontierPoints int

	StepSize        int
	MinWindow       int
	MaxWindow       int
	FastCap         int
	TransactionCost float64
	RankMetric      string
	Workers         int
}

type BaselineResult struct {
	Metrics *calculator.CalculateMetricsResult `json:"metrics"`
	Trades  int                                `json:"trades"`
	Curve   domain.EquityCurve                 `json:"-"`
}

type AnalyzeResponse struct {
	OptimalWeights domain.WeightVector  `json:"optimalWeights"`
	MaxSharpe      domain.FrontierPoint `json:"maxSharpe"`
	MinVariance    domain.FrontierPoint `json:"minVariance"`
	Frontier       domain.Frontier      `json:"frontier"`
	Baseline       BaselineResult       `json:"baseline"`
	Grid           *GridSearchReport    `json:"grid"`
}

func (h AnalyzeHandler) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeResponse, error) {
	log := logger.FromContext(ctx)

	returns, err := internal.ComputeReturns(in.Panel)
	if err != nil {
		return nil, fmt.Errorf("failed to compute returns: %w", err)
	}
	annualized, err := internal.ComputeAnnualizedStats(returns, 252)
	if err != nil {
		return nil, fmt.Errorf("failed to compute annualized stats: %w", err)
	}

	optimizer, err := internal.NewOptimizer(annualized, in.LongOnly)
	if err != nil {
		return nil, err
	}
	minVariance, err := optimizer.MinVariancePortfolio()
	if err != nil {
		return nil, fmt.Errorf("failed to solve min-variance portfolio: %w", err)
	}
	maxSharpe, err := optimizer.MaxSharpePortfolio(in.RiskFreeRate)
	if err != nil {
		return nil, fmt.Errorf("failed to solve max-sharpe portfolio: %w", err)
	}
	frontier, err := optimizer.BuildFrontier(in.NumFrontierPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to build frontier: %w", err)
	}
	log.Infow("solved optimal portfolio",
		"expectedReturn", maxSharpe.ExpectedReturn,
		"volatility", maxSharpe.Volatility,
		"assets", len(maxSharpe.Weights),
		"frontierPoints", len(frontier),
	)

	baseline, err := h.BacktestHandler.BuyAndHold(BacktestInput{
		Panel:           in.Panel,
		Weights:         maxSharpe.Weights,
		InitialCapital:  in.InitialCapital,
		RiskFreeRate:    in.RiskFreeRate,
		TransactionCost: in.TransactionCost,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run buy-and-hold baseline: %w", err)
	}
	baselineMetrics, err := calculator.CalculateMetrics(baseline.Curve, in.RiskFreeRate)
	if err != nil {
		return nil, fmt.Errorf("failed to compute baseline metrics: %w", err)
	}

	grid, err := h.GridSearchService.Run(ctx, GridSearchInput{
		Panel:           in.Panel,
		Weights:         maxSharpe.Weights,
		StepSize:        in.StepSize,
		MinWindow:       in.MinWindow,
		MaxWindow:       in.MaxWindow,
		FastCap:         in.FastCap,
		InitialCapital:  in.InitialCapital,
		RiskFreeRate:    in.RiskFreeRate,
		TransactionCost: in.TransactionCost,
		RankMetric:      in.RankMetric,
		Workers:         in.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run grid search: %w", err)
	}

	return &AnalyzeResponse{
		OptimalWeights: maxSharpe.Weights,
		MaxSharpe:      *maxSharpe,
		MinVariance:    *minVariance,
		Frontier:       frontier,
		Baseline: BaselineResult{
			Metrics: baselineMetrics,
			Trades:  baseline.Trades,
			Curve:   baseline.Curve,
		},
		Grid: grid,
	}, nil
}
