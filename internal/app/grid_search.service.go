package app

import (
	"context"
	"errors"
	"fmt"
	"frontierbacktest/internal"
	"frontierbacktest/internal/calculator"
	"frontierbacktest/internal/domain"
	"frontierbacktest/internal/logger"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type CellStatus string

const (
	CellStatusComputed CellStatus = "computed"
	CellStatusSkipped  CellStatus = "skipped"
	CellStatusErrored  CellStatus = "errored"
)

type GridSearchService interface {
	Run(ctx context.Context, in GridSearchInput) (*GridSearchReport, error)
}

type gridSearchServiceHandler struct {
	BacktestHandler BacktestHandler
}

func NewGridSearchService(backtestHandler BacktestHandler) GridSearchService {
	return gridSearchServiceHandler{
		BacktestHandler: backtestHandler,
	}
}

type GridSearchInput struct {
	Panel   *domain.PricePanel
	Weights domain.WeightVector
	// enumeration policy: window values are {MinWindow, MinWindow+S,
	// ...} capped at MaxWindow, on both axes, filtered to fast < slow.
	// FastCap additionally caps the fast axis when set (the classic
	// 50/200 split); zero means no extra cap.
	StepSize  int
	MinWindow int
	MaxWindow int
	FastCap   int

	InitialCapital  float64
	RiskFreeRate    float64
	TransactionCost float64
	RankMetric      string
	// worker pool size; defaults to runtime.NumCPU()
	Workers int
}

type GridReportRow struct {
	Fast         int        `json:"fast" csv:"fast"`
	Slow         int        `json:"slow" csv:"slow"`
	Status       CellStatus `json:"status" csv:"status"`
	CAGR         float64    `json:"cagr" csv:"cagr"`
	Volatility   float64    `json:"volatility" csv:"volatility"`
	Sharpe       *float64   `json:"sharpe" csv:"sharpe"`
	MaxDrawdown  float64    `json:"maxDrawdown" csv:"max_drawdown"`
	FinalValue   float64    `json:"finalValue" csv:"final_value"`
	Trades       int        `json:"trades" csv:"trades"`
	DaysInMarket int        `json:"daysInMarket" csv:"days_in_market"`
	Score        float64    `json:"score" csv:"score"`
	Error        string     `json:"error,omitempty" csv:"error"`
}

// GridSearchReport is built once per run and handed to the export
// boundary. Rows are ranked descending by the chosen metric with ties
// broken by ascending max drawdown; skipped and errored cells follow
// the computed ones and never contribute to summary statistics.
type GridSearchReport struct {
	RunID     uuid.UUID          `json:"runId"`
	Rows      []GridReportRow    `json:"rows"`
	Computed  int                `json:"computed"`
	Skipped   int                `json:"skipped"`
	Errored   int                `json:"errored"`
	Best      *GridReportRow     `json:"best,omitempty"`
	BestCurve domain.EquityCurve `json:"-"`
}

type gridCellResult struct {
	pair  domain.WindowPair
	row   GridReportRow
	curve domain.EquityCurve
}

// Run evaluates every enumerated window pair on a bounded worker pool.
// Cells are pure functions of (weights, panel, pair) with no shared
// mutable state, so the only synchronization is the fan-in channel.
// Context cancellation drains the pool and returns the partial report,
// which stays valid.
func (h gridSearchServiceHandler) Run(ctx context.Context, in GridSearchInput) (*GridSearchReport, error) {
	log := logger.FromContext(ctx)

	pairs, err := EnumerateWindowPairs(in.StepSize, in.MinWindow, in.MaxWindow, in.FastCap)
	if err != nil {
		return nil, err
	}
	ranker, err := internal.NewRanker(in.RankMetric)
	if err != nil {
		return nil, err
	}
	values, err := in.Panel.WeightedValueSeries(in.Weights)
	if err != nil {
		return nil, err
	}

	workers := in.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log.Infow("starting grid search",
		"pairs", len(pairs),
		"workers", workers,
		"rankMetric", in.RankMetric,
	)

	inputCh := make(chan domain.WindowPair, len(pairs))
	resultCh := make(chan gridCellResult, len(pairs))
	for _, pair := range pairs {
		inputCh <- pair
	}
	close(inputCh)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case pair, ok := <-inputCh:
					if !ok {
						return
					}
					resultCh <- h.evaluateCell(in, values, pair, ranker)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	report := &GridSearchReport{RunID: uuid.New()}
	var bestCurve domain.EquityCurve
	for res := range resultCh {
		report.Rows = append(report.Rows, res.row)
		switch res.row.Status {
		case CellStatusComputed:
			report.Computed++
		case CellStatusSkipped:
			report.Skipped++
		case CellStatusErrored:
			report.Errored++
		}
		if res.row.Status == CellStatusComputed && res.curve != nil {
			if report.Best == nil || betterRow(res.row, *report.Best) {
				row := res.row
				report.Best = &row
				bestCurve = res.curve
			}
		}
	}
	report.BestCurve = bestCurve

	rankRows(report.Rows)
	if report.Best == nil && report.Computed > 0 {
		report.Best = &report.Rows[0]
	}

	log.Infow("grid search finished",
		"runId", report.RunID,
		"computed", report.Computed,
		"skipped", report.Skipped,
		"errored", report.Errored,
	)

	return report, nil
}

func (h gridSearchServiceHandler) evaluateCell(in GridSearchInput, values []float64, pair domain.WindowPair, ranker *internal.Ranker) gridCellResult {
	row := GridReportRow{Fast: pair.Fast, Slow: pair.Slow}

	signals, err := internal.ComputeSignals(values, pair.Fast, pair.Slow)
	if err != nil {
		return gridCellResult{pair: pair, row: classifyCellError(row, pair, err)}
	}

	backtest, err := h.BacktestHandler.Run(BacktestInput{
		Panel:           in.Panel,
		Weights:         in.Weights,
		Signals:         signals,
		InitialCapital:  in.InitialCapital,
		RiskFreeRate:    in.RiskFreeRate,
		TransactionCost: in.TransactionCost,
		InitialState:    StateOutOfMarket,
	})
	if err != nil {
		return gridCellResult{pair: pair, row: classifyCellError(row, pair, err)}
	}

	metrics, err := calculator.CalculateMetrics(backtest.Curve, in.RiskFreeRate)
	if err != nil {
		return gridCellResult{pair: pair, row: classifyCellError(row, pair, err)}
	}
	score, err := ranker.Score(metrics)
	if err != nil {
		return gridCellResult{pair: pair, row: classifyCellError(row, pair, err)}
	}

	row.Status = CellStatusComputed
	row.CAGR = metrics.CAGR
	row.Volatility = metrics.Volatility
	row.Sharpe = metrics.SharpeRatio
	row.MaxDrawdown = metrics.MaxDrawdown
	row.FinalValue = metrics.FinalValue
	row.Trades = backtest.Trades
	row.DaysInMarket = backtest.DaysInMarket
	row.Score = score

	return gridCellResult{pair: pair, row: row, curve: backtest.Curve}
}

// classifyCellError separates cells the panel is too short for
// (skipped) from genuine numerical failures (errored). Neither aborts
// the run.
func classifyCellError(row GridReportRow, pair domain.WindowPair, err error) GridReportRow {
	var insufficient domain.InsufficientDataError
	if errors.As(err, &insufficient) {
		row.Status = CellStatusSkipped
	} else {
		row.Status = CellStatusErrored
	}
	row.Error = fmt.Sprintf("(%d, %d): %s", pair.Fast, pair.Slow, err.Error())
	return row
}

// EnumerateWindowPairs lists the Cartesian product of the step-spaced
// window values with itself, filtered to fast < slow. Deterministic:
// ascending by fast, then slow.
func EnumerateWindowPairs(stepSize, minWindow, maxWindow, fastCap int) ([]domain.WindowPair, error) {
	if stepSize < 1 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("step size must be >= 1, got %d", stepSize)}
	}
	if minWindow < 1 || maxWindow < minWindow {
		return nil, domain.InputValidationError{Err: fmt.Errorf("invalid window bounds [%d, %d]", minWindow, maxWindow)}
	}
	if fastCap == 0 {
		fastCap = maxWindow
	}

	values := []int{}
	for v := minWindow; v <= maxWindow; v += stepSize {
		values = append(values, v)
	}

	pairs := []domain.WindowPair{}
	for _, fast := range values {
		if fast > fastCap {
			break
		}
		for _, slow := range values {
			if fast < slow {
				pairs = append(pairs, domain.WindowPair{Fast: fast, Slow: slow})
			}
		}
	}
	if len(pairs) == 0 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("window bounds [%d, %d] with step %d produce no valid pairs", minWindow, maxWindow, stepSize)}
	}
	return pairs, nil
}

func betterRow(a, b GridReportRow) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.MaxDrawdown < b.MaxDrawdown
}

func rankRows(rows []GridReportRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		statusRank := func(s CellStatus) int {
			switch s {
			case CellStatusComputed:
				return 0
			case CellStatusSkipped:
				return 1
			default:
				return 2
			}
		}
		if statusRank(rows[i].Status) != statusRank(rows[j].Status) {
			return statusRank(rows[i].Status) < statusRank(rows[j].Status)
		}
		if rows[i].Status != CellStatusComputed {
			// keep enumeration order inside skipped/errored blocks
			if rows[i].Fast != rows[j].Fast {
				return rows[i].Fast < rows[j].Fast
			}
			return rows[i].Slow < rows[j].Slow
		}
		return betterRow(rows[i], rows[j])
	})
}
