package app

import (
	"context"
	"frontierbacktest/internal/domain"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_EnumerateWindowPairs(t *testing.T) {
	t.Run("matches the closed-form count", func(t *testing.T) {
		// bounds [2, 50] step 10 give values {2, 12, 22, 32, 42};
		// pairs with fast < slow are k*(k-1)/2
		pairs, err := EnumerateWindowPairs(10, 2, 50, 0)
		require.NoError(t, err)

		k := 0
		for v := 2; v <= 50; v += 10 {
			k++
		}
		require.Len(t, pairs, k*(k-1)/2)
	})

	t.Run("deterministic ascending order", func(t *testing.T) {
		pairs, err := EnumerateWindowPairs(5, 5, 20, 0)
		require.NoError(t, err)
		for i := 1; i < len(pairs); i++ {
			prev, curr := pairs[i-1], pairs[i]
			require.True(t, prev.Fast < curr.Fast || (prev.Fast == curr.Fast && prev.Slow < curr.Slow))
		}
		for _, pair := range pairs {
			require.Less(t, pair.Fast, pair.Slow)
		}
	})

	t.Run("fast cap restricts the fast axis only", func(t *testing.T) {
		pairs, err := EnumerateWindowPairs(50, 50, 200, 50)
		require.NoError(t, err)
		for _, pair := range pairs {
			require.LessOrEqual(t, pair.Fast, 50)
		}
		require.Len(t, pairs, 3) // (50,100), (50,150), (50,200)
	})

	t.Run("invalid step", func(t *testing.T) {
		_, err := EnumerateWindowPairs(0, 2, 50, 0)
		var validation domain.InputValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("no valid pairs", func(t *testing.T) {
		_, err := EnumerateWindowPairs(100, 2, 50, 0)
		var validation domain.InputValidationError
		require.ErrorAs(t, err, &validation)
	})
}

func gridTestPanel(t *testing.T) *domain.PricePanel {
	t.Helper()
	// a rising market with a mid-series slump, long enough for the
	// slow windows under test
	a := make([]float64, 40)
	b := make([]float64, 40)
	for i := range a {
		a[i] = 100 + 2*float64(i) + 5*math.Sin(float64(i)/3)
		b[i] = 80 + 1.5*float64(i) - 4*math.Sin(float64(i)/4)
	}
	return testPanel(t, map[string][]float64{"A": a, "B": b})
}

func Test_GridSearchService_Run(t *testing.T) {
	service := NewGridSearchService(BacktestHandler{})
	weights := domain.WeightVector{"A": 0.5, "B": 0.5}

	t.Run("computes every feasible cell and ranks by score", func(t *testing.T) {
		report, err := service.Run(context.Background(), GridSearchInput{
			Panel:          gridTestPanel(t),
			Weights:        weights,
			StepSize:       5,
			MinWindow:      5,
			MaxWindow:      20,
			InitialCapital: 10000,
			RankMetric:     "cagr",
			Workers:        4,
		})
		require.NoError(t, err)

		require.Equal(t, len(report.Rows), report.Computed+report.Skipped+report.Errored)
		require.Equal(t, 6, report.Computed) // pairs over {5,10,15,20}
		require.Zero(t, report.Errored)
		require.NotNil(t, report.Best)
		require.NotEmpty(t, report.BestCurve)

		for i := 1; i < report.Computed; i++ {
			prev, curr := report.Rows[i-1], report.Rows[i]
			require.True(t,
				prev.Score > curr.Score ||
					(prev.Score == curr.Score && prev.MaxDrawdown <= curr.MaxDrawdown),
				"rows %d and %d out of rank order", i-1, i,
			)
		}
		require.Equal(t, report.Rows[0].Fast, report.Best.Fast)
		require.Equal(t, report.Rows[0].Slow, report.Best.Slow)
	})

	t.Run("windows longer than the panel are skipped, not fatal", func(t *testing.T) {
		report, err := service.Run(context.Background(), GridSearchInput{
			Panel:          gridTestPanel(t), // 40 rows
			Weights:        weights,
			StepSize:       30,
			MinWindow:      30,
			MaxWindow:      90,
			InitialCapital: 10000,
		})
		require.NoError(t, err)

		// (30,60) and (30,90) and (60,90) all have slow > 40 rows
		require.Zero(t, report.Computed)
		require.Equal(t, 3, report.Skipped)
		for _, row := range report.Rows {
			require.Equal(t, CellStatusSkipped, row.Status)
			require.NotEmpty(t, row.Error)
		}
	})

	t.Run("cancelled context yields a valid partial report", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := service.Run(ctx, GridSearchInput{
			Panel:          gridTestPanel(t),
			Weights:        weights,
			StepSize:       5,
			MinWindow:      5,
			MaxWindow:      20,
			InitialCapital: 10000,
		})
		require.NoError(t, err)
		require.LessOrEqual(t, report.Computed, 6)
		require.Equal(t, len(report.Rows), report.Computed+report.Skipped+report.Errored)
	})

	t.Run("bad rank metric fails before any grid work", func(t *testing.T) {
		_, err := service.Run(context.Background(), GridSearchInput{
			Panel:          gridTestPanel(t),
			Weights:        weights,
			StepSize:       5,
			MinWindow:      5,
			MaxWindow:      20,
			InitialCapital: 10000,
			RankMetric:     "cagr +* bogus",
		})
		var validation domain.InputValidationError
		require.ErrorAs(t, err, &validation)
	})
}
