package app

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_AnalyzeHandler_Analyze(t *testing.T) {
	handler := NewAnalyzeHandler()

	a := make([]float64, 60)
	b := make([]float64, 60)
	for i := range a {
		a[i] = 100 * math.Pow(1.002, float64(i)) * (1 + 0.01*math.Sin(float64(i)/2))
		b[i] = 50 * math.Pow(1.001, float64(i)) * (1 - 0.008*math.Cos(float64(i)/3))
	}
	panel := testPanel(t, map[string][]float64{"AAA": a, "BBB": b})

	t.Run("end to end", func(t *testing.T) {
		out, err := handler.Analyze(context.Background(), AnalyzeInput{
			Panel:             panel,
			InitialCapital:    10000,
			RiskFreeRate:      0.03,
			LongOnly:          true,
			NumFrontierPoints: 10,
			StepSize:          5,
			MinWindow:         5,
			MaxWindow:         20,
		})
		require.NoError(t, err)

		require.NoError(t, out.OptimalWeights.Validate(true))
		require.NotEmpty(t, out.Frontier)
		require.NotNil(t, out.Baseline.Metrics)
		require.Equal(t, 1, out.Baseline.Trades)
		require.Equal(t, 10000.0, out.Baseline.Curve[0].Value)
		require.Equal(t, 6, out.Grid.Computed)

		// baseline and grid cells are measured with the same formulas,
		// so rows are directly comparable to the buy-and-hold metrics
		for _, row := range out.Grid.Rows[:out.Grid.Computed] {
			require.GreaterOrEqual(t, row.MaxDrawdown, 0.0)
			require.LessOrEqual(t, row.MaxDrawdown, 1.0)
			require.Greater(t, row.FinalValue, 0.0)
		}
	})

	t.Run("too-short panel fails before grid work", func(t *testing.T) {
		short := testPanel(t, map[string][]float64{"AAA": {100, 101}})
		_, err := handler.Analyze(context.Background(), AnalyzeInput{
			Panel:             short,
			InitialCapital:    10000,
			NumFrontierPoints: 5,
			LongOnly:          true,
			StepSize:          5,
			MinWindow:         5,
			MaxWindow:         20,
		})
		require.Error(t, err)
	})
}
