package internal

import (
	"frontierbacktest/internal/calculator"
	"frontierbacktest/internal/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Ranker(t *testing.T) {
	sharpe := 1.4
	metrics := &calculator.CalculateMetricsResult{
		CAGR:        0.12,
		Volatility:  0.18,
		SharpeRatio: &sharpe,
		MaxDrawdown: 0.3,
		FinalValue:  15000,
	}

	t.Run("defaults to cagr", func(t *testing.T) {
		ranker, err := NewRanker("")
		require.NoError(t, err)
		score, err := ranker.Score(metrics)
		require.NoError(t, err)
		require.Equal(t, 0.12, score)
	})

	t.Run("builtin metrics", func(t *testing.T) {
		for metric, want := range map[string]float64{
			RankMetricCAGR:        0.12,
			RankMetricVolatility:  0.18,
			RankMetricSharpe:      1.4,
			RankMetricMaxDrawdown: 0.3,
			RankMetricFinalValue:  15000,
		} {
			ranker, err := NewRanker(metric)
			require.NoError(t, err)
			score, err := ranker.Score(metrics)
			require.NoError(t, err)
			require.Equal(t, want, score, metric)
		}
	})

	t.Run("undefined sharpe ranks last", func(t *testing.T) {
		ranker, err := NewRanker(RankMetricSharpe)
		require.NoError(t, err)
		score, err := ranker.Score(&calculator.CalculateMetricsResult{})
		require.NoError(t, err)
		require.Less(t, score, -1e300)
	})

	t.Run("expression metric", func(t *testing.T) {
		ranker, err := NewRanker("cagr / (maxDrawdown + 0.1)")
		require.NoError(t, err)
		score, err := ranker.Score(metrics)
		require.NoError(t, err)
		require.InDelta(t, 0.12/0.4, score, 1e-12)
	})

	t.Run("invalid expression rejected up front", func(t *testing.T) {
		_, err := NewRanker("cagr +* nonsense(")
		var validation domain.InputValidationError
		require.ErrorAs(t, err, &validation)
	})
}
