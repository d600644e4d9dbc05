package calculator

import (
	"frontierbacktest/internal/domain"
	"frontierbacktest/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func curveFromValues(start time.Time, values ...float64) domain.EquityCurve {
	curve := make(domain.EquityCurve, 0, len(values))
	for i, value := range values {
		curve = append(curve, domain.EquityPoint{
			Date:  start.AddDate(0, 0, i),
			Value: value,
		})
	}
	return curve
}

func Test_CalculateMetrics(t *testing.T) {
	start := util.NewDate(2020, 1, 1)

	t.Run("CAGR over a calendar year", func(t *testing.T) {
		curve := domain.EquityCurve{
			{Date: start, Value: 10000},
			{Date: start.AddDate(0, 6, 0), Value: 10500},
			{Date: start.AddDate(1, 0, 0), Value: 12000},
		}
		out, err := CalculateMetrics(curve, 0)
		require.NoError(t, err)
		// (12000/10000)^(365.25/366) - 1 for the 2020 leap year span
		require.InDelta(t, 0.1996, out.CAGR, 1e-3)
		require.Equal(t, 12000.0, out.FinalValue)
	})

	t.Run("sharpe undefined for a flat curve", func(t *testing.T) {
		curve := curveFromValues(start, 100, 100, 100, 100)
		out, err := CalculateMetrics(curve, 0.02)
		require.NoError(t, err)
		require.Zero(t, out.Volatility)
		require.Nil(t, out.SharpeRatio)
		require.Zero(t, out.MaxDrawdown)
	})

	t.Run("sharpe defined when volatility is positive", func(t *testing.T) {
		curve := curveFromValues(start, 100, 105, 103, 108)
		out, err := CalculateMetrics(curve, 0.02)
		require.NoError(t, err)
		require.Greater(t, out.Volatility, 0.0)
		require.NotNil(t, out.SharpeRatio)
		require.InDelta(t, (out.CAGR-0.02)/out.Volatility, *out.SharpeRatio, 1e-12)
	})

	t.Run("too few points", func(t *testing.T) {
		_, err := CalculateMetrics(curveFromValues(start, 100), 0)
		var insufficient domain.InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
	})

	t.Run("two-point curve cannot estimate volatility", func(t *testing.T) {
		// a lone daily return has no sample stdev; this must surface as
		// an error, never as a NaN volatility
		_, err := CalculateMetrics(curveFromValues(start, 100, 110), 0)
		var insufficient domain.InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
	})

	t.Run("non-positive equity rejected", func(t *testing.T) {
		_, err := CalculateMetrics(curveFromValues(start, 100, -5, 100), 0)
		var integrity domain.DataIntegrityError
		require.ErrorAs(t, err, &integrity)
	})
}

func Test_MaxDrawdown(t *testing.T) {
	start := util.NewDate(2020, 1, 1)

	t.Run("zero iff non-decreasing", func(t *testing.T) {
		require.Zero(t, MaxDrawdown(curveFromValues(start, 100, 100, 110, 120)))
		require.Greater(t, MaxDrawdown(curveFromValues(start, 100, 99, 120)), 0.0)
	})

	t.Run("peak tracked causally", func(t *testing.T) {
		// peak 120, trough 90: drawdown 25%, later recovery ignored
		dd := MaxDrawdown(curveFromValues(start, 100, 120, 90, 130))
		require.InDelta(t, 0.25, dd, 1e-12)
	})

	t.Run("bounded by [0, 1] for positive curves", func(t *testing.T) {
		dd := MaxDrawdown(curveFromValues(start, 1000, 1, 500))
		require.GreaterOrEqual(t, dd, 0.0)
		require.LessOrEqual(t, dd, 1.0)
	})
}
