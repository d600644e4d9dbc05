package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func Test_NewPricePanel(t *testing.T) {
	t.Run("valid panel", func(t *testing.T) {
		panel, err := NewPricePanel(
			[]time.Time{newDate(2020, 1, 1), newDate(2020, 1, 2), newDate(2020, 1, 3)},
			map[string][]float64{
				"AAPL": {100, 101, 102},
				"MSFT": {200, 198, 205},
			},
		)
		require.NoError(t, err)
		require.Equal(t, 3, panel.NumRows())
		require.Equal(t, []string{"AAPL", "MSFT"}, panel.Symbols())
	})

	t.Run("too few rows", func(t *testing.T) {
		_, err := NewPricePanel(
			[]time.Time{newDate(2020, 1, 1)},
			map[string][]float64{"AAPL": {100}},
		)
		var insufficient InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
	})

	t.Run("dates not strictly increasing", func(t *testing.T) {
		_, err := NewPricePanel(
			[]time.Time{newDate(2020, 1, 2), newDate(2020, 1, 2)},
			map[string][]float64{"AAPL": {100, 101}},
		)
		var validation InputValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("column length mismatch", func(t *testing.T) {
		_, err := NewPricePanel(
			[]time.Time{newDate(2020, 1, 1), newDate(2020, 1, 2)},
			map[string][]float64{"AAPL": {100}},
		)
		var validation InputValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("NaN price", func(t *testing.T) {
		_, err := NewPricePanel(
			[]time.Time{newDate(2020, 1, 1), newDate(2020, 1, 2)},
			map[string][]float64{"AAPL": {100, math.NaN()}},
		)
		var integrity DataIntegrityError
		require.ErrorAs(t, err, &integrity)
	})

	t.Run("non-positive price", func(t *testing.T) {
		_, err := NewPricePanel(
			[]time.Time{newDate(2020, 1, 1), newDate(2020, 1, 2)},
			map[string][]float64{"AAPL": {100, 0}},
		)
		var integrity DataIntegrityError
		require.ErrorAs(t, err, &integrity)
	})
}

func Test_PricePanel_SliceRange(t *testing.T) {
	panel, err := NewPricePanel(
		[]time.Time{newDate(2020, 1, 1), newDate(2020, 1, 2), newDate(2020, 1, 3), newDate(2020, 1, 6)},
		map[string][]float64{"AAPL": {100, 101, 102, 103}},
	)
	require.NoError(t, err)

	t.Run("inclusive bounds", func(t *testing.T) {
		sub, err := panel.SliceRange(newDate(2020, 1, 2), newDate(2020, 1, 6))
		require.NoError(t, err)
		require.Equal(t, 3, sub.NumRows())
		require.Equal(t, newDate(2020, 1, 2), sub.Dates()[0])
	})

	t.Run("too narrow", func(t *testing.T) {
		_, err := panel.SliceRange(newDate(2020, 1, 3), newDate(2020, 1, 3))
		var insufficient InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
	})
}

func Test_PricePanel_WeightedValueSeries(t *testing.T) {
	panel, err := NewPricePanel(
		[]time.Time{newDate(2020, 1, 1), newDate(2020, 1, 2)},
		map[string][]float64{
			"AAPL": {100, 110},
			"MSFT": {200, 190},
		},
	)
	require.NoError(t, err)

	t.Run("weighted sum per day", func(t *testing.T) {
		values, err := panel.WeightedValueSeries(WeightVector{"AAPL": 0.5, "MSFT": 0.5})
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff([]float64{150, 150}, values))
	})

	t.Run("unknown symbol rejected", func(t *testing.T) {
		_, err := panel.WeightedValueSeries(WeightVector{"GOOG": 1})
		var validation InputValidationError
		require.True(t, errors.As(err, &validation))
	})
}
