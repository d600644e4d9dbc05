package internal

import (
	"fmt"
	"frontierbacktest/internal/domain"
	"math"

	"github.com/montanaflynn/stats"
)

// AssetReturns holds per-period simple returns for every symbol in a
// panel, aligned to the same period sequence.
type AssetReturns struct {
	Symbols []string
	// Series[i] is the return series for Symbols[i], one entry per
	// period (panel rows - 1)
	Series [][]float64
}

// ComputeReturns derives per-period simple returns from a price panel.
func ComputeReturns(panel *domain.PricePanel) (*AssetReturns, error) {
	if panel == nil {
		return nil, domain.InputValidationError{Err: fmt.Errorf("panel is nil")}
	}
	if panel.NumRows() < 2 {
		return nil, domain.InsufficientDataError{Err: fmt.Errorf("cannot compute returns on %d rows", panel.NumRows())}
	}

	symbols := panel.Symbols()
	series := make([][]float64, 0, len(symbols))
	for _, symbol := range symbols {
		column, err := panel.Column(symbol)
		if err != nil {
			return nil, err
		}
		returns := make([]float64, 0, len(column)-1)
		for i := 1; i < len(column); i++ {
			prev := column[i-1].InexactFloat64()
			curr := column[i].InexactFloat64()
			ret := (curr - prev) / prev
			if math.IsNaN(ret) || math.IsInf(ret, 0) {
				return nil, domain.DataIntegrityError{Err: fmt.Errorf("undefined return for %s at period %d", symbol, i)}
			}
			returns = append(returns, ret)
		}
		series = append(series, returns)
	}

	return &AssetReturns{
		Symbols: symbols,
		Series:  series,
	}, nil
}

// AnnualizedStats is the mean vector and covariance matrix scaled to a
// yearly horizon. No autocorrelation correction is applied.
type AnnualizedStats struct {
	Symbols    []string
	Means      []float64
	Covariance [][]float64
}

// ComputeAnnualizedStats scales per-period means and sample covariance
// by periodsPerYear.
func ComputeAnnualizedStats(returns *AssetReturns, periodsPerYear float64) (*AnnualizedStats, error) {
	if returns == nil || len(returns.Series) == 0 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("no return series provided")}
	}
	if periodsPerYear <= 0 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("periodsPerYear must be positive, got %f", periodsPerYear)}
	}
	if len(returns.Series[0]) < 2 {
		return nil, domain.InsufficientDataError{Err: fmt.Errorf("cannot estimate covariance on %d periods", len(returns.Series[0]))}
	}

	n := len(returns.Series)
	means := make([]float64, n)
	for i, series := range returns.Series {
		mean, err := stats.Mean(series)
		if err != nil {
			return nil, fmt.Errorf("failed to compute mean for %s: %w", returns.Symbols[i], err)
		}
		means[i] = mean * periodsPerYear
	}

	covariance := make([][]float64, n)
	for i := range covariance {
		covariance[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov, err := stats.Covariance(returns.Series[i], returns.Series[j])
			if err != nil {
				return nil, fmt.Errorf("failed to compute covariance of %s and %s: %w", returns.Symbols[i], returns.Symbols[j], err)
			}
			covariance[i][j] = cov * periodsPerYear
			covariance[j][i] = covariance[i][j]
		}
	}

	return &AnnualizedStats{
		Symbols:    returns.Symbols,
		Means:      means,
		Covariance: covariance,
	}, nil
}
