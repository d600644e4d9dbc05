package internal

import (
	"fmt"
	"frontierbacktest/internal/domain"
	"math"
)

// ComputeSignals derives the dual moving-average crossover signal for a
// portfolio value series. Signal[t] is true (in-market) when the fast
// moving average exceeds the slow one, and is only defined from day
// slow-1 onward. Earlier entries are false: during warm-up the strategy
// sits flat in cash. Every average at day t uses data up to and
// including t only, so appending future rows never changes earlier
// entries.
func ComputeSignals(values []float64, fast, slow int) ([]bool, error) {
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, domain.InputValidationError{Err: fmt.Errorf("invalid window pair (%d, %d): need 0 < fast < slow", fast, slow)}
	}
	if len(values) < slow {
		return nil, domain.InsufficientDataError{Err: fmt.Errorf("series has %d values, slow window needs %d", len(values), slow)}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, domain.DataIntegrityError{Err: fmt.Errorf("undefined value at index %d", i)}
		}
	}

	// prefix sums make each rolling mean O(1)
	prefix := make([]float64, len(values)+1)
	for i, v := range values {
		prefix[i+1] = prefix[i] + v
	}
	rollingMean := func(end, window int) float64 {
		return (prefix[end+1] - prefix[end+1-window]) / float64(window)
	}

	signals := make([]bool, len(values))
	for t := slow - 1; t < len(values); t++ {
		signals[t] = rollingMean(t, fast) > rollingMean(t, slow)
	}

	return signals, nil
}
