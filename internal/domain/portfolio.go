package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const weightSumTolerance = 1e-6

// WeightVector maps symbol -> portfolio weight. In long-only mode all
// weights are >= 0, and they always sum to 1 within tolerance.
type WeightVector map[string]float64

func (w WeightVector) Validate(longOnly bool) error {
	if len(w) == 0 {
		return InputValidationError{fmt.Errorf("weight vector is empty")}
	}
	sum := 0.0
	for symbol, weight := range w {
		if math.IsNaN(weight) {
			return InputValidationError{fmt.Errorf("invalid weight NaN for %s", symbol)}
		}
		if longOnly && weight < -weightSumTolerance {
			return InputValidationError{fmt.Errorf("negative weight %f for %s in long-only mode", weight, symbol)}
		}
		sum += weight
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return InputValidationError{fmt.Errorf("weights should sum to 1, got %f", sum)}
	}
	return nil
}

// Clean zeroes weights below the threshold and renormalizes so the
// remainder sums to exactly 1.
func (w WeightVector) Clean(threshold float64) WeightVector {
	cleaned := WeightVector{}
	sum := 0.0
	for symbol, weight := range w {
		if weight < threshold {
			continue
		}
		cleaned[symbol] = weight
		sum += weight
	}
	if sum == 0 {
		return cleaned
	}
	for symbol := range cleaned {
		cleaned[symbol] /= sum
	}
	return cleaned
}

// FrontierPoint is one solved portfolio on the efficient frontier.
type FrontierPoint struct {
	ExpectedReturn float64      `json:"expectedReturn"`
	Volatility     float64      `json:"volatility"`
	Weights        WeightVector `json:"weights"`
}

// Frontier is ordered by ascending target return, from the min-variance
// portfolio to the max single-asset return.
type Frontier []FrontierPoint

type Portfolio struct {
	Positions map[string]*Position
	Cash      decimal.Decimal
}

func NewPortfolio(cash decimal.Decimal) *Portfolio {
	return &Portfolio{
		Positions: map[string]*Position{},
		Cash:      cash,
	}
}

func (p Portfolio) HeldSymbols() []string {
	symbols := []string{}
	for symbol := range p.Positions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

func (p Portfolio) DeepCopy() *Portfolio {
	newPortfolio := &Portfolio{
		Cash:      p.Cash,
		Positions: map[string]*Position{},
	}
	for symbol, position := range p.Positions {
		newPortfolio.Positions[symbol] = position.DeepCopy()
	}

	return newPortfolio
}

func (p Portfolio) TotalValue(priceMap map[string]decimal.Decimal) (decimal.Decimal, error) {
	totalValue := p.Cash
	for symbol, position := range p.Positions {
		price, ok := priceMap[symbol]
		if !ok {
			return decimal.Zero, fmt.Errorf("cannot compute portfolio total value: price map missing %s", symbol)
		}
		totalValue = totalValue.Add(position.ExactQuantity.Mul(price))
	}

	return totalValue, nil
}

type Position struct {
	Symbol        string
	ExactQuantity decimal.Decimal
}

func (p Position) DeepCopy() *Position {
	return &Position{
		Symbol:        p.Symbol,
		ExactQuantity: p.ExactQuantity,
	}
}
