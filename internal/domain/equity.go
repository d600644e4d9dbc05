package domain

import (
	"time"
)

// EquityPoint is one day of an equity curve.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// EquityCurve is an ordered (date, value) sequence. Values are positive
// and the first value equals the initial capital.
type EquityCurve []EquityPoint

func (c EquityCurve) FinalValue() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].Value
}

// DailyReturns converts the curve into simple day-over-day returns.
func (c EquityCurve) DailyReturns() []float64 {
	if len(c) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(c)-1)
	for i := 1; i < len(c); i++ {
		returns = append(returns, (c[i].Value-c[i-1].Value)/c[i-1].Value)
	}
	return returns
}

// WindowPair is one (fast, slow) moving-average combination,
// fast < slow, both > 0.
type WindowPair struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
}
