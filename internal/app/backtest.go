package app

import (
	"fmt"
	"frontierbacktest/internal/domain"
	"math"

	"github.com/shopspring/decimal"
)

// MarketState is the two-state machine driving the simulator.
type MarketState int

const (
	StateOutOfMarket MarketState = iota
	StateInMarket
)

type BacktestHandler struct{}

type BacktestInput struct {
	Panel   *domain.PricePanel
	Weights domain.WeightVector
	// Signals is aligned 1:1 with panel dates; true means in-market
	Signals        []bool
	InitialCapital float64
	// annual risk-free rate as a fraction; idle cash accrues at
	// RiskFreeRate/252 per trading day
	RiskFreeRate float64
	// flat dollar cost charged on each transition, zero by default
	TransactionCost float64
	InitialState    MarketState
}

type BacktestResponse struct {
	Curve        domain.EquityCurve
	Trades       int
	DaysInMarket int
}

// Run replays the signal against the panel. On OUT->IN all cash buys
// positions sized by the weight vector at that day's closes; on IN->OUT
// everything liquidates to cash. Positions are never rebalanced between
// transitions, so weight drift inside an in-market stretch is
// preserved.
func (h BacktestHandler) Run(in BacktestInput) (*BacktestResponse, error) {
	if err := h.validate(in); err != nil {
		return nil, err
	}

	dates := in.Panel.Dates()
	dailyRate := decimal.NewFromFloat(1 + in.RiskFreeRate/252)
	cost := decimal.NewFromFloat(in.TransactionCost)

	portfolio := domain.NewPortfolio(decimal.NewFromFloat(in.InitialCapital))
	state := StateOutOfMarket

	curve := make(domain.EquityCurve, 0, len(dates))
	trades := 0
	daysInMarket := 0

	for t := range dates {
		priceMap := in.Panel.PriceMapAt(t)

		// idle cash earns the risk-free rate overnight
		if t > 0 && state == StateOutOfMarket {
			portfolio.Cash = portfolio.Cash.Mul(dailyRate)
		}

		// the first day is driven by InitialState, every other day by
		// the signal
		want := in.InitialState
		if t > 0 {
			want = StateOutOfMarket
			if in.Signals[t] {
				want = StateInMarket
			}
		}

		if want == StateInMarket && state == StateOutOfMarket {
			if err := h.enterMarket(portfolio, in.Weights, priceMap, cost); err != nil {
				return nil, err
			}
			state = StateInMarket
			trades++
		} else if want == StateOutOfMarket && state == StateInMarket {
			if err := h.exitMarket(portfolio, priceMap, cost); err != nil {
				return nil, err
			}
			state = StateOutOfMarket
			trades++
		}

		if state == StateInMarket {
			daysInMarket++
		}

		value, err := portfolio.TotalValue(priceMap)
		if err != nil {
			return nil, domain.DataIntegrityError{Err: fmt.Errorf("failed to value portfolio on %v: %w", dates[t], err)}
		}
		curve = append(curve, domain.EquityPoint{
			Date:  dates[t],
			Value: value.InexactFloat64(),
		})
	}

	return &BacktestResponse{
		Curve:        curve,
		Trades:       trades,
		DaysInMarket: daysInMarket,
	}, nil
}

// BuyAndHold produces the continuous-holding baseline: enter at the
// first close, never exit. Sizing rules are identical to Run so the
// curves compare apples-to-apples.
func (h BacktestHandler) BuyAndHold(in BacktestInput) (*BacktestResponse, error) {
	if in.Panel == nil {
		return nil, domain.InputValidationError{Err: fmt.Errorf("panel is nil")}
	}
	signals := make([]bool, in.Panel.NumRows())
	for i := range signals {
		signals[i] = true
	}
	in.Signals = signals
	in.InitialState = StateInMarket
	return h.Run(in)
}

func (h BacktestHandler) validate(in BacktestInput) error {
	if in.Panel == nil {
		return domain.InputValidationError{Err: fmt.Errorf("panel is nil")}
	}
	if in.InitialCapital <= 0 || math.IsNaN(in.InitialCapital) {
		return domain.InputValidationError{Err: fmt.Errorf("initial capital must be positive, got %f", in.InitialCapital)}
	}
	if in.TransactionCost < 0 {
		return domain.InputValidationError{Err: fmt.Errorf("transaction cost must be >= 0, got %f", in.TransactionCost)}
	}
	if err := in.Weights.Validate(false); err != nil {
		return err
	}
	if len(in.Signals) != in.Panel.NumRows() {
		return domain.InputValidationError{Err: fmt.Errorf("signal series has %d entries, panel has %d rows", len(in.Signals), in.Panel.NumRows())}
	}
	return nil
}

func (h BacktestHandler) enterMarket(portfolio *domain.Portfolio, weights domain.WeightVector, priceMap map[string]decimal.Decimal, cost decimal.Decimal) error {
	spend := portfolio.Cash.Sub(cost)
	for symbol, weight := range weights {
		price, ok := priceMap[symbol]
		if !ok || price.IsZero() {
			return domain.DataIntegrityError{Err: fmt.Errorf("no usable price for %s at market entry", symbol)}
		}
		dollars := spend.Mul(decimal.NewFromFloat(weight))
		portfolio.Positions[symbol] = &domain.Position{
			Symbol:        symbol,
			ExactQuantity: dollars.Div(price),
		}
	}
	portfolio.Cash = decimal.Zero
	return nil
}

func (h BacktestHandler) exitMarket(portfolio *domain.Portfolio, priceMap map[string]decimal.Decimal, cost decimal.Decimal) error {
	proceeds := decimal.Zero
	for symbol, position := range portfolio.Positions {
		price, ok := priceMap[symbol]
		if !ok {
			return domain.DataIntegrityError{Err: fmt.Errorf("no price for %s at liquidation", symbol)}
		}
		proceeds = proceeds.Add(position.ExactQuantity.Mul(price))
	}
	portfolio.Positions = map[string]*domain.Position{}
	portfolio.Cash = proceeds.Sub(cost)
	return nil
}
