package domain

import (
	"fmt"
	"frontierbacktest/internal/util"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PricePanel is an aligned date x ticker matrix of daily closing prices.
// Every symbol has a price on every date, dates are strictly increasing,
// and the panel is expected to start at the common availability window
// across its symbols (the caller aligns before construction).
type PricePanel struct {
	dates   []time.Time
	symbols []string
	// symbol -> column of prices, one per date
	columns map[string][]decimal.Decimal
}

// NewPricePanel validates and constructs a panel from raw float columns.
// Structural problems (row counts, date ordering) are InputValidationError;
// NaN, Inf or non-positive prices are DataIntegrityError.
func NewPricePanel(dates []time.Time, columns map[string][]float64) (*PricePanel, error) {
	if len(dates) < 2 {
		return nil, InsufficientDataError{fmt.Errorf("panel needs at least 2 rows, got %d", len(dates))}
	}
	if len(columns) == 0 {
		return nil, InputValidationError{fmt.Errorf("panel needs at least 1 symbol")}
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, InputValidationError{fmt.Errorf("panel dates must be strictly increasing: %v >= %v", dates[i-1], dates[i])}
		}
	}

	symbols := make([]string, 0, len(columns))
	converted := map[string][]decimal.Decimal{}
	for symbol, prices := range columns {
		if len(prices) != len(dates) {
			return nil, InputValidationError{fmt.Errorf("%s has %d prices but panel has %d dates", symbol, len(prices), len(dates))}
		}
		column := make([]decimal.Decimal, 0, len(prices))
		for i, price := range prices {
			if math.IsNaN(price) || math.IsInf(price, 0) {
				return nil, DataIntegrityError{fmt.Errorf("%s has undefined price on %s", symbol, dates[i].Format(time.DateOnly))}
			}
			if price <= 0 {
				return nil, DataIntegrityError{fmt.Errorf("%s has non-positive price %f on %s", symbol, price, dates[i].Format(time.DateOnly))}
			}
			column = append(column, decimal.NewFromFloat(price))
		}
		converted[symbol] = column
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	return &PricePanel{
		dates:   append([]time.Time{}, dates...),
		symbols: symbols,
		columns: converted,
	}, nil
}

func (p PricePanel) NumRows() int {
	return len(p.dates)
}

func (p PricePanel) Dates() []time.Time {
	return p.dates
}

func (p PricePanel) Symbols() []string {
	return p.symbols
}

// Column returns the full price series for one symbol.
func (p PricePanel) Column(symbol string) ([]decimal.Decimal, error) {
	column, ok := p.columns[symbol]
	if !ok {
		return nil, InputValidationError{fmt.Errorf("panel does not have symbol %s", symbol)}
	}
	return column, nil
}

// PriceMapAt returns symbol -> price for one row, in the shape
// Portfolio.TotalValue consumes.
func (p PricePanel) PriceMapAt(row int) map[string]decimal.Decimal {
	priceMap := map[string]decimal.Decimal{}
	for _, symbol := range p.symbols {
		priceMap[symbol] = p.columns[symbol][row]
	}
	return priceMap
}

// SliceRange returns the sub-panel covering [start, end] inclusive.
func (p PricePanel) SliceRange(start, end time.Time) (*PricePanel, error) {
	if end.Before(start) {
		return nil, InputValidationError{fmt.Errorf("slice end %v before start %v", end, start)}
	}
	lo := sort.Search(len(p.dates), func(i int) bool {
		return util.DateLte(start, p.dates[i])
	})
	hi := sort.Search(len(p.dates), func(i int) bool {
		return !util.DateLte(p.dates[i], end)
	})
	if hi-lo < 2 {
		return nil, InsufficientDataError{fmt.Errorf("slice [%v, %v] covers %d rows, need at least 2", start, end, hi-lo)}
	}

	columns := map[string][]decimal.Decimal{}
	for symbol, column := range p.columns {
		columns[symbol] = column[lo:hi]
	}
	return &PricePanel{
		dates:   p.dates[lo:hi],
		symbols: p.symbols,
		columns: columns,
	}, nil
}

// WeightedValueSeries collapses the panel into a single portfolio value
// series, sum over symbols of weight * price, one value per date. The
// moving-average signal is computed on this series.
func (p PricePanel) WeightedValueSeries(weights WeightVector) ([]float64, error) {
	for symbol := range weights {
		if _, ok := p.columns[symbol]; !ok {
			return nil, InputValidationError{fmt.Errorf("weight vector references %s which panel does not have", symbol)}
		}
	}

	values := make([]float64, len(p.dates))
	for symbol, weight := range weights {
		column := p.columns[symbol]
		w := decimal.NewFromFloat(weight)
		for i := range values {
			values[i] += w.Mul(column[i]).InexactFloat64()
		}
	}
	return values, nil
}
