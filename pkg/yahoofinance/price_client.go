package yahoofinance

import (
	"fmt"
	"frontierbacktest/internal/domain"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// PriceClient pulls daily adjusted closes from Yahoo Finance and shapes
// them into a PricePanel. It lives entirely at the input boundary; the
// core never calls it.
type PriceClient struct{}

// FetchPanel downloads bars for every symbol and aligns them to the
// common availability window: the panel starts at the latest first
// trading date across symbols and only keeps dates every symbol has.
func (c PriceClient) FetchPanel(symbols []string, start, end time.Time) (*domain.PricePanel, error) {
	if len(symbols) == 0 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("no symbols requested")}
	}

	bySymbol := map[string]map[time.Time]float64{}
	for _, symbol := range symbols {
		prices, err := c.fetchSymbol(symbol, start, end)
		if err != nil {
			return nil, err
		}
		if len(prices) == 0 {
			return nil, domain.InsufficientDataError{Err: fmt.Errorf("no bars returned for %s", symbol)}
		}
		bySymbol[symbol] = prices
	}

	// intersect trading dates across symbols
	dateCounts := map[time.Time]int{}
	for _, prices := range bySymbol {
		for date := range prices {
			dateCounts[date]++
		}
	}
	dates := []time.Time{}
	for date, count := range dateCounts {
		if count == len(symbols) {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	columns := map[string][]float64{}
	for symbol, prices := range bySymbol {
		column := make([]float64, 0, len(dates))
		for _, date := range dates {
			column = append(column, prices[date])
		}
		columns[symbol] = column
	}

	return domain.NewPricePanel(dates, columns)
}

func (c PriceClient) fetchSymbol(symbol string, start, end time.Time) (map[time.Time]float64, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	prices := map[time.Time]float64{}
	for iter.Next() {
		bar := iter.Bar()
		day := time.Unix(int64(bar.Timestamp), 0).UTC().Truncate(24 * time.Hour)
		prices[day] = bar.AdjClose.InexactFloat64()
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}

	return prices, nil
}
