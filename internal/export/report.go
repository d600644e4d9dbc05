package export

import (
	"fmt"
	"frontierbacktest/internal/app"
	"frontierbacktest/internal/domain"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
)

// WriteReportCSV dumps the ranked grid rows to a CSV file. This is the
// tabular export boundary; the core never touches the filesystem.
func WriteReportCSV(path string, report *app.GridSearchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create report file %s: %w", path, err)
	}
	defer f.Close()

	rows := report.Rows
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("failed to write report csv: %w", err)
	}
	return nil
}

// panelRow is the long-format price record: one (date, symbol, price)
// per line.
type panelRow struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol"`
	Price  float64 `csv:"price"`
}

// ReadPanelCSV loads a long-format price CSV into a panel. Every symbol
// must appear on every date; the panel constructor enforces alignment
// and rejects undefined values.
func ReadPanelCSV(path string) (*domain.PricePanel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open panel file %s: %w", path, err)
	}
	defer f.Close()

	rows := []panelRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse panel csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.InputValidationError{Err: fmt.Errorf("panel csv %s is empty", path)}
	}

	byDate := map[time.Time]map[string]float64{}
	symbols := map[string]bool{}
	for _, row := range rows {
		date, err := time.Parse(time.DateOnly, row.Date)
		if err != nil {
			return nil, domain.InputValidationError{Err: fmt.Errorf("bad date %q in panel csv: %w", row.Date, err)}
		}
		if byDate[date] == nil {
			byDate[date] = map[string]float64{}
		}
		byDate[date][row.Symbol] = row.Price
		symbols[row.Symbol] = true
	}

	dates := make([]time.Time, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	columns := map[string][]float64{}
	for symbol := range symbols {
		column := make([]float64, 0, len(dates))
		for _, date := range dates {
			price, ok := byDate[date][symbol]
			if !ok {
				return nil, domain.DataIntegrityError{Err: fmt.Errorf("panel csv missing %s on %s", symbol, date.Format(time.DateOnly))}
			}
			column = append(column, price)
		}
		columns[symbol] = column
	}

	return domain.NewPricePanel(dates, columns)
}
