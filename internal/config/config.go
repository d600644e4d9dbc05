package config

import (
	"fmt"
	"frontierbacktest/internal/domain"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML). One immutable
// bundle collected up front and threaded through every call.
type Config struct {
	// assets to fetch when no CSV panel is supplied
	Tickers []string `yaml:"tickers"`
	// optional CSV panel path; takes precedence over fetching
	PanelFile string `yaml:"panel_file"`
	// where the grid report CSV lands
	OutputFile string `yaml:"output_file"`

	InitialCapital    float64 `yaml:"initial_capital"`
	RiskFreeRate      float64 `yaml:"risk_free_rate"`
	LongOnly          *bool   `yaml:"long_only"`
	NumFrontierPoints int     `yaml:"num_frontier_points"`
	TransactionCost   float64 `yaml:"transaction_cost"`

	Grid GridConfig `yaml:"grid"`
}

type GridConfig struct {
	StepSize  int `yaml:"step_size"`
	MinWindow int `yaml:"min_window"`
	MaxWindow int `yaml:"max_window"`
	// caps the fast axis separately (the classic 50/200 split)
	FastCap int `yaml:"fast_cap"`
	// rank metric name or expression over
	// {cagr, volatility, sharpe, maxDrawdown, finalValue}
	RankMetric string `yaml:"rank_metric"`
	Workers    int    `yaml:"workers"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("could not parse config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.InitialCapital == 0 {
		c.InitialCapital = 10000
	}
	if c.NumFrontierPoints == 0 {
		c.NumFrontierPoints = 50
	}
	if c.Grid.StepSize == 0 {
		c.Grid.StepSize = 10
	}
	if c.Grid.MinWindow == 0 {
		// sweep starts at the step size unless told otherwise
		c.Grid.MinWindow = c.Grid.StepSize
	}
	if c.Grid.MaxWindow == 0 {
		c.Grid.MaxWindow = 200
	}
	if c.Grid.FastCap == 0 {
		c.Grid.FastCap = 50
	}
	if c.Grid.RankMetric == "" {
		c.Grid.RankMetric = "cagr"
	}
	if c.OutputFile == "" {
		c.OutputFile = "ma_optimization_results.csv"
	}
	if c.LongOnly == nil {
		longOnly := true
		c.LongOnly = &longOnly
	}
}

func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return domain.InputValidationError{Err: fmt.Errorf("initial_capital must be positive, got %f", c.InitialCapital)}
	}
	if c.TransactionCost < 0 {
		return domain.InputValidationError{Err: fmt.Errorf("transaction_cost must be >= 0, got %f", c.TransactionCost)}
	}
	if c.Grid.StepSize < 1 {
		return domain.InputValidationError{Err: fmt.Errorf("grid.step_size must be >= 1, got %d", c.Grid.StepSize)}
	}
	if c.Grid.MinWindow < 1 || c.Grid.MaxWindow < c.Grid.MinWindow {
		return domain.InputValidationError{Err: fmt.Errorf("invalid grid window bounds [%d, %d]", c.Grid.MinWindow, c.Grid.MaxWindow)}
	}
	if c.NumFrontierPoints < 1 {
		return domain.InputValidationError{Err: fmt.Errorf("num_frontier_points must be >= 1, got %d", c.NumFrontierPoints)}
	}
	if c.PanelFile == "" && len(c.Tickers) == 0 {
		return domain.InputValidationError{Err: fmt.Errorf("either tickers or panel_file is required")}
	}
	return nil
}
