package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"frontierbacktest/api"
	"frontierbacktest/internal/app"
	"frontierbacktest/internal/config"
	"frontierbacktest/internal/domain"
	"frontierbacktest/internal/export"
	"frontierbacktest/internal/logger"
	"frontierbacktest/pkg/yahoofinance"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "frontierbacktest",
		Short: "mean-variance portfolio optimizer with a moving-average timing overlay",
	}

	var configPath string
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "solve the optimal portfolio and grid-search the MA overlay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(configPath)
		},
	}
	analyzeCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to YAML config")

	var port int
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "serve the analyze endpoint over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := api.ApiHandler{
				AnalyzeHandler: app.NewAnalyzeHandler(),
				Logger:         logger.New(),
			}
			return handler.StartApi(port)
		},
	}
	apiCmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port")

	root.AddCommand(analyzeCmd, apiCmd)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runAnalyze(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	zlog := logger.New()
	ctx := context.WithValue(context.Background(), logger.ContextKey, zlog)

	panel, err := loadPanel(cfg)
	if err != nil {
		return err
	}
	dates := panel.Dates()
	zlog.Infow("loaded price panel",
		"symbols", panel.Symbols(),
		"rows", panel.NumRows(),
		"start", dates[0].Format(time.DateOnly),
		"end", dates[len(dates)-1].Format(time.DateOnly),
	)

	handler := app.NewAnalyzeHandler()
	response, err := handler.Analyze(ctx, app.AnalyzeInput{
		Panel:             panel,
		InitialCapital:    cfg.InitialCapital,
		RiskFreeRate:      cfg.RiskFreeRate,
		LongOnly:          *cfg.LongOnly,
		NumFrontierPoints: cfg.NumFrontierPoints,
		StepSize:          cfg.Grid.StepSize,
		MinWindow:         cfg.Grid.MinWindow,
		MaxWindow:         cfg.Grid.MaxWindow,
		FastCap:           cfg.Grid.FastCap,
		TransactionCost:   cfg.TransactionCost,
		RankMetric:        cfg.Grid.RankMetric,
		Workers:           cfg.Grid.Workers,
	})
	if err != nil {
		return err
	}

	printSummary(response)

	if err := export.WriteReportCSV(cfg.OutputFile, response.Grid); err != nil {
		return err
	}
	zlog.Infow("wrote grid report", "path", cfg.OutputFile, "rows", len(response.Grid.Rows))

	return nil
}

func loadPanel(cfg *config.Config) (*domain.PricePanel, error) {
	if cfg.PanelFile != "" {
		return export.ReadPanelCSV(cfg.PanelFile)
	}
	client := yahoofinance.PriceClient{}
	// max available history, trimmed to the common window by the client
	start := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	return client.FetchPanel(cfg.Tickers, start, time.Now().UTC())
}

func printSummary(response *app.AnalyzeResponse) {
	fmt.Println("optimal portfolio (max sharpe):")
	for symbol, weight := range response.OptimalWeights {
		fmt.Printf("  %s: %.2f%%\n", symbol, weight*100)
	}
	fmt.Printf("  expected return %.2f%%, volatility %.2f%%\n",
		response.MaxSharpe.ExpectedReturn*100, response.MaxSharpe.Volatility*100)

	baseline := response.Baseline.Metrics
	fmt.Printf("buy-and-hold: CAGR %.2f%%, max drawdown %.2f%%, final value %.2f\n",
		baseline.CAGR*100, baseline.MaxDrawdown*100, baseline.FinalValue)

	if best := response.Grid.Best; best != nil {
		fmt.Printf("best MA pair (%d, %d): CAGR %.2f%%, max drawdown %.2f%%, final value %.2f, %d trades\n",
			best.Fast, best.Slow, best.CAGR*100, best.MaxDrawdown*100, best.FinalValue, best.Trades)
		fmt.Printf("outperformance vs buy-hold: %.2f%%\n", (best.CAGR-baseline.CAGR)*100)
	}
	fmt.Printf("grid cells: %d computed, %d skipped, %d errored\n",
		response.Grid.Computed, response.Grid.Skipped, response.Grid.Errored)
}
