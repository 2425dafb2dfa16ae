package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FinCast/internal/di"
	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

var (
	configPath string
	horizon    int

	rootCmd = &cobra.Command{
		Use:           "fincast",
		Short:         "LSTM price forecasts and portfolio valuation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, kafka intake, quote collector and warmup scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	forecastCmd = &cobra.Command{
		Use:   "forecast SYMBOL",
		Short: "Print the cached or freshly trained forecast for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runForecast,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze PORTFOLIO_ID",
		Short: "Print the valuation of a stored portfolio",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path (yaml or toml)")
	forecastCmd.Flags().IntVar(&horizon, "horizon", 0, "days to forecast (0 uses forecast.default_horizon)")

	rootCmd.AddCommand(serveCmd, forecastCmd, analyzeCmd)
}

func buildApp() (*server.App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	return app.Run()
}

func runForecast(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := app.Forecasts().GetForecast(ctx, args[0], horizon)
	if err != nil {
		return err
	}
	return printJSON(cmd, p)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Analyzer().Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
