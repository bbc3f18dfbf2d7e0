package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"PriceSim/internal/di"
	"PriceSim/pkg/config"
	"PriceSim/pkg/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pricesim",
	Short: "Rolling-history price simulator",
	Long: `pricesim collects spot quotes into a bounded rolling history per asset,
estimates drift, volatility and trend from it, and publishes a reproducible
synthetic price path for every tracked asset.

Commands:
  collect    run one ingestion cycle
  simulate   run one simulation cycle and publish the artifact
  serve      schedule both cycles and serve the read API
  readiness  print the history readiness signal`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
}

// withApp loads the configuration, wires the application and releases its
// resources after fn returns.
func withApp(ctx context.Context, fn func(context.Context, *server.App) error) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()
	return fn(ctx, app)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
