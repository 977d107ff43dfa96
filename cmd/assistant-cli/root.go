package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"versailles-assistant/internal/bootstrap"
	"versailles-assistant/internal/common/config"
	"versailles-assistant/internal/common/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "assistant-cli",
	Short:         "Query the Versailles assistant from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: configs/config.yaml lookup)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(askCmd, routeCmd, selectCmd, planCmd, registryCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// buildApp connects to the configured stores once, without retries.
func buildApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewZapAdapter(logger.NewWithOutput(logLevel, "console", "stderr"))
	return bootstrap.Build(ctx, cfg, log, nil, bootstrap.Options{ConnectAttempts: 1})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
