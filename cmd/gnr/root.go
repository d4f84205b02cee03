package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/busyhour/internal/config"
	"github.com/rewired-gh/busyhour/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "gnr",
	Short: "gnr estimates the busy hour of a telephone network",
	Long: `Estimate the busy-hour load (GNR) of a telephone network from measured
per-minute call intensity and average call duration.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (optional)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(algorithmsCmd)
}

// loadConfig merges the config file, environment and the flags of cmd, then
// initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configFile != "" {
		logger.Debug("Configuration loaded from %s", configFile)
	}
	return cfg, nil
}
