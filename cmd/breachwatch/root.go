package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"breachwatch/internal/config"
	"breachwatch/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "breachwatch",
	Short: "Threat-intel aggregator for password breaches, IP reputation and dark-web exposure",
	Long: `breachwatch merges answers from breach databases, IP reputation services
and leak indexes into one cached verdict per query, and raises alerts on
positive results.`,
	SilenceUsage: true,
}

var (
	configPath string
	debugMode  bool
)

// Execute runs the root command.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("BW_CONFIG"), "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
}

// loadConfig reads the config and builds a logger writing to w.
func loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, logging.NewWithWriter(cfg.Logging, w), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
