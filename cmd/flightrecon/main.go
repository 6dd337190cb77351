package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "flightrecon",
	Short: "Clean and reconcile aircraft registry and flight operations data",
	Long: `flightrecon cleans a global aircraft registry and a historical flight log,
derives block time metrics and delay status, and joins the two datasets on
tail number.

Run once with "flightrecon run", or serve the results over HTTP with
"flightrecon serve".`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to configuration file (optional - will search in configs/ and root directory)")
	rootCmd.AddCommand(runCmd, serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the logger
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating logger: %w", err)
	}
	return cfg, log, nil
}
