// Package cmd defines the CLI commands for the webperf executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/config"
	"github.com/mncarlin/webperf/internal/logging"
)

var (
	cfgFile string
	devMode bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webperf",
		Short: "Measures response latency and status across URL batches.",
		Long: `webperf fetches batches of URLs with bounded concurrency and reports
per-URL latency and status plus aggregate statistics. Run it once against a
URL file with 'analyze', or keep it running as an HTTP service with 'serve'.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	cmd.PersistentFlags().BoolVar(&devMode, "dev", false, "enable development logging")

	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// bootstrap loads configuration and builds the process logger. Subcommands
// call it at the top of their RunE.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(devMode || cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
