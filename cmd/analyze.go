package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/fetch"
	"github.com/mncarlin/webperf/internal/pool"
	"github.com/mncarlin/webperf/internal/runner"
	"github.com/mncarlin/webperf/internal/urlfile"
	"github.com/mncarlin/webperf/internal/webperf"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		inputPath   string
		concurrency int
		timeout     time.Duration
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [urls...]",
		Short: "Runs one batch and prints per-URL latency plus a summary",
		Long: `Fetches the given URLs (or a batch loaded with --input) with bounded
concurrency, printing each result as it completes followed by aggregate
latency statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			urls := args
			if inputPath != "" {
				loaded, err := urlfile.Load(inputPath)
				if err != nil {
					return err
				}
				urls = append(loaded, urls...)
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given: pass them as arguments or via --input")
			}

			if concurrency > 0 {
				cfg.Analyzer.Concurrency = concurrency
			}
			if timeout > 0 {
				cfg.Analyzer.Timeout = timeout
			}

			transport := pool.NewTransport(pool.Config{
				MaxIdleConns:    cfg.Pool.MaxIdleConns,
				MaxConnsPerHost: cfg.Pool.MaxConnsPerHost,
				DNSCacheTTL:     cfg.Pool.DNSCacheTTL,
			})
			fetcher := fetch.New(fetch.Config{
				UserAgent: cfg.Analyzer.UserAgent,
				Timeout:   cfg.Analyzer.Timeout,
			}, transport, logger)

			r, err := runner.New(cfg.Analyzer, fetcher, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var onProgress webperf.ProgressFunc
			if !quiet {
				onProgress = func(evt webperf.ProgressEvent) {
					printResult(out, evt)
				}
			}

			started := time.Now()
			results, summary := r.Run(ctx, urls, onProgress)
			printSummary(out, summary, time.Since(started))

			logger.Info("analyze finished",
				zap.Int("urls", len(results)),
				zap.Int("failed", summary.Failed),
			)
			if ctx.Err() != nil {
				return fmt.Errorf("batch interrupted: %w", ctx.Err())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON or CSV file holding the URL batch")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "max concurrent fetches (overrides config)")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "per-fetch timeout (overrides config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-URL output")
	return cmd
}

func printResult(out io.Writer, evt webperf.ProgressEvent) {
	res := evt.Last
	status := "ERR"
	if !res.Failed() {
		status = fmt.Sprintf("%d", res.StatusCode)
	}
	line := fmt.Sprintf("[%d/%d] %-4s %8.1fms  %s", evt.Completed, evt.Total, status,
		float64(res.Latency)/float64(time.Millisecond), res.URL)
	if res.Failed() {
		line += fmt.Sprintf("  (%s: %s)", res.Kind, res.Err)
	}
	fmt.Fprintln(out, line)
}

func printSummary(out io.Writer, sum webperf.Summary, wall time.Duration) {
	fmt.Fprintf(out, "\n%d URLs in %.2fs: %d succeeded, %d failed\n",
		sum.Total, wall.Seconds(), sum.Succeeded, sum.Failed)
	if sum.Total > 0 {
		fmt.Fprintf(out, "latency avg=%.1fms min=%.1fms max=%.1fms\n",
			float64(sum.AvgLatency)/float64(time.Millisecond),
			float64(sum.MinLatency)/float64(time.Millisecond),
			float64(sum.MaxLatency)/float64(time.Millisecond),
		)
	}
}
