package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/api"
	"github.com/mncarlin/webperf/internal/clock/system"
	"github.com/mncarlin/webperf/internal/config"
	"github.com/mncarlin/webperf/internal/fetch"
	iduuid "github.com/mncarlin/webperf/internal/id/uuid"
	"github.com/mncarlin/webperf/internal/pool"
	"github.com/mncarlin/webperf/internal/progress"
	"github.com/mncarlin/webperf/internal/progress/sinks"
	"github.com/mncarlin/webperf/internal/runner"
)

const shutdownGrace = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP analyzer service",
		Long: `Starts an HTTP server exposing POST /v1/analyze for synchronous batch
analysis, plus health and Prometheus metrics endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("init metrics sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	transport := pool.NewTransport(pool.Config{
		MaxIdleConns:    cfg.Pool.MaxIdleConns,
		MaxConnsPerHost: cfg.Pool.MaxConnsPerHost,
		DNSCacheTTL:     cfg.Pool.DNSCacheTTL,
	})

	factory := func(runCfg config.AnalyzerConfig) (api.BatchRunner, error) {
		fetcher := fetch.New(fetch.Config{
			UserAgent: runCfg.UserAgent,
			Timeout:   runCfg.Timeout,
		}, transport, logger)
		return runner.New(runCfg, fetcher, logger)
	}

	server := api.NewServer(
		factory,
		hub,
		iduuid.NewGenerator(),
		system.Clock{},
		cfg,
		logger,
		registry,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	return nil
}
