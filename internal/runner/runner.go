// Package runner orchestrates bounded-concurrency batch execution: one
// goroutine per URL gated by a slot limiter, with results streamed to an
// observer and folded into a summary as they complete.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/config"
	iduuid "github.com/mncarlin/webperf/internal/id/uuid"
	"github.com/mncarlin/webperf/internal/limiter"
	"github.com/mncarlin/webperf/internal/logging"
	"github.com/mncarlin/webperf/internal/ratelimit"
	"github.com/mncarlin/webperf/internal/stats"
	"github.com/mncarlin/webperf/internal/webperf"
)

// Runner executes URL batches. Configuration is validated at construction,
// so a Runner that exists can always run.
type Runner struct {
	cfg      config.AnalyzerConfig
	fetcher  webperf.Fetcher
	slots    *limiter.Slots
	hostRate *ratelimit.Limiter
	idGen    webperf.IDGenerator
	logger   *zap.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithRateLimiter replaces the per-host pacing limiter.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(r *Runner) { r.hostRate = l }
}

// WithIDGenerator replaces the run ID source.
func WithIDGenerator(gen webperf.IDGenerator) Option {
	return func(r *Runner) { r.idGen = gen }
}

// New constructs a Runner. It fails fast with a ConfigError before any work
// starts when concurrency or timeout are invalid.
func New(cfg config.AnalyzerConfig, fetcher webperf.Fetcher, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	slots, err := limiter.New(cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		slots:   slots,
		idGen:   iduuid.NewGenerator(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.hostRate == nil && cfg.PerHostQPS > 0 {
		r.hostRate = ratelimit.New(ratelimit.Config{PerHostQPS: cfg.PerHostQPS})
	}
	return r, nil
}

// Run fetches every URL in the batch and returns one result per URL plus the
// aggregated summary. The call returns only after every spawned task has
// reached a terminal state. Per-URL failures are data, never errors; if the
// context is cancelled, unfinished tasks yield KindCancelled results and the
// returned slice still has one entry per URL. Results are ordered by
// submission index; onProgress observes them in completion order.
func (r *Runner) Run(ctx context.Context, urls []string, onProgress webperf.ProgressFunc) ([]webperf.Result, webperf.Summary) {
	runID, err := r.idGen.NewID()
	if err != nil {
		r.logger.Warn("run id generation failed", zap.Error(err))
		runID = "unknown"
	}
	logger := logging.WithRun(r.logger, runID)
	logger.Info("batch started",
		zap.Int("urls", len(urls)),
		zap.Int("concurrency", r.slots.Capacity()),
		zap.Duration("timeout", r.cfg.Timeout),
	)

	col := &collector{
		results:    make([]webperf.Result, len(urls)),
		agg:        stats.New(),
		onProgress: onProgress,
		logger:     logger,
	}

	var wg sync.WaitGroup
	for i, raw := range urls {
		task := webperf.Task{URL: raw, Seq: i}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runTask(ctx, task, col)
		}()
	}
	wg.Wait()

	summary := col.agg.Finalize()
	logger.Info("batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("avg_latency", summary.AvgLatency),
	)
	return col.results, summary
}

// runTask holds its slot through the progress observation so the observer
// sees each completion before the next waiter is admitted.
func (r *Runner) runTask(ctx context.Context, task webperf.Task, col *collector) {
	start := time.Now()
	if err := r.slots.Acquire(ctx); err != nil {
		col.observe(cancelledResult(task, start, err))
		return
	}
	defer r.slots.Release()

	if r.hostRate != nil {
		if err := r.hostRate.Wait(ctx, task.URL); err != nil {
			col.observe(cancelledResult(task, start, err))
			return
		}
	}

	col.observe(r.fetcher.Fetch(ctx, task))
}

func cancelledResult(task webperf.Task, start time.Time, err error) webperf.Result {
	return webperf.Result{
		URL:     task.URL,
		Seq:     task.Seq,
		Latency: time.Since(start),
		Kind:    webperf.KindCancelled,
		Err:     err.Error(),
	}
}

// collector serializes result consumption: the slice write, the aggregator
// fold, and the progress callback all happen under one lock, so observers
// see strict completion order and the aggregator is never touched
// concurrently.
type collector struct {
	mu         sync.Mutex
	results    []webperf.Result
	agg        *stats.Aggregator
	completed  int
	onProgress webperf.ProgressFunc
	logger     *zap.Logger
}

func (c *collector) observe(res webperf.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[res.Seq] = res
	c.agg.Add(res)
	c.completed++
	c.report(webperf.ProgressEvent{
		Completed: c.completed,
		Total:     len(c.results),
		Last:      res,
	})
}

// report treats observer panics as non-fatal: the batch never aborts because
// a progress callback misbehaved.
func (c *collector) report(evt webperf.ProgressEvent) {
	if c.onProgress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Warn("progress observer panicked", zap.Any("panic", rec))
		}
	}()
	c.onProgress(evt)
}
