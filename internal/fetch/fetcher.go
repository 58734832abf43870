// Package fetch implements the single-URL fetch worker using gocolly.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/pool"
	"github.com/mncarlin/webperf/internal/webperf"
)

// Config controls fetch behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

const defaultTimeout = 10 * time.Second

// Fetcher implements webperf.Fetcher using a Colly collector over a shared
// pooled transport. Each Fetch performs exactly one GET; network faults are
// converted into the result's ErrorKind, never returned as errors.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher. A nil transport falls back to a default shared pool.
func New(cfg Config, transport http.RoundTripper, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if transport == nil {
		transport = pool.NewTransport(pool.Config{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes a single HTTP GET and measures wall-clock latency from
// dispatch to completion. Any received status code, including 4xx/5xx, is a
// successful outcome; the error kind is reserved for transport faults.
func (f *Fetcher) Fetch(ctx context.Context, task webperf.Task) webperf.Result {
	res := webperf.Result{URL: task.URL, Seq: task.Seq}

	var status int
	collector := f.newCollector()
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(task.URL)
	}()

	select {
	case <-ctx.Done():
		res.Latency = time.Since(start)
		res.Kind = webperf.KindCancelled
		res.Err = ctx.Err().Error()
	case err := <-done:
		res.Latency = time.Since(start)
		switch {
		case err != nil:
			res.Kind = Classify(err)
			res.Err = err.Error()
		case status == 0:
			res.Kind = webperf.KindProtocolError
			res.Err = "no HTTP response received"
		default:
			res.StatusCode = status
		}
	}

	if res.Failed() {
		f.logger.Debug("fetch failed",
			zap.String("url", task.URL),
			zap.String("kind", string(res.Kind)),
			zap.Duration("latency", res.Latency),
		)
	} else {
		f.logger.Debug("fetch completed",
			zap.String("url", task.URL),
			zap.Int("status", res.StatusCode),
			zap.Duration("latency", res.Latency),
		)
	}
	return res
}

// newCollector clones the base collector per request. Clones share the
// pooled transport; revisits stay allowed because a batch may list the same
// URL more than once.
func (f *Fetcher) newCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)
	return collector
}
