package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mncarlin/webperf/internal/progress"
)

// PrometheusSink exports batch progress via Prometheus. It owns the
// collectors for run lifecycle and per-fetch outcomes.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsInFlight  prometheus.Gauge
	runWallTime   prometheus.Histogram

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webperf_runs_started_total",
			Help: "Total batch runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webperf_runs_completed_total",
			Help: "Total batch runs that have finished.",
		}),
		runsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webperf_runs_in_flight",
			Help: "Current number of running batches.",
		}),
		runWallTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webperf_run_wall_seconds",
			Help:    "Wall time per completed batch.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webperf_fetches_total",
			Help: "Fetch completions partitioned by outcome and status class.",
		}, []string{"outcome", "status_class"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webperf_fetch_duration_seconds",
			Help:    "Fetch latency partitioned by outcome.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"outcome"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsInFlight,
		s.runWallTime,
		s.fetches,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
			if s.tracker.start(evt.RunID) {
				s.runsInFlight.Inc()
			}
		case progress.StageRunDone:
			s.runsCompleted.Inc()
			if evt.Dur > 0 {
				s.runWallTime.Observe(evt.Dur.Seconds())
			}
			if s.tracker.complete(evt.RunID) {
				s.runsInFlight.Dec()
			}
		case progress.StageFetchDone:
			s.observeFetch(evt)
		}
	}
	return nil
}

func (s *PrometheusSink) observeFetch(evt progress.Event) {
	outcome := evt.Outcome()
	s.fetches.WithLabelValues(outcome, string(progress.ClassifyStatus(evt.StatusCode))).Inc()
	if evt.Dur > 0 {
		s.fetchDuration.WithLabelValues(outcome).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

// runTracker dedupes lifecycle events so the in-flight gauge stays accurate
// even if a stage is emitted twice.
type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
