// Package stats folds fetch results into a running summary in a single
// streaming pass.
package stats

import (
	"time"

	"github.com/mncarlin/webperf/internal/webperf"
)

// Aggregator accumulates counts and latency extremes one result at a time.
// It carries no task identity, so results may arrive in any order. It is not
// safe for concurrent use; the orchestrator serializes all Add calls.
type Aggregator struct {
	total     int
	succeeded int
	failed    int
	sum       time.Duration
	min       time.Duration
	max       time.Duration

	finalized bool
	summary   webperf.Summary
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Add folds one result into the running state. Latency counts toward the
// distribution even on failure: it reflects real elapsed time.
func (a *Aggregator) Add(res webperf.Result) {
	a.total++
	if res.Failed() {
		a.failed++
	} else {
		a.succeeded++
	}

	a.sum += res.Latency
	if a.total == 1 {
		a.min = res.Latency
		a.max = res.Latency
		return
	}
	if res.Latency < a.min {
		a.min = res.Latency
	}
	if res.Latency > a.max {
		a.max = res.Latency
	}
}

// Finalize computes the summary once and returns the same value on repeat
// calls. An empty aggregation yields zeroed latency fields, never a division
// fault.
func (a *Aggregator) Finalize() webperf.Summary {
	if a.finalized {
		return a.summary
	}
	a.summary = webperf.Summary{
		Total:     a.total,
		Succeeded: a.succeeded,
		Failed:    a.failed,
	}
	if a.total > 0 {
		a.summary.AvgLatency = a.sum / time.Duration(a.total)
		a.summary.MinLatency = a.min
		a.summary.MaxLatency = a.max
	}
	a.finalized = true
	return a.summary
}
