// Package webperf defines core types shared across subsystems.
package webperf

import (
	"fmt"
	"time"
)

// ErrorKind classifies a failed fetch. The set is closed; every network
// fault a worker can hit maps to exactly one kind.
type ErrorKind string

// Error kinds recorded in fetch results.
const (
	KindTimeout           ErrorKind = "timeout"
	KindConnectionFailure ErrorKind = "connection_failure"
	KindProtocolError     ErrorKind = "protocol_error"
	KindCancelled         ErrorKind = "cancelled"
	KindUnknown           ErrorKind = "unknown"
)

// Task identifies one unit of work in a batch. Seq preserves submission
// order so results can be resequenced after concurrent completion.
type Task struct {
	URL string
	Seq int
}

// Result is the outcome of fetching a single URL. Exactly one of StatusCode
// or Kind is set: any completed HTTP exchange counts as a success regardless
// of status code, because the analyzer measures reachability and latency,
// not application-level health. Latency is wall-clock time from dispatch to
// completion and is recorded on every path, including failures.
type Result struct {
	URL        string        `json:"url"`
	Seq        int           `json:"-"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency"`
	Kind       ErrorKind     `json:"error_kind,omitempty"`
	Err        string        `json:"error,omitempty"`
}

// Failed reports whether the fetch ended in a network-level fault.
func (r Result) Failed() bool {
	return r.Kind != ""
}

// Summary aggregates a batch of results. Succeeded+Failed always equals
// Total; latency fields are zero when Total is zero.
type Summary struct {
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	AvgLatency time.Duration `json:"avg_latency"`
	MinLatency time.Duration `json:"min_latency"`
	MaxLatency time.Duration `json:"max_latency"`
}

// ProgressEvent is handed to the progress observer once per completed fetch.
// It is ephemeral; observers must not retain it beyond the callback.
type ProgressEvent struct {
	Completed int
	Total     int
	Last      Result
}

// ProgressFunc observes batch progress. It is invoked synchronously in
// completion order, exactly once per result, before the finishing worker
// releases its concurrency slot. It must not block materially; panics are
// recovered and logged, never escalated.
type ProgressFunc func(ProgressEvent)

// ConfigError reports invalid analyzer configuration. It is returned before
// any work is scheduled.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}
