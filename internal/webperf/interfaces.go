package webperf

import (
	"context"
	"time"
)

// Fetcher performs exactly one HTTP GET for a task. Implementations never
// return an error for network-level faults; every failure mode is folded
// into the Result as an ErrorKind so one bad URL cannot abort a batch.
type Fetcher interface {
	Fetch(ctx context.Context, task Task) Result
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
