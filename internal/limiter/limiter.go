// Package limiter bounds the number of fetches in flight with a counting
// semaphore.
package limiter

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/mncarlin/webperf/internal/webperf"
)

// Slots is a fixed-capacity admission gate. Capacity never changes for the
// lifetime of a batch; every Acquire must be paired with exactly one Release
// on all exit paths, cancellation included.
type Slots struct {
	sem      *semaphore.Weighted
	capacity int
}

// New creates a Slots gate. Capacity must be positive.
func New(capacity int) (*Slots, error) {
	if capacity <= 0 {
		return nil, &webperf.ConfigError{Field: "concurrency", Reason: "must be > 0"}
	}
	return &Slots{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}, nil
}

// Acquire blocks until a slot is free or the context ends. Waiters are
// admitted eventually; no fairness order is promised beyond that.
func (s *Slots) Acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	return nil
}

// Release returns a slot acquired with Acquire.
func (s *Slots) Release() {
	s.sem.Release(1)
}

// Capacity reports the configured ceiling.
func (s *Slots) Capacity() int {
	return s.capacity
}
