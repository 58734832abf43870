// Package progress defines the event stream emitted while a URL batch runs
// and the Hub that fans those events out to sinks.
package progress

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/mncarlin/webperf/internal/webperf"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageRunStart  Stage = "RUN_START"
	StageFetchDone Stage = "FETCH_DONE"
	StageRunDone   Stage = "RUN_DONE"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for fetch completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusNone  StatusClass = "none"
	StatusOther StatusClass = "other"
)

// Event captures one milestone in a batch run.
type Event struct {
	// RunID identifies the batch run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage marks which milestone occurred.
	Stage Stage
	// URL is the fetched URL for FETCH_DONE events.
	URL string
	// Host scopes fetch events to a hostname label.
	Host string
	// StatusCode is the HTTP status for fetch completions, 0 when none arrived.
	StatusCode int
	// Kind carries the failure classification, empty for successes.
	Kind webperf.ErrorKind
	// Dur is the measured latency for fetches or the wall time for RUN_DONE.
	Dur time.Duration
	// Completed and Total track batch position at emission time.
	Completed int
	Total     int
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageFetchDone:
		if e.URL == "" {
			return errors.New("fetch done requires url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Completed > e.Total {
		return errors.New("completed exceeds total")
	}
	return nil
}

// Outcome labels the fetch result for metrics: "success" for any HTTP
// response, otherwise the failure kind.
func (e Event) Outcome() string {
	if e.Kind == "" {
		return "success"
	}
	return string(e.Kind)
}

// NewRunStart builds the event announcing a batch of the given size.
func NewRunStart(runID uuid.UUID, ts time.Time, total int) Event {
	return Event{RunID: UUIDToBytes(runID), TS: ts, Stage: StageRunStart, Total: total}
}

// NewFetchDone builds the event for a completed fetch.
func NewFetchDone(runID uuid.UUID, ts time.Time, res webperf.Result, completed, total int) Event {
	return Event{
		RunID:      UUIDToBytes(runID),
		TS:         ts,
		Stage:      StageFetchDone,
		URL:        res.URL,
		Host:       hostOf(res.URL),
		StatusCode: res.StatusCode,
		Kind:       res.Kind,
		Dur:        res.Latency,
		Completed:  completed,
		Total:      total,
	}
}

// NewRunDone builds the event closing out a batch.
func NewRunDone(runID uuid.UUID, ts time.Time, summary webperf.Summary, wall time.Duration) Event {
	return Event{
		RunID:     UUIDToBytes(runID),
		TS:        ts,
		Stage:     StageRunDone,
		Dur:       wall,
		Completed: summary.Total,
		Total:     summary.Total,
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// RunUUID converts the binary run ID to uuid.UUID for logging.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ClassifyStatus groups HTTP status codes for fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code == 0:
		return StatusNone
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
