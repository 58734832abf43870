// Package sinks provides progress.Sink implementations for logs and
// Prometheus metrics.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/progress"
)

// LogSink emits structured logs for progress streams. Useful during
// development or when a metrics backend is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.Stage == progress.StageFetchDone {
			fields = append(fields,
				zap.String("url", evt.URL),
				zap.String("host", evt.Host),
				zap.Int("status", evt.StatusCode),
				zap.String("outcome", evt.Outcome()),
				zap.Duration("latency", evt.Dur),
			)
		}
		fields = append(fields,
			zap.Int("completed", evt.Completed),
			zap.Int("total", evt.Total),
		)
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
