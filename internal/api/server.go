// Package api exposes the HTTP interface for the analyzer service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mncarlin/webperf/internal/config"
	"github.com/mncarlin/webperf/internal/progress"
	"github.com/mncarlin/webperf/internal/webperf"
)

// BatchRunner executes a URL batch and reports per-URL results plus a
// summary. *runner.Runner satisfies this.
type BatchRunner interface {
	Run(ctx context.Context, urls []string, onProgress webperf.ProgressFunc) ([]webperf.Result, webperf.Summary)
}

// RunnerFactory builds a BatchRunner for one request's effective settings.
// It returns a *webperf.ConfigError when the settings are invalid.
type RunnerFactory func(cfg config.AnalyzerConfig) (BatchRunner, error)

// Server wires HTTP handlers to the batch runner and progress hub.
type Server struct {
	router     chi.Router
	newRunner  RunnerFactory
	emitter    progress.Emitter
	idGen      webperf.IDGenerator
	clock      webperf.Clock
	cfg        config.Config
	logger     *zap.Logger
	registry   prometheus.Gatherer
	maxBatch   int
	reqTimeout time.Duration
}

const (
	defaultMaxBatchSize   = 1000
	defaultRequestTimeout = 5 * time.Minute
)

// NewServer constructs a Server with middleware and routes.
func NewServer(
	newRunner RunnerFactory,
	emitter progress.Emitter,
	idGen webperf.IDGenerator,
	clock webperf.Clock,
	cfg config.Config,
	logger *zap.Logger,
	registry prometheus.Gatherer,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = prometheus.DefaultGatherer
	}
	s := &Server{
		newRunner:  newRunner,
		emitter:    emitter,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		maxBatch:   defaultMaxBatchSize,
		reqTimeout: defaultRequestTimeout,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

type analyzeRequest struct {
	URLs        []string `json:"urls"`
	Concurrency *int     `json:"concurrency"`
	TimeoutMS   *int64   `json:"timeout_ms"`
}

type analyzeResponse struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    summaryPayload  `json:"summary"`
	Results    []resultPayload `json:"results"`
}

type summaryPayload struct {
	Total        int     `json:"total"`
	Succeeded    int     `json:"succeeded"`
	Failed       int     `json:"failed"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	MinLatencyMS float64 `json:"min_latency_ms"`
	MaxLatencyMS float64 `json:"max_latency_ms"`
}

type resultPayload struct {
	URL       string  `json:"url"`
	Status    int     `json:"status,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
	ErrorKind string  `json:"error_kind,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// analyze runs a batch synchronously and returns the full result set. The
// HTTP status reflects request validity only; per-URL failures ride in the
// body as data.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", s.logger)
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls required", s.logger)
		return
	}
	if len(req.URLs) > s.maxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "batch too large", s.logger)
		return
	}

	runCfg := s.cfg.Analyzer
	if req.Concurrency != nil {
		runCfg.Concurrency = *req.Concurrency
	}
	if req.TimeoutMS != nil {
		runCfg.Timeout = time.Duration(*req.TimeoutMS) * time.Millisecond
	}

	batch, err := s.newRunner(runCfg)
	if err != nil {
		var cfgErr *webperf.ConfigError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, cfgErr.Error(), s.logger)
			return
		}
		s.logger.Error("runner construction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error", s.logger)
		return
	}

	rawID, err := s.idGen.NewID()
	if err != nil {
		s.logger.Error("run id generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error", s.logger)
		return
	}
	runID, err := uuid.Parse(rawID)
	if err != nil {
		runID = uuid.New()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.reqTimeout)
	defer cancel()

	startedAt := s.clock.Now()
	s.emit(progress.NewRunStart(runID, startedAt, len(req.URLs)))

	results, summary := batch.Run(ctx, req.URLs, func(evt webperf.ProgressEvent) {
		s.emit(progress.NewFetchDone(runID, s.clock.Now(), evt.Last, evt.Completed, evt.Total))
	})

	finishedAt := s.clock.Now()
	s.emit(progress.NewRunDone(runID, finishedAt, summary, finishedAt.Sub(startedAt)))

	writeJSON(w, http.StatusOK, analyzeResponse{
		RunID:      runID.String(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Summary:    toSummaryPayload(summary),
		Results:    toResultPayloads(results),
	}, s.logger)
}

func (s *Server) emit(evt progress.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(evt)
}

func toSummaryPayload(sum webperf.Summary) summaryPayload {
	return summaryPayload{
		Total:        sum.Total,
		Succeeded:    sum.Succeeded,
		Failed:       sum.Failed,
		AvgLatencyMS: durationMS(sum.AvgLatency),
		MinLatencyMS: durationMS(sum.MinLatency),
		MaxLatencyMS: durationMS(sum.MaxLatency),
	}
}

func toResultPayloads(results []webperf.Result) []resultPayload {
	out := make([]resultPayload, len(results))
	for i, res := range results {
		out[i] = resultPayload{
			URL:       res.URL,
			Status:    res.StatusCode,
			LatencyMS: durationMS(res.Latency),
			ErrorKind: string(res.Kind),
			Error:     res.Err,
		}
	}
	return out
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal server error", logger)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
