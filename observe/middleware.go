package observe

import (
	"net/http"
	"time"
)

// Middleware wraps HTTP handlers with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a handler safe for concurrent use.
//   - Context: the span context is propagated to the wrapped handler.
//   - Errors: handler responses are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Wrap wraps an http.Handler with tracing, metrics, and logging for the
// given route.
func (m *Middleware) Wrap(meta RouteMeta, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.StartSpan(r.Context(), meta)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(ctx))

		duration := time.Since(start)

		m.tracer.EndSpan(span, nil)
		m.metrics.RecordRequest(ctx, meta, rec.status, duration)

		routeLogger := m.logger.WithComponent("http")
		fields := []Field{
			{Key: "op", Value: meta.Name},
			{Key: "method", Value: r.Method},
			{Key: "path", Value: r.URL.Path},
			{Key: "status", Value: rec.status},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if rec.status >= 500 {
			routeLogger.Error(ctx, "request failed", fields...)
		} else {
			routeLogger.Info(ctx, "request handled", fields...)
		}
	})
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
