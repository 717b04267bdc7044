package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records a non-forced lookup and whether it hit.
	RecordLookup(ctx context.Context, hit bool)

	// RecordCompute records one full recomputation with its duration
	// and error status.
	RecordCompute(ctx context.Context, duration time.Duration, err error)
}

// otelMetrics is the OpenTelemetry-backed Metrics implementation.
type otelMetrics struct {
	lookups      metric.Int64Counter
	computes     metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewOTelMetrics creates Metrics backed by the given meter.
func NewOTelMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"shakemap.cache.lookups",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	computes, err := meter.Int64Counter(
		"shakemap.cache.computations",
		metric.WithDescription("Full overlay recomputations"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"shakemap.cache.compute.duration_ms",
		metric.WithDescription("Overlay recomputation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		lookups:      lookups,
		computes:     computes,
		durationHist: durationHist,
	}, nil
}

func (m *otelMetrics) RecordLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *otelMetrics) RecordCompute(ctx context.Context, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.Bool("error", err != nil))
	m.computes.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// noopMetrics is the default when no meter is wired.
type noopMetrics struct{}

func (noopMetrics) RecordLookup(ctx context.Context, hit bool)                          {}
func (noopMetrics) RecordCompute(ctx context.Context, duration time.Duration, err error) {}
