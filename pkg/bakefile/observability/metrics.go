package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records bakefile metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordExpansion records one expression expansion with its duration
	// and error status.
	RecordExpansion(ctx context.Context, duration time.Duration, err error)

	// RecordGeneration records a generation run completion.
	RecordGeneration(ctx context.Context, formatName string, success bool, duration time.Duration)

	// RecordMalformed records a malformed-expression failure.
	RecordMalformed(ctx context.Context)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	expansions       metric.Int64Counter
	expansionLatency metric.Float64Histogram
	expansionErrors  metric.Int64Counter
	generations      metric.Int64Counter
	generateLatency  metric.Float64Histogram
	malformed        metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("bakefile")

	expansions, err := meter.Int64Counter("bakefile.expand.count",
		metric.WithDescription("Number of expression expansions"),
	)
	if err != nil {
		return nil, err
	}

	expansionLatency, err := meter.Float64Histogram("bakefile.expand.latency_us",
		metric.WithDescription("Expression expansion latency in microseconds"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return nil, err
	}

	expansionErrors, err := meter.Int64Counter("bakefile.expand.errors",
		metric.WithDescription("Number of failed expansions"),
	)
	if err != nil {
		return nil, err
	}

	generations, err := meter.Int64Counter("bakefile.generate.runs",
		metric.WithDescription("Number of generation runs"),
	)
	if err != nil {
		return nil, err
	}

	generateLatency, err := meter.Float64Histogram("bakefile.generate.latency_ms",
		metric.WithDescription("Generation run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	malformed, err := meter.Int64Counter("bakefile.expand.malformed",
		metric.WithDescription("Number of malformed-expression failures"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		expansions:       expansions,
		expansionLatency: expansionLatency,
		expansionErrors:  expansionErrors,
		generations:      generations,
		generateLatency:  generateLatency,
		malformed:        malformed,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordExpansion records one expression expansion.
func (m *otelMetrics) RecordExpansion(ctx context.Context, duration time.Duration, err error) {
	m.expansions.Add(ctx, 1)
	m.expansionLatency.Record(ctx, float64(duration.Microseconds()))
	if err != nil {
		m.expansionErrors.Add(ctx, 1)
	}
}

// RecordGeneration records a generation run.
func (m *otelMetrics) RecordGeneration(ctx context.Context, formatName string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("format", formatName),
		attribute.Bool("success", success),
	}
	m.generations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.generateLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordMalformed records a malformed-expression failure.
func (m *otelMetrics) RecordMalformed(ctx context.Context) {
	m.malformed.Add(ctx, 1)
}
