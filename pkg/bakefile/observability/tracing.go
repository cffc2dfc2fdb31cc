package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the bakefile tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("bakefile")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartGenerateSpan starts a span for an entire generation run.
	StartGenerateSpan(ctx context.Context, bakefile, formatName, runID string) (context.Context, trace.Span)

	// StartExpandSpan starts a span for one expression expansion.
	// The expand span should be a child of the generate span.
	StartExpandSpan(ctx context.Context, variable string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartGenerateSpan starts a span for an entire generation run.
func (m *otelSpanManager) StartGenerateSpan(ctx context.Context, bakefile, formatName, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "bakefile.generate",
		trace.WithAttributes(
			attribute.String("bakefile", bakefile),
			attribute.String("format", formatName),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartExpandSpan starts a span for one expression expansion.
func (m *otelSpanManager) StartExpandSpan(ctx context.Context, variable string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "bakefile.expand",
		trace.WithAttributes(
			attribute.String("variable", variable),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
