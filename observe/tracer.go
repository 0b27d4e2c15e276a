package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpMeta identifies one protected operation for telemetry purposes.
type OpMeta struct {
	Resource  string // Named resource guarding the call (breaker partition, required)
	Operation string // Logical operation name, e.g. "render.preview" (optional)
	Backend   string // Concrete backend identity, e.g. "comfyui" (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: resilience.exec.<resource>.<operation> or resilience.exec.<resource>
func (m OpMeta) SpanName() string {
	if m.Operation != "" {
		return "resilience.exec." + m.Resource + "." + m.Operation
	}
	return "resilience.exec." + m.Resource
}

// Tracer wraps OpenTelemetry tracing with per-call span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a protected call.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("resilience.resource", meta.Resource),
		attribute.Bool("resilience.error", false), // Updated in EndSpan on error
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("resilience.operation", meta.Operation))
	}
	if meta.Backend != "" {
		attrs = append(attrs, attribute.String("resilience.backend", meta.Backend))
	}

	return t.tracer.Start(ctx, meta.SpanName(), trace.WithAttributes(attrs...))
}

// EndSpan ends the span, marking error status when err is non-nil.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetAttributes(attribute.Bool("resilience.error", true))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
