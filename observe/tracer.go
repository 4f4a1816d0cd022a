package observe

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationMeta identifies the pipeline an invocation went through.
type OperationMeta struct {
	Operation string // operation type, e.g. "payment" (required)
	Role      string // caller role (optional)
}

// SpanName returns the deterministic span name: invocation.<operation>.
func (m OperationMeta) SpanName() string {
	return "invocation." + m.Operation
}

// Validate reports whether the metadata names an operation.
func (m OperationMeta) Validate() error {
	if strings.TrimSpace(m.Operation) == "" {
		return ErrMissingOperation
	}
	return nil
}

func (m OperationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("operation.type", m.Operation)}
	if m.Role != "" {
		attrs = append(attrs, attribute.String("operation.role", m.Role))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with invocation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for one invocation.
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the outcome.
	EndSpan(span trace.Span, unavailable bool, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer on top of an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(),
		attribute.Bool("invocation.error", false),
		attribute.Bool("invocation.unavailable", false),
	)

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span. An error marks the span failed; an unavailable
// result is recorded as an attribute on an otherwise successful span.
func (t *tracerImpl) EndSpan(span trace.Span, unavailable bool, err error) {
	switch {
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("invocation.error", true))
		span.RecordError(err)
	case unavailable:
		span.SetAttributes(attribute.Bool("invocation.unavailable", true))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ bool, _ error) {
	span.End()
}
