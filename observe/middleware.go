package observe

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolproxy/invocation"
)

// Middleware holds the telemetry components shared by LoggingLayers.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing but the
// InvocationLog of the layers it wraps.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// LayerOption configures a LoggingLayer.
type LayerOption func(*LoggingLayer)

// WithClock sets the clock used for record timestamps.
func WithClock(now func() time.Time) LayerOption {
	return func(l *LoggingLayer) {
		if now != nil {
			l.now = now
		}
	}
}

// Wrap returns a LoggingLayer in front of next. A nil log gets a fresh one.
func (m *Middleware) Wrap(next invocation.Invoker, meta OperationMeta, log *InvocationLog, opts ...LayerOption) (*LoggingLayer, error) {
	if next == nil {
		return nil, invocation.ErrNilInvoker
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = NewInvocationLog()
	}

	l := &LoggingLayer{
		next:   next,
		meta:   meta,
		log:    log,
		mw:     m,
		logger: m.logger.WithOperation(meta),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LoggingLayer records every call before delegating and reports its outcome.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: outcomes from next are returned unchanged.
//   - Ownership: the recorded arguments are copies; args is not modified.
type LoggingLayer struct {
	next   invocation.Invoker
	meta   OperationMeta
	log    *InvocationLog
	mw     *Middleware
	logger Logger
	now    func() time.Time
}

// Invoke appends a Record, then delegates inside a span.
func (l *LoggingLayer) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	rec := Record{
		ID:         uuid.New(),
		Timestamp:  l.now(),
		Target:     l.meta.Operation,
		Positional: slices.Clone(args.Positional),
		Keyword:    slices.Clone(args.Keyword),
	}
	l.log.Append(rec)
	l.logger.Debug(ctx, "invocation started",
		Field{Key: "record_id", Value: rec.ID.String()},
		Field{Key: "args", Value: rec.String()},
	)

	ctx, span := l.mw.tracer.StartSpan(ctx, l.meta)
	start := time.Now()

	res, err := l.next.Invoke(ctx, args)

	duration := time.Since(start)
	l.mw.tracer.EndSpan(span, res.Unavailable && err == nil, err)
	l.mw.metrics.RecordInvocation(ctx, l.meta, duration, res.Unavailable && err == nil, err)

	fields := []Field{
		{Key: "record_id", Value: rec.ID.String()},
		{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
	}
	switch {
	case err != nil:
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		l.logger.Error(ctx, "invocation failed", fields...)
	case res.Unavailable:
		fields = append(fields, Field{Key: "message", Value: res.Message})
		l.logger.Warn(ctx, "invocation unavailable", fields...)
	default:
		l.logger.Info(ctx, "invocation completed", fields...)
	}

	return res, err
}

// Log returns the layer's invocation log.
func (l *LoggingLayer) Log() *InvocationLog {
	return l.log
}

// Meta returns the layer's operation metadata.
func (l *LoggingLayer) Meta() OperationMeta {
	return l.meta
}

var _ invocation.Invoker = (*LoggingLayer)(nil)
