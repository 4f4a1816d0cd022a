package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/toolproxy/observe/exporters"
)

// Config selects the telemetry a pipeline process emits.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig

	// Output receives log lines and stdout exporter output.
	// Default: os.Stderr
	Output io.Writer
}

// TracingConfig turns span export on and picks the exporter.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|jaeger|stdout|none
	SamplePct float64 // fraction of invocations traced, 0.0-1.0
}

// MetricsConfig turns metric export on and picks the exporter.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig turns the JSON logger on and sets its threshold.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
}

// Validate reports every problem with the enabled parts of c.
func (c *Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, ErrMissingServiceName)
	}
	if t := c.Tracing; t.Enabled {
		if !slices.Contains(ValidTracingExporters, t.Exporter) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTracingExporter, t.Exporter))
		}
		if t.SamplePct < MinSamplePct || t.SamplePct > MaxSamplePct {
			errs = append(errs, fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, t.SamplePct))
		}
	}
	if m := c.Metrics; m.Enabled && !slices.Contains(ValidMetricsExporters, m.Exporter) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, m.Exporter))
	}
	if l := c.Logging; l.Enabled && !slices.Contains(ValidLogLevels, l.Level) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level))
	}
	return errors.Join(errs...)
}

// Observer hands out the tracer, meter and logger every pipeline layer
// shares.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Shutdown flushes exporters, honors ctx and may be called more than once.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

// Logger is the structured logger used by pipeline layers.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Logging is best effort and never panics.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithOperation(meta OperationMeta) Logger
}

// Field is one key/value pair on a log line.
type Field struct {
	Key   string
	Value any
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	// shutdown runs in order; each entry flushes one provider.
	shutdown []func(context.Context) error
}

// NewObserver validates cfg and starts the enabled providers. Disabled
// signals get no-op implementations, so callers never check for nil.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	opts := exporters.Options{Writer: cfg.Output}
	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, opts)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler(cfg.Tracing.SamplePct)),
			sdktrace.WithBatcher(exp),
		)
		otel.SetTracerProvider(tp)
		obs.tracer = tp.Tracer(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, opts)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(cfg.ServiceName)
		obs.shutdown = append(obs.shutdown, mp.Shutdown)
	}

	switch {
	case !cfg.Logging.Enabled:
	case cfg.Output != nil:
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, cfg.Output)
	default:
		obs.logger = NewLogger(cfg.Logging.Level)
	}

	return obs, nil
}

// sampler maps a sample fraction onto the matching SDK sampler.
func sampler(pct float64) sdktrace.Sampler {
	if pct >= 1 {
		return sdktrace.AlwaysSample()
	}
	if pct <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(pct)
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range o.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (nopLogger) Debug(context.Context, string, ...Field) {}
func (l nopLogger) WithOperation(OperationMeta) Logger    { return l }

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}
