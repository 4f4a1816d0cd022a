package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metrics records invocation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordInvocation records one invocation with its duration and outcome.
	RecordInvocation(ctx context.Context, meta OperationMeta, duration time.Duration, unavailable bool, err error)
}

type metricsImpl struct {
	totalCount       metric.Int64Counter
	errorCount       metric.Int64Counter
	unavailableCount metric.Int64Counter
	durationHist     metric.Float64Histogram
}

// NewMetrics creates the invocation instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"invocation.total",
		metric.WithDescription("Total number of invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"invocation.errors",
		metric.WithDescription("Invocations that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	unavailableCount, err := meter.Int64Counter(
		"invocation.unavailable",
		metric.WithDescription("Invocations answered with a service unavailable result"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"invocation.duration_ms",
		metric.WithDescription("Invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:       totalCount,
		errorCount:       errorCount,
		unavailableCount: unavailableCount,
		durationHist:     durationHist,
	}, nil
}

func (m *metricsImpl) RecordInvocation(ctx context.Context, meta OperationMeta, duration time.Duration, unavailable bool, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	if unavailable {
		m.unavailableCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

type noopMetrics struct{}

func (m *noopMetrics) RecordInvocation(context.Context, OperationMeta, time.Duration, bool, error) {}
