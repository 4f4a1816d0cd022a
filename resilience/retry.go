package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jonwraymond/toolproxy/invocation"
)

// BackoffStrategy picks how the delay grows between attempts.
type BackoffStrategy int

const (
	BackoffExponential BackoffStrategy = iota
	BackoffLinear
	BackoffConstant
)

// RetryConfig configures caller-side retries around a pipeline.
//
// Pipelines never retry on their own; a caller that wants to wait out a rate
// window or an open circuit wraps the pipeline with Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps every wait, RetryAfter hints included.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier grows exponential delays.
	// Default: 2.0
	Multiplier float64

	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter spreads exponential delays by up to 25% either way.
	Jitter bool

	// RetryIf reports whether an error is worth another attempt.
	// Default: IsRateLimited
	RetryIf func(err error) bool

	// RetryUnavailable also retries calls answered with an Unavailable result.
	RetryUnavailable bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry repeats calls that fail with a retryable error, waiting between
// attempts. A rate limit rejection's RetryAfter replaces the computed wait.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a Retry, filling in defaults.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = IsRateLimited
	}
	return &Retry{config: config}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// schedule returns a fresh delay sequence for one call.
func (r *Retry) schedule() backoff.BackOff {
	c := r.config
	switch c.Strategy {
	case BackoffConstant:
		return backoff.NewConstantBackOff(min(c.InitialDelay, c.MaxDelay))
	case BackoffLinear:
		return &linearBackOff{step: c.InitialDelay, max: c.MaxDelay}
	default:
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = min(c.InitialDelay, c.MaxDelay)
		exp.Multiplier = c.Multiplier
		exp.MaxInterval = c.MaxDelay
		exp.RandomizationFactor = 0
		if c.Jitter {
			exp.RandomizationFactor = 0.25
		}
		return exp
	}
}

// linearBackOff waits step, 2*step, 3*step and so on, up to max.
type linearBackOff struct {
	step, max time.Duration
	n         int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return min(b.step*time.Duration(b.n), b.max)
}

func (b *linearBackOff) Reset() { b.n = 0 }

// Execute runs op until it succeeds, fails with a non-retryable error, runs
// out of attempts or ctx ends.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	delays := r.schedule()
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || attempt >= r.config.MaxAttempts || !r.retryable(err) {
			return err
		}

		delay := delays.NextBackOff()
		var rle *RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > 0 {
			delay = min(rle.RetryAfter, r.config.MaxDelay)
		}
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

var errUnavailable = errors.New("resilience: unavailable result")

func (r *Retry) retryable(err error) bool {
	return errors.Is(err, errUnavailable) || r.config.RetryIf(err)
}

// Invoke calls inv with args, retrying per the configuration.
// When RetryUnavailable is set and every attempt was answered Unavailable,
// the last Unavailable result is returned with ErrMaxRetriesExceeded.
func (r *Retry) Invoke(ctx context.Context, inv invocation.Invoker, args invocation.Args) (invocation.Result, error) {
	var result invocation.Result
	err := r.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = inv.Invoke(ctx, args)
		if err == nil && result.Unavailable && r.config.RetryUnavailable {
			return errUnavailable
		}
		return err
	})
	if errors.Is(err, errUnavailable) {
		return result, ErrMaxRetriesExceeded
	}
	return result, err
}

// Wrap returns an Invoker that retries calls to inv.
func (r *Retry) Wrap(inv invocation.Invoker) invocation.Invoker {
	return invocation.InvokerFunc(func(ctx context.Context, args invocation.Args) (invocation.Result, error) {
		return r.Invoke(ctx, inv, args)
	})
}
