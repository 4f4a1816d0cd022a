package resilience

import (
	"context"

	"github.com/jonwraymond/toolproxy/invocation"
)

// RateLimitLayer rejects calls beyond the quota of the current window.
// Every attempt counts, including ones a layer below answers from cache.
type RateLimitLayer struct {
	limiter *RateLimiter
	next    invocation.Invoker
}

// NewRateLimitLayer wraps next with limiter.
func NewRateLimitLayer(next invocation.Invoker, limiter *RateLimiter) (*RateLimitLayer, error) {
	if next == nil {
		return nil, invocation.ErrNilInvoker
	}
	if limiter == nil {
		limiter = NewRateLimiter(RateLimiterConfig{})
	}
	return &RateLimitLayer{limiter: limiter, next: next}, nil
}

// Invoke delegates to the next layer when quota is left.
func (l *RateLimitLayer) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	var result invocation.Result
	err := l.limiter.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = l.next.Invoke(ctx, args)
		return err
	})
	return result, err
}

// Limiter returns the underlying rate limiter.
func (l *RateLimitLayer) Limiter() *RateLimiter {
	return l.limiter
}

// BreakerLayer guards the layers below it with a circuit breaker.
//
// Every error from below counts as a failure, whatever its origin. While the
// circuit rejects calls the layer answers with an Unavailable result and a
// nil error.
type BreakerLayer struct {
	breaker *CircuitBreaker
	next    invocation.Invoker
	message string
}

// BreakerLayerOption configures a BreakerLayer.
type BreakerLayerOption func(*BreakerLayer)

// WithUnavailableMessage sets the message of the Unavailable result.
func WithUnavailableMessage(msg string) BreakerLayerOption {
	return func(l *BreakerLayer) {
		if msg != "" {
			l.message = msg
		}
	}
}

// NewBreakerLayer wraps next with breaker.
func NewBreakerLayer(next invocation.Invoker, breaker *CircuitBreaker, opts ...BreakerLayerOption) (*BreakerLayer, error) {
	if next == nil {
		return nil, invocation.ErrNilInvoker
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(CircuitBreakerConfig{})
	}
	l := &BreakerLayer{
		breaker: breaker,
		next:    next,
		message: invocation.UnavailableMessage,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Invoke delegates through the breaker.
func (l *BreakerLayer) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	var (
		result invocation.Result
		called bool
	)
	err := l.breaker.Execute(ctx, func(ctx context.Context) error {
		called = true
		var err error
		result, err = l.next.Invoke(ctx, args)
		return err
	})
	if !called && err == ErrCircuitOpen {
		return invocation.Unavailable(l.message), nil
	}
	return result, err
}

// Breaker returns the underlying circuit breaker.
func (l *BreakerLayer) Breaker() *CircuitBreaker {
	return l.breaker
}

var (
	_ invocation.Invoker = (*RateLimitLayer)(nil)
	_ invocation.Invoker = (*BreakerLayer)(nil)
)
