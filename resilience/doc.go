// Package resilience provides the guard layers of an invocation pipeline.
//
// # Patterns
//
//   - Circuit Breaker: counts consecutive failures from everything below it,
//     stops delegating once MaxFailures is reached, and lets a single trial
//     call through after ResetTimeout.
//
//   - Rate Limiter: a fixed-window counter. Every attempt consumes quota;
//     the (Limit+1)-th attempt inside one window is rejected.
//
//   - Retry: a caller-side helper. Pipelines never retry on their own.
//
// # Layers
//
// BreakerLayer and RateLimitLayer adapt the primitives to invocation.Invoker:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  3,
//	    ResetTimeout: 10 * time.Second,
//	})
//	guarded, _ := resilience.NewBreakerLayer(backend, cb)
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    Limit:  4,
//	    Window: time.Minute,
//	})
//	limited, _ := resilience.NewRateLimitLayer(guarded, rl)
//
//	res, err := limited.Invoke(ctx, invocation.Keyword("user", "a", "amount", 100))
//
// An open circuit is reported as an Unavailable result with a nil error; a
// spent quota is reported as a *RateLimitError.
package resilience
