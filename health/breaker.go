package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/toolproxy/resilience"
)

// BreakerChecker reports the state of a circuit breaker.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for breaker.
func NewBreakerChecker(name string, breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: breaker}
}

// Name returns the checker name.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check maps closed to healthy, half-open to degraded and open to unhealthy.
func (c *BreakerChecker) Check(_ context.Context) Result {
	m := c.breaker.Metrics()
	cfg := c.breaker.Config()

	details := map[string]any{
		"state":        m.State.String(),
		"failures":     m.Failures,
		"max_failures": cfg.MaxFailures,
		"trips":        m.Trips,
	}
	if !m.LastTrip.IsZero() {
		details["last_trip"] = m.LastTrip.UTC().Format(time.RFC3339)
	}

	switch m.State {
	case resilience.StateClosed:
		msg := "circuit closed"
		if m.Failures > 0 {
			msg = fmt.Sprintf("circuit closed, %d of %d failures", m.Failures, cfg.MaxFailures)
		}
		return Healthy(msg).WithDetails(details)

	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, trial call pending").WithDetails(details)

	default:
		retryIn := cfg.ResetTimeout - cfg.Now().Sub(m.LastTrip)
		if retryIn < 0 {
			retryIn = 0
		}
		details["retry_in"] = retryIn.String()
		return Unhealthy("circuit open", ErrCircuitOpen).WithDetails(details)
	}
}

// RateLimitChecker reports whether a rate limiter still has quota.
type RateLimitChecker struct {
	name    string
	limiter *resilience.RateLimiter
}

// NewRateLimitChecker creates a checker for limiter.
func NewRateLimitChecker(name string, limiter *resilience.RateLimiter) *RateLimitChecker {
	return &RateLimitChecker{name: name, limiter: limiter}
}

// Name returns the checker name.
func (c *RateLimitChecker) Name() string {
	return c.name
}

// Check is healthy while calls remain in the window and degraded otherwise.
func (c *RateLimitChecker) Check(_ context.Context) Result {
	m := c.limiter.Metrics()
	remaining := c.limiter.Remaining()

	details := map[string]any{
		"limit":     m.Limit,
		"window":    m.Window.String(),
		"remaining": remaining,
		"rejected":  m.Rejected,
	}

	if remaining > 0 {
		return Healthy(fmt.Sprintf("%d of %d calls left", remaining, m.Limit)).WithDetails(details)
	}
	details["retry_after"] = c.limiter.RetryAfter().String()
	return Degraded("rate limit exhausted").WithDetails(details)
}

var (
	_ Checker = (*BreakerChecker)(nil)
	_ Checker = (*RateLimitChecker)(nil)
)
