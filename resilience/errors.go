package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned by CircuitBreaker.Execute when the circuit is open.
	// BreakerLayer turns it into an Unavailable result instead of an error.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when the call quota of the current window is used up.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrMaxRetriesExceeded is returned when a retrying caller gives up on an Unavailable result.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")
)

// RateLimitError reports a rejected call together with the quota that was hit.
type RateLimitError struct {
	// Limit is the number of calls allowed per window.
	Limit int

	// Window is the length of the fixed window.
	Window time.Duration

	// RetryAfter is the time left until the window resets.
	RetryAfter time.Duration
}

// Error returns the error message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("resilience: rate limit exceeded: max %d calls per %s (retry after %s)",
		e.Limit, e.Window, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether this error matches the target.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// IsRateLimited reports whether err is a rate limit rejection.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}
