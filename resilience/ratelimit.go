package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the fixed-window rate limiter.
type RateLimiterConfig struct {
	// Limit is the number of calls allowed per window.
	// Default: 4
	Limit int

	// Window is the length of one counting window.
	// Default: 60 seconds
	Window time.Duration

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

// RateLimiter implements a fixed-window call counter.
//
// The window starts on the first attempt, not at construction, and restarts
// on the first attempt made at least Window after the current start.
type RateLimiter struct {
	config RateLimiterConfig

	mu          sync.Mutex
	windowStart time.Time
	started     bool
	count       int
	rejected    int64
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	// Apply defaults
	if config.Limit <= 0 {
		config.Limit = 4
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RateLimiter{config: config}
}

// Allow checks if one call is allowed and consumes it.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN checks if n calls fit in the current window and consumes them.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.rollLocked()

	if rl.count+n > rl.config.Limit {
		rl.rejected++
		return false
	}

	rl.count += n
	return true
}

// Execute runs the operation if the current window has quota left.
// Otherwise it returns a *RateLimitError without calling op.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if !rl.Allow() {
		return &RateLimitError{
			Limit:      rl.config.Limit,
			Window:     rl.config.Window,
			RetryAfter: rl.RetryAfter(),
		}
	}

	return op(ctx)
}

// RetryAfter returns the time left until the current window resets.
// It is zero when no window has started or the window already elapsed.
func (rl *RateLimiter) RetryAfter() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.started {
		return 0
	}
	left := rl.config.Window - rl.config.Now().Sub(rl.windowStart)
	if left < 0 {
		return 0
	}
	return left
}

func (rl *RateLimiter) rollLocked() {
	now := rl.config.Now()
	if !rl.started {
		rl.windowStart = now
		rl.started = true
	}
	if now.Sub(rl.windowStart) >= rl.config.Window {
		rl.windowStart = now
		rl.count = 0
	}
}

// Remaining returns the number of calls left in the current window.
func (rl *RateLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.started && rl.config.Now().Sub(rl.windowStart) >= rl.config.Window {
		return rl.config.Limit
	}
	return rl.config.Limit - rl.count
}

// Reset clears the window so the next call starts a fresh one.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.started = false
	rl.windowStart = time.Time{}
	rl.count = 0
}

// Config returns the effective configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

// Metrics returns current rate limiter metrics.
func (rl *RateLimiter) Metrics() RateLimiterMetrics {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return RateLimiterMetrics{
		WindowStart: rl.windowStart,
		Count:       rl.count,
		Limit:       rl.config.Limit,
		Window:      rl.config.Window,
		Rejected:    rl.rejected,
	}
}

// RateLimiterMetrics contains rate limiter statistics.
type RateLimiterMetrics struct {
	WindowStart time.Time
	Count       int
	Limit       int
	Window      time.Duration
	Rejected    int64
}
