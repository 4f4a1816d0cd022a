package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/cache"
	"github.com/jonwraymond/toolproxy/invocation"
	"github.com/jonwraymond/toolproxy/observe"
	"github.com/jonwraymond/toolproxy/resilience"
)

// Config configures a Pipeline.
type Config struct {
	// Operation is the backend operation the pipeline wraps (required).
	Operation invocation.Operation

	// Role is the caller role the access decision is made for.
	Role string

	// Roles is the role table the access decision is made against.
	// Ignored when Authorizer is set.
	Roles auth.RoleTable

	// Authorizer makes the access decision.
	// Default: Roles.Authorizer(), or deny-all when Roles is nil.
	Authorizer auth.Authorizer

	// Breaker configures the circuit breaker.
	// Default: 3 failures, 10 second cooldown.
	Breaker resilience.CircuitBreakerConfig

	// RateLimit configures the fixed-window limiter.
	// Default: 4 calls per 60 seconds.
	RateLimit resilience.RateLimiterConfig

	// NewStore creates the cache store.
	// Default: cache.NewMemoryStore
	NewStore func() cache.Store

	// Keyer derives cache keys.
	// Default: cache.DefaultKeyer
	Keyer cache.Keyer

	// UnavailableMessage is returned while the circuit rejects calls.
	// Default: invocation.UnavailableMessage
	UnavailableMessage string

	// Middleware supplies tracing and metrics for the logging layer.
	// Default: built from Observer, or a no-op.
	Middleware *observe.Middleware

	// Observer is used when Middleware is nil.
	Observer observe.Observer

	// Logger receives construction and state-change logs.
	// Default: Observer's logger, or a no-op.
	Logger observe.Logger

	// Now is the clock shared by components whose own clock is unset.
	// Default: time.Now
	Now func() time.Time
}

func (c *Config) applyDefaults() error {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Breaker.Now == nil {
		c.Breaker.Now = c.Now
	}
	if c.RateLimit.Now == nil {
		c.RateLimit.Now = c.Now
	}
	if c.NewStore == nil {
		c.NewStore = func() cache.Store { return cache.NewMemoryStore() }
	}
	if c.Authorizer == nil && c.Roles != nil {
		c.Authorizer = c.Roles.Authorizer()
	}
	if c.Logger == nil {
		if c.Observer != nil {
			c.Logger = c.Observer.Logger()
		} else {
			c.Logger = observe.NopLogger()
		}
	}
	if c.Middleware == nil {
		if c.Observer == nil {
			c.Middleware = observe.NopMiddleware()
		} else {
			mw, err := observe.MiddlewareFromObserver(c.Observer)
			if err != nil {
				return err
			}
			c.Middleware = mw
		}
	}
	return nil
}

// Pipeline is one operation wrapped, for one role, in the full layer stack.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: access denials match auth.ErrForbidden, rejected attempts match
//     resilience.ErrRateLimitExceeded, anything else comes from the backend.
//     An open circuit yields an Unavailable result and a nil error.
type Pipeline struct {
	op   invocation.Operation
	role string

	entry   *observe.LoggingLayer
	limiter *resilience.RateLimiter
	cache   *cache.Layer
	breaker *resilience.CircuitBreaker
	access  *auth.AccessLayer
	lazy    *LazyLayer
}

// New assembles a Pipeline. The access decision is made here, once.
func New(ctx context.Context, cfg Config) (*Pipeline, error) {
	if err := cfg.Operation.Validate(); err != nil {
		return nil, err
	}
	if cfg.Roles != nil {
		if err := cfg.Roles.Validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	meta := observe.OperationMeta{Operation: cfg.Operation.Name(), Role: cfg.Role}
	logger := cfg.Logger.WithOperation(meta)

	lazy, err := NewLazyLayer(cfg.Operation, logger)
	if err != nil {
		return nil, err
	}

	access, err := auth.NewAccessLayer(ctx, lazy, auth.AccessConfig{
		Role:       cfg.Role,
		Operation:  cfg.Operation.Type,
		Authorizer: cfg.Authorizer,
	})
	if err != nil {
		return nil, err
	}

	onStateChange := cfg.Breaker.OnStateChange
	cfg.Breaker.OnStateChange = func(from, to resilience.State) {
		// Transitions outlive the request that built the pipeline; log them
		// without its trace.
		logger.Warn(context.Background(), "circuit state changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		if onStateChange != nil {
			onStateChange(from, to)
		}
	}
	breaker := resilience.NewCircuitBreaker(cfg.Breaker)
	guarded, err := resilience.NewBreakerLayer(access, breaker,
		resilience.WithUnavailableMessage(cfg.UnavailableMessage))
	if err != nil {
		return nil, err
	}

	cached, err := cache.NewLayer(guarded, cache.LayerConfig{
		Target: cfg.Operation.Name(),
		Store:  cfg.NewStore(),
		Keyer:  cfg.Keyer,
	})
	if err != nil {
		return nil, err
	}

	limiter := resilience.NewRateLimiter(cfg.RateLimit)
	limited, err := resilience.NewRateLimitLayer(cached, limiter)
	if err != nil {
		return nil, err
	}

	entry, err := cfg.Middleware.Wrap(limited, meta, nil, observe.WithClock(cfg.Now))
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "pipeline assembled",
		observe.Field{Key: "access_allowed", Value: access.Allowed()},
	)

	return &Pipeline{
		op:      cfg.Operation,
		role:    cfg.Role,
		entry:   entry,
		limiter: limiter,
		cache:   cached,
		breaker: breaker,
		access:  access,
		lazy:    lazy,
	}, nil
}

// Invoke runs one call through every layer.
func (p *Pipeline) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	return p.entry.Invoke(ctx, args)
}

// Name returns "<operation>/<role>".
func (p *Pipeline) Name() string {
	return p.op.Name() + "/" + p.role
}

// Operation returns the wrapped operation type.
func (p *Pipeline) Operation() invocation.OperationType {
	return p.op.Type
}

// Role returns the caller role.
func (p *Pipeline) Role() string {
	return p.role
}

// Allowed reports the access decision made at construction.
func (p *Pipeline) Allowed() bool {
	return p.access.Allowed()
}

// Breaker returns the circuit breaker.
func (p *Pipeline) Breaker() *resilience.CircuitBreaker {
	return p.breaker
}

// BreakerMetrics returns the breaker state and counters.
func (p *Pipeline) BreakerMetrics() resilience.CircuitBreakerMetrics {
	return p.breaker.Metrics()
}

// Limiter returns the rate limiter.
func (p *Pipeline) Limiter() *resilience.RateLimiter {
	return p.limiter
}

// RateLimit returns the current rate window.
func (p *Pipeline) RateLimit() resilience.RateLimiterMetrics {
	return p.limiter.Metrics()
}

// CacheStats returns cache hit and real-call counters.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// Log returns the invocation log.
func (p *Pipeline) Log() *observe.InvocationLog {
	return p.entry.Log()
}

// Logs returns a copy of every recorded invocation, oldest first.
func (p *Pipeline) Logs() []observe.Record {
	return p.entry.Log().Records()
}

// Constructed reports whether the backend has been built.
func (p *Pipeline) Constructed() bool {
	return p.lazy.Constructed()
}

var _ invocation.Invoker = (*Pipeline)(nil)
