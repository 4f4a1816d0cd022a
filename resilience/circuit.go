package resilience

import (
	"context"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed delegates every call and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects every call until the cooldown has elapsed.
	StateOpen
	// StateHalfOpen admits a limited number of trial calls.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < StateClosed || s > StateHalfOpen {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures trip the circuit.
	// Default: 3
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before admitting a
	// trial. The trial is admitted once exactly ResetTimeout has passed.
	// Default: 10 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests bounds the trials admitted while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange observes transitions. It runs with the breaker lock held
	// and must not call back into the breaker.
	OnStateChange func(from, to State)

	// IsFailure classifies a call's error.
	// Default: every non-nil error is a failure.
	IsFailure func(err error) bool

	// Default: time.Now
	Now func() time.Time
}

// CircuitBreaker guards a dependency with the closed, open and half-open
// state machine.
//
// The lock covers admission and bookkeeping only, never the guarded call.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	lastTrip time.Time
	trips    int
	trials   int
}

// NewCircuitBreaker creates a closed CircuitBreaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 3
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 10 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config}
}

// Execute runs op unless the circuit rejects it with ErrCircuitOpen.
// The error returned by op is passed back unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current state. An open circuit whose cooldown has
// elapsed still reports open until the next call is admitted.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Config returns the effective configuration.
func (cb *CircuitBreaker) Config() CircuitBreakerConfig {
	return cb.config
}

// Reset closes the circuit and clears the failure count. Trips and the last
// trip time are kept.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.moveTo(StateClosed)
}

// admit decides whether a call may run, moving open to half-open once the
// cooldown is over.
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.config.Now().Sub(cb.lastTrip) < cb.config.ResetTimeout {
			return false
		}
		cb.moveTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.trials >= cb.config.HalfOpenMaxRequests {
			return false
		}
		cb.trials++
	}
	return true
}

// record books the outcome of an admitted call.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)
	switch {
	case cb.state == StateOpen:
		// Admitted before a concurrent trip; that trip already counted it.
	case !failed:
		cb.failures = 0
		cb.moveTo(StateClosed)
	case cb.state == StateHalfOpen:
		cb.failures++
		cb.trip()
	default:
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.lastTrip = cb.config.Now()
	cb.trips++
	cb.moveTo(StateOpen)
}

func (cb *CircuitBreaker) moveTo(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.trials = 0
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// CircuitBreakerMetrics is a snapshot of a breaker.
type CircuitBreakerMetrics struct {
	State    State
	Failures int
	LastTrip time.Time
	Trips    int
}

// Metrics returns a snapshot of the breaker.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerMetrics{
		State:    cb.state,
		Failures: cb.failures,
		LastTrip: cb.lastTrip,
		Trips:    cb.trips,
	}
}
