package health

import (
	"context"
	"time"
)

// Status is the health of one component.
type Status int

// Statuses from best to worst.
const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Serving reports whether a component with this status still takes traffic.
func (s Status) Serving() bool {
	return s == StatusHealthy || s == StatusDegraded
}

// Result is what a Checker reports.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy reports a component working normally.
func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

// Degraded reports a component that still serves but is constrained, such as
// a half-open breaker or an exhausted rate window.
func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

// Unhealthy reports a component that rejects calls.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// WithDuration returns r carrying d.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker inspects one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc names fn as a Checker.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
