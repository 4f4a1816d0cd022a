package backend

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonwraymond/toolproxy/invocation"
)

// Operation types of the reference backends.
const (
	TypePayment invocation.OperationType = "payment"
	TypeReport  invocation.OperationType = "report"
	TypeImage   invocation.OperationType = "image"
)

// Errors returned by the reference backends.
var (
	ErrInvalidArgs     = errors.New("backend: invalid arguments")
	ErrPaymentDeclined = errors.New("backend: payment could not be processed")
	ErrReportFailed    = errors.New("backend: report could not be generated")
	ErrImageCorrupt    = errors.New("backend: image is corrupt or damaged")
)

// Config tunes a reference backend.
type Config struct {
	// MinLatency and MaxLatency bound the simulated work time.
	// Zero values disable the delay.
	MinLatency time.Duration
	MaxLatency time.Duration

	// FailureRate is the probability in [0, 1] that a call fails.
	// Ignored by Report, which fails on large report ids instead.
	FailureRate float64

	// Float returns a number in [0, 1).
	// Default: math/rand/v2 Float64
	Float func() float64
}

func (c Config) withDefaults() Config {
	if c.Float == nil {
		c.Float = rand.Float64
	}
	if c.MaxLatency < c.MinLatency {
		c.MaxLatency = c.MinLatency
	}
	return c
}

// base holds what the three backends share: latency, failure draws and a
// call counter.
type base struct {
	cfg Config

	mu    sync.Mutex
	calls int
}

func (b *base) begin(ctx context.Context) error {
	b.mu.Lock()
	b.calls++
	d := b.cfg.MinLatency
	if spread := b.cfg.MaxLatency - b.cfg.MinLatency; spread > 0 {
		d += time.Duration(b.cfg.Float() * float64(spread))
	}
	b.mu.Unlock()

	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *base) fails() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.Float() < b.cfg.FailureRate
}

// Calls returns how many calls reached the backend.
func (b *base) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// arg returns the keyword argument name, or the positional one at index.
func arg(args invocation.Args, name string, index int) (any, bool) {
	if v, ok := args.Lookup(name); ok {
		return v, true
	}
	if index < len(args.Positional) {
		return args.Positional[index], true
	}
	return nil, false
}

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgs, fmt.Sprintf(format, a...))
}

// Operations returns the three reference operations, each building a fresh
// backend from cfg.
func Operations(cfg Config) []invocation.Operation {
	return []invocation.Operation{
		{Type: TypePayment, New: func(context.Context) (invocation.Invoker, error) { return NewPayment(cfg), nil }},
		{Type: TypeReport, New: func(context.Context) (invocation.Invoker, error) { return NewReport(cfg), nil }},
		{Type: TypeImage, New: func(context.Context) (invocation.Invoker, error) { return NewImage(cfg), nil }},
	}
}
