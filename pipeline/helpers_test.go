package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/invocation"
)

var errBackend = errors.New("backend exploded")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingBackend answers "done:<values>" or errBackend while failing is set.
type countingBackend struct {
	calls   atomic.Int64
	failing atomic.Bool
	builds  atomic.Int64
}

func (b *countingBackend) Invoke(_ context.Context, args invocation.Args) (invocation.Result, error) {
	b.calls.Add(1)
	if b.failing.Load() {
		return invocation.Result{}, errBackend
	}
	return invocation.Value(fmt.Sprint("done:", args.Values())), nil
}

func (b *countingBackend) operation(t invocation.OperationType) invocation.Operation {
	return invocation.Operation{
		Type: t,
		New: func(context.Context) (invocation.Invoker, error) {
			b.builds.Add(1)
			return b, nil
		},
	}
}

func newTestPipeline(t *testing.T, clock *fakeClock, op invocation.OperationType, role string, b *countingBackend, mutate ...func(*Config)) *Pipeline {
	t.Helper()
	cfg := Config{
		Operation: b.operation(op),
		Role:      role,
		Roles:     auth.ReferenceRoleTable(),
		Now:       clock.Now,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func withLimit(n int) func(*Config) {
	return func(c *Config) { c.RateLimit.Limit = n }
}
