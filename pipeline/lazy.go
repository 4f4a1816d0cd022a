package pipeline

import (
	"context"
	"sync"

	"github.com/jonwraymond/toolproxy/invocation"
	"github.com/jonwraymond/toolproxy/observe"
)

// LazyLayer builds its backend on first use and reuses it afterwards.
//
// Construction runs under a mutex, so concurrent first calls build the
// backend once. A failed construction leaves the slot empty and the next
// call tries again.
type LazyLayer struct {
	op     invocation.Operation
	logger observe.Logger

	mu            sync.Mutex
	instance      invocation.Invoker
	constructions int
}

// NewLazyLayer creates a LazyLayer for op. A nil logger logs nothing.
func NewLazyLayer(op invocation.Operation, logger observe.Logger) (*LazyLayer, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &LazyLayer{op: op, logger: logger}, nil
}

// Invoke builds the backend if needed and delegates to it.
// Factory errors are returned unchanged.
func (l *LazyLayer) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	inst, err := l.backend(ctx)
	if err != nil {
		return invocation.Result{}, err
	}
	return inst.Invoke(ctx, args)
}

func (l *LazyLayer) backend(ctx context.Context) (invocation.Invoker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instance != nil {
		return l.instance, nil
	}

	l.constructions++
	inst, err := l.op.New(ctx)
	if err != nil {
		l.logger.Warn(ctx, "backend construction failed",
			observe.Field{Key: "attempt", Value: l.constructions},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, err
	}
	if inst == nil {
		return nil, invocation.ErrNilInvoker
	}

	l.instance = inst
	l.logger.Debug(ctx, "backend constructed",
		observe.Field{Key: "attempt", Value: l.constructions},
	)
	return inst, nil
}

// Constructed reports whether the backend has been built.
func (l *LazyLayer) Constructed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.instance != nil
}

// Constructions returns how many times the factory has been called.
func (l *LazyLayer) Constructions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.constructions
}

var _ invocation.Invoker = (*LazyLayer)(nil)
