package invocation

import (
	"context"
	"errors"
	"strings"
)

// ErrNilInvoker is returned when a layer is constructed without a next Invoker.
var ErrNilInvoker = errors.New("invocation: invoker is nil")

// Invoker performs one call.
//
// Contract:
// - Concurrency: implementations used by a shared pipeline must be safe for concurrent use.
// - Context: implementations should pass ctx down; cancellation of in-flight work is best-effort.
// - Errors: a returned error means the call failed; an Unavailable Result is not an error.
type Invoker interface {
	Invoke(ctx context.Context, args Args) (Result, error)
}

// InvokerFunc is an adapter to allow use of ordinary functions as Invokers.
type InvokerFunc func(ctx context.Context, args Args) (Result, error)

// Invoke calls f(ctx, args).
func (f InvokerFunc) Invoke(ctx context.Context, args Args) (Result, error) {
	return f(ctx, args)
}

// OperationType names a kind of backend operation (e.g. "payment").
type OperationType string

// String returns the type name.
func (t OperationType) String() string {
	return string(t)
}

// Factory constructs a backend operation instance.
type Factory func(ctx context.Context) (Invoker, error)

// Operation describes a backend operation a pipeline targets: its type, used
// for access decisions and logging, and the factory that builds it.
type Operation struct {
	Type OperationType
	New  Factory
}

// Name returns the operation type, or "unknown" when unset.
func (o Operation) Name() string {
	if name := strings.TrimSpace(string(o.Type)); name != "" {
		return name
	}
	return "unknown"
}

// Validate reports whether the operation can be used to build a pipeline.
func (o Operation) Validate() error {
	if strings.TrimSpace(string(o.Type)) == "" {
		return ErrMissingOperationType
	}
	if o.New == nil {
		return ErrMissingFactory
	}
	return nil
}

// Operation errors.
var (
	ErrMissingOperationType = errors.New("invocation: operation type is required")
	ErrMissingFactory       = errors.New("invocation: operation factory is required")
)

// Static returns a Factory that always yields inv.
func Static(inv Invoker) Factory {
	return func(context.Context) (Invoker, error) {
		return inv, nil
	}
}
