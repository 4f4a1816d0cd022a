package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/toolproxy/invocation"
)

func TestNewLazyLayer_Validation(t *testing.T) {
	if _, err := NewLazyLayer(invocation.Operation{Type: "payment"}, nil); !errors.Is(err, invocation.ErrMissingFactory) {
		t.Errorf("NewLazyLayer() error = %v, want ErrMissingFactory", err)
	}
}

func TestLazyLayer_BuildsOnFirstUse(t *testing.T) {
	b := &countingBackend{}
	l, err := NewLazyLayer(b.operation("payment"), nil)
	if err != nil {
		t.Fatalf("NewLazyLayer() error = %v", err)
	}

	if l.Constructed() {
		t.Fatal("Constructed() = true before first call")
	}
	for range 3 {
		if _, err := l.Invoke(context.Background(), invocation.Positional(1)); err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
	}

	if !l.Constructed() {
		t.Error("Constructed() = false after calls")
	}
	if got := l.Constructions(); got != 1 {
		t.Errorf("Constructions() = %d, want 1", got)
	}
	if got := b.calls.Load(); got != 3 {
		t.Errorf("backend calls = %d, want 3", got)
	}
}

func TestLazyLayer_ConcurrentFirstUse(t *testing.T) {
	var builds atomic.Int32
	b := &countingBackend{}
	op := invocation.Operation{
		Type: "image",
		New: func(context.Context) (invocation.Invoker, error) {
			builds.Add(1)
			time.Sleep(5 * time.Millisecond)
			return b, nil
		},
	}
	l, err := NewLazyLayer(op, nil)
	if err != nil {
		t.Fatalf("NewLazyLayer() error = %v", err)
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Invoke(context.Background(), invocation.Positional())
		}()
	}
	wg.Wait()

	if got := builds.Load(); got != 1 {
		t.Errorf("factory calls = %d, want 1", got)
	}
	if got := b.calls.Load(); got != 20 {
		t.Errorf("backend calls = %d, want 20", got)
	}
}

func TestLazyLayer_FailedConstructionRetries(t *testing.T) {
	errBuild := errors.New("no capacity")
	b := &countingBackend{}
	var attempts int
	op := invocation.Operation{
		Type: "report",
		New: func(context.Context) (invocation.Invoker, error) {
			attempts++
			if attempts == 1 {
				return nil, errBuild
			}
			return b, nil
		},
	}
	l, _ := NewLazyLayer(op, nil)

	if _, err := l.Invoke(context.Background(), invocation.Positional()); err != errBuild {
		t.Fatalf("first Invoke() error = %v, want %v unchanged", err, errBuild)
	}
	if l.Constructed() {
		t.Error("Constructed() = true after failed construction")
	}
	if _, err := l.Invoke(context.Background(), invocation.Positional()); err != nil {
		t.Fatalf("second Invoke() error = %v", err)
	}
	if got := l.Constructions(); got != 2 {
		t.Errorf("Constructions() = %d, want 2", got)
	}
}

func TestLazyLayer_NilInstance(t *testing.T) {
	op := invocation.Operation{
		Type: "report",
		New:  func(context.Context) (invocation.Invoker, error) { return nil, nil },
	}
	l, _ := NewLazyLayer(op, nil)

	if _, err := l.Invoke(context.Background(), invocation.Positional()); !errors.Is(err, invocation.ErrNilInvoker) {
		t.Errorf("Invoke() error = %v, want ErrNilInvoker", err)
	}
}
