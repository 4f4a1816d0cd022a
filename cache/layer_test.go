package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/toolproxy/invocation"
)

type recordingInvoker struct {
	calls atomic.Int64
	fn    func(args invocation.Args) (invocation.Result, error)
}

func (r *recordingInvoker) Invoke(_ context.Context, args invocation.Args) (invocation.Result, error) {
	r.calls.Add(1)
	return r.fn(args)
}

func echoBackend() *recordingInvoker {
	return &recordingInvoker{fn: func(args invocation.Args) (invocation.Result, error) {
		return invocation.Value(args.Values()), nil
	}}
}

func TestNewLayer_NilNext(t *testing.T) {
	if _, err := NewLayer(nil, LayerConfig{}); err != invocation.ErrNilInvoker {
		t.Errorf("NewLayer(nil) error = %v, want ErrNilInvoker", err)
	}
}

func TestLayer_HitSkipsDelegation(t *testing.T) {
	backend := echoBackend()
	layer, err := NewLayer(backend, LayerConfig{Target: "payment"})
	if err != nil {
		t.Fatalf("NewLayer() error = %v", err)
	}
	ctx := context.Background()
	args := invocation.Keyword("user", "a", "amount", 100)

	first, err := layer.Invoke(ctx, args)
	if err != nil {
		t.Fatalf("first Invoke() error = %v", err)
	}
	second, err := layer.Invoke(ctx, args)
	if err != nil {
		t.Fatalf("second Invoke() error = %v", err)
	}

	if backend.calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls.Load())
	}
	if len(first.Value.([]any)) != len(second.Value.([]any)) {
		t.Errorf("second result %v differs from first %v", second.Value, first.Value)
	}

	stats := layer.Stats()
	if stats.Hits != 1 || stats.Calls != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want Hits 1 Calls 1 Entries 1", stats)
	}
}

func TestLayer_NameCollision(t *testing.T) {
	backend := echoBackend()
	layer, _ := NewLayer(backend, LayerConfig{Target: "payment"})
	ctx := context.Background()

	_, _ = layer.Invoke(ctx, invocation.Keyword("user", "a", "amount", 100))
	_, _ = layer.Invoke(ctx, invocation.Keyword("payer", "a", "total", 100))

	if backend.calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1 (equal values share an entry)", backend.calls.Load())
	}
}

func TestLayer_ErrorsAreNotCached(t *testing.T) {
	testErr := errors.New("backend down")
	fail := true
	backend := &recordingInvoker{fn: func(invocation.Args) (invocation.Result, error) {
		if fail {
			return invocation.Result{}, testErr
		}
		return invocation.Value("ok"), nil
	}}
	layer, _ := NewLayer(backend, LayerConfig{Target: "report"})
	ctx := context.Background()
	args := invocation.Keyword("report_id", 1)

	if _, err := layer.Invoke(ctx, args); err != testErr {
		t.Fatalf("Invoke() error = %v, want %v", err, testErr)
	}
	if layer.Stats().Entries != 0 {
		t.Errorf("Entries = %d after error, want 0", layer.Stats().Entries)
	}

	fail = false
	res, err := layer.Invoke(ctx, args)
	if err != nil || res.Value != "ok" {
		t.Errorf("Invoke() = %v, %v; want ok, nil", res.Value, err)
	}
	if backend.calls.Load() != 2 {
		t.Errorf("backend calls = %d, want 2", backend.calls.Load())
	}
}

func TestLayer_UnavailableIsNotCached(t *testing.T) {
	backend := &recordingInvoker{fn: func(invocation.Args) (invocation.Result, error) {
		return invocation.Unavailable(""), nil
	}}
	layer, _ := NewLayer(backend, LayerConfig{Target: "image"})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := layer.Invoke(ctx, invocation.Positional("img"))
		if err != nil || !res.Unavailable {
			t.Fatalf("Invoke() = %+v, %v; want Unavailable, nil", res, err)
		}
	}

	if backend.calls.Load() != 2 {
		t.Errorf("backend calls = %d, want 2", backend.calls.Load())
	}
	if stats := layer.Stats(); stats.Hits != 0 || stats.Entries != 0 {
		t.Errorf("Stats() = %+v, want no hits and no entries", stats)
	}
}

func TestLayer_UncacheableArgs(t *testing.T) {
	backend := echoBackend()
	layer, _ := NewLayer(backend, LayerConfig{Target: "report"})
	ctx := context.Background()
	args := invocation.Positional(func() {})

	for i := 0; i < 2; i++ {
		if _, err := layer.Invoke(ctx, args); err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
	}

	stats := layer.Stats()
	if stats.Uncacheable != 2 || stats.Calls != 2 || stats.Hits != 0 {
		t.Errorf("Stats() = %+v, want Uncacheable 2 Calls 2 Hits 0", stats)
	}
}

func TestLayer_ConcurrentMissesShareOneCall(t *testing.T) {
	release := make(chan struct{})
	backend := &recordingInvoker{fn: func(invocation.Args) (invocation.Result, error) {
		<-release
		return invocation.Value("slow"), nil
	}}
	layer, _ := NewLayer(backend, LayerConfig{Target: "image"})
	ctx := context.Background()
	args := invocation.Positional("same")

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan invocation.Result, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := layer.Invoke(ctx, args)
			if err != nil {
				t.Errorf("Invoke() error = %v", err)
			}
			results <- res
		}()
	}

	// Let the callers pile up behind the first flight.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for res := range results {
		if res.Value != "slow" {
			t.Errorf("result = %v, want slow", res.Value)
		}
	}
	if backend.calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls.Load())
	}
	stats := layer.Stats()
	if stats.Calls != 1 || stats.Hits != callers-1 {
		t.Errorf("Stats() = %+v, want Calls 1 Hits %d", stats, callers-1)
	}
}

func TestLayer_CancelledCallerDoesNotFailSharedCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var backendCtxErr atomic.Value
	backend := invocation.InvokerFunc(func(ctx context.Context, _ invocation.Args) (invocation.Result, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			backendCtxErr.Store(err)
			return invocation.Result{}, err
		}
		return invocation.Value("done"), nil
	})
	layer, _ := NewLayer(backend, LayerConfig{Target: "report"})
	args := invocation.Positional("q3")

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := layer.Invoke(firstCtx, args)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		res invocation.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := layer.Invoke(context.Background(), args)
		second <- outcome{res, err}
	}()

	// Let the second caller join the flight before the first one gives up.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting on the shared call")
	}

	close(release)
	got := <-second
	if got.err != nil {
		t.Fatalf("live caller error = %v, want nil", got.err)
	}
	if got.res.Value != "done" {
		t.Errorf("live caller result = %v, want done", got.res.Value)
	}
	if err := backendCtxErr.Load(); err != nil {
		t.Errorf("backend saw context error %v", err)
	}
	if stats := layer.Stats(); stats.Calls != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want Calls 1 Entries 1", stats)
	}
}

func TestLayer_CustomStore(t *testing.T) {
	store := NewMemoryStore()
	key, _ := NewDefaultKeyer().Key("payment", []any{"a"})
	_ = store.Set(context.Background(), key, invocation.Value("preloaded"))

	backend := echoBackend()
	layer, _ := NewLayer(backend, LayerConfig{Target: "payment", Store: store})

	res, err := layer.Invoke(context.Background(), invocation.Positional("a"))
	if err != nil || res.Value != "preloaded" {
		t.Errorf("Invoke() = %v, %v; want preloaded, nil", res.Value, err)
	}
	if backend.calls.Load() != 0 {
		t.Errorf("backend calls = %d, want 0", backend.calls.Load())
	}
	if layer.Store() != Store(store) {
		t.Error("Store() did not return the configured store")
	}
}
