package cache

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolproxy/invocation"
)

// LayerConfig configures a caching Layer.
type LayerConfig struct {
	// Target names the cached operation; it is part of every key.
	Target string

	// Store holds results. Default: a new MemoryStore.
	Store Store

	// Keyer derives keys from argument values. Default: DefaultKeyer.
	Keyer Keyer
}

// Layer memoizes results of the layers below it.
//
// On a hit the stored result is returned without delegating, so nothing
// below the Layer observes the call. On a miss the call is delegated; a
// successful result is stored, an error or an Unavailable result is not.
// Concurrent misses on one key share a single delegation. A caller whose
// context ends stops waiting; the shared delegation carries on for the rest.
type Layer struct {
	next   invocation.Invoker
	store  Store
	keyer  Keyer
	target string
	group  singleflight.Group

	hits        atomic.Int64
	calls       atomic.Int64
	uncacheable atomic.Int64
}

// NewLayer wraps next with memoization.
func NewLayer(next invocation.Invoker, config LayerConfig) (*Layer, error) {
	if next == nil {
		return nil, invocation.ErrNilInvoker
	}
	if config.Store == nil {
		config.Store = NewMemoryStore()
	}
	if config.Keyer == nil {
		config.Keyer = NewDefaultKeyer()
	}
	return &Layer{
		next:   next,
		store:  config.Store,
		keyer:  config.Keyer,
		target: config.Target,
	}, nil
}

// Invoke returns a stored result for args or delegates and stores the outcome.
func (l *Layer) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	key, err := l.keyer.Key(l.target, args.Values())
	if err == nil {
		err = ValidateKey(key)
	}
	if err != nil {
		// Key derivation failed - execute without caching
		l.uncacheable.Add(1)
		l.calls.Add(1)
		return l.next.Invoke(ctx, args)
	}

	if cached, ok := l.store.Get(ctx, key); ok {
		l.hits.Add(1)
		return cached, nil
	}

	// The flight runs detached from the caller that started it; every caller
	// waits on its own context.
	flight := context.WithoutCancel(ctx)
	var leader bool
	ch := l.group.DoChan(key, func() (any, error) {
		// A flight for this key may have stored the result since the Get above.
		if cached, ok := l.store.Get(flight, key); ok {
			return cached, nil
		}

		leader = true
		l.calls.Add(1)
		result, err := l.next.Invoke(flight, args)
		if err != nil {
			return result, err
		}
		if result.OK() {
			_ = l.store.Set(flight, key, result)
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return invocation.Result{}, ctx.Err()
	case res := <-ch:
		result, _ := res.Val.(invocation.Result)
		if !leader && res.Err == nil && result.OK() {
			l.hits.Add(1)
		}
		return result, res.Err
	}
}

// Stats returns hit and delegation counters.
func (l *Layer) Stats() Stats {
	return Stats{
		Hits:        l.hits.Load(),
		Calls:       l.calls.Load(),
		Uncacheable: l.uncacheable.Load(),
		Entries:     l.store.Len(),
	}
}

// Store returns the underlying store.
func (l *Layer) Store() Store {
	return l.store
}

// Stats contains caching statistics.
type Stats struct {
	// Hits counts calls answered without delegating.
	Hits int64

	// Calls counts delegations to the layer below (real calls).
	Calls int64

	// Uncacheable counts calls whose key could not be derived.
	Uncacheable int64

	// Entries is the number of stored results.
	Entries int
}

var _ invocation.Invoker = (*Layer)(nil)
