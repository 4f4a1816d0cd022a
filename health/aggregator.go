package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds one Check or CheckAll call.
	// Default: 10 seconds
	Timeout time.Duration

	// Concurrency bounds how many checks run at once. Zero or less means
	// no bound; 1 runs checks one after another.
	Concurrency int
}

type registered struct {
	name    string
	checker Checker
}

// Aggregator runs a set of named checkers and folds their results into one
// status.
type Aggregator struct {
	config AggregatorConfig

	mu      sync.RWMutex
	entries []registered
}

// NewAggregator creates an Aggregator. At most one config is used.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	a := &Aggregator{}
	if len(config) > 0 {
		a.config = config[0]
	}
	if a.config.Timeout <= 0 {
		a.config.Timeout = 10 * time.Second
	}
	return a
}

func (a *Aggregator) index(name string) int {
	return slices.IndexFunc(a.entries, func(e registered) bool { return e.name == name })
}

// Register adds checker under name. A checker already registered under name
// is replaced in place.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.index(name); i >= 0 {
		a.entries[i].checker = checker
		return
	}
	a.entries = append(a.entries, registered{name: name, checker: checker})
}

// Unregister removes the checker registered under name, if any.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.index(name); i >= 0 {
		a.entries = slices.Delete(a.entries, i, i+1)
	}
}

// CheckerNames returns checker names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Check runs the checker registered under name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := a.index(name)
	var checker Checker
	if i >= 0 {
		checker = a.entries[i].checker
	}
	a.mu.RUnlock()

	if checker == nil {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every checker, at most Concurrency at a time, and returns the
// results by name. Checks still running at the timeout report ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	entries := slices.Clone(a.entries)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(entries))
	var g errgroup.Group
	if a.config.Concurrency > 0 {
		g.SetLimit(a.config.Concurrency)
	}
	for i, e := range entries {
		g.Go(func() error {
			results[i] = runCheck(ctx, e.checker)
			return nil
		})
	}
	_ = g.Wait()

	byName := make(map[string]Result, len(entries))
	for i, e := range entries {
		byName[e.name] = results[i]
	}
	return byName
}

// OverallStatus returns the worst status among results; no results is healthy.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

// runCheck stamps the result with its duration and gives up when ctx ends.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- checker.Check(ctx)
	}()

	var result Result
	select {
	case result = <-done:
	case <-ctx.Done():
		result = Unhealthy("check timed out", ErrCheckTimeout)
	}
	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = start
	}
	return result
}

// Checker exposes the whole aggregate as one Checker named "aggregate".
func (a *Aggregator) Checker() Checker {
	return NewCheckerFunc("aggregate", func(ctx context.Context) Result {
		results := a.CheckAll(ctx)
		details := make(map[string]any, len(results))
		for name, r := range results {
			details[name] = map[string]any{
				"status":   r.Status.String(),
				"message":  r.Message,
				"duration": r.Duration.String(),
			}
		}

		var result Result
		switch a.OverallStatus(results) {
		case StatusHealthy:
			result = Healthy("all checks passed")
		case StatusDegraded:
			result = Degraded("some checks degraded")
		default:
			result = Unhealthy("some checks failed", nil)
		}
		return result.WithDetails(details)
	})
}
