package health_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/jonwraymond/toolproxy/health"
	"github.com/jonwraymond/toolproxy/resilience"
)

func ExampleNewBreakerChecker() {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Now: func() time.Time { return now },
	})
	checker := health.NewBreakerChecker("payment/free", cb)

	fmt.Println(checker.Check(context.Background()).Status)

	failing := func(context.Context) error { return errors.New("declined") }
	for range 3 {
		_ = cb.Execute(context.Background(), failing)
	}
	r := checker.Check(context.Background())
	fmt.Println(r.Status, r.Details["retry_in"])
	// Output:
	// healthy
	// unhealthy 10s
}

func ExampleNewRateLimitChecker() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Limit: 2})
	checker := health.NewRateLimitChecker("report/admin", rl)

	rl.Allow()
	fmt.Println(checker.Check(context.Background()).Message)
	rl.Allow()
	fmt.Println(checker.Check(context.Background()).Message)
	// Output:
	// 1 of 2 calls left
	// rate limit exhausted
}

func ExampleAggregator_OverallStatus() {
	agg := health.NewAggregator()
	agg.Register("report/admin", health.NewCheckerFunc("report/admin", func(context.Context) health.Result {
		return health.Healthy("circuit closed")
	}))
	agg.Register("image/premium", health.NewCheckerFunc("image/premium", func(context.Context) health.Result {
		return health.Degraded("circuit half-open")
	}))

	results := agg.CheckAll(context.Background())
	fmt.Println(agg.OverallStatus(results))
	// Output: degraded
}

func ExampleRegisterHandlers() {
	agg := health.NewAggregator()
	agg.Register("payment/free", health.NewCheckerFunc("payment/free", func(context.Context) health.Result {
		return health.Healthy("circuit closed")
	}))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		fmt.Println(path, rec.Code, rec.Body.String())
	}
	// Output:
	// /healthz 200 OK
	// /readyz 200 OK
}
