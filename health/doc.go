// Package health reports whether invocation pipelines are serving calls.
//
// A BreakerChecker maps a pipeline's circuit state onto a Status: closed is
// healthy, half-open is degraded and open is unhealthy. A RateLimitChecker
// reports degraded while a pipeline's quota is exhausted. An Aggregator runs
// many checkers at once and folds their results into one Status, which the
// HTTP handlers expose:
//
//	agg := health.NewAggregator()
//	agg.Register("payment/free", health.NewBreakerChecker("payment/free", p.Breaker()))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health
package health
