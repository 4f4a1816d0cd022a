// Package pipeline assembles resilient invocation pipelines.
//
// A Pipeline wraps one backend operation, for one caller role, in a fixed
// stack of layers, outer to inner:
//
//	Logging -> RateLimit -> Cache -> CircuitBreaker -> AccessControl -> LazyInit -> backend
//
// The order decides what each layer sees. Every attempt is logged and
// consumes rate-limit quota. A cache hit returns before the breaker, so a
// healthy cached path is unaffected by an open circuit. The breaker counts
// every error from below, access denials included. The backend is built on
// first use.
//
// A Registry hands out one isolated Pipeline per (operation type, role)
// pair. KindOf and Classify map outcomes to the four error kinds callers
// branch on.
package pipeline
