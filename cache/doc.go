// Package cache memoizes invocation results keyed by argument values.
//
// It provides a Store interface with an unbounded in-memory implementation,
// SHA-256-based key derivation over the ordered argument values, and a Layer
// that answers repeated calls without delegating.
package cache
