package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrCircuitOpen indicates a checked circuit breaker is open.
	ErrCircuitOpen = errors.New("health: circuit open")
)
