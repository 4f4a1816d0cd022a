package pipeline

import (
	"errors"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/invocation"
	"github.com/jonwraymond/toolproxy/resilience"
)

// Kind classifies the outcome of a pipeline call.
type Kind int

const (
	// KindNone is a successful call.
	KindNone Kind = iota
	// KindUnavailable is a call answered by an open circuit. It is a result,
	// not an error.
	KindUnavailable
	// KindAccessDenied is a call rejected by access control.
	KindAccessDenied
	// KindRateLimited is a call rejected because the window quota is used up.
	KindRateLimited
	// KindBackendFailure is any other error.
	KindBackendFailure
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindUnavailable:
		return "unavailable"
	case KindAccessDenied:
		return "access_denied"
	case KindRateLimited:
		return "rate_limited"
	case KindBackendFailure:
		return "backend_failure"
	default:
		return "unknown"
	}
}

// KindOf maps an error returned by Invoke to its kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, auth.ErrForbidden):
		return KindAccessDenied
	case errors.Is(err, resilience.ErrRateLimitExceeded):
		return KindRateLimited
	default:
		return KindBackendFailure
	}
}

// Classify maps a full Invoke outcome to its kind.
func Classify(result invocation.Result, err error) Kind {
	if err == nil && result.Unavailable {
		return KindUnavailable
	}
	return KindOf(err)
}
