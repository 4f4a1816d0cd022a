package invocation

// UnavailableMessage is the message carried by an Unavailable result.
const UnavailableMessage = "service unavailable, try again later"

// Result is the outcome of a successful Invoke.
//
// An Unavailable result is a degraded success: the call was not attempted
// because a guard (the circuit breaker) rejected it. It is returned with a
// nil error so callers can tell "temporarily degraded" apart from "failed".
type Result struct {
	Value       any
	Unavailable bool
	Message     string
}

// Value wraps v in a successful Result.
func Value(v any) Result {
	return Result{Value: v}
}

// Unavailable builds a degraded Result. An empty message uses UnavailableMessage.
func Unavailable(msg string) Result {
	if msg == "" {
		msg = UnavailableMessage
	}
	return Result{Unavailable: true, Message: msg}
}

// OK reports whether the result carries a real value.
func (r Result) OK() bool {
	return !r.Unavailable
}
