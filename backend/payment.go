package backend

import (
	"context"

	"github.com/jonwraymond/toolproxy/invocation"
)

// Payment charges an amount to a user.
//
// Arguments: user (string), amount (number).
type Payment struct {
	base
}

// NewPayment creates a Payment backend.
func NewPayment(cfg Config) *Payment {
	return &Payment{base{cfg: cfg.withDefaults()}}
}

// Invoke processes the payment.
func (p *Payment) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	user, ok := arg(args, "user", 0)
	if !ok {
		return invocation.Result{}, invalid("payment needs a user")
	}
	amount, ok := arg(args, "amount", 1)
	if !ok {
		return invocation.Result{}, invalid("payment needs an amount")
	}
	if _, ok := toFloat(amount); !ok {
		return invocation.Result{}, invalid("amount %v is not a number", amount)
	}

	if err := p.begin(ctx); err != nil {
		return invocation.Result{}, err
	}
	if p.fails() {
		return invocation.Result{}, ErrPaymentDeclined
	}
	return invocation.Value("payment of " + format(amount) + " for " + format(user) + " processed"), nil
}

var _ invocation.Invoker = (*Payment)(nil)
