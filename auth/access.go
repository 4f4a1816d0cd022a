package auth

import (
	"context"
	"errors"

	"github.com/jonwraymond/toolproxy/invocation"
)

// AccessConfig configures an AccessLayer.
type AccessConfig struct {
	// Role is the caller's role.
	Role string

	// Operation is the type of operation the layer guards.
	Operation invocation.OperationType

	// Authorizer makes the decision.
	// Default: DenyAllAuthorizer
	Authorizer Authorizer
}

// AccessLayer admits or rejects calls according to a decision made once, at
// construction, for a fixed role and operation type.
//
// A rejected call never reaches the layers below and fails with an
// *AuthzError that matches ErrForbidden.
type AccessLayer struct {
	next      invocation.Invoker
	role      string
	operation invocation.OperationType
	denial    error
}

// NewAccessLayer evaluates the access decision and wraps next with it.
func NewAccessLayer(ctx context.Context, next invocation.Invoker, config AccessConfig) (*AccessLayer, error) {
	if next == nil {
		return nil, invocation.ErrNilInvoker
	}
	authorizer := config.Authorizer
	if authorizer == nil {
		authorizer = DenyAllAuthorizer{}
	}

	req := InvokeRequest(RoleIdentity(config.Role), string(config.Operation))
	denial := authorizer.Authorize(ctx, req)
	if denial != nil {
		var authzErr *AuthzError
		if !errors.As(denial, &authzErr) {
			wrapped := req.deny("authorizer " + authorizer.Name() + " failed")
			wrapped.Cause = denial
			denial = wrapped
		}
	}

	return &AccessLayer{
		next:      next,
		role:      config.Role,
		operation: config.Operation,
		denial:    denial,
	}, nil
}

// Invoke delegates when access was granted.
func (l *AccessLayer) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	if l.denial != nil {
		return invocation.Result{}, l.denial
	}
	return l.next.Invoke(ctx, args)
}

// Allowed reports the access decision.
func (l *AccessLayer) Allowed() bool {
	return l.denial == nil
}

// Role returns the guarded role.
func (l *AccessLayer) Role() string {
	return l.role
}

// Operation returns the guarded operation type.
func (l *AccessLayer) Operation() invocation.OperationType {
	return l.operation
}

var _ invocation.Invoker = (*AccessLayer)(nil)
