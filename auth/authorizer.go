package auth

import (
	"context"
	"fmt"
)

// ActionInvoke is the only action pipelines ask about.
const ActionInvoke = "invoke"

// Authorizer decides whether a subject may act on an operation.
type Authorizer interface {
	// Authorize returns nil to permit the request. Denials should be
	// *AuthzError values.
	Authorize(ctx context.Context, req *AuthzRequest) error

	Name() string
}

// AuthzRequest is one access question.
type AuthzRequest struct {
	Subject   *Identity
	Operation string
	Action    string
}

// InvokeRequest asks whether subject may invoke operation.
func InvokeRequest(subject *Identity, operation string) *AuthzRequest {
	return &AuthzRequest{Subject: subject, Operation: operation, Action: ActionInvoke}
}

func (r *AuthzRequest) subject() string {
	if r.Subject == nil {
		return ""
	}
	return r.Subject.Principal
}

// deny builds the AuthzError for r.
func (r *AuthzRequest) deny(reason string) *AuthzError {
	return &AuthzError{Subject: r.subject(), Operation: r.Operation, Action: r.Action, Reason: reason}
}

// AuthzError is an access denial. It matches ErrForbidden.
type AuthzError struct {
	Subject   string
	Operation string
	Action    string
	Reason    string

	// Cause is set when the authorizer itself failed.
	Cause error
}

func (e *AuthzError) Error() string {
	subject := e.Subject
	if subject == "" {
		subject = "anonymous"
	}
	return fmt.Sprintf("access denied: %s may not %s %q: %s", subject, e.Action, e.Operation, e.Reason)
}

func (e *AuthzError) Unwrap() error {
	return e.Cause
}

func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AllowAllAuthorizer permits every request.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Authorize(context.Context, *AuthzRequest) error { return nil }

func (AllowAllAuthorizer) Name() string { return "allow_all" }

// DenyAllAuthorizer refuses every request. AccessLayer falls back to it when
// no authorizer is configured.
type DenyAllAuthorizer struct{}

func (DenyAllAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	return req.deny("all requests denied")
}

func (DenyAllAuthorizer) Name() string { return "deny_all" }

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

func (f AuthorizerFunc) Name() string { return "func" }
