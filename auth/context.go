package auth

import "context"

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a new context with the given identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// Returns nil if no identity is present.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// RoleFromContext returns the primary role of the identity in ctx.
// Returns empty string if no identity is present.
func RoleFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).PrimaryRole()
}
