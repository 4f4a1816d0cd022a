package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how an identity was established.
type AuthMethod string

const (
	AuthMethodNone      AuthMethod = "none"
	AuthMethodRole      AuthMethod = "role"
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity is the caller a pipeline acts for.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID, email).
	Principal string

	// Roles are the roles assigned to this identity.
	Roles []string

	// Method indicates how the identity was established.
	Method AuthMethod

	// Claims contains the raw claims from a token, if any.
	Claims map[string]any

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time
}

// RoleIdentity returns the identity of a caller known only by its role.
func RoleIdentity(role string) *Identity {
	return &Identity{
		Principal: role,
		Roles:     []string{role},
		Method:    AuthMethodRole,
	}
}

// AnonymousIdentity creates a default anonymous identity.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: "anonymous",
		Method:    AuthMethodAnonymous,
	}
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// PrimaryRole returns the first role, or "" when there is none.
func (id *Identity) PrimaryRole() string {
	if id == nil || len(id.Roles) == 0 {
		return ""
	}
	return id.Roles[0]
}

// IsExpired reports whether the identity has expired at now.
func (id *Identity) IsExpired(now time.Time) bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return now.After(id.ExpiresAt)
}

// IsAnonymous returns true if this is an anonymous identity.
func (id *Identity) IsAnonymous() bool {
	return id.Method == AuthMethodAnonymous || id.Principal == ""
}
