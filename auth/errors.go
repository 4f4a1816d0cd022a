package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrMissingRole        = errors.New("auth: identity carries no role")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)
