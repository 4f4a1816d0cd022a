package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")

	// ErrUnknownProvider is returned for a reference to an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrNotFound is returned when a provider has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptySecret is returned by a strict resolver for an empty value.
	ErrEmptySecret = errors.New("secret: empty value")
)
