// Package secret resolves secret values referenced from configuration, such
// as the key that verifies caller tokens.
//
// A value is first expanded against the environment (see ExpandEnvStrict).
// A value of the form "secretref:<provider>:<ref>" is then handed to the
// named Provider:
//
//	secretref:env:TOOLPROXY_JWT_KEY
//	secretref:file:/run/secrets/jwt-key
//
// Anything else is returned as expanded.
package secret
