// Package auth decides which callers may invoke which operations.
//
// Access is role based: a RoleTable maps each role to the operation types it
// may invoke and is turned into a RoleAuthorizer. An AccessLayer asks
// its Authorizer once, when it is built, and then admits or rejects every
// call with that fixed decision. Callers that present a bearer token can have
// their role derived by a JWTAuthenticator.
package auth
