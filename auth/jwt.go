package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator turns a credential into an Identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: failures wrap one of the package's authentication sentinels.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Authenticate validates token and returns the identity it carries.
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// PrincipalClaim is the claim containing the user principal.
	// Default: "sub"
	PrincipalClaim string

	// RoleClaim is the claim containing the caller's role, either a string
	// or a list of strings.
	// Default: "role"
	RoleClaim string

	// Now returns the current time for expiry checks.
	// Default: time.Now
	Now func() time.Time
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static HMAC signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// JWTAuthenticator validates HMAC-signed JWTs and derives the caller's role.
type JWTAuthenticator struct {
	config      JWTConfig
	keyProvider KeyProvider
	parser      *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RoleClaim == "" {
		config.RoleClaim = "role"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithTimeFunc(config.Now),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{
		config:      config,
		keyProvider: keyProvider,
		parser:      jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Authenticate validates the token. A "Bearer " prefix is accepted.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(BearerToken(token))
	if token == "" {
		return nil, ErrMissingCredentials
	}

	parsed, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keyProvider.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, classifyJWTError(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	identity := a.buildIdentity(claims)
	if len(identity.Roles) == 0 {
		return nil, ErrMissingRole
	}
	return identity, nil
}

// BearerToken strips an optional "Bearer " prefix from an Authorization value.
func BearerToken(header string) string {
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return rest
	}
	return header
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{
		Method: AuthMethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		identity.Claims[k] = v
	}

	if principal, ok := claims[a.config.PrincipalClaim].(string); ok {
		identity.Principal = principal
	}

	switch roles := claims[a.config.RoleClaim].(type) {
	case string:
		if roles != "" {
			identity.Roles = []string{roles}
		}
	case []any:
		identity.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok && s != "" {
				identity.Roles = append(identity.Roles, s)
			}
		}
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}

	return identity
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
