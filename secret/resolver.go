package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Resolver resolves configuration values using registered providers.
type Resolver struct {
	providers map[string]Provider
	strict    bool
	lookup    LookupFunc
}

// NewResolver creates a resolver. A strict resolver rejects empty secrets.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
		lookup:    os.LookupEnv,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// DefaultResolver returns a strict resolver with the env and file providers.
func DefaultResolver() *Resolver {
	return NewResolver(true, EnvProvider{}, FileProvider{})
}

// WithLookup sets the variable lookup used for expansion and returns r.
func (r *Resolver) WithLookup(lookup LookupFunc) *Resolver {
	if lookup != nil {
		r.lookup = lookup
	}
	return r
}

// Register adds or replaces a provider.
func (r *Resolver) Register(provider Provider) {
	if provider == nil {
		return
	}
	r.providers[provider.Name()] = provider
}

// Resolve expands value and resolves it when it is a secret reference.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := Expand(value, r.lookup)
	if err != nil {
		return "", err
	}

	name, ref, ok := ParseSecretRef(expanded)
	if !ok {
		return expanded, nil
	}

	provider, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmptySecret, name, ref)
	}
	return resolved, nil
}

// ParseSecretRef parses a reference of the form secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, "secretref:")
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}
