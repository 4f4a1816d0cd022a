package auth

import (
	"context"
	"slices"
	"strings"
)

// RolePolicy lists what one role may invoke.
type RolePolicy struct {
	// Operations are the operation types the role may invoke. A trailing
	// "*" matches by prefix and "*" alone matches everything.
	Operations []string

	// Denied operation types are refused even when Operations or an
	// inherited role would allow them. Same pattern rules as Operations.
	Denied []string

	// Inherits names roles whose operations this role also gets.
	Inherits []string
}

// RoleAuthorizer grants the invoke action by role.
//
// A subject is permitted when one of its roles, or a role those inherit,
// lists the operation. A denial on any of those roles wins over every grant.
// Roles missing from the policy permit nothing. Role names are matched
// case-insensitively.
type RoleAuthorizer struct {
	policies map[string]RolePolicy
}

// NewRoleAuthorizer creates a RoleAuthorizer over policies.
func NewRoleAuthorizer(policies map[string]RolePolicy) *RoleAuthorizer {
	folded := make(map[string]RolePolicy, len(policies))
	for role, policy := range policies {
		role = NormalizeRole(role)
		merged := folded[role]
		merged.Operations = append(merged.Operations, policy.Operations...)
		merged.Denied = append(merged.Denied, policy.Denied...)
		merged.Inherits = append(merged.Inherits, policy.Inherits...)
		folded[role] = merged
	}
	return &RoleAuthorizer{policies: folded}
}

// Name returns "role".
func (a *RoleAuthorizer) Name() string {
	return "role"
}

// Authorize implements Authorizer.
func (a *RoleAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return req.deny("no identity provided")
	}
	if req.Action != ActionInvoke {
		return req.deny("unsupported action")
	}

	roles := a.expand(req.Subject.Roles)
	for _, role := range roles {
		if slices.ContainsFunc(a.policies[role].Denied, matcher(req.Operation)) {
			return req.deny("operation denied for role " + role)
		}
	}
	for _, role := range roles {
		if slices.ContainsFunc(a.policies[role].Operations, matcher(req.Operation)) {
			return nil
		}
	}
	return req.deny("no role permits this operation")
}

// expand returns roles followed by everything they inherit, each once.
func (a *RoleAuthorizer) expand(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	var out []string
	var visit func(role string)
	visit = func(role string) {
		role = NormalizeRole(role)
		if _, ok := seen[role]; ok {
			return
		}
		seen[role] = struct{}{}
		out = append(out, role)
		for _, parent := range a.policies[role].Inherits {
			visit(parent)
		}
	}
	for _, role := range roles {
		visit(role)
	}
	return out
}

func matcher(operation string) func(pattern string) bool {
	return func(pattern string) bool {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			return strings.HasPrefix(operation, prefix)
		}
		return pattern == operation
	}
}

var _ Authorizer = (*RoleAuthorizer)(nil)
