package auth

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrInvalidRoleTable is returned by RoleTable.Validate.
var ErrInvalidRoleTable = errors.New("auth: invalid role table")

// RoleTable maps a role to the operation types it may invoke.
//
// Roles missing from the table, and roles with an empty list, may invoke
// nothing.
type RoleTable map[string][]string

// ReferenceRoleTable returns the default role table.
func ReferenceRoleTable() RoleTable {
	return RoleTable{
		"admin":   {"report"},
		"premium": {"image"},
		"free":    {"payment"},
	}
}

// NormalizeRole folds a role name to the form used for lookups. Role names
// are case-insensitive.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// Permits reports whether role may invoke operation. Operations follow the
// RolePolicy pattern rules.
func (t RoleTable) Permits(role, operation string) bool {
	role = NormalizeRole(role)
	for name, ops := range t {
		if NormalizeRole(name) == role && slices.ContainsFunc(ops, matcher(operation)) {
			return true
		}
	}
	return false
}

// Roles returns the role names in sorted order.
func (t RoleTable) Roles() []string {
	return slices.Sorted(maps.Keys(t))
}

// Clone returns a deep copy of the table.
func (t RoleTable) Clone() RoleTable {
	out := make(RoleTable, len(t))
	for role, ops := range t {
		out[role] = slices.Clone(ops)
	}
	return out
}

// Validate rejects blank role or operation names and role names that differ
// only in case.
func (t RoleTable) Validate() error {
	seen := make(map[string]string, len(t))
	for role, ops := range t {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("%w: blank role name", ErrInvalidRoleTable)
		}
		if other, ok := seen[NormalizeRole(role)]; ok {
			return fmt.Errorf("%w: roles %q and %q collide", ErrInvalidRoleTable, other, role)
		}
		seen[NormalizeRole(role)] = role
		for _, op := range ops {
			if strings.TrimSpace(op) == "" {
				return fmt.Errorf("%w: role %q lists a blank operation", ErrInvalidRoleTable, role)
			}
		}
	}
	return nil
}

// Authorizer returns a RoleAuthorizer granting exactly the listed
// operation types.
func (t RoleTable) Authorizer() *RoleAuthorizer {
	policies := make(map[string]RolePolicy, len(t))
	for role, ops := range t {
		policies[role] = RolePolicy{Operations: slices.Clone(ops)}
	}
	return NewRoleAuthorizer(policies)
}
