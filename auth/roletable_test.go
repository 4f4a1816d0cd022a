package auth

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestReferenceRoleTable(t *testing.T) {
	table := ReferenceRoleTable()

	tests := []struct {
		role      string
		operation string
		want      bool
	}{
		{"admin", "report", true},
		{"admin", "payment", false},
		{"premium", "image", true},
		{"premium", "report", false},
		{"free", "payment", true},
		{"free", "image", false},
		{"guest", "payment", false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"_"+tt.operation, func(t *testing.T) {
			if got := table.Permits(tt.role, tt.operation); got != tt.want {
				t.Errorf("Permits(%q, %q) = %v, want %v", tt.role, tt.operation, got, tt.want)
			}
		})
	}
}

func TestRoleTable_AuthorizerAgreesWithPermits(t *testing.T) {
	table := RoleTable{
		"admin":   {"report", "payment"},
		"premium": {"image"},
		"free":    {"payment"},
		"billing": {"pay*"},
		"banned":  {},
	}
	authz := table.Authorizer()
	ctx := context.Background()

	for _, role := range append(table.Roles(), "guest", "", "ADMIN", " Billing ") {
		for _, op := range []string{"report", "image", "payment", "payroll", "unknown"} {
			err := authz.Authorize(ctx, InvokeRequest(RoleIdentity(role), op))
			if allowed := err == nil; allowed != table.Permits(role, op) {
				t.Errorf("Authorize(%q, %q) allowed = %v, Permits = %v", role, op, allowed, table.Permits(role, op))
			}
			if err != nil && !errors.Is(err, ErrForbidden) {
				t.Errorf("Authorize(%q, %q) error = %v, want ErrForbidden", role, op, err)
			}
		}
	}
}

func TestRoleTable_PermitsIgnoresRoleCase(t *testing.T) {
	tests := []struct {
		name      string
		table     RoleTable
		role      string
		operation string
		want      bool
	}{
		{"upper-case caller", ReferenceRoleTable(), "Admin", "report", true},
		{"padded caller", ReferenceRoleTable(), " free ", "payment", true},
		{"mixed-case key", RoleTable{"Ops": {"image"}}, "ops", "image", true},
		{"still scoped", ReferenceRoleTable(), "ADMIN", "payment", false},
		{"prefix pattern", RoleTable{"billing": {"pay*"}}, "billing", "payment", true},
		{"prefix pattern miss", RoleTable{"billing": {"pay*"}}, "billing", "report", false},
		{"match everything", RoleTable{"root": {"*"}}, "Root", "image", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.Permits(tt.role, tt.operation); got != tt.want {
				t.Errorf("Permits(%q, %q) = %v, want %v", tt.role, tt.operation, got, tt.want)
			}
		})
	}
}

func TestRoleTable_Roles(t *testing.T) {
	got := ReferenceRoleTable().Roles()
	want := []string{"admin", "free", "premium"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Roles() = %v, want %v", got, want)
	}
}

func TestRoleTable_Clone(t *testing.T) {
	table := ReferenceRoleTable()
	clone := table.Clone()
	clone["free"][0] = "report"

	if !table.Permits("free", "payment") {
		t.Error("modifying clone changed the original")
	}
}

func TestRoleTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		table   RoleTable
		wantErr bool
	}{
		{"reference", ReferenceRoleTable(), false},
		{"empty", RoleTable{}, false},
		{"blank role", RoleTable{" ": {"report"}}, true},
		{"blank operation", RoleTable{"admin": {""}}, true},
		{"roles differing in case", RoleTable{"admin": {"report"}, "Admin": {"image"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRoleTable) {
				t.Errorf("Validate() error = %v, want ErrInvalidRoleTable", err)
			}
		})
	}
}
