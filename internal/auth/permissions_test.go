package auth

import (
	"slices"
	"testing"
)

func TestPermissionSetHas(t *testing.T) {
	set := NewPermissionSet(PermCashView, PermCaseViewAll)
	if !set.Has(PermCashView) {
		t.Fatal("expected CASH_VIEW")
	}
	if set.Has(PermUserManage) {
		t.Fatal("unexpected USER_MANAGE")
	}
}

func TestPermissionSetWildcardDominates(t *testing.T) {
	set := NewPermissionSet(Wildcard)
	for _, p := range BuiltinPermissions {
		if !set.Has(p.Key) {
			t.Fatalf("wildcard should grant %s", p.Key)
		}
	}
	if !set.Has("SOME_FUTURE_PERMISSION") {
		t.Fatal("wildcard should grant unknown keys too")
	}
}

func TestPermissionSetKeysSorted(t *testing.T) {
	set := NewPermissionSet("B", "A", "C", "", "A")
	keys := set.Keys()
	if !slices.Equal(keys, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestPrincipalHasPermission(t *testing.T) {
	principal := Principal{
		UserID:      "u1",
		Roles:       []Role{{ID: "r1", Key: "lawyer"}},
		Permissions: NewPermissionSet(PermCaseViewAll),
	}
	if !principal.HasPermission(PermCaseViewAll) {
		t.Fatal("expected permission")
	}
	if principal.HasPermission(PermUserManage) {
		t.Fatal("unexpected permission")
	}
}
