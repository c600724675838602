package auth

// Principal is a caller with resolved roles and permissions. It is built
// once per request and carried through the context; nothing in the
// system consults a process-wide "current user".
type Principal struct {
	UserID      string
	Email       string
	Roles       []Role
	Permissions PermissionSet
}

// HasPermission reports whether the principal may perform the action
// identified by key. The wildcard dominates.
func (p Principal) HasPermission(key string) bool {
	return p.Permissions.Has(key)
}

// RoleIDs returns the ids of the principal's roles in assignment order.
func (p Principal) RoleIDs() []string {
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		out = append(out, r.ID)
	}
	return out
}

// RoleKeys returns the role slugs, used in the login response summary.
func (p Principal) RoleKeys() []string {
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		out = append(out, r.Key)
	}
	return out
}
