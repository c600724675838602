package auth

import "sort"

// Wildcard grants every permission, present and future. A role or user
// holding it short-circuits all further checks.
const Wildcard = "*"

const (
	PermCaseViewAll  = "CASE_VIEW_ALL"
	PermCaseManage   = "CASE_MANAGE"
	PermClientView   = "CLIENT_VIEW"
	PermClientManage = "CLIENT_MANAGE"
	PermDocView      = "DOC_VIEW"
	PermDocManage    = "DOC_MANAGE"
	PermCashView     = "CASH_VIEW"
	PermCashManage   = "CASH_MANAGE"
	PermCalendarView = "CALENDAR_VIEW"
	PermUserManage   = "USER_MANAGE"
	PermMenuManage   = "MENU_MANAGE"
	PermAuditView    = "AUDIT_VIEW"
)

// BuiltinPermissions is the catalog ensured at startup.
var BuiltinPermissions = []Permission{
	{Key: Wildcard, Name: "All permissions"},
	{Key: PermCaseViewAll, Name: "View all cases"},
	{Key: PermCaseManage, Name: "Manage cases"},
	{Key: PermClientView, Name: "View clients"},
	{Key: PermClientManage, Name: "Manage clients"},
	{Key: PermDocView, Name: "View documents"},
	{Key: PermDocManage, Name: "Manage documents"},
	{Key: PermCashView, Name: "View finance"},
	{Key: PermCashManage, Name: "Manage finance"},
	{Key: PermCalendarView, Name: "View calendar"},
	{Key: PermUserManage, Name: "Manage users and roles"},
	{Key: PermMenuManage, Name: "Manage menu visibility"},
	{Key: PermAuditView, Name: "View audit trail"},
}

// PermissionSet is the canonical representation of "what this caller may
// do". All permission checks in the system go through Has; no call site
// inspects raw permission slices.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from keys, ignoring empty strings.
func NewPermissionSet(keys ...string) PermissionSet {
	set := make(PermissionSet, len(keys))
	set.Add(keys...)
	return set
}

// Add inserts keys into the set.
func (s PermissionSet) Add(keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		s[key] = struct{}{}
	}
}

// Has reports whether the set grants the key. The wildcard dominates.
func (s PermissionSet) Has(key string) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	_, ok := s[key]
	return ok
}

// HasWildcard reports whether the set contains the wildcard key.
func (s PermissionSet) HasWildcard() bool {
	_, ok := s[Wildcard]
	return ok
}

// Keys returns the sorted permission keys, suitable for embedding in a
// token snapshot.
func (s PermissionSet) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
