package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
// Role assignment and permission grants are idempotent at the store
// level: re-establishing an existing link is a no-op, not an error.
type Store interface {
	FindUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)

	CreateRole(ctx context.Context, role Role) (Role, error)
	FindRole(ctx context.Context, id string) (Role, error)
	FindRoleByKey(ctx context.Context, key string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	RolesForUser(ctx context.Context, userID string) ([]Role, error)
	AssignRole(ctx context.Context, userID, roleID string) error

	EnsurePermissions(ctx context.Context, perms []Permission) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	GrantRolePermissions(ctx context.Context, roleID string, keys []string) error
	ReplaceRolePermissions(ctx context.Context, roleID string, keys []string) error
	PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error)
	PermissionKeysForUser(ctx context.Context, userID string) ([]string, error)
}
