package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lexdesk.org/internal/auth"
	"lexdesk.org/internal/ids"
)

var _ auth.Store = (*Store)(nil)

func (s *Store) FindUser(ctx context.Context, id string) (auth.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		user     auth.User
		rawPerms []byte
		deleted  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, coalesce(permissions, '[]'), created_at, updated_at, deleted_at
		from users
		where id = $1
	`, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &rawPerms, &user.CreatedAt, &user.UpdatedAt, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return finishUser(user, rawPerms, deleted)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		user     auth.User
		rawPerms []byte
		deleted  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, coalesce(permissions, '[]'), created_at, updated_at, deleted_at
		from users
		where lower(email) = lower($1)
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &rawPerms, &user.CreatedAt, &user.UpdatedAt, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return finishUser(user, rawPerms, deleted)
}

func finishUser(user auth.User, rawPerms []byte, deleted sql.NullTime) (auth.User, error) {
	if len(rawPerms) > 0 {
		if err := json.Unmarshal(rawPerms, &user.DirectPermissions); err != nil {
			return auth.User{}, fmt.Errorf("decode permissions for user %s: %w", user.ID, err)
		}
	}
	if deleted.Valid {
		t := deleted.Time
		user.DeletedAt = &t
	}
	return user, nil
}

func (s *Store) CreateRole(ctx context.Context, role auth.Role) (auth.Role, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var desc sql.NullString
	row := s.db.QueryRowContext(ctx, `
		insert into roles (id, key, name, description)
		values ($1, $2, $3, $4)
		returning id, key, name, description, created_at, updated_at
	`, ids.New(), role.Key, role.Name, nullIfEmpty(role.Description))
	if err := row.Scan(&role.ID, &role.Key, &role.Name, &desc, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.Role{}, auth.ErrConflict
		}
		return auth.Role{}, err
	}
	if desc.Valid {
		role.Description = desc.String
	}
	return role, nil
}

func (s *Store) FindRole(ctx context.Context, id string) (auth.Role, error) {
	return s.roleBy(ctx, `id = $1`, id)
}

func (s *Store) FindRoleByKey(ctx context.Context, key string) (auth.Role, error) {
	return s.roleBy(ctx, `key = $1`, key)
}

func (s *Store) roleBy(ctx context.Context, where, arg string) (auth.Role, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var (
		role auth.Role
		desc sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, key, name, description, created_at, updated_at
		from roles
		where `+where, arg).Scan(&role.ID, &role.Key, &role.Name, &desc, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	if desc.Valid {
		role.Description = desc.String
	}
	return role, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]auth.Role, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		select id, key, name, description, created_at, updated_at
		from roles
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

func (s *Store) RolesForUser(ctx context.Context, userID string) ([]auth.Role, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.key, r.name, r.description, r.created_at, r.updated_at
		from user_roles ur
		join roles r on r.id = ur.role_id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

func scanRoles(rows *sql.Rows) ([]auth.Role, error) {
	var roles []auth.Role
	for rows.Next() {
		var (
			role auth.Role
			desc sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Key, &role.Name, &desc, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			role.Description = desc.String
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// AssignRole links the user to the role. Re-assigning an existing link
// is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		insert into user_roles (user_id, role_id)
		values ($1, $2)
		on conflict (user_id, role_id) do nothing
	`, userID, roleID)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return auth.ErrNotFound
	}
	return err
}

func (s *Store) EnsurePermissions(ctx context.Context, perms []auth.Permission) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	for _, p := range perms {
		if _, err := s.db.ExecContext(ctx, `
			insert into permissions (id, key, name, description)
			values ($1, $2, $3, $4)
			on conflict (key) do nothing
		`, ids.New(), p.Key, p.Name, nullIfEmpty(p.Description)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]auth.Permission, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		select id, key, name, description, created_at
		from permissions
		order by key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *Store) PermissionsForRole(ctx context.Context, roleID string) ([]auth.Permission, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.key, p.name, p.description, p.created_at
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		where rp.role_id = $1
		order by p.key
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func scanPermissions(rows *sql.Rows) ([]auth.Permission, error) {
	var perms []auth.Permission
	for rows.Next() {
		var (
			perm auth.Permission
			desc sql.NullString
		)
		if err := rows.Scan(&perm.ID, &perm.Key, &perm.Name, &desc, &perm.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			perm.Description = desc.String
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// GrantRolePermissions adds the keyed permissions to the role, skipping
// links that already exist. Unknown keys fail the whole grant.
func (s *Store) GrantRolePermissions(ctx context.Context, roleID string, keys []string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.grantInTx(ctx, tx, roleID, keys); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceRolePermissions rewrites the role's permission set atomically.
func (s *Store) ReplaceRolePermissions(ctx context.Context, roleID string, keys []string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1`, roleID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, roleID); err != nil {
		return err
	}
	if err := s.grantInTx(ctx, tx, roleID, keys); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) grantInTx(ctx context.Context, tx *sql.Tx, roleID string, keys []string) error {
	for _, key := range keys {
		var permID string
		err := tx.QueryRowContext(ctx, `select id from permissions where key = $1`, key).Scan(&permID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: permission %s not found", auth.ErrNotFound, key)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			values ($1, $2)
			on conflict (role_id, permission_id) do nothing
		`, roleID, permID); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return auth.ErrNotFound
			}
			return err
		}
	}
	return nil
}

// PermissionKeysForUser returns the distinct permission keys reachable
// through the user's roles. Direct user permissions live on the users
// row and are merged by the auth service, not here.
func (s *Store) PermissionKeysForUser(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		select distinct p.key
		from user_roles ur
		join role_permissions rp on rp.role_id = ur.role_id
		join permissions p on p.id = rp.permission_id
		where ur.user_id = $1
		order by p.key
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
