package pg

import (
	"context"
	"database/sql"

	"lexdesk.org/internal/ids"
	"lexdesk.org/internal/menu"
)

var _ menu.Store = (*Store)(nil)

func (s *Store) ListItems(ctx context.Context) ([]menu.Item, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		select id, path, label, coalesce(icon, ''), sort_order, parent_id
		from menu_items
		order by sort_order, path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []menu.Item
	for rows.Next() {
		var (
			item   menu.Item
			parent sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Path, &item.Label, &item.Icon, &item.SortOrder, &parent); err != nil {
			return nil, err
		}
		if parent.Valid {
			p := parent.String
			item.ParentID = &p
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item menu.Item) (menu.Item, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if item.ID == "" {
		item.ID = ids.New()
	}
	var parent any
	if item.ParentID != nil {
		parent = *item.ParentID
	}
	_, err := s.db.ExecContext(ctx, `
		insert into menu_items (id, path, label, icon, sort_order, parent_id)
		values ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.Path, item.Label, nullIfEmpty(item.Icon), item.SortOrder, parent)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return menu.Item{}, menu.ErrInvalidInput
		case pgErrForeignKeyViolation:
			return menu.Item{}, menu.ErrNotFound
		}
	}
	if err != nil {
		return menu.Item{}, err
	}
	return item, nil
}

func (s *Store) VisibleItemIDs(ctx context.Context, roleID string) (map[string]struct{}, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		select menu_item_id
		from menu_permissions
		where role_id = $1 and is_visible
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ReplaceRoleVisibility rewrites the role's rows in one transaction so
// a partial update can never leave the menu half-flipped.
func (s *Store) ReplaceRoleVisibility(ctx context.Context, roleID string, rows []menu.Visibility) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from menu_permissions where role_id = $1`, roleID); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, `
			insert into menu_permissions (role_id, menu_item_id, is_visible)
			values ($1, $2, $3)
			on conflict (role_id, menu_item_id) do update set is_visible = excluded.is_visible
		`, roleID, row.ItemID, row.Visible); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return menu.ErrNotFound
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) SeedFullVisibility(ctx context.Context, roleID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		insert into menu_permissions (role_id, menu_item_id, is_visible)
		select $1, id, true from menu_items
		on conflict (role_id, menu_item_id) do update set is_visible = true
	`, roleID)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return menu.ErrNotFound
	}
	return err
}
