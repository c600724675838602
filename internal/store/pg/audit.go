package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"lexdesk.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

// Append inserts one trail row. The table carries no update or delete
// paths anywhere in this package.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	metaJSON := []byte("{}")
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = raw
	}
	var userID any
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_logs (id, user_id, entity_type, entity_id, action, ip, metadata, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, userID, entry.EntityType, entry.EntityID, entry.Action, nullIfEmpty(entry.IP), metaJSON, entry.CreatedAt)
	return err
}

func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		select id, user_id, entity_type, entity_id, action, coalesce(ip, ''), metadata, created_at
		from audit_logs
		where 1=1`
	var args []any
	idx := 1
	add := func(clause, value string) {
		query += fmt.Sprintf(" and %s = $%d", clause, idx)
		args = append(args, value)
		idx++
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}
	if filter.EntityType != "" {
		add("entity_type", filter.EntityType)
	}
	if filter.Action != "" {
		add("action", filter.Action)
	}
	query += fmt.Sprintf(" order by created_at desc limit $%d offset $%d", idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry   audit.Entry
			userID  sql.NullString
			rawMeta []byte
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.EntityType, &entry.EntityID, &entry.Action, &entry.IP, &rawMeta, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			u := userID.String
			entry.UserID = &u
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for entry %s: %w", entry.ID, err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
