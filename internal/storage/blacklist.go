package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
)

// AddBlacklistEntry inserts a blocked identity. A duplicate
// (target_id, target_type) pair returns ErrDuplicateEntry and leaves
// the store unchanged.
func (db *DB) AddBlacklistEntry(ctx context.Context, entry blacklist.Entry) (string, error) {
	var id pgtype.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO blacklist (target_id, target_type, name)
		VALUES ($1, $2, $3)
		RETURNING id
	`, SanitizeUTF8(entry.TargetID), string(entry.TargetType), SanitizeUTF8(entry.Name)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", coreerrors.ErrDuplicateEntry
		}

		return "", fmt.Errorf("add blacklist entry: %w", err)
	}

	return fromUUID(id), nil
}

// BlacklistExists reports whether a target is present.
func (db *DB) BlacklistExists(ctx context.Context, targetID string, targetType blacklist.TargetType) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blacklist WHERE target_id = $1 AND target_type = $2
		)
	`, targetID, string(targetType)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists, nil
}

// ListBlacklistPage returns one page of entries plus the total count.
func (db *DB) ListBlacklistPage(ctx context.Context, limit, offset int) ([]blacklist.Entry, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM blacklist`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blacklist: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, target_id, target_type, name, created_at
		FROM blacklist
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query blacklist page: %w", err)
	}
	defer rows.Close()

	entries := make([]blacklist.Entry, 0, limit)

	for rows.Next() {
		var (
			id         pgtype.UUID
			targetType string
			createdAt  pgtype.Timestamptz
			entry      blacklist.Entry
		)

		if err := rows.Scan(&id, &entry.TargetID, &targetType, &entry.Name, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan blacklist row: %w", err)
		}

		entry.ID = fromUUID(id)
		entry.TargetType = blacklist.TargetType(targetType)
		entry.CreatedAt = fromTimestamptz(createdAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate blacklist rows: %w", err)
	}

	return entries, total, nil
}

// RemoveBlacklistEntry deletes an entry by id.
func (db *DB) RemoveBlacklistEntry(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM blacklist WHERE id = $1`, toUUID(id))
	if err != nil {
		return fmt.Errorf("remove blacklist entry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return coreerrors.ErrEntryNotFound
	}

	return nil
}

// RemoveBlacklistByTarget deletes an entry by (target_id, target_type).
// Used by the unblock quick action on forwarded messages.
func (db *DB) RemoveBlacklistByTarget(ctx context.Context, targetID string, targetType blacklist.TargetType) error {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM blacklist WHERE target_id = $1 AND target_type = $2
	`, targetID, string(targetType))
	if err != nil {
		return fmt.Errorf("remove blacklist target: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return coreerrors.ErrEntryNotFound
	}

	return nil
}
