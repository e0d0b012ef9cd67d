package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

// CreateKeyword inserts a new rule and returns its assigned id.
func (db *DB) CreateKeyword(ctx context.Context, rule rules.Rule) (string, error) {
	var id pgtype.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO keywords (content, match_mode, action, case_sensitive, style_flags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, SanitizeUTF8(rule.Content), string(rule.Mode), string(rule.Action), rule.CaseSensitive, int32(rule.Styles)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create keyword: %w", err)
	}

	return fromUUID(id), nil
}

// GetKeyword loads a single rule by id.
func (db *DB) GetKeyword(ctx context.Context, id string) (rules.Rule, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, content, match_mode, action, case_sensitive, style_flags, created_at
		FROM keywords
		WHERE id = $1
	`, toUUID(id))

	rule, err := scanKeyword(row)
	if err != nil {
		if isNoRows(err) {
			return rules.Rule{}, coreerrors.ErrRuleNotFound
		}

		return rules.Rule{}, fmt.Errorf("get keyword: %w", err)
	}

	return rule, nil
}

// ListKeywords returns every rule in creation order.
func (db *DB) ListKeywords(ctx context.Context) ([]rules.Rule, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, content, match_mode, action, case_sensitive, style_flags, created_at
		FROM keywords
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	ruleSet := make([]rules.Rule, 0)

	for rows.Next() {
		rule, err := scanKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword row: %w", err)
		}

		ruleSet = append(ruleSet, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rows: %w", err)
	}

	return ruleSet, nil
}

// ListKeywordsPage returns one page of rules plus the total count.
func (db *DB) ListKeywordsPage(ctx context.Context, limit, offset int) ([]rules.Rule, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM keywords`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count keywords: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, content, match_mode, action, case_sensitive, style_flags, created_at
		FROM keywords
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query keyword page: %w", err)
	}
	defer rows.Close()

	page := make([]rules.Rule, 0, limit)

	for rows.Next() {
		rule, err := scanKeyword(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan keyword row: %w", err)
		}

		page = append(page, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate keyword rows: %w", err)
	}

	return page, total, nil
}

// CountMonitorKeywords counts rules with the monitor action.
func (db *DB) CountMonitorKeywords(ctx context.Context) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM keywords WHERE action = $1
	`, string(rules.ActionMonitor)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count monitor keywords: %w", err)
	}

	return count, nil
}

// DeleteKeyword removes a rule by id.
func (db *DB) DeleteKeyword(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM keywords WHERE id = $1`, toUUID(id))
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return coreerrors.ErrRuleNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKeyword(row rowScanner) (rules.Rule, error) {
	var (
		id        pgtype.UUID
		mode      string
		action    string
		style     int32
		createdAt pgtype.Timestamptz
		rule      rules.Rule
	)

	if err := row.Scan(&id, &rule.Content, &mode, &action, &rule.CaseSensitive, &style, &createdAt); err != nil {
		return rules.Rule{}, err
	}

	rule.ID = fromUUID(id)
	rule.Mode = rules.MatchMode(mode)
	rule.Action = rules.Action(action)
	rule.Styles = rules.Style(style)
	rule.CreatedAt = fromTimestamptz(createdAt)

	return rule, nil
}
