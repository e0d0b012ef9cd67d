package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
)

// GetSetting loads a settings value into out. Missing keys return
// ErrNotFound.
func (db *DB) GetSetting(ctx context.Context, key string, out any) error {
	var raw []byte

	err := db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return coreerrors.ErrNotFound
		}

		return fmt.Errorf("get setting %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}

	return nil
}

// SetSetting stores a settings value as JSONB.
func (db *DB) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`, key, raw)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}

	return nil
}

// TargetChat returns the configured destination chat. A zero id means
// no target has been chosen yet.
func (db *DB) TargetChat(ctx context.Context) (int64, string, error) {
	var chatID int64

	if err := db.GetSetting(ctx, SettingTargetChatID, &chatID); err != nil {
		if coreerrors.Is(err, coreerrors.ErrNotFound) {
			return 0, "", nil
		}

		return 0, "", err
	}

	var title string
	if err := db.GetSetting(ctx, SettingTargetChatTitle, &title); err != nil && !coreerrors.Is(err, coreerrors.ErrNotFound) {
		return 0, "", err
	}

	return chatID, title, nil
}

// SetTargetChat stores the destination chat id and title.
func (db *DB) SetTargetChat(ctx context.Context, chatID int64, title string) error {
	if err := db.SetSetting(ctx, SettingTargetChatID, chatID); err != nil {
		return err
	}

	return db.SetSetting(ctx, SettingTargetChatTitle, title)
}

// Proxy returns the stored proxy configuration, defaulting to none.
func (db *DB) Proxy(ctx context.Context) (domain.ProxyConfig, error) {
	var cfg domain.ProxyConfig

	if err := db.GetSetting(ctx, SettingProxy, &cfg); err != nil {
		if coreerrors.Is(err, coreerrors.ErrNotFound) {
			return domain.ProxyConfig{Type: domain.ProxyNone}, nil
		}

		return domain.ProxyConfig{}, err
	}

	return cfg, nil
}

// SetProxy stores the proxy configuration for the source session.
func (db *DB) SetProxy(ctx context.Context, cfg domain.ProxyConfig) error {
	return db.SetSetting(ctx, SettingProxy, cfg)
}
