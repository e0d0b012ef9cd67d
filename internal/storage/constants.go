package db

import "time"

// Settings keys. Values are stored as JSONB in the settings table.
const (
	SettingTargetChatID    = "target_chat_id"
	SettingTargetChatTitle = "target_chat_title"
	SettingProxy           = "proxy"
	SettingLoginPhone      = "login_phone"
)

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 10
	defaultMinConns          int32         = 2
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)
