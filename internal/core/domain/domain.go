// Package domain holds small shared types used across storage, the
// dialogue machine, and the source session.
package domain

// ProxyType names the transport the source session dials through.
type ProxyType string

const (
	ProxyNone    ProxyType = "none"
	ProxySocks5  ProxyType = "socks5"
	ProxyMTProxy ProxyType = "mtproxy"
)

// ProxyConfig describes how the source session dials Telegram.
type ProxyConfig struct {
	Type   ProxyType `json:"type"`
	Addr   string    `json:"addr,omitempty"`
	Secret string    `json:"secret,omitempty"`
}

// Chat kind constants for sendable chat listings.
const (
	ChatKindUser    = "user"
	ChatKindGroup   = "group"
	ChatKindChannel = "channel"
)

// Chat is a destination candidate the source account can post to.
// ID is in bot-API form (channels carry the -100 prefix).
type Chat struct {
	ID    int64
	Title string
	Kind  string
}
