package conversation

import (
	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

// RuleDraft accumulates a keyword rule across the creation dialogue.
type RuleDraft struct {
	Content       string         `json:"content"`
	Mode          rules.MatchMode `json:"mode"`
	Action        rules.Action   `json:"action"`
	CaseSensitive bool           `json:"case_sensitive"`
	Styles        rules.Style    `json:"styles"`
}

// Payload is the per-operator scratch state persisted between turns.
type Payload struct {
	Draft         *RuleDraft           `json:"draft,omitempty"`
	ProxyType     domain.ProxyType     `json:"proxy_type,omitempty"`
	BlacklistType blacklist.TargetType `json:"blacklist_type,omitempty"`
	LoginPhone    string               `json:"login_phone,omitempty"`
	// Targets maps chat IDs offered in the last target-selection
	// keyboard to their titles, since callback data only carries IDs.
	Targets map[string]string `json:"targets,omitempty"`
}
