package conversation

import (
	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

// EventKind identifies a button press in the operator dialogue.
type EventKind string

const (
	EventMainMenu EventKind = "main_menu"
	EventCancel   EventKind = "cancel"
	EventHelp     EventKind = "help"

	EventKeywordMenu        EventKind = "keyword_menu"
	EventKeywordNew         EventKind = "keyword_new"
	EventKeywordMode        EventKind = "keyword_mode"
	EventKeywordAction      EventKind = "keyword_action"
	EventKeywordStyle       EventKind = "keyword_style"
	EventKeywordCaseToggle  EventKind = "keyword_case_toggle"
	EventKeywordDone        EventKind = "keyword_done"
	EventKeywordList        EventKind = "keyword_list"
	EventKeywordDelete      EventKind = "keyword_delete"
	EventKeywordDeleteYes   EventKind = "keyword_delete_confirm"
	EventKeywordImport      EventKind = "keyword_import"
	EventKeywordExport      EventKind = "keyword_export"

	EventBlacklistMenu      EventKind = "blacklist_menu"
	EventBlacklistAdd       EventKind = "blacklist_add"
	EventBlacklistList      EventKind = "blacklist_list"
	EventBlacklistDelete    EventKind = "blacklist_delete"
	EventBlacklistDeleteYes EventKind = "blacklist_delete_confirm"
	EventBlock              EventKind = "block"
	EventUnblock            EventKind = "unblock"

	EventAccountMenu   EventKind = "account_menu"
	EventLogin         EventKind = "login"
	EventLogout        EventKind = "logout"
	EventAccountStatus EventKind = "account_status"
	EventProxy         EventKind = "proxy"
	EventProxyType     EventKind = "proxy_type"

	EventMonitorMenu   EventKind = "monitor_menu"
	EventMonitorStart  EventKind = "monitor_start"
	EventMonitorStop   EventKind = "monitor_stop"
	EventMonitorStatus EventKind = "monitor_status"
	EventTargetMenu    EventKind = "target_menu"
	EventTargetSelect  EventKind = "target_select"
)

// Event is one decoded button press. Only the fields relevant to the
// kind are set.
type Event struct {
	Kind EventKind

	Mode       rules.MatchMode
	Action     rules.Action
	Style      rules.Style
	ProxyType  domain.ProxyType
	TargetType blacklist.TargetType

	// ID is a keyword or blacklist entry UUID.
	ID string
	// TargetID is the blocked user or chat identifier.
	TargetID string
	// ChatID is the selected destination chat.
	ChatID int64
	Page   int
}

// Button is one inline keyboard button bound to an event.
type Button struct {
	Label string
	Event Event
}

// Document is a file attached to a reply.
type Document struct {
	Name string
	Data []byte
}

// Reply is what the machine asks the transport to show the operator.
type Reply struct {
	Text     string
	Buttons  [][]Button
	Document *Document
	// Toast is shown as a callback answer instead of editing the menu.
	Toast string
}
