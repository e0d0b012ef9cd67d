package conversation

// State names the step of the operator dialogue. Exactly one is
// active per operator at any time.
type State string

const (
	StateIdle                   State = "idle"
	StateWaitingPhone           State = "waiting_phone"
	StateWaitingCode            State = "waiting_code"
	StateWaitingPassword        State = "waiting_password"
	StateWaitingProxyURL        State = "waiting_proxy_url"
	StateWaitingKeyword         State = "waiting_keyword_content"
	StateSelectingKeywordType   State = "selecting_keyword_type"
	StateSelectingKeywordAction State = "selecting_keyword_action"
	StateSelectingKeywordStyle  State = "selecting_keyword_style"
	StateWaitingImportText      State = "waiting_import_text"
	StateWaitingBlacklistID     State = "waiting_blacklist_id"
)

// acceptsText reports whether a plain text message is consumed as
// dialogue input in this state rather than ignored.
func (s State) acceptsText() bool {
	switch s {
	case StateWaitingPhone, StateWaitingCode, StateWaitingPassword,
		StateWaitingProxyURL, StateWaitingKeyword,
		StateWaitingImportText, StateWaitingBlacklistID:
		return true
	default:
		return false
	}
}
