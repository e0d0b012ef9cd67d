package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"github.com/rs/zerolog"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

const pageSize = 8

// StateStore persists the per-operator dialogue position.
type StateStore interface {
	GetOperatorState(ctx context.Context, operatorID int64) (string, []byte, error)
	SetOperatorState(ctx context.Context, operatorID int64, state string, payload []byte) error
}

// RuleStore is the keyword rule persistence the dialogue mutates.
type RuleStore interface {
	CreateKeyword(ctx context.Context, rule rules.Rule) (string, error)
	GetKeyword(ctx context.Context, id string) (rules.Rule, error)
	ListKeywords(ctx context.Context) ([]rules.Rule, error)
	ListKeywordsPage(ctx context.Context, limit, offset int) ([]rules.Rule, int, error)
	DeleteKeyword(ctx context.Context, id string) error
}

// BlacklistStore is the blocked-identity persistence the dialogue mutates.
type BlacklistStore interface {
	AddBlacklistEntry(ctx context.Context, entry blacklist.Entry) (string, error)
	ListBlacklistPage(ctx context.Context, limit, offset int) ([]blacklist.Entry, int, error)
	RemoveBlacklistEntry(ctx context.Context, id string) error
	RemoveBlacklistByTarget(ctx context.Context, targetID string, targetType blacklist.TargetType) error
}

// ConfigStore holds the destination chat and proxy settings.
type ConfigStore interface {
	TargetChat(ctx context.Context) (int64, string, error)
	SetTargetChat(ctx context.Context, chatID int64, title string) error
	Proxy(ctx context.Context) (domain.ProxyConfig, error)
	SetProxy(ctx context.Context, cfg domain.ProxyConfig) error
}

// Session is the authenticated account the dialogue logs in and out of.
type Session interface {
	Authenticated() bool
	StartLogin(ctx context.Context, phone string) error
	SubmitCode(ctx context.Context, code string) error
	SubmitPassword(ctx context.Context, password string) error
	Logout(ctx context.Context) error
	ListSendableChats(ctx context.Context) ([]domain.Chat, error)
	Self(ctx context.Context) (string, error)
}

// Pipeline is the monitoring loop the dialogue toggles.
type Pipeline interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
}

// Machine drives the operator dialogue. It holds no in-memory dialogue
// state; every turn loads and stores the operator's position.
type Machine struct {
	states    StateStore
	ruleStore RuleStore
	blacklist BlacklistStore
	config    ConfigStore
	session   Session
	pipeline  Pipeline
	logger    *zerolog.Logger
}

func NewMachine(
	states StateStore,
	ruleStore RuleStore,
	blacklistStore BlacklistStore,
	config ConfigStore,
	session Session,
	pipeline Pipeline,
	logger *zerolog.Logger,
) *Machine {
	return &Machine{
		states:    states,
		ruleStore: ruleStore,
		blacklist: blacklistStore,
		config:    config,
		session:   session,
		pipeline:  pipeline,
		logger:    logger,
	}
}

// HandleEvent processes one button press.
func (m *Machine) HandleEvent(ctx context.Context, operatorID int64, ev Event) (Reply, error) {
	state, payload, err := m.load(ctx, operatorID)
	if err != nil {
		return m.failure(), err
	}

	switch ev.Kind {
	case EventMainMenu, EventCancel:
		return m.toMainMenu(ctx, operatorID)
	case EventHelp:
		return m.toIdleReply(ctx, operatorID, helpText, [][]Button{{backButton()}})

	case EventKeywordMenu:
		return m.toIdleReply(ctx, operatorID, "🔑 Keyword rules", m.keywordMenu())
	case EventKeywordNew:
		return m.startKeywordCreation(ctx, operatorID)
	case EventKeywordMode:
		return m.selectKeywordMode(ctx, operatorID, state, payload, ev.Mode)
	case EventKeywordAction:
		return m.selectKeywordAction(ctx, operatorID, state, payload, ev.Action)
	case EventKeywordStyle:
		return m.toggleKeywordStyle(ctx, operatorID, state, payload, ev.Style)
	case EventKeywordCaseToggle:
		return m.toggleKeywordCase(ctx, operatorID, state, payload)
	case EventKeywordDone:
		return m.commitKeyword(ctx, operatorID, state, payload)
	case EventKeywordList:
		return m.keywordList(ctx, ev.Page)
	case EventKeywordDelete:
		return m.keywordDeletePrompt(ctx, ev.ID)
	case EventKeywordDeleteYes:
		return m.keywordDelete(ctx, ev.ID)
	case EventKeywordImport:
		return m.startImport(ctx, operatorID)
	case EventKeywordExport:
		return m.exportKeywords(ctx)

	case EventBlacklistMenu:
		return m.toIdleReply(ctx, operatorID, "🚫 Blacklist", m.blacklistMenu())
	case EventBlacklistAdd:
		return m.startBlacklistAdd(ctx, operatorID, payload, ev.TargetType)
	case EventBlacklistList:
		return m.blacklistList(ctx, ev.Page)
	case EventBlacklistDelete:
		return m.blacklistDeletePrompt(ctx, ev.ID, ev.Page)
	case EventBlacklistDeleteYes:
		return m.blacklistDelete(ctx, ev.ID)
	case EventBlock:
		return m.blockTarget(ctx, ev.TargetType, ev.TargetID)
	case EventUnblock:
		return m.unblockTarget(ctx, ev.TargetType, ev.TargetID)

	case EventAccountMenu:
		return m.toIdleReply(ctx, operatorID, "👤 Account", m.accountMenu())
	case EventLogin:
		return m.startLogin(ctx, operatorID)
	case EventLogout:
		return m.logout(ctx, operatorID)
	case EventAccountStatus:
		return m.accountStatus(ctx)
	case EventProxy:
		return m.proxyMenu(), nil
	case EventProxyType:
		return m.selectProxyType(ctx, operatorID, payload, ev.ProxyType)

	case EventMonitorMenu:
		return m.toIdleReply(ctx, operatorID, "📺 Monitoring", m.monitorMenu())
	case EventMonitorStart:
		return m.startMonitoring(ctx)
	case EventMonitorStop:
		return m.stopMonitoring()
	case EventMonitorStatus:
		return m.monitorStatus(ctx)
	case EventTargetMenu:
		return m.targetMenu(ctx, operatorID, payload)
	case EventTargetSelect:
		return m.selectTarget(ctx, operatorID, payload, ev.ChatID)
	}

	m.logger.Warn().Str("kind", string(ev.Kind)).Msg("unknown dialogue event")

	return m.toMainMenu(ctx, operatorID)
}

// HandleText processes one free-form operator message according to the
// current state. Text in a non-waiting state is answered with the main
// menu.
func (m *Machine) HandleText(ctx context.Context, operatorID int64, text string) (Reply, error) {
	state, payload, err := m.load(ctx, operatorID)
	if err != nil {
		return m.failure(), err
	}

	if !state.acceptsText() {
		return m.toMainMenu(ctx, operatorID)
	}

	switch state {
	case StateWaitingKeyword:
		return m.captureKeywordContent(ctx, operatorID, text)
	case StateWaitingImportText:
		return m.importKeywords(ctx, operatorID, text)
	case StateWaitingBlacklistID:
		return m.captureBlacklistID(ctx, operatorID, payload, text)
	case StateWaitingPhone:
		return m.capturePhone(ctx, operatorID, payload, text)
	case StateWaitingCode:
		return m.captureCode(ctx, operatorID, text)
	case StateWaitingPassword:
		return m.capturePassword(ctx, operatorID, text)
	case StateWaitingProxyURL:
		return m.captureProxyAddr(ctx, operatorID, payload, text)
	}

	return m.toMainMenu(ctx, operatorID)
}

func (m *Machine) load(ctx context.Context, operatorID int64) (State, Payload, error) {
	raw, data, err := m.states.GetOperatorState(ctx, operatorID)
	if err != nil {
		return StateIdle, Payload{}, fmt.Errorf("load operator state: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		// Corrupt payload resets the dialogue instead of wedging it.
		m.logger.Warn().Err(err).Msg("discarding undecodable dialogue payload")

		return StateIdle, Payload{}, nil
	}

	return State(raw), payload, nil
}

func (m *Machine) save(ctx context.Context, operatorID int64, state State, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dialogue payload: %w", err)
	}

	if err := m.states.SetOperatorState(ctx, operatorID, string(state), data); err != nil {
		return fmt.Errorf("save operator state: %w", err)
	}

	return nil
}

func (m *Machine) reset(ctx context.Context, operatorID int64) error {
	return m.save(ctx, operatorID, StateIdle, Payload{})
}

func (m *Machine) toMainMenu(ctx context.Context, operatorID int64) (Reply, error) {
	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return m.mainMenu(), nil
}

// toIdleReply resets the dialogue and shows the given menu.
func (m *Machine) toIdleReply(ctx context.Context, operatorID int64, title string, rows [][]Button) (Reply, error) {
	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return Reply{Text: title, Buttons: rows}, nil
}

// staleMenu answers a button press that no longer matches the dialogue
// position, e.g. after a restart or an abandoned flow.
func (m *Machine) staleMenu(ctx context.Context, operatorID int64) (Reply, error) {
	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	menu := m.mainMenu()
	menu.Text = "That menu is out of date.\n\n" + menu.Text

	return menu, nil
}

func (m *Machine) failure() Reply {
	return Reply{Text: "Something went wrong. Please try again."}
}

func (m *Machine) mainMenu() Reply {
	return Reply{
		Text: "📡 Message Monitor\n\nPick a section:",
		Buttons: [][]Button{
			{{Label: "🔑 Keywords", Event: Event{Kind: EventKeywordMenu}}},
			{{Label: "🚫 Blacklist", Event: Event{Kind: EventBlacklistMenu}}},
			{{Label: "👤 Account", Event: Event{Kind: EventAccountMenu}}},
			{{Label: "📺 Monitoring", Event: Event{Kind: EventMonitorMenu}}},
			{{Label: "❓ Help", Event: Event{Kind: EventHelp}}},
		},
	}
}

const helpText = `ℹ️ Help

Getting started:
1. Account → Log in
2. Keywords → New rule
3. Monitoring → Target chat
4. Monitoring → Start

Match types:
• Exact word: the whole message equals the rule text
• Contains: the message contains the rule text
• Regex: the pattern is searched anywhere in the message
• Fuzzy: segments separated by ? must all be present
• Sender ID: matches messages from a numeric user ID

Actions:
• Monitor: forward matching messages to the target chat
• Exclude: suppress matching messages, even if other rules match

Only chats the logged-in account is a member of are monitored.`

func (m *Machine) keywordMenu() [][]Button {
	return [][]Button{
		{
			{Label: "➕ New rule", Event: Event{Kind: EventKeywordNew}},
			{Label: "📋 List", Event: Event{Kind: EventKeywordList}},
		},
		{
			{Label: "📥 Import", Event: Event{Kind: EventKeywordImport}},
			{Label: "📤 Export", Event: Event{Kind: EventKeywordExport}},
		},
		{backButton()},
	}
}

func (m *Machine) blacklistMenu() [][]Button {
	return [][]Button{
		{
			{Label: "➕ Block user", Event: Event{Kind: EventBlacklistAdd, TargetType: blacklist.TargetUser}},
			{Label: "➕ Block group", Event: Event{Kind: EventBlacklistAdd, TargetType: blacklist.TargetGroup}},
		},
		{{Label: "📋 List", Event: Event{Kind: EventBlacklistList}}},
		{backButton()},
	}
}

func (m *Machine) accountMenu() [][]Button {
	return [][]Button{
		{
			{Label: "🔐 Log in", Event: Event{Kind: EventLogin}},
			{Label: "🚪 Log out", Event: Event{Kind: EventLogout}},
		},
		{
			{Label: "ℹ️ Status", Event: Event{Kind: EventAccountStatus}},
			{Label: "🌐 Proxy", Event: Event{Kind: EventProxy}},
		},
		{backButton()},
	}
}

func (m *Machine) monitorMenu() [][]Button {
	return [][]Button{
		{
			{Label: "▶️ Start", Event: Event{Kind: EventMonitorStart}},
			{Label: "⏹ Stop", Event: Event{Kind: EventMonitorStop}},
		},
		{
			{Label: "ℹ️ Status", Event: Event{Kind: EventMonitorStatus}},
			{Label: "🎯 Target chat", Event: Event{Kind: EventTargetMenu}},
		},
		{backButton()},
	}
}

func backButton() Button {
	return Button{Label: "⬅️ Back", Event: Event{Kind: EventMainMenu}}
}

func cancelButton() Button {
	return Button{Label: "✖️ Cancel", Event: Event{Kind: EventCancel}}
}

// escape sanitizes operator- and chat-supplied text before it is
// interpolated into replies, which are rendered with the HTML parse
// mode. Button labels are plain text and do not need it.
func escape(s string) string {
	return html.EscapeString(s)
}
