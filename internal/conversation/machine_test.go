package conversation

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

const operatorID = int64(100)

type memStateStore struct {
	state   string
	payload []byte
}

func (s *memStateStore) GetOperatorState(context.Context, int64) (string, []byte, error) {
	if s.state == "" {
		return "idle", []byte("{}"), nil
	}

	return s.state, s.payload, nil
}

func (s *memStateStore) SetOperatorState(_ context.Context, _ int64, state string, payload []byte) error {
	s.state = state
	s.payload = payload

	return nil
}

type memRuleStore struct {
	ruleSet []rules.Rule
	nextID  int
}

func (s *memRuleStore) CreateKeyword(_ context.Context, rule rules.Rule) (string, error) {
	s.nextID++
	rule.ID = strconv.Itoa(s.nextID)
	s.ruleSet = append(s.ruleSet, rule)

	return rule.ID, nil
}

func (s *memRuleStore) GetKeyword(_ context.Context, id string) (rules.Rule, error) {
	for _, rule := range s.ruleSet {
		if rule.ID == id {
			return rule, nil
		}
	}

	return rules.Rule{}, coreerrors.ErrRuleNotFound
}

func (s *memRuleStore) ListKeywords(context.Context) ([]rules.Rule, error) {
	return s.ruleSet, nil
}

func (s *memRuleStore) ListKeywordsPage(_ context.Context, limit, offset int) ([]rules.Rule, int, error) {
	total := len(s.ruleSet)
	if offset >= total {
		return nil, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return s.ruleSet[offset:end], total, nil
}

func (s *memRuleStore) DeleteKeyword(_ context.Context, id string) error {
	for i, rule := range s.ruleSet {
		if rule.ID == id {
			s.ruleSet = append(s.ruleSet[:i], s.ruleSet[i+1:]...)

			return nil
		}
	}

	return coreerrors.ErrRuleNotFound
}

type memBlacklistStore struct {
	entries []blacklist.Entry
	nextID  int
}

func (s *memBlacklistStore) AddBlacklistEntry(_ context.Context, entry blacklist.Entry) (string, error) {
	for _, existing := range s.entries {
		if existing.TargetID == entry.TargetID && existing.TargetType == entry.TargetType {
			return "", coreerrors.ErrDuplicateEntry
		}
	}

	s.nextID++
	entry.ID = strconv.Itoa(s.nextID)
	s.entries = append(s.entries, entry)

	return entry.ID, nil
}

func (s *memBlacklistStore) ListBlacklistPage(_ context.Context, limit, offset int) ([]blacklist.Entry, int, error) {
	total := len(s.entries)
	if offset >= total {
		return nil, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return s.entries[offset:end], total, nil
}

func (s *memBlacklistStore) RemoveBlacklistEntry(_ context.Context, id string) error {
	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)

			return nil
		}
	}

	return coreerrors.ErrEntryNotFound
}

func (s *memBlacklistStore) RemoveBlacklistByTarget(_ context.Context, targetID string, targetType blacklist.TargetType) error {
	for i, entry := range s.entries {
		if entry.TargetID == targetID && entry.TargetType == targetType {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)

			return nil
		}
	}

	return coreerrors.ErrEntryNotFound
}

type memConfigStore struct {
	targetID    int64
	targetTitle string
	proxy       domain.ProxyConfig
}

func (s *memConfigStore) TargetChat(context.Context) (int64, string, error) {
	return s.targetID, s.targetTitle, nil
}

func (s *memConfigStore) SetTargetChat(_ context.Context, chatID int64, title string) error {
	s.targetID = chatID
	s.targetTitle = title

	return nil
}

func (s *memConfigStore) Proxy(context.Context) (domain.ProxyConfig, error) {
	if s.proxy.Type == "" {
		return domain.ProxyConfig{Type: domain.ProxyNone}, nil
	}

	return s.proxy, nil
}

func (s *memConfigStore) SetProxy(_ context.Context, cfg domain.ProxyConfig) error {
	s.proxy = cfg

	return nil
}

type fakeSession struct {
	authenticated bool
	passwordAsked bool
	loginPhone    string
	chats         []domain.Chat
	codeErr       error
}

func (s *fakeSession) Authenticated() bool { return s.authenticated }

func (s *fakeSession) StartLogin(_ context.Context, phone string) error {
	s.loginPhone = phone

	return nil
}

func (s *fakeSession) SubmitCode(context.Context, string) error {
	if s.codeErr != nil {
		return s.codeErr
	}

	if s.passwordAsked {
		return coreerrors.ErrPasswordRequired
	}

	s.authenticated = true

	return nil
}

func (s *fakeSession) SubmitPassword(context.Context, string) error {
	s.authenticated = true

	return nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.authenticated = false

	return nil
}

func (s *fakeSession) ListSendableChats(context.Context) ([]domain.Chat, error) {
	return s.chats, nil
}

func (s *fakeSession) Self(context.Context) (string, error) {
	return "Test Account", nil
}

type fakePipeline struct {
	running  bool
	startErr error
}

func (p *fakePipeline) Start(context.Context) error {
	if p.startErr != nil {
		return p.startErr
	}

	if p.running {
		return coreerrors.ErrAlreadyRunning
	}

	p.running = true

	return nil
}

func (p *fakePipeline) Stop() error {
	if !p.running {
		return coreerrors.ErrNotRunning
	}

	p.running = false

	return nil
}

func (p *fakePipeline) Running() bool { return p.running }

type fixture struct {
	machine   *Machine
	states    *memStateStore
	ruleStore *memRuleStore
	blacklist *memBlacklistStore
	config    *memConfigStore
	session   *fakeSession
	pipeline  *fakePipeline
}

func newFixture() *fixture {
	logger := zerolog.Nop()
	f := &fixture{
		states:    &memStateStore{},
		ruleStore: &memRuleStore{},
		blacklist: &memBlacklistStore{},
		config:    &memConfigStore{},
		session:   &fakeSession{},
		pipeline:  &fakePipeline{},
	}

	f.machine = NewMachine(f.states, f.ruleStore, f.blacklist, f.config, f.session, f.pipeline, &logger)

	return f
}

func (f *fixture) press(t *testing.T, ev Event) Reply {
	t.Helper()

	reply, err := f.machine.HandleEvent(context.Background(), operatorID, ev)
	require.NoError(t, err)

	return reply
}

func (f *fixture) send(t *testing.T, text string) Reply {
	t.Helper()

	reply, err := f.machine.HandleText(context.Background(), operatorID, text)
	require.NoError(t, err)

	return reply
}

func findButton(t *testing.T, reply Reply, label string) Event {
	t.Helper()

	for _, row := range reply.Buttons {
		for _, button := range row {
			if button.Label == label {
				return button.Event
			}
		}
	}

	t.Fatalf("button %q not found in reply %q", label, reply.Text)

	return Event{}
}

func TestRuleCreationDialogue(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordNew})
	assert.Equal(t, string(StateWaitingKeyword), f.states.state)

	reply := f.send(t, "newkeyword")
	assert.Equal(t, string(StateSelectingKeywordType), f.states.state)
	assert.Contains(t, reply.Text, "newkeyword")

	f.press(t, Event{Kind: EventKeywordMode, Mode: rules.ModeContains})
	assert.Equal(t, string(StateSelectingKeywordAction), f.states.state)

	f.press(t, Event{Kind: EventKeywordAction, Action: rules.ActionMonitor})
	assert.Equal(t, string(StateSelectingKeywordStyle), f.states.state)

	f.press(t, Event{Kind: EventKeywordStyle, Style: rules.StyleBold})

	reply = f.press(t, Event{Kind: EventKeywordDone})
	assert.Contains(t, reply.Text, "saved")
	assert.Equal(t, string(StateIdle), f.states.state)

	require.Len(t, f.ruleStore.ruleSet, 1)

	rule := f.ruleStore.ruleSet[0]
	assert.Equal(t, "newkeyword", rule.Content)
	assert.Equal(t, rules.ModeContains, rule.Mode)
	assert.Equal(t, rules.ActionMonitor, rule.Action)
	assert.Equal(t, rules.StyleBold, rule.Styles)
	assert.False(t, rule.CaseSensitive)
}

func TestHelpScreen(t *testing.T) {
	f := newFixture()

	// Help is reachable from the main menu and resets the dialogue.
	menu := f.press(t, Event{Kind: EventMainMenu})
	ev := findButton(t, menu, "❓ Help")

	reply := f.press(t, ev)
	assert.Contains(t, reply.Text, "Getting started")
	assert.Contains(t, reply.Text, "Fuzzy")
	assert.Equal(t, string(StateIdle), f.states.state)

	findButton(t, reply, "⬅️ Back")
}

func TestRuleContentEscapedInReplies(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordNew})

	reply := f.send(t, "<b>alert</b>")
	assert.Contains(t, reply.Text, "&lt;b&gt;alert&lt;/b&gt;")
	assert.NotContains(t, reply.Text, "<b>")

	f.press(t, Event{Kind: EventKeywordMode, Mode: rules.ModeContains})
	f.press(t, Event{Kind: EventKeywordAction, Action: rules.ActionMonitor})

	reply = f.press(t, Event{Kind: EventKeywordDone})
	assert.Contains(t, reply.Text, "saved")
	assert.NotContains(t, reply.Text, "<b>")

	// The stored rule keeps the raw content; only reply text is escaped.
	require.Len(t, f.ruleStore.ruleSet, 1)
	assert.Equal(t, "<b>alert</b>", f.ruleStore.ruleSet[0].Content)

	reply = f.press(t, Event{Kind: EventKeywordList})
	assert.NotContains(t, reply.Text, "<b>")
}

func TestEmptyRuleContentReprompts(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordNew})

	reply := f.send(t, "   ")
	assert.Contains(t, reply.Text, "empty")
	assert.Equal(t, string(StateWaitingKeyword), f.states.state)
	assert.Empty(t, f.ruleStore.ruleSet)
}

func TestInvalidRegexNeverStored(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordNew})
	f.send(t, "(")

	reply := f.press(t, Event{Kind: EventKeywordMode, Mode: rules.ModeRegex})
	assert.Contains(t, reply.Text, "regular expression")
	assert.Equal(t, string(StateSelectingKeywordType), f.states.state)
	assert.Empty(t, f.ruleStore.ruleSet)

	// The same text is still usable with a non-regex type.
	f.press(t, Event{Kind: EventKeywordMode, Mode: rules.ModeContains})
	assert.Equal(t, string(StateSelectingKeywordAction), f.states.state)
}

func TestCaseToggleRoundTrip(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordNew})
	f.send(t, "Cat")
	f.press(t, Event{Kind: EventKeywordMode, Mode: rules.ModeExactWord})
	f.press(t, Event{Kind: EventKeywordAction, Action: rules.ActionMonitor})
	f.press(t, Event{Kind: EventKeywordCaseToggle})
	f.press(t, Event{Kind: EventKeywordDone})

	require.Len(t, f.ruleStore.ruleSet, 1)
	assert.True(t, f.ruleStore.ruleSet[0].CaseSensitive)
}

func TestImportRules(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordImport})
	assert.Equal(t, string(StateWaitingImportText), f.states.state)

	reply := f.send(t, "alpha\n\n  beta  \n")
	assert.Contains(t, reply.Text, "Imported 2 of 2")
	assert.Equal(t, string(StateIdle), f.states.state)

	require.Len(t, f.ruleStore.ruleSet, 2)

	for _, rule := range f.ruleStore.ruleSet {
		assert.Equal(t, rules.ModeContains, rule.Mode)
		assert.Equal(t, rules.ActionMonitor, rule.Action)
	}
}

func TestImportRejectsEmptySubmission(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordImport})

	reply := f.send(t, "\n   \n")
	assert.Contains(t, reply.Text, "0 rules")
	assert.Equal(t, string(StateWaitingImportText), f.states.state)
	assert.Empty(t, f.ruleStore.ruleSet)
}

func TestExportKeywords(t *testing.T) {
	f := newFixture()

	_, err := f.ruleStore.CreateKeyword(context.Background(), rules.Rule{
		Content: "alpha", Mode: rules.ModeContains, Action: rules.ActionMonitor,
	})
	require.NoError(t, err)

	reply := f.press(t, Event{Kind: EventKeywordExport})
	require.NotNil(t, reply.Document)
	assert.Equal(t, "keywords.json", reply.Document.Name)
	assert.Contains(t, string(reply.Document.Data), `"alpha"`)
	assert.Contains(t, string(reply.Document.Data), `"contains"`)
}

func TestDuplicateBlacklistEntry(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventBlacklistAdd, TargetType: blacklist.TargetUser})
	assert.Equal(t, string(StateWaitingBlacklistID), f.states.state)

	reply := f.send(t, "@42 spammer")
	assert.Contains(t, reply.Text, "Blocked")
	assert.Equal(t, string(StateIdle), f.states.state)
	require.Len(t, f.blacklist.entries, 1)
	assert.Equal(t, "42", f.blacklist.entries[0].TargetID)
	assert.Equal(t, "spammer", f.blacklist.entries[0].Name)

	f.press(t, Event{Kind: EventBlacklistAdd, TargetType: blacklist.TargetUser})

	reply = f.send(t, "42")
	assert.Contains(t, reply.Text, "already blocked")
	assert.Equal(t, string(StateWaitingBlacklistID), f.states.state)
	assert.Len(t, f.blacklist.entries, 1)
}

func TestBlacklistRejectsNonNumericID(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventBlacklistAdd, TargetType: blacklist.TargetGroup})

	reply := f.send(t, "not-a-number")
	assert.Contains(t, reply.Text, "must be a number")
	assert.Equal(t, string(StateWaitingBlacklistID), f.states.state)
	assert.Empty(t, f.blacklist.entries)
}

func TestQuickBlockAndUnblock(t *testing.T) {
	f := newFixture()

	reply := f.press(t, Event{Kind: EventBlock, TargetType: blacklist.TargetUser, TargetID: "999"})
	assert.Contains(t, reply.Toast, "Blocked")
	require.Len(t, f.blacklist.entries, 1)

	reply = f.press(t, Event{Kind: EventBlock, TargetType: blacklist.TargetUser, TargetID: "999"})
	assert.Contains(t, reply.Toast, "already blocked")
	assert.Len(t, f.blacklist.entries, 1)

	reply = f.press(t, Event{Kind: EventUnblock, TargetType: blacklist.TargetUser, TargetID: "999"})
	assert.Contains(t, reply.Toast, "Unblocked")
	assert.Empty(t, f.blacklist.entries)
}

func TestLoginFlowWithPassword(t *testing.T) {
	f := newFixture()
	f.session.passwordAsked = true

	f.press(t, Event{Kind: EventLogin})
	assert.Equal(t, string(StateWaitingPhone), f.states.state)

	reply := f.send(t, "12345")
	assert.Contains(t, reply.Text, "international format")
	assert.Equal(t, string(StateWaitingPhone), f.states.state)

	f.send(t, "+15551234567")
	assert.Equal(t, string(StateWaitingCode), f.states.state)
	assert.Equal(t, "+15551234567", f.session.loginPhone)

	reply = f.send(t, "12345")
	assert.Contains(t, reply.Text, "password")
	assert.Equal(t, string(StateWaitingPassword), f.states.state)

	reply = f.send(t, "hunter2")
	assert.Contains(t, reply.Text, "Logged in")
	assert.Equal(t, string(StateIdle), f.states.state)
	assert.True(t, f.session.authenticated)
}

func TestMonitorStartPreconditions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not authenticated", coreerrors.ErrNotAuthenticated, "Log in"},
		{"no target", coreerrors.ErrNoTargetChat, "target chat"},
		{"no rules", coreerrors.ErrNoMonitorRules, "monitor rule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.pipeline.startErr = tt.err

			reply := f.press(t, Event{Kind: EventMonitorStart})
			assert.Contains(t, reply.Text, tt.want)
		})
	}
}

func TestTargetSelectionKeepsTitle(t *testing.T) {
	f := newFixture()
	f.session.authenticated = true
	f.session.chats = []domain.Chat{
		{ID: -1001234567890, Title: "My Channel", Kind: domain.ChatKindChannel},
		{ID: 42, Title: "Saved Messages", Kind: domain.ChatKindUser},
	}

	reply := f.press(t, Event{Kind: EventTargetMenu})
	ev := findButton(t, reply, "My Channel")

	reply = f.press(t, ev)
	assert.Contains(t, reply.Text, "My Channel")
	assert.Equal(t, int64(-1001234567890), f.config.targetID)
	assert.Equal(t, "My Channel", f.config.targetTitle)
}

func TestProxyDialogue(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventProxy})
	f.press(t, Event{Kind: EventProxyType, ProxyType: domain.ProxySocks5})
	assert.Equal(t, string(StateWaitingProxyURL), f.states.state)

	reply := f.send(t, "no-port")
	assert.Contains(t, reply.Text, "host:port")
	assert.Equal(t, string(StateWaitingProxyURL), f.states.state)

	reply = f.send(t, "127.0.0.1:1080")
	assert.Contains(t, reply.Text, "Proxy set")
	assert.Equal(t, string(StateIdle), f.states.state)
	assert.Equal(t, domain.ProxySocks5, f.config.proxy.Type)
	assert.Equal(t, "127.0.0.1:1080", f.config.proxy.Addr)
}

func TestMTProxyNeedsSecret(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventProxy})
	f.press(t, Event{Kind: EventProxyType, ProxyType: domain.ProxyMTProxy})

	reply := f.send(t, "proxy.example.com:443")
	assert.Contains(t, reply.Text, "secret")

	reply = f.send(t, "proxy.example.com:443 dd00112233445566778899aabbccddeeff")
	assert.Contains(t, reply.Text, "Proxy set")
	assert.Equal(t, "dd00112233445566778899aabbccddeeff", f.config.proxy.Secret)
}

func TestStaleStyleEventResetsDialogue(t *testing.T) {
	f := newFixture()

	reply := f.press(t, Event{Kind: EventKeywordStyle, Style: rules.StyleBold})
	assert.Contains(t, reply.Text, "out of date")
	assert.Equal(t, string(StateIdle), f.states.state)
}

func TestAbandonedFlowOverwritten(t *testing.T) {
	f := newFixture()

	f.press(t, Event{Kind: EventKeywordNew})
	f.send(t, "halfway")

	// Navigating away mid-flow needs no cleanup.
	f.press(t, Event{Kind: EventBlacklistAdd, TargetType: blacklist.TargetUser})
	assert.Equal(t, string(StateWaitingBlacklistID), f.states.state)

	f.send(t, "7")
	require.Len(t, f.blacklist.entries, 1)
	assert.Empty(t, f.ruleStore.ruleSet)
}

func TestKeywordListPagination(t *testing.T) {
	f := newFixture()

	for i := 0; i < pageSize+3; i++ {
		_, err := f.ruleStore.CreateKeyword(context.Background(), rules.Rule{
			Content: fmt.Sprintf("rule-%02d", i), Mode: rules.ModeContains, Action: rules.ActionMonitor,
		})
		require.NoError(t, err)
	}

	reply := f.press(t, Event{Kind: EventKeywordList})
	assert.Contains(t, reply.Text, fmt.Sprintf("1–%d of %d", pageSize, pageSize+3))

	next := findButton(t, reply, "➡️")

	reply = f.press(t, next)
	assert.Contains(t, reply.Text, fmt.Sprintf("%d–%d of %d", pageSize+1, pageSize+3, pageSize+3))
}
