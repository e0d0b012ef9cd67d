package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

type fakeSource struct {
	mu            sync.Mutex
	authenticated bool
	handler       func(Event)
	subscribed    bool
}

func (f *fakeSource) Authenticated() bool { return f.authenticated }

func (f *fakeSource) Subscribe(handler func(Event)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handler = handler
	f.subscribed = true

	return nil
}

func (f *fakeSource) Unsubscribe() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handler = nil
	f.subscribed = false
}

func (f *fakeSource) emit(ev Event) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}

type fakeDest struct {
	mu       sync.Mutex
	forwards []Forward
	failFor  map[int64]error
}

func (f *fakeDest) Forward(_ context.Context, fw Forward) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failFor[fw.SenderID]; ok {
		return err
	}

	f.forwards = append(f.forwards, fw)

	return nil
}

func (f *fakeDest) sent() []Forward {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Forward, len(f.forwards))
	copy(out, f.forwards)

	return out
}

type fakeRuleStore struct {
	mu        sync.Mutex
	ruleSet   []rules.Rule
	listCalls int
	listErr   error
}

func (f *fakeRuleStore) ListKeywords(context.Context) ([]rules.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++

	return f.ruleSet, f.listErr
}

func (f *fakeRuleStore) CountMonitorKeywords(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0

	for _, r := range f.ruleSet {
		if r.Action == rules.ActionMonitor {
			count++
		}
	}

	return count, nil
}

func (f *fakeRuleStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.listCalls
}

type fakeBlocker struct {
	blockedSenders map[int64]bool
}

func (f *fakeBlocker) Blocked(_ context.Context, senderID, _ int64) bool {
	return f.blockedSenders[senderID]
}

type fakeConfig struct {
	targetID int64
	title    string
	err      error
}

func (f *fakeConfig) TargetChat(context.Context) (int64, string, error) {
	return f.targetID, f.title, f.err
}

func newTestPipeline(source *fakeSource, dest *fakeDest, store *fakeRuleStore, blocker *fakeBlocker, cfg *fakeConfig) *Pipeline {
	logger := zerolog.Nop()

	return New(source, dest, store, blocker, cfg, Options{SendRPS: 1000}, &logger)
}

func monitorRule(id, content string) rules.Rule {
	return rules.Rule{ID: id, Content: content, Mode: rules.ModeContains, Action: rules.ActionMonitor}
}

func TestStartPreconditions(t *testing.T) {
	ruleSet := []rules.Rule{monitorRule("1", "offer")}

	tests := []struct {
		name    string
		source  *fakeSource
		store   *fakeRuleStore
		cfg     *fakeConfig
		wantErr error
	}{
		{
			name:    "not authenticated",
			source:  &fakeSource{authenticated: false},
			store:   &fakeRuleStore{ruleSet: ruleSet},
			cfg:     &fakeConfig{targetID: 10},
			wantErr: coreerrors.ErrNotAuthenticated,
		},
		{
			name:    "no target chat",
			source:  &fakeSource{authenticated: true},
			store:   &fakeRuleStore{ruleSet: ruleSet},
			cfg:     &fakeConfig{targetID: 0},
			wantErr: coreerrors.ErrNoTargetChat,
		},
		{
			name:    "no monitor rules",
			source:  &fakeSource{authenticated: true},
			store:   &fakeRuleStore{ruleSet: nil},
			cfg:     &fakeConfig{targetID: 10},
			wantErr: coreerrors.ErrNoMonitorRules,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.source, &fakeDest{}, tt.store, &fakeBlocker{}, tt.cfg)

			err := p.Start(context.Background())

			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, p.Running())
		})
	}
}

func TestStartStopLifecycle(t *testing.T) {
	source := &fakeSource{authenticated: true}
	store := &fakeRuleStore{ruleSet: []rules.Rule{monitorRule("1", "offer")}}
	p := newTestPipeline(source, &fakeDest{}, store, &fakeBlocker{}, &fakeConfig{targetID: 10})

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	assert.True(t, source.subscribed)

	require.ErrorIs(t, p.Start(context.Background()), coreerrors.ErrAlreadyRunning)

	require.NoError(t, p.Stop())
	assert.False(t, p.Running())
	assert.False(t, source.subscribed)

	require.ErrorIs(t, p.Stop(), coreerrors.ErrNotRunning)
}

func TestBlacklistedSenderNeverReachesRuleEvaluation(t *testing.T) {
	source := &fakeSource{authenticated: true}
	dest := &fakeDest{}
	store := &fakeRuleStore{ruleSet: []rules.Rule{monitorRule("1", "offer")}}
	blocker := &fakeBlocker{blockedSenders: map[int64]bool{999: true}}
	p := newTestPipeline(source, dest, store, blocker, &fakeConfig{targetID: 10})

	require.NoError(t, p.Start(context.Background()))

	defer func() { _ = p.Stop() }()

	baseline := store.calls()

	source.emit(Event{Text: "special offer", SenderID: 999, ChatID: 1, MessageID: 1})
	source.emit(Event{Text: "special offer", SenderID: 1, ChatID: 1, MessageID: 2})

	require.Eventually(t, func() bool {
		return len(dest.sent()) == 1
	}, time.Second, 5*time.Millisecond)

	// Only the unblocked message loads the rule snapshot.
	assert.Equal(t, baseline+1, store.calls())
	assert.Equal(t, int64(1), dest.sent()[0].SenderID)
}

func TestPipelineDropsSuppressedAndEmptyMessages(t *testing.T) {
	source := &fakeSource{authenticated: true}
	dest := &fakeDest{}
	store := &fakeRuleStore{ruleSet: []rules.Rule{
		{ID: "1", Content: "spam", Mode: rules.ModeContains, Action: rules.ActionExclude},
		monitorRule("2", "offer"),
	}}
	p := newTestPipeline(source, dest, store, &fakeBlocker{}, &fakeConfig{targetID: 10})

	require.NoError(t, p.Start(context.Background()))

	defer func() { _ = p.Stop() }()

	source.emit(Event{Text: "special offer spam", SenderID: 1, ChatID: 1, MessageID: 1})
	source.emit(Event{Text: "   ", SenderID: 1, ChatID: 1, MessageID: 2})
	source.emit(Event{Text: "nothing to see", SenderID: 1, ChatID: 1, MessageID: 3})
	source.emit(Event{Text: "special offer", SenderID: 1, ChatID: 1, MessageID: 4})

	require.Eventually(t, func() bool {
		return len(dest.sent()) == 1
	}, time.Second, 5*time.Millisecond)

	fw := dest.sent()[0]
	assert.Equal(t, int64(10), fw.TargetChatID)
	assert.Contains(t, fw.HTML, "special offer")
}

func TestSendFailureDoesNotStopPipeline(t *testing.T) {
	source := &fakeSource{authenticated: true}
	dest := &fakeDest{failFor: map[int64]error{7: errors.New("bad request")}}
	store := &fakeRuleStore{ruleSet: []rules.Rule{monitorRule("1", "offer")}}
	p := newTestPipeline(source, dest, store, &fakeBlocker{}, &fakeConfig{targetID: 10})

	require.NoError(t, p.Start(context.Background()))

	defer func() { _ = p.Stop() }()

	source.emit(Event{Text: "offer one", SenderID: 7, ChatID: 1, MessageID: 1})
	source.emit(Event{Text: "offer two", SenderID: 8, ChatID: 1, MessageID: 2})

	require.Eventually(t, func() bool {
		return len(dest.sent()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.True(t, p.Running())
	assert.Equal(t, int64(8), dest.sent()[0].SenderID)
}

func TestPipelinePreservesArrivalOrder(t *testing.T) {
	source := &fakeSource{authenticated: true}
	dest := &fakeDest{}
	store := &fakeRuleStore{ruleSet: []rules.Rule{monitorRule("1", "offer")}}
	p := newTestPipeline(source, dest, store, &fakeBlocker{}, &fakeConfig{targetID: 10})

	require.NoError(t, p.Start(context.Background()))

	defer func() { _ = p.Stop() }()

	for i := 1; i <= 5; i++ {
		source.emit(Event{Text: "offer", SenderID: int64(i), ChatID: 1, MessageID: i})
	}

	require.Eventually(t, func() bool {
		return len(dest.sent()) == 5
	}, time.Second, 5*time.Millisecond)

	for i, fw := range dest.sent() {
		assert.Equal(t, int64(i+1), fw.SenderID)
	}
}
