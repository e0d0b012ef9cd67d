// Package monitor wires source events through the blacklist filter,
// the matching engine, and the destination sender.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
	"github.com/luoyanglang/telegram-monitor/internal/platform/observability"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

// Event is one inbound message from the source session. ChatID is in
// bot-API form so it lines up with blacklist entries and view links.
type Event struct {
	Text       string
	SenderID   int64
	ChatID     int64
	MessageID  int
	SenderName string
	ChatTitle  string
	When       time.Time
}

// Source is the authenticated session the pipeline consumes from.
type Source interface {
	Authenticated() bool
	Subscribe(handler func(Event)) error
	Unsubscribe()
}

// Forward is a formatted message on its way to the target chat.
type Forward struct {
	TargetChatID int64
	HTML         string
	ViewURL      string
	SenderID     int64
	ChatID       int64
}

// Destination delivers forwards to the target chat.
type Destination interface {
	Forward(ctx context.Context, f Forward) error
}

// RuleSource provides the rule snapshot evaluated per message.
type RuleSource interface {
	ListKeywords(ctx context.Context) ([]rules.Rule, error)
	CountMonitorKeywords(ctx context.Context) (int, error)
}

// Blocker is the blacklist filter applied before rule evaluation.
type Blocker interface {
	Blocked(ctx context.Context, senderID, chatID int64) bool
}

// Config resolves the destination chat at start time.
type Config interface {
	TargetChat(ctx context.Context) (int64, string, error)
}

const (
	eventQueueSize     = 128
	defaultSendTimeout = 10 * time.Second
)

// Options tunes pipeline behavior.
type Options struct {
	// SendRPS bounds destination sends per second.
	SendRPS float64
	// SendTimeout bounds a single destination send.
	SendTimeout time.Duration
}

// Pipeline consumes source events while running and relays monitor
// matches to the target chat. Events are processed one at a time,
// preserving arrival order.
type Pipeline struct {
	source  Source
	dest    Destination
	store   RuleSource
	blocker Blocker
	cfg     Config
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zerolog.Logger

	mu       sync.Mutex
	running  bool
	targetID int64
	events   chan Event
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(source Source, dest Destination, store RuleSource, blocker Blocker, cfg Config, opts Options, logger *zerolog.Logger) *Pipeline {
	rps := opts.SendRPS
	if rps <= 0 {
		rps = 1
	}

	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	return &Pipeline{
		source:  source,
		dest:    dest,
		store:   store,
		blocker: blocker,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		timeout: timeout,
		logger:  logger,
	}
}

// Start verifies the preconditions and begins consuming source events.
// Each unmet precondition fails with its own sentinel so the operator
// learns exactly what is missing.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return coreerrors.ErrAlreadyRunning
	}

	if !p.source.Authenticated() {
		return coreerrors.ErrNotAuthenticated
	}

	targetID, _, err := p.cfg.TargetChat(ctx)
	if err != nil {
		return fmt.Errorf("load target chat: %w", err)
	}

	if targetID == 0 {
		return coreerrors.ErrNoTargetChat
	}

	monitorCount, err := p.store.CountMonitorKeywords(ctx)
	if err != nil {
		return fmt.Errorf("count monitor rules: %w", err)
	}

	if monitorCount == 0 {
		return coreerrors.ErrNoMonitorRules
	}

	runCtx, cancel := context.WithCancel(context.Background())

	p.targetID = targetID
	p.events = make(chan Event, eventQueueSize)
	p.cancel = cancel
	p.done = make(chan struct{})

	events := p.events

	if err := p.source.Subscribe(func(ev Event) {
		select {
		case events <- ev:
		default:
			observability.EventQueueDropped.Inc()
			p.logger.Warn().Int64("chat_id", ev.ChatID).Msg("event queue full, dropping message")
		}
	}); err != nil {
		cancel()

		return fmt.Errorf("subscribe to source: %w", err)
	}

	p.running = true
	observability.PipelineRunning.Set(1)
	p.logger.Info().Int64("target_chat_id", targetID).Msg("Monitoring started")

	go p.run(runCtx, events)

	return nil
}

// Stop detaches the event subscription. An event already dequeued is
// allowed to finish.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return coreerrors.ErrNotRunning
	}

	p.source.Unsubscribe()
	p.cancel()
	<-p.done

	p.running = false
	observability.PipelineRunning.Set(0)
	p.logger.Info().Msg("Monitoring stopped")

	return nil
}

// Running reports whether the pipeline is consuming events.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.running
}

func (p *Pipeline) run(ctx context.Context, events <-chan Event) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			p.process(ctx, ev)
		}
	}
}

// process runs one event to completion: filter, match, format, send.
// Failures are logged and isolated to the single message.
func (p *Pipeline) process(ctx context.Context, ev Event) {
	observability.MessagesSeen.Inc()

	if p.blocker.Blocked(ctx, ev.SenderID, ev.ChatID) {
		observability.MessagesDropped.WithLabelValues("blacklisted").Inc()

		return
	}

	if strings.TrimSpace(ev.Text) == "" {
		observability.MessagesDropped.WithLabelValues("no_text").Inc()

		return
	}

	ruleSet, err := p.store.ListKeywords(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to load rules, dropping message")
		observability.MessagesDropped.WithLabelValues("rule_load_error").Inc()

		return
	}

	decision := rules.Evaluate(ruleSet, ev.Text, ev.SenderID)
	if decision.Suppress {
		observability.MessagesDropped.WithLabelValues("excluded").Inc()

		return
	}

	if !decision.Forward() {
		observability.MessagesDropped.WithLabelValues("no_match").Inc()

		return
	}

	if err := p.send(ctx, ev, decision.Matched); err != nil {
		p.logger.Error().Err(err).Int64("chat_id", ev.ChatID).Int("msg_id", ev.MessageID).
			Msg("failed to forward message")
		observability.MessagesDropped.WithLabelValues("send_error").Inc()

		return
	}

	observability.MessagesForwarded.Inc()
}

func (p *Pipeline) send(ctx context.Context, ev Event, matched []rules.Rule) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	err := p.dest.Forward(sendCtx, Forward{
		TargetChatID: p.targetID,
		HTML:         buildForwardHTML(ev, matched),
		ViewURL:      messageLink(ev.ChatID, ev.MessageID),
		SenderID:     ev.SenderID,
		ChatID:       ev.ChatID,
	})

	observability.ForwardDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("destination send: %w", err)
	}

	return nil
}
