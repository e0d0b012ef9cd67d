package conversation

import (
	"context"
	"fmt"
	"strconv"

	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
)

func (m *Machine) startMonitoring(ctx context.Context) (Reply, error) {
	err := m.pipeline.Start(ctx)

	switch {
	case err == nil:
		return Reply{Text: "▶️ Monitoring started.", Buttons: m.monitorMenu()}, nil
	case coreerrors.Is(err, coreerrors.ErrAlreadyRunning):
		return Reply{Text: "Monitoring is already running.", Buttons: m.monitorMenu()}, nil
	case coreerrors.Is(err, coreerrors.ErrNotAuthenticated):
		return Reply{Text: "⚠️ Log in to the account first (Account → Log in).", Buttons: m.monitorMenu()}, nil
	case coreerrors.Is(err, coreerrors.ErrNoTargetChat):
		return Reply{Text: "⚠️ Pick a target chat first (Monitoring → Target chat).", Buttons: m.monitorMenu()}, nil
	case coreerrors.Is(err, coreerrors.ErrNoMonitorRules):
		return Reply{Text: "⚠️ Add at least one monitor rule first (Keywords → New rule).", Buttons: m.monitorMenu()}, nil
	default:
		m.logger.Error().Err(err).Msg("start monitoring")

		return m.failure(), err
	}
}

func (m *Machine) stopMonitoring() (Reply, error) {
	err := m.pipeline.Stop()

	switch {
	case err == nil:
		return Reply{Text: "⏹ Monitoring stopped.", Buttons: m.monitorMenu()}, nil
	case coreerrors.Is(err, coreerrors.ErrNotRunning):
		return Reply{Text: "Monitoring is not running.", Buttons: m.monitorMenu()}, nil
	default:
		m.logger.Error().Err(err).Msg("stop monitoring")

		return m.failure(), err
	}
}

func (m *Machine) monitorStatus(ctx context.Context) (Reply, error) {
	status := "⏹ stopped"
	if m.pipeline.Running() {
		status = "▶️ running"
	}

	chatID, title, err := m.config.TargetChat(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("load target chat")

		return m.failure(), err
	}

	target := "not set"

	switch {
	case title != "":
		target = escape(title)
	case chatID != 0:
		target = strconv.FormatInt(chatID, 10)
	}

	text := fmt.Sprintf("Monitoring: %s\nTarget chat: %s", status, target)

	return Reply{Text: text, Buttons: m.monitorMenu()}, nil
}

// targetMenu lists the chats the session can post to. Titles are kept
// in the payload because button events only carry the chat ID.
func (m *Machine) targetMenu(ctx context.Context, operatorID int64, payload Payload) (Reply, error) {
	if !m.session.Authenticated() {
		return Reply{Text: "⚠️ Log in to the account first (Account → Log in).", Buttons: m.monitorMenu()}, nil
	}

	chats, err := m.session.ListSendableChats(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("list sendable chats")

		return m.failure(), err
	}

	if len(chats) == 0 {
		return Reply{Text: "The account has no chats it can post to.", Buttons: m.monitorMenu()}, nil
	}

	const maxOffered = 24
	if len(chats) > maxOffered {
		chats = chats[:maxOffered]
	}

	payload = Payload{Targets: make(map[string]string, len(chats))}
	rows := make([][]Button, 0, len(chats)+1)

	for _, chat := range chats {
		payload.Targets[strconv.FormatInt(chat.ID, 10)] = chat.Title

		rows = append(rows, []Button{{
			Label: clip(chat.Title, 32),
			Event: Event{Kind: EventTargetSelect, ChatID: chat.ID},
		}})
	}

	rows = append(rows, []Button{cancelButton()})

	if err := m.save(ctx, operatorID, StateIdle, payload); err != nil {
		return m.failure(), err
	}

	return Reply{Text: "Pick the chat to forward matches to:", Buttons: rows}, nil
}

func (m *Machine) selectTarget(ctx context.Context, operatorID int64, payload Payload, chatID int64) (Reply, error) {
	if chatID == 0 {
		return m.staleMenu(ctx, operatorID)
	}

	title := payload.Targets[strconv.FormatInt(chatID, 10)]

	if err := m.config.SetTargetChat(ctx, chatID, title); err != nil {
		m.logger.Error().Err(err).Msg("save target chat")

		return m.failure(), err
	}

	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	display := escape(title)
	if display == "" {
		display = strconv.FormatInt(chatID, 10)
	}

	return Reply{
		Text:    fmt.Sprintf("🎯 Matches will be forwarded to %s.", display),
		Buttons: m.monitorMenu(),
	}, nil
}
