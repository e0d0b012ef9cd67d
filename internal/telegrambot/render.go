package telegrambot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/luoyanglang/telegram-monitor/internal/conversation"
	"github.com/luoyanglang/telegram-monitor/internal/platform/observability"
)

// RenderPath reports how a reply reached the operator's screen.
type RenderPath int

const (
	// PathEdited means the previous menu message was edited in place.
	PathEdited RenderPath = iota
	// PathResent means the stale message was deleted and a fresh one sent.
	PathResent
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type messageRefStore interface {
	LastMessageID(ctx context.Context, operatorID int64) (int, error)
	SetLastMessageID(ctx context.Context, operatorID int64, messageID int) error
}

// Renderer keeps exactly one live menu message per operator: it edits
// the last rendered message, and when the edit fails it deletes the
// stale message and sends a new one.
type Renderer struct {
	api    botAPI
	refs   messageRefStore
	logger *zerolog.Logger
}

func NewRenderer(api botAPI, refs messageRefStore, logger *zerolog.Logger) *Renderer {
	return &Renderer{api: api, refs: refs, logger: logger}
}

// Render shows the reply in the operator chat and returns which path
// was taken.
func (r *Renderer) Render(ctx context.Context, chatID int64, reply conversation.Reply) (RenderPath, error) {
	markup := keyboardFor(reply.Buttons)

	lastID, err := r.refs.LastMessageID(ctx, chatID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("load last menu message id")

		lastID = 0
	}

	if lastID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, lastID, reply.Text)
		edit.ParseMode = tgbotapi.ModeHTML

		if markup != nil {
			edit.ReplyMarkup = markup
		}

		if _, err := r.api.Request(edit); err == nil {
			return PathEdited, nil
		}

		// The message is gone or unmodifiable; clear it and resend.
		if _, err := r.api.Request(tgbotapi.NewDeleteMessage(chatID, lastID)); err != nil {
			r.logger.Debug().Err(err).Int("message_id", lastID).Msg("delete stale menu message")
		}
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = tgbotapi.ModeHTML

	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	sent, err := r.api.Send(msg)
	if err != nil {
		return PathResent, fmt.Errorf("send menu message: %w", err)
	}

	if lastID != 0 {
		observability.RenderResends.Inc()
	}

	if err := r.refs.SetLastMessageID(ctx, chatID, sent.MessageID); err != nil {
		r.logger.Warn().Err(err).Msg("save last menu message id")
	}

	return PathResent, nil
}

func keyboardFor(rows [][]conversation.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))

	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, encodeEvent(button.Event)))
		}

		keyboard = append(keyboard, buttons)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	return &markup
}
