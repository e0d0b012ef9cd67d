package telegrambot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/conversation"
	"github.com/luoyanglang/telegram-monitor/internal/monitor"
	"github.com/luoyanglang/telegram-monitor/internal/platform/observability"
)

// Bot is the operator-facing control surface. It gates every update on
// the configured operator, decodes callbacks at the boundary, and hands
// the dialogue machine's replies to the renderer.
type Bot struct {
	api        *tgbotapi.BotAPI
	machine    *conversation.Machine
	renderer   *Renderer
	operatorID int64
	logger     *zerolog.Logger
}

func New(token string, operatorID int64, machine *conversation.Machine, refs messageRefStore, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:        api,
		machine:    machine,
		renderer:   NewRenderer(api, refs, logger),
		operatorID: operatorID,
		logger:     logger,
	}, nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()

			return ctx.Err()
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}

			if update.Message == nil {
				continue
			}

			if update.Message.From.ID != b.operatorID {
				b.logger.Warn().Int64("user_id", update.Message.From.ID).Str("username", update.Message.From.UserName).Msg("Unauthorized access attempt")
				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	var (
		reply conversation.Reply
		err   error
	)

	if msg.IsCommand() {
		b.logger.Info().Str("command", msg.Command()).Msg("Handling command")

		// Every command lands on the main menu; the dialogue is
		// driven by buttons from there.
		reply, err = b.machine.HandleEvent(ctx, b.operatorID, conversation.Event{Kind: conversation.EventMainMenu})
	} else {
		reply, err = b.machine.HandleText(ctx, b.operatorID, msg.Text)
	}

	if err != nil {
		b.logger.Error().Err(err).Msg("dialogue turn failed")
	}

	b.show(ctx, reply)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From.ID != b.operatorID {
		return
	}

	ev, err := decodeEvent(query.Data)
	if err != nil {
		b.logger.Warn().Err(err).Str("data", query.Data).Msg("undecodable callback")
		b.answerCallback(query.ID, "")

		return
	}

	observability.DialogueEvents.WithLabelValues(string(ev.Kind)).Inc()

	reply, err := b.machine.HandleEvent(ctx, b.operatorID, ev)
	if err != nil {
		b.logger.Error().Err(err).Str("kind", string(ev.Kind)).Msg("dialogue event failed")
	}

	if reply.Toast != "" {
		b.answerCallback(query.ID, reply.Toast)

		return
	}

	b.answerCallback(query.ID, "")
	b.show(ctx, reply)
}

func (b *Bot) show(ctx context.Context, reply conversation.Reply) {
	if reply.Text == "" && reply.Document == nil {
		return
	}

	if reply.Document != nil {
		doc := tgbotapi.NewDocument(b.operatorID, tgbotapi.FileBytes{
			Name:  reply.Document.Name,
			Bytes: reply.Document.Data,
		})

		if _, err := b.api.Send(doc); err != nil {
			b.logger.Error().Err(err).Str("name", reply.Document.Name).Msg("failed to send document")
		}
	}

	if reply.Text == "" {
		return
	}

	if _, err := b.renderer.Render(ctx, b.operatorID, reply); err != nil {
		b.logger.Error().Err(err).Msg("failed to render reply")
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Error().Err(err).Msg("failed to answer callback")
	}
}

// Forward delivers one matched message to the target chat with quick
// actions for blocking the sender or the chat it came from.
func (b *Bot) Forward(ctx context.Context, f monitor.Forward) error {
	msg := tgbotapi.NewMessage(f.TargetChatID, f.HTML)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	var row []tgbotapi.InlineKeyboardButton

	if f.ViewURL != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("🔗 Open", f.ViewURL))
	}

	row = append(row,
		tgbotapi.NewInlineKeyboardButtonData("🚫 Sender", encodeEvent(conversation.Event{
			Kind:       conversation.EventBlock,
			TargetType: blacklist.TargetUser,
			TargetID:   strconv.FormatInt(f.SenderID, 10),
		})),
		tgbotapi.NewInlineKeyboardButtonData("🚫 Chat", encodeEvent(conversation.Event{
			Kind:       conversation.EventBlock,
			TargetType: blacklist.TargetGroup,
			TargetID:   strconv.FormatInt(f.ChatID, 10),
		})),
	)

	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)

	if _, err := b.api.Send(msg); err != nil {
		return err
	}

	return nil
}
