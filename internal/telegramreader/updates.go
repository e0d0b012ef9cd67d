package telegramreader

import (
	"context"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/luoyanglang/telegram-monitor/internal/monitor"
)

// Chat IDs are exposed in bot-API form so blacklist entries and view
// links line up with the control bot: channels get the -100 prefix,
// basic groups are negated, users stay as-is.
const channelIDBase = int64(-1000000000000)

func (m *Manager) onNewMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	m.deliver(e, u.Message)

	return nil
}

func (m *Manager) onNewChannelMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
	m.deliver(e, u.Message)

	return nil
}

func (m *Manager) deliver(e tg.Entities, raw tg.MessageClass) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()

	if handler == nil {
		return
	}

	msg, ok := raw.(*tg.Message)
	if !ok || msg.Out {
		return
	}

	chatID, chatTitle := peerInfo(e, msg.PeerID)
	senderID, senderName := senderInfo(e, msg)

	handler(monitor.Event{
		Text:       msg.Message,
		SenderID:   senderID,
		ChatID:     chatID,
		MessageID:  msg.ID,
		SenderName: senderName,
		ChatTitle:  chatTitle,
		When:       time.Unix(int64(msg.Date), 0),
	})
}

func peerInfo(e tg.Entities, peer tg.PeerClass) (int64, string) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		if user, ok := e.Users[p.UserID]; ok {
			return p.UserID, displayName(user)
		}

		return p.UserID, ""
	case *tg.PeerChat:
		if chat, ok := e.Chats[p.ChatID]; ok {
			return -p.ChatID, chat.Title
		}

		return -p.ChatID, ""
	case *tg.PeerChannel:
		if channel, ok := e.Channels[p.ChannelID]; ok {
			return channelIDBase - p.ChannelID, channel.Title
		}

		return channelIDBase - p.ChannelID, ""
	}

	return 0, ""
}

func senderInfo(e tg.Entities, msg *tg.Message) (int64, string) {
	switch from := msg.FromID.(type) {
	case *tg.PeerUser:
		if user, ok := e.Users[from.UserID]; ok {
			return from.UserID, displayName(user)
		}

		return from.UserID, ""
	case *tg.PeerChannel:
		if channel, ok := e.Channels[from.ChannelID]; ok {
			return channelIDBase - from.ChannelID, channel.Title
		}

		return channelIDBase - from.ChannelID, ""
	case nil:
		// Direct messages carry no FromID; the peer is the sender.
		if user, ok := msg.PeerID.(*tg.PeerUser); ok {
			if u, found := e.Users[user.UserID]; found {
				return user.UserID, displayName(u)
			}

			return user.UserID, ""
		}
	}

	return 0, ""
}

func displayName(user *tg.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	return name
}
