package telegramreader

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"

	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
)

// ListSendableChats returns the account's dialogs the session can post
// to, as target-chat candidates. Broadcast channels without post
// rights are skipped.
func (m *Manager) ListSendableChats(ctx context.Context) ([]domain.Chat, error) {
	m.mu.Lock()
	api := m.api
	m.mu.Unlock()

	if api == nil {
		return nil, coreerrors.ErrNotConnected
	}

	raw, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		Limit:      100,
		OffsetPeer: &tg.InputPeerEmpty{},
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	var (
		users []tg.UserClass
		chats []tg.ChatClass
	)

	switch d := raw.(type) {
	case *tg.MessagesDialogs:
		users, chats = d.Users, d.Chats
	case *tg.MessagesDialogsSlice:
		users, chats = d.Users, d.Chats
	default:
		return nil, fmt.Errorf("unexpected dialogs type %T", raw)
	}

	var out []domain.Chat

	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Chat:
			if c.Deactivated || c.Left {
				continue
			}

			out = append(out, domain.Chat{ID: -c.ID, Title: c.Title, Kind: domain.ChatKindGroup})
		case *tg.Channel:
			if c.Left {
				continue
			}

			if c.Broadcast && !canPost(c) {
				continue
			}

			kind := domain.ChatKindChannel
			if c.Megagroup {
				kind = domain.ChatKindGroup
			}

			out = append(out, domain.Chat{ID: channelIDBase - c.ID, Title: c.Title, Kind: kind})
		}
	}

	for _, user := range users {
		u, ok := user.(*tg.User)
		if !ok || u.Bot || u.Deleted {
			continue
		}

		title := displayName(u)
		if u.Self {
			title = "Saved Messages"
		}

		out = append(out, domain.Chat{ID: u.ID, Title: title, Kind: domain.ChatKindUser})
	}

	return out, nil
}

func canPost(c *tg.Channel) bool {
	if c.Creator {
		return true
	}

	rights, ok := c.GetAdminRights()

	return ok && rights.PostMessages
}
