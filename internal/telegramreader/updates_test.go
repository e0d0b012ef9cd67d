package telegramreader

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestPeerInfoIDForm(t *testing.T) {
	entities := tg.Entities{
		Users:    map[int64]*tg.User{42: {ID: 42, FirstName: "Alice", LastName: "B"}},
		Chats:    map[int64]*tg.Chat{7: {ID: 7, Title: "Basic Group"}},
		Channels: map[int64]*tg.Channel{1234567890: {ID: 1234567890, Title: "News"}},
	}

	tests := []struct {
		name      string
		peer      tg.PeerClass
		wantID    int64
		wantTitle string
	}{
		{"user", &tg.PeerUser{UserID: 42}, 42, "Alice B"},
		{"basic group", &tg.PeerChat{ChatID: 7}, -7, "Basic Group"},
		{"channel", &tg.PeerChannel{ChannelID: 1234567890}, -1001234567890, "News"},
		{"unknown channel", &tg.PeerChannel{ChannelID: 5}, -1000000000005, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, title := peerInfo(entities, tt.peer)
			if id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
		})
	}
}

func TestSenderInfoFallsBackToPeer(t *testing.T) {
	entities := tg.Entities{
		Users: map[int64]*tg.User{42: {ID: 42, Username: "alice"}},
	}

	msg := &tg.Message{PeerID: &tg.PeerUser{UserID: 42}}

	id, name := senderInfo(entities, msg)
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
	if name != "alice" {
		t.Errorf("name = %q, want alice", name)
	}
}
