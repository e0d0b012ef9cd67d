package telegrambot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/conversation"
	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

func TestEventCodecRoundTrip(t *testing.T) {
	events := []conversation.Event{
		{Kind: conversation.EventMainMenu},
		{Kind: conversation.EventCancel},
		{Kind: conversation.EventHelp},
		{Kind: conversation.EventKeywordNew},
		{Kind: conversation.EventKeywordMode, Mode: rules.ModeFuzzy},
		{Kind: conversation.EventKeywordAction, Action: rules.ActionExclude},
		{Kind: conversation.EventKeywordStyle, Style: rules.StyleSpoiler},
		{Kind: conversation.EventKeywordList, Page: 3},
		{Kind: conversation.EventKeywordDelete, ID: "2b1e9c2e-70e2-4b7a-9a57-2f4f6a3e9d11"},
		{Kind: conversation.EventKeywordDeleteYes, ID: "2b1e9c2e-70e2-4b7a-9a57-2f4f6a3e9d11"},
		{Kind: conversation.EventBlacklistAdd, TargetType: blacklist.TargetGroup},
		{Kind: conversation.EventBlacklistList, Page: 1},
		{Kind: conversation.EventBlock, TargetType: blacklist.TargetUser, TargetID: "999"},
		{Kind: conversation.EventUnblock, TargetType: blacklist.TargetGroup, TargetID: "-100123"},
		{Kind: conversation.EventProxyType, ProxyType: domain.ProxyMTProxy},
		{Kind: conversation.EventTargetSelect, ChatID: -1001234567890},
		{Kind: conversation.EventMonitorStart},
	}

	for _, ev := range events {
		t.Run(string(ev.Kind), func(t *testing.T) {
			data := encodeEvent(ev)
			assert.LessOrEqual(t, len(data), 64, "callback data must fit the API limit")

			decoded, err := decodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, ev, decoded)
		})
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "nope", "kmode|bogus", "ksty|notanumber", "tsel|abc"} {
		_, err := decodeEvent(data)
		assert.Error(t, err, data)
	}
}
