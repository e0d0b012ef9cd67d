package monitor

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

// maxForwardTextLen keeps the formatted message inside the bot API
// message size limit, leaving room for the header.
const maxForwardTextLen = 3500

// buildForwardHTML renders one matched message for the target chat.
// The style flags of the first matched rule are applied to the body.
func buildForwardHTML(ev Event, matched []rules.Rule) string {
	var b strings.Builder

	sender := ev.SenderName
	if sender == "" {
		sender = strconv.FormatInt(ev.SenderID, 10)
	}

	chat := ev.ChatTitle
	if chat == "" {
		chat = strconv.FormatInt(ev.ChatID, 10)
	}

	keywords := make([]string, 0, len(matched))
	for _, rule := range matched {
		keywords = append(keywords, rule.Content)
	}

	b.WriteString(fmt.Sprintf("👤 <b>%s</b>\n", html.EscapeString(sender)))
	b.WriteString(fmt.Sprintf("💬 %s\n", html.EscapeString(chat)))
	b.WriteString(fmt.Sprintf("🔑 %s\n", html.EscapeString(strings.Join(keywords, ", "))))

	if !ev.When.IsZero() {
		b.WriteString(fmt.Sprintf("🕒 %s\n", ev.When.UTC().Format("2006-01-02 15:04:05")))
	}

	b.WriteString("\n")

	text := ev.Text
	if len(text) > maxForwardTextLen {
		text = truncateUTF8(text, maxForwardTextLen) + "…"
	}

	var styles rules.Style
	if len(matched) > 0 {
		styles = matched[0].Styles
	}

	b.WriteString(applyStyles(html.EscapeString(text), styles))

	return b.String()
}

// applyStyles wraps already-escaped text in the HTML tags matching the
// rule's style flags. Nesting order is outermost-first in flag order.
func applyStyles(escaped string, styles rules.Style) string {
	type styleTag struct {
		flag rules.Style
		open string
		end  string
	}

	tags := []styleTag{
		{rules.StyleBold, "<b>", "</b>"},
		{rules.StyleItalic, "<i>", "</i>"},
		{rules.StyleUnderline, "<u>", "</u>"},
		{rules.StyleStrikethrough, "<s>", "</s>"},
		{rules.StyleQuote, "<blockquote>", "</blockquote>"},
		{rules.StyleMonospace, "<code>", "</code>"},
		{rules.StyleSpoiler, "<tg-spoiler>", "</tg-spoiler>"},
	}

	out := escaped

	for i := len(tags) - 1; i >= 0; i-- {
		if styles.Has(tags[i].flag) {
			out = tags[i].open + out + tags[i].end
		}
	}

	return out
}

// messageLink builds a t.me view link for a channel or supergroup
// message. Private users and basic groups have no stable link.
func messageLink(chatID int64, messageID int) string {
	const channelPrefix = "-100"

	s := strconv.FormatInt(chatID, 10)
	if !strings.HasPrefix(s, channelPrefix) {
		return ""
	}

	return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(s, channelPrefix), messageID)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}

	cut := s[:n]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}

	return cut
}
