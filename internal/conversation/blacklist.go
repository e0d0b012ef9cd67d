package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
)

func (m *Machine) startBlacklistAdd(ctx context.Context, operatorID int64, payload Payload, targetType blacklist.TargetType) (Reply, error) {
	if targetType != blacklist.TargetUser && targetType != blacklist.TargetGroup {
		return m.staleMenu(ctx, operatorID)
	}

	payload = Payload{BlacklistType: targetType}
	if err := m.save(ctx, operatorID, StateWaitingBlacklistID, payload); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    fmt.Sprintf("Send the numeric %s ID to block. A name after the ID is kept as a label.", targetType.Label()),
		Buttons: [][]Button{{cancelButton()}},
	}, nil
}

func (m *Machine) captureBlacklistID(ctx context.Context, operatorID int64, payload Payload, text string) (Reply, error) {
	targetType := payload.BlacklistType
	if targetType != blacklist.TargetUser && targetType != blacklist.TargetGroup {
		return m.staleMenu(ctx, operatorID)
	}

	reprompt := func(note string) Reply {
		return Reply{
			Text:    note + fmt.Sprintf("\n\nSend the numeric %s ID to block.", targetType.Label()),
			Buttons: [][]Button{{cancelButton()}},
		}
	}

	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return reprompt("⚠️ The ID cannot be empty."), nil
	}

	targetID := strings.TrimPrefix(fields[0], "@")
	if _, err := strconv.ParseInt(targetID, 10, 64); err != nil {
		return reprompt("⚠️ The ID must be a number. Usernames cannot be blocked directly."), nil
	}

	entry := blacklist.Entry{
		TargetID:   targetID,
		TargetType: targetType,
		Name:       strings.Join(fields[1:], " "),
	}

	if _, err := m.blacklist.AddBlacklistEntry(ctx, entry); err != nil {
		if coreerrors.Is(err, coreerrors.ErrDuplicateEntry) {
			return reprompt(fmt.Sprintf("⚠️ %s %s is already blocked.", targetType.Label(), targetID)), nil
		}

		m.logger.Error().Err(err).Str("target_id", targetID).Msg("add blacklist entry")

		return m.failure(), err
	}

	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    fmt.Sprintf("🚫 Blocked %s %s.", targetType.Label(), targetID),
		Buttons: m.blacklistMenu(),
	}, nil
}

func (m *Machine) blacklistList(ctx context.Context, page int) (Reply, error) {
	if page < 0 {
		page = 0
	}

	entries, total, err := m.blacklist.ListBlacklistPage(ctx, pageSize, page*pageSize)
	if err != nil {
		m.logger.Error().Err(err).Msg("list blacklist entries")

		return m.failure(), err
	}

	if total == 0 {
		return Reply{Text: "The blacklist is empty.", Buttons: m.blacklistMenu()}, nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Blocked %d–%d of %d:\n\n", page*pageSize+1, page*pageSize+len(entries), total)

	rows := make([][]Button, 0, len(entries)+2)

	for i, entry := range entries {
		label := entry.TargetID
		if entry.Name != "" {
			label = entry.Name
		}

		fmt.Fprintf(&b, "%d. %s %s", page*pageSize+i+1, entry.TargetType.Label(), entry.TargetID)

		if entry.Name != "" {
			fmt.Fprintf(&b, " (%s)", escape(entry.Name))
		}

		b.WriteString("\n")

		rows = append(rows, []Button{{
			Label: "🗑 " + clip(label, 24),
			Event: Event{Kind: EventBlacklistDelete, ID: entry.ID, Page: page},
		}})
	}

	if nav := pageRow(EventBlacklistList, page, total); len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, []Button{backButton()})

	return Reply{Text: b.String(), Buttons: rows}, nil
}

func (m *Machine) blacklistDeletePrompt(ctx context.Context, id string, page int) (Reply, error) {
	return Reply{
		Text: "Remove this entry from the blacklist?",
		Buttons: [][]Button{
			{
				{Label: "🗑 Remove", Event: Event{Kind: EventBlacklistDeleteYes, ID: id}},
				{Label: "✖️ Keep", Event: Event{Kind: EventBlacklistList, Page: page}},
			},
		},
	}, nil
}

func (m *Machine) blacklistDelete(ctx context.Context, id string) (Reply, error) {
	if err := m.blacklist.RemoveBlacklistEntry(ctx, id); err != nil {
		if coreerrors.Is(err, coreerrors.ErrEntryNotFound) {
			return Reply{Text: "That entry is already gone.", Buttons: m.blacklistMenu()}, nil
		}

		m.logger.Error().Err(err).Str("entry_id", id).Msg("remove blacklist entry")

		return m.failure(), err
	}

	return m.blacklistList(ctx, 0)
}

// blockTarget handles the quick-block button attached to a forwarded
// message. The answer is a toast so the forwarded message stays put.
func (m *Machine) blockTarget(ctx context.Context, targetType blacklist.TargetType, targetID string) (Reply, error) {
	if targetID == "" {
		return Reply{Toast: "Nothing to block."}, nil
	}

	entry := blacklist.Entry{TargetID: targetID, TargetType: targetType}

	if _, err := m.blacklist.AddBlacklistEntry(ctx, entry); err != nil {
		if coreerrors.Is(err, coreerrors.ErrDuplicateEntry) {
			return Reply{Toast: fmt.Sprintf("%s %s is already blocked.", targetType.Label(), targetID)}, nil
		}

		m.logger.Error().Err(err).Str("target_id", targetID).Msg("add blacklist entry")

		return Reply{Toast: "Blocking failed."}, err
	}

	return Reply{Toast: fmt.Sprintf("Blocked %s %s.", targetType.Label(), targetID)}, nil
}

func (m *Machine) unblockTarget(ctx context.Context, targetType blacklist.TargetType, targetID string) (Reply, error) {
	if err := m.blacklist.RemoveBlacklistByTarget(ctx, targetID, targetType); err != nil {
		if coreerrors.Is(err, coreerrors.ErrEntryNotFound) {
			return Reply{Toast: fmt.Sprintf("%s %s is not blocked.", targetType.Label(), targetID)}, nil
		}

		m.logger.Error().Err(err).Str("target_id", targetID).Msg("remove blacklist entry")

		return Reply{Toast: "Unblocking failed."}, err
	}

	return Reply{Toast: fmt.Sprintf("Unblocked %s %s.", targetType.Label(), targetID)}, nil
}
