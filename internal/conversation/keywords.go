package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

func (m *Machine) startKeywordCreation(ctx context.Context, operatorID int64) (Reply, error) {
	if err := m.save(ctx, operatorID, StateWaitingKeyword, Payload{}); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    "Send the text the rule should match.",
		Buttons: [][]Button{{cancelButton()}},
	}, nil
}

func (m *Machine) captureKeywordContent(ctx context.Context, operatorID int64, text string) (Reply, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return Reply{
			Text:    "The rule text cannot be empty. Send the text to match.",
			Buttons: [][]Button{{cancelButton()}},
		}, nil
	}

	payload := Payload{Draft: &RuleDraft{Content: content, Mode: rules.ModeContains, Action: rules.ActionMonitor}}
	if err := m.save(ctx, operatorID, StateSelectingKeywordType, payload); err != nil {
		return m.failure(), err
	}

	return m.modePrompt(content, ""), nil
}

func (m *Machine) modePrompt(content, note string) Reply {
	rows := make([][]Button, 0, len(rules.Modes())+1)
	for _, mode := range rules.Modes() {
		rows = append(rows, []Button{{
			Label: mode.Label(),
			Event: Event{Kind: EventKeywordMode, Mode: mode},
		}})
	}

	rows = append(rows, []Button{cancelButton()})

	text := fmt.Sprintf("Rule text: \"%s\"\n\nPick the match type:", escape(content))
	if note != "" {
		text = note + "\n\n" + text
	}

	return Reply{Text: text, Buttons: rows}
}

func (m *Machine) selectKeywordMode(ctx context.Context, operatorID int64, state State, payload Payload, mode rules.MatchMode) (Reply, error) {
	if state != StateSelectingKeywordType || payload.Draft == nil {
		return m.staleMenu(ctx, operatorID)
	}

	if _, err := rules.ParseMode(string(mode)); err != nil {
		return m.staleMenu(ctx, operatorID)
	}

	// Regex patterns are validated here so a bad pattern is caught
	// while the operator can still pick another type.
	if mode == rules.ModeRegex {
		probe := rules.Rule{Content: payload.Draft.Content, Mode: mode, Action: rules.ActionMonitor}
		if err := probe.Validate(); err != nil {
			return m.modePrompt(payload.Draft.Content, "⚠️ The text is not a valid regular expression."), nil
		}
	}

	payload.Draft.Mode = mode
	if err := m.save(ctx, operatorID, StateSelectingKeywordAction, payload); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text: fmt.Sprintf("Rule text: \"%s\"\nType: %s\n\nPick the action:", escape(payload.Draft.Content), mode.Label()),
		Buttons: [][]Button{
			{
				{Label: rules.ActionMonitor.Label(), Event: Event{Kind: EventKeywordAction, Action: rules.ActionMonitor}},
				{Label: rules.ActionExclude.Label(), Event: Event{Kind: EventKeywordAction, Action: rules.ActionExclude}},
			},
			{cancelButton()},
		},
	}, nil
}

func (m *Machine) selectKeywordAction(ctx context.Context, operatorID int64, state State, payload Payload, action rules.Action) (Reply, error) {
	if state != StateSelectingKeywordAction || payload.Draft == nil {
		return m.staleMenu(ctx, operatorID)
	}

	if _, err := rules.ParseAction(string(action)); err != nil {
		return m.staleMenu(ctx, operatorID)
	}

	payload.Draft.Action = action
	if err := m.save(ctx, operatorID, StateSelectingKeywordStyle, payload); err != nil {
		return m.failure(), err
	}

	return m.stylePrompt(payload.Draft), nil
}

func (m *Machine) stylePrompt(draft *RuleDraft) Reply {
	rows := make([][]Button, 0, 6)

	flags := rules.AllStyles()
	for i := 0; i < len(flags); i += 2 {
		row := []Button{styleButton(draft, flags[i])}
		if i+1 < len(flags) {
			row = append(row, styleButton(draft, flags[i+1]))
		}

		rows = append(rows, row)
	}

	caseLabel := "🔡 Case sensitive: off"
	if draft.CaseSensitive {
		caseLabel = "🔠 Case sensitive: on"
	}

	rows = append(rows,
		[]Button{{Label: caseLabel, Event: Event{Kind: EventKeywordCaseToggle}}},
		[]Button{{Label: "✅ Done", Event: Event{Kind: EventKeywordDone}}, cancelButton()},
	)

	return Reply{
		Text: fmt.Sprintf(
			"Rule text: \"%s\"\nType: %s\nAction: %s\n\nToggle display styles, then press Done:",
			escape(draft.Content), draft.Mode.Label(), draft.Action.Label(),
		),
		Buttons: rows,
	}
}

func styleButton(draft *RuleDraft, flag rules.Style) Button {
	label := flag.Label()
	if draft.Styles.Has(flag) {
		label = "✅ " + label
	}

	return Button{Label: label, Event: Event{Kind: EventKeywordStyle, Style: flag}}
}

func (m *Machine) toggleKeywordStyle(ctx context.Context, operatorID int64, state State, payload Payload, flag rules.Style) (Reply, error) {
	if state != StateSelectingKeywordStyle || payload.Draft == nil {
		return m.staleMenu(ctx, operatorID)
	}

	payload.Draft.Styles = payload.Draft.Styles.Toggle(flag)
	if err := m.save(ctx, operatorID, state, payload); err != nil {
		return m.failure(), err
	}

	return m.stylePrompt(payload.Draft), nil
}

func (m *Machine) toggleKeywordCase(ctx context.Context, operatorID int64, state State, payload Payload) (Reply, error) {
	if state != StateSelectingKeywordStyle || payload.Draft == nil {
		return m.staleMenu(ctx, operatorID)
	}

	payload.Draft.CaseSensitive = !payload.Draft.CaseSensitive
	if err := m.save(ctx, operatorID, state, payload); err != nil {
		return m.failure(), err
	}

	return m.stylePrompt(payload.Draft), nil
}

func (m *Machine) commitKeyword(ctx context.Context, operatorID int64, state State, payload Payload) (Reply, error) {
	if state != StateSelectingKeywordStyle || payload.Draft == nil {
		return m.staleMenu(ctx, operatorID)
	}

	draft := payload.Draft
	rule := rules.Rule{
		Content:       draft.Content,
		Mode:          draft.Mode,
		Action:        draft.Action,
		CaseSensitive: draft.CaseSensitive,
		Styles:        draft.Styles,
	}

	if err := rule.Validate(); err != nil {
		return m.stylePromptWithError(draft, err), nil
	}

	if _, err := m.ruleStore.CreateKeyword(ctx, rule); err != nil {
		m.logger.Error().Err(err).Msg("create keyword rule")

		return m.failure(), err
	}

	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    fmt.Sprintf("✅ Rule \"%s\" saved (%s, %s).", escape(rule.Content), rule.Mode.Label(), rule.Action.Label()),
		Buttons: m.keywordMenu(),
	}, nil
}

func (m *Machine) stylePromptWithError(draft *RuleDraft, err error) Reply {
	prompt := m.stylePrompt(draft)
	prompt.Text = "⚠️ " + validationText(err) + "\n\n" + prompt.Text

	return prompt
}

func validationText(err error) string {
	switch {
	case coreerrors.Is(err, coreerrors.ErrEmptyContent):
		return "The rule text cannot be empty."
	case coreerrors.Is(err, coreerrors.ErrInvalidPattern):
		return "The text is not a valid regular expression."
	case coreerrors.Is(err, coreerrors.ErrInvalidIdentifier):
		return "The identifier must be numeric."
	default:
		return "The rule is not valid."
	}
}

func (m *Machine) keywordList(ctx context.Context, page int) (Reply, error) {
	if page < 0 {
		page = 0
	}

	ruleSet, total, err := m.ruleStore.ListKeywordsPage(ctx, pageSize, page*pageSize)
	if err != nil {
		m.logger.Error().Err(err).Msg("list keyword rules")

		return m.failure(), err
	}

	if total == 0 {
		return Reply{
			Text:    "No rules yet.",
			Buttons: [][]Button{{{Label: "➕ New rule", Event: Event{Kind: EventKeywordNew}}}, {backButton()}},
		}, nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Rules %d–%d of %d:\n\n", page*pageSize+1, page*pageSize+len(ruleSet), total)

	rows := make([][]Button, 0, len(ruleSet)+2)

	for i, rule := range ruleSet {
		fmt.Fprintf(&b, "%d. \"%s\" — %s, %s\n", page*pageSize+i+1, escape(rule.Content), rule.Mode.Label(), rule.Action.Label())

		rows = append(rows, []Button{{
			Label: "🗑 " + clip(rule.Content, 24),
			Event: Event{Kind: EventKeywordDelete, ID: rule.ID},
		}})
	}

	if nav := pageRow(EventKeywordList, page, total); len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, []Button{backButton()})

	return Reply{Text: b.String(), Buttons: rows}, nil
}

func (m *Machine) keywordDeletePrompt(ctx context.Context, id string) (Reply, error) {
	rule, err := m.ruleStore.GetKeyword(ctx, id)
	if err != nil {
		if coreerrors.Is(err, coreerrors.ErrRuleNotFound) {
			return Reply{Text: "That rule is already gone.", Buttons: m.keywordMenu()}, nil
		}

		m.logger.Error().Err(err).Str("rule_id", id).Msg("load keyword rule")

		return m.failure(), err
	}

	return Reply{
		Text: fmt.Sprintf("Delete rule \"%s\" (%s, %s)?", escape(rule.Content), rule.Mode.Label(), rule.Action.Label()),
		Buttons: [][]Button{
			{
				{Label: "🗑 Delete", Event: Event{Kind: EventKeywordDeleteYes, ID: id}},
				{Label: "✖️ Keep", Event: Event{Kind: EventKeywordList}},
			},
		},
	}, nil
}

func (m *Machine) keywordDelete(ctx context.Context, id string) (Reply, error) {
	if err := m.ruleStore.DeleteKeyword(ctx, id); err != nil {
		if coreerrors.Is(err, coreerrors.ErrRuleNotFound) {
			return Reply{Text: "That rule is already gone.", Buttons: m.keywordMenu()}, nil
		}

		m.logger.Error().Err(err).Str("rule_id", id).Msg("delete keyword rule")

		return m.failure(), err
	}

	return m.keywordList(ctx, 0)
}

func (m *Machine) startImport(ctx context.Context, operatorID int64) (Reply, error) {
	if err := m.save(ctx, operatorID, StateWaitingImportText, Payload{}); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    "Send the rules to import, one per line.\nEach line becomes a contains/monitor rule.",
		Buttons: [][]Button{{cancelButton()}},
	}, nil
}

func (m *Machine) importKeywords(ctx context.Context, operatorID int64, text string) (Reply, error) {
	var contents []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			contents = append(contents, line)
		}
	}

	if len(contents) == 0 {
		return Reply{
			Text:    "Nothing to import (0 rules found). Send one rule per line.",
			Buttons: [][]Button{{cancelButton()}},
		}, nil
	}

	imported := 0

	for _, content := range contents {
		rule := rules.Rule{Content: content, Mode: rules.ModeContains, Action: rules.ActionMonitor}
		if _, err := m.ruleStore.CreateKeyword(ctx, rule); err != nil {
			m.logger.Error().Err(err).Str("content", content).Msg("import keyword rule")

			continue
		}

		imported++
	}

	if err := m.reset(ctx, operatorID); err != nil {
		return m.failure(), err
	}

	return Reply{
		Text:    fmt.Sprintf("📥 Imported %d of %d rules.", imported, len(contents)),
		Buttons: m.keywordMenu(),
	}, nil
}

// keywordExport is one record of the JSON export document.
type keywordExport struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	MatchMode string    `json:"match_mode"`
	Action    string    `json:"action"`
	Styles    uint16    `json:"style_flags"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Machine) exportKeywords(ctx context.Context) (Reply, error) {
	ruleSet, err := m.ruleStore.ListKeywords(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("list keyword rules")

		return m.failure(), err
	}

	if len(ruleSet) == 0 {
		return Reply{Text: "No rules to export.", Buttons: m.keywordMenu()}, nil
	}

	records := make([]keywordExport, 0, len(ruleSet))
	for _, rule := range ruleSet {
		records = append(records, keywordExport{
			ID:        rule.ID,
			Content:   rule.Content,
			MatchMode: string(rule.Mode),
			Action:    string(rule.Action),
			Styles:    uint16(rule.Styles),
			CreatedAt: rule.CreatedAt,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return m.failure(), fmt.Errorf("encode rule export: %w", err)
	}

	return Reply{
		Text:     fmt.Sprintf("📤 Exported %d rules.", len(records)),
		Document: &Document{Name: "keywords.json", Data: data},
		Buttons:  m.keywordMenu(),
	}, nil
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-1]) + "…"
}

// pageRow builds prev/next buttons for a paginated list.
func pageRow(kind EventKind, page, total int) []Button {
	var row []Button

	if page > 0 {
		row = append(row, Button{Label: "⬅️", Event: Event{Kind: kind, Page: page - 1}})
	}

	if (page+1)*pageSize < total {
		row = append(row, Button{Label: "➡️", Event: Event{Kind: kind, Page: page + 1}})
	}

	return row
}
