// Package rules holds the keyword rule model and the pure matching engine.
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	coreerrors "github.com/luoyanglang/telegram-monitor/internal/core/errors"
)

// MatchMode selects how rule content is matched against message text.
type MatchMode string

const (
	ModeExactWord MatchMode = "exact_word"
	ModeContains  MatchMode = "contains"
	ModeRegex     MatchMode = "regex"
	ModeFuzzy     MatchMode = "fuzzy"
	ModeUser      MatchMode = "user"
)

// Modes lists all match modes in menu order.
func Modes() []MatchMode {
	return []MatchMode{ModeExactWord, ModeContains, ModeRegex, ModeFuzzy, ModeUser}
}

// ParseMode converts a stored string into a MatchMode.
func ParseMode(s string) (MatchMode, error) {
	switch MatchMode(s) {
	case ModeExactWord, ModeContains, ModeRegex, ModeFuzzy, ModeUser:
		return MatchMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", coreerrors.ErrUnknownMode, s)
	}
}

// Label returns a human readable mode name for menus and listings.
func (m MatchMode) Label() string {
	switch m {
	case ModeExactWord:
		return "Exact word"
	case ModeContains:
		return "Contains"
	case ModeRegex:
		return "Regex"
	case ModeFuzzy:
		return "Fuzzy"
	case ModeUser:
		return "Sender ID"
	default:
		return string(m)
	}
}

// Action decides what a matching rule does with the message.
type Action string

const (
	ActionExclude Action = "exclude"
	ActionMonitor Action = "monitor"
)

// ParseAction converts a stored string into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionExclude, ActionMonitor:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", coreerrors.ErrUnknownAction, s)
	}
}

// Label returns a human readable action name.
func (a Action) Label() string {
	switch a {
	case ActionExclude:
		return "Exclude"
	case ActionMonitor:
		return "Monitor"
	default:
		return string(a)
	}
}

// Style is a bitmask of presentation flags applied when a matched
// message is forwarded. Styles never affect matching.
type Style uint16

const (
	StyleBold Style = 1 << iota
	StyleItalic
	StyleUnderline
	StyleStrikethrough
	StyleQuote
	StyleMonospace
	StyleSpoiler
)

// AllStyles lists the individual style flags in menu order.
func AllStyles() []Style {
	return []Style{
		StyleBold, StyleItalic, StyleUnderline, StyleStrikethrough,
		StyleQuote, StyleMonospace, StyleSpoiler,
	}
}

// Has reports whether flag is set.
func (s Style) Has(flag Style) bool {
	return s&flag != 0
}

// Toggle flips flag and returns the new mask.
func (s Style) Toggle(flag Style) Style {
	return s ^ flag
}

// Label returns a human readable name for a single style flag.
func (s Style) Label() string {
	switch s {
	case StyleBold:
		return "Bold"
	case StyleItalic:
		return "Italic"
	case StyleUnderline:
		return "Underline"
	case StyleStrikethrough:
		return "Strikethrough"
	case StyleQuote:
		return "Quote"
	case StyleMonospace:
		return "Monospace"
	case StyleSpoiler:
		return "Spoiler"
	default:
		return fmt.Sprintf("Style(%d)", uint16(s))
	}
}

// Rule is a stored match specification. Rules are immutable once
// created: editing is delete plus recreate.
type Rule struct {
	ID            string
	Content       string
	Mode          MatchMode
	Action        Action
	CaseSensitive bool
	Styles        Style
	CreatedAt     time.Time
}

// Validate checks a rule draft before it is persisted. Regex content
// must compile here so an unparsable pattern is never stored.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return coreerrors.ErrEmptyContent
	}

	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}

	if _, err := ParseAction(string(r.Action)); err != nil {
		return err
	}

	switch r.Mode {
	case ModeRegex:
		if _, err := regexp.Compile(r.Content); err != nil {
			return fmt.Errorf("%w: %v", coreerrors.ErrInvalidPattern, err)
		}
	case ModeUser:
		id := strings.TrimPrefix(strings.TrimSpace(r.Content), "@")
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("%w: sender id must be numeric", coreerrors.ErrInvalidIdentifier)
		}
	}

	return nil
}

// Matches reports whether the rule matches the given message text and
// sender. A stored regex that fails to compile is treated as
// non-matching, never as an error.
func (r Rule) Matches(text string, senderID int64) bool {
	switch r.Mode {
	case ModeExactWord:
		return equalFold(r.Content, text, r.CaseSensitive)
	case ModeContains:
		return containsFold(text, r.Content, r.CaseSensitive)
	case ModeRegex:
		return r.regexMatches(text)
	case ModeFuzzy:
		return r.fuzzyMatches(text)
	case ModeUser:
		id := strings.TrimPrefix(strings.TrimSpace(r.Content), "@")

		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return false
		}

		return parsed == senderID
	default:
		return false
	}
}

func (r Rule) regexMatches(text string) bool {
	pattern := r.Content
	if !r.CaseSensitive {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	return re.MatchString(text)
}

// fuzzyMatches splits the content on "?" into required substrings and
// matches only when every segment is present. Segments are trimmed and
// blank ones discarded, so "cat? dog" requires "dog", not " dog".
func (r Rule) fuzzyMatches(text string) bool {
	segments := make([]string, 0)

	for _, seg := range strings.Split(r.Content, "?") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return false
	}

	for _, seg := range segments {
		if !containsFold(text, seg, r.CaseSensitive) {
			return false
		}
	}

	return true
}

// fold lowers a string with full Unicode case folding. Caser instances
// carry state, so a fresh one is used per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func equalFold(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}

	return fold(a) == fold(b)
}

func containsFold(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}

	return strings.Contains(fold(haystack), fold(needle))
}
