// Package blacklist models blocked identities and the pre-evaluation
// filter applied to every inbound message.
package blacklist

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// TargetType distinguishes blocked senders from blocked chats.
type TargetType string

const (
	TargetUser  TargetType = "user"
	TargetGroup TargetType = "group"
)

// Label returns a human readable target type name.
func (t TargetType) Label() string {
	switch t {
	case TargetUser:
		return "User"
	case TargetGroup:
		return "Group"
	default:
		return string(t)
	}
}

// Entry is a blocked identity. (TargetID, TargetType) is unique.
type Entry struct {
	ID         string
	TargetID   string
	TargetType TargetType
	Name       string
	CreatedAt  time.Time
}

// Store is the persistence surface the checker needs.
type Store interface {
	BlacklistExists(ctx context.Context, targetID string, targetType TargetType) (bool, error)
}

// Checker decides whether a message may reach rule evaluation.
//
// The error policy is explicit: with failClosed set, a storage failure
// counts the message as blocked; otherwise the check fails open and
// the message proceeds.
type Checker struct {
	store      Store
	failClosed bool
	logger     *zerolog.Logger
}

func NewChecker(store Store, failClosed bool, logger *zerolog.Logger) *Checker {
	return &Checker{store: store, failClosed: failClosed, logger: logger}
}

// Blocked reports whether the sender or the chat is blacklisted.
func (c *Checker) Blocked(ctx context.Context, senderID, chatID int64) bool {
	blocked, err := c.store.BlacklistExists(ctx, strconv.FormatInt(senderID, 10), TargetUser)
	if err != nil {
		return c.onCheckError(err, "sender", senderID)
	}

	if blocked {
		return true
	}

	blocked, err = c.store.BlacklistExists(ctx, strconv.FormatInt(chatID, 10), TargetGroup)
	if err != nil {
		return c.onCheckError(err, "chat", chatID)
	}

	return blocked
}

func (c *Checker) onCheckError(err error, kind string, id int64) bool {
	c.logger.Error().Err(err).Str("kind", kind).Int64("id", id).Bool("fail_closed", c.failClosed).
		Msg("blacklist check failed")

	return c.failClosed
}
