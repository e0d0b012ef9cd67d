package blacklist

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	entries map[string]bool
	err     error
	calls   int
}

func (f *fakeStore) BlacklistExists(_ context.Context, targetID string, targetType TargetType) (bool, error) {
	f.calls++

	if f.err != nil {
		return false, f.err
	}

	return f.entries[string(targetType)+":"+targetID], nil
}

func TestCheckerBlocked(t *testing.T) {
	logger := zerolog.Nop()
	store := &fakeStore{entries: map[string]bool{
		"user:999":   true,
		"group:-100": true,
	}}
	checker := NewChecker(store, false, &logger)

	assert.True(t, checker.Blocked(context.Background(), 999, 1))
	assert.True(t, checker.Blocked(context.Background(), 1, -100))
	assert.False(t, checker.Blocked(context.Background(), 1, 2))
}

func TestCheckerErrorPolicy(t *testing.T) {
	logger := zerolog.Nop()
	storeErr := errors.New("connection refused")

	tests := []struct {
		name       string
		failClosed bool
		want       bool
	}{
		{name: "fail open lets the message through", failClosed: false, want: false},
		{name: "fail closed treats the message as blocked", failClosed: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(&fakeStore{err: storeErr}, tt.failClosed, &logger)

			got := checker.Blocked(context.Background(), 1, 2)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckerShortCircuitsOnSenderHit(t *testing.T) {
	logger := zerolog.Nop()
	store := &fakeStore{entries: map[string]bool{"user:7": true}}
	checker := NewChecker(store, false, &logger)

	assert.True(t, checker.Blocked(context.Background(), 7, 8))
	assert.Equal(t, 1, store.calls, "chat lookup should be skipped when the sender is blocked")
}
