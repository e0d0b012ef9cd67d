package db

import (
	"context"
	"fmt"
)

// GetOperatorState loads the dialogue state row for the operator.
// A missing row yields the idle baseline rather than an error.
func (db *DB) GetOperatorState(ctx context.Context, operatorID int64) (string, []byte, error) {
	var (
		state   string
		payload []byte
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT current_state, payload
		FROM operator_states
		WHERE operator_id = $1
	`, operatorID).Scan(&state, &payload)
	if err != nil {
		if isNoRows(err) {
			return "idle", []byte("{}"), nil
		}

		return "", nil, fmt.Errorf("get operator state: %w", err)
	}

	return state, payload, nil
}

// SetOperatorState upserts the dialogue state for the operator,
// leaving last_message_id untouched.
func (db *DB) SetOperatorState(ctx context.Context, operatorID int64, state string, payload []byte) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO operator_states (operator_id, current_state, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (operator_id) DO UPDATE SET
			current_state = EXCLUDED.current_state,
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, operatorID, state, payload)
	if err != nil {
		return fmt.Errorf("set operator state: %w", err)
	}

	return nil
}

// LastMessageID returns the last rendered UI message id for the operator.
func (db *DB) LastMessageID(ctx context.Context, operatorID int64) (int, error) {
	var messageID int

	err := db.Pool.QueryRow(ctx, `
		SELECT last_message_id FROM operator_states WHERE operator_id = $1
	`, operatorID).Scan(&messageID)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("get last message id: %w", err)
	}

	return messageID, nil
}

// SetLastMessageID records the most recent UI message for in-place edits.
func (db *DB) SetLastMessageID(ctx context.Context, operatorID int64, messageID int) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO operator_states (operator_id, last_message_id)
		VALUES ($1, $2)
		ON CONFLICT (operator_id) DO UPDATE SET
			last_message_id = EXCLUDED.last_message_id,
			updated_at = NOW()
	`, operatorID, messageID)
	if err != nil {
		return fmt.Errorf("set last message id: %w", err)
	}

	return nil
}
