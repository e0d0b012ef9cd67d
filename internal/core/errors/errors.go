// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Validation errors.
var (
	// ErrEmptyContent indicates rule content was empty or blank.
	ErrEmptyContent = errors.New("content is empty")

	// ErrInvalidPattern indicates a regex rule content does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidIdentifier indicates a sender or chat identifier did not parse.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUnknownMode indicates an unrecognized match mode.
	ErrUnknownMode = errors.New("unknown match mode")

	// ErrUnknownAction indicates an unrecognized rule action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrDuplicateEntry indicates the blacklist already holds the target.
	ErrDuplicateEntry = errors.New("entry already present")

	// ErrInvalidProxy indicates a proxy address or secret did not validate.
	ErrInvalidProxy = errors.New("invalid proxy configuration")
)

// Lookup errors.
var (
	// ErrRuleNotFound indicates a keyword rule id does not exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrEntryNotFound indicates a blacklist entry id does not exist.
	ErrEntryNotFound = errors.New("blacklist entry not found")

	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Monitoring preconditions.
var (
	// ErrNotAuthenticated indicates the source session has no authorized user.
	ErrNotAuthenticated = errors.New("source session not authenticated")

	// ErrNoTargetChat indicates no destination chat has been chosen.
	ErrNoTargetChat = errors.New("no target chat configured")

	// ErrNoMonitorRules indicates no rule with the monitor action exists.
	ErrNoMonitorRules = errors.New("no monitor rules configured")

	// ErrAlreadyRunning indicates the pipeline is already started.
	ErrAlreadyRunning = errors.New("monitoring already running")

	// ErrNotRunning indicates the pipeline is stopped.
	ErrNotRunning = errors.New("monitoring not running")
)

// Source session errors.
var (
	// ErrNotConnected indicates the session client has not connected yet.
	ErrNotConnected = errors.New("session not connected")

	// ErrPasswordRequired indicates the account has 2FA enabled and
	// sign-in must continue with the password step.
	ErrPasswordRequired = errors.New("2fa password required")

	// ErrLoginNotStarted indicates a code or password was submitted
	// before a login was initiated.
	ErrLoginNotStarted = errors.New("login not started")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
