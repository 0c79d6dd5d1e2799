package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// Waiting list errors
	ErrAlreadyQueuedOrInSession = errors.New("player is already queued or in the active session")
	ErrNotQueued                = errors.New("player is not in the waiting list")

	// Session errors
	ErrNotYourTurn            = errors.New("not this player's turn")
	ErrPositionAlreadyGuessed = errors.New("position was already guessed this session")

	// Identity errors
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// Store errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrLockTimeout      = errors.New("timed out waiting for lock")
)

// StoreError reports a failed durable store operation.
// It always matches ErrStoreUnavailable with errors.Is.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes every StoreError match ErrStoreUnavailable
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// InvalidInput wraps ErrInvalidInput with a caller-facing message
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
