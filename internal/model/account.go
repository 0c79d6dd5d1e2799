package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// UserAccount is a registered player.
// PasswordHash is a bcrypt hash and never leaves the identity service.
type UserAccount struct {
	Username     string
	PasswordHash string
	Wins         int
	CreatedAt    time.Time
}

// AccountSummary is the public view of a UserAccount
type AccountSummary struct {
	Username  string
	Wins      int
	CreatedAt time.Time
}

// Summary strips credentials from the account
func (a *UserAccount) Summary() AccountSummary {
	return AccountSummary{
		Username:  a.Username,
		Wins:      a.Wins,
		CreatedAt: a.CreatedAt,
	}
}

// MaxUsernameLength bounds usernames in runes
const MaxUsernameLength = 32

// ValidateUsername checks a username is usable as a store key and display name
func ValidateUsername(username string) error {
	if username == "" {
		return InvalidInput("username is required")
	}
	if strings.TrimSpace(username) != username {
		return InvalidInput("username must not start or end with whitespace")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return InvalidInput("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}
