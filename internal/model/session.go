package model

import (
	"slices"
	"time"
)

const (
	// SessionSize is the number of players admitted into one session
	SessionSize = 3
	// MaxAttempts is the number of wrong guesses that ends a session.
	// With SessionSize 3, the remaining player wins by elimination.
	MaxAttempts = 2
	// PositionCount is the number of cups the ball can hide under
	PositionCount = 3
)

// SessionID uniquely identifies a formed session
type SessionID string

// Session is the single shared match record.
// When Active is false, Players is empty and AttemptsUsed is 0.
type Session struct {
	ID                 SessionID
	Active             bool
	Players            []string
	CurrentPlayerIndex int
	HiddenPosition     int
	AttemptsUsed       int
	GuessedPositions   []int // wrong guesses made this session
	FormedAt           time.Time

	// LastResult describes the most recently resolved session, if any.
	// It survives formation of the next session so pollers can see it.
	LastResult *Resolution
}

// Resolution is the public record of how a session ended
type Resolution struct {
	SessionID      SessionID
	Players        []string
	Winner         string
	HiddenPosition int
	ByElimination  bool
	ResolvedAt     time.Time
}

// IdleSession returns an inactive session that keeps the given last result
func IdleSession(last *Resolution) *Session {
	return &Session{
		Players:          []string{},
		GuessedPositions: []int{},
		LastResult:       last,
	}
}

// CurrentPlayer returns the username whose turn it is, or "" when idle
func (s *Session) CurrentPlayer() string {
	if !s.Active || s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return ""
	}
	return s.Players[s.CurrentPlayerIndex]
}

// HasPlayer returns true if username is seated in the active session
func (s *Session) HasPlayer(username string) bool {
	return s.Active && slices.Contains(s.Players, username)
}

// AlreadyGuessed returns true if position was already tried this session
func (s *Session) AlreadyGuessed(position int) bool {
	return slices.Contains(s.GuessedPositions, position)
}

// EliminationWinner returns the player who wins once MaxAttempts wrong
// guesses have been made: the one seat that never had to guess.
func (s *Session) EliminationWinner() string {
	if len(s.Players) == 0 {
		return ""
	}
	return s.Players[len(s.Players)-1]
}

// Clone returns a deep copy safe to hand to callers
func (s *Session) Clone() *Session {
	c := *s
	c.Players = slices.Clone(s.Players)
	c.GuessedPositions = slices.Clone(s.GuessedPositions)
	if s.LastResult != nil {
		lr := *s.LastResult
		lr.Players = slices.Clone(s.LastResult.Players)
		c.LastResult = &lr
	}
	return &c
}

// ValidPosition returns true if position names a real cup
func ValidPosition(position int) bool {
	return position >= 0 && position < PositionCount
}

// GuessOutcome is the result of a successfully applied guess
type GuessOutcome struct {
	Correct       bool
	GameOver      bool
	Winner        string
	ByElimination bool
	// NextPlayer is set while the session continues
	NextPlayer string
	// NextSession is the session formed from the backlog after resolution, if any
	NextSession *Session
}

// JoinOutcome is the result of joining the waiting list
type JoinOutcome struct {
	// Position is the 1-based queue position assigned on join
	Position int
	// SessionFormed is true if this join triggered formation
	SessionFormed bool
	Session       *Session
	WaitingList   []string
}
