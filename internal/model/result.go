package model

import "time"

// Outcome is the result of a single game for one player
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
)

// Valid returns true for the outcomes the ledger accepts
func (o Outcome) Valid() bool {
	return o == OutcomeWin || o == OutcomeLose
}

// ResultEntry is one immutable line of the result ledger
type ResultEntry struct {
	ID        string
	Username  string
	Outcome   Outcome
	Timestamp time.Time
}

// LeaderboardEntry is one ranked row derived from the ledger
type LeaderboardEntry struct {
	Rank     int
	Username string
	Wins     int
}
