package response

import (
	"time"

	"github.com/mcoot/shellgame/internal/model"
)

// Account represents an account in API responses
type Account struct {
	Username  string    `json:"username"`
	Wins      int       `json:"wins"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFromModel converts a model.AccountSummary
func AccountFromModel(a *model.AccountSummary) Account {
	return Account{
		Username:  a.Username,
		Wins:      a.Wins,
		CreatedAt: a.CreatedAt,
	}
}

// LoginResponse is the response for a successful login
type LoginResponse struct {
	Account   Account   `json:"account"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Resolution describes how a finished session ended
type Resolution struct {
	SessionID      string    `json:"session_id"`
	Players        []string  `json:"players"`
	Winner         string    `json:"winner"`
	HiddenPosition int       `json:"hidden_position"`
	ByElimination  bool      `json:"by_elimination"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

// ResolutionFromModel converts model.Resolution
func ResolutionFromModel(r *model.Resolution) *Resolution {
	if r == nil {
		return nil
	}
	return &Resolution{
		SessionID:      string(r.SessionID),
		Players:        r.Players,
		Winner:         r.Winner,
		HiddenPosition: r.HiddenPosition,
		ByElimination:  r.ByElimination,
		ResolvedAt:     r.ResolvedAt,
	}
}

// Session represents the shared session as clients see it.
// The hidden position is never included; it is revealed in LastResult.
type Session struct {
	ID                 string      `json:"id,omitempty"`
	Active             bool        `json:"active"`
	Players            []string    `json:"players"`
	CurrentPlayerIndex int         `json:"current_player_index"`
	CurrentPlayer      string      `json:"current_player,omitempty"`
	AttemptsUsed       int         `json:"attempts_used"`
	MaxAttempts        int         `json:"max_attempts"`
	GuessedPositions   []int       `json:"guessed_positions"`
	FormedAt           *time.Time  `json:"formed_at,omitempty"`
	LastResult         *Resolution `json:"last_result,omitempty"`
}

// SessionFromModel converts model.Session
func SessionFromModel(s *model.Session) Session {
	players := s.Players
	if players == nil {
		players = []string{}
	}
	guessed := s.GuessedPositions
	if guessed == nil {
		guessed = []int{}
	}

	var formedAt *time.Time
	if s.Active && !s.FormedAt.IsZero() {
		t := s.FormedAt
		formedAt = &t
	}

	return Session{
		ID:                 string(s.ID),
		Active:             s.Active,
		Players:            players,
		CurrentPlayerIndex: s.CurrentPlayerIndex,
		CurrentPlayer:      s.CurrentPlayer(),
		AttemptsUsed:       s.AttemptsUsed,
		MaxAttempts:        model.MaxAttempts,
		GuessedPositions:   guessed,
		FormedAt:           formedAt,
		LastResult:         ResolutionFromModel(s.LastResult),
	}
}

// SessionState is the response for GET /session
type SessionState struct {
	Session     Session  `json:"session"`
	WaitingList []string `json:"waiting_list"`
}

// JoinResponse is the response after joining the waiting list
type JoinResponse struct {
	Position      int      `json:"position"`
	SessionFormed bool     `json:"session_formed"`
	Session       Session  `json:"session"`
	WaitingList   []string `json:"waiting_list"`
}

// JoinResponseFromModel converts model.JoinOutcome
func JoinResponseFromModel(o *model.JoinOutcome) JoinResponse {
	return JoinResponse{
		Position:      o.Position,
		SessionFormed: o.SessionFormed,
		Session:       SessionFromModel(o.Session),
		WaitingList:   NonNil(o.WaitingList),
	}
}

// WaitingList is the response after leaving the waiting list
type WaitingList struct {
	WaitingList []string `json:"waiting_list"`
}

// GuessResponse is the response after a guess
type GuessResponse struct {
	Correct       bool     `json:"correct"`
	GameOver      bool     `json:"game_over"`
	Winner        string   `json:"winner,omitempty"`
	ByElimination bool     `json:"by_elimination,omitempty"`
	NextPlayer    string   `json:"next_player,omitempty"`
	NextSession   *Session `json:"next_session,omitempty"`
}

// GuessResponseFromModel converts model.GuessOutcome
func GuessResponseFromModel(o *model.GuessOutcome) GuessResponse {
	resp := GuessResponse{
		Correct:       o.Correct,
		GameOver:      o.GameOver,
		Winner:        o.Winner,
		ByElimination: o.ByElimination,
		NextPlayer:    o.NextPlayer,
	}
	if o.NextSession != nil {
		next := SessionFromModel(o.NextSession)
		resp.NextSession = &next
	}
	return resp
}

// ResultEntry represents one ledger entry
type ResultEntry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Outcome   string    `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultEntryFromModel converts model.ResultEntry
func ResultEntryFromModel(e model.ResultEntry) ResultEntry {
	return ResultEntry{
		ID:        e.ID,
		Username:  e.Username,
		Outcome:   string(e.Outcome),
		Timestamp: e.Timestamp,
	}
}

// ResultEntriesFromModel converts a ledger slice
func ResultEntriesFromModel(entries []model.ResultEntry) []ResultEntry {
	out := make([]ResultEntry, len(entries))
	for i, e := range entries {
		out[i] = ResultEntryFromModel(e)
	}
	return out
}

// LeaderboardEntry represents one ranked row
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

// LeaderboardFromModel converts the ranked rows
func LeaderboardFromModel(entries []model.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntry{
			Rank:     e.Rank,
			Username: e.Username,
			Wins:     e.Wins,
		}
	}
	return out
}

// Health is the response for GET /health
type Health struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// NonNil returns an empty slice in place of nil so lists encode as []
func NonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
