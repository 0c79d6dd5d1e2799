package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Account:
		o.printAccount(v)
	case LoginResult:
		o.printLoginResult(v)
	case JoinResult:
		o.printJoinResult(v)
	case WaitingList:
		o.printWaitingList(v.WaitingList)
	case SessionState:
		o.printSessionState(v)
	case GuessResult:
		o.printGuessResult(v)
	case ResultEntry:
		o.printResultEntry(v)
	case ResultList:
		o.printResultList(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Account response type (matches API)
type Account struct {
	Username  string    `json:"username"`
	Wins      int       `json:"wins"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResult combines account and token
type LoginResult struct {
	Account   Account   `json:"account"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Resolution response type
type Resolution struct {
	SessionID      string    `json:"session_id"`
	Players        []string  `json:"players"`
	Winner         string    `json:"winner"`
	HiddenPosition int       `json:"hidden_position"`
	ByElimination  bool      `json:"by_elimination"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

// Session response type
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

// SessionState response type
type SessionState struct {
	Session     Session  `json:"session"`
	WaitingList []string `json:"waiting_list"`
}

// JoinResult response type
type JoinResult struct {
	Position      int      `json:"position"`
	SessionFormed bool     `json:"session_formed"`
	Session       Session  `json:"session"`
	WaitingList   []string `json:"waiting_list"`
}

// WaitingList response type
type WaitingList struct {
	WaitingList []string `json:"waiting_list"`
}

// GuessResult response type
type GuessResult struct {
	Correct       bool     `json:"correct"`
	GameOver      bool     `json:"game_over"`
	Winner        string   `json:"winner,omitempty"`
	ByElimination bool     `json:"by_elimination,omitempty"`
	NextPlayer    string   `json:"next_player,omitempty"`
	NextSession   *Session `json:"next_session,omitempty"`
}

// ResultEntry response type
type ResultEntry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Outcome   string    `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultList is the full ledger
type ResultList []ResultEntry

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

// Leaderboard is the ranked list of players
type Leaderboard []LeaderboardEntry

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printAccount(a Account) {
	o.printf("Account: %s\n", a.Username)
	o.printf("Wins: %d\n", a.Wins)
}

func (o *Output) printLoginResult(l LoginResult) {
	o.printAccount(l.Account)
	o.printf("Logged in until %s\n", l.ExpiresAt.Local().Format(time.DateTime))
}

func (o *Output) printJoinResult(j JoinResult) {
	o.printf("Joined waiting list at position %d\n", j.Position)
	if j.SessionFormed {
		o.printf("Session formed!\n")
	}
	o.printSession(j.Session)
	o.printWaitingList(j.WaitingList)
}

func (o *Output) printWaitingList(waiting []string) {
	if len(waiting) == 0 {
		o.printf("Waiting list: (empty)\n")
		return
	}
	o.printf("Waiting list (%d):\n", len(waiting))
	for i, u := range waiting {
		o.printf("  %d. %s\n", i+1, u)
	}
}

func (o *Output) printSessionState(s SessionState) {
	o.printSession(s.Session)
	o.printWaitingList(s.WaitingList)
}

func (o *Output) printSession(s Session) {
	if !s.Active {
		o.printf("Session: idle\n")
	} else {
		o.printf("Session: %s\n", s.ID)
		for i, p := range s.Players {
			marker := "  "
			if i == s.CurrentPlayerIndex {
				marker = "> "
			}
			o.printf("  %s%s\n", marker, p)
		}
		o.printf("Attempts: %d/%d\n", s.AttemptsUsed, s.MaxAttempts)
		o.printf("Cups: %s\n", renderCups(s.GuessedPositions, -1))
	}

	if r := s.LastResult; r != nil {
		how := "guessed correctly"
		if r.ByElimination {
			how = "by elimination"
		}
		o.printf("Last winner: %s (%s)\n", r.Winner, how)
		o.printf("Revealed: %s\n", renderCups(nil, r.HiddenPosition))
	}
}

// renderCups draws the three cups. Wrong guesses are crossed out and the
// revealed ball, if any, is shown.
func renderCups(guessed []int, ball int) string {
	cups := make([]string, 3)
	for i := range cups {
		switch {
		case i == ball:
			cups[i] = fmt.Sprintf("[%d:o]", i)
		case slices.Contains(guessed, i):
			cups[i] = fmt.Sprintf("[%d:x]", i)
		default:
			cups[i] = fmt.Sprintf("[%d]", i)
		}
	}
	return strings.Join(cups, " ")
}

func (o *Output) printGuessResult(g GuessResult) {
	switch {
	case g.Correct:
		o.printf("Correct! %s wins\n", g.Winner)
	case g.GameOver:
		o.printf("Wrong. %s wins by elimination\n", g.Winner)
	default:
		o.printf("Wrong. Next player: %s\n", g.NextPlayer)
	}

	if g.NextSession != nil {
		o.printf("\nNext session:\n")
		o.printSession(*g.NextSession)
	}
}

func (o *Output) printResultEntry(r ResultEntry) {
	o.printf("%s  %-8s %s\n", r.Timestamp.Local().Format(time.DateTime), r.Outcome, r.Username)
}

func (o *Output) printResultList(results ResultList) {
	if len(results) == 0 {
		o.printf("No results yet\n")
		return
	}
	for _, r := range results {
		o.printResultEntry(r)
	}
}

func (o *Output) printLeaderboard(board Leaderboard) {
	if len(board) == 0 {
		o.printf("No players yet\n")
		return
	}
	o.printf("%-5s %-32s %s\n", "RANK", "PLAYER", "WINS")
	for _, e := range board {
		o.printf("%-5d %-32s %d\n", e.Rank, e.Username, e.Wins)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	o.printf("Status: %s\n", h.Status)
	if h.Store != "" {
		o.printf("Store: %s\n", h.Store)
	}
}
