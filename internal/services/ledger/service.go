package ledger

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/mcoot/shellgame/internal/dependencies/clock"
	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
)

// WinCounter is the part of the identity registry the ledger updates.
// CreditWin mutates accounts loaded under the users lock and reports
// whether anything changed.
type WinCounter interface {
	CreditWin(users map[string]*model.UserAccount, username string) bool
}

// Service is the append-only result ledger and the leaderboard derived from it
type Service struct {
	repo   *storage.Repository
	locker storage.Locker
	wins   WinCounter
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new ledger Service
func New(repo *storage.Repository, locker storage.Locker, wins WinCounter, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		wins:   wins,
		clock:  clock,
		logger: logger,
	}
}

// Append adds one entry to the ledger
func (s *Service) Append(ctx context.Context, username string, outcome model.Outcome) (*model.ResultEntry, error) {
	entry, err := s.newEntry(username, outcome)
	if err != nil {
		return nil, err
	}

	err = s.locker.WithLock(ctx, storage.LockResults, func(ctx context.Context) error {
		results, err := s.repo.GetResults(ctx)
		if err != nil {
			return err
		}
		return s.repo.SaveResults(ctx, append(results, *entry))
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Record appends an outcome and credits the account on a win.
// The ledger and the accounts are written together or not at all.
func (s *Service) Record(ctx context.Context, username string, outcome model.Outcome) (*model.ResultEntry, error) {
	return s.RecordWith(ctx, username, outcome, s.repo.SaveLedger)
}

// RecordWith is Record with the final write delegated to write, so callers
// holding other locks can commit their own state in the same SetMulti.
// Locks are taken results first, then users.
func (s *Service) RecordWith(ctx context.Context, username string, outcome model.Outcome, write storage.LedgerWrite) (*model.ResultEntry, error) {
	entry, err := s.newEntry(username, outcome)
	if err != nil {
		return nil, err
	}

	err = s.locker.WithLock(ctx, storage.LockResults, func(ctx context.Context) error {
		results, err := s.repo.GetResults(ctx)
		if err != nil {
			return err
		}
		results = append(results, *entry)

		if outcome != model.OutcomeWin {
			return write(ctx, results, nil)
		}

		return s.locker.WithLock(ctx, storage.LockUsers, func(ctx context.Context) error {
			users, err := s.repo.GetUsers(ctx)
			if err != nil {
				return err
			}
			if !s.wins.CreditWin(users, username) {
				users = nil
			}
			return write(ctx, results, users)
		})
	})
	if err != nil {
		s.logger.Error("failed to record result",
			slog.String("username", username),
			slog.String("outcome", string(outcome)),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("result recorded",
		slog.String("username", username),
		slog.String("outcome", string(outcome)))
	return entry, nil
}

func (s *Service) newEntry(username string, outcome model.Outcome) (*model.ResultEntry, error) {
	if username == "" {
		return nil, model.InvalidInput("username is required")
	}
	if !outcome.Valid() {
		return nil, model.InvalidInput("outcome must be %q or %q", model.OutcomeWin, model.OutcomeLose)
	}
	return &model.ResultEntry{
		ID:        uuid.NewString(),
		Username:  username,
		Outcome:   outcome,
		Timestamp: s.clock.Now(),
	}, nil
}

// Results returns every ledger entry in append order
func (s *Service) Results(ctx context.Context) ([]model.ResultEntry, error) {
	return s.repo.GetResults(ctx)
}

// Leaderboard ranks every username in the ledger by wins
func (s *Service) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	results, err := s.repo.GetResults(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeLeaderboard(results), nil
}

// ComputeLeaderboard counts wins per username, most wins first.
// Ties keep the order in which usernames first appear in the ledger.
// Tied players share a rank.
func ComputeLeaderboard(results []model.ResultEntry) []model.LeaderboardEntry {
	wins := make(map[string]int)
	var order []string
	for _, r := range results {
		if _, seen := wins[r.Username]; !seen {
			wins[r.Username] = 0
			order = append(order, r.Username)
		}
		if r.Outcome == model.OutcomeWin {
			wins[r.Username]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return wins[order[i]] > wins[order[j]]
	})

	board := make([]model.LeaderboardEntry, 0, len(order))
	for i, username := range order {
		rank := i + 1
		if i > 0 && wins[username] == board[i-1].Wins {
			rank = board[i-1].Rank
		}
		board = append(board, model.LeaderboardEntry{
			Rank:     rank,
			Username: username,
			Wins:     wins[username],
		})
	}
	return board
}
