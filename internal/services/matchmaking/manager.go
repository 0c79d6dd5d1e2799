package matchmaking

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/mcoot/shellgame/internal/dependencies/clock"
	"github.com/mcoot/shellgame/internal/dependencies/random"
	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
)

// OutcomeRecorder is the part of the result ledger the manager writes to.
// RecordWith must hand the appended ledger to write rather than saving it itself.
type OutcomeRecorder interface {
	RecordWith(ctx context.Context, username string, outcome model.Outcome, write storage.LedgerWrite) (*model.ResultEntry, error)
}

// Snapshot is a consistent copy of the session and the waiting list
type Snapshot struct {
	Session     *model.Session
	WaitingList []string
}

// Manager owns the waiting list and the shared session.
// Every transition is a read-modify-write under the matchmaking lock,
// and a rejected transition writes nothing.
type Manager struct {
	repo     *storage.Repository
	locker   storage.Locker
	recorder OutcomeRecorder
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// NewManager creates a new matchmaking Manager
func NewManager(
	repo *storage.Repository,
	locker storage.Locker,
	recorder OutcomeRecorder,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		repo:     repo,
		locker:   locker,
		recorder: recorder,
		clock:    clock,
		random:   random,
		logger:   logger,
	}
}

// Join appends username to the waiting list and forms a session if enough players wait
func (m *Manager) Join(ctx context.Context, username string) (*model.JoinOutcome, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, err
	}

	var outcome *model.JoinOutcome
	err := m.locker.WithLock(ctx, storage.LockMatchmaking, func(ctx context.Context) error {
		session, waiting, err := m.load(ctx)
		if err != nil {
			return err
		}

		if session.HasPlayer(username) || slices.Contains(waiting, username) {
			return model.ErrAlreadyQueuedOrInSession
		}

		waiting = append(waiting, username)
		position := len(waiting)

		session, waiting, formed := m.tryFormSessionIfEligible(session, waiting)

		if err := m.repo.SaveMatchmaking(ctx, session, waiting); err != nil {
			m.logger.Error("failed to save waiting list",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			return err
		}

		m.logger.Info("player joined waiting list",
			slog.String("username", username),
			slog.Int("position", position),
		)

		outcome = &model.JoinOutcome{
			Position:      position,
			SessionFormed: formed && session.HasPlayer(username),
			Session:       session.Clone(),
			WaitingList:   slices.Clone(waiting),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Leave removes username from the waiting list and returns the remaining queue.
// Seated players cannot leave an active session.
func (m *Manager) Leave(ctx context.Context, username string) ([]string, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, err
	}

	var remaining []string
	err := m.locker.WithLock(ctx, storage.LockMatchmaking, func(ctx context.Context) error {
		session, waiting, err := m.load(ctx)
		if err != nil {
			return err
		}

		idx := slices.Index(waiting, username)
		if idx < 0 {
			return model.ErrNotQueued
		}
		waiting = slices.Delete(waiting, idx, idx+1)

		if err := m.repo.SaveMatchmaking(ctx, session, waiting); err != nil {
			return err
		}

		m.logger.Info("player left waiting list", slog.String("username", username))
		remaining = slices.Clone(waiting)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return remaining, nil
}

// Snapshot returns copies of the session and the waiting list read under one lock
func (m *Manager) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := m.locker.WithLock(ctx, storage.LockMatchmaking, func(ctx context.Context) error {
		session, waiting, err := m.load(ctx)
		if err != nil {
			return err
		}
		snap = &Snapshot{Session: session, WaitingList: waiting}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// SubmitGuess applies a guess by the current player
func (m *Manager) SubmitGuess(ctx context.Context, username string, position int) (*model.GuessOutcome, error) {
	if username == "" {
		return nil, model.InvalidInput("username is required")
	}
	if !model.ValidPosition(position) {
		return nil, model.InvalidInput("position must be between 0 and %d", model.PositionCount-1)
	}

	var outcome *model.GuessOutcome
	err := m.locker.WithLock(ctx, storage.LockMatchmaking, func(ctx context.Context) error {
		session, waiting, err := m.load(ctx)
		if err != nil {
			return err
		}

		if !session.Active || session.CurrentPlayer() != username {
			return model.ErrNotYourTurn
		}
		if session.AlreadyGuessed(position) {
			return model.ErrPositionAlreadyGuessed
		}

		if position == session.HiddenPosition {
			outcome, err = m.resolve(ctx, session, waiting, username, false)
			return err
		}

		session.AttemptsUsed++
		session.GuessedPositions = append(session.GuessedPositions, position)

		if session.AttemptsUsed >= model.MaxAttempts {
			outcome, err = m.resolve(ctx, session, waiting, session.EliminationWinner(), true)
			return err
		}

		session.CurrentPlayerIndex++
		if err := m.repo.SaveMatchmaking(ctx, session, waiting); err != nil {
			return err
		}

		m.logger.Info("guess missed",
			slog.String("session_id", string(session.ID)),
			slog.String("username", username),
			slog.Int("attempts_used", session.AttemptsUsed),
		)

		outcome = &model.GuessOutcome{
			Correct:    false,
			GameOver:   false,
			NextPlayer: session.CurrentPlayer(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// resolve tears the session down and forms the next one if the backlog allows.
// The new session, the waiting list, the winner's ledger entry and win
// counter are written in a single SetMulti.
func (m *Manager) resolve(
	ctx context.Context,
	session *model.Session,
	waiting []string,
	winner string,
	byElimination bool,
) (*model.GuessOutcome, error) {
	resolution := &model.Resolution{
		SessionID:      session.ID,
		Players:        slices.Clone(session.Players),
		Winner:         winner,
		HiddenPosition: session.HiddenPosition,
		ByElimination:  byElimination,
		ResolvedAt:     m.clock.Now(),
	}

	next, waiting, formed := m.tryFormSessionIfEligible(model.IdleSession(resolution), waiting)

	_, err := m.recorder.RecordWith(ctx, winner, model.OutcomeWin,
		func(ctx context.Context, results []model.ResultEntry, users map[string]*model.UserAccount) error {
			return m.repo.SaveResolution(ctx, next, waiting, results, users)
		})
	if err != nil {
		m.logger.Error("failed to save resolved session",
			slog.String("session_id", string(session.ID)),
			slog.String("winner", winner),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	m.logger.Info("guess resolved",
		slog.String("session_id", string(session.ID)),
		slog.String("winner", winner),
		slog.Bool("by_elimination", byElimination),
	)

	outcome := &model.GuessOutcome{
		Correct:       !byElimination,
		GameOver:      true,
		Winner:        winner,
		ByElimination: byElimination,
	}
	if formed {
		outcome.NextSession = next.Clone()
	}
	return outcome, nil
}

// tryFormSessionIfEligible admits the front of the queue when no session is active.
// It is the single admission point, called after joins and after teardown.
func (m *Manager) tryFormSessionIfEligible(session *model.Session, waiting []string) (*model.Session, []string, bool) {
	if session.Active || len(waiting) < model.SessionSize {
		return session, waiting, false
	}

	candidates := slices.Clone(waiting[:model.SessionSize])
	rest := slices.Clone(waiting[model.SessionSize:])

	return m.formSession(candidates, session.LastResult), rest, true
}

// formSession seats exactly SessionSize candidates in random order and hides the ball
func (m *Manager) formSession(candidates []string, last *model.Resolution) *model.Session {
	players := slices.Clone(candidates)
	random.Shuffle(m.random, players)

	session := &model.Session{
		ID:                 model.SessionID(uuid.NewString()),
		Active:             true,
		Players:            players,
		CurrentPlayerIndex: 0,
		HiddenPosition:     m.random.Intn(model.PositionCount),
		AttemptsUsed:       0,
		GuessedPositions:   []int{},
		FormedAt:           m.clock.Now(),
		LastResult:         last,
	}

	m.logger.Info("session formed",
		slog.String("session_id", string(session.ID)),
		slog.Any("players", players),
	)
	return session
}

func (m *Manager) load(ctx context.Context) (*model.Session, []string, error) {
	session, err := m.repo.GetSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	waiting, err := m.repo.GetWaitingList(ctx)
	if err != nil {
		return nil, nil, err
	}
	return session, waiting, nil
}
