package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shellgame/internal/dependencies/mocks"
	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
	"github.com/mcoot/shellgame/internal/storage/memory"
	"github.com/mcoot/shellgame/internal/testutil"
)

// recordingCounter credits registered accounts and records every call
type recordingCounter struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCounter) CreditWin(users map[string]*model.UserAccount, username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, username)
	account, ok := users[username]
	if !ok {
		return false
	}
	account.Wins++
	return true
}

// flakyStore fails SetMulti while armed
type flakyStore struct {
	*memory.Storage
	fail bool
}

func (f *flakyStore) SetMulti(ctx context.Context, entries map[string][]byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Storage.SetMulti(ctx, entries)
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	repo    *storage.Repository
	clock   *mocks.MockClock
	wins    *recordingCounter
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.repo = storage.NewRepository(s.storage, "")
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.wins = &recordingCounter{}
	s.service = New(s.repo, s.storage, s.wins, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

// Append tests

func (s *ServiceSuite) TestAppendSucceeds() {
	entry, err := s.service.Append(s.ctx, "alice", model.OutcomeWin)
	s.Require().NoError(err)

	s.NotEmpty(entry.ID)
	s.Equal("alice", entry.Username)
	s.Equal(model.OutcomeWin, entry.Outcome)
	s.Equal(s.clock.Now(), entry.Timestamp)
}

func (s *ServiceSuite) TestAppendKeepsOrder() {
	_, _ = s.service.Append(s.ctx, "alice", model.OutcomeWin)
	s.clock.Advance(time.Second)
	_, _ = s.service.Append(s.ctx, "bob", model.OutcomeLose)

	results, err := s.service.Results(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal("alice", results[0].Username)
	s.Equal("bob", results[1].Username)
	s.True(results[1].Timestamp.After(results[0].Timestamp))
	s.NotEqual(results[0].ID, results[1].ID)
}

func (s *ServiceSuite) TestAppendRejectsEmptyUsername() {
	_, err := s.service.Append(s.ctx, "", model.OutcomeWin)
	s.ErrorIs(err, model.ErrInvalidInput)

	results, _ := s.service.Results(s.ctx)
	s.Empty(results)
}

func (s *ServiceSuite) TestAppendRejectsUnknownOutcome() {
	_, err := s.service.Append(s.ctx, "alice", model.Outcome("draw"))
	s.ErrorIs(err, model.ErrInvalidInput)

	results, _ := s.service.Results(s.ctx)
	s.Empty(results)
}

func (s *ServiceSuite) TestAppendDoesNotTouchWins() {
	_, _ = s.service.Append(s.ctx, "alice", model.OutcomeWin)
	s.Empty(s.wins.calls)
}

// Record tests

func (s *ServiceSuite) seedAccount(username string) {
	s.Require().NoError(s.repo.SaveUsers(s.ctx, map[string]*model.UserAccount{
		username: {Username: username, PasswordHash: "x", CreatedAt: s.clock.Now()},
	}))
}

func (s *ServiceSuite) winsOf(username string) int {
	users, err := s.repo.GetUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Contains(users, username)
	return users[username].Wins
}

func (s *ServiceSuite) TestRecordWinCreditsAccount() {
	s.seedAccount("alice")

	_, err := s.service.Record(s.ctx, "alice", model.OutcomeWin)
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, s.wins.calls)
	s.Equal(1, s.winsOf("alice"))

	results, _ := s.service.Results(s.ctx)
	s.Len(results, 1)
}

func (s *ServiceSuite) TestRecordWinForUnregisteredLeavesAccountsAlone() {
	_, err := s.service.Record(s.ctx, "ghost", model.OutcomeWin)
	s.Require().NoError(err)

	exists, err := s.storage.Exists(s.ctx, storage.KeyUsers)
	s.Require().NoError(err)
	s.False(exists)

	results, _ := s.service.Results(s.ctx)
	s.Len(results, 1)
}

func (s *ServiceSuite) TestRecordLoseDoesNotCreditWins() {
	_, err := s.service.Record(s.ctx, "alice", model.OutcomeLose)
	s.Require().NoError(err)
	s.Empty(s.wins.calls)

	results, _ := s.service.Results(s.ctx)
	s.Len(results, 1)
}

func (s *ServiceSuite) TestFailedRecordLeavesLedgerAndAccountsUnchanged() {
	store := &flakyStore{Storage: s.storage}
	s.repo = storage.NewRepository(store, "")
	s.service = New(s.repo, s.storage, s.wins, s.clock, testutil.NopLogger())
	s.seedAccount("alice")

	store.fail = true
	_, err := s.service.Record(s.ctx, "alice", model.OutcomeWin)
	s.ErrorIs(err, model.ErrStoreUnavailable)

	results, _ := s.service.Results(s.ctx)
	s.Empty(results)
	s.Equal(0, s.winsOf("alice"))

	// A retry after recovery counts the win exactly once
	store.fail = false
	_, err = s.service.Record(s.ctx, "alice", model.OutcomeWin)
	s.Require().NoError(err)

	results, _ = s.service.Results(s.ctx)
	s.Len(results, 1)
	s.Equal(1, s.winsOf("alice"))
}

func (s *ServiceSuite) TestRecordWithHandsStateToWriter() {
	s.seedAccount("alice")

	var gotResults []model.ResultEntry
	var gotUsers map[string]*model.UserAccount
	_, err := s.service.RecordWith(s.ctx, "alice", model.OutcomeWin,
		func(ctx context.Context, results []model.ResultEntry, users map[string]*model.UserAccount) error {
			gotResults, gotUsers = results, users
			return nil
		})
	s.Require().NoError(err)

	s.Require().Len(gotResults, 1)
	s.Equal("alice", gotResults[0].Username)
	s.Require().Contains(gotUsers, "alice")
	s.Equal(1, gotUsers["alice"].Wins)

	// Nothing was persisted by the ledger itself
	results, _ := s.service.Results(s.ctx)
	s.Empty(results)
	s.Equal(0, s.winsOf("alice"))
}

func (s *ServiceSuite) TestConcurrentAppendsAreAllKept() {
	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Append(s.ctx, "alice", model.OutcomeWin)
			s.NoError(err)
		}()
	}
	wg.Wait()

	results, err := s.service.Results(s.ctx)
	s.Require().NoError(err)
	s.Len(results, 25)
}

// Leaderboard tests

func (s *ServiceSuite) TestLeaderboardCountsWinsOnly() {
	_, _ = s.service.Append(s.ctx, "A", model.OutcomeWin)
	_, _ = s.service.Append(s.ctx, "B", model.OutcomeWin)
	_, _ = s.service.Append(s.ctx, "A", model.OutcomeLose)
	_, _ = s.service.Append(s.ctx, "A", model.OutcomeWin)

	board, err := s.service.Leaderboard(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.LeaderboardEntry{
		{Rank: 1, Username: "A", Wins: 2},
		{Rank: 2, Username: "B", Wins: 1},
	}, board)
}

func (s *ServiceSuite) TestLeaderboardEmpty() {
	board, err := s.service.Leaderboard(s.ctx)
	s.Require().NoError(err)
	s.Empty(board)
}

func (s *ServiceSuite) TestLeaderboardIsIdempotent() {
	_, _ = s.service.Append(s.ctx, "A", model.OutcomeWin)
	_, _ = s.service.Append(s.ctx, "B", model.OutcomeLose)

	first, err := s.service.Leaderboard(s.ctx)
	s.Require().NoError(err)
	second, err := s.service.Leaderboard(s.ctx)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func TestComputeLeaderboard(t *testing.T) {
	suite.Run(t, new(ComputeLeaderboardSuite))
}

type ComputeLeaderboardSuite struct {
	suite.Suite
}

func entries(pairs ...string) []model.ResultEntry {
	var out []model.ResultEntry
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.ResultEntry{Username: pairs[i], Outcome: model.Outcome(pairs[i+1])})
	}
	return out
}

func (s *ComputeLeaderboardSuite) TestTiesKeepFirstSeenOrderAndShareRank() {
	board := ComputeLeaderboard(entries(
		"carol", "win",
		"bob", "win",
		"alice", "win",
		"alice", "win",
	))
	s.Equal([]model.LeaderboardEntry{
		{Rank: 1, Username: "alice", Wins: 2},
		{Rank: 2, Username: "carol", Wins: 1},
		{Rank: 2, Username: "bob", Wins: 1},
	}, board)
}

func (s *ComputeLeaderboardSuite) TestZeroWinPlayersListedLast() {
	board := ComputeLeaderboard(entries(
		"dave", "lose",
		"erin", "win",
	))
	s.Equal([]model.LeaderboardEntry{
		{Rank: 1, Username: "erin", Wins: 1},
		{Rank: 2, Username: "dave", Wins: 0},
	}, board)
}
