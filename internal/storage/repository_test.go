package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
	"github.com/mcoot/shellgame/internal/storage/memory"
)

// failingStore fails every operation
type failingStore struct {
	*memory.Storage
	err error
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) { return nil, f.err }
func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	return f.err
}
func (f *failingStore) SetMulti(ctx context.Context, entries map[string][]byte) error {
	return f.err
}
func (f *failingStore) Ping(ctx context.Context) error { return f.err }

type RepositorySuite struct {
	suite.Suite
	store *memory.Storage
	repo  *storage.Repository
	ctx   context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.store = memory.New()
	s.repo = storage.NewRepository(s.store, "sg")
	s.ctx = context.Background()
}

func (s *RepositorySuite) TestEmptyStoreDefaults() {
	session, err := s.repo.GetSession(s.ctx)
	s.Require().NoError(err)
	s.False(session.Active)
	s.Empty(session.Players)
	s.NotNil(session.Players)
	s.Nil(session.LastResult)

	waiting, err := s.repo.GetWaitingList(s.ctx)
	s.Require().NoError(err)
	s.NotNil(waiting)
	s.Empty(waiting)

	results, err := s.repo.GetResults(s.ctx)
	s.Require().NoError(err)
	s.Empty(results)

	users, err := s.repo.GetUsers(s.ctx)
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *RepositorySuite) TestSaveMatchmakingWritesBothKeysUnderPrefix() {
	session := model.IdleSession(nil)
	session.Active = true
	session.Players = []string{"a", "b", "c"}
	session.HiddenPosition = 2

	s.Require().NoError(s.repo.SaveMatchmaking(s.ctx, session, []string{"d", "e"}))

	exists, _ := s.store.Exists(s.ctx, "sg:current_session")
	s.True(exists)
	exists, _ = s.store.Exists(s.ctx, "sg:waiting_list")
	s.True(exists)

	loaded, err := s.repo.GetSession(s.ctx)
	s.Require().NoError(err)
	s.Equal(session.Players, loaded.Players)
	s.Equal(2, loaded.HiddenPosition)

	waiting, err := s.repo.GetWaitingList(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"d", "e"}, waiting)
}

func (s *RepositorySuite) TestSaveResolutionWritesAllFourKeys() {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	session := model.IdleSession(&model.Resolution{Winner: "a", ResolvedAt: ts})
	results := []model.ResultEntry{{ID: "1", Username: "a", Outcome: model.OutcomeWin, Timestamp: ts}}
	users := map[string]*model.UserAccount{"a": {Username: "a", Wins: 1}}

	s.Require().NoError(s.repo.SaveResolution(s.ctx, session, []string{"d"}, results, users))

	for _, key := range []string{"sg:current_session", "sg:waiting_list", "sg:results", "sg:users"} {
		exists, _ := s.store.Exists(s.ctx, key)
		s.True(exists, key)
	}

	loaded, err := s.repo.GetSession(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(loaded.LastResult)
	s.Equal("a", loaded.LastResult.Winner)

	gotResults, _ := s.repo.GetResults(s.ctx)
	s.Equal(results, gotResults)
	gotUsers, _ := s.repo.GetUsers(s.ctx)
	s.Equal(1, gotUsers["a"].Wins)
}

func (s *RepositorySuite) TestSaveLedgerWithoutUsersKeepsAccounts() {
	s.Require().NoError(s.repo.SaveUsers(s.ctx, map[string]*model.UserAccount{"a": {Username: "a", Wins: 4}}))

	results := []model.ResultEntry{{ID: "1", Username: "ghost", Outcome: model.OutcomeWin}}
	s.Require().NoError(s.repo.SaveLedger(s.ctx, results, nil))

	gotResults, _ := s.repo.GetResults(s.ctx)
	s.Len(gotResults, 1)
	gotUsers, _ := s.repo.GetUsers(s.ctx)
	s.Equal(4, gotUsers["a"].Wins)
}

func (s *RepositorySuite) TestResultsRoundTrip() {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []model.ResultEntry{
		{ID: "1", Username: "a", Outcome: model.OutcomeWin, Timestamp: ts},
		{ID: "2", Username: "b", Outcome: model.OutcomeLose, Timestamp: ts},
	}
	s.Require().NoError(s.repo.SaveResults(s.ctx, entries))

	loaded, err := s.repo.GetResults(s.ctx)
	s.Require().NoError(err)
	s.Equal(entries, loaded)
}

func (s *RepositorySuite) TestUsersRoundTrip() {
	users := map[string]*model.UserAccount{
		"a": {Username: "a", PasswordHash: "h", Wins: 3},
	}
	s.Require().NoError(s.repo.SaveUsers(s.ctx, users))

	loaded, err := s.repo.GetUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Contains(loaded, "a")
	s.Equal(3, loaded["a"].Wins)
}

func (s *RepositorySuite) TestCorruptBlobIsStoreError() {
	_ = s.store.Set(s.ctx, "sg:results", []byte("{not json"))

	_, err := s.repo.GetResults(s.ctx)
	s.ErrorIs(err, model.ErrStoreUnavailable)

	var se *model.StoreError
	s.Require().ErrorAs(err, &se)
	s.Equal("decode", se.Op)
}

func (s *RepositorySuite) TestBackendFailureIsStoreError() {
	boom := errors.New("connection refused")
	repo := storage.NewRepository(&failingStore{Storage: memory.New(), err: boom}, "")

	_, err := repo.GetSession(s.ctx)
	s.ErrorIs(err, model.ErrStoreUnavailable)
	s.ErrorIs(err, boom)

	err = repo.SaveMatchmaking(s.ctx, model.IdleSession(nil), []string{})
	s.ErrorIs(err, model.ErrStoreUnavailable)

	err = repo.SaveResolution(s.ctx, model.IdleSession(nil), []string{}, []model.ResultEntry{}, nil)
	s.ErrorIs(err, model.ErrStoreUnavailable)

	err = repo.SaveLedger(s.ctx, []model.ResultEntry{}, nil)
	s.ErrorIs(err, model.ErrStoreUnavailable)

	err = repo.Ping(s.ctx)
	s.ErrorIs(err, model.ErrStoreUnavailable)
}

func (s *RepositorySuite) TestKeysWithoutPrefix() {
	s.Equal("users", storage.Keys{}.Key(storage.KeyUsers))
	s.Equal("p:users", storage.Keys{Prefix: "p"}.Key(storage.KeyUsers))
}
