package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	cfg := Config{
		Driver:      "sqlite",
		DSN:         filepath.Join(s.T().TempDir(), "shellgame.db"),
		LockTimeout: 50 * time.Millisecond,
	}
	st, err := New(cfg)
	s.Require().NoError(err)
	s.storage = st
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	_ = s.storage.Close()
}

func (s *StorageSuite) TestSetAndGet() {
	s.Require().NoError(s.storage.Set(s.ctx, "k", []byte("v1")))

	value, err := s.storage.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("v1"), value)
}

func (s *StorageSuite) TestSetOverwrites() {
	s.Require().NoError(s.storage.Set(s.ctx, "k", []byte("v1")))
	s.Require().NoError(s.storage.Set(s.ctx, "k", []byte("v2")))

	value, err := s.storage.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("v2"), value)
}

func (s *StorageSuite) TestGetNotFound() {
	_, err := s.storage.Get(s.ctx, "missing")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StorageSuite) TestExists() {
	exists, err := s.storage.Exists(s.ctx, "k")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.storage.Set(s.ctx, "k", []byte("v")))

	exists, err = s.storage.Exists(s.ctx, "k")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestSetMulti() {
	err := s.storage.SetMulti(s.ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	})
	s.Require().NoError(err)

	a, _ := s.storage.Get(s.ctx, "a")
	b, _ := s.storage.Get(s.ctx, "b")
	s.Equal([]byte("1"), a)
	s.Equal([]byte("2"), b)
}

func (s *StorageSuite) TestSetMultiCancelledLeavesNothing() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	err := s.storage.SetMulti(ctx, map[string][]byte{"a": []byte("1")})
	s.Error(err)

	exists, err := s.storage.Exists(s.ctx, "a")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *StorageSuite) TestPing() {
	s.NoError(s.storage.Ping(s.ctx))
}

func (s *StorageSuite) TestDataSurvivesReopen() {
	dsn := filepath.Join(s.T().TempDir(), "reopen.db")

	first, err := New(Config{Driver: "sqlite", DSN: dsn})
	s.Require().NoError(err)
	s.Require().NoError(first.Set(s.ctx, "k", []byte("kept")))
	s.Require().NoError(first.Close())

	second, err := New(Config{Driver: "sqlite", DSN: dsn})
	s.Require().NoError(err)
	defer func() { _ = second.Close() }()

	value, err := second.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("kept"), value)
}

func (s *StorageSuite) TestWithLockTimesOut() {
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.storage.WithLock(s.ctx, "l", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	err := s.storage.WithLock(s.ctx, "l", func(ctx context.Context) error { return nil })
	s.ErrorIs(err, model.ErrLockTimeout)
	s.ErrorIs(err, model.ErrStoreUnavailable)
}

func (s *StorageSuite) TestRepositoryRoundTripsOverSQL() {
	repo := storage.NewRepository(s.storage, "test")

	session := model.IdleSession(nil)
	session.Active = true
	session.Players = []string{"alice", "bob", "carol"}
	session.HiddenPosition = 1
	s.Require().NoError(repo.SaveMatchmaking(s.ctx, session, []string{"dave"}))

	loaded, err := repo.GetSession(s.ctx)
	s.Require().NoError(err)
	s.True(loaded.Active)
	s.Equal([]string{"alice", "bob", "carol"}, loaded.Players)

	waiting, err := repo.GetWaitingList(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"dave"}, waiting)
}

func (s *StorageSuite) TestConcurrentIncrementsUnderLock() {
	s.Require().NoError(s.storage.Set(s.ctx, "n", []byte{0}))

	s.storage.LocalLocker = storage.NewLocalLocker(5 * time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.storage.WithLock(s.ctx, "n", func(ctx context.Context) error {
				v, err := s.storage.Get(ctx, "n")
				if err != nil {
					return err
				}
				return s.storage.Set(ctx, "n", []byte{v[0] + 1})
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	v, err := s.storage.Get(s.ctx, "n")
	s.Require().NoError(err)
	s.Equal(byte(20), v[0])
}

func TestDialectSuite(t *testing.T) {
	suite.Run(t, new(DialectSuite))
}

type DialectSuite struct {
	suite.Suite
}

func (s *DialectSuite) TestKnownDrivers() {
	for driver, name := range map[string]string{
		"sqlite":     "sqlite3",
		"sqlite3":    "sqlite3",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"mysql":      "mysql",
		"MySQL":      "mysql",
	} {
		d, err := DialectFor(driver)
		s.Require().NoError(err, driver)
		s.Equal(name, d.DriverName(), driver)
	}
}

func (s *DialectSuite) TestUnknownDriver() {
	_, err := DialectFor("oracle")
	s.Error(err)
}

func (s *DialectSuite) TestPostgresRebindNumbersPlaceholders() {
	d, _ := DialectFor("postgres")
	s.Equal("SELECT v FROM kv_store WHERE k = $1 AND v = $2",
		d.Rebind("SELECT v FROM kv_store WHERE k = ? AND v = ?"))
}

func (s *DialectSuite) TestSQLiteDSNAddsPragmasOnce() {
	d, _ := DialectFor("sqlite")
	s.Equal("x.db?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", d.DSN("x.db"))
	s.Equal("x.db?mode=memory", d.DSN("x.db?mode=memory"))
}

