package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.LockTimeout = 100 * time.Millisecond
	cfg.LockRetryInterval = 5 * time.Millisecond

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Key/value tests

func (s *StorageSuite) TestSetAndGet() {
	err := s.storage.Set(s.ctx, "shellgame:results", []byte(`[]`))
	s.Require().NoError(err)

	value, err := s.storage.Get(s.ctx, "shellgame:results")
	s.Require().NoError(err)
	s.Equal([]byte(`[]`), value)
}

func (s *StorageSuite) TestGetNotFound() {
	_, err := s.storage.Get(s.ctx, "nonexistent")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StorageSuite) TestSetHasNoTTL() {
	_ = s.storage.Set(s.ctx, "k", []byte("v"))
	s.Equal(time.Duration(0), s.mini.TTL("k"))
}

func (s *StorageSuite) TestSetMulti() {
	err := s.storage.SetMulti(s.ctx, map[string][]byte{
		"current_session": []byte(`{"Active":false}`),
		"waiting_list":    []byte(`["alice"]`),
	})
	s.Require().NoError(err)

	session, err := s.mini.Get("current_session")
	s.Require().NoError(err)
	s.Equal(`{"Active":false}`, session)

	waiting, err := s.mini.Get("waiting_list")
	s.Require().NoError(err)
	s.Equal(`["alice"]`, waiting)
}

func (s *StorageSuite) TestExists() {
	exists, err := s.storage.Exists(s.ctx, "k")
	s.Require().NoError(err)
	s.False(exists)

	_ = s.storage.Set(s.ctx, "k", []byte("v"))

	exists, err = s.storage.Exists(s.ctx, "k")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestPing() {
	s.NoError(s.storage.Ping(s.ctx))
}

func (s *StorageSuite) TestGetFailsWhenServerDown() {
	s.mini.Close()
	_, err := s.storage.Get(s.ctx, "k")
	s.Error(err)
	s.NotErrorIs(err, storage.ErrNotFound)
}

// Lock tests

func (s *StorageSuite) TestWithLockHoldsKeyWithTTL() {
	err := s.storage.WithLock(s.ctx, "matchmaking", func(ctx context.Context) error {
		s.True(s.mini.Exists(lockKeyPrefix + "matchmaking"))
		s.Greater(s.mini.TTL(lockKeyPrefix+"matchmaking"), time.Duration(0))
		return nil
	})
	s.Require().NoError(err)

	s.False(s.mini.Exists(lockKeyPrefix + "matchmaking"))
}

func (s *StorageSuite) TestWithLockTimesOutWhenHeldElsewhere() {
	// Another instance holds the lock
	s.Require().NoError(s.mini.Set(lockKeyPrefix+"matchmaking", "other-instance"))

	err := s.storage.WithLock(s.ctx, "matchmaking", func(ctx context.Context) error {
		s.Fail("fn must not run without the lock")
		return nil
	})
	s.ErrorIs(err, model.ErrLockTimeout)
	s.ErrorIs(err, model.ErrStoreUnavailable)

	// Foreign lock untouched
	owner, _ := s.mini.Get(lockKeyPrefix + "matchmaking")
	s.Equal("other-instance", owner)
}

func (s *StorageSuite) TestWithLockDoesNotReleaseForeignLock() {
	err := s.storage.WithLock(s.ctx, "results", func(ctx context.Context) error {
		// Simulate our lock expiring and another instance taking it
		return s.mini.Set(lockKeyPrefix+"results", "other-instance")
	})
	s.Require().NoError(err)

	owner, _ := s.mini.Get(lockKeyPrefix + "results")
	s.Equal("other-instance", owner)
}

func (s *StorageSuite) TestLockKeysFollowKeyPrefix() {
	cfg := s.storage.cfg
	cfg.KeyPrefix = "blue"
	blue := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = blue.Close() }()
	cfg.KeyPrefix = "green"
	green := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = green.Close() }()

	err := blue.WithLock(s.ctx, "matchmaking", func(ctx context.Context) error {
		s.True(s.mini.Exists("blue:" + lockKeyPrefix + "matchmaking"))
		s.False(s.mini.Exists(lockKeyPrefix + "matchmaking"))

		// Another deployment on the same Redis is not blocked
		return green.WithLock(ctx, "matchmaking", func(ctx context.Context) error {
			s.True(s.mini.Exists("green:" + lockKeyPrefix + "matchmaking"))
			return nil
		})
	})
	s.Require().NoError(err)
}

func (s *StorageSuite) TestWithLockSerializesAcrossClients() {
	cfg := s.storage.cfg
	cfg.LockTimeout = 5 * time.Second
	other := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = other.Close() }()
	s.storage.cfg.LockTimeout = 5 * time.Second

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		st := s.storage
		if i%2 == 1 {
			st = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.WithLock(s.ctx, "counter", func(ctx context.Context) error {
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	s.Equal(20, counter)
}
