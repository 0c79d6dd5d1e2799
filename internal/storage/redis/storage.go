package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
)

// lockKeyPrefix namespaces lock keys away from state keys
const lockKeyPrefix = "lock:"

// releaseScript deletes the lock only if this holder still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Storage is a Redis-backed implementation of the storage interface.
// Its lock is shared by every server instance using the same Redis.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	defaults := DefaultConfig()
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaults.LockTimeout
	}
	if cfg.LockRetryInterval <= 0 {
		cfg.LockRetryInterval = defaults.LockRetryInterval
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Backend = (*Storage)(nil)

// Key/value operations

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *Storage) SetMulti(ctx context.Context, entries map[string][]byte) error {
	// MULTI/EXEC so no reader observes half of the update
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	return err
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Lock operations

// WithLock runs fn while holding a Redis lock (SET NX PX with an owner token)
func (s *Storage) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	key := s.lockKey(name)
	token := uuid.NewString()

	if err := s.acquire(ctx, key, token); err != nil {
		return err
	}
	defer func() {
		// Release even if the request context was cancelled mid-operation
		_ = releaseScript.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err()
	}()

	return fn(ctx)
}

// lockKey places the lock under the deployment's key prefix, e.g. "shellgame:lock:results"
func (s *Storage) lockKey(name string) string {
	return storage.Keys{Prefix: s.cfg.KeyPrefix}.Key(lockKeyPrefix + name)
}

func (s *Storage) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(s.cfg.LockTimeout)

	for {
		ok, err := s.client.SetNX(ctx, key, token, s.cfg.LockTTL).Result()
		if err != nil {
			return &model.StoreError{Op: "lock", Key: key, Err: err}
		}
		if ok {
			return nil
		}

		if time.Now().After(deadline) {
			return &model.StoreError{Op: "lock", Key: key, Err: model.ErrLockTimeout}
		}

		timer := time.NewTimer(s.cfg.LockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &model.StoreError{Op: "lock", Key: key, Err: model.ErrLockTimeout}
		case <-timer.C:
		}
	}
}
