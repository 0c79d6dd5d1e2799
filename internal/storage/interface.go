package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when the key has never been set
var ErrNotFound = errors.New("key not found")

// Store is durable key/value persistence over opaque blobs.
// It provides no transactions beyond SetMulti; callers serialize
// read-modify-write cycles with a Locker.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMulti writes all entries together: either every key is updated or none is
	SetMulti(ctx context.Context, entries map[string][]byte) error
	Exists(ctx context.Context, key string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// Locker provides named mutual exclusion around read-modify-write cycles
type Locker interface {
	// WithLock runs fn while holding the named lock.
	// Acquisition is bounded; on timeout it returns an error matching
	// model.ErrLockTimeout without running fn.
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Backend is a Store that also knows how to lock itself
type Backend interface {
	Store
	Locker
}
