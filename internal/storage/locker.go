package storage

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/shellgame/internal/model"
)

// DefaultLockTimeout bounds how long a caller waits for a lock
const DefaultLockTimeout = 5 * time.Second

// LocalLocker is an in-process Locker, sufficient for a single server instance
type LocalLocker struct {
	timeout time.Duration

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker creates a LocalLocker. A zero timeout uses DefaultLockTimeout.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LocalLocker{
		timeout: timeout,
		locks:   make(map[string]chan struct{}),
	}
}

var _ Locker = (*LocalLocker)(nil)

// WithLock runs fn while holding the named lock
func (l *LocalLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	sem := l.semaphore(name)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case sem <- struct{}{}:
	case <-waitCtx.Done():
		return &model.StoreError{Op: "lock", Key: name, Err: model.ErrLockTimeout}
	}
	defer func() { <-sem }()

	return fn(ctx)
}

func (l *LocalLocker) semaphore(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[name]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[name] = sem
	}
	return sem
}
