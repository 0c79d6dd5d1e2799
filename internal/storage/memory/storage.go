package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/mcoot/shellgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	*storage.LocalLocker

	mu   sync.RWMutex
	data map[string][]byte
}

// New creates a new in-memory storage instance
func New() *Storage {
	return NewWithLockTimeout(0)
}

// NewWithLockTimeout creates an in-memory storage whose locks give up after timeout
func NewWithLockTimeout(timeout time.Duration) *Storage {
	return &Storage{
		LocalLocker: storage.NewLocalLocker(timeout),
		data:        make(map[string][]byte),
	}
}

// Ensure Storage implements the interface
var _ storage.Backend = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return bytes.Clone(value), nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = bytes.Clone(value)
	return nil
}

func (s *Storage) SetMulti(ctx context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range entries {
		s.data[key] = bytes.Clone(value)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}
