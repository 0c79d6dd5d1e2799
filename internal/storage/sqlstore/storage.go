package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/shellgame/internal/storage"
)

// Config holds SQL connection settings
type Config struct {
	// Driver is one of sqlite, postgres, mysql
	Driver string
	// DSN is a file path for sqlite, or a connection URL/DSN otherwise
	DSN string
	// LockTimeout bounds lock acquisition (locks are in-process)
	LockTimeout time.Duration
}

// DefaultConfig returns a config for a local SQLite file
func DefaultConfig() Config {
	return Config{
		Driver:      "sqlite",
		DSN:         "./data/shellgame.db",
		LockTimeout: storage.DefaultLockTimeout,
	}
}

// Storage keeps the key/value blobs in a single SQL table.
// Locks are in-process, so one server instance per database.
type Storage struct {
	*storage.LocalLocker

	db      *sql.DB
	dialect Dialect

	getQuery    string
	existsQuery string
	upsertQuery string
}

// Ensure Storage implements the interface
var _ storage.Backend = (*Storage)(nil)

// New opens the database, applies connection settings and creates the table
func New(cfg Config) (*Storage, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewWithDB(ctx, db, dialect, cfg.LockTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an open database (for testing)
func NewWithDB(ctx context.Context, db *sql.DB, dialect Dialect, lockTimeout time.Duration) (*Storage, error) {
	if err := dialect.ConfigureConnection(db); err != nil {
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, dialect.CreateTableQuery()); err != nil {
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}

	return &Storage{
		LocalLocker: storage.NewLocalLocker(lockTimeout),
		db:          db,
		dialect:     dialect,
		getQuery:    dialect.Rebind(`SELECT v FROM kv_store WHERE k = ?`),
		existsQuery: dialect.Rebind(`SELECT COUNT(*) FROM kv_store WHERE k = ?`),
		upsertQuery: dialect.Rebind(dialect.UpsertQuery()),
	}, nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.upsertQuery, key, value)
	return err
}

func (s *Storage) SetMulti(ctx context.Context, entries map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range entries {
		if _, err := tx.ExecContext(ctx, s.upsertQuery, key, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.existsQuery, key).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
