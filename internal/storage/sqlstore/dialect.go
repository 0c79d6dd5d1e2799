package sqlstore

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	// Drivers registered for sql.Open
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures the per-database differences of the key/value table
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN turns the configured DSN into what the driver expects
	DSN(dsn string) string

	// Rebind converts ? placeholders if the driver needs another syntax
	Rebind(query string) string

	// CreateTableQuery returns the DDL for the key/value table
	CreateTableQuery() string

	// UpsertQuery returns an insert-or-replace statement taking (key, value)
	UpsertQuery() string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error
}

// DialectFor returns the dialect for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// SQLite

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite3" }

func (sqliteDialect) DSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
}

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) CreateTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS kv_store (
		k TEXT PRIMARY KEY,
		v BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
}

func (sqliteDialect) UpsertQuery() string {
	return `INSERT INTO kv_store (k, v, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`
}

func (sqliteDialect) ConfigureConnection(db *sql.DB) error {
	// A single writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)
	_, err := db.Exec(`PRAGMA journal_mode = WAL;`)
	return err
}

// PostgreSQL

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) DSN(dsn string) string { return dsn }

func (postgresDialect) Rebind(query string) string { return rewritePlaceholdersToNumbered(query) }

func (postgresDialect) CreateTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS kv_store (
		k TEXT PRIMARY KEY,
		v BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
}

func (postgresDialect) UpsertQuery() string {
	return `INSERT INTO kv_store (k, v, updated_at) VALUES (?, ?, NOW())
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = EXCLUDED.updated_at`
}

func (postgresDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(10)
	return nil
}

// MySQL

type mysqlDialect struct{}

func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) DSN(dsn string) string { return dsn }

func (mysqlDialect) Rebind(query string) string { return query }

func (mysqlDialect) CreateTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS kv_store (
		k VARCHAR(191) NOT NULL PRIMARY KEY,
		v LONGBLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
}

func (mysqlDialect) UpsertQuery() string {
	return `INSERT INTO kv_store (k, v, updated_at) VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE v = VALUES(v), updated_at = VALUES(updated_at)`
}

func (mysqlDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(10)
	return nil
}
