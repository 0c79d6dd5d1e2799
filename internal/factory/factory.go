package factory

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/shellgame/internal/dependencies/clock"
	"github.com/mcoot/shellgame/internal/dependencies/random"
	"github.com/mcoot/shellgame/internal/services/identity"
	"github.com/mcoot/shellgame/internal/services/ledger"
	"github.com/mcoot/shellgame/internal/services/matchmaking"
	"github.com/mcoot/shellgame/internal/storage"
	"github.com/mcoot/shellgame/internal/storage/memory"
	redisstorage "github.com/mcoot/shellgame/internal/storage/redis"
	"github.com/mcoot/shellgame/internal/storage/sqlstore"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQL    = "sql"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage    storage.Backend
	Repository *storage.Repository

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	IdentityService    *identity.Service
	LedgerService      *ledger.Service
	MatchmakingManager *matchmaking.Manager
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sql")
	// If empty, defaults to "memory"
	StorageType string
	// KeyPrefix namespaces the persisted keys (optional)
	KeyPrefix string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLConfig holds database settings (required if StorageType is "sql")
	SQLConfig *sqlstore.Config
	// IdentityConfig configures tokens and hashing.
	// An empty TokenSecret is replaced by a random one, so tokens do not survive restarts.
	IdentityConfig identity.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Backend
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisCfg := *cfg.RedisConfig
		if redisCfg.KeyPrefix == "" {
			redisCfg.KeyPrefix = cfg.KeyPrefix
		}
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypeSQL:
		if cfg.SQLConfig == nil {
			return nil, errors.New("SQLConfig required when StorageType is sql")
		}
		sqlStore, err := sqlstore.New(*cfg.SQLConfig)
		if err != nil {
			return nil, err
		}
		store = sqlStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sql'")
	}

	identityCfg := cfg.IdentityConfig
	if len(identityCfg.TokenSecret) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		identityCfg.TokenSecret = secret
		logger.Warn("no token secret configured, generated an ephemeral one")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, cfg.KeyPrefix, clk, rnd, identityCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Backend,
	keyPrefix string,
	clk clock.Clock,
	rnd random.Random,
	identityCfg identity.Config,
	logger *slog.Logger,
) *App {
	repo := storage.NewRepository(store, keyPrefix)

	// Lock order: matchmaking, then results, then users
	identityService := identity.New(repo, store, clk, logger, identityCfg)
	ledgerService := ledger.New(repo, store, identityService, clk, logger)
	matchmakingManager := matchmaking.NewManager(repo, store, ledgerService, clk, rnd, logger)

	return &App{
		Storage:            store,
		Repository:         repo,
		Clock:              clk,
		Random:             rnd,
		IdentityService:    identityService,
		LedgerService:      ledgerService,
		MatchmakingManager: matchmakingManager,
	}
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}
