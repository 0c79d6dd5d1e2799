package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every flag name to form its environment variable
const EnvPrefix = "SHELLGAME"

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQL    = "sql"
)

// Config is the server configuration
type Config struct {
	Bind string
	Port int

	Storage        string
	RedisURL       string
	RedisKeyPrefix string
	SQLDriver      string
	SQLDSN         string
	LockTimeout    time.Duration

	TokenSecret string
	TokenTTL    time.Duration
	CORSOrigin  string

	LogLevel  string
	LogFormat string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Validate rejects inconsistent combinations
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}

	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	case StorageSQL:
		if c.SQLDSN == "" {
			return errors.New("--sql-dsn is required when --storage=sql")
		}
		switch c.SQLDriver {
		case "sqlite", "postgres", "mysql":
		default:
			return fmt.Errorf("invalid --sql-driver (must be sqlite, postgres or mysql): %q", c.SQLDriver)
		}
	default:
		return fmt.Errorf("invalid --storage (must be memory, redis or sql): %q", c.Storage)
	}

	if c.LockTimeout <= 0 {
		return errors.New("--lock-timeout must be positive")
	}
	if c.TokenTTL <= 0 {
		return errors.New("--token-ttl must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid --log-format (must be json or text): %q", c.LogFormat)
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, fmt.Errorf("invalid --log-level: %q", level)
	}
	return l, nil
}

// BindFlags registers the server flags on cmd and fills unset flags from
// SHELLGAME_* environment variables, including those in a .env file.
func BindFlags(cmd *cobra.Command, cfg *Config) {
	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: SHELLGAME_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: SHELLGAME_PORT)")
	fs.StringVar(&cfg.Storage, "storage", StorageMemory, "storage backend: memory, redis or sql (env: SHELLGAME_STORAGE)")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "redis connection url (env: SHELLGAME_REDIS_URL)")
	fs.StringVar(&cfg.RedisKeyPrefix, "redis-key-prefix", "shellgame", "prefix for persisted keys (env: SHELLGAME_REDIS_KEY_PREFIX)")
	fs.StringVar(&cfg.SQLDriver, "sql-driver", "sqlite", "sql driver: sqlite, postgres or mysql (env: SHELLGAME_SQL_DRIVER)")
	fs.StringVar(&cfg.SQLDSN, "sql-dsn", "./data/shellgame.db", "sql data source name (env: SHELLGAME_SQL_DSN)")
	fs.DurationVar(&cfg.LockTimeout, "lock-timeout", 5*time.Second, "maximum wait for a state lock (env: SHELLGAME_LOCK_TIMEOUT)")
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "HMAC secret for login tokens, generated if empty (env: SHELLGAME_TOKEN_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 24*time.Hour, "lifetime of login tokens (env: SHELLGAME_TOKEN_TTL)")
	fs.StringVar(&cfg.CORSOrigin, "cors-origin", "*", "allowed CORS origin (env: SHELLGAME_CORS_ORIGIN)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn or error (env: SHELLGAME_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", "json", "log format: json or text (env: SHELLGAME_LOG_FORMAT)")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", 15*time.Second, "http read timeout (env: SHELLGAME_READ_TIMEOUT)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", 15*time.Second, "http write timeout (env: SHELLGAME_WRITE_TIMEOUT)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout (env: SHELLGAME_SHUTDOWN_TIMEOUT)")

	prev := cmd.PreRunE
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if err := ApplyEnv(cmd.Flags(), ".env"); err != nil {
			return err
		}
		if prev != nil {
			return prev(cmd, args)
		}
		return nil
	}
}

// ApplyEnv loads the given .env files (missing files are ignored) and sets
// every flag not given on the command line from its environment variable.
func ApplyEnv(fs *pflag.FlagSet, envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var setErr error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && setErr == nil {
				setErr = fmt.Errorf("invalid value for %s_%s: %w",
					EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err)
			}
		}
	})
	return setErr
}
