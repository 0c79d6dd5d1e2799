package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// KeyPrefix namespaces lock keys the same way the repository namespaces state keys
	KeyPrefix string

	// Lock settings
	LockTTL           time.Duration // how long a held lock survives a crashed holder
	LockTimeout       time.Duration // how long WithLock waits to acquire
	LockRetryInterval time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:               "redis://localhost:6379",
		PoolSize:          10,
		MinIdleConns:      2,
		LockTTL:           10 * time.Second,
		LockTimeout:       5 * time.Second,
		LockRetryInterval: 25 * time.Millisecond,
	}
}
