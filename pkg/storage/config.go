package storage

import (
	"context"
	"time"
)

// Cache key namespaces used by the read cache
const (
	CacheKeyNames = "names"
	CacheKeyCount = "count"
	CacheKeyRows  = "rows"
)

// HealthChecker is implemented by backends that can report liveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config for storage backends
type Config struct {
	// PostgreSQL config
	PostgresURL         string
	PostgresReplicaURLs []string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration
	PostgresMaxIdleTime time.Duration
	AutoMigrate         bool

	// S3 config
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	S3PublicURL    string // overrides the generated object URL prefix
	S3CreateBucket bool

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Cache config
	CacheEnabled bool
	CacheTTL     map[string]time.Duration
	L1CacheSize  int // entries
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		PostgresMaxIdleTime: 5 * time.Minute,
		S3Region:            "us-east-1",
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
		CacheEnabled:        true,
		CacheTTL: map[string]time.Duration{
			CacheKeyNames: 5 * time.Minute,
			CacheKeyCount: 5 * time.Minute,
			CacheKeyRows:  1 * time.Minute,
		},
		L1CacheSize: 64,
	}
}

// S3Enabled reports whether an object store is configured
func (c Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// TTL returns the cache TTL for a namespace, falling back to one minute
func (c Config) TTL(namespace string) time.Duration {
	if ttl, ok := c.CacheTTL[namespace]; ok && ttl > 0 {
		return ttl
	}
	return time.Minute
}
