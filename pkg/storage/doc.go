// Package storage holds the shared configuration for the catalog's
// persistence backends.
//
// # Overview
//
// The catalog keeps components, their statuses and their platform links in
// PostgreSQL, component images in an S3 bucket, and a read cache in memory
// and Redis. Backends live in subpackages:
//
//   - postgres: the catalog.Repository implementation, the primary/replica
//     connection manager, the schema bootstrap and the two-level read cache
//   - images: the catalog.ImageStore implementation on S3
//
// # Configuration
//
// Config carries every backend setting. DefaultConfig returns pool sizes,
// timeouts and cache TTLs suitable for a single small deployment:
//
//	cfg := storage.DefaultConfig()
//	cfg.PostgresURL = "postgres://localhost/msc?sslmode=disable"
//	cfg.S3Bucket = "msc-assets"
//	cfg.RedisURL = "redis://localhost:6379/0"
//
// # Read Cache
//
// The cache stores three listings, keyed by CacheKeyNames, CacheKeyCount
// and CacheKeyRows. Each has its own TTL in Config.CacheTTL. Any successful
// write drops all three.
//
//	repo := postgres.NewRepository(conns, metrics, logger)
//	cached := postgres.NewCachedRepository(repo, redisClient, cfg, metrics, logger)
//
// # Health Checks
//
// Backends that can be probed implement HealthChecker. The health endpoint
// and the healthcheck command call them with a bounded context.
package storage
