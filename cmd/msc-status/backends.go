package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/config"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage/images"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage/postgres"
)

// backends holds the external connections shared by the serve and
// healthcheck commands
type backends struct {
	conns  *postgres.ConnectionManager
	redis  *postgres.RedisClient
	images *images.S3Store
}

// openBackends connects to PostgreSQL and, when configured, Redis and S3.
// Redis is optional unless the distributed rate limiter needs it.
func openBackends(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *observability.Logger) (*backends, error) {
	conns, err := postgres.NewConnectionManager(postgres.ConnectionConfigFrom(cfg.Storage), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b := &backends{conns: conns}

	if cfg.Storage.RedisURL != "" {
		client, err := postgres.NewRedisClient(cfg.Storage)
		switch {
		case err == nil:
			b.redis = client
		case requiresRedis(cfg):
			b.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		default:
			logger.WithError(err).Warn("Redis unavailable, caching in process only")
		}
	}

	if cfg.Storage.S3Enabled() {
		store, err := images.NewS3Store(ctx, cfg.Storage, metrics, logger)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to initialize image storage: %w", err)
		}
		b.images = store
	} else {
		logger.Warn("S3 bucket not configured, image uploads are disabled")
	}

	return b, nil
}

func requiresRedis(cfg *config.Config) bool {
	return cfg.RateLimit.Enabled && cfg.RateLimit.Backend == config.RateLimitRedis
}

// imageStore returns nil, not a typed nil, when S3 is disabled
func (b *backends) imageStore() catalog.ImageStore {
	if b.images == nil {
		return nil
	}
	return b.images
}

func (b *backends) redisClient() *redis.Client {
	if b.redis == nil {
		return nil
	}
	return b.redis.Client()
}

// healthChecker reports the database as critical and everything else as
// degrading only
func (b *backends) healthChecker() *observability.HealthChecker {
	checker := observability.NewHealthChecker(b.conns.Primary(), b.redisClient())
	checker.SetVersion(version)

	if b.conns.ReplicaCount() > 0 {
		checker.AddCheck("replicas", false, b.conns.HealthCheck)
	}
	if b.images != nil {
		checker.AddCheck("images", false, b.images.HealthCheck)
	}
	return checker
}

// Close releases every open connection
func (b *backends) Close() error {
	var errs []error
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := b.conns.Close(); err != nil {
		errs = append(errs, fmt.Errorf("postgres: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close backends: %v", errs)
	}
	return nil
}
