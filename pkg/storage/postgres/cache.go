package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage"
)

// CachedRepository is a two-level read cache in front of a catalog
// repository. Level one is an in-process LRU, level two is Redis. Entries
// are stored as JSON so callers never share slices with the cache. Every
// successful write drops both levels.
//
// A read that started before an invalidation never stores its result:
// generation is bumped by Invalidate and checked under mu before any fill.
type CachedRepository struct {
	catalog.Repository

	mu         sync.RWMutex
	generation uint64

	l1      map[string]*expirable.LRU[string, []byte]
	l2      *RedisClient
	metrics *observability.Metrics
	logger  *observability.Logger
}

var _ catalog.Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps next. l2 and metrics may be nil.
func NewCachedRepository(next catalog.Repository, l2 *RedisClient, config storage.Config, metrics *observability.Metrics, logger *observability.Logger) *CachedRepository {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	size := config.L1CacheSize
	if size <= 0 {
		size = 64
	}

	c := &CachedRepository{
		Repository: next,
		l1:         make(map[string]*expirable.LRU[string, []byte]),
		l2:         l2,
		metrics:    metrics,
		logger:     logger.WithField("component", "cache"),
	}
	for _, ns := range []string{storage.CacheKeyNames, storage.CacheKeyCount, storage.CacheKeyRows} {
		c.l1[ns] = expirable.NewLRU[string, []byte](size, func(string, []byte) {
			metrics.RecordCacheEviction("l1", "evicted")
		}, config.TTL(ns))
	}
	return c
}

// ListComponentNames returns the cached names listing
func (c *CachedRepository) ListComponentNames(ctx context.Context) ([]catalog.ComponentName, error) {
	return readThrough(ctx, c, storage.CacheKeyNames, c.Repository.ListComponentNames)
}

// CountComponents returns the cached component count
func (c *CachedRepository) CountComponents(ctx context.Context) (int64, error) {
	return readThrough(ctx, c, storage.CacheKeyCount, c.Repository.CountComponents)
}

// ListComponentRows returns the cached listing rows
func (c *CachedRepository) ListComponentRows(ctx context.Context) ([]catalog.Row, error) {
	return readThrough(ctx, c, storage.CacheKeyRows, c.Repository.ListComponentRows)
}

// CreateComponent creates and invalidates
func (c *CachedRepository) CreateComponent(ctx context.Context, in *catalog.ComponentInput, imageURL *string) (int64, error) {
	id, err := c.Repository.CreateComponent(ctx, in, imageURL)
	if err != nil {
		return 0, err
	}
	c.Invalidate(ctx)
	return id, nil
}

// UpdateComponent updates and invalidates
func (c *CachedRepository) UpdateComponent(ctx context.Context, id int64, in *catalog.ComponentInput, imageURL *string) error {
	if err := c.Repository.UpdateComponent(ctx, id, in, imageURL); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// UpdateResources updates and invalidates
func (c *CachedRepository) UpdateResources(ctx context.Context, id int64, patch *catalog.ResourcePatch) (catalog.ResourceUpdate, error) {
	updated, err := c.Repository.UpdateResources(ctx, id, patch)
	if err != nil {
		return updated, err
	}
	c.Invalidate(ctx)
	return updated, nil
}

// DeleteComponent deletes and invalidates
func (c *CachedRepository) DeleteComponent(ctx context.Context, id int64) error {
	if err := c.Repository.DeleteComponent(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// Invalidate drops every cached listing from both levels
func (c *CachedRepository) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.AddUint64(&c.generation, 1)
	for _, lru := range c.l1 {
		lru.Purge()
	}
	if c.l2 == nil {
		return
	}
	if err := c.l2.Delete(ctx, storage.CacheKeyNames, storage.CacheKeyCount, storage.CacheKeyRows); err != nil {
		c.logger.WithError(err).Warn("failed to invalidate redis cache")
	}
}

func readThrough[T any](ctx context.Context, c *CachedRepository, key string, load func(context.Context) (T, error)) (T, error) {
	var value T
	generation := atomic.LoadUint64(&c.generation)

	if data, ok := c.l1[key].Get(key); ok {
		if err := json.Unmarshal(data, &value); err == nil {
			c.metrics.RecordCacheLookup("l1", key, true)
			return value, nil
		}
		c.l1[key].Remove(key)
	}
	c.metrics.RecordCacheLookup("l1", key, false)

	if c.l2 != nil {
		hit, err := c.l2.GetJSON(ctx, key, &value)
		if err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("redis cache read failed")
		}
		c.metrics.RecordCacheLookup("redis", key, hit)
		if hit {
			c.fill(ctx, generation, key, value, false)
			return value, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	c.fill(ctx, generation, key, value, true)
	return value, nil
}

// fill stores value in L1 and, when toRedis is set, in Redis. It does
// nothing if an invalidation happened since generation was read.
func (c *CachedRepository) fill(ctx context.Context, generation uint64, key string, value interface{}, toRedis bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if atomic.LoadUint64(&c.generation) != generation {
		c.metrics.RecordCacheEviction("l1", "stale_fill")
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.l1[key].Add(key, data)

	if toRedis && c.l2 != nil {
		if err := c.l2.SetJSON(ctx, key, value); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("redis cache write failed")
		}
	}
}
