package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/storage"
)

// setupRedisClientTest creates a miniredis instance and returns the client and cleanup function
func setupRedisClientTest(t *testing.T) (*RedisClient, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := storage.DefaultConfig()
	config.RedisURL = "redis://" + mr.Addr()
	config.CacheTTL[storage.CacheKeyNames] = 10 * time.Minute

	client, err := NewRedisClient(config)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis client: %v", err)
	}

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(storage.Config{RedisURL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(storage.Config{RedisURL: "redis://" + addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	ctx := context.Background()

	names := []catalog.ComponentName{{Name: "Button"}, {Name: "Card"}}
	require.NoError(t, client.SetJSON(ctx, storage.CacheKeyNames, names))

	assert.True(t, mr.Exists(KeyPrefix+storage.CacheKeyNames))
	assert.Equal(t, 10*time.Minute, mr.TTL(KeyPrefix+storage.CacheKeyNames))

	var got []catalog.ComponentName
	hit, err := client.GetJSON(ctx, storage.CacheKeyNames, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, names, got)
}

func TestRedisClient_Miss(t *testing.T) {
	client, _, cleanup := setupRedisClientTest(t)
	defer cleanup()

	var got int64
	hit, err := client.GetJSON(context.Background(), storage.CacheKeyCount, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisClient_CorruptEntryIsDropped(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()

	require.NoError(t, mr.Set(KeyPrefix+storage.CacheKeyCount, "{not json"))

	var got int64
	hit, err := client.GetJSON(context.Background(), storage.CacheKeyCount, &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists(KeyPrefix+storage.CacheKeyCount))
}

func TestRedisClient_Delete(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, client.SetJSON(ctx, storage.CacheKeyNames, []string{"a"}))
	require.NoError(t, client.SetJSON(ctx, storage.CacheKeyCount, 1))
	require.NoError(t, client.SetJSON(ctx, storage.CacheKeyRows, []catalog.Row{}))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, client.Delete(ctx, storage.CacheKeyNames))
	assert.False(t, mr.Exists(KeyPrefix+storage.CacheKeyNames))
	assert.NoError(t, client.Delete(ctx))

	require.NoError(t, client.Delete(ctx, storage.CacheKeyCount, storage.CacheKeyRows))
	assert.False(t, mr.Exists(KeyPrefix+storage.CacheKeyCount))
	assert.False(t, mr.Exists(KeyPrefix+storage.CacheKeyRows))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisClient_Ping(t *testing.T) {
	client, mr, cleanup := setupRedisClientTest(t)
	defer cleanup()

	assert.NoError(t, client.Ping(context.Background()))
	assert.NotNil(t, client.Client())

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}
