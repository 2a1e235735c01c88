package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.PostgresMaxConns)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.True(t, cfg.CacheEnabled)
	assert.False(t, cfg.S3Enabled())
}

func TestConfig_TTL(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Minute, cfg.TTL(CacheKeyNames))
	assert.Equal(t, time.Minute, cfg.TTL(CacheKeyRows))
	assert.Equal(t, time.Minute, cfg.TTL("unknown"))

	cfg.CacheTTL[CacheKeyCount] = 0
	assert.Equal(t, time.Minute, cfg.TTL(CacheKeyCount))
}

func TestConfig_S3Enabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.S3Bucket = "msc-assets"
	assert.True(t, cfg.S3Enabled())
}
