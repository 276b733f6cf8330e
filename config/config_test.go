package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "HTTP_READ_TIMEOUT", "SHUTDOWN_TIMEOUT", "CACHE_CONTROL",
		"STORAGE_DRIVER", "MINIO_BUCKET", "MINIO_USE_SSL", "REDIS_DB",
		"SONG_CACHE_TTL", "PLAYER_VOLUME", "DB_ENABLED",
	} {
		t.Setenv(k, "") // restored after the test
		os.Unsetenv(k)
	}
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "minio", cfg.StorageDriver)
	assert.Equal(t, "bt1stream", cfg.MinioBucket)
	assert.Equal(t, "public, max-age=31536000, immutable", cfg.CacheControl)

	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.MinioUseSSL)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 10*time.Minute, cfg.SongCacheTTL)
	assert.Equal(t, 0.9, cfg.PlayerVolume)
	assert.True(t, cfg.DBEnabled)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("HTTP_READ_TIMEOUT", "45")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PLAYER_VOLUME", "0.5")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 45*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 0.5, cfg.PlayerVolume)
	assert.Equal(t, "memory", cfg.StorageDriver)
}

func TestGetEnvDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("X_BT1_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("X_BT1_DURATION", time.Minute))
}
