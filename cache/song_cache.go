package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Bt1Stream/model"

	"github.com/go-redis/redis/v8"
)

// RedisSongCache 缓存歌曲元数据，键为 song:{id}
type RedisSongCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSongCache(client *redis.Client, ttl time.Duration) *RedisSongCache {
	return &RedisSongCache{client: client, ttl: ttl}
}

func songKey(id int64) string {
	return fmt.Sprintf("song:%d", id)
}

// cachedSong carries the storage key, which model.Song hides from JSON.
type cachedSong struct {
	model.Song
	StorageKey string `json:"storageKey"`
}

// GetSong 返回缓存的歌曲，未命中时返回 (nil, nil)
func (c *RedisSongCache) GetSong(ctx context.Context, id int64) (*model.Song, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, songKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song from cache: %w", err)
	}

	var cs cachedSong
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode cached song: %w", err)
	}
	song := cs.Song
	song.StorageKey = cs.StorageKey
	return &song, nil
}

// SetSong 写入缓存
func (c *RedisSongCache) SetSong(ctx context.Context, song *model.Song) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(cachedSong{Song: *song, StorageKey: song.StorageKey})
	if err != nil {
		return fmt.Errorf("failed to encode song: %w", err)
	}
	return c.client.Set(ctx, songKey(song.ID), data, c.ttl).Err()
}
