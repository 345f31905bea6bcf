// Package cache provides a Redis-backed metadata cache with per-key TTLs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs for the two metadata variants.
const (
	VideoTTL      = time.Hour
	VideoBasicTTL = 30 * time.Minute
)

// VideoKey returns the cache key for a video's full metadata.
func VideoKey(youtubeID string) string {
	return "video_" + youtubeID
}

// VideoBasicKey returns the cache key for a video's lightweight metadata.
func VideoBasicKey(youtubeID string) string {
	return "video_basic_" + youtubeID
}

// Cache stores JSON-serialized values in Redis. A nil *Cache is valid and
// behaves as an always-miss cache, so callers never need to branch on
// whether caching is configured.
type Cache struct {
	client *redis.Client
}

// New creates a new Cache backed by the given Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get unmarshals the value stored under key into dest. The second return
// value reports whether the key was present.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}

	return true, nil
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	return nil
}
