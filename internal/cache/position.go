// Package cache holds the Redis-backed read cache for live positions.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/routetracker/internal/domain"
)

// DefaultPositionTTL bounds how long a cached position outlives its last
// report when no TTL is configured.
const DefaultPositionTTL = 24 * time.Hour

// RedisPositionCache stores each user's last reported position under
// "user:<id>:position" with a TTL. The entity store remains authoritative.
type RedisPositionCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisPositionCache wraps rdb. A non-positive ttl selects
// DefaultPositionTTL.
func NewRedisPositionCache(rdb redis.Cmdable, ttl time.Duration) *RedisPositionCache {
	if ttl <= 0 {
		ttl = DefaultPositionTTL
	}
	return &RedisPositionCache{rdb: rdb, ttl: ttl}
}

func positionKey(userID int64) string {
	return fmt.Sprintf("user:%d:position", userID)
}

// GetPosition returns the cached position for userID. A missing key is a
// miss, not an error.
func (c *RedisPositionCache) GetPosition(ctx context.Context, userID int64) (domain.Position, bool, error) {
	raw, err := c.rdb.Get(ctx, positionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("cache.RedisPositionCache.GetPosition: %w", err)
	}

	var p domain.Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Position{}, false, fmt.Errorf("cache.RedisPositionCache.GetPosition: decode: %w", err)
	}
	return p, true, nil
}

// SetPosition caches p for userID, resetting the TTL.
func (c *RedisPositionCache) SetPosition(ctx context.Context, userID int64, p domain.Position) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache.RedisPositionCache.SetPosition: encode: %w", err)
	}
	if err := c.rdb.Set(ctx, positionKey(userID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache.RedisPositionCache.SetPosition: %w", err)
	}
	return nil
}

// FillPosition caches p for userID only when no position is cached, so a
// read-path fill never replaces a newer report.
func (c *RedisPositionCache) FillPosition(ctx context.Context, userID int64, p domain.Position) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache.RedisPositionCache.FillPosition: encode: %w", err)
	}
	if err := c.rdb.SetNX(ctx, positionKey(userID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache.RedisPositionCache.FillPosition: %w", err)
	}
	return nil
}

// DeletePosition removes the cached position for userID. Deleting a
// missing key is not an error.
func (c *RedisPositionCache) DeletePosition(ctx context.Context, userID int64) error {
	if err := c.rdb.Del(ctx, positionKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache.RedisPositionCache.DeletePosition: %w", err)
	}
	return nil
}
