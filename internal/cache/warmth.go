// Package cache provides a Redis-backed cache for derived warmth scores so
// list views do not recompute decay on every request.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL bounds staleness between scheduled warmth refreshes
const DefaultTTL = 6 * time.Hour

// WarmthCache stores contact warmth scores keyed by contact ID
type WarmthCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWarmthCache wraps a Redis client; ttl <= 0 uses DefaultTTL
func NewWarmthCache(client *redis.Client, ttl time.Duration) *WarmthCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &WarmthCache{client: client, ttl: ttl}
}

// NewRedisClient connects to Redis at addr
func NewRedisClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, DB: db})
}

func warmthKey(contactID int64) string {
	return fmt.Sprintf("warmth:%d", contactID)
}

// Get returns the cached score and whether it was present
func (c *WarmthCache) Get(ctx context.Context, contactID int64) (float64, bool, error) {
	val, err := c.client.Get(ctx, warmthKey(contactID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read warmth cache: %w", err)
	}

	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt warmth cache entry for contact %d: %w", contactID, err)
	}
	return score, true, nil
}

// Set stores a score with the cache TTL
func (c *WarmthCache) Set(ctx context.Context, contactID int64, score float64) error {
	val := strconv.FormatFloat(score, 'f', 4, 64)
	if err := c.client.Set(ctx, warmthKey(contactID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write warmth cache: %w", err)
	}
	return nil
}

// Invalidate drops a contact's cached score, used when a touchpoint lands
func (c *WarmthCache) Invalidate(ctx context.Context, contactID int64) error {
	if err := c.client.Del(ctx, warmthKey(contactID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate warmth cache: %w", err)
	}
	return nil
}

// Ping checks connectivity for health reporting
func (c *WarmthCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
