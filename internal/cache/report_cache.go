package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix  = "report-cache"
	scanCount  = 200
	defaultTTL = 10 * time.Minute
)

// ReportCache stores rendered report payloads in Redis, keyed by route.
type ReportCache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewReportCache(client redis.Cmdable, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ReportCache{redis: client, ttl: ttl}
}

// Get decodes the cached value for key into dst. A miss returns false, nil.
func (c *ReportCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.redis.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read report cache: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		zap.L().Warn("discarding undecodable report cache entry", zap.String("key", key), zap.Error(err))
		_ = c.redis.Del(ctx, redisKey(key)).Err()
		return false, nil
	}
	return true, nil
}

func (c *ReportCache) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode report cache entry: %w", err)
	}
	if err := c.redis.Set(ctx, redisKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write report cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached page under each route prefix.
func (c *ReportCache) Invalidate(ctx context.Context, routes ...string) error {
	var errs []error
	for _, route := range routes {
		deleted, err := c.invalidateRoute(ctx, route)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", route, err))
			continue
		}
		observability.IncrementReportCacheEvent("invalidated")
		zap.L().Debug("report cache invalidated", zap.String("route", route), zap.Int("keys", deleted))
	}
	return errors.Join(errs...)
}

func (c *ReportCache) invalidateRoute(ctx context.Context, route string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	pattern := redisKey(route) + "*"
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.redis.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func redisKey(key string) string {
	return keyPrefix + ":" + key
}
