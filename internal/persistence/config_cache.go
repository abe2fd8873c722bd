package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const configCacheKey = "helpdesk:app_config"

// RedisConfigCache stores the application configuration snapshot in redis
// with a short TTL. Expiry is delegated to redis itself.
type RedisConfigCache struct {
	client *redis.Client
}

// NewRedisConfigCache builds the cache on top of an existing connection.
func NewRedisConfigCache(r *Redis) *RedisConfigCache {
	return &RedisConfigCache{client: r.Client}
}

func (c *RedisConfigCache) Get(ctx context.Context) (domain.AppConfig, bool, error) {
	raw, err := c.client.Get(ctx, configCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AppConfig{}, false, nil
	}
	if err != nil {
		return domain.AppConfig{}, false, err
	}
	var cfg domain.AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		// treat a corrupt entry as a miss; it will be rewritten
		return domain.AppConfig{}, false, nil
	}
	return cfg, true, nil
}

func (c *RedisConfigCache) Set(ctx context.Context, cfg domain.AppConfig, ttl time.Duration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, configCacheKey, raw, ttl).Err()
}

func (c *RedisConfigCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, configCacheKey).Err()
}
