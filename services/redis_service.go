package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/redis/go-redis/v9"

	"quoteapi-server/models"
)

const (
	aiConfigCacheKey = "config:ai"
	aiConfigTTL      = time.Minute
	rateLimitPrefix  = "ratelimit:run:"
	rateLimitWindow  = time.Minute
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(host string, port int) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
	})
	return &RedisService{client: client}
}

// GetCachedAIConfig returns the cached AI config, or nil on miss.
// Redis failures are reported as a miss so callers fall through to the DB.
func (r *RedisService) GetCachedAIConfig(ctx context.Context) *models.AIConfig {
	var cfg *models.AIConfig

	xray.Capture(ctx, "Redis.Get", func(ctx1 context.Context) error {
		jsonData, err := r.client.Get(ctx, aiConfigCacheKey).Result()
		if err != nil {
			return nil
		}

		var c models.AIConfig
		if err := json.Unmarshal([]byte(jsonData), &c); err != nil {
			return nil
		}
		cfg = &c

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.key", aiConfigCacheKey)
			seg.AddMetadata("redis.operation", "GET")
		}

		return nil
	})

	return cfg
}

// CacheAIConfig stores the AI config with a short TTL
func (r *RedisService) CacheAIConfig(ctx context.Context, cfg models.AIConfig) {
	xray.Capture(ctx, "Redis.Set", func(ctx1 context.Context) error {
		jsonData, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		err = r.client.Set(ctx, aiConfigCacheKey, jsonData, aiConfigTTL).Err()

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.key", aiConfigCacheKey)
			seg.AddMetadata("redis.operation", "SET")
		}

		return err
	})
}

// InvalidateAIConfig drops the cached AI config after an admin update
func (r *RedisService) InvalidateAIConfig(ctx context.Context) {
	xray.Capture(ctx, "Redis.Del", func(ctx1 context.Context) error {
		return r.client.Del(ctx, aiConfigCacheKey).Err()
	})
}

// AllowRun consumes one slot of the per-IP fixed window for the run
// surface and reports whether the request may proceed. Fails open when
// redis is unavailable.
func (r *RedisService) AllowRun(ctx context.Context, ip string, limit int) bool {
	if limit <= 0 {
		return true
	}

	allowed := true
	xray.Capture(ctx, "Redis.Incr", func(ctx1 context.Context) error {
		key := rateLimitPrefix + ip
		n, err := r.client.Incr(ctx, key).Result()
		if err != nil {
			return nil
		}
		if n == 1 {
			r.client.Expire(ctx, key, rateLimitWindow)
		}
		allowed = n <= int64(limit)

		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.key", key)
			seg.AddMetadata("redis.operation", "INCR")
		}

		return nil
	})

	return allowed
}

// Ping checks the Redis connection
func (r *RedisService) Ping(ctx context.Context) error {
	var err error
	xray.Capture(ctx, "Redis.Ping", func(ctx1 context.Context) error {
		err = r.client.Ping(ctx).Err()
		return err
	})
	return err
}
