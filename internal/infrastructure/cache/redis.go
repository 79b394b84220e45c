package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/gateway"
	"storefront/internal/infrastructure/logger"
)

const keyPrefix = "storefront:txstatus:"

// RedisCache keeps definitive gateway status results so repeated callbacks
// and reconciler sweeps do not hit the gateway again.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewRedisCache(ctx context.Context, url string, ttl time.Duration, logger *logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, transactionID string) (*gateway.StatusResult, bool) {
	data, err := c.client.Get(ctx, keyPrefix+transactionID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Status cache read failed", "transaction_id", transactionID, "error", err)
		}
		return nil, false
	}

	var result gateway.StatusResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("Status cache entry unreadable", "transaction_id", transactionID, "error", err)
		return nil, false
	}
	return &result, true
}

func (c *RedisCache) Put(ctx context.Context, transactionID string, result *gateway.StatusResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("Failed to encode status for cache", "transaction_id", transactionID, "error", err)
		return
	}

	if err := c.client.Set(ctx, keyPrefix+transactionID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Status cache write failed", "transaction_id", transactionID, "error", err)
	}
}

func (c *RedisCache) Close() {
	if err := c.client.Close(); err != nil {
		c.logger.Warn("Failed to close redis client", "error", err)
		return
	}
	c.logger.Info("Redis connection closed")
}
