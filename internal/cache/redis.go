package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "user:"

// RedisProfileCache stores profiles as JSON under user:<username>. Every call
// is bounded by timeout so a slow Redis cannot hold up a request.
type RedisProfileCache struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisProfileCache(client *redis.Client, ttl, timeout time.Duration) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: ttl, timeout: timeout}
}

func key(username string) string {
	return keyPrefix + username
}

func (c *RedisProfileCache) Get(ctx context.Context, username string) (*dto.UserResponse, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	raw, err := c.client.Get(ctx, key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, unavailable(err)
	}

	var profile dto.UserResponse
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A value we cannot decode is as good as absent.
		return nil, ErrMiss
	}
	return &profile, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, profile *dto.UserResponse) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Set(ctx, key(profile.Username), data, c.ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *RedisProfileCache) Delete(ctx context.Context, username string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Del(ctx, key(username)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *RedisProfileCache) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (c *RedisProfileCache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
}
