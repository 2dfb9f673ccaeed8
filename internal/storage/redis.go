package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ ReplayStore = (*RedisReplayStore)(nil)

const (
	eventIDKeyPrefix   = "eventsub:id:"
	rateLimitKeyPrefix = "ratelimit:"
)

type RedisConfig struct {
	Client *redis.Client
}

// RedisReplayStore claims message ids with SET NX EX, so a claim is a single
// atomic round trip and expires on its own.
type RedisReplayStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReplayStore(cfg RedisConfig, ttl time.Duration) *RedisReplayStore {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &RedisReplayStore{client: cfg.Client, ttl: ttl}
}

func (r *RedisReplayStore) CheckEventID(ctx context.Context, id string) (bool, error) {
	claimed, err := r.client.SetNX(ctx, eventIDKeyPrefix+id, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim event id: %w", err)
	}
	return claimed, nil
}

func (r *RedisReplayStore) Close() error {
	return r.client.Close()
}

func (r *RedisReplayStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter applies a fixed-window per-key limit shared across
// replicas.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(cfg RedisConfig, limit int) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: cfg.Client,
		limit:  limit,
		window: time.Second,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	params := rateLimitParams{
		window: r.window,
		limit:  r.limit,
	}

	allowed, err := runRateLimitScript(ctx, r.client, rateLimitKeyPrefix+key, params)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	return RateLimitResult{
		Allowed:    allowed,
		RetryAfter: r.window,
	}, nil
}
