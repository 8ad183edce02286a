package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mortisplay.ru/qa/internal/pkg/logger"
)

const redisKeyPrefix = "qa:cooldown:"

// RedisLimiter keeps cooldown state in Redis, so the window holds across
// restarts and multiple backend replicas. The reservation is a single
// SET NX PX, atomic on the Redis side.
//
// On Redis errors the limiter fails open: letting one extra question
// through beats refusing every visitor while Redis is down.
type RedisLimiter struct {
	client   *redis.Client
	cooldown time.Duration
}

// NewRedisLimiter creates a limiter backed by the given client.
func NewRedisLimiter(client *redis.Client, cooldown time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, cooldown: cooldown}
}

// Acquire implements Limiter.
func (l *RedisLimiter) Acquire(ctx context.Context, identity string) (Grant, error) {
	key := redisKeyPrefix + identity

	ok, err := l.client.SetNX(ctx, key, 1, l.cooldown).Result()
	if err != nil {
		logger.Warn("Redis cooldown check failed, failing open", zap.Error(err))
		return noopGrant{}, nil
	}
	if !ok {
		retry := l.cooldown
		if ttl, err := l.client.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			retry = ttl
		}
		return nil, &DenyError{RetryAfter: retry}
	}

	return &redisGrant{limiter: l, key: key}, nil
}

type redisGrant struct {
	limiter *RedisLimiter
	key     string
	done    bool
}

// Commit restarts the window from the confirmed write, not from Acquire.
func (g *redisGrant) Commit(ctx context.Context) {
	if g.done {
		return
	}
	g.done = true
	if err := g.limiter.client.PExpire(ctx, g.key, g.limiter.cooldown).Err(); err != nil {
		logger.Warn("Redis cooldown commit failed", zap.String("key", g.key), zap.Error(err))
	}
}

func (g *redisGrant) Release(ctx context.Context) {
	if g.done {
		return
	}
	g.done = true
	if err := g.limiter.client.Del(ctx, g.key).Err(); err != nil {
		logger.Warn("Redis cooldown release failed", zap.String("key", g.key), zap.Error(err))
	}
}

// noopGrant is handed out when Redis is unreachable.
type noopGrant struct{}

func (noopGrant) Commit(ctx context.Context)  {}
func (noopGrant) Release(ctx context.Context) {}
