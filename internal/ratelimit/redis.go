package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// Redis is the shared-store limiter for multi-process deployments. The
// counter is an atomic INCR; the key's TTL is the window and doubles as
// eviction.
type Redis struct {
	rdb    *redis.Client
	limit  int
	period time.Duration
}

func NewRedis(rdb *redis.Client, limit int, period time.Duration) *Redis {
	return &Redis{rdb: rdb, limit: limit, period: period}
}

func (l *Redis) Allow(ctx context.Context, key string) (Result, error) {
	key = redisKeyPrefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.period)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	resetAt := time.Now().Add(ttl.Val())

	if count > l.limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - count, ResetAt: resetAt}, nil
}
