package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps the request log of every key in a sorted set scored by arrival time, so that
// all service instances pointing at the same Redis share one quota.
type RedisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	times  int
	window time.Duration
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(rdb redis.Cmdable, times int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: "ratelimit:", times: times, window: window, now: time.Now}
}

// NewRedisClient connects to Redis at addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (l *RedisLimiter) Window() time.Duration {
	return l.window
}

// Allow records the request and counts the requests inside the window in one transaction. A
// rejected request is not recorded, so a client that keeps retrying is not locked out forever.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	redisKey := l.prefix + key
	member := strconv.FormatInt(now.UnixNano(), 10)
	cutoff := strconv.FormatInt(now.Add(-l.window).UnixNano(), 10)

	var count *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
		count = pipe.ZCard(ctx, redisKey)
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		pipe.PExpire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if count.Val() >= int64(l.times) {
		if err := l.rdb.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, fmt.Errorf("rate limit %s: %w", key, err)
		}
		return false, nil
	}
	return true, nil
}
