package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces the per-source sorted sets.
const redisKeyPrefix = "coletor:ratelimit:"

// RedisLedger stores request timestamps in a Redis sorted set per source,
// scored by unix nanoseconds. Several worker processes collecting the same
// source then share a single requests-per-minute budget.
type RedisLedger struct {
	redis *redis.Client
	seq   atomic.Uint64
}

// NewRedisLedger creates a ledger backed by the given Redis client.
func NewRedisLedger(redisClient *redis.Client) *RedisLedger {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisLedger{redis: redisClient}
}

func redisKey(source string) string {
	return redisKeyPrefix + source
}

// Record implements Ledger. The member carries a process-local sequence
// suffix so two entries in the same nanosecond cannot collapse into one.
func (l *RedisLedger) Record(ctx context.Context, source string, at time.Time) error {
	member := strconv.FormatInt(at.UnixNano(), 10) + "-" + strconv.FormatUint(l.seq.Add(1), 10)

	pipe := l.redis.Pipeline()
	pipe.ZAdd(ctx, redisKey(source), redis.Z{
		Score:  float64(at.UnixNano()),
		Member: member,
	})
	pipe.Expire(ctx, redisKey(source), 2*Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record in redis: %w", err)
	}
	return nil
}

// CountSince implements Ledger. Entries before cutoff are pruned as a side
// effect, keeping the set bounded by the window size.
func (l *RedisLedger) CountSince(ctx context.Context, source string, cutoff time.Time) (int, error) {
	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey(source), "-inf", "("+strconv.FormatInt(cutoff.UnixNano(), 10))
	card := pipe.ZCard(ctx, redisKey(source))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count in redis: %w", err)
	}
	return int(card.Val()), nil
}

// OldestSince implements Ledger.
func (l *RedisLedger) OldestSince(ctx context.Context, source string, cutoff time.Time) (time.Time, bool, error) {
	entries, err := l.redis.ZRangeByScoreWithScores(ctx, redisKey(source), &redis.ZRangeBy{
		Min:    strconv.FormatInt(cutoff.UnixNano(), 10),
		Max:    "+inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest in redis: %w", err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(0, int64(entries[0].Score)), true, nil
}
