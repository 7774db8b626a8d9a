package numbers

import (
    "context"
    "time"

    "github.com/hamzaKhattat/powerdialer/internal/db"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

const recencySetKey = "numbers:recency"

// RedisRecency backs the recency cache with a Redis sorted set, scored by
// dial timestamp, so an expiry sweep is a single ZREMRANGEBYSCORE instead
// of a full scan. The sweep takes the same distributed lock the teacher's
// DID allocator uses around its own "read, then mutate" sequence.
type RedisRecency struct {
    cache *db.Cache
}

// NewRedisRecency builds a Redis-backed recency cache on top of an
// already-connected cache client.
func NewRedisRecency(cache *db.Cache) *RedisRecency {
    return &RedisRecency{cache: cache}
}

func (r *RedisRecency) Contains(ctx context.Context, normalized string) bool {
    _, ok, err := r.cache.ZScore(ctx, recencySetKey, normalized)
    if err != nil {
        logger.WithContext(ctx).WithError(err).Warn("recency lookup failed, treating as not present")
        return false
    }
    return ok
}

func (r *RedisRecency) Insert(ctx context.Context, normalized string, now time.Time) {
    if err := r.cache.ZAdd(ctx, recencySetKey, float64(now.Unix()), normalized); err != nil {
        logger.WithContext(ctx).WithError(err).Warn("recency insert failed")
    }
}

func (r *RedisRecency) Expire(ctx context.Context, now time.Time, window time.Duration) {
    unlock, err := r.cache.Lock(ctx, "numbers:recency:sweep", 5*time.Second)
    if err != nil {
        // Another process is already sweeping; that's fine, it covers us too.
        return
    }
    defer unlock()

    cutoff := now.Add(-window).Unix()
    if err := r.cache.ZRemRangeByScore(ctx, recencySetKey, 0, float64(cutoff)); err != nil {
        logger.WithContext(ctx).WithError(err).Warn("recency sweep failed")
    }
}

func (r *RedisRecency) Warm(ctx context.Context, entries map[string]time.Time) {
    for number, t := range entries {
        r.Insert(ctx, Normalize(number), t)
    }
}

func (r *RedisRecency) Size(ctx context.Context) int {
    n, err := r.cache.ZCard(ctx, recencySetKey)
    if err != nil {
        return 0
    }
    return int(n)
}
