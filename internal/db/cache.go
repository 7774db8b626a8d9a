package db

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/go-redis/redis/v8"
    "github.com/hamzaKhattat/powerdialer/pkg/errors"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

// CacheConfig describes how to connect to Redis.
type CacheConfig struct {
    Host         string
    Port         int
    Password     string
    DB           int
    PoolSize     int
    MinIdleConns int
    MaxRetries   int
    DialTimeout  time.Duration
    ReadTimeout  time.Duration
    WriteTimeout time.Duration
}

// Cache is a thin, prefix-namespaced wrapper around a Redis client. It
// backs the "redis" backend of both the agent status store and the number
// manager's recency cache (internal/agentstore, internal/numbers).
type Cache struct {
    client *redis.Client
    prefix string
}

// OpenCache connects to Redis and verifies the connection with a ping.
func OpenCache(cfg CacheConfig, prefix string) (*Cache, error) {
    client := redis.NewClient(&redis.Options{
        Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
        Password:     cfg.Password,
        DB:           cfg.DB,
        PoolSize:     cfg.PoolSize,
        MinIdleConns: cfg.MinIdleConns,
        MaxRetries:   cfg.MaxRetries,
        DialTimeout:  cfg.DialTimeout,
        ReadTimeout:  cfg.ReadTimeout,
        WriteTimeout: cfg.WriteTimeout,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    if err := client.Ping(ctx).Err(); err != nil {
        return nil, errors.Wrap(err, errors.ErrRedis, "failed to connect to redis")
    }

    logger.Info("redis cache connected")
    return &Cache{client: client, prefix: prefix}, nil
}

func (c *Cache) key(k string) string {
    if c.prefix != "" {
        return fmt.Sprintf("%s:%s", c.prefix, k)
    }
    return k
}

// Get reads key into dest. A cache miss or any Redis error is treated as a
// miss (logged, not returned) — callers fall back to the authoritative
// source on error, matching the teacher's "never fail a request because
// the cache is unhappy" posture.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
    val, err := c.client.Get(ctx, c.key(key)).Result()
    if err == redis.Nil {
        return nil
    }
    if err != nil {
        logger.WithContext(ctx).WithField("key", key).WithError(err).Warn("cache get failed")
        return nil
    }

    if err := json.Unmarshal([]byte(val), dest); err != nil {
        logger.WithContext(ctx).WithField("key", key).WithError(err).Warn("cache unmarshal failed")
    }
    return nil
}

// Set stores value under key with the given expiration (0 = no expiry).
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
    data, err := json.Marshal(value)
    if err != nil {
        return nil
    }

    if err := c.client.Set(ctx, c.key(key), data, expiration).Err(); err != nil {
        logger.WithContext(ctx).WithField("key", key).WithError(err).Warn("cache set failed")
    }
    return nil
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
    full := make([]string, len(keys))
    for i, k := range keys {
        full[i] = c.key(k)
    }
    if err := c.client.Del(ctx, full...).Err(); err != nil {
        logger.WithContext(ctx).WithError(err).Warn("cache delete failed")
    }
    return nil
}

// Lock acquires a short-lived distributed lock, returning an unlock
// function that releases it only if still held by this acquisition.
func (c *Cache) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
    lockKey := c.key(fmt.Sprintf("lock:%s", key))
    value := fmt.Sprintf("%d", time.Now().UnixNano())

    ok, err := c.client.SetNX(ctx, lockKey, value, ttl).Result()
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrRedis, "failed to acquire lock")
    }
    if !ok {
        return nil, errors.New(errors.ErrInternal, "lock already held")
    }

    return func() {
        script := redis.NewScript(`
            if redis.call("get", KEYS[1]) == ARGV[1] then
                return redis.call("del", KEYS[1])
            else
                return 0
            end
        `)
        script.Run(ctx, c.client, []string{lockKey}, value)
    }, nil
}

// ZAdd, ZScore, ZRemRangeByScore and ZCard expose the sorted-set primitives the Redis-backed
// recency cache uses to keep normalized numbers ordered by dial time, so
// expiry can sweep the oldest entries without scanning the whole set.
func (c *Cache) ZAdd(ctx context.Context, key string, score float64, member string) error {
    return c.client.ZAdd(ctx, c.key(key), &redis.Z{Score: score, Member: member}).Err()
}

func (c *Cache) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
    score, err := c.client.ZScore(ctx, c.key(key), member).Result()
    if err == redis.Nil {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, errors.Wrap(err, errors.ErrRedis, "zscore failed")
    }
    return score, true, nil
}

func (c *Cache) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
    return c.client.ZRemRangeByScore(ctx, c.key(key), fmt.Sprintf("%f", min), fmt.Sprintf("%f", max)).Err()
}

func (c *Cache) ZCard(ctx context.Context, key string) (int64, error) {
    n, err := c.client.ZCard(ctx, c.key(key)).Result()
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrRedis, "zcard failed")
    }
    return n, nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
    return c.client.Close()
}
