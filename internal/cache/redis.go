package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/piwi3910/barcut/internal/config"
)

const (
	defaultCacheTTL = 5 * time.Minute
	dialTimeout     = 5 * time.Second
)

// dialRedis connects to the configured redis and checks it answers.
// REDIS_URL wins over the host/port/password settings.
func dialRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     net.JoinHostPort(orDefault(cfg.RedisHost, "127.0.0.1"), orDefault(cfg.RedisPort, "6379")),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("plan cache: invalid redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("plan cache: redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

func planTTL(cfg config.CacheConfig) time.Duration {
	if cfg.PlanTTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(cfg.PlanTTLSeconds) * time.Second
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// invalidate deletes every plan entry. Keys are collected before deleting
// so removals cannot shift the scan cursor.
func (c *redisPlanCache) invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, planKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("plan cache: scan: %w", err)
	}

	for len(keys) > 0 {
		n := min(len(keys), scanBatchSize)
		if err := c.client.Del(ctx, keys[:n]...).Err(); err != nil {
			return fmt.Errorf("plan cache: delete %d keys: %w", n, err)
		}
		keys = keys[n:]
	}
	return nil
}
