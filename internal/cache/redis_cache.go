package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kasumkm/backend/internal/domain"
)

const (
	statsKey  = "kasumkm:stats"
	reportKey = "kasumkm:report"
)

type RedisReportCache struct {
	client *redis.Client
}

func NewRedisReportCache(addr string, password string, db int) *RedisReportCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReportCache{client: client}
}

func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

func (c *RedisReportCache) GetStats(ctx context.Context) (*domain.Stats, bool, error) {
	var stats domain.Stats
	ok, err := c.get(ctx, statsKey, &stats)
	if !ok || err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisReportCache) SetStats(ctx context.Context, stats *domain.Stats, ttl time.Duration) error {
	return c.set(ctx, statsKey, stats, ttl)
}

func (c *RedisReportCache) GetReport(ctx context.Context) (*domain.Report, bool, error) {
	var report domain.Report
	ok, err := c.get(ctx, reportKey, &report)
	if !ok || err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *RedisReportCache) SetReport(ctx context.Context, report *domain.Report, ttl time.Duration) error {
	return c.set(ctx, reportKey, report, ttl)
}

func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statsKey, reportKey).Err()
}

func (c *RedisReportCache) get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisReportCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
