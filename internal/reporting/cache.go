package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radiusdt/vector-insights/internal/period"
)

// ReportCache stores computed reports by key. Implementations must treat a
// missing key as a miss, not an error.
type ReportCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// NoopCache never hits. It is used when Redis is disabled or unreachable.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NoopCache) Set(context.Context, string, any) error         { return nil }

// RedisReportCache keeps JSON-encoded reports in Redis with a fixed TTL.
type RedisReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisReportCache(client *redis.Client, prefix string, ttl time.Duration) *RedisReportCache {
	return &RedisReportCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisReportCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached report: %w", err)
	}
	return true, nil
}

func (c *RedisReportCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Purge drops every cached report, e.g. after a data import. Keys are walked
// with SCAN and deleted in pipelined batches.
func (c *RedisReportCache) Purge(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 500).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// rankingKey identifies a ranking by everything that changes its output. The
// range is the resolved one, so "today" based tags roll over naturally.
func rankingKey(q Query, rng period.Range) string {
	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	return fmt.Sprintf("ranking:%s:%s:top=%d:status=%s",
		q.Level, rng.Key(), q.TopK, strings.Join(statuses, ","))
}

func frustrationKey(rng period.Range) string {
	return "frustration:" + rng.Key()
}
