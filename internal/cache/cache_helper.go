package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// CacheConfig pairs a key namespace with how long its entries live.
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Quiz definitions change rarely while a window is open
	QuizCacheConfig = CacheConfig{TTL: 5 * time.Minute, Prefix: "quiz:"}

	// Per-student visible quiz listings
	StudentCacheConfig = CacheConfig{TTL: 2 * time.Minute, Prefix: "student:"}

	// Aggregated result stats, recomputed on every submit otherwise
	StatsCacheConfig = CacheConfig{TTL: 5 * time.Minute, Prefix: "stats:"}

	// Short-lived odds and ends (submission lookups during an attempt)
	FastCacheConfig = CacheConfig{TTL: time.Minute, Prefix: "fast:"}
)

// CacheHelper is a JSON read-through cache over one key namespace. A nil
// client degrades every operation to a no-op miss so the service runs
// without Redis.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

func (c *CacheHelper) GetCacheKey(key string) string {
	return c.prefix + key
}

// Get unmarshals the cached value into dest. Returns ErrCacheNotFound on
// a miss and ErrCacheNotAvailable when no client is configured.
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheNotFound
	}
	if err != nil {
		return fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.GetCacheKey(key)
	}
	return c.client.Del(ctx, prefixed...).Err()
}

func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	count, err := c.client.Exists(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists: %w", err)
	}
	return count > 0, nil
}

// InvalidatePattern removes every key in this namespace matching pattern.
// Keys are discovered with SCAN and deleted batch by batch, so a large
// namespace never blocks the server the way KEYS would.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	fullPattern := c.GetCacheKey(pattern)
	var cursor uint64
	for {
		batch, next, err := c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan %q: %w", fullPattern, err)
		}
		if len(batch) > 0 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache delete batch: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// CacheOrExecute serves dest from cache, falling back to fetch on a miss.
// The fetched value is written back asynchronously so the caller never
// waits on the cache to respond.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "Cache read failed, falling back to store", "key", key, "error", err)
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Set(ctx, key, value, ttl); err != nil {
			slog.Error("Cache write-back failed", "key", key, "error", err)
		}
	}(context.WithoutCancel(ctx))

	// Round-trip through JSON so dest gets the same shape a cache hit
	// would have produced.
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal result: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// CacheManager bundles the cache tiers the repositories share.
type CacheManager struct {
	Quiz    *CacheHelper
	Student *CacheHelper
	Stats   *CacheHelper
	Fast    *CacheHelper
}

func NewCacheManager(client *redis.Client) *CacheManager {
	if client == nil {
		nop := NewCacheHelper(nil, "")
		return &CacheManager{Quiz: nop, Student: nop, Stats: nop, Fast: nop}
	}
	return &CacheManager{
		Quiz:    NewCacheHelper(client, QuizCacheConfig.Prefix),
		Student: NewCacheHelper(client, StudentCacheConfig.Prefix),
		Stats:   NewCacheHelper(client, StatsCacheConfig.Prefix),
		Fast:    NewCacheHelper(client, FastCacheConfig.Prefix),
	}
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.Fast.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.Fast.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check: %w", err)
	}
	return nil
}

// ClearAll flushes the whole cache database. Meant for tests and
// operational resets only.
func (cm *CacheManager) ClearAll(ctx context.Context) error {
	if cm.Fast.client == nil {
		return nil
	}
	return cm.Fast.client.FlushAll(ctx).Err()
}
