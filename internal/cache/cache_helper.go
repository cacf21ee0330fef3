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

// CacheHelper provides common caching operations for repositories
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

// EnrollmentCacheConfig covers enrollment rows and their progress snapshots
var EnrollmentCacheConfig = CacheConfig{
	TTL:    5 * time.Minute,
	Prefix: "enrollment:",
}

// Cache errors
var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// EnrollmentKey is the key of a bare enrollment row
func EnrollmentKey(id uint) string {
	return fmt.Sprintf("id:%d", id)
}

// EnrollmentDetailsKey is the key of an enrollment with its progress preloaded
func EnrollmentDetailsKey(id uint) string {
	return fmt.Sprintf("details:%d", id)
}

// EnrollmentVersionKey counts invalidations of one enrollment
func EnrollmentVersionKey(id uint) string {
	return fmt.Sprintf("version:%d", id)
}

// versionTTL must outlive any in-flight read-through
const versionTTL = 24 * time.Hour

// errVersionChanged aborts a write-back that raced an invalidation
var errVersionChanged = errors.New("cache version changed")

// GetCacheKey generates a cache key with prefix
func (c *CacheHelper) GetCacheKey(key string) string {
	return c.prefix + key
}

// Enabled reports whether a redis client backs this helper
func (c *CacheHelper) Enabled() bool {
	return c.client != nil
}

// Get retrieves and unmarshals data from cache
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		// Sanitize error to prevent log injection
		return fmt.Errorf("cache get error for key type: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Graceful degradation when cache not available
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

// Invalidate bumps versionKey and removes keys in one MULTI. Read-throughs
// that captured the old version will not write back.
func (c *CacheHelper) Invalidate(ctx context.Context, versionKey string, keys ...string) error {
	if c.client == nil {
		return nil
	}

	vk := c.GetCacheKey(versionKey)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vk)
		pipe.Expire(ctx, vk, versionTTL)
		if len(keys) > 0 {
			cacheKeys := make([]string, len(keys))
			for i, key := range keys {
				cacheKeys[i] = c.GetCacheKey(key)
			}
			pipe.Del(ctx, cacheKeys...)
		}
		return nil
	})
	return err
}

func (c *CacheHelper) version(ctx context.Context, versionKey string) (string, error) {
	if c.client == nil {
		return "", ErrCacheNotAvailable
	}

	v, err := c.client.Get(ctx, c.GetCacheKey(versionKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// setIfVersion writes value only while versionKey still holds version.
func (c *CacheHelper) setIfVersion(ctx context.Context, key, versionKey, version string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	vk := c.GetCacheKey(versionKey)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errVersionChanged
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.GetCacheKey(key), data, ttl)
			return nil
		})
		return err
	}, vk)
	if errors.Is(err, redis.TxFailedErr) {
		return errVersionChanged
	}
	return err
}

// CacheOrExecute implements the cache-aside pattern. The version under
// versionKey is read before fetchFunc runs, and the result is cached only if
// no invalidation bumped it meanwhile. The caller still gets the fetched value.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key, versionKey string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}

	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		// Cache error occurred but continue with fetch
		slog.WarnContext(ctx, "Cache get error, proceeding to fetch", "error", err, "key", key)
	}

	version, versionErr := c.version(ctx, versionKey)
	if versionErr != nil && !errors.Is(versionErr, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "Cache version read error, skipping write-back", "error", versionErr, "key", key)
	}

	value, err := fetchFunc()
	if err != nil {
		return fmt.Errorf("fetch function error: %w", err)
	}

	if versionErr == nil {
		err := c.setIfVersion(ctx, key, versionKey, version, value, ttl)
		switch {
		case errors.Is(err, errVersionChanged):
			slog.DebugContext(ctx, "Cache write-back skipped after invalidation", "key", key)
		case err != nil:
			slog.ErrorContext(ctx, "Cache set error", "error", err, "key", key)
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}

	return json.Unmarshal(data, dest)
}

// CacheManager manages multiple cache helpers
type CacheManager struct {
	Enrollment *CacheHelper
}

// NewCacheManager creates cache manager with all cache helpers. A nil
// client yields helpers that always miss.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		Enrollment: NewCacheHelper(client, EnrollmentCacheConfig.Prefix),
	}
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.Enrollment.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := cm.Enrollment.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}
