// internal/funnel/eligibility/cache.go
package eligibility

import (
	"context"
	"sync"
	"time"

	"energylab-funnel/internal/common/database"
	"energylab-funnel/internal/common/logger"
)

// Cache memoises eligibility results per address. Lookups are best effort;
// a cache failure is treated as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, result Result)
}

// MemoryCache is a process-local cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.entries[key]
	return r, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, result Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = result
}

// RedisCache stores results in Redis so memoisation survives restarts and
// is shared between instances.
type RedisCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisCache creates a Redis-backed cache with the given entry TTL.
func NewRedisCache(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{redis: redis, ttl: ttl, logger: log}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Result, bool) {
	raw, err := r.redis.Get(ctx, key)
	if err != nil {
		return Result{}, false
	}
	result, err := unmarshalResult(raw)
	if err != nil {
		r.logger.Warn("Discarding corrupt eligibility cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return Result{}, false
	}
	return result, true
}

func (r *RedisCache) Set(ctx context.Context, key string, result Result) {
	raw, err := marshalResult(result)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.Warn("Failed to cache eligibility result", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
