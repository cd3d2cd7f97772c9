// internal/funnel/session/redis.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"energylab-funnel/internal/common/database"
	"energylab-funnel/internal/common/logger"
)

const keyPrefix = "funnel:session:"

// RedisStore persists sessions in Redis so they survive restarts and are
// shared between instances. Activity refreshes the TTL on every save.
type RedisStore struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{redis: redis, ttl: ttl, logger: log}
}

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	return r.write(ctx, s)
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.redis.Get(ctx, keyPrefix+id)
	if err != nil {
		if err == goredis.Nil {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		r.logger.Warn("Discarding corrupt session record", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
		return nil, notFound(id)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if _, err := r.Get(ctx, s.ID); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	return r.write(ctx, s)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.redis.Del(ctx, keyPrefix+id)
}

func (r *RedisStore) write(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session %s: %w", s.ID, err)
	}
	if err := r.redis.Set(ctx, keyPrefix+s.ID, string(raw), r.ttl); err != nil {
		return fmt.Errorf("writing session %s: %w", s.ID, err)
	}
	return nil
}
