package publicholiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cached holidays in Redis as JSON values with expiry
type RedisStore struct {
	rdb redis.Cmdable
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]Holiday, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var holidays []Holiday
	if err := json.Unmarshal(data, &holidays); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return holidays, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, holidays []Holiday, ttl time.Duration) error {
	if holidays == nil {
		holidays = []Holiday{}
	}
	data, err := json.Marshal(holidays)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
