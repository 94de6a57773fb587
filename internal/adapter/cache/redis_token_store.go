package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gradewise/gradewise/internal/domain"
	"github.com/gradewise/gradewise/internal/repository"
)

const tokenKeyPrefix = "gradewise:token:"

// RedisTokenStore implements repository.TokenStore backed by Redis.
type RedisTokenStore struct {
	client redis.UniversalClient
}

var _ repository.TokenStore = (*RedisTokenStore)(nil)

// NewRedisTokenStore constructs a Redis-backed token store.
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// Get loads and decodes the record for key. Absent keys return (nil, nil).
func (s *RedisTokenStore) Get(ctx context.Context, key string) (*domain.TokenRecord, error) {
	bytes, err := s.client.Get(ctx, tokenKeyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load token record: %w", err)
	}
	var record domain.TokenRecord
	if err := json.Unmarshal(bytes, &record); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}
	return &record, nil
}

// Put stores the encoded record. ttl of zero persists without expiry.
func (s *RedisTokenStore) Put(ctx context.Context, key string, record domain.TokenRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist token record: %w", err)
	}
	return nil
}

// Delete removes the persisted record.
func (s *RedisTokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete token record: %w", err)
	}
	return nil
}
