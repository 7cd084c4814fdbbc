package snapshot

import (
	"context"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/redis"
)

const redisKeyPrefix = "vsnap:"

// RedisStore keeps snapshots as Redis string values without expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+name, data, 0); err != nil {
		return fmt.Errorf("storing snapshot in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, redisKeyPrefix+name)
	if redis.IsNilError(err) {
		return nil, fmt.Errorf("snapshot %q: %w", name, apperrors.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot from redis: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	return s.client.Del(ctx, redisKeyPrefix+name)
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisStore) Close() error { return nil }
