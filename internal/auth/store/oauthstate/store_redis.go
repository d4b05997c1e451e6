package oauthstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskgate/pkg/sentinel"
)

// Redis key prefix for pending OAuth states
const stateKeyPrefix = "oauth:state:"

// RedisStore is a Redis-backed Store. This is the recommended implementation
// for distributed deployments where the login redirect and the provider
// callback can land on different instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed state store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKeyPrefix+state, "1", ttl).Err(); err != nil {
		return fmt.Errorf("create oauth state: %w", err)
	}
	return nil
}

// Consume uses GETDEL so that check and removal are a single atomic step;
// two racing callbacks with the same state cannot both succeed.
func (s *RedisStore) Consume(ctx context.Context, state string) error {
	_, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("oauth state: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}
