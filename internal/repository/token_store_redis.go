package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisTokenStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisTokenStore keeps the token under "<prefix>:token" with no expiry;
// the backend decides when a token stops being valid.
func NewRedisTokenStore(client redis.Cmdable, prefix string) TokenStore {
	if prefix == "" {
		prefix = "linkshort"
	}
	return &redisTokenStore{client: client, prefix: prefix}
}

func (s *redisTokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *redisTokenStore) Save(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key(), token, 0).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *redisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

func (s *redisTokenStore) key() string {
	return s.prefix + ":" + TokenKey
}
