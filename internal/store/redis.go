package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps the slot under one string key without expiration.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

func NewRedis(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

func (s *RedisStore) Read(ctx context.Context) (string, bool) {
	data, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("reading projects from redis", zap.String("key", s.key), zap.Error(err))
		return "", false
	}
	if data == "" {
		return "", false
	}
	return data, true
}

func (s *RedisStore) Write(ctx context.Context, raw string) error {
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("write redis key %q: %w", s.key, err)
	}
	return nil
}
