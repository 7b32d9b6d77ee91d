package governance

import (
	"context"
	"errors"
	"time"

	"menu-qa/internal/shared"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared answer tier. Keys are namespaced so the same
// redis can serve other purposes.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, shared.AnswerCacheKeyPrefix+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key, answer string, ttl time.Duration) error {
	return r.client.Set(ctx, shared.AnswerCacheKeyPrefix+key, answer, ttl).Err()
}
