package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCacheRepository - кеш списков оборудования на Redis.
type RedisCacheRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisCacheRepository(client *redis.Client, prefix string) CacheRepositoryInterface {
	return &RedisCacheRepository{client: client, prefix: prefix}
}

func (r *RedisCacheRepository) key(k string) string { return r.prefix + k }

// Get возвращает ErrCacheMiss вместо redis.Nil.
func (r *RedisCacheRepository) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (r *RedisCacheRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, expiration).Err()
}

func (r *RedisCacheRepository) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Del(ctx, full...).Err()
}
