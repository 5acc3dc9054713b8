// Package data provides the storage implementations behind the core ports.
package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisArtifactRepo implements the ArtifactRepository interface using Redis.
// Snapshot images and other binary artifacts are stored as plain values with
// a TTL so abandoned jobs age out on their own.
type RedisArtifactRepo struct {
	client redis.UniversalClient
}

// NewRedisArtifactRepo creates a new RedisArtifactRepo with the given Redis client.
func NewRedisArtifactRepo(client redis.UniversalClient) *RedisArtifactRepo {
	return &RedisArtifactRepo{client: client}
}

// Set stores a value in Redis with the given key and TTL.
func (r *RedisArtifactRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value from Redis by key.
func (r *RedisArtifactRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Key doesn't exist
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return []byte(result), nil
}

// Delete removes a key from Redis.
func (r *RedisArtifactRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}

	return result > 0, nil
}

// Exists checks if a key exists in Redis.
func (r *RedisArtifactRepo) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}

	return result > 0, nil
}

// Health checks the health of the Redis connection.
func (r *RedisArtifactRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
