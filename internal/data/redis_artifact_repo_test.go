package data

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/treadscan/treadscan/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestRedisArtifactRepo_Set_Get_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	repo := NewRedisArtifactRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "snapshots/job-1.png"
		value := []byte{0x89, 0x50, 0x4e, 0x47}
		ttl := 5 * time.Minute

		err := repo.Set(ctx, key, value, ttl)
		require.NoError(t, err)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "snapshots/nope.png")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("overwrite is idempotent", func(t *testing.T) {
		key := "snapshots/job-2.png"
		require.NoError(t, repo.Set(ctx, key, []byte("first"), time.Minute))
		require.NoError(t, repo.Set(ctx, key, []byte("second"), time.Minute))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), result)
	})

	t.Run("delete existing key", func(t *testing.T) {
		key := "snapshots/job-3.png"
		require.NoError(t, repo.Set(ctx, key, []byte("gone soon"), time.Minute))

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete non-existent key", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, "snapshots/nope.png")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("exists", func(t *testing.T) {
		key := "snapshots/job-4.png"
		require.NoError(t, repo.Set(ctx, key, []byte("x"), time.Minute))

		exists, err := repo.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Exists(ctx, "snapshots/nope.png")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		assert.Error(t, repo.Set(ctx, "", []byte("x"), time.Minute))
		_, err := repo.Get(ctx, "")
		assert.Error(t, err)
		_, err = repo.Delete(ctx, "")
		assert.Error(t, err)
		_, err = repo.Exists(ctx, "")
		assert.Error(t, err)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}
