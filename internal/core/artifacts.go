package core

import (
	"context"
	"time"
)

// ArtifactRepository defines the interface for binary artifact storage.
// This follows the hexagonal architecture pattern where the core defines interfaces
// and the data layer provides implementations.
type ArtifactRepository interface {
	// Set stores an artifact under the given key with the given TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves an artifact by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the store.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists checks if a key exists in the store.
	Exists(ctx context.Context, key string) (bool, error)

	// Health checks the health of the store connection.
	Health(ctx context.Context) error
}
