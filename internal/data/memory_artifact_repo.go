package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/treadscan/treadscan/internal/core"
)

var (
	_ core.ArtifactRepository = (*RedisArtifactRepo)(nil)
	_ core.ArtifactRepository = (*MemoryArtifactRepo)(nil)
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryArtifactRepo is an in-process ArtifactRepository used when no Redis
// is configured. Contents are lost on restart, which matches the volatile
// lifetime of the job registry itself.
type MemoryArtifactRepo struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryArtifactRepoOptions configures a MemoryArtifactRepo.
type MemoryArtifactRepoOptions struct {
	// Now overrides the clock used for TTL checks. Defaults to time.Now.
	Now func() time.Time
}

// NewMemoryArtifactRepo creates an empty in-memory artifact store.
func NewMemoryArtifactRepo(opts MemoryArtifactRepoOptions) *MemoryArtifactRepo {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryArtifactRepo{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Set stores a value under key. A zero TTL means the entry never expires.
func (r *MemoryArtifactRepo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}

	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()
	return nil
}

// Get retrieves a value by key. Returns nil when the key is absent or expired.
func (r *MemoryArtifactRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok || r.expired(entry) {
		return nil, nil
	}
	return append([]byte(nil), entry.value...), nil
}

// Delete removes a key, reporting whether a live entry was removed.
func (r *MemoryArtifactRepo) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return false, nil
	}
	delete(r.entries, key)
	return !r.expired(entry), nil
}

// Exists checks whether a live entry is stored under key.
func (r *MemoryArtifactRepo) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	return ok && !r.expired(entry), nil
}

// Health always succeeds for the in-memory store.
func (r *MemoryArtifactRepo) Health(_ context.Context) error {
	return nil
}

func (r *MemoryArtifactRepo) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt)
}
