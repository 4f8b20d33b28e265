package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryProvider implements Provider on top of an in-process TTL cache. It is
// the default when no Valkey address is configured.
type MemoryProvider struct {
	store *gocache.Cache
}

// NewMemoryProvider creates an in-memory provider with the given default TTL.
func NewMemoryProvider(defaultTTL time.Duration) *MemoryProvider {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &MemoryProvider{store: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Get fetches bytes by key, returning ErrCacheMiss when absent or expired.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := p.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

// Set stores bytes with the provided TTL.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	p.store.Set(key, value, ttl)
	return nil
}

// Del removes a key.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.store.Delete(key)
	return nil
}

// Close is a no-op for the in-memory provider.
func (p *MemoryProvider) Close() error { return nil }
