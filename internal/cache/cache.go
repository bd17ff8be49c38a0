package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines the interface for caching operations
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
}

// TTLCache implements Cache interface with time-to-live support.
// A zero default TTL disables caching: Set becomes a no-op.
type TTLCache struct {
	data       *gocache.Cache
	defaultTTL time.Duration
}

// New creates a new TTL cache with default cleanup interval
func New(defaultTTL time.Duration) *TTLCache {
	cleanupInterval := defaultTTL * 2
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &TTLCache{
		data:       gocache.New(defaultTTL, cleanupInterval),
		defaultTTL: defaultTTL,
	}
}

// Get retrieves a value from the cache
func (c *TTLCache) Get(key string) (any, bool) {
	return c.data.Get(key)
}

// Set stores a value in the cache with the specified TTL.
// A zero ttl uses the cache default.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return
	}
	c.data.Set(key, value, ttl)
}

// Delete removes a value from the cache
func (c *TTLCache) Delete(key string) {
	c.data.Delete(key)
}

// Clear removes all values from the cache
func (c *TTLCache) Clear() {
	c.data.Flush()
}

// Remember returns the cached value for key, computing and storing it on a miss.
func Remember[T any](c Cache, key string, compute func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(key, v, 0)
	return v, nil
}
