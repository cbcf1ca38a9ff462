package gateways

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ochairo/releaser/internal/domain/entities"
)

// MemoryBomCache is an in-process BomCache scoped to one pipeline run.
// It is safe for concurrent use.
type MemoryBomCache struct {
	items *cache.Cache
}

// NewMemoryBomCache creates a cache. A zero ttl keeps entries for the
// lifetime of the cache.
func NewMemoryBomCache(ttl time.Duration) *MemoryBomCache {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &MemoryBomCache{items: cache.New(expiration, cleanup)}
}

// Get returns a cached resolution.
func (c *MemoryBomCache) Get(key string) (*entities.VersionsFromBom, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	versions, ok := v.(*entities.VersionsFromBom)
	return versions, ok
}

// Set stores a resolution.
func (c *MemoryBomCache) Set(key string, versions *entities.VersionsFromBom) {
	c.items.SetDefault(key, versions)
}

// Len returns the number of cached entries.
func (c *MemoryBomCache) Len() int {
	return c.items.ItemCount()
}

// Flush drops every entry.
func (c *MemoryBomCache) Flush() {
	c.items.Flush()
}
