package gateways

import "github.com/ochairo/releaser/internal/domain/entities"

// BomCache stores resolved BOM lookups for one pipeline run. Implementations
// must be safe for concurrent use.
type BomCache interface {
	Get(key string) (*entities.VersionsFromBom, bool)
	Set(key string, versions *entities.VersionsFromBom)
}

// BomCacheKey builds the cache key for a BOM source.
func BomCacheKey(url, branch string) string {
	return url + "#" + branch
}
