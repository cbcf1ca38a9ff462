// Package repositories defines interfaces for data access layers.
package repositories

import "github.com/ochairo/releaser/internal/domain/entities"

// ManifestRepository locates, reads and writes build manifests.
type ManifestRepository interface {
	// FindManifests walks root and returns every manifest path whose
	// slash-separated path relative to root is not ignored
	FindManifests(root string, ignored func(relPath string) bool) ([]string, error)

	// Load parses the manifest at path
	Load(path string) (*entities.Manifest, error)

	// Save writes rendered manifest bytes to path
	Save(path string, data []byte) error

	// Exists reports whether a regular file exists at path
	Exists(path string) bool
}
