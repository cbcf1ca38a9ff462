package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/external-adapters/gradle"
	"github.com/ochairo/releaser/internal/external-adapters/maven"
)

// skippedDirs are never descended into during the tree walk.
var skippedDirs = map[string]bool{
	".git":         true,
	"target":       true,
	"node_modules": true,
	".gradle":      true,
	".idea":        true,
}

// FileManifestRepository reads POMs and gradle.properties files from a
// billy filesystem. Paths are resolved to absolute form before use.
type FileManifestRepository struct {
	fs         billy.Filesystem
	poms       *maven.PomReader
	properties *gradle.PropertiesReader
}

// NewFileManifestRepository creates a repository backed by the local filesystem.
func NewFileManifestRepository() *FileManifestRepository {
	return NewManifestRepository(osfs.New("/"))
}

// NewManifestRepository creates a repository over fs.
func NewManifestRepository(fs billy.Filesystem) *FileManifestRepository {
	return &FileManifestRepository{
		fs:         fs,
		poms:       maven.NewPomReader(),
		properties: gradle.NewPropertiesReader(),
	}
}

// IsManifest reports whether a file name is a supported manifest.
func IsManifest(name string) bool {
	return name == maven.ManifestFileName || name == gradle.ManifestFileName
}

func (r *FileManifestRepository) abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// FindManifests walks root and returns manifest paths in lexical order.
// Returned paths are joined onto root as given.
func (r *FileManifestRepository) FindManifests(root string, ignored func(relPath string) bool) ([]string, error) {
	absRoot, err := r.abs(root)
	if err != nil {
		return nil, err
	}
	var found []string
	err = util.Walk(r.fs, absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return relErr
		}
		if info.IsDir() {
			if path != absRoot && skippedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsManifest(info.Name()) {
			return nil
		}
		if ignored != nil && ignored(filepath.ToSlash(rel)) {
			return nil
		}
		found = append(found, filepath.Join(root, rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(found)
	return found, nil
}

// Load parses the manifest at path, choosing the reader by file name
func (r *FileManifestRepository) Load(path string) (*entities.Manifest, error) {
	abs, err := r.abs(path)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(r.fs, abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".properties") {
		return r.properties.ParseAt(path, data), nil
	}
	return r.poms.ParseAt(path, data)
}

// Save writes rendered manifest bytes to path. An existing file keeps its mode.
func (r *FileManifestRepository) Save(path string, data []byte) error {
	abs, err := r.abs(path)
	if err != nil {
		return err
	}
	if err := util.WriteFile(r.fs, abs, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a regular file exists at path
func (r *FileManifestRepository) Exists(path string) bool {
	abs, err := r.abs(path)
	if err != nil {
		return false
	}
	info, err := r.fs.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}
