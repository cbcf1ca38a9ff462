package services

import (
	"fmt"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/repositories"
)

// RootManifestNames are tried in order to find a project's root manifest.
var RootManifestNames = []string{"pom.xml", entities.DefaultGradlePropertiesFile}

// ManifestUpdater rewrites manifest versions in place.
type ManifestUpdater struct {
	manifests     repositories.ManifestRepository
	substitutions map[string]string
	logger        interfaces.Logger
}

// NewManifestUpdater creates an updater. substitutions maps extra property
// keys (typically gradle.properties keys) to the project whose version they hold.
func NewManifestUpdater(manifests repositories.ManifestRepository, substitutions map[string]string, logger interfaces.Logger) *ManifestUpdater {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ManifestUpdater{manifests: manifests, substitutions: substitutions, logger: logger}
}

// RootManifest loads the root manifest of projectRoot.
func (u *ManifestUpdater) RootManifest(projectRoot string) (*entities.Manifest, error) {
	for _, name := range RootManifestNames {
		path := filepath.Join(projectRoot, name)
		if u.manifests.Exists(path) {
			m, err := u.manifests.Load(path)
			if err != nil {
				return nil, entities.NewConfigurationError("failed to read root manifest", err)
			}
			return m, nil
		}
	}
	return nil, entities.NewConfigurationError("no manifest found in "+projectRoot, nil)
}

// ShouldUpdate reports whether the project's own identity is resolved in
// versions with a version different from the one it declares.
func (u *ManifestUpdater) ShouldUpdate(projectRoot string, versions entities.Projects) (bool, error) {
	root, err := u.RootManifest(projectRoot)
	if err != nil {
		return false, err
	}
	target, err := versions.ForName(root.Identity())
	if err != nil {
		u.logger.Debug("Project not in resolved versions", interfaces.F("project", root.Identity()))
		return false, nil
	}
	return root.EffectiveVersion() != target.Version, nil
}

// UpdateManifest applies the parent, self and property rules to the
// manifest at path. The rules are independent and all of them run.
func (u *ManifestUpdater) UpdateManifest(rootIdentity, path string, versions entities.Projects) (*entities.ModelWrapper, error) {
	m, err := u.manifests.Load(path)
	if err != nil {
		return nil, err
	}
	return u.Apply(rootIdentity, m, versions), nil
}

// Apply runs the rewrite rules against an already loaded manifest.
func (u *ManifestUpdater) Apply(rootIdentity string, m *entities.Manifest, versions entities.Projects) *entities.ModelWrapper {
	w := entities.NewModelWrapper(m)
	rootVersion, rootErr := versions.ForName(rootIdentity)

	// Rule 1: parent version
	if m.Parent != nil {
		if pv, err := versions.ForName(m.Parent.ArtifactID); err == nil {
			if w.SetParentVersion(pv.Version) {
				u.logger.Debug("Updated parent version", interfaces.F("path", m.Path), interfaces.F("version", pv.Version))
			}
		} else if m.Parent.HasRelativePath && m.Parent.RelativePath != "" && rootErr == nil {
			if w.SetParentVersion(rootVersion.Version) {
				u.logger.Debug("Updated relative parent to root version", interfaces.F("path", m.Path), interfaces.F("version", rootVersion.Version))
			}
		}
	}

	// Rule 2: own version, root project only
	if m.Identity() != "" && m.Identity() == rootIdentity && rootErr == nil {
		if w.SetVersion(rootVersion.Version) {
			u.logger.Debug("Updated version", interfaces.F("path", m.Path), interfaces.F("version", rootVersion.Version))
		}
	}

	// Rule 3: tracked properties
	for _, pv := range versions.All() {
		if w.SetProperty(pv.ProjectName+versionPropertySuffix, pv.Version) {
			u.logger.Debug("Updated property", interfaces.F("path", m.Path), interfaces.F("project", pv.ProjectName))
		}
	}
	for key, project := range u.substitutions {
		pv, err := versions.ForName(project)
		if err != nil {
			continue
		}
		if w.SetProperty(key, pv.Version) {
			u.logger.Debug("Updated substituted property", interfaces.F("path", m.Path), interfaces.F("key", key))
		}
	}
	return w
}

// OverwriteIfDirty writes the wrapper back only when an edit changed it.
// It returns the manifest path either way.
func (u *ManifestUpdater) OverwriteIfDirty(w *entities.ModelWrapper) (string, error) {
	if !w.Dirty {
		return w.Manifest.Path, nil
	}
	if err := u.manifests.Save(w.Manifest.Path, w.Render()); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", w.Manifest.Path, err)
	}
	return w.Manifest.Path, nil
}

// Diff renders a unified diff of the pending edits. Empty when clean.
func Diff(w *entities.ModelWrapper) string {
	if !w.Dirty {
		return ""
	}
	return udiff.Unified(w.Manifest.Path, w.Manifest.Path, string(w.Manifest.Raw), string(w.Render()))
}
