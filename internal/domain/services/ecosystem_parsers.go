package services

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces/repositories"
)

// Built-in ecosystem parser names.
const (
	EcosystemBuild  = "build"
	EcosystemStream = "stream"
)

// DefaultEcosystemParsers returns the built-in parsers in evaluation order.
func DefaultEcosystemParsers(manifests repositories.ManifestRepository) []EcosystemParser {
	return []EcosystemParser{
		NewBuildEcosystemParser(),
		NewStreamEcosystemParser(manifests),
	}
}

// NewBuildEcosystemParser handles a "build" layer whose version is the BOM's
// parent version rather than an entry in the dependency-management block.
func NewBuildEcosystemParser() EcosystemParser {
	return EcosystemParser{
		Name: EcosystemBuild,
		Applies: func(in EcosystemInput) bool {
			return in.Config.Ecosystems.Build.ProjectName != "" &&
				in.Manifest.Parent != nil &&
				in.Manifest.Parent.Version.Value != ""
		},
		ParseBom: func(in EcosystemInput) (*entities.VersionsFromBom, error) {
			out := entities.NewVersionsFromBom(nil, nil)
			out.Set(in.Config.Ecosystems.Build.ProjectName, in.Manifest.Parent.Version.Value, EcosystemBuild)
			return out, nil
		},
		SetVersion: func(in EcosystemInput, contributed *entities.VersionsFromBom) {
			name := in.Config.Ecosystems.Build.ProjectName
			if e, ok := contributed.Get(name); ok {
				contributed.Set(name+entities.DependenciesSuffix, e.Version, EcosystemBuild)
			}
		},
	}
}

// NewStreamEcosystemParser handles a "stream" layer that keeps its versions
// in a Gradle properties file inside the BOM checkout.
func NewStreamEcosystemParser(manifests repositories.ManifestRepository) EcosystemParser {
	manifestPath := func(in EcosystemInput) string {
		return filepath.Join(in.BomRoot, in.Config.Ecosystems.Stream.ManifestPath)
	}
	return EcosystemParser{
		Name: EcosystemStream,
		Applies: func(in EcosystemInput) bool {
			return in.Config.Ecosystems.Stream.ProjectName != "" &&
				in.Config.Ecosystems.Stream.ManifestPath != "" &&
				manifests.Exists(manifestPath(in))
		},
		ParseBom: func(in EcosystemInput) (*entities.VersionsFromBom, error) {
			m, err := manifests.Load(manifestPath(in))
			if err != nil {
				return nil, entities.NewConfigurationError("failed to read stream manifest", err)
			}
			out := entities.NewVersionsFromBom(nil, nil)
			for _, prop := range m.Properties {
				if prop.Value.Value == "" {
					continue
				}
				if name, ok := propertyProjectName(prop.Key); ok {
					out.Set(name, prop.Value.Value, EcosystemStream)
				}
			}
			if m.Version.Value != "" {
				out.Set(in.Config.Ecosystems.Stream.ProjectName, m.Version.Value, EcosystemStream)
			}
			return out, nil
		},
		SetVersion: func(in EcosystemInput, contributed *entities.VersionsFromBom) {
			name := in.Config.Ecosystems.Stream.ProjectName
			if e, ok := contributed.Get(name); ok {
				contributed.Set(name+entities.DependenciesSuffix, e.Version, EcosystemStream)
			}
		},
	}
}

// propertyProjectName maps "foo-bar.version" and "fooBarVersion" to "foo-bar".
func propertyProjectName(key string) (string, bool) {
	if name, ok := strings.CutSuffix(key, versionPropertySuffix); ok && name != "" {
		return name, true
	}
	if name, ok := strings.CutSuffix(key, "Version"); ok && name != "" {
		return camelToKebab(name), true
	}
	return "", false
}

func camelToKebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
