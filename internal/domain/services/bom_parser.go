package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/repositories"
)

const versionPropertySuffix = ".version"

// EcosystemInput is the immutable view handed to ecosystem parsers.
type EcosystemInput struct {
	BomRoot  string
	Config   *entities.ReleaserConfig
	Manifest *entities.Manifest
	// Current holds the entries resolved so far. Parsers must not modify it.
	Current *entities.VersionsFromBom
}

// EcosystemParser contributes versions that a sub-ecosystem encodes outside
// the main BOM. Parsers are evaluated in registration order.
type EcosystemParser struct {
	Name       string
	Applies    func(in EcosystemInput) bool
	ParseBom   func(in EcosystemInput) (*entities.VersionsFromBom, error)
	SetVersion func(in EcosystemInput, contributed *entities.VersionsFromBom)
}

// BomParser extracts the project→version map from a BOM checkout.
type BomParser struct {
	manifests  repositories.ManifestRepository
	ecosystems []EcosystemParser
	logger     interfaces.Logger
}

// NewBomParser creates a parser. Ecosystem parsers are consulted in the
// order given and their entries override the default result.
func NewBomParser(manifests repositories.ManifestRepository, logger interfaces.Logger, ecosystems ...EcosystemParser) *BomParser {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &BomParser{manifests: manifests, ecosystems: ecosystems, logger: logger}
}

// Resolve reads the BOM under bomRoot. Fixed-version overrides from cfg are
// seeded first and win over every parser contribution.
func (p *BomParser) Resolve(ctx context.Context, bomRoot string, cfg *entities.ReleaserConfig) (*entities.VersionsFromBom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1: Load the BOM manifest
	path := filepath.Join(bomRoot, cfg.Bom.ManifestPath)
	if !p.manifests.Exists(path) {
		return nil, entities.NewConfigurationError("BOM manifest not found at "+path, nil)
	}
	bom, err := p.manifests.Load(path)
	if err != nil {
		return nil, entities.NewConfigurationError("failed to read BOM manifest", err)
	}
	if bom.EffectiveVersion() == "" {
		return nil, entities.NewConfigurationError("BOM manifest "+path+" declares no version", nil)
	}

	// Step 2: Seed fixed overrides, then apply the default parser
	result := entities.NewVersionsFromBom(cfg.FixedVersions, cfg.FixedVersionOrder)
	result.Merge(ParseDefaultBom(bom, cfg))

	// Step 3: Apply every applicable ecosystem parser on top
	applied := 0
	for _, eco := range p.ecosystems {
		in := EcosystemInput{BomRoot: bomRoot, Config: cfg, Manifest: bom, Current: result}
		if eco.Applies == nil || !eco.Applies(in) {
			continue
		}
		contributed, err := eco.ParseBom(in)
		if err != nil {
			return nil, fmt.Errorf("ecosystem parser %s failed: %w", eco.Name, err)
		}
		if contributed == nil {
			contributed = entities.NewVersionsFromBom(nil, nil)
		}
		if eco.SetVersion != nil {
			eco.SetVersion(in, contributed)
		}
		result.Merge(contributed)
		applied++
		p.logger.Debug("Applied ecosystem parser",
			interfaces.F("parser", eco.Name),
			interfaces.F("entries", contributed.Len()))
	}

	p.logger.Info("Resolved BOM versions",
		interfaces.F("bom", bom.Identity()),
		interfaces.F("version", bom.EffectiveVersion()),
		interfaces.F("entries", result.Len()),
		interfaces.F("ecosystem_parsers", applied))
	return result, nil
}

// ParseDefaultBom extracts entries generically from a Maven BOM: its parent,
// its own identity, every <name>.version property, each managed dependency
// with a resolvable version, and optionally the release-train project.
func ParseDefaultBom(bom *entities.Manifest, cfg *entities.ReleaserConfig) *entities.VersionsFromBom {
	out := entities.NewVersionsFromBom(nil, nil)
	version := bom.EffectiveVersion()

	if bom.Parent != nil && bom.Parent.ArtifactID != "" && bom.Parent.Version.Value != "" {
		out.Set(bom.Parent.ArtifactID, bom.Parent.Version.Value, entities.SourceDefault)
	}
	if bom.ArtifactID != "" {
		out.Set(bom.ArtifactID, version, entities.SourceDefault)
	}

	props := make(map[string]string, len(bom.Properties))
	for _, prop := range bom.Properties {
		props[prop.Key] = prop.Value.Value
	}
	resolve := func(v string) (string, bool) {
		return resolvePlaceholder(v, version, props)
	}

	for _, prop := range bom.Properties {
		name, ok := strings.CutSuffix(prop.Key, versionPropertySuffix)
		if !ok || name == "" {
			continue
		}
		if v, ok := resolve(prop.Value.Value); ok {
			out.Set(name, v, entities.SourceDefault)
		}
	}

	for _, dep := range bom.ManagedDependencies {
		if dep.ArtifactID == "" {
			continue
		}
		if v, ok := resolve(dep.Version); ok {
			out.Set(dep.ArtifactID, v, entities.SourceDefault)
		}
	}

	if cfg.Bom.TrainVersionFromBom && cfg.ReleaseTrain.ProjectName != "" {
		out.Set(cfg.ReleaseTrain.ProjectName, version, entities.SourceDefault)
	}
	return out
}

// resolvePlaceholder expands a single ${...} reference against the BOM's
// properties. Nested or unresolvable references yield false.
func resolvePlaceholder(v, projectVersion string, props map[string]string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	for depth := 0; depth < 5; depth++ {
		inner, ok := strings.CutPrefix(v, "${")
		if !ok {
			return v, true
		}
		key, ok := strings.CutSuffix(inner, "}")
		if !ok {
			return "", false
		}
		switch key {
		case "project.version", "version", "pom.version":
			v = projectVersion
		default:
			next, found := props[key]
			if !found {
				return "", false
			}
			v = strings.TrimSpace(next)
		}
	}
	return "", false
}
