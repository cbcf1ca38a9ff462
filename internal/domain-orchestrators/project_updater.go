package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
	"github.com/ochairo/releaser/internal/domain/interfaces/repositories"
	"github.com/ochairo/releaser/internal/domain/services"
)

// ProjectUpdater resolves the train's versions and rewrites a project tree to match.
type ProjectUpdater struct {
	git       gateways.GitGateway
	cache     gateways.BomCache
	workspace gateways.Workspace
	bomParser *services.BomParser
	updater   *services.ManifestUpdater
	manifests repositories.ManifestRepository
	logger    interfaces.Logger
}

// NewProjectUpdater creates a project updater. cache may be nil.
func NewProjectUpdater(
	git gateways.GitGateway,
	cache gateways.BomCache,
	workspace gateways.Workspace,
	bomParser *services.BomParser,
	updater *services.ManifestUpdater,
	manifests repositories.ManifestRepository,
	logger interfaces.Logger,
) *ProjectUpdater {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ProjectUpdater{
		git:       git,
		cache:     cache,
		workspace: workspace,
		bomParser: bomParser,
		updater:   updater,
		manifests: manifests,
		logger:    logger,
	}
}

// UpdateOptions tunes a single tree rewrite.
type UpdateOptions struct {
	// DryRun computes diffs without writing any file.
	DryRun bool
	// Force rewrites the tree even when the root project is not in the
	// version map or already declares its target version. Sample projects
	// are never in the BOM, so they are always updated with Force.
	Force bool
}

// UpdateReport describes what a tree rewrite did.
type UpdateReport struct {
	ProjectRoot string
	Identity    string
	Skipped     bool
	Scanned     int
	Updated     []string
	// Diffs maps manifest path to unified diff, filled only on dry runs.
	Diffs    map[string]string
	Duration time.Duration
	Error    error
}

// ResolveVersions clones the release-train BOM and extracts its version map.
// Results are cached per (url, branch) for the lifetime of the cache.
func (u *ProjectUpdater) ResolveVersions(ctx context.Context, cfg *entities.ReleaserConfig) (*entities.VersionsFromBom, error) {
	key := gateways.BomCacheKey(cfg.ReleaseTrain.URL, cfg.ReleaseTrain.Branch)
	if u.cache != nil {
		if cached, ok := u.cache.Get(key); ok {
			u.logger.Debug("Using cached BOM versions", interfaces.F("key", key))
			return cached, nil
		}
	}

	// Step 1: Acquire a scratch directory for the BOM checkout
	dir, release, err := u.workspace.Acquire("bom")
	if err != nil {
		return nil, fmt.Errorf("failed to acquire workspace: %w", err)
	}
	defer release()

	// Step 2: Clone the BOM repository
	u.logger.Info("Cloning release train BOM",
		interfaces.F("url", cfg.ReleaseTrain.URL),
		interfaces.F("branch", cfg.ReleaseTrain.Branch))
	if err := u.git.Clone(ctx, cfg.ReleaseTrain.URL, cfg.ReleaseTrain.Branch, dir); err != nil {
		return nil, entities.NewConfigurationError("failed to clone release train BOM", err)
	}

	// Step 3: Parse versions
	versions, err := u.bomParser.Resolve(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}
	u.logger.Info("Resolved BOM versions", interfaces.F("count", versions.Len()))

	if u.cache != nil {
		u.cache.Set(key, versions)
	}
	return versions, nil
}

// UpdateProject resolves the BOM and rewrites every manifest under root.
func (u *ProjectUpdater) UpdateProject(ctx context.Context, root string, cfg *entities.ReleaserConfig, opts UpdateOptions) (*UpdateReport, error) {
	versions, err := u.ResolveVersions(ctx, cfg)
	if err != nil {
		return &UpdateReport{ProjectRoot: root, Error: err}, err
	}
	return u.UpdateProjectFromVersions(ctx, root, versions.ToProjects(), cfg, opts)
}

// UpdateProjectFromVersions rewrites every manifest under root to the given
// versions. A manifest that cannot be loaded aborts the walk.
func (u *ProjectUpdater) UpdateProjectFromVersions(ctx context.Context, root string, versions entities.Projects, cfg *entities.ReleaserConfig, opts UpdateOptions) (*UpdateReport, error) {
	startTime := time.Now()
	report := &UpdateReport{ProjectRoot: root}
	defer func() { report.Duration = time.Since(startTime) }()

	// Step 1: Identify the root project
	rootManifest, err := u.updater.RootManifest(root)
	if err != nil {
		report.Error = err
		return report, err
	}
	report.Identity = rootManifest.Identity()

	// Step 2: Short-circuit when the project is already at its target
	if !opts.Force {
		should, err := u.updater.ShouldUpdate(root, versions)
		if err != nil {
			report.Error = err
			return report, err
		}
		if !should {
			u.logger.Info("Project is already at its target version", interfaces.F("project", report.Identity))
			report.Skipped = true
			return report, nil
		}
	}

	// Step 3: Walk the tree
	var ignored func(string) bool
	if cfg != nil {
		ignored = cfg.Manifests.Ignored
	}
	paths, err := u.manifests.FindManifests(root, ignored)
	if err != nil {
		report.Error = fmt.Errorf("failed to walk %s: %w", root, err)
		return report, report.Error
	}
	report.Scanned = len(paths)

	// Step 4: Rewrite each manifest
	if opts.DryRun {
		report.Diffs = make(map[string]string)
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			report.Error = err
			return report, err
		}
		w, err := u.updater.UpdateManifest(report.Identity, path, versions)
		if err != nil {
			report.Error = fmt.Errorf("failed to load manifest %s: %w", path, err)
			return report, report.Error
		}
		if !w.Dirty {
			continue
		}
		if opts.DryRun {
			report.Diffs[path] = services.Diff(w)
			report.Updated = append(report.Updated, path)
			continue
		}
		written, err := u.updater.OverwriteIfDirty(w)
		if err != nil {
			report.Error = err
			return report, err
		}
		report.Updated = append(report.Updated, written)
	}

	u.logger.Info("Updated project manifests",
		interfaces.F("project", report.Identity),
		interfaces.F("scanned", report.Scanned),
		interfaces.F("updated", len(report.Updated)),
		interfaces.F("dry_run", opts.DryRun))
	return report, nil
}

// ProjectVersions reads the root manifest of root and looks its identity
// up in versions. The first value is the version declared on disk.
func (u *ProjectUpdater) ProjectVersions(root string, versions entities.Projects) (entities.ProjectVersion, entities.ProjectVersion, error) {
	rootManifest, err := u.updater.RootManifest(root)
	if err != nil {
		return entities.ProjectVersion{}, entities.ProjectVersion{}, err
	}
	original := entities.NewProjectVersion(rootManifest.Identity(), rootManifest.EffectiveVersion())
	fromBom, err := versions.ForName(rootManifest.Identity())
	if err != nil {
		return original, entities.ProjectVersion{}, err
	}
	// Keep the project's own name even when the match came through an alias.
	return original, entities.NewProjectVersion(rootManifest.Identity(), fromBom.Version), nil
}
