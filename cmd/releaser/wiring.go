package main

import (
	"github.com/ProtonMail/go-crypto/openpgp"

	orchestrators "github.com/ochairo/releaser/internal/domain-orchestrators"
	adapters "github.com/ochairo/releaser/internal/domain-adapters/gateways"
	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/services"
	"github.com/ochairo/releaser/internal/external-adapters/gpg"
)

// app holds the wired components for one invocation.
type app struct {
	updater   *orchestrators.ProjectUpdater
	orch      *orchestrators.ReleaseOrchestrator
	workspace *adapters.TempWorkspace
}

func (a *app) Close() {
	a.workspace.Close()
}

func newApp(cfg *entities.ReleaserConfig, logger interfaces.Logger) (*app, error) {
	var signKey *openpgp.Entity
	if cfg.Git.SigningKeyPath != "" {
		keyring, err := gpg.LoadSigningKey(cfg.Git.SigningKeyPath, cfg.Git.SigningKeyPassphrase)
		if err != nil {
			return nil, entities.NewConfigurationError("failed to load signing key", err)
		}
		signKey = keyring.Signer()
		logger.Info("Signing commits and tags", interfaces.F("fingerprint", keyring.Fingerprint()))
	}

	git := adapters.NewGoGitGateway(adapters.GitOptions{
		Token:    cfg.Git.OAuthToken,
		Username: cfg.Git.Username,
		SignKey:  signKey,
	})
	manifests := adapters.NewFileManifestRepository()
	workspace := adapters.NewTempWorkspace("", logger)

	updater := orchestrators.NewProjectUpdater(
		git,
		adapters.NewMemoryBomCache(0),
		workspace,
		services.NewBomParser(manifests, logger, services.DefaultEcosystemParsers(manifests)...),
		services.NewManifestUpdater(manifests, cfg.Gradle.PropertySubstitutions, logger),
		manifests,
		logger,
	)

	deps := orchestrators.TaskDeps{
		Updater:   updater,
		Git:       git,
		Scripts:   adapters.NewScriptExecutor(logger),
		Samples:   orchestrators.NewSampleUpdater(git, workspace, updater, logger),
		Workspace: workspace,
		Logger:    logger,
	}
	if cfg.Milestones.Enabled {
		deps.Milestones = adapters.NewHTTPGitHubGateway(cfg.Milestones.APIURL, cfg.Git.OAuthToken, logger)
	}
	if cfg.Announcements.Enabled {
		deps.Announcements = adapters.NewTemplateGenerator(cfg.Announcements.TemplateDir, cfg.Announcements.OutputDir, logger)
	}

	return &app{
		updater:   updater,
		orch:      orchestrators.NewReleaseOrchestrator(orchestrators.DefaultTasks(deps), updater, git, workspace, logger),
		workspace: workspace,
	}, nil
}
