package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

// SampleUpdater updates downstream sample repositories after a train release.
type SampleUpdater struct {
	git       gateways.GitGateway
	workspace gateways.Workspace
	updater   *ProjectUpdater
	logger    interfaces.Logger
}

// NewSampleUpdater creates a sample updater.
func NewSampleUpdater(git gateways.GitGateway, workspace gateways.Workspace, updater *ProjectUpdater, logger interfaces.Logger) *SampleUpdater {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &SampleUpdater{git: git, workspace: workspace, updater: updater, logger: logger}
}

// UpdateSamples runs one unit per configured repository on a bounded pool.
// A unit that fails or outlives the timeout fails alone; siblings keep
// running. Every failure is collected into a single *UnstableTaskError.
func (s *SampleUpdater) UpdateSamples(ctx context.Context, args *entities.Arguments) error {
	cfg := args.Config.Samples
	if len(cfg.Repos) == 0 {
		return entities.ErrTaskSkipped
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = entities.DefaultSampleConcurrency
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = entities.DefaultSampleTimeout
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	errs := make([]error, len(cfg.Repos))
	for i, repo := range cfg.Repos {
		g.Go(func() error {
			errs[i] = s.await(ctx, repo, args, timeout)
			return nil
		})
	}
	_ = g.Wait()

	if unstable := entities.NewUnstableTaskError(errs...); unstable != nil {
		s.logger.Warn("Some samples failed to update", interfaces.F("failed", len(unstable.Errs)), interfaces.F("total", len(cfg.Repos)))
		return unstable
	}
	s.logger.Info("Updated all samples", interfaces.F("count", len(cfg.Repos)))
	return nil
}

// await runs a single unit and stops waiting for it after timeout. The unit
// itself is not interrupted; it releases its workspace when it returns.
func (s *SampleUpdater) await(ctx context.Context, repo entities.SampleRepo, args *entities.Arguments, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("sample %s: panic: %v", repo.URL, r)
			}
		}()
		done <- s.updateSample(ctx, repo, args)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("sample %s: timed out after %v", repo.URL, timeout)
	}
}

func (s *SampleUpdater) updateSample(ctx context.Context, repo entities.SampleRepo, args *entities.Arguments) error {
	dir, release, err := s.workspace.Acquire("sample")
	if err != nil {
		return fmt.Errorf("sample %s: failed to acquire workspace: %w", repo.URL, err)
	}
	defer release()

	if err := s.git.Clone(ctx, repo.URL, repo.Branch, dir); err != nil {
		return fmt.Errorf("sample %s: failed to clone: %w", repo.URL, err)
	}
	if _, err := s.updater.UpdateProjectFromVersions(ctx, dir, args.Projects, args.Config, UpdateOptions{Force: true}); err != nil {
		return fmt.Errorf("sample %s: %w", repo.URL, err)
	}
	if _, err := s.git.CommitAll(dir, "Updating to "+args.VersionFromBom.Version); err != nil {
		if errors.Is(err, gateways.ErrEmptyCommit) {
			s.logger.Info("Sample already up to date", interfaces.F("repo", repo.URL))
			return nil
		}
		return fmt.Errorf("sample %s: failed to commit: %w", repo.URL, err)
	}
	if err := s.git.Push(ctx, dir, false); err != nil {
		return fmt.Errorf("sample %s: failed to push: %w", repo.URL, err)
	}
	s.logger.Info("Updated sample", interfaces.F("repo", repo.URL))
	return nil
}
