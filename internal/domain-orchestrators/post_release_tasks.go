package orchestrators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

func postReleaseTasks(d TaskDeps) []entities.Task {
	return []entities.Task{
		{
			Name:        "Close milestone",
			ShortName:   TaskCloseMilestone,
			Header:      "CLOSING MILESTONE",
			Description: "Closes the tracker milestone named after the released version",
			Order:       80,
			Phases:      []entities.Phase{entities.PhaseProjectPostRelease},
			Run:         d.closeMilestone,
		},
		{
			Name:        "Update documentation",
			ShortName:   TaskUpdateDocs,
			Header:      "UPDATING DOCUMENTATION",
			Description: "Points the docs repository at the train version when it is more mature",
			Order:       100,
			Phases:      []entities.Phase{entities.PhaseTrainPostRelease},
			Run:         d.updateDocs,
		},
		{
			Name:        "Update samples",
			ShortName:   TaskUpdateSamples,
			Header:      "UPDATING SAMPLES",
			Description: "Updates every configured sample repository to the train versions",
			Order:       110,
			Phases:      []entities.Phase{entities.PhaseTrainPostRelease},
			Run: func(ctx context.Context, args *entities.Arguments) error {
				if !args.Config.Samples.Enabled || d.Samples == nil {
					return entities.ErrTaskSkipped
				}
				return d.Samples.UpdateSamples(ctx, args)
			},
		},
		{
			Name:        "Generate announcements",
			ShortName:   TaskAnnouncements,
			Header:      "GENERATING ANNOUNCEMENTS",
			Description: "Renders release announcement templates",
			Order:       120,
			Phases:      []entities.Phase{entities.PhaseTrainPostRelease},
			Run:         d.generateAnnouncements,
		},
	}
}

func (d TaskDeps) closeMilestone(ctx context.Context, args *entities.Arguments) error {
	if !args.Config.Milestones.Enabled || d.Milestones == nil {
		return entities.ErrTaskSkipped
	}
	if args.VersionFromBom.IsSnapshot() {
		return entities.ErrTaskSkipped
	}
	owner := args.Config.Git.OrgName
	repo := args.VersionFromBom.ProjectName
	title := args.VersionFromBom.Version

	milestone, err := d.Milestones.FindMilestone(ctx, owner, repo, title)
	if err != nil {
		return fmt.Errorf("failed to look up milestone %s: %w", title, err)
	}
	if milestone == nil {
		d.Logger.Warn("No milestone found", interfaces.F("repo", repo), interfaces.F("title", title))
		return entities.ErrTaskSkipped
	}
	if strings.EqualFold(milestone.State, "closed") {
		d.Logger.Info("Milestone already closed", interfaces.F("url", milestone.HTMLURL))
		return nil
	}
	if err := d.Milestones.CloseMilestone(ctx, owner, repo, milestone.Number); err != nil {
		return fmt.Errorf("failed to close milestone %s: %w", title, err)
	}
	d.Logger.Info("Closed milestone", interfaces.F("url", milestone.HTMLURL))
	return nil
}

// updateDocs bumps the docs repository's current-version file, but only
// when the train version is more mature than what it already points at.
func (d TaskDeps) updateDocs(ctx context.Context, args *entities.Arguments) error {
	docs := args.Config.Docs
	if !docs.UpdateEnabled || d.Git == nil || d.Workspace == nil {
		return entities.ErrTaskSkipped
	}
	train := args.VersionFromBom

	// Step 1: Check out the docs repository
	dir, release, err := d.Workspace.Acquire("docs")
	if err != nil {
		return fmt.Errorf("failed to acquire workspace: %w", err)
	}
	defer release()
	if err := d.Git.Clone(ctx, docs.RepoURL, docs.Branch, dir); err != nil {
		return fmt.Errorf("failed to clone docs repository: %w", err)
	}

	// Step 2: Compare against the currently published version
	if data, err := d.Git.ReadFile(dir, docs.VersionFile); err == nil {
		current := entities.NewProjectVersion(train.ProjectName, strings.TrimSpace(string(data)))
		newer, err := train.IsMoreMature(current)
		if err != nil {
			return fmt.Errorf("failed to compare docs version %q: %w", current.Version, err)
		}
		if !newer {
			d.Logger.Info("Docs already point at a version at least as mature",
				interfaces.F("current", current.Version),
				interfaces.F("train", train.Version))
			return nil
		}
	}

	// Step 3: Write, commit and push
	path := filepath.Join(dir, docs.VersionFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(train.Version+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", docs.VersionFile, err)
	}
	if _, err := d.Git.CommitAll(dir, "Updating docs to "+train.Version); err != nil {
		return fmt.Errorf("failed to commit docs update: %w", err)
	}
	if err := d.Git.Push(ctx, dir, false); err != nil {
		return fmt.Errorf("failed to push docs update: %w", err)
	}
	d.Logger.Info("Updated docs version", interfaces.F("version", train.Version))
	return nil
}

func (d TaskDeps) generateAnnouncements(ctx context.Context, args *entities.Arguments) error {
	if !args.Config.Announcements.Enabled || d.Announcements == nil {
		return entities.ErrTaskSkipped
	}
	projects := make([]entities.ProjectVersion, 0, args.Projects.Len())
	for _, pv := range args.Projects.All() {
		if args.Config.IsReleaseTrainProject(pv.ProjectName) {
			continue
		}
		projects = append(projects, pv)
	}
	written, err := d.Announcements.Generate(ctx, gateways.AnnouncementData{
		Train:    args.VersionFromBom,
		Projects: projects,
		OrgName:  args.Config.Git.OrgName,
	})
	if err != nil {
		return fmt.Errorf("failed to generate announcements: %w", err)
	}
	d.Logger.Info("Generated announcements", interfaces.F("files", len(written)))
	return nil
}
