package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

// Task short names.
const (
	TaskUpdateManifests = "update-manifests"
	TaskBuild           = "build"
	TaskCommit          = "commit"
	TaskDeploy          = "deploy"
	TaskDocs            = "docs"
	TaskSnapshot        = "snapshot"
	TaskPush            = "push"
	TaskCloseMilestone  = "close-milestone"
	TaskUpdateDocs      = "update-docs"
	TaskUpdateSamples   = "update-samples"
	TaskAnnouncements   = "announcements"
	TaskRelease         = "release"
	TaskPostRelease     = "post-release"
)

// maxOutputTail bounds how much command stderr ends up in an error message.
const maxOutputTail = 2048

// TaskDeps are the collaborators the built-in tasks close over. Optional
// gateways may be nil; the task that needs one then reports itself skipped.
type TaskDeps struct {
	Updater       *ProjectUpdater
	Git           gateways.GitGateway
	Scripts       gateways.ScriptRunner
	Milestones    gateways.MilestoneGateway
	Announcements gateways.AnnouncementGenerator
	Samples       *SampleUpdater
	Workspace     gateways.Workspace
	Logger        interfaces.Logger
}

// DefaultTasks returns the built-in catalog.
func DefaultTasks(d TaskDeps) []entities.Task {
	if d.Logger == nil {
		d.Logger = &interfaces.NoOpLogger{}
	}
	tasks := releaseTasks(d)
	tasks = append(tasks, postReleaseTasks(d)...)
	return append(tasks,
		entities.Task{
			Name:        "Full release",
			ShortName:   TaskRelease,
			Header:      "RELEASE",
			Description: "Runs every release task",
			Order:       200,
			Phases:      []entities.Phase{entities.PhaseComposite},
			Expands:     entities.PhaseRelease,
		},
		entities.Task{
			Name:        "Full post-release",
			ShortName:   TaskPostRelease,
			Header:      "POST RELEASE",
			Description: "Runs every project post-release task",
			Order:       210,
			Phases:      []entities.Phase{entities.PhaseComposite},
			Expands:     entities.PhaseProjectPostRelease,
		},
	)
}

func releaseTasks(d TaskDeps) []entities.Task {
	return []entities.Task{
		{
			Name:        "Update project manifests",
			ShortName:   TaskUpdateManifests,
			Header:      "UPDATING VERSIONS",
			Description: "Rewrites every manifest to the versions from the BOM",
			Order:       10,
			Phases:      []entities.Phase{entities.PhaseDryRun, entities.PhaseRelease},
			Run:         d.updateManifests,
		},
		{
			Name:        "Build project",
			ShortName:   TaskBuild,
			Header:      "BUILDING PROJECT",
			Description: "Runs the configured build command",
			Order:       20,
			Phases:      []entities.Phase{entities.PhaseDryRun, entities.PhaseRelease},
			Run: func(ctx context.Context, args *entities.Arguments) error {
				return d.runCommand(ctx, args, "build", args.Config.Commands.Build)
			},
		},
		{
			Name:        "Commit and tag",
			ShortName:   TaskCommit,
			Header:      "COMMITTING AND TAGGING",
			Description: "Commits the version change and tags the release",
			Order:       30,
			Phases:      []entities.Phase{entities.PhaseRelease},
			Run:         d.commitAndTag,
		},
		{
			Name:        "Deploy artifacts",
			ShortName:   TaskDeploy,
			Header:      "DEPLOYING ARTIFACTS",
			Description: "Runs the configured deploy command",
			Order:       40,
			Phases:      []entities.Phase{entities.PhaseRelease},
			Run: func(ctx context.Context, args *entities.Arguments) error {
				return d.runCommand(ctx, args, "deploy", args.Config.Commands.Deploy)
			},
		},
		{
			Name:        "Publish docs",
			ShortName:   TaskDocs,
			Header:      "PUBLISHING DOCS",
			Description: "Runs the configured docs publishing command",
			Order:       50,
			Phases:      []entities.Phase{entities.PhaseRelease},
			Run: func(ctx context.Context, args *entities.Arguments) error {
				if !args.Config.Docs.PublishEnabled {
					return entities.ErrTaskSkipped
				}
				return d.runCommand(ctx, args, "publish docs", args.Config.Commands.PublishDocs)
			},
		},
		{
			Name:        "Bump to snapshot",
			ShortName:   TaskSnapshot,
			Header:      "GOING BACK TO SNAPSHOT",
			Description: "Bumps versions to the next snapshot and commits",
			Order:       60,
			Phases:      []entities.Phase{entities.PhaseRelease},
			Run:         d.bumpToSnapshot,
		},
		{
			Name:        "Push changes",
			ShortName:   TaskPush,
			Header:      "PUSHING CHANGES",
			Description: "Pushes the branch and tags",
			Order:       70,
			Phases:      []entities.Phase{entities.PhaseRelease},
			Run: func(ctx context.Context, args *entities.Arguments) error {
				if d.Git == nil {
					return entities.ErrTaskSkipped
				}
				return d.Git.Push(ctx, args.ProjectRoot, true)
			},
		},
	}
}

func (d TaskDeps) updateManifests(ctx context.Context, args *entities.Arguments) error {
	report, err := d.Updater.UpdateProjectFromVersions(ctx, args.ProjectRoot, args.Projects, args.Config, UpdateOptions{})
	if err != nil {
		return err
	}
	if report.Skipped {
		return entities.ErrTaskSkipped
	}
	return nil
}

// runCommand runs one opaque shell command in the project root. An empty
// command skips the task.
func (d TaskDeps) runCommand(ctx context.Context, args *entities.Arguments, what, command string) error {
	if strings.TrimSpace(command) == "" {
		d.Logger.Info("No command configured", interfaces.F("step", what))
		return entities.ErrTaskSkipped
	}
	if d.Scripts == nil {
		return entities.ErrTaskSkipped
	}
	result := d.Scripts.ExecuteScript(ctx, gateways.ScriptRequest{
		Script:      command,
		WorkingDir:  args.ProjectRoot,
		Env:         releaseEnv(args),
		Timeout:     args.Config.Commands.Timeout,
		Description: what,
	})
	if !result.Success {
		return fmt.Errorf("%s command failed (exit %d): %w%s", what, result.ExitCode, result.Error, stderrTail(result.Stderr))
	}
	return nil
}

func releaseEnv(args *entities.Arguments) map[string]string {
	return map[string]string{
		"RELEASER_PROJECT":          args.VersionFromBom.ProjectName,
		"RELEASER_VERSION":          args.VersionFromBom.Version,
		"RELEASER_ORIGINAL_VERSION": args.OriginalVersion.Version,
		"RELEASER_DRY_RUN":          fmt.Sprintf("%t", args.DryRun),
	}
}

func stderrTail(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if len(stderr) > maxOutputTail {
		stderr = "..." + stderr[len(stderr)-maxOutputTail:]
	}
	return "\n" + stderr
}

func (d TaskDeps) commitAndTag(_ context.Context, args *entities.Arguments) error {
	if d.Git == nil || args.VersionFromBom.IsSnapshot() {
		return entities.ErrTaskSkipped
	}
	version := args.VersionFromBom.Version
	if _, err := d.Git.CommitAll(args.ProjectRoot, "Update to "+version); err != nil {
		if !errors.Is(err, gateways.ErrEmptyCommit) {
			return fmt.Errorf("failed to commit release: %w", err)
		}
		d.Logger.Info("Nothing to commit, tagging current HEAD", interfaces.F("version", version))
	}
	tag := args.VersionFromBom.ReleaseTagName()
	if err := d.Git.Tag(args.ProjectRoot, tag, "Version "+version); err != nil {
		return fmt.Errorf("failed to tag %s: %w", tag, err)
	}
	d.Logger.Info("Tagged release", interfaces.F("tag", tag))
	return nil
}

// bumpToSnapshot moves every non-train entry to its next snapshot, rewrites
// the tree and commits.
func (d TaskDeps) bumpToSnapshot(ctx context.Context, args *entities.Arguments) error {
	if d.Git == nil || args.VersionFromBom.IsSnapshot() {
		return entities.ErrTaskSkipped
	}
	bumped, err := args.Projects.PostReleaseSnapshotVersion(args.Config.ReleaseTrainNames())
	if err != nil {
		return err
	}
	if !bumped.ContainsProject(args.VersionFromBom.ProjectName) {
		next, err := args.VersionFromBom.Bumped()
		if err != nil {
			return err
		}
		bumped = bumped.WithProject(next)
	}
	snapshot, err := bumped.ForName(args.VersionFromBom.ProjectName)
	if err != nil {
		return err
	}

	if _, err := d.Updater.UpdateProjectFromVersions(ctx, args.ProjectRoot, bumped, args.Config, UpdateOptions{Force: true}); err != nil {
		return err
	}
	if _, err := d.Git.CommitAll(args.ProjectRoot, "Bumping versions to "+snapshot.Version+" after release"); err != nil {
		if errors.Is(err, gateways.ErrEmptyCommit) {
			return entities.ErrTaskSkipped
		}
		return fmt.Errorf("failed to commit snapshot bump: %w", err)
	}
	d.Logger.Info("Bumped to snapshot", interfaces.F("version", snapshot.Version))
	return nil
}
