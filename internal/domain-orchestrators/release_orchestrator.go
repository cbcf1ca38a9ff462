// Package orchestrators coordinates release workflows across domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

// RunOptions selects what a release run does.
type RunOptions struct {
	DryRun bool
	// TaskNames limits the run to these tasks. Composite names expand to
	// every task of their phase.
	TaskNames []string
	// StartFrom skips every task ordered before the named one.
	StartFrom string
	// Range limits the run to "first-last", both inclusive.
	Range string
	// PostRelease runs only the post-release phases.
	PostRelease bool
	// MetaRelease releases every project of the train.
	MetaRelease bool
}

func (o RunOptions) hasFilter() bool {
	return len(o.TaskNames) > 0 || o.StartFrom != "" || o.Range != ""
}

// ProjectRun is the outcome of one project's pipeline.
type ProjectRun struct {
	Project     string
	ProjectRoot string
	Outcomes    []entities.TaskOutcome
	Result      entities.ExecutionResult
	Aborted     bool
	Duration    time.Duration
}

// RunReport is the outcome of a whole run.
type RunReport struct {
	// ID identifies the run in logs and reports.
	ID        string
	Projects  []*ProjectRun
	Train     []entities.TaskOutcome
	Result    entities.ExecutionResult
	StartedAt time.Time
	Duration  time.Duration
}

// Status returns the final status of the run.
func (r *RunReport) Status() entities.Status {
	return r.Result.Status()
}

const tracerName = "github.com/ochairo/releaser/internal/domain-orchestrators"

// ReleaseOrchestrator drives projects through the task pipeline.
type ReleaseOrchestrator struct {
	tasks     []entities.Task
	updater   *ProjectUpdater
	git       gateways.GitGateway
	workspace gateways.Workspace
	logger    interfaces.Logger
	tracer    trace.Tracer
}

// NewReleaseOrchestrator creates an orchestrator over the given catalog.
func NewReleaseOrchestrator(
	tasks []entities.Task,
	updater *ProjectUpdater,
	git gateways.GitGateway,
	workspace gateways.Workspace,
	logger interfaces.Logger,
) *ReleaseOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	sorted := make([]entities.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return &ReleaseOrchestrator{
		tasks:     sorted,
		updater:   updater,
		git:       git,
		workspace: workspace,
		logger:    logger,
		tracer:    noop.NewTracerProvider().Tracer(tracerName),
	}
}

// WithTracer records a span per run, project and task on tp.
func (o *ReleaseOrchestrator) WithTracer(tp trace.TracerProvider) *ReleaseOrchestrator {
	if tp != nil {
		o.tracer = tp.Tracer(tracerName)
	}
	return o
}

// Tasks returns the catalog sorted by order.
func (o *ReleaseOrchestrator) Tasks() []entities.Task {
	out := make([]entities.Task, len(o.tasks))
	copy(out, o.tasks)
	return out
}

// plan is the resolved set of phases and tasks for a run.
type plan struct {
	projectPhases []entities.Phase
	trainPhase    bool
	allowed       map[string]bool
}

// Plan resolves which tasks run in which phase for opts.
func (o *ReleaseOrchestrator) Plan(opts RunOptions) (map[entities.Phase][]entities.Task, error) {
	p, err := o.plan(opts)
	if err != nil {
		return nil, err
	}
	out := make(map[entities.Phase][]entities.Task)
	for _, phase := range p.projectPhases {
		out[phase] = o.tasksFor(phase, p.allowed)
	}
	if p.trainPhase {
		out[entities.PhaseTrainPostRelease] = o.tasksFor(entities.PhaseTrainPostRelease, p.allowed)
	}
	return out, nil
}

func (o *ReleaseOrchestrator) plan(opts RunOptions) (*plan, error) {
	p := &plan{}
	switch {
	case opts.DryRun:
		p.projectPhases = []entities.Phase{entities.PhaseDryRun}
	case opts.PostRelease:
		p.projectPhases = []entities.Phase{entities.PhaseProjectPostRelease}
		p.trainPhase = true
	default:
		p.projectPhases = []entities.Phase{entities.PhaseRelease, entities.PhaseProjectPostRelease}
		p.trainPhase = opts.MetaRelease
	}
	if !opts.hasFilter() {
		return p, nil
	}

	allowed, err := o.filter(opts)
	if err != nil {
		return nil, err
	}
	p.allowed = allowed
	if !opts.DryRun && len(o.tasksFor(entities.PhaseTrainPostRelease, allowed)) > 0 {
		p.trainPhase = true
	}
	return p, nil
}

// filter turns task names, start-from and range into an allow-list. The
// three selectors intersect.
func (o *ReleaseOrchestrator) filter(opts RunOptions) (map[string]bool, error) {
	var ordered []entities.Task
	for _, t := range o.tasks {
		if !t.IsComposite() {
			ordered = append(ordered, t)
		}
	}
	allowed := make(map[string]bool, len(ordered))
	for _, t := range ordered {
		allowed[t.ShortName] = true
	}
	intersect := func(keep map[string]bool) {
		for name := range allowed {
			if !keep[name] {
				delete(allowed, name)
			}
		}
	}

	if len(opts.TaskNames) > 0 {
		keep := make(map[string]bool)
		for _, name := range opts.TaskNames {
			t, ok := o.find(name)
			if !ok {
				return nil, entities.NewConfigurationError("unknown task "+name, nil)
			}
			if !t.IsComposite() {
				keep[t.ShortName] = true
				continue
			}
			for _, member := range ordered {
				if member.InPhase(t.Expands) {
					keep[member.ShortName] = true
				}
			}
		}
		intersect(keep)
	}

	if opts.StartFrom != "" {
		i, err := indexOf(ordered, opts.StartFrom)
		if err != nil {
			return nil, err
		}
		intersect(shortNames(ordered[i:]))
	}

	if opts.Range != "" {
		first, last, err := o.splitRange(opts.Range)
		if err != nil {
			return nil, err
		}
		i, err := indexOf(ordered, first)
		if err != nil {
			return nil, err
		}
		j, err := indexOf(ordered, last)
		if err != nil {
			return nil, err
		}
		if i > j {
			return nil, entities.NewConfigurationError(fmt.Sprintf("range %q runs backwards", opts.Range), nil)
		}
		intersect(shortNames(ordered[i : j+1]))
	}
	return allowed, nil
}

// splitRange splits "a-b". Short names contain dashes, so every dash is
// tried until both halves name a task.
func (o *ReleaseOrchestrator) splitRange(r string) (string, string, error) {
	for i := 0; i < len(r); i++ {
		if r[i] != '-' {
			continue
		}
		first, last := r[:i], r[i+1:]
		if _, ok := o.find(first); !ok {
			continue
		}
		if _, ok := o.find(last); ok {
			return first, last, nil
		}
	}
	return "", "", entities.NewConfigurationError(fmt.Sprintf("invalid task range %q", r), nil)
}

func (o *ReleaseOrchestrator) find(name string) (entities.Task, bool) {
	for _, t := range o.tasks {
		if t.ShortName == name || strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return entities.Task{}, false
}

func indexOf(tasks []entities.Task, name string) (int, error) {
	for i, t := range tasks {
		if t.ShortName == name || strings.EqualFold(t.Name, name) {
			return i, nil
		}
	}
	return 0, entities.NewConfigurationError("unknown task "+name, nil)
}

func shortNames(tasks []entities.Task) map[string]bool {
	out := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		out[t.ShortName] = true
	}
	return out
}

func (o *ReleaseOrchestrator) tasksFor(phase entities.Phase, allowed map[string]bool) []entities.Task {
	var out []entities.Task
	for _, t := range o.tasks {
		if t.IsComposite() || !t.InPhase(phase) {
			continue
		}
		if allowed != nil && !allowed[t.ShortName] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Run executes a release for the project at projectRoot, or for every
// project of the train when opts.MetaRelease is set. Configuration errors
// are returned before any task runs; everything else is in the report.
func (o *ReleaseOrchestrator) Run(ctx context.Context, projectRoot string, cfg *entities.ReleaserConfig, opts RunOptions) (*RunReport, error) {
	report := &RunReport{ID: uuid.NewString(), StartedAt: time.Now(), Result: entities.Success()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()
	o.logger.Info("Release run started",
		interfaces.F("run_id", report.ID),
		interfaces.F("meta_release", opts.MetaRelease),
		interfaces.F("dry_run", opts.DryRun))
	ctx, span := o.tracer.Start(ctx, "release.run", trace.WithAttributes(
		attribute.String("release.run_id", report.ID),
		attribute.Bool("release.meta_release", opts.MetaRelease),
		attribute.Bool("release.dry_run", opts.DryRun)))
	defer span.End()

	// Step 1: Resolve the plan and the BOM
	p, err := o.plan(opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	versions, err := o.updater.ResolveVersions(ctx, cfg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	projects := versions.ToProjects()

	// Step 2: Run the project pipelines
	var stopped bool
	if opts.MetaRelease {
		stopped = o.runMetaRelease(ctx, report, projects, cfg, opts, p)
	} else {
		run := o.runProject(ctx, projectRoot, projects, cfg, opts, p)
		report.Projects = append(report.Projects, run)
		report.Result = report.Result.Merge(run.Result)
	}

	// Step 3: Train post-release tasks, once, after every project succeeded
	if p.trainPhase && !stopped && !report.Result.IsFailure() {
		report.Train = o.runTrain(ctx, projects, cfg, opts, p)
		for _, out := range report.Train {
			report.Result = report.Result.Merge(out.Result)
		}
	}

	recordResult(span, report.Result)
	o.logger.Info("Release run finished",
		interfaces.F("run_id", report.ID),
		interfaces.F("status", string(report.Status())),
		interfaces.F("projects", len(report.Projects)),
		interfaces.F("duration", time.Since(report.StartedAt).Round(time.Millisecond).String()))
	return report, nil
}

// runMetaRelease clones and releases every train project in BOM order.
// It reports whether fail-fast stopped the train.
func (o *ReleaseOrchestrator) runMetaRelease(ctx context.Context, report *RunReport, projects entities.Projects, cfg *entities.ReleaserConfig, opts RunOptions, p *plan) bool {
	for _, pv := range MetaReleaseProjects(projects, cfg) {
		run := o.releaseRemoteProject(ctx, pv, projects, cfg, opts, p)
		report.Projects = append(report.Projects, run)
		report.Result = report.Result.Merge(run.Result)
		if run.Result.IsFailure() && cfg.MetaRelease.FailFast {
			o.logger.Error("Project failed, stopping the train", interfaces.F("project", pv.ProjectName))
			return true
		}
	}
	return false
}

func (o *ReleaseOrchestrator) releaseRemoteProject(ctx context.Context, pv entities.ProjectVersion, projects entities.Projects, cfg *entities.ReleaserConfig, opts RunOptions, p *plan) *ProjectRun {
	failed := func(err error) *ProjectRun {
		o.logger.Error("Failed to check out project", interfaces.F("project", pv.ProjectName), interfaces.F("error", err))
		return &ProjectRun{Project: pv.ProjectName, Result: entities.Failure(err), Aborted: true}
	}
	dir, release, err := o.workspace.Acquire("project-" + pv.ProjectName)
	if err != nil {
		return failed(fmt.Errorf("failed to acquire workspace: %w", err))
	}
	defer release()

	url := strings.TrimSuffix(cfg.MetaRelease.GitOrgURL, "/") + "/" + pv.ProjectName
	if err := o.git.Clone(ctx, url, cfg.Git.Branch, dir); err != nil {
		return failed(fmt.Errorf("failed to clone %s: %w", url, err))
	}
	return o.runProject(ctx, dir, projects, cfg, opts, p)
}

// MetaReleaseProjects lists the projects a train-wide run releases, in BOM
// order: train entries, BOM artifacts and skipped names are left out.
func MetaReleaseProjects(projects entities.Projects, cfg *entities.ReleaserConfig) []entities.ProjectVersion {
	skip := make(map[string]bool, len(cfg.MetaRelease.ProjectsToSkip))
	for _, name := range cfg.MetaRelease.ProjectsToSkip {
		skip[name] = true
	}
	var out []entities.ProjectVersion
	for _, pv := range projects.All() {
		switch {
		case skip[pv.ProjectName],
			cfg.IsReleaseTrainProject(pv.ProjectName),
			strings.HasSuffix(pv.ProjectName, entities.ParentSuffix),
			strings.HasSuffix(pv.ProjectName, entities.DependenciesSuffix):
			continue
		}
		out = append(out, pv)
	}
	return out
}

func (o *ReleaseOrchestrator) runProject(ctx context.Context, root string, projects entities.Projects, cfg *entities.ReleaserConfig, opts RunOptions, p *plan) *ProjectRun {
	startTime := time.Now()
	run := &ProjectRun{ProjectRoot: root, Result: entities.Success()}
	ctx, span := o.tracer.Start(ctx, "release.project")
	defer func() {
		run.Duration = time.Since(startTime)
		span.SetAttributes(attribute.String("release.project", run.Project), attribute.Bool("release.aborted", run.Aborted))
		recordResult(span, run.Result)
		span.End()
	}()

	// Step 1: Work out which version this project releases
	original, fromBom, err := o.updater.ProjectVersions(root, projects)
	run.Project = original.ProjectName
	if err != nil {
		o.logger.Error("Cannot release project", interfaces.F("root", root), interfaces.F("error", err))
		run.Result = entities.Failure(err)
		run.Aborted = true
		return run
	}
	args := entities.NewProjectArguments(root, original, fromBom, projects, cfg, opts.DryRun)
	o.logger.Info("Releasing project",
		interfaces.F("project", fromBom.ProjectName),
		interfaces.F("from", original.Version),
		interfaces.F("to", fromBom.Version),
		interfaces.F("dry_run", opts.DryRun))

	// Step 2: Run each phase in order; a failure outside post-release stops the project
	for _, phase := range p.projectPhases {
		for _, task := range o.tasksFor(phase, p.allowed) {
			if err := ctx.Err(); err != nil {
				run.Result = run.Result.Merge(entities.Failure(err))
				run.Aborted = true
				return run
			}
			out := o.runTask(ctx, task, phase, args)
			run.Outcomes = append(run.Outcomes, out)
			run.Result = run.Result.Merge(out.Result)
			if out.Result.IsFailure() && !phase.IsPostRelease() {
				o.logger.Error("Task failed, aborting project",
					interfaces.F("project", run.Project),
					interfaces.F("task", task.ShortName))
				run.Aborted = true
				return run
			}
		}
	}
	return run
}

func (o *ReleaseOrchestrator) runTrain(ctx context.Context, projects entities.Projects, cfg *entities.ReleaserConfig, opts RunOptions, p *plan) []entities.TaskOutcome {
	tasks := o.tasksFor(entities.PhaseTrainPostRelease, p.allowed)
	if len(tasks) == 0 {
		return nil
	}
	train, err := projects.ReleaseTrain(cfg.ReleaseTrainNames()...)
	if err != nil {
		o.logger.Warn("Release train version not found, skipping train tasks", interfaces.F("error", err))
		return []entities.TaskOutcome{{
			Task:   "train",
			Phase:  entities.PhaseTrainPostRelease,
			Result: entities.Unstable(err),
		}}
	}

	args := entities.NewTrainArguments(train, projects, cfg, opts.DryRun)
	outcomes := make([]entities.TaskOutcome, 0, len(tasks))
	for _, task := range tasks {
		outcomes = append(outcomes, o.runTask(ctx, task, entities.PhaseTrainPostRelease, args))
	}
	return outcomes
}

// runTask runs one task and classifies its error. It never panics.
func (o *ReleaseOrchestrator) runTask(ctx context.Context, task entities.Task, phase entities.Phase, args *entities.Arguments) (out entities.TaskOutcome) {
	startTime := time.Now()
	out = entities.TaskOutcome{Task: task.ShortName, Project: args.VersionFromBom.ProjectName, Phase: phase}
	o.logger.Info(task.Header, interfaces.F("project", out.Project), interfaces.F("task", task.ShortName))
	ctx, span := o.tracer.Start(ctx, "release.task", trace.WithAttributes(
		attribute.String("release.task", task.ShortName),
		attribute.String("release.phase", string(phase)),
		attribute.String("release.project", out.Project)))

	defer func() {
		if r := recover(); r != nil {
			out.Result = classify(task, phase, fmt.Errorf("panic: %v", r))
		}
		out.Duration = time.Since(startTime)
		o.logOutcome(out)
		recordResult(span, out.Result)
		span.End()
	}()

	if task.Run == nil {
		out.Result = entities.Skipped()
		return out
	}
	out.Result = classify(task, phase, task.Run(ctx, args))
	return out
}

// classify maps a task error onto an execution result. Post-release phases
// never fail the run.
func classify(task entities.Task, phase entities.Phase, err error) entities.ExecutionResult {
	if err == nil {
		return entities.Success()
	}
	if errors.Is(err, entities.ErrTaskSkipped) {
		return entities.Skipped()
	}
	var unstable *entities.UnstableTaskError
	if errors.As(err, &unstable) {
		return entities.Unstable(unstable.Errs...)
	}
	if phase.IsPostRelease() {
		return entities.Unstable(err)
	}
	return entities.Failure(&entities.FatalTaskError{Task: task.ShortName, Err: err})
}

// recordResult tags span with the status. Only failures mark the span as
// an error; unstable results are recorded as events.
func recordResult(span trace.Span, result entities.ExecutionResult) {
	span.SetAttributes(attribute.String("release.status", string(result.Status())))
	err := result.Err()
	if err == nil {
		return
	}
	span.RecordError(err)
	if result.IsFailure() {
		span.SetStatus(codes.Error, err.Error())
	}
}

func (o *ReleaseOrchestrator) logOutcome(out entities.TaskOutcome) {
	fields := []interfaces.Field{
		interfaces.F("project", out.Project),
		interfaces.F("task", out.Task),
		interfaces.F("status", string(out.Result.Status())),
		interfaces.F("duration", out.Duration.Round(time.Millisecond).String()),
	}
	switch out.Result.Status() {
	case entities.StatusFailure:
		o.logger.Error("Task failed", append(fields, interfaces.F("error", out.Result.Err()))...)
	case entities.StatusUnstable:
		o.logger.Warn("Task unstable", append(fields, interfaces.F("error", out.Result.Err()))...)
	default:
		o.logger.Debug("Task finished", fields...)
	}
}
