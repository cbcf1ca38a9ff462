package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	orchestrators "github.com/ochairo/releaser/internal/domain-orchestrators"
	"github.com/ochairo/releaser/internal/domain/entities"
)

// RunReportJSON is the JSON shape of a release run.
type RunReportJSON struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMS int64             `json:"duration_ms"`
	Projects   []ProjectRunJSON  `json:"projects"`
	Train      []TaskOutcomeJSON `json:"train,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
}

// ProjectRunJSON is one project's pipeline in the report.
type ProjectRunJSON struct {
	Project    string            `json:"project"`
	Status     string            `json:"status"`
	Aborted    bool              `json:"aborted"`
	DurationMS int64             `json:"duration_ms"`
	Tasks      []TaskOutcomeJSON `json:"tasks"`
}

// TaskOutcomeJSON is one task execution in the report.
type TaskOutcomeJSON struct {
	Task       string   `json:"task"`
	Project    string   `json:"project,omitempty"`
	Phase      string   `json:"phase,omitempty"`
	Status     string   `json:"status"`
	DurationMS int64    `json:"duration_ms"`
	Errors     []string `json:"errors,omitempty"`
}

func newRunReportJSON(r *orchestrators.RunReport) RunReportJSON {
	out := RunReportJSON{
		RunID:      r.ID,
		Status:     string(r.Status()),
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration.Milliseconds(),
		Projects:   make([]ProjectRunJSON, 0, len(r.Projects)),
		Errors:     errorStrings(r.Result.Exceptions),
	}
	for _, p := range r.Projects {
		pj := ProjectRunJSON{
			Project:    p.Project,
			Status:     string(p.Result.Status()),
			Aborted:    p.Aborted,
			DurationMS: p.Duration.Milliseconds(),
			Tasks:      make([]TaskOutcomeJSON, 0, len(p.Outcomes)),
		}
		for _, o := range p.Outcomes {
			pj.Tasks = append(pj.Tasks, newTaskOutcomeJSON(o))
		}
		out.Projects = append(out.Projects, pj)
	}
	for _, o := range r.Train {
		out.Train = append(out.Train, newTaskOutcomeJSON(o))
	}
	return out
}

func newTaskOutcomeJSON(o entities.TaskOutcome) TaskOutcomeJSON {
	return TaskOutcomeJSON{
		Task:       o.Task,
		Project:    o.Project,
		Phase:      string(o.Phase),
		Status:     string(o.Result.Status()),
		DurationMS: o.Duration.Milliseconds(),
		Errors:     errorStrings(o.Result.Exceptions),
	}
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func writeReport(path string, r *orchestrators.RunReport) error {
	data, err := json.MarshalIndent(newRunReportJSON(r), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	//nolint:gosec // G306: report is meant to be readable by CI
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeStatusFile records the status marker for CI. An empty path disables it.
func writeStatusFile(path string, status entities.Status) error {
	if path == "" {
		return nil
	}
	//nolint:gosec // G306: status file is meant to be readable by CI
	if err := os.WriteFile(path, []byte(status.Marker()), 0o644); err != nil {
		return fmt.Errorf("failed to write status file %s: %w", path, err)
	}
	return nil
}

func printSummary(out io.Writer, r *orchestrators.RunReport) {
	for _, p := range r.Projects {
		_, _ = fmt.Fprintf(out, "%s %s (%s)\n", statusColor(p.Result.Status())(string(p.Result.Status())), p.Project, p.Duration.Round(time.Millisecond))
		for _, o := range p.Outcomes {
			printOutcome(out, o)
		}
	}
	if len(r.Train) > 0 {
		_, _ = fmt.Fprintln(out, "Release train")
		for _, o := range r.Train {
			printOutcome(out, o)
		}
	}
}

func printOutcome(out io.Writer, o entities.TaskOutcome) {
	status := o.Result.Status()
	_, _ = fmt.Fprintf(out, "  %-10s %s\n", statusColor(status)(string(status)), o.Task)
	for _, err := range o.Result.Exceptions {
		_, _ = fmt.Fprintf(out, "             %s\n", err)
	}
}

func printBanner(out io.Writer, status entities.Status) {
	var banner string
	switch status {
	case entities.StatusFailure:
		banner = "BUILD FAILURE"
	case entities.StatusUnstable:
		banner = "BUILD UNSTABLE"
	default:
		banner = "BUILD SUCCESS"
	}
	_, _ = fmt.Fprintln(out, statusColor(status)(banner))
}

func statusColor(status entities.Status) func(string, ...interface{}) string {
	switch status {
	case entities.StatusFailure:
		return color.RedString
	case entities.StatusUnstable:
		return color.YellowString
	case entities.StatusSkipped:
		return color.CyanString
	default:
		return color.GreenString
	}
}
