package entities

import (
	"context"
	"time"
)

// Phase groups tasks that run together.
type Phase string

// Pipeline phases.
const (
	PhaseDryRun             Phase = "DRY_RUN"
	PhaseRelease            Phase = "RELEASE"
	PhaseProjectPostRelease Phase = "PROJECT_POST_RELEASE"
	PhaseTrainPostRelease   Phase = "TRAIN_POST_RELEASE"
	PhaseComposite          Phase = "COMPOSITE"
)

// IsPostRelease reports whether failures in this phase are downgraded to unstable.
func (p Phase) IsPostRelease() bool {
	return p == PhaseProjectPostRelease || p == PhaseTrainPostRelease
}

// TaskFunc performs a task's work. Returning ErrTaskSkipped marks the task
// skipped; returning an *UnstableTaskError marks it unstable.
type TaskFunc func(ctx context.Context, args *Arguments) error

// Task is a pipeline step described as data.
type Task struct {
	Name        string
	ShortName   string
	Header      string
	Description string
	Order       int
	Phases      []Phase
	Run         TaskFunc
	// Expands is set on composite tasks; selecting one selects every task
	// of that phase instead.
	Expands Phase
}

// InPhase reports whether the task belongs to phase.
func (t Task) InPhase(phase Phase) bool {
	for _, p := range t.Phases {
		if p == phase {
			return true
		}
	}
	return false
}

// IsComposite reports whether the task only groups other tasks.
func (t Task) IsComposite() bool {
	return t.Expands != ""
}

// TaskOutcome is the classified result of one task invocation.
type TaskOutcome struct {
	Task     string
	Project  string
	Phase    Phase
	Result   ExecutionResult
	Duration time.Duration
}
