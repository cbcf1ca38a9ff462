package entities

import "errors"

// Status is the outcome of a task, project, or whole run.
type Status string

// Outcome states, ordered by severity.
const (
	StatusSuccess  Status = "SUCCESS"
	StatusSkipped  Status = "SKIPPED"
	StatusUnstable Status = "UNSTABLE"
	StatusFailure  Status = "FAILURE"
)

// ExecutionResult is an immutable task outcome.
type ExecutionResult struct {
	Exceptions []error
	Skipped    bool
}

// Success returns a result with no exceptions.
func Success() ExecutionResult { return ExecutionResult{} }

// Skipped returns a result for a task that did not act.
func Skipped() ExecutionResult { return ExecutionResult{Skipped: true} }

// Unstable returns a result whose exceptions are all non-fatal. Each
// argument is wrapped so the result never reads as a failure.
func Unstable(errs ...error) ExecutionResult {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		if IsUnstable(err) {
			out = append(out, err)
			continue
		}
		out = append(out, &UnstableTaskError{Errs: []error{err}})
	}
	return ExecutionResult{Exceptions: out}
}

// Failure returns a result with fatal exceptions.
func Failure(errs ...error) ExecutionResult {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return ExecutionResult{Exceptions: out}
}

// IsSuccess reports no exceptions and not skipped.
func (r ExecutionResult) IsSuccess() bool {
	return len(r.Exceptions) == 0 && !r.Skipped
}

// IsSkipped reports a skipped result with no exceptions.
func (r ExecutionResult) IsSkipped() bool {
	return len(r.Exceptions) == 0 && r.Skipped
}

// IsUnstable reports that every exception is non-fatal.
func (r ExecutionResult) IsUnstable() bool {
	if len(r.Exceptions) == 0 {
		return false
	}
	for _, err := range r.Exceptions {
		if !IsUnstable(err) {
			return false
		}
	}
	return true
}

// IsFailure reports at least one fatal exception.
func (r ExecutionResult) IsFailure() bool {
	return len(r.Exceptions) > 0 && !r.IsUnstable()
}

// Status maps the result onto a single state.
func (r ExecutionResult) Status() Status {
	switch {
	case r.IsFailure():
		return StatusFailure
	case r.IsUnstable():
		return StatusUnstable
	case r.Skipped:
		return StatusSkipped
	default:
		return StatusSuccess
	}
}

// Merge returns a new result with both exception lists concatenated. The
// merged result is skipped only when both inputs are.
func (r ExecutionResult) Merge(other ExecutionResult) ExecutionResult {
	exceptions := make([]error, 0, len(r.Exceptions)+len(other.Exceptions))
	exceptions = append(exceptions, r.Exceptions...)
	exceptions = append(exceptions, other.Exceptions...)
	return ExecutionResult{Exceptions: exceptions, Skipped: r.Skipped && other.Skipped}
}

// Err joins all exceptions, or returns nil.
func (r ExecutionResult) Err() error {
	return errors.Join(r.Exceptions...)
}

// ExitCode is the process exit signal for a final status.
func (s Status) ExitCode() int {
	switch s {
	case StatusFailure:
		return 1
	case StatusUnstable:
		return 3
	default:
		return 0
	}
}

// Marker is the word written to the status file for CI.
func (s Status) Marker() string {
	switch s {
	case StatusFailure:
		return "failure"
	case StatusUnstable:
		return "unstable"
	default:
		return "stable"
	}
}
