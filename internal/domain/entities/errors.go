package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every typed error below unwraps to one of these so callers
// can classify with errors.Is.
var (
	// ErrConfiguration marks missing or invalid manifests, paths or credentials.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution marks a BOM entry that is absent for a required project.
	ErrResolution = errors.New("resolution error")

	// ErrTaskSkipped is returned by a task whose action is disabled for this run.
	ErrTaskSkipped = errors.New("task skipped")

	// ErrVersionFormat is returned when a version string matches no known scheme.
	ErrVersionFormat = errors.New("unrecognized version format")

	// ErrIncomparableVersions is returned when comparing a numeric version with a train version.
	ErrIncomparableVersions = errors.New("versions are not comparable")
)

// ConfigurationError is always fatal and is raised before any mutation.
type ConfigurationError struct {
	Reason string
	Err    error
}

// NewConfigurationError creates a configuration error with an optional cause.
func NewConfigurationError(reason string, err error) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

// Unwrap exposes both the sentinel and the cause.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// ResolutionError is fatal for the affected project only.
type ResolutionError struct {
	Project string
	Reason  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error for %s: %s", e.Project, e.Reason)
}

// Unwrap returns ErrResolution.
func (e *ResolutionError) Unwrap() error {
	return ErrResolution
}

// UnstableTaskError is the recoverable category for post-release side effects.
// It may carry several underlying failures collected from independent units.
type UnstableTaskError struct {
	Errs []error
}

// NewUnstableTaskError wraps the given errors, dropping nils. Returns nil when
// nothing is left.
func NewUnstableTaskError(errs ...error) *UnstableTaskError {
	kept := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &UnstableTaskError{Errs: kept}
}

func (e *UnstableTaskError) Error() string {
	if len(e.Errs) == 1 {
		return "unstable: " + e.Errs[0].Error()
	}
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("unstable (%d failures): %s", len(e.Errs), strings.Join(msgs, "; "))
}

// Unwrap returns the collected errors.
func (e *UnstableTaskError) Unwrap() []error {
	return e.Errs
}

// FatalTaskError wraps any other task failure.
type FatalTaskError struct {
	Task string
	Err  error
}

func (e *FatalTaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Task, e.Err)
}

// Unwrap returns the cause.
func (e *FatalTaskError) Unwrap() error {
	return e.Err
}

// IsUnstable reports whether err is (or wraps) an UnstableTaskError.
func IsUnstable(err error) bool {
	var unstable *UnstableTaskError
	return errors.As(err, &unstable)
}
