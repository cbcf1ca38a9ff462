package gateways

import (
	"context"
	"errors"
)

// Sentinel errors for git operations, checkable with errors.Is().
var (
	// ErrEmptyCommit is returned when there is nothing to commit.
	ErrEmptyCommit = errors.New("nothing to commit")

	// ErrTagExists is returned when the tag to create already exists.
	ErrTagExists = errors.New("tag already exists")

	// ErrNotFastForward is returned when the remote rejects a push.
	ErrNotFastForward = errors.New("not a fast-forward")

	// ErrRefNotFound is returned when a branch or tag cannot be resolved.
	ErrRefNotFound = errors.New("reference not found")
)

// GitGateway is the git transport used by the pipeline.
type GitGateway interface {
	// Clone clones url into dir and checks out branch (empty means the default branch)
	Clone(ctx context.Context, url, branch, dir string) error

	// Checkout switches an existing working tree to a branch or tag
	Checkout(dir, ref string) error

	// CommitAll stages every change and commits it. Returns the commit hash.
	CommitAll(dir, message string) (string, error)

	// Tag creates an annotated tag on HEAD
	Tag(dir, name, message string) error

	// Push pushes the current branch and, optionally, all tags
	Push(ctx context.Context, dir string, withTags bool) error

	// ReadFile returns a file from the working tree
	ReadFile(dir, path string) ([]byte, error)
}
