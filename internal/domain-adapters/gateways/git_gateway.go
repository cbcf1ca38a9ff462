package gateways

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

// Sentinel errors re-exported from the gateway contract.
var (
	ErrEmptyCommit    = gateways.ErrEmptyCommit
	ErrTagExists      = gateways.ErrTagExists
	ErrNotFastForward = gateways.ErrNotFastForward
	ErrRefNotFound    = gateways.ErrRefNotFound
)

const defaultRemoteName = "origin"

// GitOptions configures GoGitGateway.
type GitOptions struct {
	Token    string
	Username string
	Email    string
	// SignKey, when set, signs every commit and tag.
	SignKey *openpgp.Entity
}

// GoGitGateway implements the git transport with go-git.
type GoGitGateway struct {
	opts GitOptions
	now  func() time.Time
}

// NewGoGitGateway creates a gateway. A token enables HTTP basic auth.
func NewGoGitGateway(opts GitOptions) *GoGitGateway {
	if opts.Username == "" {
		opts.Username = "releaser"
	}
	if opts.Email == "" {
		opts.Email = opts.Username + "@users.noreply.github.com"
	}
	return &GoGitGateway{opts: opts, now: time.Now}
}

func (g *GoGitGateway) auth() transport.AuthMethod {
	if g.opts.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: g.opts.Username, Password: g.opts.Token}
}

func (g *GoGitGateway) signature() *object.Signature {
	return &object.Signature{Name: g.opts.Username, Email: g.opts.Email, When: g.now()}
}

// Clone clones url into dir and checks out branch when one is given
func (g *GoGitGateway) Clone(ctx context.Context, url, branch, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:        url,
		Auth:       g.auth(),
		RemoteName: defaultRemoteName,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", url, err)
	}
	if branch == "" {
		return nil
	}
	return g.Checkout(dir, branch)
}

// Checkout switches to a local branch, a remote branch (creating a local
// tracking branch) or a tag (detached).
func (g *GoGitGateway) Checkout(dir, ref string) error {
	repo, wt, err := open(dir)
	if err != nil {
		return err
	}

	local := plumbing.NewBranchReferenceName(ref)
	if _, err := repo.Reference(local, true); err == nil {
		return wrapCheckout(ref, wt.Checkout(&git.CheckoutOptions{Branch: local}))
	}

	remote := plumbing.NewRemoteReferenceName(defaultRemoteName, ref)
	if r, err := repo.Reference(remote, true); err == nil {
		err = wt.Checkout(&git.CheckoutOptions{Branch: local, Hash: r.Hash(), Create: true})
		if err != nil {
			return wrapCheckout(ref, err)
		}
		return repo.CreateBranch(&config.Branch{Name: ref, Remote: defaultRemoteName, Merge: local})
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(plumbing.NewTagReferenceName(ref)))
	if err != nil {
		hash, err = repo.ResolveRevision(plumbing.Revision(ref))
		if err != nil {
			return fmt.Errorf("%w: %s", ErrRefNotFound, ref)
		}
	}
	return wrapCheckout(ref, wt.Checkout(&git.CheckoutOptions{Hash: *hash}))
}

func wrapCheckout(ref string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ref, err)
	}
	return nil
}

// CommitAll stages every change and commits it
func (g *GoGitGateway) CommitAll(dir, message string) (string, error) {
	_, wt, err := open(dir)
	if err != nil {
		return "", err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return "", ErrEmptyCommit
	}

	sig := g.signature()
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
		SignKey:   g.opts.SignKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}
	return hash.String(), nil
}

// Tag creates an annotated tag on HEAD
func (g *GoGitGateway) Tag(dir, name, message string) error {
	repo, _, err := open(dir)
	if err != nil {
		return err
	}
	if _, err := repo.Reference(plumbing.NewTagReferenceName(name), true); err == nil {
		return fmt.Errorf("%w: %s", ErrTagExists, name)
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	_, err = repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Tagger:  g.signature(),
		Message: message,
		SignKey: g.opts.SignKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	return nil
}

// Push pushes the current branch and, optionally, all tags
func (g *GoGitGateway) Push(ctx context.Context, dir string, withTags bool) error {
	repo, _, err := open(dir)
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return fmt.Errorf("cannot push a detached HEAD")
	}

	specs := []config.RefSpec{config.RefSpec(head.Name().String() + ":" + head.Name().String())}
	if withTags {
		specs = append(specs, "refs/tags/*:refs/tags/*")
	}
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: defaultRemoteName,
		RefSpecs:   specs,
		Auth:       g.auth(),
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate), strings.Contains(err.Error(), "non-fast-forward"):
		// go-git reports rejected pushes as a plain "non-fast-forward update: <ref>" error
		return fmt.Errorf("%w: %v", ErrNotFastForward, err)
	default:
		return fmt.Errorf("failed to push: %w", err)
	}
}

// ReadFile returns a file from the working tree
func (g *GoGitGateway) ReadFile(dir, path string) ([]byte, error) {
	//nolint:gosec // G304: path is relative to a checkout we created
	data, err := os.ReadFile(filepath.Join(dir, path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func open(dir string) (*git.Repository, *git.Worktree, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open repository %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	return repo, wt, nil
}
