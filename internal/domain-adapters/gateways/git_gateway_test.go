package gateways

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRemote creates a bare repository holding one commit on master and one
// on a "release" branch, and returns its path.
func newRemote(t *testing.T) string {
	t.Helper()
	bare := t.TempDir()
	_, err := git.PlainInit(bare, true)
	require.NoError(t, err)

	seed := t.TempDir()
	repo, err := git.PlainInit(seed, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(name, content, msg string) {
		require.NoError(t, os.WriteFile(filepath.Join(seed, name), []byte(content), 0o600))
		_, err := wt.Add(name)
		require.NoError(t, err)
		sig := &object.Signature{Name: "seed", Email: "seed@example.com", When: time.Now()}
		_, err = wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
	}
	commit("pom.xml", "<project/>", "initial")

	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("release"), Create: true}))
	commit("release.txt", "1.0.x", "release branch")

	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{bare}})
	require.NoError(t, err)
	require.NoError(t, repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{"refs/heads/*:refs/heads/*"},
	}))

	remote, err := git.PlainOpen(bare)
	require.NoError(t, err)
	require.NoError(t, remote.Storer.SetReference(
		plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master"))))
	return bare
}

func clone(t *testing.T, g *GoGitGateway, url, branch string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "checkout")
	require.NoError(t, g.Clone(context.Background(), url, branch, dir))
	return dir
}

func headBranch(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	return head.Name().Short()
}

func TestGoGitGateway_CloneAndCheckout(t *testing.T) {
	remote := newRemote(t)
	g := NewGoGitGateway(GitOptions{})

	dir := clone(t, g, remote, "")
	assert.Equal(t, "master", headBranch(t, dir))

	dir = clone(t, g, remote, "release")
	assert.Equal(t, "release", headBranch(t, dir))
	data, err := g.ReadFile(dir, "release.txt")
	require.NoError(t, err)
	assert.Equal(t, "1.0.x", string(data))

	err = g.Clone(context.Background(), remote, "nope", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrRefNotFound)

	err = g.Clone(context.Background(), filepath.Join(t.TempDir(), "missing"), "", filepath.Join(t.TempDir(), "y"))
	assert.Error(t, err)
}

func TestGoGitGateway_CommitTagPush(t *testing.T) {
	remote := newRemote(t)
	g := NewGoGitGateway(GitOptions{Username: "bot"})
	dir := clone(t, g, remote, "master")

	_, err := g.CommitAll(dir, "nothing")
	assert.ErrorIs(t, err, ErrEmptyCommit)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project><version>1.0.0</version></project>"), 0o600))
	hash, err := g.CommitAll(dir, "Update to v1.0.0")
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	require.NoError(t, g.Tag(dir, "v1.0.0", "Version v1.0.0"))
	assert.ErrorIs(t, g.Tag(dir, "v1.0.0", "again"), ErrTagExists)
	require.NoError(t, g.Push(context.Background(), dir, true))
	require.NoError(t, g.Push(context.Background(), dir, true), "pushing again is a no-op")

	repo, err := git.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash().String())
	_, err = repo.Reference(plumbing.NewTagReferenceName("v1.0.0"), true)
	assert.NoError(t, err)

	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, "bot", commit.Author.Name)
	assert.Equal(t, "bot@users.noreply.github.com", commit.Author.Email)
}

func TestGoGitGateway_PushRejected(t *testing.T) {
	remote := newRemote(t)
	g := NewGoGitGateway(GitOptions{})
	first := clone(t, g, remote, "master")
	second := clone(t, g, remote, "master")

	require.NoError(t, os.WriteFile(filepath.Join(first, "a.txt"), []byte("a"), 0o600))
	_, err := g.CommitAll(first, "first")
	require.NoError(t, err)
	require.NoError(t, g.Push(context.Background(), first, false))

	require.NoError(t, os.WriteFile(filepath.Join(second, "b.txt"), []byte("b"), 0o600))
	_, err = g.CommitAll(second, "second")
	require.NoError(t, err)
	assert.ErrorIs(t, g.Push(context.Background(), second, false), ErrNotFastForward)
}

func TestGoGitGateway_SignedCommit(t *testing.T) {
	entity, err := openpgp.NewEntity("Releaser", "", "releaser@example.com", nil)
	require.NoError(t, err)

	remote := newRemote(t)
	g := NewGoGitGateway(GitOptions{SignKey: entity})
	dir := clone(t, g, remote, "master")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "signed.txt"), []byte("x"), 0o600))
	hash, err := g.CommitAll(dir, "signed")
	require.NoError(t, err)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(commit.PGPSignature, "-----BEGIN PGP SIGNATURE-----"))
}
