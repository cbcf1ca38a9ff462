package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/releaser/internal/domain/entities"
)

const bomPom = `<?xml version="1.0" encoding="UTF-8"?>
<project>
	<modelVersion>4.0.0</modelVersion>
	<groupId>org.example</groupId>
	<artifactId>train-dependencies</artifactId>
	<version>Hoxton.RELEASE</version>
	<packaging>pom</packaging>
	<properties>
		<alpha.version>1.2.0</alpha.version>
		<beta.version>2.0.1</beta.version>
	</properties>
</project>
`

// initRepo creates a git repository holding files on branch master.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return dir
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "releaser.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), append([]string{"releaser"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestTasksCommand(t *testing.T) {
	out, _, err := run(t, "tasks")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.Contains(t, lines[0], "ORDER")
	assert.Contains(t, lines[1], "update-manifests")
	assert.Contains(t, out, "close-milestone")
	assert.Contains(t, out, "PROJECT_POST_RELEASE")
	assert.Contains(t, lines[len(lines)-1], "post-release")
}

func TestMissingConfigFails(t *testing.T) {
	_, _, err := run(t, "versions", "--config", filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)

	var cfgErr *entities.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConfigRequiresReleaseTrainURL(t *testing.T) {
	path := writeConfig(t, "releaseTrain:\n  branch: main\n")
	_, _, err := run(t, "versions", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "releaseTrain.url")
}

func TestVersionsCommand(t *testing.T) {
	bom := initRepo(t, map[string]string{"pom.xml": bomPom})
	path := writeConfig(t, "releaseTrain:\n  url: "+bom+"\n  branch: master\n  projectName: train\n"+
		"fixedVersions:\n  beta: 2.0.9\n")

	out, _, err := run(t, "versions", "--config", path, "--json")
	require.NoError(t, err)

	var entries []versionEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	got := map[string]versionEntry{}
	for _, e := range entries {
		got[e.Project] = e
	}
	assert.Equal(t, "1.2.0", got["alpha"].Version)
	assert.Equal(t, "2.0.9", got["beta"].Version)
	assert.Equal(t, entities.SourceFixed, got["beta"].Source)
}

func TestBranchOverrideFromFlag(t *testing.T) {
	bom := initRepo(t, map[string]string{"pom.xml": bomPom})
	path := writeConfig(t, "releaseTrain:\n  url: "+bom+"\n  branch: does-not-exist\n")

	_, _, err := run(t, "versions", "--config", path)
	require.Error(t, err)

	out, _, err := run(t, "versions", "--config", path, "--bom-branch", "master")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("RELEASER_GIT_BRANCH", "release/1.x")
	t.Setenv("GITHUB_TOKEN", "secret")

	v := newViper()
	cfg := &entities.ReleaserConfig{}
	applyOverrides(v, cfg)

	assert.Equal(t, "release/1.x", cfg.Git.Branch)
	assert.Equal(t, "secret", cfg.Git.OAuthToken)
	assert.Empty(t, cfg.ReleaseTrain.Branch)
}

func TestUpdateManifestsCommand(t *testing.T) {
	bom := initRepo(t, map[string]string{"pom.xml": bomPom})
	path := writeConfig(t, "releaseTrain:\n  url: "+bom+"\n  branch: master\n")

	project := t.TempDir()
	pom := `<project>
	<modelVersion>4.0.0</modelVersion>
	<groupId>org.example</groupId>
	<artifactId>alpha</artifactId>
	<version>1.2.0-SNAPSHOT</version>
</project>
`
	require.NoError(t, os.WriteFile(filepath.Join(project, "pom.xml"), []byte(pom), 0o600))

	out, _, err := run(t, "update-manifests", "--config", path, "--project", project, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "+\t<version>1.2.0</version>")
	assert.Contains(t, out, "1 of 1 manifests would change")

	data, err := os.ReadFile(filepath.Join(project, "pom.xml"))
	require.NoError(t, err)
	assert.Equal(t, pom, string(data), "dry run must not write")

	out, _, err = run(t, "update-manifests", "--config", path, "--project", project)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 manifests updated")

	data, err = os.ReadFile(filepath.Join(project, "pom.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<version>1.2.0</version>")
}

func TestReleaseDryRunWritesArtifacts(t *testing.T) {
	bom := initRepo(t, map[string]string{"pom.xml": bomPom})
	out := t.TempDir()
	statusFile := filepath.Join(out, "build_status")
	path := writeConfig(t, "releaseTrain:\n  url: "+bom+"\n  branch: master\n"+
		"commands:\n  build: \"true\"\n"+
		"statusFile: "+statusFile+"\n")

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "pom.xml"), []byte(`<project>
	<artifactId>alpha</artifactId>
	<version>1.2.0-SNAPSHOT</version>
</project>
`), 0o600))

	reportFile := filepath.Join(out, "report.json")
	traceFile := filepath.Join(out, "trace.jsonl")
	stdout, _, err := run(t, "release", "--config", path, "--project", project, "--dry-run",
		"--report", reportFile, "--trace-file", traceFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "BUILD SUCCESS")

	status, err := os.ReadFile(statusFile)
	require.NoError(t, err)
	assert.Equal(t, "stable", string(status))

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	var report RunReportJSON
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Projects, 1)
	assert.Equal(t, "alpha", report.Projects[0].Project)
	assert.NotEmpty(t, report.RunID)

	traces, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(traces), `"release.run"`)
	assert.Contains(t, string(traces), report.RunID)
}

func TestRunMainExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := -1
	runMain([]string{"releaser", "versions", "--config", "missing.yml"}, &stdout, &stderr, func(c int) { code = c })
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")

	code = -1
	runMain([]string{"releaser", "tasks"}, &stdout, &stderr, func(c int) { code = c })
	assert.Equal(t, -1, code, "success must not call exit")
}
