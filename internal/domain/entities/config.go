package entities

import (
	"regexp"
	"time"
)

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultBomManifestPath      = "pom.xml"
	DefaultBranch               = "main"
	DefaultCommandTimeout       = 30 * time.Minute
	DefaultSampleTimeout        = 10 * time.Minute
	DefaultSampleConcurrency    = 4
	DefaultStatusFile           = "build_status"
	DefaultMilestonesAPIURL     = "https://api.github.com"
	DefaultDocsVersionFile      = "current-version.txt"
	DefaultAnnouncementsOutput  = "target/announcements"
	DefaultGradlePropertiesFile = "gradle.properties"
)

// ReleaserConfig is the validated configuration for one run.
type ReleaserConfig struct {
	ReleaseTrain  ReleaseTrainConfig
	FixedVersions map[string]string
	// FixedVersionOrder preserves the declaration order of FixedVersions.
	FixedVersionOrder []string
	Bom               BomConfig
	Manifests         ManifestsConfig
	Gradle            GradleConfig
	Ecosystems        EcosystemsConfig
	MetaRelease       MetaReleaseConfig
	Git               GitConfig
	Commands          CommandsConfig
	Docs              DocsConfig
	Samples           SamplesConfig
	Milestones        MilestonesConfig
	Announcements     AnnouncementsConfig
	StatusFile        string
}

// ReleaseTrainConfig locates the BOM repository.
type ReleaseTrainConfig struct {
	URL         string
	Branch      string
	ProjectName string
}

// BomConfig describes where the BOM manifest lives inside its checkout.
type BomConfig struct {
	ManifestPath        string
	TrainVersionFromBom bool
}

// ManifestsConfig controls the project tree walk.
type ManifestsConfig struct {
	IgnoreRegexes []string
	compiled      []*regexp.Regexp
}

// Ignored reports whether a slash-separated relative path matches any
// ignore pattern. Patterns are compiled during validation.
func (m *ManifestsConfig) Ignored(relPath string) bool {
	for _, re := range m.compiled {
		if re.MatchString(relPath) {
			return true
		}
	}
	return false
}

// SetCompiled installs pre-compiled ignore patterns.
func (m *ManifestsConfig) SetCompiled(res []*regexp.Regexp) {
	m.compiled = res
}

// GradleConfig maps gradle.properties keys to project names.
type GradleConfig struct {
	PropertySubstitutions map[string]string
}

// EcosystemsConfig enables the built-in ecosystem parsers.
type EcosystemsConfig struct {
	Build  BuildEcosystemConfig
	Stream StreamEcosystemConfig
}

// BuildEcosystemConfig names the project that owns the BOM's parent.
type BuildEcosystemConfig struct {
	ProjectName string
}

// StreamEcosystemConfig points at a Gradle-properties manifest in the BOM checkout.
type StreamEcosystemConfig struct {
	ProjectName  string
	ManifestPath string
}

// MetaReleaseConfig drives a train-wide release across many repositories.
type MetaReleaseConfig struct {
	Enabled                     bool
	GitOrgURL                   string
	ProjectsToSkip              []string
	ReleaseTrainDependencyNames []string
	FailFast                    bool
}

// GitConfig holds credentials and signing material.
type GitConfig struct {
	OAuthToken           string
	Username             string
	Branch               string
	SigningKeyPath       string
	SigningKeyPassphrase string
	OrgName              string
}

// CommandsConfig holds the opaque shell commands run by the pipeline.
type CommandsConfig struct {
	Build       string
	Deploy      string
	PublishDocs string
	Timeout     time.Duration
}

// DocsConfig controls documentation tasks.
type DocsConfig struct {
	PublishEnabled bool
	UpdateEnabled  bool
	RepoURL        string
	Branch         string
	VersionFile    string
}

// SampleRepo is one downstream repository updated after a train release.
type SampleRepo struct {
	URL    string
	Branch string
}

// SamplesConfig controls the sample fan-out.
type SamplesConfig struct {
	Enabled     bool
	Repos       []SampleRepo
	Concurrency int
	Timeout     time.Duration
}

// MilestonesConfig controls milestone closing.
type MilestonesConfig struct {
	Enabled bool
	APIURL  string
}

// AnnouncementsConfig controls announcement rendering.
type AnnouncementsConfig struct {
	Enabled     bool
	OutputDir   string
	TemplateDir string
}

// IsReleaseTrainProject reports whether name is one of the configured
// release-train project names.
func (c *ReleaserConfig) IsReleaseTrainProject(name string) bool {
	if name == c.ReleaseTrain.ProjectName {
		return true
	}
	for _, n := range c.MetaRelease.ReleaseTrainDependencyNames {
		if n == name {
			return true
		}
	}
	return false
}

// ReleaseTrainNames returns every name that may identify the train entry.
func (c *ReleaserConfig) ReleaseTrainNames() []string {
	names := make([]string, 0, 1+len(c.MetaRelease.ReleaseTrainDependencyNames))
	if c.ReleaseTrain.ProjectName != "" {
		names = append(names, c.ReleaseTrain.ProjectName)
	}
	return append(names, c.MetaRelease.ReleaseTrainDependencyNames...)
}
