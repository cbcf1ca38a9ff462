// Package yaml parses the releaser configuration file.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/releaser/internal/domain/entities"
)

// yamlConfig represents the raw YAML structure
type yamlConfig struct {
	ReleaseTrain  yamlReleaseTrain  `yaml:"releaseTrain"`
	FixedVersions yaml.Node         `yaml:"fixedVersions"`
	Bom           yamlBom           `yaml:"bom"`
	Manifests     yamlManifests     `yaml:"manifests"`
	Gradle        yamlGradle        `yaml:"gradle"`
	Ecosystems    yamlEcosystems    `yaml:"ecosystems"`
	MetaRelease   yamlMetaRelease   `yaml:"metaRelease"`
	Git           yamlGit           `yaml:"git"`
	Commands      yamlCommands      `yaml:"commands"`
	Docs          yamlDocs          `yaml:"docs"`
	Samples       yamlSamples       `yaml:"samples"`
	Milestones    yamlMilestones    `yaml:"milestones"`
	Announcements yamlAnnouncements `yaml:"announcements"`
	StatusFile    string            `yaml:"statusFile"`
}

type yamlReleaseTrain struct {
	URL         string `yaml:"url"`
	Branch      string `yaml:"branch"`
	ProjectName string `yaml:"projectName"`
}

type yamlBom struct {
	ManifestPath        string `yaml:"manifestPath"`
	TrainVersionFromBom bool   `yaml:"trainVersionFromBom"`
}

type yamlManifests struct {
	IgnoreRegexes []string `yaml:"ignoreRegexes"`
}

type yamlGradle struct {
	PropertySubstitutions map[string]string `yaml:"propertySubstitutions"`
}

type yamlEcosystems struct {
	Build struct {
		ProjectName string `yaml:"projectName"`
	} `yaml:"build"`
	Stream struct {
		ProjectName  string `yaml:"projectName"`
		ManifestPath string `yaml:"manifestPath"`
	} `yaml:"stream"`
}

type yamlMetaRelease struct {
	Enabled                     bool     `yaml:"enabled"`
	GitOrgURL                   string   `yaml:"gitOrgUrl"`
	ProjectsToSkip              []string `yaml:"projectsToSkip"`
	ReleaseTrainDependencyNames []string `yaml:"releaseTrainDependencyNames"`
	FailFast                    *bool    `yaml:"failFast"`
}

type yamlGit struct {
	OAuthToken           string `yaml:"oauthToken"`
	Username             string `yaml:"username"`
	Branch               string `yaml:"branch"`
	SigningKeyPath       string `yaml:"signingKeyPath"`
	SigningKeyPassphrase string `yaml:"signingKeyPassphrase"`
	OrgName              string `yaml:"orgName"`
}

type yamlCommands struct {
	Build          string `yaml:"build"`
	Deploy         string `yaml:"deploy"`
	PublishDocs    string `yaml:"publishDocs"`
	TimeoutMinutes int    `yaml:"timeoutMinutes"`
}

type yamlDocs struct {
	PublishEnabled bool   `yaml:"publishEnabled"`
	UpdateEnabled  bool   `yaml:"updateEnabled"`
	RepoURL        string `yaml:"repoUrl"`
	Branch         string `yaml:"branch"`
	VersionFile    string `yaml:"versionFile"`
}

type yamlSampleRepo struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch"`
}

type yamlSamples struct {
	Enabled        bool             `yaml:"enabled"`
	Repos          []yamlSampleRepo `yaml:"repos"`
	Concurrency    int              `yaml:"concurrency"`
	TimeoutMinutes int              `yaml:"timeoutMinutes"`
}

type yamlMilestones struct {
	Enabled bool   `yaml:"enabled"`
	APIURL  string `yaml:"apiUrl"`
}

type yamlAnnouncements struct {
	Enabled     bool   `yaml:"enabled"`
	OutputDir   string `yaml:"outputDir"`
	TemplateDir string `yaml:"templateDir"`
}

// ConfigParser parses YAML configuration files
type ConfigParser struct{}

// NewConfigParser creates a new YAML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile parses a YAML configuration file into a ReleaserConfig entity
func (p *ConfigParser) ParseFile(filePath string) (*entities.ReleaserConfig, error) {
	//nolint:gosec // G304: filePath is the user-supplied config path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, entities.NewConfigurationError("failed to read "+filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a ReleaserConfig entity. Unknown keys are
// rejected.
func (p *ConfigParser) Parse(data []byte) (*entities.ReleaserConfig, error) {
	var raw yamlConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, entities.NewConfigurationError("configuration is empty", nil)
		}
		return nil, entities.NewConfigurationError("failed to parse YAML", err)
	}

	fixed, order, err := convertFixedVersions(&raw.FixedVersions)
	if err != nil {
		return nil, err
	}

	// Convert to domain entity
	cfg := &entities.ReleaserConfig{
		ReleaseTrain: entities.ReleaseTrainConfig{
			URL:         raw.ReleaseTrain.URL,
			Branch:      raw.ReleaseTrain.Branch,
			ProjectName: raw.ReleaseTrain.ProjectName,
		},
		FixedVersions:     fixed,
		FixedVersionOrder: order,
		Bom: entities.BomConfig{
			ManifestPath:        raw.Bom.ManifestPath,
			TrainVersionFromBom: raw.Bom.TrainVersionFromBom,
		},
		Manifests: entities.ManifestsConfig{IgnoreRegexes: raw.Manifests.IgnoreRegexes},
		Gradle:    entities.GradleConfig{PropertySubstitutions: raw.Gradle.PropertySubstitutions},
		Ecosystems: entities.EcosystemsConfig{
			Build: entities.BuildEcosystemConfig{ProjectName: raw.Ecosystems.Build.ProjectName},
			Stream: entities.StreamEcosystemConfig{
				ProjectName:  raw.Ecosystems.Stream.ProjectName,
				ManifestPath: raw.Ecosystems.Stream.ManifestPath,
			},
		},
		MetaRelease: convertMetaRelease(raw.MetaRelease),
		Git: entities.GitConfig{
			OAuthToken:           raw.Git.OAuthToken,
			Username:             raw.Git.Username,
			Branch:               raw.Git.Branch,
			SigningKeyPath:       raw.Git.SigningKeyPath,
			SigningKeyPassphrase: raw.Git.SigningKeyPassphrase,
			OrgName:              raw.Git.OrgName,
		},
		Commands: entities.CommandsConfig{
			Build:       raw.Commands.Build,
			Deploy:      raw.Commands.Deploy,
			PublishDocs: raw.Commands.PublishDocs,
			Timeout:     minutes(raw.Commands.TimeoutMinutes),
		},
		Docs: entities.DocsConfig{
			PublishEnabled: raw.Docs.PublishEnabled,
			UpdateEnabled:  raw.Docs.UpdateEnabled,
			RepoURL:        raw.Docs.RepoURL,
			Branch:         raw.Docs.Branch,
			VersionFile:    raw.Docs.VersionFile,
		},
		Samples: convertSamples(raw.Samples),
		Milestones: entities.MilestonesConfig{
			Enabled: raw.Milestones.Enabled,
			APIURL:  raw.Milestones.APIURL,
		},
		Announcements: entities.AnnouncementsConfig{
			Enabled:     raw.Announcements.Enabled,
			OutputDir:   raw.Announcements.OutputDir,
			TemplateDir: raw.Announcements.TemplateDir,
		},
		StatusFile: raw.StatusFile,
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// convertFixedVersions reads the override mapping while keeping key order.
func convertFixedVersions(node *yaml.Node) (map[string]string, []string, error) {
	fixed := make(map[string]string)
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return fixed, nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, nil, entities.NewConfigurationError(
			fmt.Sprintf("fixedVersions must be a mapping (line %d)", node.Line), nil)
	}
	order := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, nil, entities.NewConfigurationError(
				fmt.Sprintf("fixedVersions.%s must be a string (line %d)", key.Value, value.Line), nil)
		}
		if _, dup := fixed[key.Value]; !dup {
			order = append(order, key.Value)
		}
		fixed[key.Value] = value.Value
	}
	return fixed, order, nil
}

func convertMetaRelease(ym yamlMetaRelease) entities.MetaReleaseConfig {
	failFast := true
	if ym.FailFast != nil {
		failFast = *ym.FailFast
	}
	return entities.MetaReleaseConfig{
		Enabled:                     ym.Enabled,
		GitOrgURL:                   ym.GitOrgURL,
		ProjectsToSkip:              ym.ProjectsToSkip,
		ReleaseTrainDependencyNames: ym.ReleaseTrainDependencyNames,
		FailFast:                    failFast,
	}
}

func convertSamples(ys yamlSamples) entities.SamplesConfig {
	repos := make([]entities.SampleRepo, 0, len(ys.Repos))
	for _, r := range ys.Repos {
		repos = append(repos, entities.SampleRepo{URL: r.URL, Branch: r.Branch})
	}
	return entities.SamplesConfig{
		Enabled:     ys.Enabled,
		Repos:       repos,
		Concurrency: ys.Concurrency,
		Timeout:     minutes(ys.TimeoutMinutes),
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// ApplyDefaults fills unset values. It is safe to call more than once.
func ApplyDefaults(cfg *entities.ReleaserConfig) {
	if cfg.FixedVersions == nil {
		cfg.FixedVersions = make(map[string]string)
	}
	if cfg.ReleaseTrain.Branch == "" {
		cfg.ReleaseTrain.Branch = entities.DefaultBranch
	}
	if cfg.Bom.ManifestPath == "" {
		cfg.Bom.ManifestPath = entities.DefaultBomManifestPath
	}
	if cfg.Ecosystems.Stream.ManifestPath == "" && cfg.Ecosystems.Stream.ProjectName != "" {
		cfg.Ecosystems.Stream.ManifestPath = entities.DefaultGradlePropertiesFile
	}
	if cfg.Commands.Timeout <= 0 {
		cfg.Commands.Timeout = entities.DefaultCommandTimeout
	}
	if cfg.Docs.VersionFile == "" {
		cfg.Docs.VersionFile = entities.DefaultDocsVersionFile
	}
	if cfg.Samples.Concurrency <= 0 {
		cfg.Samples.Concurrency = entities.DefaultSampleConcurrency
	}
	if cfg.Samples.Timeout <= 0 {
		cfg.Samples.Timeout = entities.DefaultSampleTimeout
	}
	if cfg.Milestones.APIURL == "" {
		cfg.Milestones.APIURL = entities.DefaultMilestonesAPIURL
	}
	if cfg.Announcements.OutputDir == "" {
		cfg.Announcements.OutputDir = entities.DefaultAnnouncementsOutput
	}
	if cfg.StatusFile == "" {
		cfg.StatusFile = entities.DefaultStatusFile
	}
}

// Validate checks required fields and compiles the ignore patterns.
func Validate(cfg *entities.ReleaserConfig) error {
	if cfg.ReleaseTrain.URL == "" {
		return entities.NewConfigurationError("releaseTrain.url is required", nil)
	}
	if cfg.MetaRelease.Enabled && cfg.MetaRelease.GitOrgURL == "" {
		return entities.NewConfigurationError("metaRelease.gitOrgUrl is required when metaRelease is enabled", nil)
	}
	if cfg.Docs.UpdateEnabled && cfg.Docs.RepoURL == "" {
		return entities.NewConfigurationError("docs.repoUrl is required when docs.updateEnabled is set", nil)
	}
	if cfg.Samples.Enabled {
		for i, r := range cfg.Samples.Repos {
			if r.URL == "" {
				return entities.NewConfigurationError(fmt.Sprintf("samples.repos[%d].url is required", i), nil)
			}
		}
	}
	if cfg.Announcements.Enabled && cfg.Announcements.TemplateDir == "" {
		return entities.NewConfigurationError("announcements.templateDir is required when announcements are enabled", nil)
	}
	if err := expandPaths(cfg); err != nil {
		return err
	}

	compiled := make([]*regexp.Regexp, 0, len(cfg.Manifests.IgnoreRegexes))
	for _, pattern := range cfg.Manifests.IgnoreRegexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return entities.NewConfigurationError("invalid ignore regex "+pattern, err)
		}
		compiled = append(compiled, re)
	}
	cfg.Manifests.SetCompiled(compiled)
	return nil
}

// expandPaths resolves a leading ~ in every configured local path.
func expandPaths(cfg *entities.ReleaserConfig) error {
	for _, p := range []*string{
		&cfg.Git.SigningKeyPath,
		&cfg.Announcements.TemplateDir,
		&cfg.Announcements.OutputDir,
		&cfg.StatusFile,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return entities.NewConfigurationError("cannot expand path "+*p, err)
		}
		*p = expanded
	}
	return nil
}
