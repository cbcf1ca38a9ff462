package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/external-adapters/logging"
	"github.com/ochairo/releaser/internal/external-adapters/yaml"
)

// Setting keys shared by flags and RELEASER_* environment variables.
const (
	keyConfig            = "config"
	keyProject           = "project"
	keyVerbose           = "verbose"
	keyJSONLogs          = "json-logs"
	keyBomBranch         = "bom-branch"
	keyGitBranch         = "git-branch"
	keyGitToken          = "git-token"
	keySigningPassphrase = "signing-passphrase"
)

const defaultConfigFile = "releaser.yml"

func newRootCmd() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:           "releaser",
		Short:         "Release-train version resolution and release pipeline",
		Long:          "releaser resolves every project version of a release train from its BOM, rewrites project manifests to match, and drives projects through the release pipeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", defaultConfigFile, "path to the releaser configuration file")
	flags.StringP(keyProject, "p", ".", "root directory of the project to release")
	flags.BoolP(keyVerbose, "v", false, "enable debug logging")
	flags.Bool(keyJSONLogs, false, "emit logs as JSON")
	flags.String(keyBomBranch, "", "override the release train BOM branch")
	flags.String(keyGitBranch, "", "override the branch checked out for train projects")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newReleaseCmd(v),
		newUpdateManifestsCmd(v),
		newVersionsCmd(v),
		newTasksCmd(),
	)
	return root
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RELEASER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(keyGitToken, "RELEASER_GIT_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv(keySigningPassphrase, "RELEASER_SIGNING_PASSPHRASE")
	return v
}

// loadConfig reads the YAML file and applies flag and environment overrides.
func loadConfig(v *viper.Viper) (*entities.ReleaserConfig, error) {
	cfg, err := yaml.NewConfigParser().ParseFile(v.GetString(keyConfig))
	if err != nil {
		return nil, err
	}
	applyOverrides(v, cfg)
	yaml.ApplyDefaults(cfg)
	if err := yaml.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(v *viper.Viper, cfg *entities.ReleaserConfig) {
	if s := v.GetString(keyBomBranch); s != "" {
		cfg.ReleaseTrain.Branch = s
	}
	if s := v.GetString(keyGitBranch); s != "" {
		cfg.Git.Branch = s
	}
	if s := v.GetString(keyGitToken); s != "" {
		cfg.Git.OAuthToken = s
	}
	if s := v.GetString(keySigningPassphrase); s != "" {
		cfg.Git.SigningKeyPassphrase = s
	}
}

func newLogger(v *viper.Viper, w io.Writer) interfaces.Logger {
	return logging.NewSlogLogger(w, logging.Options{
		Verbose: v.GetBool(keyVerbose),
		JSON:    v.GetBool(keyJSONLogs),
	})
}
