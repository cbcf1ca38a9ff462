package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestrators "github.com/ochairo/releaser/internal/domain-orchestrators"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/external-adapters/tracing"
)

type releaseFlags struct {
	dryRun      bool
	taskNames   []string
	startFrom   string
	taskRange   string
	metaRelease bool
	postRelease bool
	reportFile  string
	traceFile   string
}

func newReleaseCmd(v *viper.Viper) *cobra.Command {
	var flags releaseFlags
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Run the release pipeline",
		Long: `Run the release pipeline for the project in --project, or for every project
of the train with --meta-release.

Exit codes:
  0  SUCCESS
  1  FAILURE
  3  UNSTABLE (only post-release tasks failed)`,
		Example: `  releaser release --dry-run
  releaser release --task-names build,deploy
  releaser release --range update-manifests-commit
  releaser release --meta-release --report report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRelease(cmd, v, flags)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&flags.dryRun, "dry-run", false, "update manifests and build only")
	f.StringSliceVar(&flags.taskNames, "task-names", nil, "comma separated tasks to run")
	f.StringVar(&flags.startFrom, "start-from", "", "skip every task ordered before this one")
	f.StringVar(&flags.taskRange, "range", "", "run tasks from first to last inclusive, as first-last")
	f.BoolVar(&flags.metaRelease, "meta-release", false, "release every project of the train")
	f.BoolVar(&flags.postRelease, "post-release", false, "run only post-release tasks")
	f.StringVar(&flags.reportFile, "report", "", "write a JSON report to this file")
	f.StringVar(&flags.traceFile, "trace-file", "", "write OpenTelemetry spans for the run to this file")
	return cmd
}

func runRelease(cmd *cobra.Command, v *viper.Viper, flags releaseFlags) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger := newLogger(v, cmd.ErrOrStderr())
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if flags.traceFile != "" {
		tp, err := tracing.NewFileProvider(flags.traceFile, Version)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Failed to flush traces", interfaces.F("error", err))
			}
		}()
		a.orch.WithTracer(tp)
	}

	opts := orchestrators.RunOptions{
		DryRun:      flags.dryRun,
		TaskNames:   trimAll(flags.taskNames),
		StartFrom:   flags.startFrom,
		Range:       flags.taskRange,
		PostRelease: flags.postRelease,
		MetaRelease: flags.metaRelease || cfg.MetaRelease.Enabled,
	}
	report, err := a.orch.Run(cmd.Context(), v.GetString(keyProject), cfg, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSummary(out, report)
	status := report.Status()
	if err := writeStatusFile(cfg.StatusFile, status); err != nil {
		return err
	}
	if flags.reportFile != "" {
		if err := writeReport(flags.reportFile, report); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Report written to %s\n", flags.reportFile)
	}
	printBanner(out, status)

	if code := status.ExitCode(); code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
