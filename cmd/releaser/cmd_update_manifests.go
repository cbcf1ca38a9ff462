package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestrators "github.com/ochairo/releaser/internal/domain-orchestrators"
)

func newUpdateManifestsCmd(v *viper.Viper) *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "update-manifests",
		Short: "Rewrite project manifests to the versions in the BOM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, newLogger(v, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.updater.UpdateProject(cmd.Context(), v.GetString(keyProject), cfg, orchestrators.UpdateOptions{
				DryRun: dryRun,
				Force:  force,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Skipped {
				_, _ = fmt.Fprintf(out, "%s is already at its target version\n", report.Identity)
				return nil
			}
			if dryRun {
				paths := make([]string, 0, len(report.Diffs))
				for path := range report.Diffs {
					paths = append(paths, path)
				}
				sort.Strings(paths)
				for _, path := range paths {
					_, _ = fmt.Fprint(out, report.Diffs[path])
				}
			}
			_, _ = fmt.Fprintf(out, "%d of %d manifests %s\n", len(report.Updated), report.Scanned, verb(dryRun))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print diffs instead of writing")
	cmd.Flags().BoolVar(&force, "force", false, "update even when the project is not in the BOM")
	return cmd
}

func verb(dryRun bool) string {
	if dryRun {
		return "would change"
	}
	return "updated"
}
