package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type versionEntry struct {
	Project string `json:"project"`
	Version string `json:"version"`
	Source  string `json:"source"`
}

func newVersionsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Print the versions resolved from the release train BOM",
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

			versions, err := a.updater.ResolveVersions(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			entries := make([]versionEntry, 0, versions.Len())
			for _, e := range versions.Entries() {
				entries = append(entries, versionEntry{Project: e.Name, Version: e.Version, Source: e.Source})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "PROJECT\tVERSION\tSOURCE")
			for _, e := range entries {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Project, e.Version, e.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
