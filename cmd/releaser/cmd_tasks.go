package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/releaser/internal/domain-orchestrators"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the release pipeline tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch := orchestrators.NewReleaseOrchestrator(orchestrators.DefaultTasks(orchestrators.TaskDeps{}), nil, nil, nil, nil)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ORDER\tNAME\tPHASES\tDESCRIPTION")
			for _, t := range orch.Tasks() {
				phases := make([]string, len(t.Phases))
				for i, p := range t.Phases {
					phases[i] = string(p)
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.Order, t.ShortName, strings.Join(phases, ","), t.Description)
			}
			return tw.Flush()
		},
	}
}
