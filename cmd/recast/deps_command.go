package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recast/internal/deps"
)

func newDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "deps",
		Short:       "Check required external tools",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := deps.CheckBinaries(deps.DefaultRequirements())

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				available := "missing"
				if status.Available {
					available = "ok"
				}
				required := "required"
				if status.Optional {
					required = "optional"
				}
				rows = append(rows, []string{
					status.Name,
					status.Command,
					required,
					available,
					status.Detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "Command", "", "Status", "Detail"},
				rows,
				nil,
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
