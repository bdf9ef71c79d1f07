package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recast/internal/display"
)

func newMonitorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "monitors",
		Short: "List attached monitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			monitors, err := display.Detect()
			if err != nil {
				return fmt.Errorf("detect monitors: %w", err)
			}

			rows := make([][]string, 0, len(monitors))
			for _, m := range monitors {
				marker := ""
				if m.Index == cfg.Video.Monitor {
					marker = "default"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", m.Index),
					fmt.Sprintf("%dx%d", m.Width, m.Height),
					fmt.Sprintf("%d,%d", m.X, m.Y),
					marker,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Monitor", "Resolution", "Position", ""},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
