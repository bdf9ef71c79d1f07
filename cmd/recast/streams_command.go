package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recast/internal/pulse"
)

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "streams",
		Short: "List applications currently playing audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			manager := pulse.NewManager(ctx.ensureLogger())
			inputs, err := manager.ListSinkInputs(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(inputs) == 0 {
				fmt.Fprintln(out, "No application audio streams are active.")
				return nil
			}

			rows := make([][]string, 0, len(inputs))
			for _, input := range inputs {
				captured := ""
				if pulse.Matches(input.App, cfg.Audio.AppFilters) {
					captured = "yes"
				}
				rows = append(rows, []string{input.ID, input.App, captured})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stream", "Application", "Captured"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
