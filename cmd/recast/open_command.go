package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"recast/internal/config"
	"recast/internal/history"
	"recast/internal/reveal"
)

func newOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open [file]",
		Short: "Open a recording, the most recent one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var target string
			if len(args) == 1 {
				if target, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			} else {
				if target, err = latestRecording(cmd, cfg); err != nil {
					return err
				}
			}

			opener := reveal.New(ctx.ensureLogger())
			if err := opener.Open(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", target)
			return nil
		},
	}
}

func latestRecording(cmd *cobra.Command, cfg *config.Config) (string, error) {
	store, err := history.Open(cfg)
	if err != nil {
		return "", err
	}
	defer store.Close()

	recordings, err := store.List(cmd.Context(), 0)
	if err != nil {
		return "", err
	}
	for _, rec := range recordings {
		if rec.Status == history.StatusCompleted {
			return rec.OutputPath, nil
		}
	}
	return "", errors.New("no completed recordings in history")
}
