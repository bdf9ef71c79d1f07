package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"recast/internal/fileutil"
	"recast/internal/history"
	"recast/internal/session"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var (
		fps      float64
		monitor  int
		codec    string
		quality  int
		output   string
		duration time.Duration
		apps     []string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the screen with system audio",
		Long: `Record the selected monitor together with the audio of matching
applications. Stop with Ctrl-C (or after --duration); send SIGUSR1 to
pause and resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			sess, err := session.New(cfg, logger, session.Deps{History: store})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			settings := session.Settings{
				Monitor:    monitor,
				FPS:        fps,
				Codec:      codec,
				Quality:    quality,
				OutputName: output,
				AppFilters: apps,
				OnProgress: progressPrinter(out),
			}

			if err := sess.Start(cmd.Context(), settings); err != nil {
				return err
			}
			fmt.Fprintln(out, "Recording. Ctrl-C stops; SIGUSR1 pauses and resumes.")

			waitForStop(out, sess, duration)

			result, err := sess.Stop(context.Background())
			if err != nil {
				return err
			}
			printSummary(out, result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&fps, "fps", 0, "Capture frame rate (default from config)")
	cmd.Flags().IntVar(&monitor, "monitor", 0, "Monitor index to record (default from config)")
	cmd.Flags().StringVar(&codec, "codec", "", "Video codec: XVID, MJPG, mp4v, H264, VP80, VP90")
	cmd.Flags().IntVar(&quality, "quality", 0, "Video quality 1-100 (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file base name")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop automatically after this long")
	cmd.Flags().StringArrayVar(&apps, "app", nil, "Application name filter for audio capture (repeatable)")
	return cmd
}

// waitForStop blocks until an interrupt arrives or the optional duration
// elapses, handling pause toggles along the way.
func waitForStop(out io.Writer, sess *session.Session, duration time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, unix.SIGTERM, unix.SIGUSR1)
	defer signal.Stop(sigCh)

	var timerCh <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timerCh = timer.C
	}

	for {
		select {
		case sig := <-sigCh:
			if sig == unix.SIGUSR1 {
				state, err := sess.TogglePause()
				if err != nil {
					fmt.Fprintf(out, "pause toggle failed: %v\n", err)
					continue
				}
				fmt.Fprintf(out, "Recording %s\n", state)
				continue
			}
			fmt.Fprintln(out, "\nStopping...")
			return
		case <-timerCh:
			fmt.Fprintln(out, "Duration reached, stopping...")
			return
		}
	}
}

// progressPrinter rewrites a single status line on a terminal and emits
// one line per report otherwise.
func progressPrinter(out io.Writer) func(int, string) {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}
	return func(percent int, text string) {
		if interactive {
			fmt.Fprintf(out, "\r%-60s", text)
			if percent >= 100 {
				fmt.Fprintln(out)
			}
			return
		}
		fmt.Fprintln(out, text)
	}
}

func printSummary(out io.Writer, result *session.Result) {
	fmt.Fprintf(out, "Saved %s\n", result.OutputPath)
	fmt.Fprintf(out, "  duration: %s\n", result.Stats.Duration.Round(time.Second))
	fmt.Fprintf(out, "  frames:   %d (%d dropped)\n", result.Stats.Frames, result.Stats.Dropped)
	fmt.Fprintf(out, "  audio:    %d stream(s) captured\n", result.AudioStreams)
	if size := fileutil.FileSize(result.OutputPath); size > 0 {
		fmt.Fprintf(out, "  size:     %s\n", fileutil.FormatSize(size))
	}
}
