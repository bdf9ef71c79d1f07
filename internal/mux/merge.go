package mux

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"recast/internal/logging"
)

const (
	// defaultStallTimeout kills a merge that emits no progress output
	// for this long.
	defaultStallTimeout = 60 * time.Second

	defaultAudioBitrate = "128k"
	defaultVideoCodec   = "copy"
	defaultAudioCodec   = "aac"
)

// Job describes one merge: captured video plus captured audio into the
// final container. DelayMS shifts audio relative to video; positive
// values delay the audio, negative values pad the start of the video.
// Empty codecs default to stream-copying the video and encoding the
// audio as AAC.
type Job struct {
	VideoPath    string
	AudioPath    string
	OutputPath   string
	DelayMS      int
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
}

// Process is a running ffmpeg merge. The real implementation wraps
// exec.Cmd; tests substitute a scripted fake.
type Process interface {
	Progress() io.Reader
	Wait() error
	Kill() error
	Stderr() string
}

// LaunchFunc starts the merge binary with the given arguments.
type LaunchFunc func(ctx context.Context, args []string) (Process, error)

// Merger runs audio/video merges.
type Merger struct {
	logger       *slog.Logger
	launch       LaunchFunc
	probe        Runner
	stallTimeout time.Duration
}

// Option configures the merger.
type Option func(*Merger)

// WithLauncher injects a custom process launcher (primarily for tests).
func WithLauncher(fn LaunchFunc) Option {
	return func(m *Merger) {
		if fn != nil {
			m.launch = fn
		}
	}
}

// WithProbeRunner injects a custom ffprobe runner (primarily for tests).
func WithProbeRunner(r Runner) Option {
	return func(m *Merger) {
		if r != nil {
			m.probe = r
		}
	}
}

// WithStallTimeout overrides the progress watchdog interval.
func WithStallTimeout(d time.Duration) Option {
	return func(m *Merger) {
		if d > 0 {
			m.stallTimeout = d
		}
	}
}

// NewMerger constructs a merger using the given ffmpeg and ffprobe
// binaries.
func NewMerger(logger *slog.Logger, ffmpegBinary, ffprobeBinary string, opts ...Option) *Merger {
	m := &Merger{
		logger:       logging.NewComponentLogger(logger, "mux"),
		launch:       ffmpegLauncher(ffmpegBinary),
		probe:        ffprobeRunner{binary: ffprobeBinary},
		stallTimeout: defaultStallTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge combines the job's video and audio into the output container.
// onProgress may be nil. The merge succeeds only when ffmpeg exits
// cleanly and the output file exists afterwards.
func (m *Merger) Merge(ctx context.Context, job Job, onProgress ProgressFunc) error {
	if err := validateJob(job); err != nil {
		return err
	}

	total, err := probeDuration(ctx, m.probe, job.VideoPath)
	if err != nil {
		// Progress percentages need the duration; the merge does not.
		m.logger.Warn("could not probe video duration, progress disabled", logging.Error(err))
		total = 0
	}

	args := buildMergeArgs(job)
	m.logger.Debug("starting merge", logging.String("args", strings.Join(args, " ")))

	proc, err := m.launch(ctx, args)
	if err != nil {
		return mergeErr("start ffmpeg", err)
	}

	stalled := m.watchProgress(ctx, proc, total, onProgress)
	waitErr := proc.Wait()

	if stalled {
		return mergeErr("progress", errors.New("no progress for "+m.stallTimeout.String()))
	}
	if ctx.Err() != nil {
		return mergeErr("run", ctx.Err())
	}
	if waitErr != nil {
		if stderr := strings.TrimSpace(proc.Stderr()); stderr != "" {
			return mergeErr("run", fmt.Errorf("%w: %s", waitErr, stderr))
		}
		return mergeErr("run", waitErr)
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		return mergeErr("verify output", err)
	}

	m.logger.Info("merge complete", logging.Path(job.OutputPath))
	return nil
}

// watchProgress reads the -progress stream, reporting whole-point
// percentage advances and killing the process if the stream goes silent
// past the stall timeout. Returns whether the process was killed for
// stalling.
func (m *Merger) watchProgress(ctx context.Context, proc Process, total time.Duration, onProgress ProgressFunc) bool {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(proc.Progress())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	tracker := newProgressTracker(total)
	watchdog := time.NewTimer(m.stallTimeout)
	defer watchdog.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return false
			}
			// Any progress output proves liveness, not just position keys.
			if !watchdog.Stop() {
				<-watchdog.C
			}
			watchdog.Reset(m.stallTimeout)

			position, ok := parseOutTime(line)
			if !ok {
				continue
			}
			if percent, text, report := tracker.update(position); report && onProgress != nil {
				onProgress(percent, text)
			}
		case <-watchdog.C:
			m.logger.Error("merge stalled, killing ffmpeg")
			if err := proc.Kill(); err != nil {
				m.logger.Warn("failed to kill stalled merge", logging.Error(err))
			}
			for range lines {
			}
			return true
		case <-ctx.Done():
			if err := proc.Kill(); err != nil {
				m.logger.Warn("failed to kill merge", logging.Error(err))
			}
			for range lines {
			}
			return false
		}
	}
}

func validateJob(job Job) error {
	if _, err := os.Stat(job.VideoPath); err != nil {
		return mergeErr("validate", fmt.Errorf("video input: %w", err))
	}
	if _, err := os.Stat(job.AudioPath); err != nil {
		return mergeErr("validate", fmt.Errorf("audio input: %w", err))
	}
	if job.OutputPath == "" {
		return mergeErr("validate", errors.New("output path is required"))
	}
	return nil
}

// buildMergeArgs assembles the ffmpeg invocation. A positive delay goes
// through adelay on the audio with the video stream passed through; a
// negative delay pads the start of the video, which rules out stream
// copy and forces a real encoder.
func buildMergeArgs(job Job) []string {
	videoCodec := job.VideoCodec
	if videoCodec == "" {
		videoCodec = defaultVideoCodec
	}
	audioCodec := job.AudioCodec
	if audioCodec == "" {
		audioCodec = defaultAudioCodec
	}
	bitrate := job.AudioBitrate
	if bitrate == "" {
		bitrate = defaultAudioBitrate
	}

	args := []string{
		"-y",
		"-i", job.VideoPath,
		"-i", job.AudioPath,
	}
	switch {
	case job.DelayMS > 0:
		args = append(args,
			"-c:v", videoCodec,
			"-af", fmt.Sprintf("adelay=%d|%d", job.DelayMS, job.DelayMS),
		)
	case job.DelayMS < 0:
		args = append(args,
			"-vf", fmt.Sprintf("tpad=start_duration=%.3f", float64(-job.DelayMS)/1000),
		)
		if videoCodec == defaultVideoCodec {
			args = append(args, "-c:v", "libx264", "-preset", "veryfast")
		} else {
			args = append(args, "-c:v", videoCodec)
		}
	default:
		args = append(args, "-c:v", videoCodec)
	}
	args = append(args,
		"-c:a", audioCodec,
		"-b:a", bitrate,
		"-shortest",
		"-progress", "pipe:1",
		"-nostats",
		job.OutputPath,
	)
	return args
}

// ffmpegLauncher starts ffmpeg with the progress stream on stdout and
// stderr captured for diagnostics.
func ffmpegLauncher(binary string) LaunchFunc {
	return func(ctx context.Context, args []string) (Process, error) {
		p := &cmdProcess{}
		p.cmd = exec.Command(binary, args...)
		p.cmd.Stderr = &p.stderr
		stdout, err := p.cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		p.stdout = stdout
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.cmd.Start(); err != nil {
			return nil, err
		}
		return p, nil
	}
}

type cmdProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr bytes.Buffer
}

func (p *cmdProcess) Progress() io.Reader { return p.stdout }

func (p *cmdProcess) Wait() error { return p.cmd.Wait() }

func (p *cmdProcess) Kill() error { return p.cmd.Process.Kill() }

// Stderr is only read after Wait has returned.
func (p *cmdProcess) Stderr() string {
	lines := strings.Split(strings.TrimSpace(p.stderr.String()), "\n")
	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}
	return strings.Join(lines, "\n")
}
