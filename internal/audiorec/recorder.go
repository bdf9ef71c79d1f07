package audiorec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"recast/internal/logging"
)

const (
	// startGrace is how long the process must stay alive after launch
	// before the recorder considers the start successful.
	startGrace = 500 * time.Millisecond

	// stopTimeout bounds the wait for a graceful exit before SIGKILL.
	stopTimeout = 5 * time.Second
)

// Handle is a started encoder process. The real implementation wraps
// exec.Cmd; tests substitute a scripted fake.
type Handle interface {
	Signal(sig unix.Signal) error
	Wait() error
	Stderr() string
}

// StartFunc launches the encoder binary with the given arguments.
type StartFunc func(ctx context.Context, args []string) (Handle, error)

// Options describes one audio recording.
type Options struct {
	Source     string
	SampleRate int
	Channels   int
	OutputPath string
}

// Recorder drives a single ffmpeg audio capture process.
type Recorder struct {
	logger *slog.Logger
	start  StartFunc

	mu     sync.Mutex
	handle Handle
	done   chan error
	paused bool
	output string
}

// Option configures the recorder.
type Option func(*Recorder)

// WithStartFunc injects a custom process launcher (primarily for tests).
func WithStartFunc(fn StartFunc) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.start = fn
		}
	}
}

// NewRecorder constructs a recorder that launches the given ffmpeg binary.
func NewRecorder(logger *slog.Logger, binary string, opts ...Option) *Recorder {
	r := &Recorder{
		logger: logging.NewComponentLogger(logger, "audiorec"),
		start:  ffmpegStarter(binary),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the encoder and verifies it survives the startup grace
// period. An encoder that exits during the grace period fails the start,
// with whatever it wrote to stderr attached to the error.
func (r *Recorder) Start(ctx context.Context, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		return processErr("start", "", errors.New("already recording"))
	}
	if opts.Source == "" || opts.OutputPath == "" {
		return processErr("start", "", errors.New("source and output path are required"))
	}

	args := []string{
		"-y",
		"-f", "pulse",
		"-i", opts.Source,
		"-ac", fmt.Sprintf("%d", opts.Channels),
		"-ar", fmt.Sprintf("%d", opts.SampleRate),
		"-c:a", "pcm_s16le",
		opts.OutputPath,
	}

	handle, err := r.start(ctx, args)
	if err != nil {
		return processErr("start", "", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- handle.Wait()
	}()

	select {
	case waitErr := <-done:
		if waitErr == nil {
			waitErr = errors.New("encoder exited immediately")
		}
		return processErr("start", handle.Stderr(), waitErr)
	case <-time.After(startGrace):
	}

	r.handle = handle
	r.done = done
	r.paused = false
	r.output = opts.OutputPath
	r.logger.Info("audio recording started",
		logging.String("source", opts.Source),
		logging.Path(opts.OutputPath))
	return nil
}

// Pause suspends the encoder with SIGSTOP. Pausing while already paused
// is a no-op.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return processErr("pause", "", errors.New("not recording"))
	}
	if r.paused {
		return nil
	}
	if err := r.handle.Signal(unix.SIGSTOP); err != nil {
		return processErr("pause", "", err)
	}
	r.paused = true
	r.logger.Debug("audio recording paused")
	return nil
}

// Resume continues a paused encoder with SIGCONT.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return processErr("resume", "", errors.New("not recording"))
	}
	if !r.paused {
		return nil
	}
	if err := r.handle.Signal(unix.SIGCONT); err != nil {
		return processErr("resume", "", err)
	}
	r.paused = false
	r.logger.Debug("audio recording resumed")
	return nil
}

// Stop shuts the encoder down: a paused process is resumed first so it
// can flush, then SIGTERM, then SIGKILL if it has not exited within the
// stop timeout. Returns the output path. The encoder's exit status after
// a deliberate termination signal is not treated as a failure.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return "", processErr("stop", "", errors.New("not recording"))
	}

	if r.paused {
		if err := r.handle.Signal(unix.SIGCONT); err != nil {
			r.logger.Warn("failed to resume before stop", logging.Error(err))
		}
		r.paused = false
	}

	if err := r.handle.Signal(unix.SIGTERM); err != nil {
		// Likely already exited; fall through to collect the wait result.
		r.logger.Debug("terminate signal failed", logging.Error(err))
	}

	select {
	case waitErr := <-r.done:
		r.logExit(waitErr)
	case <-time.After(stopTimeout):
		r.logger.Warn("encoder did not exit in time, killing")
		if err := r.handle.Signal(unix.SIGKILL); err != nil {
			r.logger.Warn("kill signal failed", logging.Error(err))
		}
		r.logExit(<-r.done)
	case <-ctx.Done():
		if err := r.handle.Signal(unix.SIGKILL); err != nil {
			r.logger.Warn("kill signal failed", logging.Error(err))
		}
		r.logExit(<-r.done)
	}

	output := r.output
	r.handle = nil
	r.done = nil
	r.output = ""
	r.logger.Info("audio recording stopped", logging.Path(output))
	return output, nil
}

// Running reports whether an encoder process is active.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle != nil
}

func (r *Recorder) logExit(err error) {
	if err != nil {
		r.logger.Debug("encoder exit", logging.Error(err))
	}
}

// ffmpegStarter launches ffmpeg with stderr captured for diagnostics.
func ffmpegStarter(binary string) StartFunc {
	return func(ctx context.Context, args []string) (Handle, error) {
		h := &cmdHandle{}
		// The command is detached from ctx deliberately: shutdown goes
		// through Stop's signal sequence, not context cancellation.
		h.cmd = exec.Command(binary, args...)
		h.cmd.Stderr = &h.stderr
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.cmd.Start(); err != nil {
			return nil, err
		}
		return h, nil
	}
}

type cmdHandle struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer
}

func (h *cmdHandle) Signal(sig unix.Signal) error {
	return h.cmd.Process.Signal(sig)
}

func (h *cmdHandle) Wait() error {
	return h.cmd.Wait()
}

// Stderr is only read after Wait has returned.
func (h *cmdHandle) Stderr() string {
	return tailLines(h.stderr.String(), 10)
}

// tailLines keeps the last n lines of process output; ffmpeg banners are
// long and the failure reason is at the end.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
