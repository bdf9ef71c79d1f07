// Package reveal opens finished recordings with the desktop's
// associated application.
package reveal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"recast/internal/logging"
)

const openTimeout = 10 * time.Second

// Opener launches a file in the desktop environment.
type Opener interface {
	Open(ctx context.Context, path string) error
}

type xdgOpener struct {
	logger *slog.Logger
	binary string
	runCmd func(ctx context.Context, binary, path string) error
}

// Option configures the opener.
type Option func(*xdgOpener)

// WithRunCommand injects the launch function (primarily for tests).
func WithRunCommand(fn func(ctx context.Context, binary, path string) error) Option {
	return func(o *xdgOpener) {
		if fn != nil {
			o.runCmd = fn
		}
	}
}

// New returns an Opener backed by xdg-open.
func New(logger *slog.Logger, opts ...Option) Opener {
	o := &xdgOpener{
		logger: logging.NewComponentLogger(logger, "reveal"),
		binary: "xdg-open",
		runCmd: runOpen,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *xdgOpener) Open(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("no file to open")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := o.runCmd(ctx, o.binary, path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	o.logger.Debug("opened recording", logging.Path(path))
	return nil
}

func runOpen(ctx context.Context, binary, path string) error {
	runCtx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	return exec.CommandContext(runCtx, binary, path).Run()
}
