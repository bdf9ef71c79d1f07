package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"recast/internal/logging"
)

const (
	// maxFPS is the upper bound on the requested capture rate.
	maxFPS = 120

	// pauseQuantum is how often a paused loop re-checks its state.
	pauseQuantum = 100 * time.Millisecond

	// dropSlack is how far past the frame interval one iteration may
	// run before the frame counts as dropped.
	dropSlack = 100 * time.Millisecond

	// maxConsecutiveFailures aborts the recording when the grabber
	// fails this many times in a row.
	maxConsecutiveFailures = 10

	// loopStopTimeout bounds how long Stop waits for the loop to wind
	// down before forcing writer finalization.
	loopStopTimeout = 2 * time.Second
)

// Grabber produces one raw BGR24 frame per call.
type Grabber interface {
	Grab() ([]byte, error)
}

// Options configures a recording loop.
type Options struct {
	FPS     float64
	Grabber Grabber
	Writer  FrameWriter
}

// Stats summarizes a recording.
type Stats struct {
	Frames   int64
	Dropped  int64
	Duration time.Duration
}

// Recorder paces frame grabs and feeds them to the writer.
type Recorder struct {
	logger   *slog.Logger
	fps      float64
	interval time.Duration
	grabber  Grabber
	writer   FrameWriter

	recording atomic.Bool
	paused    atomic.Bool
	frames    atomic.Int64
	dropped   atomic.Int64

	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once

	mu        sync.Mutex
	startedAt time.Time
	stoppedAt time.Time
	loopErr   error
}

// NewRecorder validates the options and prepares a recording loop.
// Nothing is captured until Start.
func NewRecorder(logger *slog.Logger, opts Options) (*Recorder, error) {
	if opts.FPS <= 0 || opts.FPS > maxFPS {
		return nil, configErr("configure", fmt.Errorf("frame rate %g out of range (0,%d]", opts.FPS, maxFPS))
	}
	if opts.Grabber == nil {
		return nil, configErr("configure", errors.New("grabber is required"))
	}
	if opts.Writer == nil {
		return nil, configErr("configure", errors.New("frame writer is required"))
	}
	return &Recorder{
		logger:   logging.NewComponentLogger(logger, "capture"),
		fps:      opts.FPS,
		interval: time.Duration(float64(time.Second) / opts.FPS),
		grabber:  opts.Grabber,
		writer:   opts.Writer,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the capture loop.
func (r *Recorder) Start() error {
	if !r.recording.CompareAndSwap(false, true) {
		return captureErr("start", errors.New("already recording"))
	}
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()

	go r.loop()
	r.logger.Info("screen capture started", logging.Float64("fps", r.fps))
	return nil
}

// Pause suspends frame grabbing. The loop keeps running and polls for
// resume at the pause quantum.
func (r *Recorder) Pause() {
	if r.paused.CompareAndSwap(false, true) {
		r.logger.Debug("screen capture paused")
	}
}

// Resume continues a paused capture.
func (r *Recorder) Resume() {
	if r.paused.CompareAndSwap(true, false) {
		r.logger.Debug("screen capture resumed")
	}
}

// Paused reports whether capture is currently suspended.
func (r *Recorder) Paused() bool {
	return r.paused.Load()
}

// Recording reports whether the loop is active.
func (r *Recorder) Recording() bool {
	return r.recording.Load()
}

// Stats returns the current counters. Valid during and after recording.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	start, stop := r.startedAt, r.stoppedAt
	r.mu.Unlock()

	var dur time.Duration
	switch {
	case start.IsZero():
	case stop.IsZero():
		dur = time.Since(start)
	default:
		dur = stop.Sub(start)
	}
	return Stats{
		Frames:   r.frames.Load(),
		Dropped:  r.dropped.Load(),
		Duration: dur,
	}
}

// Stop ends the recording and finalizes the writer. If the loop does
// not wind down within its stop timeout the writer is finalized anyway
// so the container is never left open. Returns the final stats together
// with any error the loop recorded.
func (r *Recorder) Stop(ctx context.Context) (Stats, error) {
	r.stopOnce.Do(func() { close(r.stopCh) })

	timer := time.NewTimer(loopStopTimeout)
	defer timer.Stop()
	select {
	case <-r.doneCh:
	case <-timer.C:
		r.logger.Warn("capture loop did not stop in time, forcing finalization")
		r.finalize()
	case <-ctx.Done():
		r.finalize()
	}

	r.mu.Lock()
	if r.stoppedAt.IsZero() {
		r.stoppedAt = time.Now()
	}
	err := r.loopErr
	r.mu.Unlock()

	stats := r.Stats()
	r.logger.Info("screen capture stopped",
		logging.Int64("frames", stats.Frames),
		logging.Int64("dropped", stats.Dropped),
		logging.Duration("duration", stats.Duration))
	return stats, err
}

// Err returns the error that ended the loop, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loopErr
}

func (r *Recorder) loop() {
	defer func() {
		r.finalize()
		r.recording.Store(false)
		r.mu.Lock()
		if r.stoppedAt.IsZero() {
			r.stoppedAt = time.Now()
		}
		r.mu.Unlock()
		close(r.doneCh)
	}()

	consecutive := 0
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		if r.paused.Load() {
			r.sleep(pauseQuantum)
			continue
		}

		iterStart := time.Now()
		frame, err := r.grabber.Grab()
		if err != nil {
			consecutive++
			r.logger.Warn("frame grab failed",
				logging.Int("consecutive", consecutive),
				logging.Error(err))
			if consecutive >= maxConsecutiveFailures {
				r.setErr(captureErr("grab", fmt.Errorf("%d consecutive failures: %w", consecutive, err)))
				return
			}
			r.sleep(r.interval)
			continue
		}
		consecutive = 0

		if err := r.writer.WriteFrame(frame); err != nil {
			r.setErr(err)
			return
		}
		r.frames.Add(1)

		elapsed := time.Since(iterStart)
		if elapsed > r.interval+dropSlack {
			r.dropped.Add(1)
		}
		if remaining := r.interval - elapsed; remaining > 0 {
			r.sleep(remaining)
		}
	}
}

// sleep waits for d or until stop is requested, whichever is first.
func (r *Recorder) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.stopCh:
	}
}

func (r *Recorder) finalize() {
	r.closeOnce.Do(func() {
		if err := r.writer.Close(); err != nil {
			r.logger.Warn("failed to finalize video", logging.Error(err))
			r.setErr(err)
		}
	})
}

func (r *Recorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loopErr == nil {
		r.loopErr = err
	}
}
