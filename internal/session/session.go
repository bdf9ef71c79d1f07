package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"recast/internal/audiorec"
	"recast/internal/capture"
	"recast/internal/config"
	"recast/internal/display"
	"recast/internal/fileutil"
	"recast/internal/history"
	"recast/internal/logging"
	"recast/internal/mux"
	"recast/internal/pulse"
)

// AudioRouter manages the PulseAudio capture route.
type AudioRouter interface {
	Setup(ctx context.Context, appFilters []string, sampleRate, channels int) (int, error)
	Cleanup(ctx context.Context) bool
	MonitorSource() string
}

// AudioRecorder manages the external audio encoder process.
type AudioRecorder interface {
	Start(ctx context.Context, opts audiorec.Options) error
	Pause() error
	Resume() error
	Stop(ctx context.Context) (string, error)
	Running() bool
}

// Merger combines the captured tracks into the final container.
type Merger interface {
	Merge(ctx context.Context, job mux.Job, onProgress mux.ProgressFunc) error
}

// HistoryWriter records finished sessions.
type HistoryWriter interface {
	Add(ctx context.Context, rec *history.Recording) error
}

// FrameSource produces frames for one monitor.
type FrameSource interface {
	capture.Grabber
	Size() (int, int)
}

// Screens is an open connection to the display server.
type Screens interface {
	Grabber(index int) (FrameSource, error)
	Close()
}

// WriterFactory builds the video frame writer for one recording.
type WriterFactory func(s capture.WriterSettings) (capture.FrameWriter, error)

// Deps are the session's collaborators. Zero fields are replaced with
// the real implementations at construction.
type Deps struct {
	Router      AudioRouter
	Audio       AudioRecorder
	Merger      Merger
	History     HistoryWriter
	OpenDisplay func() (Screens, error)
	NewWriter   WriterFactory
	LockPath    string
}

// Settings are per-run overrides on top of the loaded configuration.
// Zero values keep the configured defaults.
type Settings struct {
	Monitor    int
	FPS        float64
	Codec      string
	Quality    int
	OutputName string
	AppFilters []string
	OnProgress mux.ProgressFunc
}

// Result summarizes a finished session.
type Result struct {
	ID           string
	OutputPath   string
	Stats        capture.Stats
	AudioStreams int
	StartedAt    time.Time
	EndedAt      time.Time
}

// Session drives one recording through its lifecycle.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps

	mu         sync.Mutex
	state      State
	id         string
	startedAt  time.Time
	effective  config.Config
	outputName string
	onProgress mux.ProgressFunc

	screens      Screens
	video        *capture.Recorder
	lock         *flock.Flock
	videoPath    string
	audioPath    string
	outputPath   string
	audioStreams int
}

// New constructs a session. Collaborators left nil in deps are wired to
// their real implementations.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Router == nil {
		deps.Router = pulse.NewManager(logger)
	}
	if deps.Audio == nil {
		deps.Audio = audiorec.NewRecorder(logger, cfg.FFmpegBinary())
	}
	if deps.Merger == nil {
		deps.Merger = mux.NewMerger(logger, cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if deps.OpenDisplay == nil {
		deps.OpenDisplay = openRealDisplay
	}
	if deps.NewWriter == nil {
		binary := cfg.FFmpegBinary()
		deps.NewWriter = func(s capture.WriterSettings) (capture.FrameWriter, error) {
			return capture.NewFFmpegWriter(logger, binary, s)
		}
	}
	if deps.LockPath == "" {
		deps.LockPath = filepath.Join(cfg.Paths.LogDir, "recast.lock")
	}
	return &Session{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "session"),
		deps:   deps,
		state:  StateIdle,
	}, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the session identifier, empty before Start.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Start validates the effective settings, acquires the single-session
// lock, builds the audio route, and launches both captures. On any
// failure everything already created is torn down before returning.
func (s *Session) Start(ctx context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transitionLocked(StateSettingUp); err != nil {
		return err
	}

	// All validation happens before any resource is created.
	effective := applySettings(*s.cfg, settings)
	if err := effective.Validate(); err != nil {
		s.state = StateFailed
		return err
	}
	s.effective = effective
	s.outputName = settings.OutputName
	if s.outputName == "" {
		s.outputName = "recording"
	}
	s.onProgress = settings.OnProgress

	if err := effective.EnsureDirectories(); err != nil {
		s.state = StateFailed
		return err
	}

	lock := flock.New(s.deps.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		s.state = StateFailed
		return errors.New("another recording session is active")
	}
	s.lock = lock

	s.id = uuid.NewString()
	s.startedAt = time.Now()
	s.logger = s.logger.With(logging.String(logging.FieldSessionID, s.id))

	if err := s.setupLocked(ctx); err != nil {
		s.teardownLocked(ctx)
		s.state = StateFailed
		return err
	}

	if err := s.transitionLocked(StateRecording); err != nil {
		s.teardownLocked(ctx)
		s.state = StateFailed
		return err
	}
	s.logger.Info("recording started",
		logging.Int("monitor", effective.Video.Monitor),
		logging.Float64("fps", effective.Video.FPS),
		logging.String("codec", effective.Video.Codec))
	return nil
}

func (s *Session) setupLocked(ctx context.Context) error {
	screens, err := s.deps.OpenDisplay()
	if err != nil {
		return err
	}
	s.screens = screens

	grabber, err := screens.Grabber(s.effective.Video.Monitor)
	if err != nil {
		return err
	}
	width, height := grabber.Size()

	moved, err := s.deps.Router.Setup(ctx,
		s.effective.Audio.AppFilters,
		s.effective.Audio.SampleRate,
		s.effective.Audio.Channels)
	if err != nil {
		return err
	}
	s.audioStreams = moved

	s.videoPath = filepath.Join(s.cfg.Paths.StagingDir,
		"video_"+s.id+"."+stagingVideoExt(s.effective.Video.Codec))
	s.audioPath = filepath.Join(s.cfg.Paths.StagingDir, "audio_"+s.id+".wav")
	outputPath, err := fileutil.NextAvailablePath(
		s.cfg.Paths.OutputDir, s.outputName, "."+s.effective.Video.Container)
	if err != nil {
		return err
	}
	s.outputPath = outputPath

	if err := s.deps.Audio.Start(ctx, audiorec.Options{
		Source:     s.deps.Router.MonitorSource(),
		SampleRate: s.effective.Audio.SampleRate,
		Channels:   s.effective.Audio.Channels,
		OutputPath: s.audioPath,
	}); err != nil {
		return err
	}

	writer, err := s.deps.NewWriter(capture.WriterSettings{
		Width:      width,
		Height:     height,
		FPS:        s.effective.Video.FPS,
		Codec:      s.effective.Video.Codec,
		Quality:    s.effective.Video.Quality,
		OutputPath: s.videoPath,
	})
	if err != nil {
		return err
	}

	video, err := capture.NewRecorder(s.logger, capture.Options{
		FPS:     s.effective.Video.FPS,
		Grabber: grabber,
		Writer:  writer,
	})
	if err != nil {
		// The writer process is already running; close it so the
		// staging file is not left open.
		_ = writer.Close()
		return err
	}
	if err := video.Start(); err != nil {
		_ = writer.Close()
		return err
	}
	s.video = video
	return nil
}

// teardownLocked releases everything Start may have created, in reverse
// order. Safe to call with any subset present.
func (s *Session) teardownLocked(ctx context.Context) {
	if s.video != nil {
		if _, err := s.video.Stop(ctx); err != nil {
			s.logger.Warn("capture teardown", logging.Error(err))
		}
		s.video = nil
	}
	if s.deps.Audio.Running() {
		if _, err := s.deps.Audio.Stop(ctx); err != nil {
			s.logger.Warn("audio teardown", logging.Error(err))
		}
	}
	s.deps.Router.Cleanup(ctx)
	if s.screens != nil {
		s.screens.Close()
		s.screens = nil
	}
	s.releaseLockLocked()
}

func (s *Session) releaseLockLocked() {
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release session lock", logging.Error(err))
		}
		s.lock = nil
	}
}

// Pause suspends both captures.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transitionLocked(StatePaused); err != nil {
		return err
	}
	s.video.Pause()
	if err := s.deps.Audio.Pause(); err != nil {
		s.logger.Warn("audio pause", logging.Error(err))
	}
	s.logger.Info("recording paused")
	return nil
}

// Resume continues a paused session.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return fmt.Errorf("cannot resume from state %s", s.state)
	}
	if err := s.transitionLocked(StateRecording); err != nil {
		return err
	}
	s.video.Resume()
	if err := s.deps.Audio.Resume(); err != nil {
		s.logger.Warn("audio resume", logging.Error(err))
	}
	s.logger.Info("recording resumed")
	return nil
}

// TogglePause flips between recording and paused, returning the new state.
func (s *Session) TogglePause() (State, error) {
	if s.State() == StatePaused {
		return StateRecording, s.Resume()
	}
	return StatePaused, s.Pause()
}

// Stop ends both captures, always rolls the audio route back, merges the
// tracks, and records the outcome. The returned Result is valid even
// when an error is returned.
func (s *Session) Stop(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if err := s.transitionLocked(StateStopping); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	defer s.releaseLock()

	stats, capErr := s.video.Stop(ctx)
	s.video = nil

	audioPath, audioErr := s.deps.Audio.Stop(ctx)
	if audioErr == nil {
		s.audioPath = audioPath
	}

	// Routing rollback happens no matter how capture ended.
	s.deps.Router.Cleanup(ctx)
	if s.screens != nil {
		s.screens.Close()
		s.screens = nil
	}

	result := &Result{
		ID:           s.id,
		OutputPath:   s.outputPath,
		Stats:        stats,
		AudioStreams: s.audioStreams,
		StartedAt:    s.startedAt,
		EndedAt:      time.Now(),
	}

	if err := errors.Join(capErr, audioErr); err != nil {
		s.state = StateFailed
		s.mu.Unlock()
		s.record(ctx, result, err)
		return result, err
	}

	if err := s.transitionLocked(StateMerging); err != nil {
		s.mu.Unlock()
		return result, err
	}
	job := mux.Job{
		VideoPath:    s.videoPath,
		AudioPath:    s.audioPath,
		OutputPath:   s.outputPath,
		DelayMS:      s.effective.Audio.DelayMS,
		AudioBitrate: s.effective.Audio.Bitrate,
	}
	onProgress := s.onProgress
	s.mu.Unlock()

	s.logger.Info("merging tracks", logging.Path(job.OutputPath))
	mergeErr := s.deps.Merger.Merge(ctx, job, onProgress)
	result.EndedAt = time.Now()

	s.mu.Lock()
	if mergeErr != nil {
		s.state = StateFailed
		s.mu.Unlock()
		s.record(ctx, result, mergeErr)
		return result, mergeErr
	}
	if err := s.transitionLocked(StateCompleted); err != nil {
		s.mu.Unlock()
		return result, err
	}
	s.mu.Unlock()

	// Staging files are only removed after a verified merge.
	if err := fileutil.SafeRemove(job.VideoPath); err != nil {
		s.logger.Warn("staging cleanup", logging.Error(err))
	}
	if err := fileutil.SafeRemove(job.AudioPath); err != nil {
		s.logger.Warn("staging cleanup", logging.Error(err))
	}

	s.record(ctx, result, nil)
	s.logger.Info("recording complete",
		logging.Path(result.OutputPath),
		logging.Int64("frames", result.Stats.Frames),
		logging.Int64("dropped", result.Stats.Dropped))
	return result, nil
}

func (s *Session) releaseLock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLockLocked()
}

// record persists the session outcome; history failures are logged, not
// propagated.
func (s *Session) record(ctx context.Context, result *Result, cause error) {
	if s.deps.History == nil {
		return
	}
	rec := &history.Recording{
		ID:           result.ID,
		StartedAt:    result.StartedAt,
		EndedAt:      result.EndedAt,
		OutputPath:   result.OutputPath,
		Codec:        s.effective.Video.Codec,
		FPS:          s.effective.Video.FPS,
		Frames:       result.Stats.Frames,
		Dropped:      result.Stats.Dropped,
		AudioStreams: result.AudioStreams,
		Status:       history.StatusCompleted,
	}
	if cause != nil {
		rec.Status = history.StatusFailed
		rec.Cause = cause.Error()
	}
	if err := s.deps.History.Add(ctx, rec); err != nil {
		s.logger.Warn("failed to record history", logging.Error(err))
	}
}

// applySettings overlays per-run overrides on the loaded configuration.
func applySettings(cfg config.Config, settings Settings) config.Config {
	if settings.Monitor > 0 {
		cfg.Video.Monitor = settings.Monitor
	}
	if settings.FPS > 0 {
		cfg.Video.FPS = settings.FPS
	}
	if settings.Codec != "" {
		cfg.Video.Codec = settings.Codec
	}
	if settings.Quality > 0 {
		cfg.Video.Quality = settings.Quality
	}
	if len(settings.AppFilters) > 0 {
		cfg.Audio.AppFilters = settings.AppFilters
	}
	return cfg
}

// stagingVideoExt picks the intermediate container for the captured
// video. The MPEG-4 part 2 family goes into AVI; everything else into
// Matroska, which holds any codec.
func stagingVideoExt(codec string) string {
	switch codec {
	case capture.CodecXVID, capture.CodecMJPG, capture.CodecMP4V:
		return "avi"
	default:
		return "mkv"
	}
}

func openRealDisplay() (Screens, error) {
	d, err := display.Open()
	if err != nil {
		return nil, err
	}
	return realScreens{d: d}, nil
}

type realScreens struct {
	d *display.Display
}

func (r realScreens) Grabber(index int) (FrameSource, error) {
	return r.d.Grabber(index)
}

func (r realScreens) Close() {
	r.d.Close()
}
