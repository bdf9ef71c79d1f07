package pulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"recast/internal/logging"
)

// DefaultSinkName is the virtual sink applications are routed into.
const DefaultSinkName = "recast_capture"

const loopbackLatencyMS = 50

// Manager owns the virtual sink, the loopback path, and the set of
// redirected application streams. All mutation goes through one Manager;
// Setup and Cleanup are matched by construction.
type Manager struct {
	logger   *slog.Logger
	run      Runner
	sinkName string

	mu             sync.Mutex
	active         bool
	nullSinkModule string
	loopbackModule string
	defaultSink    string
	moved          []SinkInput
}

// Option configures the manager.
type Option func(*Manager)

// WithRunner injects a custom pactl runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.run = r
		}
	}
}

// WithSinkName overrides the virtual sink name.
func WithSinkName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.sinkName = name
		}
	}
}

// NewManager constructs an audio routing manager.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		logger:   logging.NewComponentLogger(logger, "pulse"),
		run:      pactlRunner{binary: "pactl"},
		sinkName: DefaultSinkName,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MonitorSource returns the pulse source the audio recorder reads from.
func (m *Manager) MonitorSource() string {
	return m.sinkName + ".monitor"
}

// Setup builds the capture route: virtual sink, loopback to real hardware,
// and redirection of every stream matching the app filters. On any failure
// the partially-created route is torn down before returning, so a failed
// Setup never leaks modules. Returns the number of streams redirected.
func (m *Manager) Setup(ctx context.Context, appFilters []string, sampleRate, channels int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return 0, routingErr("setup", errors.New("already set up"))
	}

	if _, err := m.run.Run(ctx, "info"); err != nil {
		return 0, routingErr("daemon check", err)
	}

	defaultSink, err := m.run.Run(ctx, "get-default-sink")
	if err != nil {
		return 0, routingErr("query default sink", err)
	}
	m.defaultSink = defaultSink

	moduleID, err := m.run.Run(ctx, "load-module", "module-null-sink",
		"sink_name="+m.sinkName,
		fmt.Sprintf("rate=%d", sampleRate),
		fmt.Sprintf("channels=%d", channels),
		"sink_properties=device.description=RecastCapture",
	)
	if err != nil {
		return 0, routingErr("create virtual sink", err)
	}
	m.nullSinkModule = strings.TrimSpace(moduleID)
	m.logger.Debug("virtual sink created", logging.String("module", m.nullSinkModule))

	realSink, err := m.realSink(ctx)
	if err != nil {
		m.cleanupLocked(ctx)
		return 0, err
	}

	loopbackID, err := m.run.Run(ctx, "load-module", "module-loopback",
		"source="+m.MonitorSource(),
		"sink="+realSink,
		fmt.Sprintf("latency_msec=%d", loopbackLatencyMS),
	)
	if err != nil {
		m.cleanupLocked(ctx)
		return 0, routingErr("create loopback", err)
	}
	m.loopbackModule = strings.TrimSpace(loopbackID)
	m.logger.Debug("loopback created",
		logging.String("module", m.loopbackModule),
		logging.String("sink", realSink))

	moved := m.moveMatching(ctx, appFilters)
	if moved == 0 {
		m.logger.Warn("no matching application streams found to capture")
	}

	m.active = true
	m.logger.Info("audio route ready",
		logging.Int("streams_moved", moved),
		logging.String("sink", m.sinkName))
	return moved, nil
}

// realSink finds a hardware sink to loop captured audio back to. The
// previously-recorded default is preferred when it is not our own sink.
func (m *Manager) realSink(ctx context.Context) (string, error) {
	if m.defaultSink != "" && !strings.Contains(m.defaultSink, m.sinkName) {
		return m.defaultSink, nil
	}
	output, err := m.run.Run(ctx, "list", "short", "sinks")
	if err != nil {
		return "", routingErr("list sinks", err)
	}
	sink, ok := realSinkFromList(output, m.sinkName)
	if !ok {
		return "", routingErr("find real sink", errors.New("no non-virtual audio sink found"))
	}
	return sink, nil
}

func (m *Manager) moveMatching(ctx context.Context, appFilters []string) int {
	inputs, err := m.listSinkInputsLocked(ctx)
	if err != nil {
		m.logger.Warn("failed to list sink inputs", logging.Error(err))
		return 0
	}

	moved := 0
	for _, input := range inputs {
		if !matchesAny(input.App, appFilters) {
			continue
		}
		if _, err := m.run.Run(ctx, "move-sink-input", input.ID, m.sinkName); err != nil {
			// A single failed move is logged and counted, not fatal.
			m.logger.Warn("failed to move stream",
				logging.String("app", input.App),
				logging.Error(err))
			continue
		}
		m.logger.Info("stream redirected", logging.String("app", input.App))
		m.moved = append(m.moved, input)
		moved++
	}
	return moved
}

// Cleanup unloads the loopback path and the virtual sink. It never returns
// an error: cleanup runs on teardown paths where raising would mask the
// original failure. A module that is already gone counts as success; failure
// to unload one module does not prevent releasing the other.
func (m *Manager) Cleanup(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupLocked(ctx)
}

func (m *Manager) cleanupLocked(ctx context.Context) bool {
	ok := true

	if m.loopbackModule != "" {
		if _, err := m.run.Run(ctx, "unload-module", m.loopbackModule); err != nil {
			m.logger.Warn("failed to unload loopback module", logging.Error(err))
			ok = false
		}
		m.loopbackModule = ""
	}

	if m.nullSinkModule != "" {
		if _, err := m.run.Run(ctx, "unload-module", m.nullSinkModule); err != nil {
			m.logger.Warn("failed to unload virtual sink module", logging.Error(err))
			ok = false
		}
		m.nullSinkModule = ""
	}

	m.defaultSink = ""
	m.moved = nil
	m.active = false

	if ok {
		m.logger.Debug("audio route released")
	}
	return ok
}

// ListSinkInputs enumerates the currently active application streams.
func (m *Manager) ListSinkInputs(ctx context.Context) ([]SinkInput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listSinkInputsLocked(ctx)
}

func (m *Manager) listSinkInputsLocked(ctx context.Context) ([]SinkInput, error) {
	output, err := m.run.Run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, routingErr("list sink inputs", err)
	}
	return parseSinkInputs(output), nil
}

// ActiveApplications returns the names of applications currently playing
// audio, for the stream listing surface.
func (m *Manager) ActiveApplications(ctx context.Context) ([]string, error) {
	inputs, err := m.ListSinkInputs(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(inputs))
	for _, input := range inputs {
		names = append(names, input.App)
	}
	return names, nil
}
