package audiorec

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"recast/internal/logging"
)

type fakeHandle struct {
	mu       sync.Mutex
	signals  []unix.Signal
	exitCh   chan error
	stderr   string
	exitOnce sync.Once

	// exitOnTerm makes the fake behave like a cooperative process.
	exitOnTerm bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{exitCh: make(chan error, 1), exitOnTerm: true}
}

func (h *fakeHandle) Signal(sig unix.Signal) error {
	h.mu.Lock()
	h.signals = append(h.signals, sig)
	h.mu.Unlock()
	if h.exitOnTerm && (sig == unix.SIGTERM || sig == unix.SIGKILL) {
		h.exit(nil)
	}
	return nil
}

func (h *fakeHandle) Wait() error {
	return <-h.exitCh
}

func (h *fakeHandle) Stderr() string { return h.stderr }

func (h *fakeHandle) exit(err error) {
	h.exitOnce.Do(func() { h.exitCh <- err })
}

func (h *fakeHandle) sentSignals() []unix.Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]unix.Signal(nil), h.signals...)
}

func newTestRecorder(h Handle, startErr error) (*Recorder, *[]string) {
	var argLog []string
	r := NewRecorder(logging.NewNop(), "ffmpeg", WithStartFunc(
		func(_ context.Context, args []string) (Handle, error) {
			argLog = append(argLog, strings.Join(args, " "))
			if startErr != nil {
				return nil, startErr
			}
			return h, nil
		}))
	return r, &argLog
}

func testOptions() Options {
	return Options{
		Source:     "recast_capture.monitor",
		SampleRate: 48000,
		Channels:   2,
		OutputPath: "/tmp/audio.wav",
	}
}

func TestStartBuildsPulseCommand(t *testing.T) {
	handle := newFakeHandle()
	r, argLog := newTestRecorder(handle, nil)

	if err := r.Start(context.Background(), testOptions()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop(context.Background())

	if len(*argLog) != 1 {
		t.Fatalf("launched %d processes, want 1", len(*argLog))
	}
	args := (*argLog)[0]
	for _, want := range []string{
		"-f pulse -i recast_capture.monitor",
		"-ac 2",
		"-ar 48000",
		"-c:a pcm_s16le",
		"/tmp/audio.wav",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("command missing %q: %s", want, args)
		}
	}
}

func TestStartFailsWhenProcessDiesImmediately(t *testing.T) {
	handle := newFakeHandle()
	handle.stderr = "Connection refused\npa_context_connect() failed"
	handle.exit(errors.New("exit status 1"))

	r, _ := newTestRecorder(handle, nil)
	err := r.Start(context.Background(), testOptions())

	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("error = %v, want ProcessError", err)
	}
	if !strings.Contains(procErr.Stderr, "pa_context_connect") {
		t.Fatalf("stderr not propagated: %q", procErr.Stderr)
	}
	if r.Running() {
		t.Fatal("recorder should not be running after failed start")
	}
}

func TestStartFailsWhenLaunchFails(t *testing.T) {
	r, _ := newTestRecorder(nil, errors.New("executable file not found"))
	err := r.Start(context.Background(), testOptions())
	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("error = %v, want ProcessError", err)
	}
}

func TestPauseResumeSignals(t *testing.T) {
	handle := newFakeHandle()
	r, _ := newTestRecorder(handle, nil)
	if err := r.Start(context.Background(), testOptions()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := r.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	// Pausing twice sends a single SIGSTOP.
	if err := r.Pause(); err != nil {
		t.Fatalf("second Pause: %v", err)
	}
	if err := r.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if _, err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got := handle.sentSignals()
	want := []unix.Signal{unix.SIGSTOP, unix.SIGCONT, unix.SIGTERM}
	if len(got) != len(want) {
		t.Fatalf("signals = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("signals = %v, want %v", got, want)
		}
	}
}

func TestStopResumesPausedProcessFirst(t *testing.T) {
	handle := newFakeHandle()
	r, _ := newTestRecorder(handle, nil)
	if err := r.Start(context.Background(), testOptions()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	output, err := r.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if output != "/tmp/audio.wav" {
		t.Fatalf("output = %q", output)
	}

	got := handle.sentSignals()
	want := []unix.Signal{unix.SIGSTOP, unix.SIGCONT, unix.SIGTERM}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("signals = %v, want %v", got, want)
		}
	}
}

func TestStopKillsUnresponsiveProcess(t *testing.T) {
	// Process ignores SIGTERM; the fake only exits on SIGKILL.
	handle := newFakeHandle()
	handle.exitOnTerm = false

	r, _ := newTestRecorder(handle, nil)
	if err := r.Start(context.Background(), testOptions()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Use a short deadline instead of waiting out the 5s stop timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := r.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()
	go func() {
		// SIGKILL cannot be ignored; simulate the eventual exit.
		for {
			for _, sig := range handle.sentSignals() {
				if sig == unix.SIGKILL {
					handle.exit(errors.New("signal: killed"))
					return
				}
			}
			time.Sleep(time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}

	sawKill := false
	for _, sig := range handle.sentSignals() {
		if sig == unix.SIGKILL {
			sawKill = true
		}
	}
	if !sawKill {
		t.Fatalf("expected SIGKILL, signals = %v", handle.sentSignals())
	}
}

func TestLifecycleGuards(t *testing.T) {
	r, _ := newTestRecorder(newFakeHandle(), nil)

	if err := r.Pause(); err == nil {
		t.Error("Pause before Start should fail")
	}
	if err := r.Resume(); err == nil {
		t.Error("Resume before Start should fail")
	}
	if _, err := r.Stop(context.Background()); err == nil {
		t.Error("Stop before Start should fail")
	}

	if err := r.Start(context.Background(), testOptions()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background(), testOptions()); err == nil {
		t.Error("double Start should fail")
	}
	if _, err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestTailLines(t *testing.T) {
	long := strings.Repeat("banner\n", 20) + "real error here"
	got := tailLines(long, 10)
	if !strings.HasSuffix(got, "real error here") {
		t.Fatalf("tail lost the error line: %q", got)
	}
	if n := strings.Count(got, "\n"); n != 9 {
		t.Fatalf("tail has %d newlines, want 9", n)
	}
}
