package main

import (
	"context"
	"testing"
	"time"

	"recast/internal/config"
	"recast/internal/history"
)

func TestHistoryCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No recordings yet.")
}

func TestHistoryCommandListsAndClears(t *testing.T) {
	env := setupCLITestEnv(t)

	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	rec := &history.Recording{
		ID:         "11111111-2222-3333-4444-555555555555",
		StartedAt:  time.Now().Add(-time.Minute),
		EndedAt:    time.Now(),
		OutputPath: "/tmp/recording.mp4",
		Codec:      "XVID",
		FPS:        20,
		Frames:     1200,
		Status:     history.StatusCompleted,
	}
	if err := store.Add(context.Background(), rec); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	store.Close()

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "/tmp/recording.mp4")
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "History cleared.")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history after clear: %v", err)
	}
	requireContains(t, out, "No recordings yet.")
}

func TestDepsCommand(t *testing.T) {
	setupCLITestEnv(t)
	stubBinaries(t, "ffmpeg", "ffprobe", "pactl", "xdg-open")

	out, _, err := runCLI(t, []string{"deps"}, "")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "ok")
}

func TestDepsCommandReportsMissing(t *testing.T) {
	setupCLITestEnv(t)
	stubBinaries(t) // empty PATH

	_, _, err := runCLI(t, []string{"deps"}, "")
	if err == nil {
		t.Fatal("expected failure with no tools installed")
	}
	requireContains(t, err.Error(), "missing required tools")
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"A", "B"},
		[][]string{{"1", "x"}, {"2"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	requireContains(t, out, "A")
	requireContains(t, out, "x")
}
