package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recast/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("exists = true for a missing file")
	}
	if cfg.Video.FPS != 20 {
		t.Fatalf("default fps = %v, want 20", cfg.Video.FPS)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("default sample rate = %d, want 48000", cfg.Audio.SampleRate)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[video]
fps = 30.0
codec = " MJPG "
container = "AVI"

[audio]
app_filters = ["  Firefox  ", "", "zoom"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected resolved existing config path")
	}
	if cfg.Video.FPS != 30 {
		t.Fatalf("fps = %v, want 30", cfg.Video.FPS)
	}
	if cfg.Video.Codec != "MJPG" {
		t.Fatalf("codec = %q, want MJPG", cfg.Video.Codec)
	}
	if cfg.Video.Container != "avi" {
		t.Fatalf("container = %q, want avi", cfg.Video.Container)
	}
	if len(cfg.Audio.AppFilters) != 2 || cfg.Audio.AppFilters[0] != "Firefox" {
		t.Fatalf("app filters = %v", cfg.Audio.AppFilters)
	}
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"fps too high", func(c *config.Config) { c.Video.FPS = 240 }, "fps"},
		{"fps zero", func(c *config.Config) { c.Video.FPS = 0 }, "fps"},
		{"quality", func(c *config.Config) { c.Video.Quality = 0 }, "quality"},
		{"monitor", func(c *config.Config) { c.Video.Monitor = 0 }, "monitor"},
		{"codec", func(c *config.Config) { c.Video.Codec = "DIVX" }, "codec"},
		{"sample rate", func(c *config.Config) { c.Audio.SampleRate = 11025 }, "sample rate"},
		{"channels", func(c *config.Config) { c.Audio.Channels = 6 }, "channels"},
		{"delay", func(c *config.Config) { c.Audio.DelayMS = 2000 }, "delay"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateReturnsTypedError(t *testing.T) {
	cfg := config.Default()
	cfg.Video.FPS = 0
	cfg.Audio.Channels = 6

	err := cfg.Validate()
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %T, want *config.ValidationError", err)
	}
	if len(verr.Problems) != 2 {
		t.Fatalf("problems = %v, want one per bad value", verr.Problems)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample not found after writing")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := config.ExpandPath("~/recordings")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "recordings") {
		t.Fatalf("ExpandPath = %q", got)
	}
}
