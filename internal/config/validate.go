package config

import (
	"fmt"
	"strings"
)

var knownCodecs = map[string]struct{}{
	"XVID": {},
	"MJPG": {},
	"mp4v": {},
	"H264": {},
	"VP80": {},
	"VP90": {},
}

var knownContainers = map[string]struct{}{
	"mp4":  {},
	"avi":  {},
	"mkv":  {},
	"webm": {},
	"mov":  {},
}

var knownSampleRates = map[int]struct{}{
	22050: {},
	44100: {},
	48000: {},
	96000: {},
}

// ValidationError lists every configuration value that failed
// validation, one problem per entry.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks all configuration values against their allowed
// ranges. A non-nil return is always a *ValidationError.
func (c *Config) Validate() error {
	var problems []string

	if c.Video.FPS <= 0 || c.Video.FPS > 120 {
		problems = append(problems, fmt.Sprintf("video fps %.1f out of range (0, 120]", c.Video.FPS))
	}
	if c.Video.Quality < 1 || c.Video.Quality > 100 {
		problems = append(problems, fmt.Sprintf("video quality %d out of range [1, 100]", c.Video.Quality))
	}
	if c.Video.Monitor < 1 {
		problems = append(problems, fmt.Sprintf("monitor index %d must be >= 1", c.Video.Monitor))
	}
	if _, ok := knownCodecs[c.Video.Codec]; !ok {
		problems = append(problems, fmt.Sprintf("unknown video codec %q", c.Video.Codec))
	}
	if _, ok := knownContainers[c.Video.Container]; !ok {
		problems = append(problems, fmt.Sprintf("unknown container %q", c.Video.Container))
	}
	if _, ok := knownSampleRates[c.Audio.SampleRate]; !ok {
		problems = append(problems, fmt.Sprintf("sample rate %d must be one of 22050, 44100, 48000, 96000", c.Audio.SampleRate))
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		problems = append(problems, fmt.Sprintf("channels %d must be 1 or 2", c.Audio.Channels))
	}
	if c.Audio.DelayMS < -1000 || c.Audio.DelayMS > 1000 {
		problems = append(problems, fmt.Sprintf("audio delay %dms out of range [-1000, 1000]", c.Audio.DelayMS))
	}
	if c.Audio.Bitrate == "" {
		problems = append(problems, "audio bitrate is required")
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
