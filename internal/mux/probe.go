package mux

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner abstracts ffprobe execution for testability.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

const probeTimeout = 15 * time.Second

type ffprobeRunner struct {
	binary string
}

func (r ffprobeRunner) Run(ctx context.Context, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := exec.CommandContext(runCtx, r.binary, args...).Output()
	if err != nil {
		return "", fmt.Errorf("ffprobe %s: %w", strings.Join(args, " "), err)
	}
	return string(output), nil
}

// probeDuration asks ffprobe for a media file's duration.
func probeDuration(ctx context.Context, run Runner, path string) (time.Duration, error) {
	output, err := run.Run(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, err
	}
	return parseProbeDuration(output)
}

func parseProbeDuration(output string) (time.Duration, error) {
	var doc struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if doc.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output has no duration")
	}
	seconds, err := strconv.ParseFloat(doc.Format.Duration, 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("invalid duration %q", doc.Format.Duration)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
