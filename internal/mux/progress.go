package mux

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProgressFunc receives merge progress as a 0-100 percentage and a
// preformatted status line.
type ProgressFunc func(percent int, text string)

// parseOutTime extracts the processed-media position from one line of
// ffmpeg's -progress stream. The out_time_ms key is, despite its name,
// in microseconds.
func parseOutTime(line string) (time.Duration, bool) {
	value, ok := strings.CutPrefix(strings.TrimSpace(line), "out_time_ms=")
	if !ok {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	return time.Duration(micros) * time.Microsecond, true
}

// progressTracker converts media positions into whole-point percentage
// reports against a known total duration. A zero total disables
// percentage reporting.
type progressTracker struct {
	total       time.Duration
	lastPercent int
}

func newProgressTracker(total time.Duration) *progressTracker {
	return &progressTracker{total: total, lastPercent: -1}
}

// update reports the new percentage when it has advanced by at least
// one whole point since the last report.
func (t *progressTracker) update(position time.Duration) (int, string, bool) {
	if t.total <= 0 {
		return 0, "", false
	}
	percent := int(position * 100 / t.total)
	if percent > 100 {
		percent = 100
	}
	if percent <= t.lastPercent {
		return 0, "", false
	}
	t.lastPercent = percent
	text := fmt.Sprintf("merging %d%% (%s of %s)",
		percent, formatClock(position), formatClock(t.total))
	return percent, text, true
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
