package mux

import (
	"testing"
	"time"
)

func TestParseOutTime(t *testing.T) {
	cases := []struct {
		line string
		want time.Duration
		ok   bool
	}{
		// out_time_ms carries microseconds despite its name.
		{"out_time_ms=5000000", 5 * time.Second, true},
		{"out_time_ms=1500000", 1500 * time.Millisecond, true},
		{"out_time_ms=0", 0, true},
		{"  out_time_ms=250000  ", 250 * time.Millisecond, true},
		{"out_time=00:00:05.000000", 0, false},
		{"frame=120", 0, false},
		{"progress=continue", 0, false},
		{"out_time_ms=N/A", 0, false},
		{"out_time_ms=-1", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseOutTime(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseOutTime(%q) = (%v, %v), want (%v, %v)", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestProgressTrackerReportsWholePoints(t *testing.T) {
	tracker := newProgressTracker(100 * time.Second)

	percent, text, report := tracker.update(5 * time.Second)
	if !report || percent != 5 {
		t.Fatalf("first update = (%d, %v), want (5, true)", percent, report)
	}
	if text == "" {
		t.Fatal("expected a status line")
	}

	// Sub-point advance is suppressed.
	if _, _, report := tracker.update(5*time.Second + 500*time.Millisecond); report {
		t.Fatal("sub-point advance should not report")
	}
	// Same position again is suppressed.
	if _, _, report := tracker.update(5 * time.Second); report {
		t.Fatal("repeated position should not report")
	}

	percent, _, report = tracker.update(7 * time.Second)
	if !report || percent != 7 {
		t.Fatalf("advance = (%d, %v), want (7, true)", percent, report)
	}
}

func TestProgressTrackerClampsAt100(t *testing.T) {
	tracker := newProgressTracker(10 * time.Second)
	percent, _, report := tracker.update(15 * time.Second)
	if !report || percent != 100 {
		t.Fatalf("overshoot = (%d, %v), want (100, true)", percent, report)
	}
}

func TestProgressTrackerDisabledWithoutTotal(t *testing.T) {
	tracker := newProgressTracker(0)
	if _, _, report := tracker.update(5 * time.Second); report {
		t.Fatal("tracker without total must not report")
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "0:42"},
		{5*time.Minute + 3*time.Second, "5:03"},
		{time.Hour + 2*time.Minute + 5*time.Second, "1:02:05"},
	}
	for _, tc := range cases {
		if got := formatClock(tc.d); got != tc.want {
			t.Errorf("formatClock(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestParseProbeDuration(t *testing.T) {
	out := `{"format": {"filename": "video.avi", "duration": "12.480000", "size": "1048576"}}`
	d, err := parseProbeDuration(out)
	if err != nil {
		t.Fatalf("parseProbeDuration: %v", err)
	}
	if d != 12480*time.Millisecond {
		t.Fatalf("duration = %v", d)
	}
}

func TestParseProbeDurationErrors(t *testing.T) {
	for _, out := range []string{
		"",
		"{}",
		`{"format": {}}`,
		`{"format": {"duration": "N/A"}}`,
		`{"format": {"duration": "-1"}}`,
	} {
		if _, err := parseProbeDuration(out); err == nil {
			t.Errorf("parseProbeDuration(%q) should fail", out)
		}
	}
}
