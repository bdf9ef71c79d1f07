package history

import "time"

// Session outcomes.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Recording is one finished session.
type Recording struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	OutputPath   string
	Codec        string
	FPS          float64
	Frames       int64
	Dropped      int64
	AudioStreams int
	Status       string
	Cause        string
}

// Duration is the wall-clock session length.
func (r *Recording) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
