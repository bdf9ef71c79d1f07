package session

import (
	"fmt"

	"recast/internal/logging"
)

// State is the lifecycle phase of a recording session.
type State string

const (
	StateIdle       State = "idle"
	StateSettingUp  State = "setting-up"
	StateRecording  State = "recording"
	StatePaused     State = "paused"
	StateStopping   State = "stopping"
	StateMerging    State = "merging"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

var validTransitions = map[State][]State{
	StateIdle:      {StateSettingUp},
	StateSettingUp: {StateRecording, StateFailed},
	StateRecording: {StatePaused, StateStopping, StateFailed},
	StatePaused:    {StateRecording, StateStopping, StateFailed},
	StateStopping:  {StateMerging, StateFailed},
	StateMerging:   {StateCompleted, StateFailed},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Session) transitionLocked(to State) error {
	if !canTransition(s.state, to) {
		return fmt.Errorf("invalid state transition %s -> %s", s.state, to)
	}
	s.logger.Debug("state change", logging.String(logging.FieldState, string(to)))
	s.state = to
	return nil
}

// Terminal reports whether the state is an end state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Active reports whether a recording is in flight.
func (s State) Active() bool {
	return s == StateRecording || s == StatePaused
}
