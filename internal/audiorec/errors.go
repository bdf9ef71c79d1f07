package audiorec

import (
	"fmt"
	"strings"
)

// ProcessError reports a failure of the external audio encoder process.
type ProcessError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("audio recorder: %s: %v", e.Op, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

func processErr(op string, stderr string, err error) error {
	return &ProcessError{Op: op, Stderr: stderr, Err: err}
}
