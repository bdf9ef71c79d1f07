package capture

import "fmt"

// CaptureError reports a failure inside the video capture pipeline.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("video capture: %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

func captureErr(op string, err error) error {
	return &CaptureError{Op: op, Err: err}
}

// ConfigError reports rejected recorder or encoder settings, before any
// process is started.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("video capture: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}
