package mux

import "fmt"

// MergeError reports a failed audio/video merge.
type MergeError struct {
	Op  string
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge: %s: %v", e.Op, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

func mergeErr(op string, err error) error {
	return &MergeError{Op: op, Err: err}
}
