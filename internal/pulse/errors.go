package pulse

import "fmt"

// RoutingError reports a failed audio-graph operation.
type RoutingError struct {
	Step string
	Err  error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("audio routing: %s: %v", e.Step, e.Err)
}

func (e *RoutingError) Unwrap() error { return e.Err }

func routingErr(step string, err error) error {
	return &RoutingError{Step: step, Err: err}
}
