package matrix

import (
	"errors"
	"fmt"
)

// ErrNotPortable is returned by the Process strategy for a Measure that
// cannot be described to a child process. Only geo.Calculator can.
var ErrNotPortable = errors.New("measure cannot be sent to a worker process")

// ComputationError reports a pair whose distance could not be computed:
// the Measure failed, panicked or produced a negative or non-finite value.
type ComputationError struct {
	Origin      string
	Destination string
	Err         error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("distance %s -> %s: %v", e.Origin, e.Destination, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// ResourceError reports a failure of the execution machinery itself, such as
// a worker process that could not start or died mid-run. It always ends the
// run, whatever the failure policy.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ResourceError) Unwrap() error { return e.Err }
