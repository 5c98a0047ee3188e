package geo

import "fmt"

// ValidationError reports a malformed or out-of-range input value.
// It is returned when constructing a Coordinate or Point, and by input
// adapters that parse points from external sources.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}
