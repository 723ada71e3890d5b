package breakpoint

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a breakpoint is not in the manager.
var ErrNotFound = errors.New("breakpoint not found")

// InvalidInputError reports a rejected breakpoint field.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
