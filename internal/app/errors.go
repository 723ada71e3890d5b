package app

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrQuit signals that the command loop should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")

	// ErrNoDebugger is returned by commands that need a current debugger.
	ErrNoDebugger = errors.New("no current debugger")

	// ErrNoState is returned when no execution state is available.
	ErrNoState = errors.New("no execution state available")
)

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "load", "snapshot")
	Target string // Target of the operation (e.g., file path)
	Err    error
}

func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
