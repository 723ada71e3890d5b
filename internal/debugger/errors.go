package debugger

import "errors"

var (
	// ErrNotSupported is returned by operations the backend cannot perform.
	ErrNotSupported = errors.New("operation not supported by this debugger")

	// ErrNotHalted is returned when an operation requires a halted debugger.
	ErrNotHalted = errors.New("debugger is not halted")

	// ErrTerminated is returned by every operation after Stop.
	ErrTerminated = errors.New("debugger is terminated")

	// ErrNoProgress is returned when the backend has nothing to step.
	ErrNoProgress = errors.New("no execution state to advance")

	// ErrNotRegistered is returned by Manager.SetCurrent for a debugger
	// that is not in the list manager.
	ErrNotRegistered = errors.New("debugger is not registered")
)
