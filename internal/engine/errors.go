package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine package.
var (
	// ErrNoBlock is returned when a state's pc does not start a known block.
	ErrNoBlock = errors.New("no block at address")

	// ErrExited is returned when stepping an emulator whose program exited.
	ErrExited = errors.New("process exited")

	// ErrHookNotFunction is returned when hook source does not define hook().
	ErrHookNotFunction = errors.New("hook source must define function hook(state)")

	// ErrHooksClosed is returned when running a hook after Close.
	ErrHooksClosed = errors.New("hooks are closed")
)

// LoadError reports input that could not be opened or parsed.
type LoadError struct {
	// Path is the input that failed to load.
	Path string

	// Reason is a short description of the failure.
	Reason string

	// Err is the underlying error.
	Err error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// IncompatibleStateError reports a persisted artifact that is structurally
// incompatible with this engine.
type IncompatibleStateError struct {
	// Path is the artifact location.
	Path string

	// Detail describes the incompatibility.
	Detail string
}

func (e *IncompatibleStateError) Error() string {
	return fmt.Sprintf("incompatible state %s: %s", e.Path, e.Detail)
}
