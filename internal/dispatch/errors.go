package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch package.
var (
	// ErrStopped is returned when the loop has been stopped.
	ErrStopped = errors.New("dispatch loop is stopped")

	// ErrAlreadyRunning is returned when Run is called on a loop that is
	// already being run by another goroutine.
	ErrAlreadyRunning = errors.New("dispatch loop is already running")
)

// PanicError carries a panic recovered from a callback.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
