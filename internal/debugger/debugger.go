package debugger

import "github.com/dshills/tracewright/internal/observable"

// State is the logical state of a debugger.
type State int

const (
	// StateUninitialized means the backend still needs setup.
	StateUninitialized State = iota
	// StateHalted means execution is paused and may be stepped.
	StateHalted
	// StateRunning means a driving job is active.
	StateRunning
	// StateTerminated means the debugger was stopped. It is final.
	StateTerminated
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHalted:
		return "halted"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Debugger is the uniform interface over all backends.
type Debugger interface {
	ID() string
	Name() string

	State() State
	IsHalted() bool
	IsRunning() bool

	// StateDescription returns a short summary such as the current
	// instruction pointer. It has no side effects.
	StateDescription() string

	// StateChanged fires after every state or position change.
	StateChanged() *observable.Signal

	CanStepForward() bool
	CanStepBackward() bool
	CanContinueForward() bool
	CanContinueBackward() bool
	CanHalt() bool
	CanStop() bool

	// StepForward advances by one unit. When until is non-nil the debugger
	// keeps stepping until execution reaches *until or a step limit is hit.
	StepForward(until *uint64) error
	StepBackward() error

	// ContinueForward and ContinueBackward start a driving job and return
	// without waiting for it.
	ContinueForward() error
	ContinueBackward() error

	// Halt cancels the driving job. Halting a halted debugger is a no-op.
	Halt() error

	// Stop terminates the debugger and releases its backend. It is
	// idempotent.
	Stop() error
}

// Locator is implemented by debuggers that can report a current address.
type Locator interface {
	PC() (uint64, bool)
}
