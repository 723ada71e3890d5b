package job

import (
	"errors"
	"fmt"
)

// Sentinel errors for the job package.
var (
	// ErrShutdown is returned when submitting to a manager that is shutting down.
	ErrShutdown = errors.New("job manager is shut down")

	// ErrAlreadySubmitted is returned when a job is submitted twice.
	ErrAlreadySubmitted = errors.New("job already submitted")

	// ErrNotControlThread is returned when the manager is used off the control thread.
	ErrNotControlThread = errors.New("job manager used outside the control thread")

	// ErrUnknownJob is returned when cancelling a job this manager does not own.
	ErrUnknownJob = errors.New("job not owned by this manager")
)

// Failure records why a job ended as Failed.
type Failure struct {
	// Job is the job name.
	Job string

	// Err is the error returned by the entry point, if any.
	Err error

	// PanicValue is set if the entry point panicked.
	PanicValue any

	// Stack is the stack trace captured at the panic.
	Stack []byte
}

func (f *Failure) Error() string {
	if f.PanicValue != nil {
		return fmt.Sprintf("job %q panicked: %v", f.Job, f.PanicValue)
	}
	return fmt.Sprintf("job %q failed: %v", f.Job, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	if f.Err != nil {
		return f.Err
	}
	if err, ok := f.PanicValue.(error); ok {
		return err
	}
	return nil
}
