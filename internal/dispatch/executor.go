package dispatch

import (
	"runtime/debug"
	"time"
)

// PanicHandler observes a recovered panic and the stack it unwound.
type PanicHandler func(v any, stack []byte)

// Outcome describes one callback execution.
type Outcome struct {
	Err      error
	Panic    *PanicError
	Duration time.Duration
}

// OK reports whether the callback returned normally with a nil error.
func (o Outcome) OK() bool { return o.Panic == nil && o.Err == nil }

// Error folds the outcome into a single error. A panic takes precedence.
func (o Outcome) Error() error {
	if o.Panic != nil {
		return o.Panic
	}
	return o.Err
}

// Executor runs callbacks, converting panics into outcomes.
type Executor struct {
	onPanic PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler reports recovered panics to h. A panic inside h
// is swallowed.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) { e.onPanic = h }
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn on the calling goroutine.
func (e *Executor) Execute(fn func() error) (out Outcome) {
	start := time.Now()
	defer func() {
		out.Duration = time.Since(start)
		v := recover()
		if v == nil {
			return
		}
		out.Panic = &PanicError{Value: v, Stack: debug.Stack()}
		e.report(out.Panic)
	}()
	out.Err = fn()
	return out
}

// Run executes a callback that cannot return an error.
func (e *Executor) Run(fn func()) Outcome {
	return e.Execute(func() error { fn(); return nil })
}

func (e *Executor) report(p *PanicError) {
	if e.onPanic == nil {
		return
	}
	defer func() { _ = recover() }()
	e.onPanic(p.Value, p.Stack)
}
