package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/rs/zerolog"
)

// Loop is a FIFO of callbacks executed on the control thread.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool

	// control goroutine identity
	bound     atomic.Bool
	controlID atomic.Int64
	running   atomic.Bool

	executor *Executor
	logger   zerolog.Logger

	// Stats
	scheduled atomic.Uint64
	executed  atomic.Uint64
	panicked  atomic.Uint64
	rejected  atomic.Uint64
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the logger used to report panicking callbacks.
func WithLogger(logger zerolog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPanicHandler installs an additional panic handler.
func WithPanicHandler(h PanicHandler) LoopOption {
	return func(l *Loop) {
		l.executor = NewExecutor(WithExecutorPanicHandler(func(v any, stack []byte) {
			l.logPanic(v, stack)
			h(v, stack)
		}))
	}
}

// NewLoop creates a new dispatch loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: zerolog.Nop(),
	}
	l.executor = NewExecutor(WithExecutorPanicHandler(l.logPanic))
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) logPanic(v any, stack []byte) {
	l.logger.Error().
		Str("component", "dispatch").
		Interface("panic", v).
		Bytes("stack", stack).
		Msg("control-thread callback panicked")
}

// Schedule queues fn to run on the control thread. Safe for concurrent use.
// Returns false if the loop has been stopped.
func (l *Loop) Schedule(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.rejected.Add(1)
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.scheduled.Add(1)
	l.signal()
	return true
}

// Call schedules fn and blocks until the control thread has executed it,
// returning fn's error. Called from the control thread itself, fn runs
// immediately.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	if l.OnControl() {
		return l.executor.Execute(fn).Error()
	}

	done := make(chan error, 1)
	ok := l.Schedule(func() {
		done <- l.executor.Execute(fn).Error()
	})
	if !ok {
		return ErrStopped
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bind marks the calling goroutine as the control thread.
func (l *Loop) Bind() {
	l.controlID.Store(goid.Get())
	l.bound.Store(true)
}

// Bound reports whether a control thread has been established.
func (l *Loop) Bound() bool {
	return l.bound.Load()
}

// OnControl reports whether the caller is the control thread.
func (l *Loop) OnControl() bool {
	return l.bound.Load() && l.controlID.Load() == goid.Get()
}

// RunPending binds the caller as control thread, executes the callbacks that
// are queued at the time of the call and returns how many ran.
func (l *Loop) RunPending() int {
	l.Bind()

	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		l.execute(fn)
	}
	return len(batch)
}

// RunUntil binds the caller as control thread and executes callbacks until
// cond returns true or ctx is done. cond is evaluated on the control thread
// before each callback.
func (l *Loop) RunUntil(ctx context.Context, cond func() bool) error {
	l.Bind()

	for {
		if cond() {
			return nil
		}
		if fn, ok := l.pop(); ok {
			l.execute(fn)
			continue
		}

		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return ErrStopped
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run binds the caller as control thread and executes callbacks until ctx is
// done or Stop is called. Callbacks queued before Stop are drained first.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	l.Bind()

	for {
		if fn, ok := l.pop(); ok {
			l.execute(fn)
			continue
		}

		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return nil
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop rejects further callbacks and lets Run return once the queue drains.
// It is safe to call Stop multiple times.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.signal()
}

// Pending returns the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) execute(fn func()) {
	result := l.executor.Run(fn)
	l.executed.Add(1)
	if result.Panic != nil {
		l.panicked.Add(1)
	}
}

// Stats returns loop statistics.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Scheduled: l.scheduled.Load(),
		Executed:  l.executed.Load(),
		Panicked:  l.panicked.Load(),
		Rejected:  l.rejected.Load(),
		Pending:   l.Pending(),
	}
}

// LoopStats contains statistics for a loop.
type LoopStats struct {
	// Scheduled is the number of accepted callbacks.
	Scheduled uint64

	// Executed is the number of callbacks run, including panicking ones.
	Executed uint64

	// Panicked is the number of callbacks that panicked.
	Panicked uint64

	// Rejected is the number of callbacks refused after Stop.
	Rejected uint64

	// Pending is the current queue length.
	Pending int
}
