package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Func is a job entry point. The returned value becomes the job result.
type Func func(jc *Context) (any, error)

// Job is a unit of cancellable work.
//
// Accessors are meant for the control thread; the manager mutates a job only
// from there.
type Job struct {
	id       string
	name     string
	kind     string
	owner    any
	blocking bool
	fn       Func
	onFinish []func(*Job)

	// cancellation, readable from the worker
	ctx    context.Context
	cancel context.CancelFunc

	// control-thread state
	manager      *Manager
	status       Status
	progress     float64
	progressText string
	result       any
	err          error
	submitted    time.Time
	started      time.Time
	finished     time.Time
}

// Option configures a Job.
type Option func(*Job)

// WithBlocking marks the job as blocking: it never runs alongside another job.
func WithBlocking() Option {
	return func(j *Job) {
		j.blocking = true
	}
}

// WithKind tags the job with a kind, e.g. "explore" or "load".
func WithKind(kind string) Option {
	return func(j *Job) {
		j.kind = kind
	}
}

// WithOwner records the component the job works for. The manager indexes
// non-terminal jobs by owner; owner must be comparable.
func WithOwner(owner any) Option {
	return func(j *Job) {
		j.owner = owner
	}
}

// OnFinish adds a completion callback, invoked once on the control thread
// when the job reaches a terminal status.
func OnFinish(fn func(*Job)) Option {
	return func(j *Job) {
		if fn != nil {
			j.onFinish = append(j.onFinish, fn)
		}
	}
}

// New creates a job named name running fn.
func New(name string, fn Func, opts ...Option) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		id:     uuid.NewString(),
		name:   name,
		fn:     fn,
		ctx:    ctx,
		cancel: cancel,
		status: StatusQueued,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ID returns the unique job identifier.
func (j *Job) ID() string { return j.id }

// Name returns the display name.
func (j *Job) Name() string { return j.name }

// Kind returns the job kind.
func (j *Job) Kind() string { return j.kind }

// Owner returns the owning component, or nil.
func (j *Job) Owner() any { return j.owner }

// Blocking reports whether the job is blocking.
func (j *Job) Blocking() bool { return j.blocking }

// Status returns the current status.
func (j *Job) Status() Status { return j.status }

// Progress returns the last progress value delivered, in [0,100].
func (j *Job) Progress() float64 { return j.progress }

// ProgressText returns the last progress message.
func (j *Job) ProgressText() string { return j.progressText }

// Result returns the value produced by a completed job.
func (j *Job) Result() any { return j.result }

// Err returns the failure of a Failed job, or nil.
func (j *Job) Err() error { return j.err }

// Submitted returns when the job was submitted.
func (j *Job) Submitted() time.Time { return j.submitted }

// Started returns when the job started running, or the zero time.
func (j *Job) Started() time.Time { return j.started }

// Finished returns when the job reached a terminal status, or the zero time.
func (j *Job) Finished() time.Time { return j.finished }

// String returns the job name and status.
func (j *Job) String() string {
	return j.name + " (" + j.status.String() + ")"
}

func (j *Job) cancelRequested() bool {
	return j.ctx.Err() != nil
}
