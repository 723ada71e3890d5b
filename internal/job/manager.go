package job

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/tracewright/internal/dispatch"
	"github.com/dshills/tracewright/internal/observable"
)

// Manager owns the job queue and its workers.
//
// Every method must be called on the control thread of the manager's loop.
// When the loop is bound, calls from other goroutines fail with
// ErrNotControlThread.
type Manager struct {
	loop    *dispatch.Loop
	workers int
	logger  zerolog.Logger
	metrics *Metrics

	jobs           *observable.List[*Job]
	byOwner        map[any][]*Job
	running        int
	blockingActive bool
	closed         bool

	wg sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithWorkers sets the worker parallelism. Values below 1 are ignored.
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger.With().Str("component", "jobs").Logger()
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a job manager delivering through loop.
func NewManager(loop *dispatch.Loop, opts ...ManagerOption) *Manager {
	m := &Manager{
		loop:    loop,
		workers: 1,
		logger:  zerolog.Nop(),
		jobs:    observable.NewList[*Job](),
		byOwner: make(map[any][]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Jobs returns the observable queue of non-terminal jobs in priority order.
// Besides structural "add" and "remove" notifications it publishes "status"
// and "progress" notifications with the affected job as "item".
func (m *Manager) Jobs() *observable.List[*Job] {
	return m.jobs
}

// Workers returns the configured parallelism.
func (m *Manager) Workers() int {
	return m.workers
}

// Metrics returns the attached instruments, or nil.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Running returns the jobs currently occupying a worker.
func (m *Manager) Running() []*Job {
	var out []*Job
	for _, j := range m.jobs.Items() {
		if j.status.Active() {
			out = append(out, j)
		}
	}
	return out
}

// Active returns the non-terminal jobs submitted with the given owner, in
// submission order.
func (m *Manager) Active(owner any) []*Job {
	jobs := m.byOwner[owner]
	out := make([]*Job, len(jobs))
	copy(out, jobs)
	return out
}

// HasActive reports whether owner has any non-terminal job.
func (m *Manager) HasActive(owner any) bool {
	return len(m.byOwner[owner]) > 0
}

// Find returns the non-terminal job with the given ID.
func (m *Manager) Find(id string) (*Job, bool) {
	for _, j := range m.jobs.Items() {
		if j.id == id {
			return j, true
		}
	}
	return nil, false
}

// Submit appends j to the tail of the queue and starts it if admissible.
func (m *Manager) Submit(j *Job) error {
	if err := m.checkControl(); err != nil {
		return err
	}
	if m.closed {
		return ErrShutdown
	}
	if j.manager != nil || j.status != StatusQueued {
		return ErrAlreadySubmitted
	}

	j.manager = m
	j.submitted = time.Now()
	if j.owner != nil {
		m.byOwner[j.owner] = append(m.byOwner[j.owner], j)
	}
	m.jobs.Append(j)

	if m.metrics != nil {
		m.metrics.Submitted.Inc()
	}
	m.logger.Debug().
		Str("job_id", j.id).
		Str("job", j.name).
		Bool("blocking", j.blocking).
		Msg("job submitted")

	m.pump()
	return nil
}

// Cancel requests cancellation of j.
// A queued job finishes as Cancelled immediately; its completion callbacks
// run before Cancel returns. A running job moves to Cancelling and finishes
// once its entry point returns. Cancelling a terminal job is a no-op.
func (m *Manager) Cancel(j *Job) error {
	if err := m.checkControl(); err != nil {
		return err
	}
	if j.manager != m {
		return ErrUnknownJob
	}

	switch j.status {
	case StatusQueued:
		j.cancel()
		m.finish(j, StatusCancelled, nil, nil)
		m.pump()
	case StatusRunning:
		j.cancel()
		j.status = StatusCancelling
		m.logger.Debug().Str("job_id", j.id).Str("job", j.name).Msg("job cancelling")
		m.jobs.Notify(map[string]any{"op": "status", "item": j})
	}
	return nil
}

// CancelAll cancels every non-terminal job.
func (m *Manager) CancelAll() error {
	if err := m.checkControl(); err != nil {
		return err
	}
	for _, j := range m.jobs.Items() {
		_ = m.Cancel(j)
	}
	return nil
}

// Shutdown stops accepting jobs, cancels all pending and running jobs and
// pumps the loop until every worker is idle or ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.checkControl(); err != nil {
		return err
	}
	m.closed = true
	_ = m.CancelAll()

	if err := m.loop.RunUntil(ctx, func() bool { return m.running == 0 }); err != nil {
		return err
	}
	m.wg.Wait()
	m.logger.Debug().Msg("job manager shut down")
	return nil
}

// pump starts queued jobs in order while admission allows.
func (m *Manager) pump() {
	for _, j := range m.jobs.Items() {
		if j.status != StatusQueued {
			continue
		}
		if m.blockingActive || m.running >= m.workers {
			break
		}
		if j.blocking && m.running > 0 {
			break
		}
		m.start(j)
		if j.blocking {
			break
		}
	}
	m.updateGauges()
}

func (m *Manager) start(j *Job) {
	j.status = StatusRunning
	j.started = time.Now()
	m.running++
	if j.blocking {
		m.blockingActive = true
	}

	m.logger.Debug().Str("job_id", j.id).Str("job", j.name).Msg("job started")
	m.jobs.Notify(map[string]any{"op": "status", "item": j})

	m.wg.Add(1)
	go m.work(j, newContext(j, m))
}

// work runs on a worker goroutine.
func (m *Manager) work(j *Job, jc *Context) {
	defer m.wg.Done()

	result, err := m.invoke(j, jc)
	if !m.loop.Schedule(func() { m.complete(j, result, err) }) {
		m.logger.Warn().Str("job_id", j.id).Str("job", j.name).Msg("dispatch loop stopped; completion dropped")
	}
}

func (m *Manager) invoke(j *Job, jc *Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &Failure{Job: j.name, PanicValue: r, Stack: debug.Stack()}
		}
	}()
	return j.fn(jc)
}

// complete runs on the control thread once the entry point has returned.
func (m *Manager) complete(j *Job, result any, err error) {
	m.running--
	if j.blocking {
		m.blockingActive = false
	}

	switch {
	case j.cancelRequested():
		m.finish(j, StatusCancelled, result, nil)
	case err != nil:
		if _, ok := err.(*Failure); !ok {
			err = &Failure{Job: j.name, Err: err}
		}
		m.finish(j, StatusFailed, nil, err)
	default:
		m.finish(j, StatusCompleted, result, nil)
	}

	m.pump()
}

// finish moves j to a terminal status and runs its callbacks.
func (m *Manager) finish(j *Job, status Status, result any, err error) {
	j.status = status
	j.result = result
	j.err = err
	j.finished = time.Now()
	j.cancel()

	if j.owner != nil {
		m.unindex(j)
	}
	m.jobs.Remove(j)

	if m.metrics != nil {
		m.metrics.Finished.WithLabelValues(status.String()).Inc()
		if !j.started.IsZero() {
			m.metrics.Duration.Observe(j.finished.Sub(j.started).Seconds())
		}
	}
	m.updateGauges()

	ev := m.logger.Debug()
	if status == StatusFailed {
		ev = m.logger.Warn().Err(err)
	}
	ev.Str("job_id", j.id).Str("job", j.name).Str("status", status.String()).Msg("job finished")

	for _, fn := range j.onFinish {
		m.runCallback(j, fn)
	}
}

func (m *Manager) runCallback(j *Job, fn func(*Job)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("job_id", j.id).
				Str("job", j.name).
				Interface("panic", r).
				Msg("job completion callback panicked")
		}
	}()
	fn(j)
}

func (m *Manager) applyProgress(j *Job, percent float64, text string) {
	if j.status.Terminal() || percent < j.progress {
		return
	}
	j.progress = percent
	if text != "" {
		j.progressText = text
	}
	m.jobs.Notify(map[string]any{"op": "progress", "item": j})
}

func (m *Manager) unindex(j *Job) {
	jobs := m.byOwner[j.owner]
	for i, other := range jobs {
		if other == j {
			jobs = append(jobs[:i], jobs[i+1:]...)
			break
		}
	}
	if len(jobs) == 0 {
		delete(m.byOwner, j.owner)
	} else {
		m.byOwner[j.owner] = jobs
	}
}

func (m *Manager) updateGauges() {
	if m.metrics == nil {
		return
	}
	m.metrics.Running.Set(float64(m.running))
	m.metrics.Queued.Set(float64(m.jobs.Len() - m.running))
}

func (m *Manager) checkControl() error {
	if m.loop.Bound() && !m.loop.OnControl() {
		return ErrNotControlThread
	}
	return nil
}
