package debugger

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/tracewright/internal/job"
	"github.com/dshills/tracewright/internal/observable"
)

// Job kinds submitted by debuggers.
const (
	KindContinue = "debugger.continue"
	KindStep     = "debugger.step"
)

// driver is the state machine shared by all backends. It is the owner of
// every job it submits, so the job manager's owner index decides whether
// the debugger is running.
type driver struct {
	id     string
	opts   options
	jobs   *job.Manager
	logger zerolog.Logger

	changed    *observable.Signal
	terminated bool
	lastStop   string
	lastErr    error

	ready   func() bool
	release func()
}

func newDriver(jobs *job.Manager, kind string, opts options) *driver {
	id := uuid.NewString()
	return &driver{
		id:      id,
		opts:    opts,
		jobs:    jobs,
		logger:  opts.logger.With().Str("debugger", kind).Str("debugger_id", id).Logger(),
		changed: observable.NewSignal(),
		ready:   func() bool { return true },
		release: func() {},
	}
}

func (d *driver) ID() string { return d.id }

func (d *driver) Name() string { return d.opts.name }

func (d *driver) StateChanged() *observable.Signal { return d.changed }

// LastStop describes why the most recent step or continuation ended.
func (d *driver) LastStop() string { return d.lastStop }

// LastError returns the error of the most recent failed driving job.
func (d *driver) LastError() error { return d.lastErr }

func (d *driver) State() State {
	switch {
	case d.terminated:
		return StateTerminated
	case d.jobs.HasActive(d):
		return StateRunning
	case !d.ready():
		return StateUninitialized
	default:
		return StateHalted
	}
}

func (d *driver) IsHalted() bool { return d.State() == StateHalted }

func (d *driver) IsRunning() bool { return d.State() == StateRunning }

func (d *driver) CanHalt() bool { return d.IsRunning() }

func (d *driver) CanStop() bool { return !d.terminated }

func (d *driver) checkHalted() error {
	switch d.State() {
	case StateTerminated:
		return ErrTerminated
	case StateHalted:
		return nil
	default:
		return ErrNotHalted
	}
}

// submit starts a driving job. apply runs on the control thread with the
// job's result when the job completes or is cancelled, unless the debugger
// was stopped in between.
func (d *driver) submit(name, kind string, fn job.Func, apply func(result any)) error {
	j := job.New(name, fn,
		job.WithKind(kind),
		job.WithOwner(d),
		job.OnFinish(func(j *job.Job) {
			if d.terminated {
				return
			}
			switch j.Status() {
			case job.StatusCompleted, job.StatusCancelled:
				if r := j.Result(); r != nil {
					apply(r)
				}
				if j.Status() == job.StatusCancelled {
					d.lastStop = StopHalted
				}
			case job.StatusFailed:
				d.lastErr = j.Err()
				d.lastStop = StopFailed
				d.logger.Warn().Err(j.Err()).Str("job", j.Name()).Msg("driving job failed")
			}
			d.changed.Emit()
		}),
	)
	if err := d.jobs.Submit(j); err != nil {
		return err
	}
	d.logger.Debug().Str("job", name).Msg("driving job submitted")
	d.changed.Emit()
	return nil
}

func (d *driver) Halt() error {
	if d.terminated {
		return ErrTerminated
	}
	for _, j := range d.jobs.Active(d) {
		if err := d.jobs.Cancel(j); err != nil {
			return err
		}
	}
	return nil
}

func (d *driver) Stop() error {
	if d.terminated {
		return nil
	}
	for _, j := range d.jobs.Active(d) {
		if err := d.jobs.Cancel(j); err != nil {
			return err
		}
	}
	d.terminated = true
	d.release()
	d.logger.Debug().Msg("debugger stopped")
	d.changed.Emit()
	return nil
}

// stepped records a completed synchronous step and notifies observers.
func (d *driver) stepped(reason string) {
	d.lastStop = reason
	d.changed.Emit()
}

// reportProgress publishes progress every "every" steps.
func (d *driver) reportProgress(jc *job.Context, steps, limit, every int) {
	if limit <= 0 || every <= 0 || steps%every != 0 {
		return
	}
	jc.SetProgressText(float64(steps)*100/float64(limit), progressText(steps))
}
