package debugger

import (
	"fmt"

	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
)

// Trace replays a recorded trace in either direction.
type Trace struct {
	*driver

	trace *engine.Trace
	pos   int
}

// NewTrace creates a trace debugger positioned at the first record.
func NewTrace(jobs *job.Manager, trace *engine.Trace, opts ...Option) *Trace {
	o := defaultOptions("Trace")
	for _, opt := range opts {
		opt(&o)
	}
	t := &Trace{
		driver: newDriver(jobs, "trace", o),
		trace:  trace,
	}
	t.ready = func() bool { return t.trace != nil && t.trace.Len() > 0 }
	t.release = func() { t.trace = nil }
	return t
}

// Position returns the current index into the trace.
func (t *Trace) Position() int { return t.pos }

// PC returns the address at the current position.
func (t *Trace) PC() (uint64, bool) {
	if t.trace == nil || t.trace.Len() == 0 {
		return 0, false
	}
	return t.trace.At(t.pos), true
}

// StateDescription implements Debugger.
func (t *Trace) StateDescription() string {
	pc, ok := t.PC()
	if !ok {
		return "No Trace"
	}
	return fmt.Sprintf("Trace @ %#x (%d/%d)", pc, t.pos+1, t.trace.Len())
}

func (t *Trace) atEnd() bool   { return t.trace == nil || t.pos >= t.trace.Len()-1 }
func (t *Trace) atStart() bool { return t.trace == nil || t.pos == 0 }

// CanStepForward implements Debugger.
func (t *Trace) CanStepForward() bool { return t.IsHalted() && !t.atEnd() }

// CanContinueForward implements Debugger.
func (t *Trace) CanContinueForward() bool { return t.IsHalted() && !t.atEnd() }

// CanStepBackward implements Debugger.
func (t *Trace) CanStepBackward() bool { return t.IsHalted() && !t.atStart() }

// CanContinueBackward implements Debugger.
func (t *Trace) CanContinueBackward() bool { return t.IsHalted() && !t.atStart() }

// StepForward implements Debugger. With a target the trace is scanned
// forward until the target address or the last record.
func (t *Trace) StepForward(until *uint64) error {
	if err := t.checkHalted(); err != nil {
		return err
	}
	if t.atEnd() {
		return ErrNoProgress
	}
	if until == nil {
		t.moveTo(t.pos+1, StopStep)
		return nil
	}
	pos, reason := t.pos, StopTraceEnd
	stepLimit := t.opts.currentLimits().StepLimit
	for steps := 0; pos < t.trace.Len()-1 && steps < stepLimit; steps++ {
		pos++
		if t.trace.At(pos) == *until {
			reason = StopTarget
			break
		}
	}
	if reason != StopTarget && pos < t.trace.Len()-1 {
		reason = StopStepLimit
	}
	t.moveTo(pos, reason)
	return nil
}

// StepBackward implements Debugger.
func (t *Trace) StepBackward() error {
	if err := t.checkHalted(); err != nil {
		return err
	}
	if t.atStart() {
		return ErrNoProgress
	}
	t.moveTo(t.pos-1, StopStep)
	return nil
}

// ContinueForward implements Debugger.
func (t *Trace) ContinueForward() error {
	return t.continueDir(1)
}

// ContinueBackward implements Debugger.
func (t *Trace) ContinueBackward() error {
	return t.continueDir(-1)
}

type traceResult struct {
	pos    int
	reason string
}

func (t *Trace) continueDir(dir int) error {
	if err := t.checkHalted(); err != nil {
		return err
	}
	if (dir > 0 && t.atEnd()) || (dir < 0 && t.atStart()) {
		return ErrNoProgress
	}

	pcs := t.trace.PCs
	start := t.pos
	var bps map[uint64]struct{}
	if t.opts.breakpoints != nil {
		bps = t.opts.breakpoints.ExecuteAddrs()
	}
	edge := StopTraceEnd
	name := "Replay trace forward"
	if dir < 0 {
		edge = StopTraceStart
		name = "Replay trace backward"
	}
	total := len(pcs)
	every := t.opts.currentLimits().ProgressEvery

	return t.submit(name, KindContinue,
		func(jc *job.Context) (any, error) {
			pos := start
			for steps := 1; ; steps++ {
				if jc.CancelRequested() {
					return &traceResult{pos: pos, reason: StopHalted}, nil
				}
				next := pos + dir
				if next < 0 || next >= total {
					return &traceResult{pos: pos, reason: edge}, nil
				}
				pos = next
				if _, ok := bps[pcs[pos]]; ok {
					return &traceResult{pos: pos, reason: StopBreakpoint}, nil
				}
				t.reportProgress(jc, steps, total, every)
			}
		},
		func(r any) {
			res := r.(*traceResult)
			t.pos = res.pos
			t.lastStop = res.reason
		},
	)
}

func (t *Trace) moveTo(pos int, reason string) {
	t.pos = pos
	t.stepped(reason)
}
