package debugger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
)

// Live drives a running process. It only runs forward.
type Live struct {
	*driver

	emu *engine.Emulator
}

// NewLive creates a debugger attached to emu.
func NewLive(jobs *job.Manager, emu *engine.Emulator, opts ...Option) *Live {
	o := defaultOptions("Live")
	for _, opt := range opts {
		opt(&o)
	}
	l := &Live{
		driver: newDriver(jobs, "live", o),
		emu:    emu,
	}
	l.ready = func() bool { return l.emu != nil }
	l.release = func() {
		if l.emu != nil {
			l.emu.Kill()
		}
	}
	return l
}

// Emulator returns the attached process.
func (l *Live) Emulator() *engine.Emulator { return l.emu }

// PC returns the process program counter.
func (l *Live) PC() (uint64, bool) {
	if l.emu == nil || l.emu.Exited() {
		return 0, false
	}
	return l.emu.PC(), true
}

// StateDescription implements Debugger.
func (l *Live) StateDescription() string {
	switch {
	case l.emu == nil:
		return "Live (detached)"
	case l.emu.Exited():
		return "Live (exited)"
	default:
		return fmt.Sprintf("Live @ %#x", l.emu.PC())
	}
}

func (l *Live) alive() bool { return l.emu != nil && !l.emu.Exited() }

// CanStepForward implements Debugger.
func (l *Live) CanStepForward() bool { return l.IsHalted() && l.alive() }

// CanContinueForward implements Debugger.
func (l *Live) CanContinueForward() bool { return l.IsHalted() && l.alive() }

// CanStepBackward implements Debugger.
func (l *Live) CanStepBackward() bool { return false }

// CanContinueBackward implements Debugger.
func (l *Live) CanContinueBackward() bool { return false }

// StepForward implements Debugger.
func (l *Live) StepForward(until *uint64) error {
	if err := l.checkHalted(); err != nil {
		return err
	}
	if !l.alive() {
		return ErrNoProgress
	}
	if until == nil {
		reason := StopStep
		if err := l.emu.Step(context.Background()); err != nil {
			return fmt.Errorf("step: %w", err)
		}
		if l.emu.Exited() {
			reason = StopExited
		}
		l.stepped(reason)
		return nil
	}

	target := *until
	lim := l.opts.currentLimits()
	return l.submit(fmt.Sprintf("Run until %#x", target), KindStep,
		func(jc *job.Context) (any, error) {
			return l.run(jc, func(pc uint64) bool { return pc == target }, StopTarget, lim.StepLimit, lim.ProgressEvery)
		},
		l.applyRun,
	)
}

// ContinueForward implements Debugger.
func (l *Live) ContinueForward() error {
	if err := l.checkHalted(); err != nil {
		return err
	}
	if !l.alive() {
		return ErrNoProgress
	}
	var bps map[uint64]struct{}
	if l.opts.breakpoints != nil {
		bps = l.opts.breakpoints.ExecuteAddrs()
	}
	lim := l.opts.currentLimits()
	return l.submit("Continue process", KindContinue,
		func(jc *job.Context) (any, error) {
			hit := func(pc uint64) bool {
				_, ok := bps[pc]
				return ok
			}
			return l.run(jc, hit, StopBreakpoint, lim.MaxSteps, lim.ProgressEvery)
		},
		l.applyRun,
	)
}

// StepBackward implements Debugger.
func (l *Live) StepBackward() error { return ErrNotSupported }

// ContinueBackward implements Debugger.
func (l *Live) ContinueBackward() error { return ErrNotSupported }

// run steps the emulator on a worker goroutine. The emulator serializes
// access internally.
func (l *Live) run(jc *job.Context, stop func(uint64) bool, stopReason string, limit, every int) (any, error) {
	emu := l.emu
	for steps := 0; ; {
		if jc.CancelRequested() {
			return StopHalted, nil
		}
		if steps >= limit {
			return StopStepLimit, nil
		}
		if err := emu.Step(jc.Context()); err != nil {
			if errors.Is(err, context.Canceled) {
				return StopHalted, nil
			}
			return nil, err
		}
		steps++
		if emu.Exited() {
			return StopExited, nil
		}
		if stop(emu.PC()) {
			return stopReason, nil
		}
		l.reportProgress(jc, steps, limit, every)
	}
}

func (l *Live) applyRun(r any) {
	l.lastStop = r.(string)
}
