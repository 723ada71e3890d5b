package debugger

import (
	"context"
	"fmt"

	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
	"github.com/dshills/tracewright/internal/observable"
)

// Simulation debugs a population of symbolic states held in an observable
// container. It only runs forward.
type Simulation struct {
	*driver

	sim      *observable.Container[*engine.SimManager]
	selected *observable.Container[*engine.State]
	watch    *observable.FuncObserver[*engine.SimManager]
}

// NewSimulation creates a simulation debugger over sim.
// Replacing the container value from outside notifies StateChanged.
func NewSimulation(jobs *job.Manager, sim *observable.Container[*engine.SimManager], opts ...Option) *Simulation {
	o := defaultOptions("Simulation")
	for _, opt := range opts {
		opt(&o)
	}
	s := &Simulation{
		driver:   newDriver(jobs, "simulation", o),
		sim:      sim,
		selected: o.selected,
	}
	s.ready = func() bool { return s.sim.Get() != nil }
	s.watch = observable.ObserverFunc(func(observable.Event[*engine.SimManager]) {
		s.reselect()
		s.changed.Emit()
	})
	sim.Subscribe(s.watch)
	s.release = func() { s.sim.Unsubscribe(s.watch) }
	s.reselect()
	return s
}

// SimManager returns the container the debugger drives.
func (s *Simulation) SimManager() *observable.Container[*engine.SimManager] {
	return s.sim
}

// PC returns the address of the selected state, or of the first active state.
func (s *Simulation) PC() (uint64, bool) {
	if st := s.current(); st != nil {
		return st.PC, true
	}
	return 0, false
}

func (s *Simulation) current() *engine.State {
	if s.selected != nil {
		if st := s.selected.Get(); st != nil {
			return st
		}
	}
	sm := s.sim.Get()
	if sm == nil || len(sm.Active()) == 0 {
		return nil
	}
	return sm.Active()[0]
}

// reselect points the selected-state container at the state with the same
// ID in the current manager, falling back to the first active state.
func (s *Simulation) reselect() {
	if s.selected == nil {
		return
	}
	sm := s.sim.Get()
	if sm == nil || len(sm.Active()) == 0 {
		s.selected.Set(nil)
		return
	}
	if prev := s.selected.Get(); prev != nil {
		for _, st := range sm.Active() {
			if st.ID == prev.ID {
				s.selected.Set(st)
				return
			}
		}
	}
	s.selected.Set(sm.Active()[0])
}

// StateDescription implements Debugger.
func (s *Simulation) StateDescription() string {
	sm := s.sim.Get()
	if sm == nil {
		return "No Simulation Manager"
	}
	n := len(sm.Active())
	if n == 0 {
		return "Simulation (No active states)"
	}
	st := s.current()
	return fmt.Sprintf("Simulation @ %#x (%d active)", st.PC, n)
}

func (s *Simulation) hasActive() bool {
	sm := s.sim.Get()
	return sm != nil && len(sm.Active()) > 0
}

// CanStepForward implements Debugger.
func (s *Simulation) CanStepForward() bool { return s.IsHalted() && s.hasActive() }

// CanContinueForward implements Debugger.
func (s *Simulation) CanContinueForward() bool { return s.IsHalted() && s.hasActive() }

// CanStepBackward implements Debugger.
func (s *Simulation) CanStepBackward() bool { return false }

// CanContinueBackward implements Debugger.
func (s *Simulation) CanContinueBackward() bool { return false }

// StepForward implements Debugger.
func (s *Simulation) StepForward(until *uint64) error {
	if err := s.checkHalted(); err != nil {
		return err
	}
	if !s.hasActive() {
		return ErrNoProgress
	}
	orig := s.sim.Get()

	if until == nil {
		next := orig.Clone()
		reason := StopStep
		if err := next.Step(context.Background()); err != nil {
			reason = StopStepFailure
			s.logger.Debug().Err(err).Msg("simulation step reported errors")
		}
		s.lastStop = reason
		s.sim.Set(next)
		return nil
	}

	target := *until
	snapshot := orig.Clone()
	lim := s.opts.currentLimits()
	return s.submit(fmt.Sprintf("Step until %#x", target), KindStep,
		func(jc *job.Context) (any, error) {
			at := func(st *engine.State) bool { return st.PC == target }
			return s.explore(jc, snapshot, at, StopTarget, lim.StepLimit, lim.ProgressEvery), nil
		},
		func(r any) { s.applyExplore(orig, r.(*exploreResult)) },
	)
}

// ContinueForward explores until an active state reaches an execute
// breakpoint, no state is active, or the step limit is hit.
func (s *Simulation) ContinueForward() error {
	if err := s.checkHalted(); err != nil {
		return err
	}
	if !s.hasActive() {
		return ErrNoProgress
	}
	orig := s.sim.Get()
	snapshot := orig.Clone()
	bps := s.breakpointAddrs()
	lim := s.opts.currentLimits()

	return s.submit("Explore simulation", KindContinue,
		func(jc *job.Context) (any, error) {
			hit := func(st *engine.State) bool {
				_, ok := bps[st.PC]
				return ok
			}
			return s.explore(jc, snapshot, hit, StopBreakpoint, lim.MaxSteps, lim.ProgressEvery), nil
		},
		func(r any) { s.applyExplore(orig, r.(*exploreResult)) },
	)
}

// StepBackward implements Debugger.
func (s *Simulation) StepBackward() error { return ErrNotSupported }

// ContinueBackward implements Debugger.
func (s *Simulation) ContinueBackward() error { return ErrNotSupported }

// applyExplore commits a job's manager unless the container was replaced
// while the job ran.
func (s *Simulation) applyExplore(orig *engine.SimManager, res *exploreResult) {
	s.lastStop = res.reason
	if s.sim.Get() != orig {
		s.logger.Debug().Msg("simulation manager replaced during exploration; result discarded")
		return
	}
	s.sim.Set(res.sm)
	s.logger.Debug().
		Int("steps", res.steps).
		Int("errors", res.errs).
		Str("reason", res.reason).
		Msg("exploration finished")
}

func (s *Simulation) breakpointAddrs() map[uint64]struct{} {
	if s.opts.breakpoints == nil {
		return nil
	}
	return s.opts.breakpoints.ExecuteAddrs()
}
