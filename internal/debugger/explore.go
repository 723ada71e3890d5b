package debugger

import (
	"fmt"

	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
)

// Stop reasons reported by LastStop.
const (
	StopStep        = "step"
	StopBreakpoint  = "breakpoint"
	StopTarget      = "target reached"
	StopNoActive    = "no active states"
	StopStepLimit   = "step limit reached"
	StopTraceEnd    = "end of trace"
	StopTraceStart  = "start of trace"
	StopExited      = "exited"
	StopHalted      = "halted"
	StopStepFailure = "step failed"
	StopFailed      = "failed"
)

func progressText(steps int) string {
	return fmt.Sprintf("%d steps", steps)
}

// exploreResult is the outcome of a simulation driving job.
type exploreResult struct {
	sm     *engine.SimManager
	steps  int
	reason string
	errs   int
}

// explore steps sm until an active state satisfies stop, no state is
// active, limit steps have run or cancellation is requested. sm is a
// private copy owned by the calling job.
func (d *driver) explore(jc *job.Context, sm *engine.SimManager, stop func(*engine.State) bool, stopReason string, limit, every int) *exploreResult {
	res := &exploreResult{sm: sm}
	for {
		if jc.CancelRequested() {
			res.reason = StopHalted
			return res
		}
		if len(sm.Active()) == 0 {
			res.reason = StopNoActive
			return res
		}
		if res.steps >= limit {
			res.reason = StopStepLimit
			return res
		}

		if err := sm.Step(jc.Context()); err != nil {
			if jc.CancelRequested() {
				continue
			}
			res.errs++
			d.logger.Debug().Err(err).Msg("simulation step reported errors")
		}
		res.steps++

		for _, st := range sm.Active() {
			if stop(st) {
				res.reason = stopReason
				return res
			}
		}
		d.reportProgress(jc, res.steps, limit, every)
	}
}
