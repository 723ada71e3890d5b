package debugger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tracewright/internal/breakpoint"
	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
	"github.com/dshills/tracewright/internal/observable"
)

func TestSimulation_HaltedMatchesActiveJobs(t *testing.T) {
	f := newFixture(t)
	bps := breakpoint.NewManager()
	_, err := bps.Add(breakpoint.Execute, 0x2000, 1, "")
	require.NoError(t, err)

	dbg, _ := f.simulation(t, sampleImage, WithBreakpoints(bps))
	require.True(t, dbg.IsHalted())

	var checks int
	dbg.StateChanged().Subscribe(observable.ObserverFunc(func(observable.Event[struct{}]) {
		checks++
		assert.Equal(t, !f.jobs.HasActive(dbg.driver), dbg.IsHalted())
	}))
	f.jobs.Jobs().Subscribe(observable.ObserverFunc(func(observable.Event[[]*job.Job]) {
		assert.Equal(t, !f.jobs.HasActive(dbg.driver), dbg.IsHalted())
	}))

	require.NoError(t, dbg.ContinueForward())
	assert.False(t, dbg.IsHalted())
	assert.True(t, dbg.IsRunning())
	assert.True(t, f.jobs.HasActive(dbg.driver))
	assert.Equal(t, StateRunning, dbg.State())
	assert.True(t, dbg.CanHalt())
	assert.False(t, dbg.CanStepForward())

	f.pumpUntil(t, dbg.IsHalted)
	assert.False(t, f.jobs.HasActive(dbg.driver))
	assert.Equal(t, StopBreakpoint, dbg.LastStop())
	assert.Equal(t, "Simulation @ 0x2000 (1 active)", dbg.StateDescription())
	assert.GreaterOrEqual(t, checks, 2)
}

func TestSimulation_HaltMidContinuation(t *testing.T) {
	f := newFixture(t)
	dbg, sim := f.simulation(t, spinImage, WithMaxSteps(1<<30))
	before := sim.Get()

	require.NoError(t, dbg.ContinueForward())
	require.True(t, dbg.IsRunning())

	require.NoError(t, dbg.Halt())
	f.pumpUntil(t, dbg.IsHalted)

	assert.Equal(t, StateHalted, dbg.State())
	assert.Equal(t, StopHalted, dbg.LastStop())
	assert.NoError(t, dbg.LastError())
	assert.NotSame(t, before, sim.Get())
	assert.Len(t, sim.Get().Active(), 1)
	assert.Len(t, before.Active(), 1)
	assert.Equal(t, uint64(0x10), before.Active()[0].PC)
}

func TestSimulation_HaltInsideHookKeepsState(t *testing.T) {
	f := newFixture(t)
	img := loadImage(t, spinImage)
	hooks := engine.NewHooks()
	defer hooks.Close()
	require.NoError(t, hooks.AddHook(0x12, `function hook(s) while true do end end`))
	sim := observable.New(engine.NewSimManagerAtEntry(img, hooks))
	dbg := NewSimulation(f.jobs, sim, WithMaxSteps(1<<30))

	require.NoError(t, dbg.ContinueForward())
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, dbg.Halt())
	f.pumpUntil(t, dbg.IsHalted)

	sm := sim.Get()
	assert.Equal(t, StopHalted, dbg.LastStop())
	assert.NoError(t, dbg.LastError())
	assert.Empty(t, sm.Stash(engine.Errored))
	require.Len(t, sm.Active(), 1)
	assert.Equal(t, uint64(0x12), sm.Active()[0].PC)
	assert.Empty(t, sm.Active()[0].Err)
	assert.True(t, dbg.CanStepForward())
}

func TestSimulation_HaltWhenHaltedIsNoop(t *testing.T) {
	f := newFixture(t)
	dbg, _ := f.simulation(t, sampleImage)
	assert.NoError(t, dbg.Halt())
	assert.True(t, dbg.IsHalted())
}

func TestSimulation_StepForward(t *testing.T) {
	f := newFixture(t)
	dbg, sim := f.simulation(t, sampleImage)

	notified := 0
	sim.Subscribe(observable.ObserverFunc(func(observable.Event[*engine.SimManager]) { notified++ }))

	assert.Equal(t, "Simulation @ 0x1000 (1 active)", dbg.StateDescription())
	require.NoError(t, dbg.StepForward(nil))
	assert.Equal(t, "Simulation @ 0x2000 (1 active)", dbg.StateDescription())
	assert.Equal(t, 1, notified)
	assert.Equal(t, StopStep, dbg.LastStop())

	require.NoError(t, dbg.StepForward(nil))
	require.NoError(t, dbg.StepForward(nil))
	assert.Equal(t, "Simulation @ 0x1010 (2 active)", dbg.StateDescription())

	require.NoError(t, dbg.StepForward(nil))
	assert.Equal(t, "Simulation (No active states)", dbg.StateDescription())
	assert.False(t, dbg.CanStepForward())
	assert.ErrorIs(t, dbg.StepForward(nil), ErrNoProgress)
	assert.ErrorIs(t, dbg.ContinueForward(), ErrNoProgress)
}

func TestSimulation_ContinueToExhaustion(t *testing.T) {
	f := newFixture(t)
	dbg, sim := f.simulation(t, sampleImage)

	require.NoError(t, dbg.ContinueForward())
	f.pumpUntil(t, dbg.IsHalted)

	assert.Equal(t, StopNoActive, dbg.LastStop())
	assert.Len(t, sim.Get().Stash(engine.Deadended), 2)
}

func TestSimulation_StepLimit(t *testing.T) {
	f := newFixture(t)
	dbg, sim := f.simulation(t, spinImage, WithMaxSteps(7))

	require.NoError(t, dbg.ContinueForward())
	f.pumpUntil(t, dbg.IsHalted)

	assert.Equal(t, StopStepLimit, dbg.LastStop())
	assert.Equal(t, 7, sim.Get().Steps())
}

func TestSimulation_Unsupported(t *testing.T) {
	f := newFixture(t)
	dbg, _ := f.simulation(t, sampleImage)

	assert.False(t, dbg.CanStepBackward())
	assert.False(t, dbg.CanContinueBackward())
	assert.ErrorIs(t, dbg.StepBackward(), ErrNotSupported)
	assert.ErrorIs(t, dbg.ContinueBackward(), ErrNotSupported)
}

func TestSimulation_NotHaltedWhileRunning(t *testing.T) {
	f := newFixture(t)
	dbg, _ := f.simulation(t, spinImage, WithMaxSteps(1<<30))

	require.NoError(t, dbg.ContinueForward())
	assert.ErrorIs(t, dbg.StepForward(nil), ErrNotHalted)
	assert.ErrorIs(t, dbg.ContinueForward(), ErrNotHalted)

	require.NoError(t, dbg.Halt())
	f.pumpUntil(t, dbg.IsHalted)
}

func TestSimulation_Stop(t *testing.T) {
	f := newFixture(t)
	dbg, sim := f.simulation(t, spinImage, WithMaxSteps(1<<30))

	require.NoError(t, dbg.ContinueForward())
	require.NoError(t, dbg.Stop())
	assert.Equal(t, StateTerminated, dbg.State())
	assert.False(t, dbg.CanStop())
	assert.False(t, dbg.CanStepForward())
	assert.Equal(t, 0, sim.Len())

	f.pumpUntil(t, func() bool { return !f.jobs.HasActive(dbg.driver) })
	assert.Equal(t, StateTerminated, dbg.State())
	assert.NoError(t, dbg.Stop())
	assert.ErrorIs(t, dbg.StepForward(nil), ErrTerminated)
	assert.ErrorIs(t, dbg.Halt(), ErrTerminated)
}

func TestSimulation_Uninitialized(t *testing.T) {
	f := newFixture(t)
	sim := observable.Empty[*engine.SimManager]()
	dbg := NewSimulation(f.jobs, sim)

	assert.Equal(t, StateUninitialized, dbg.State())
	assert.Equal(t, "No Simulation Manager", dbg.StateDescription())
	assert.ErrorIs(t, dbg.StepForward(nil), ErrNotHalted)

	changed := 0
	dbg.StateChanged().Subscribe(observable.ObserverFunc(func(observable.Event[struct{}]) { changed++ }))
	sim.Set(engine.NewSimManagerAtEntry(loadImage(t, sampleImage), nil))
	assert.Equal(t, 1, changed)
	assert.Equal(t, StateHalted, dbg.State())
}

func TestSimulation_ReplacedManagerDiscardsResult(t *testing.T) {
	f := newFixture(t)
	dbg, sim := f.simulation(t, spinImage, WithMaxSteps(1<<30))

	require.NoError(t, dbg.ContinueForward())
	replacement := engine.NewSimManagerAtEntry(loadImage(t, sampleImage), nil)
	sim.Set(replacement)
	require.NoError(t, dbg.Halt())
	f.pumpUntil(t, dbg.IsHalted)

	assert.Same(t, replacement, sim.Get())
}

func TestSimulation_SelectedStateFollowsID(t *testing.T) {
	f := newFixture(t)
	selected := observable.Empty[*engine.State]()
	dbg, _ := f.simulation(t, sampleImage, WithSelectedState(selected))

	require.NotNil(t, selected.Get())
	id := selected.Get().ID

	require.NoError(t, dbg.StepForward(nil))
	require.NotNil(t, selected.Get())
	assert.Equal(t, id, selected.Get().ID)
	assert.Equal(t, uint64(0x2000), selected.Get().PC)
}
