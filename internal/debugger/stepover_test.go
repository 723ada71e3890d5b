package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tracewright/internal/engine"
)

func TestStepOverTarget(t *testing.T) {
	call := &engine.Block{Addr: 0x1000, Size: 5, Instructions: []uint64{0x1000}, Kind: engine.JumpCall}
	got := StepOverTarget(call)
	require.NotNil(t, got)
	assert.Equal(t, uint64(0x1005), *got)

	multi := &engine.Block{Addr: 0x1000, Size: 8, Instructions: []uint64{0x1000, 0x1003}, Kind: engine.JumpCall}
	assert.Nil(t, StepOverTarget(multi))

	plain := &engine.Block{Addr: 0x1000, Size: 5, Instructions: []uint64{0x1000}, Kind: engine.JumpBoring}
	assert.Nil(t, StepOverTarget(plain))

	assert.Nil(t, StepOverTarget(nil))
}

func TestStepOver_Simulation(t *testing.T) {
	f := newFixture(t)
	img := loadImage(t, sampleImage)
	dbg, _ := f.simulation(t, sampleImage)

	require.NoError(t, StepOver(dbg, img))
	assert.True(t, dbg.IsRunning())

	f.pumpUntil(t, dbg.IsHalted)
	pc, ok := dbg.PC()
	require.True(t, ok)
	assert.Equal(t, uint64(0x1005), pc)
	assert.Equal(t, StopTarget, dbg.LastStop())
}
