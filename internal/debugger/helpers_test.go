package debugger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/tracewright/internal/dispatch"
	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
	"github.com/dshills/tracewright/internal/observable"
)

// sampleImage: 0x1000 calls 0x2000, which returns to 0x1005; 0x1005 forks
// to two exits.
const sampleImage = `
name = "sample"
entry = 0x1000

[[blocks]]
addr = 0x1000
size = 5
kind = "call"
successors = [0x2000]

[[blocks]]
addr = 0x1005
size = 4
successors = [0x1010, 0x1020]

[[blocks]]
addr = 0x1010
size = 2
kind = "exit"

[[blocks]]
addr = 0x1020
size = 2
kind = "exit"

[[blocks]]
addr = 0x2000
size = 1
kind = "ret"
`

// spinImage loops forever between two blocks.
const spinImage = `
name = "spin"
entry = 0x10

[[blocks]]
addr = 0x10
size = 2
successors = [0x12]

[[blocks]]
addr = 0x12
size = 2
successors = [0x10]
`

func loadImage(t *testing.T, src string) *engine.Image {
	t.Helper()
	img, err := engine.NewTOMLLoader().LoadFromReader("test.toml", strings.NewReader(src))
	require.NoError(t, err)
	return img
}

type fixture struct {
	loop *dispatch.Loop
	jobs *job.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loop := dispatch.NewLoop()
	loop.Bind()
	f := &fixture{loop: loop, jobs: job.NewManager(loop)}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.jobs.Shutdown(ctx)
	})
	return f
}

func (f *fixture) pumpUntil(t *testing.T, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.loop.RunUntil(ctx, cond), "condition not reached")
}

func (f *fixture) simulation(t *testing.T, src string, opts ...Option) (*Simulation, *observable.Container[*engine.SimManager]) {
	t.Helper()
	img := loadImage(t, src)
	sim := observable.New(engine.NewSimManagerAtEntry(img, nil))
	return NewSimulation(f.jobs, sim, opts...), sim
}
