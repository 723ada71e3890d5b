package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tracewright/internal/dispatch"
	"github.com/dshills/tracewright/internal/observable"
)

func newTestManager(t *testing.T, opts ...ManagerOption) (*dispatch.Loop, *Manager) {
	t.Helper()
	loop := dispatch.NewLoop()
	loop.Bind()
	return loop, NewManager(loop, opts...)
}

func pumpUntil(t *testing.T, loop *dispatch.Loop, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.RunUntil(ctx, cond), "condition not reached")
}

func gated(release <-chan struct{}) Func {
	return func(jc *Context) (any, error) {
		<-release
		return nil, nil
	}
}

func TestManager_FIFOCompletionOrder(t *testing.T) {
	loop, m := newTestManager(t)

	var order []string
	for _, name := range []string{"J1", "J2", "J3"} {
		name := name
		j := New(name, func(*Context) (any, error) { return name, nil },
			OnFinish(func(j *Job) { order = append(order, j.Name()) }))
		require.NoError(t, m.Submit(j))
	}

	pumpUntil(t, loop, func() bool { return len(order) == 3 })
	require.Equal(t, []string{"J1", "J2", "J3"}, order)
	require.Equal(t, 0, m.Jobs().Len())
}

func TestManager_ResultDelivered(t *testing.T) {
	loop, m := newTestManager(t)
	j := New("answer", func(*Context) (any, error) { return 42, nil })
	require.NoError(t, m.Submit(j))

	pumpUntil(t, loop, func() bool { return j.Status().Terminal() })
	require.Equal(t, StatusCompleted, j.Status())
	require.Equal(t, 42, j.Result())
	require.NoError(t, j.Err())
	require.False(t, j.Started().IsZero())
	require.False(t, j.Finished().Before(j.Started()))
}

func TestManager_CancelQueuedBeforeNextStarts(t *testing.T) {
	loop, m := newTestManager(t)

	release := make(chan struct{})
	var events []string
	m.Jobs().Subscribe(observable.ObserverFunc(func(ev observable.Event[[]*Job]) {
		if ev.Op() == "status" {
			j := ev.Meta["item"].(*Job)
			events = append(events, j.Name()+":"+j.Status().String())
		}
	}))

	var j2Ran atomic.Bool
	onFinish := OnFinish(func(j *Job) { events = append(events, j.Name()+":finished:"+j.Status().String()) })
	j1 := New("J1", gated(release), onFinish)
	j2 := New("J2", func(*Context) (any, error) { j2Ran.Store(true); return nil, nil }, onFinish)
	j3 := New("J3", func(*Context) (any, error) { return nil, nil }, onFinish)
	for _, j := range []*Job{j1, j2, j3} {
		require.NoError(t, m.Submit(j))
	}
	require.Equal(t, StatusRunning, j1.Status())
	require.Equal(t, StatusQueued, j2.Status())

	require.NoError(t, m.Cancel(j2))
	require.Equal(t, StatusCancelled, j2.Status())
	require.Equal(t, StatusQueued, j3.Status())

	close(release)
	pumpUntil(t, loop, func() bool { return j3.Status().Terminal() })

	require.False(t, j2Ran.Load())
	require.Equal(t, []string{
		"J1:running",
		"J2:finished:cancelled",
		"J1:finished:completed",
		"J3:running",
		"J3:finished:completed",
	}, events)
}

func TestManager_CancelRunningCooperative(t *testing.T) {
	loop, m := newTestManager(t)

	started := make(chan struct{})
	finishes := 0
	j := New("spin", func(jc *Context) (any, error) {
		close(started)
		for !jc.CancelRequested() {
			time.Sleep(time.Millisecond)
		}
		return "partial", nil
	}, OnFinish(func(*Job) { finishes++ }))

	require.NoError(t, m.Submit(j))
	<-started

	require.NoError(t, m.Cancel(j))
	require.Equal(t, StatusCancelling, j.Status())
	require.NoError(t, m.Cancel(j))

	pumpUntil(t, loop, func() bool { return j.Status().Terminal() })
	require.Equal(t, StatusCancelled, j.Status())

	// Let any stray deliveries run.
	loop.RunPending()
	require.Equal(t, 1, finishes)
	require.NoError(t, m.Cancel(j), "cancelling a finished job is a no-op")
}

func TestManager_CancelUsesDoneChannel(t *testing.T) {
	loop, m := newTestManager(t)
	j := New("select", func(jc *Context) (any, error) {
		select {
		case <-jc.Done():
			return nil, jc.Context().Err()
		case <-time.After(10 * time.Second):
			return nil, errors.New("not cancelled")
		}
	})
	require.NoError(t, m.Submit(j))
	require.NoError(t, m.Cancel(j))

	pumpUntil(t, loop, func() bool { return j.Status().Terminal() })
	require.Equal(t, StatusCancelled, j.Status())
	require.NoError(t, j.Err())
}

func TestManager_FailureIsContained(t *testing.T) {
	loop, m := newTestManager(t)
	boom := errors.New("boom")

	failing := New("failing", func(*Context) (any, error) { return nil, boom })
	panicking := New("panicking", func(*Context) (any, error) { panic("kaboom") })
	healthy := New("healthy", func(*Context) (any, error) { return "ok", nil })

	var failedCallbacks int
	for _, j := range []*Job{failing, panicking} {
		OnFinish(func(j *Job) {
			if j.Status() == StatusFailed {
				failedCallbacks++
			}
		})(j)
		require.NoError(t, m.Submit(j))
	}
	require.NoError(t, m.Submit(healthy))

	pumpUntil(t, loop, func() bool { return healthy.Status().Terminal() })

	require.Equal(t, StatusFailed, failing.Status())
	require.ErrorIs(t, failing.Err(), boom)
	var f *Failure
	require.ErrorAs(t, failing.Err(), &f)
	require.Equal(t, "failing", f.Job)

	require.Equal(t, StatusFailed, panicking.Status())
	require.ErrorAs(t, panicking.Err(), &f)
	require.Equal(t, "kaboom", f.PanicValue)
	require.NotEmpty(t, f.Stack)

	require.Equal(t, 2, failedCallbacks)
	require.Equal(t, StatusCompleted, healthy.Status())
}

func TestManager_ProgressMonotonic(t *testing.T) {
	loop, m := newTestManager(t)

	var delivered []float64
	m.Jobs().Subscribe(observable.ObserverFunc(func(ev observable.Event[[]*Job]) {
		if ev.Op() == "progress" {
			delivered = append(delivered, ev.Meta["item"].(*Job).Progress())
		}
	}))

	j := New("progress", func(jc *Context) (any, error) {
		for _, p := range []float64{10, 5, 50, 50, 200, -1, 100} {
			jc.SetProgress(p)
		}
		jc.SetProgressText(100, "done")
		return nil, nil
	})
	require.NoError(t, m.Submit(j))
	pumpUntil(t, loop, func() bool { return j.Status().Terminal() })

	require.Equal(t, []float64{10, 50, 100, 100}, delivered)
	for i, p := range delivered {
		require.GreaterOrEqual(t, p, 0.0)
		require.LessOrEqual(t, p, 100.0)
		if i > 0 {
			require.GreaterOrEqual(t, p, delivered[i-1])
		}
	}
	require.Equal(t, "done", j.ProgressText())
}

func TestManager_BlockingAdmission(t *testing.T) {
	loop, m := newTestManager(t, WithWorkers(3))

	releaseA, releaseB, releaseC := make(chan struct{}), make(chan struct{}), make(chan struct{})
	a := New("A", gated(releaseA))
	b := New("B", gated(releaseB), WithBlocking())
	c := New("C", gated(releaseC))
	for _, j := range []*Job{a, b, c} {
		require.NoError(t, m.Submit(j))
	}

	require.Equal(t, StatusRunning, a.Status())
	require.Equal(t, StatusQueued, b.Status(), "blocking job waits for running jobs")
	require.Equal(t, StatusQueued, c.Status(), "jobs behind a waiting blocking job are held back")

	close(releaseA)
	pumpUntil(t, loop, func() bool { return a.Status().Terminal() })
	require.Equal(t, StatusRunning, b.Status())
	require.Equal(t, StatusQueued, c.Status(), "nothing starts while a blocking job runs")
	require.Len(t, m.Running(), 1)

	close(releaseB)
	pumpUntil(t, loop, func() bool { return b.Status().Terminal() })
	require.Equal(t, StatusRunning, c.Status())

	close(releaseC)
	pumpUntil(t, loop, func() bool { return c.Status().Terminal() })
}

func TestManager_ParallelWorkers(t *testing.T) {
	loop, m := newTestManager(t, WithWorkers(2))

	var concurrent, peak atomic.Int32
	barrier := make(chan struct{})
	body := func(*Context) (any, error) {
		n := concurrent.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-barrier
		concurrent.Add(-1)
		return nil, nil
	}

	jobs := []*Job{New("a", body), New("b", body), New("c", body)}
	for _, j := range jobs {
		require.NoError(t, m.Submit(j))
	}
	require.Len(t, m.Running(), 2)
	require.Equal(t, StatusQueued, jobs[2].Status())

	close(barrier)
	pumpUntil(t, loop, func() bool { return jobs[2].Status().Terminal() })
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestManager_OwnerIndexMatchesScan(t *testing.T) {
	loop, m := newTestManager(t)
	type owner struct{ name string }
	o1, o2 := &owner{"one"}, &owner{"two"}

	scan := func(o any) int {
		n := 0
		for _, j := range m.Jobs().Items() {
			if j.Owner() == o {
				n++
			}
		}
		return n
	}
	check := func() {
		for _, o := range []any{o1, o2} {
			require.Equal(t, scan(o) > 0, m.HasActive(o))
			require.Len(t, m.Active(o), scan(o))
		}
	}

	release := make(chan struct{})
	j1 := New("o1-a", gated(release), WithOwner(o1))
	j2 := New("o1-b", gated(release), WithOwner(o1))
	j3 := New("o2", gated(release), WithOwner(o2))
	m.Jobs().Subscribe(observable.ObserverFunc(func(observable.Event[[]*Job]) { check() }))

	for _, j := range []*Job{j1, j2, j3} {
		require.NoError(t, m.Submit(j))
		check()
	}
	require.True(t, m.HasActive(o1))

	require.NoError(t, m.Cancel(j3))
	check()
	require.False(t, m.HasActive(o2))

	close(release)
	pumpUntil(t, loop, func() bool { return !m.HasActive(o1) })
	check()
	require.Empty(t, m.Active(o1))
}

func TestManager_Shutdown(t *testing.T) {
	_, m := newTestManager(t)

	started := make(chan struct{})
	running := New("running", func(jc *Context) (any, error) {
		close(started)
		<-jc.Done()
		return nil, nil
	})
	queued := New("queued", func(*Context) (any, error) { return nil, nil })
	require.NoError(t, m.Submit(running))
	require.NoError(t, m.Submit(queued))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	require.Equal(t, StatusCancelled, running.Status())
	require.Equal(t, StatusCancelled, queued.Status())
	require.ErrorIs(t, m.Submit(New("late", nil)), ErrShutdown)
}

func TestManager_SubmitErrors(t *testing.T) {
	loop, m := newTestManager(t)
	j := New("once", func(*Context) (any, error) { return nil, nil })
	require.NoError(t, m.Submit(j))
	require.ErrorIs(t, m.Submit(j), ErrAlreadySubmitted)

	other := NewManager(loop)
	require.ErrorIs(t, other.Cancel(j), ErrUnknownJob)

	errc := make(chan error, 1)
	go func() { errc <- m.Submit(New("off-thread", nil)) }()
	require.ErrorIs(t, <-errc, ErrNotControlThread)

	pumpUntil(t, loop, func() bool { return j.Status().Terminal() })
}

func TestManager_WorkerUsesCall(t *testing.T) {
	loop, m := newTestManager(t)
	applied := 0
	j := New("call", func(jc *Context) (any, error) {
		err := jc.Call(func() error {
			applied = 7
			return nil
		})
		return nil, err
	})
	require.NoError(t, m.Submit(j))
	pumpUntil(t, loop, func() bool { return j.Status().Terminal() })
	require.Equal(t, StatusCompleted, j.Status())
	require.Equal(t, 7, applied)
}

func TestManager_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")
	loop, m := newTestManager(t, WithMetrics(metrics))

	ok := New("ok", func(*Context) (any, error) { return nil, nil })
	bad := New("bad", func(*Context) (any, error) { return nil, errors.New("x") })
	require.NoError(t, m.Submit(ok))
	require.NoError(t, m.Submit(bad))
	pumpUntil(t, loop, func() bool { return bad.Status().Terminal() })

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Submitted))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Finished.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Finished.WithLabelValues("failed")))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.Running))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.Queued))
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		want     string
		terminal bool
	}{
		{StatusQueued, "queued", false},
		{StatusRunning, "running", false},
		{StatusCancelling, "cancelling", false},
		{StatusCancelled, "cancelled", true},
		{StatusCompleted, "completed", true},
		{StatusFailed, "failed", true},
		{Status(99), "unknown", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.status.String())
		require.Equal(t, tt.terminal, tt.status.Terminal())
	}
}
