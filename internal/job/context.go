package job

import (
	"context"
	"math"

	"github.com/dshills/tracewright/internal/dispatch"
)

// Context is handed to a job's entry point on its worker goroutine.
type Context struct {
	job  *Job
	mgr  *Manager
	last float64
	sent bool
}

func newContext(j *Job, m *Manager) *Context {
	return &Context{job: j, mgr: m}
}

// Name returns the job name.
func (c *Context) Name() string {
	return c.job.name
}

// SetProgress reports progress in percent. Values are clamped to [0,100]
// and never decrease; repeated values are not re-delivered.
func (c *Context) SetProgress(percent float64) {
	c.SetProgressText(percent, "")
}

// SetProgressText reports progress with a status message.
func (c *Context) SetProgressText(percent float64, text string) {
	switch {
	case math.IsNaN(percent):
		percent = c.last
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	if percent < c.last {
		percent = c.last
	}
	if c.sent && percent == c.last && text == "" {
		return
	}
	c.last = percent
	c.sent = true

	j, m := c.job, c.mgr
	m.loop.Schedule(func() {
		m.applyProgress(j, percent, text)
	})
}

// CancelRequested reports whether cancellation was requested. It never blocks.
func (c *Context) CancelRequested() bool {
	return c.job.cancelRequested()
}

// Done returns a channel closed when cancellation is requested.
func (c *Context) Done() <-chan struct{} {
	return c.job.ctx.Done()
}

// Context returns a context.Context cancelled when cancellation is
// requested, for passing to blocking calls.
func (c *Context) Context() context.Context {
	return c.job.ctx
}

// Schedule queues fn to run on the control thread.
func (c *Context) Schedule(fn func()) bool {
	return c.mgr.loop.Schedule(fn)
}

// Call runs fn on the control thread and waits for it. It returns early with
// the cancellation error if the job is cancelled first.
func (c *Context) Call(fn func() error) error {
	return c.mgr.loop.Call(c.job.ctx, fn)
}

// Loop returns the dispatch loop the job reports through.
func (c *Context) Loop() *dispatch.Loop {
	return c.mgr.loop
}
