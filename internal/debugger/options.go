package debugger

import (
	"github.com/rs/zerolog"

	"github.com/dshills/tracewright/internal/breakpoint"
	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/observable"
)

// Default driving limits.
const (
	DefaultMaxSteps      = 10000
	DefaultStepLimit     = 1000
	DefaultProgressEvery = 16
)

// Limits bounds the work of driving operations.
type Limits struct {
	// MaxSteps bounds a single continuation.
	MaxSteps int
	// StepLimit bounds a single StepForward with a target address.
	StepLimit int
	// ProgressEvery is the number of steps between progress reports.
	ProgressEvery int
}

// merge returns l with every positive field of n applied.
func (l Limits) merge(n Limits) Limits {
	if n.MaxSteps > 0 {
		l.MaxSteps = n.MaxSteps
	}
	if n.StepLimit > 0 {
		l.StepLimit = n.StepLimit
	}
	if n.ProgressEvery > 0 {
		l.ProgressEvery = n.ProgressEvery
	}
	return l
}

type options struct {
	name        string
	logger      zerolog.Logger
	breakpoints *breakpoint.Manager
	limits      Limits
	limitsFrom  func() Limits
	selected    *observable.Container[*engine.State]
}

func defaultOptions(name string) options {
	return options{
		name:   name,
		logger: zerolog.Nop(),
		limits: Limits{
			MaxSteps:      DefaultMaxSteps,
			StepLimit:     DefaultStepLimit,
			ProgressEvery: DefaultProgressEvery,
		},
	}
}

// currentLimits returns the limits for an operation starting now. It must
// be called on the control thread.
func (o *options) currentLimits() Limits {
	if o.limitsFrom == nil {
		return o.limits
	}
	return o.limits.merge(o.limitsFrom())
}

// Option configures a debugger.
type Option func(*options)

// WithName overrides the display name.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the debugger logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBreakpoints sets the breakpoints that stop continuation.
func WithBreakpoints(m *breakpoint.Manager) Option {
	return func(o *options) {
		o.breakpoints = m
	}
}

// WithMaxSteps bounds a single continuation.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.limits = o.limits.merge(Limits{MaxSteps: n})
	}
}

// WithStepLimit bounds a single StepForward with a target address.
func WithStepLimit(n int) Option {
	return func(o *options) {
		o.limits = o.limits.merge(Limits{StepLimit: n})
	}
}

// WithProgressEvery sets how many steps pass between progress reports.
func WithProgressEvery(n int) Option {
	return func(o *options) {
		o.limits = o.limits.merge(Limits{ProgressEvery: n})
	}
}

// WithLimitsFrom makes the debugger call fn whenever a driving operation
// starts. Positive fields of the result override the static limits.
func WithLimitsFrom(fn func() Limits) Option {
	return func(o *options) {
		o.limitsFrom = fn
	}
}

// WithSelectedState gives a simulation debugger a container tracking the
// selected execution state. The selection follows the state's ID across
// steps.
func WithSelectedState(c *observable.Container[*engine.State]) Option {
	return func(o *options) {
		o.selected = c
	}
}
