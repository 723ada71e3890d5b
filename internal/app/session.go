package app

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dshills/tracewright/internal/breakpoint"
	"github.com/dshills/tracewright/internal/config"
	"github.com/dshills/tracewright/internal/config/watcher"
	"github.com/dshills/tracewright/internal/debugger"
	"github.com/dshills/tracewright/internal/dispatch"
	"github.com/dshills/tracewright/internal/engine"
	"github.com/dshills/tracewright/internal/job"
	"github.com/dshills/tracewright/internal/observable"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "tracewright"

// Options configures a Session.
type Options struct {
	// Config is the initial configuration. Nil means config.Default().
	Config *config.Config

	// ConfigPath enables live reload of the configuration file when set.
	ConfigPath string

	// Logger is the session logger. The zero value discards output.
	Logger zerolog.Logger

	// Levels is the threshold switch Logger writes through, as returned by
	// NewLogger. When set, log.level reloads apply to every component
	// logger; otherwise only the session's own logger follows them.
	Levels *LevelSwitch

	// Registry receives job metrics. Nil disables metric registration.
	Registry prometheus.Registerer

	// Loader reads images. Nil means engine.NewTOMLLoader().
	Loader engine.Loader
}

// Session is one debugging session. It replaces process-wide singletons:
// every component is reached through the session that created it.
type Session struct {
	Loop        *dispatch.Loop
	Jobs        *job.Manager
	Debuggers   *debugger.ListManager
	Current     *debugger.Manager
	Breakpoints *breakpoint.Manager
	Config      *config.Settings

	// Image is the loaded program, or nil.
	Image *observable.Container[*engine.Image]

	// SimManager is the simulation manager of the loaded program, or nil.
	SimManager *observable.Container[*engine.SimManager]

	// SelectedState follows the state chosen in simulation debuggers.
	SelectedState *observable.Container[*engine.State]

	// Notices holds unacknowledged user-facing messages.
	Notices *observable.List[*Notice]

	logger  zerolog.Logger
	loader  engine.Loader
	hooks   *engine.Hooks
	retired []*engine.Hooks
	levels  *LevelSwitch
	watcher *watcher.Watcher
	closed  bool
}

// NewSession creates a session and binds the calling goroutine as its
// control thread.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loader := opts.Loader
	if loader == nil {
		loader = engine.NewTOMLLoader()
	}
	logger := opts.Logger

	loop := dispatch.NewLoop(dispatch.WithLogger(logger))
	loop.Bind()

	jobOpts := []job.ManagerOption{
		job.WithWorkers(cfg.Jobs.Workers),
		job.WithLogger(logger),
	}
	if opts.Registry != nil {
		jobOpts = append(jobOpts, job.WithMetrics(job.NewMetrics(opts.Registry, MetricsNamespace)))
	}

	lists := debugger.NewListManager()
	s := &Session{
		Loop:          loop,
		Jobs:          job.NewManager(loop, jobOpts...),
		Debuggers:     lists,
		Current:       debugger.NewManager(lists),
		Breakpoints:   breakpoint.NewManager(),
		Config:        config.NewSettings(cfg),
		Image:         observable.Empty[*engine.Image](),
		SimManager:    observable.Empty[*engine.SimManager](),
		SelectedState: observable.Empty[*engine.State](),
		Notices:       observable.NewList[*Notice](),
		logger:        logger.With().Str("component", "session").Logger(),
		loader:        loader,
		levels:        opts.Levels,
	}
	if s.levels != nil {
		s.levels.SetLevel(ParseLogLevel(cfg.Log.Level))
	}

	s.Config.LogLevel.Subscribe(observable.ObserverFunc(func(ev observable.Event[string]) {
		level := ParseLogLevel(ev.Value)
		if s.levels != nil {
			s.levels.SetLevel(level)
		} else {
			s.logger = s.logger.Level(level)
		}
		s.logger.Info().Str("level", ev.Value).Msg("log level changed")
	}))

	lists.Debuggers().Subscribe(observable.ObserverFunc(func(ev observable.Event[[]debugger.Debugger]) {
		if ev.Op() == "remove" || ev.Op() == "clear" {
			s.releaseHooks()
		}
	}))

	if file := cfg.Breakpoints.File; file != "" {
		if err := s.Breakpoints.Load(file); err != nil {
			s.notify(SeverityWarning, "Breakpoints not loaded", err.Error())
		}
	}

	if opts.ConfigPath != "" {
		w, err := watcher.New(opts.ConfigPath, loop,
			func(c *config.Config) {
				if changed := s.Config.Apply(c); len(changed) > 0 {
					s.logger.Info().Strs("changed", changed).Msg("configuration applied")
				}
			},
			watcher.WithLogger(logger),
			watcher.OnError(func(err error) {
				s.notify(SeverityWarning, "Configuration not reloaded", err.Error())
			}),
		)
		if err != nil {
			s.notify(SeverityWarning, "Configuration not watched", err.Error())
		} else {
			s.watcher = w
		}
	}
	return s, nil
}

// Logger returns the session logger.
func (s *Session) Logger() zerolog.Logger {
	return s.logger
}

// Hooks returns the hooks compiled for the loaded image, or nil.
func (s *Session) Hooks() *engine.Hooks {
	return s.hooks
}

func (s *Session) debuggerOptions(name string) []debugger.Option {
	return []debugger.Option{
		debugger.WithName(name),
		debugger.WithLogger(s.logger),
		debugger.WithBreakpoints(s.Breakpoints),
		debugger.WithLimitsFrom(s.limits),
	}
}

// limits reads the current explore settings.
func (s *Session) limits() debugger.Limits {
	return debugger.Limits{
		MaxSteps:      s.Config.MaxSteps.Get(),
		StepLimit:     s.Config.StepLimit.Get(),
		ProgressEvery: s.Config.ProgressEvery.Get(),
	}
}

func (s *Session) register(dbg debugger.Debugger) error {
	s.Debuggers.Add(dbg)
	return s.Current.SetCurrent(dbg)
}

// NewSimulationDebugger creates a simulation debugger over the session's
// simulation manager and makes it current.
func (s *Session) NewSimulationDebugger() (*debugger.Simulation, error) {
	opts := append(s.debuggerOptions("Simulation"), debugger.WithSelectedState(s.SelectedState))
	dbg := debugger.NewSimulation(s.Jobs, s.SimManager, opts...)
	if err := s.register(dbg); err != nil {
		return nil, err
	}
	return dbg, nil
}

// NewTraceDebugger creates a trace debugger over tr and makes it current.
func (s *Session) NewTraceDebugger(tr *engine.Trace) (*debugger.Trace, error) {
	dbg := debugger.NewTrace(s.Jobs, tr, s.debuggerOptions("Trace "+tr.Name)...)
	if err := s.register(dbg); err != nil {
		return nil, err
	}
	return dbg, nil
}

// TraceFromSelection records the history of the selected state, or of the
// first active state, as a trace.
func (s *Session) TraceFromSelection() (*engine.Trace, error) {
	st := s.SelectedState.Get()
	if st == nil {
		sm := s.SimManager.Get()
		if sm == nil || len(sm.Active()) == 0 {
			return nil, ErrNoState
		}
		st = sm.Active()[0]
	}
	return engine.TraceFromState(st.String(), st), nil
}

// NewLiveDebugger starts a process for the loaded image and makes its
// debugger current.
func (s *Session) NewLiveDebugger() (*debugger.Live, error) {
	img := s.Image.Get()
	if img == nil {
		return nil, ErrNoImage
	}
	emu := engine.NewEmulator(img, s.hooks)
	dbg := debugger.NewLive(s.Jobs, emu, s.debuggerOptions("Live "+img.Name)...)
	if err := s.register(dbg); err != nil {
		return nil, err
	}
	return dbg, nil
}

// Shutdown stops every debugger, cancels and drains all jobs, stops the
// configuration watcher and persists breakpoints.
func (s *Session) Shutdown(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, dbg := range s.Debuggers.Debuggers().Items() {
		if err := dbg.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Jobs.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if file := s.Config.BreakpointsFile.Get(); file != "" {
		if err := s.Breakpoints.Save(file); err != nil {
			errs = append(errs, &OperationError{Op: "save breakpoints", Target: file, Err: err})
		}
	}
	s.Current.Close()
	for _, h := range s.retired {
		h.Close()
	}
	s.retired = nil
	if s.hooks != nil {
		s.hooks.Close()
	}
	s.Loop.Stop()
	s.logger.Debug().Msg("session shut down")
	return errors.Join(errs...)
}
