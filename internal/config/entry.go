package config

import "github.com/dshills/tracewright/internal/observable"

// Entry is a named runtime-mutable configuration value.
type Entry[T comparable] struct {
	name string
	*observable.Container[T]
}

// NewEntry creates an entry holding v.
func NewEntry[T comparable](name string, v T) *Entry[T] {
	return &Entry[T]{name: name, Container: observable.New(v)}
}

// Name returns the configuration path of the entry.
func (e *Entry[T]) Name() string {
	return e.name
}

// Settings publishes the values that may change while a session runs.
type Settings struct {
	LogLevel        *Entry[string]
	MaxSteps        *Entry[int]
	StepLimit       *Entry[int]
	ProgressEvery   *Entry[int]
	BreakpointsFile *Entry[string]
}

// NewSettings creates entries initialised from cfg.
func NewSettings(cfg *Config) *Settings {
	return &Settings{
		LogLevel:        NewEntry("log.level", cfg.Log.Level),
		MaxSteps:        NewEntry("explore.max_steps", cfg.Explore.MaxSteps),
		StepLimit:       NewEntry("explore.step_limit", cfg.Explore.StepLimit),
		ProgressEvery:   NewEntry("explore.progress_every", cfg.Explore.ProgressEvery),
		BreakpointsFile: NewEntry("breakpoints.file", cfg.Breakpoints.File),
	}
}

// Apply copies cfg into the entries. Only entries whose value differs
// notify. It returns the names of changed entries.
func (s *Settings) Apply(cfg *Config) []string {
	var changed []string
	set := func(name string, ok bool) {
		if ok {
			changed = append(changed, name)
		}
	}
	set(s.LogLevel.Name(), s.LogLevel.Set(cfg.Log.Level))
	set(s.MaxSteps.Name(), s.MaxSteps.Set(cfg.Explore.MaxSteps))
	set(s.StepLimit.Name(), s.StepLimit.Set(cfg.Explore.StepLimit))
	set(s.ProgressEvery.Name(), s.ProgressEvery.Set(cfg.Explore.ProgressEvery))
	set(s.BreakpointsFile.Name(), s.BreakpointsFile.Set(cfg.Breakpoints.File))
	return changed
}
