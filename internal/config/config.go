package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/tracewright/internal/config/loader"
)

// EnvMapping maps environment variables to configuration paths.
var EnvMapping = map[string]string{
	"TRACEWRIGHT_LOG_LEVEL":              "log.level",
	"TRACEWRIGHT_LOG_FORMAT":             "log.format",
	"TRACEWRIGHT_JOBS_WORKERS":           "jobs.workers",
	"TRACEWRIGHT_EXPLORE_MAX_STEPS":      "explore.max_steps",
	"TRACEWRIGHT_EXPLORE_STEP_LIMIT":     "explore.step_limit",
	"TRACEWRIGHT_EXPLORE_PROGRESS_EVERY": "explore.progress_every",
	"TRACEWRIGHT_BREAKPOINTS_FILE":       "breakpoints.file",
}

// Config is the complete tracewright configuration.
type Config struct {
	Log         Log         `toml:"log"`
	Jobs        Jobs        `toml:"jobs"`
	Explore     Explore     `toml:"explore"`
	Breakpoints Breakpoints `toml:"breakpoints"`
}

// Log configures logging.
type Log struct {
	// Level is a zerolog level name.
	Level string `toml:"level"`

	// Format is "console" or "json".
	Format string `toml:"format"`
}

// Jobs configures the job manager.
type Jobs struct {
	// Workers is the number of jobs that may run at once.
	Workers int `toml:"workers"`
}

// Explore bounds debugger driving jobs.
type Explore struct {
	MaxSteps      int `toml:"max_steps"`
	StepLimit     int `toml:"step_limit"`
	ProgressEvery int `toml:"progress_every"`
}

// Breakpoints configures breakpoint persistence.
type Breakpoints struct {
	// File is loaded at startup and saved on exit when set.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:     Log{Level: "info", Format: "console"},
		Jobs:    Jobs{Workers: 1},
		Explore: Explore{MaxSteps: 10000, StepLimit: 1000, ProgressEvery: 16},
	}
}

// Validate checks every value.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || c.Log.Level == "" {
		return &ValidationError{Path: "log.level", Value: c.Log.Level, Message: "unknown level"}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return &ValidationError{Path: "log.format", Value: c.Log.Format, Message: "want console or json"}
	}
	positive := []struct {
		path string
		v    int
	}{
		{"jobs.workers", c.Jobs.Workers},
		{"explore.max_steps", c.Explore.MaxSteps},
		{"explore.step_limit", c.Explore.StepLimit},
		{"explore.progress_every", c.Explore.ProgressEvery},
	}
	for _, p := range positive {
		if p.v < 1 {
			return &ValidationError{Path: p.path, Value: p.v, Message: "must be positive"}
		}
	}
	return nil
}

// Load builds a configuration from defaults, the TOML file at path (which
// may be empty or missing) and environment overrides.
func Load(path string) (*Config, error) {
	return LoadFrom(loader.NewTOMLLoader(path), loader.NewEnvLoader(EnvMapping))
}

// LoadFrom builds a configuration from defaults overlaid by sources in order.
func LoadFrom(sources ...loader.Loader) (*Config, error) {
	merged := make(map[string]any)
	for _, src := range sources {
		m, err := src.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg := Default()
	if len(merged) > 0 {
		data, err := toml.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("encoding merged config: %w", err)
		}
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decoding config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
