package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tracewright/internal/observable"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracewright.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[explore]
max_steps = 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 50, cfg.Explore.MaxSteps)
	assert.Equal(t, 1000, cfg.Explore.StepLimit)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[jobs]\nworkers = 4\n")
	t.Setenv("TRACEWRIGHT_JOBS_WORKERS", "2")
	t.Setenv("TRACEWRIGHT_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
	}{
		{"level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"format", "[log]\nformat = \"xml\"\n", "log.format"},
		{"workers", "[jobs]\nworkers = 0\n", "jobs.workers"},
		{"steps", "[explore]\nstep_limit = -1\n", "explore.step_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.path, ve.Path)
		})
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "[jobs]\nthreads = 3\n"))
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestSettings_ApplyNotifiesChangesOnly(t *testing.T) {
	cfg := Default()
	s := NewSettings(cfg)

	var levels []string
	s.LogLevel.Subscribe(observable.ObserverFunc(func(ev observable.Event[string]) {
		levels = append(levels, ev.Value)
	}))
	steps := 0
	s.MaxSteps.Subscribe(observable.ObserverFunc(func(observable.Event[int]) { steps++ }))

	next := Default()
	next.Log.Level = "warn"
	changed := s.Apply(next)

	assert.Equal(t, []string{"log.level"}, changed)
	assert.Equal(t, []string{"warn"}, levels)
	assert.Equal(t, 0, steps)
	assert.Empty(t, s.Apply(next))
}
