package app

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ParseLogLevel parses a level name. Unknown names yield InfoLevel.
func ParseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return zerolog.WarnLevel
	case "":
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// LevelSwitch is a zerolog.LevelWriter whose threshold may change while
// loggers writing through it are in use. Every logger derived from one
// NewLogger call shares it.
type LevelSwitch struct {
	out   io.Writer
	level atomic.Int32
}

// NewLevelSwitch creates a switch forwarding events at or above level to out.
func NewLevelSwitch(out io.Writer, level zerolog.Level) *LevelSwitch {
	s := &LevelSwitch{out: out}
	s.SetLevel(level)
	return s
}

// Level returns the current threshold.
func (s *LevelSwitch) Level() zerolog.Level {
	return zerolog.Level(s.level.Load())
}

// SetLevel changes the threshold. It is safe for concurrent use.
func (s *LevelSwitch) SetLevel(level zerolog.Level) {
	s.level.Store(int32(level))
}

// Write implements io.Writer for events without a level.
func (s *LevelSwitch) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// WriteLevel implements zerolog.LevelWriter.
func (s *LevelSwitch) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level != zerolog.NoLevel && level < s.Level() {
		return len(p), nil
	}
	return s.out.Write(p)
}

// NewLogger creates the application logger. format is "json" or "console";
// a nil w writes to stderr. The returned switch holds the threshold, so a
// level change reaches every logger derived from the result.
func NewLogger(w io.Writer, level, format string) (zerolog.Logger, *LevelSwitch) {
	if w == nil {
		w = os.Stderr
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	levels := NewLevelSwitch(w, ParseLogLevel(level))
	logger := zerolog.New(levels).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Str("app", "tracewright").
		Logger()
	return logger, levels
}
