package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// TOMLLoader reads one TOML file.
type TOMLLoader struct {
	path     string
	readFile func(string) ([]byte, error)
}

// NewTOMLLoader creates a loader for path. An empty path loads nothing.
func NewTOMLLoader(path string) *TOMLLoader {
	return &TOMLLoader{path: path, readFile: os.ReadFile}
}

// Path returns the file the loader reads.
func (l *TOMLLoader) Path() string { return l.path }

// Load implements Loader. A missing file yields nil, nil.
func (l *TOMLLoader) Load() (map[string]any, error) {
	if l.path == "" {
		return nil, nil
	}
	data, err := l.readFile(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	return decodeTOML(l.path, data)
}

// LoadFromReader decodes TOML from r.
func (l *TOMLLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decodeTOML("<reader>", data)
}

func decodeTOML(source string, data []byte) (map[string]any, error) {
	var m map[string]any
	err := toml.Unmarshal(data, &m)
	if err == nil {
		return m, nil
	}
	pe := &ParseError{Path: source, Err: err}
	var de *toml.DecodeError
	if errors.As(err, &de) {
		pe.Line, pe.Column = de.Position()
	}
	return nil, pe
}

// ParseError locates a syntax error in a configuration source.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
