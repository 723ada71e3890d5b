package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Trace is a recorded sequence of program counters.
type Trace struct {
	Name string   `toml:"name"`
	PCs  []uint64 `toml:"pcs"`
}

// TraceFromState builds a trace from a state's history followed by its pc.
func TraceFromState(name string, st *State) *Trace {
	pcs := make([]uint64, 0, len(st.History)+1)
	pcs = append(pcs, st.History...)
	pcs = append(pcs, st.PC)
	return &Trace{Name: name, PCs: pcs}
}

// Len returns the number of recorded positions.
func (t *Trace) Len() int { return len(t.PCs) }

// At returns the pc at position i.
func (t *Trace) At(i int) uint64 { return t.PCs[i] }

// LoadTrace reads a TOML trace file.
func LoadTrace(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "cannot open", Err: err}
	}
	defer f.Close()
	return ReadTrace(path, f)
}

// ReadTrace decodes a trace from r; name is used in errors.
func ReadTrace(name string, r io.Reader) (*Trace, error) {
	var t Trace
	if err := toml.NewDecoder(r).Decode(&t); err != nil {
		return nil, &LoadError{Path: name, Reason: "invalid trace", Err: err}
	}
	if len(t.PCs) == 0 {
		return nil, &LoadError{Path: name, Reason: "trace is empty"}
	}
	if t.Name == "" {
		t.Name = name
	}
	return &t, nil
}

// WriteTrace encodes t as TOML.
func WriteTrace(w io.Writer, t *Trace) error {
	if err := toml.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}
	return nil
}
