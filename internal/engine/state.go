package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Stash names used by the simulation manager.
const (
	Active    = "active"
	Deadended = "deadended"
	Found     = "found"
	Errored   = "errored"
)

// State is one execution state.
type State struct {
	ID        int               `toml:"id"`
	PC        uint64            `toml:"pc"`
	Regs      map[string]uint64 `toml:"regs"`
	CallStack []uint64          `toml:"call_stack"`
	History   []uint64          `toml:"history"`
	Err       string            `toml:"error,omitempty"`
}

// NewState creates a state at pc with empty registers.
func NewState(id int, pc uint64) *State {
	return &State{ID: id, PC: pc, Regs: make(map[string]uint64)}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := &State{
		ID:        s.ID,
		PC:        s.PC,
		Regs:      make(map[string]uint64, len(s.Regs)),
		CallStack: append([]uint64(nil), s.CallStack...),
		History:   append([]uint64(nil), s.History...),
		Err:       s.Err,
	}
	for k, v := range s.Regs {
		c.Regs[k] = v
	}
	return c
}

// String returns a compact description of the state.
func (s *State) String() string {
	names := make([]string, 0, len(s.Regs))
	for name := range s.Regs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "<State %d @ %#x", s.ID, s.PC)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%#x", name, s.Regs[name])
	}
	b.WriteString(">")
	return b.String()
}
