package engine

import (
	"context"
	"fmt"
	"sync"
)

// Emulator runs a single concrete state, taking the first successor at
// every branch. It stands in for a live process and is safe for
// concurrent use.
type Emulator struct {
	mu     sync.Mutex
	img    *Image
	hooks  *Hooks
	state  *State
	exited bool
}

// NewEmulator starts a process at the image entry.
func NewEmulator(img *Image, hooks *Hooks) *Emulator {
	return &Emulator{
		img:   img,
		hooks: hooks,
		state: NewState(1, img.Entry),
	}
}

// Hooks returns the hooks the emulator runs, or nil.
func (e *Emulator) Hooks() *Hooks { return e.hooks }

// PC returns the current program counter.
func (e *Emulator) PC() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PC
}

// Exited reports whether the program has terminated.
func (e *Emulator) Exited() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exited
}

// Regs returns a copy of the register file.
func (e *Emulator) Regs() map[string]uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone().Regs
}

// State returns a copy of the process state.
func (e *Emulator) State() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Step executes one block.
func (e *Emulator) Step(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.exited {
		return ErrExited
	}
	st := e.state
	if e.hooks != nil && e.hooks.Has(st.PC) {
		from := st.PC
		redirected, err := e.hooks.Run(ctx, from, st)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if redirected {
			st.History = append(st.History, from)
			return nil
		}
	}

	b := e.img.Block(st.PC)
	if b == nil {
		return fmt.Errorf("%w %#x", ErrNoBlock, st.PC)
	}
	st.History = append(st.History, st.PC)
	targets := transfer(b, st)
	if len(targets) == 0 {
		e.exited = true
		return nil
	}
	st.PC = targets[0]
	return nil
}

// Kill terminates the process.
func (e *Emulator) Kill() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exited = true
}
