package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// SimManager steps a population of states through an image.
// It is not safe for concurrent use; driving jobs work on a Clone.
type SimManager struct {
	img     *Image
	hooks   *Hooks
	stashes map[string][]*State
	nextID  int
	steps   int
}

// NewSimManager creates a manager with no states.
// hooks may be nil.
func NewSimManager(img *Image, hooks *Hooks) *SimManager {
	return &SimManager{
		img:     img,
		hooks:   hooks,
		stashes: make(map[string][]*State),
	}
}

// NewSimManagerAtEntry creates a manager with one active state at the image entry.
func NewSimManagerAtEntry(img *Image, hooks *Hooks) *SimManager {
	sm := NewSimManager(img, hooks)
	sm.Add(Active, sm.NewState(img.Entry))
	return sm
}

// Image returns the image being simulated.
func (sm *SimManager) Image() *Image { return sm.img }

// Hooks returns the installed hooks, or nil.
func (sm *SimManager) Hooks() *Hooks { return sm.hooks }

// Steps returns how many times Step has run.
func (sm *SimManager) Steps() int { return sm.steps }

// NewState allocates a state at pc with a fresh ID. The state is not stashed.
func (sm *SimManager) NewState(pc uint64) *State {
	sm.nextID++
	return NewState(sm.nextID, pc)
}

// Add appends states to the named stash.
func (sm *SimManager) Add(stash string, states ...*State) {
	sm.stashes[stash] = append(sm.stashes[stash], states...)
}

// Stash returns the states in the named stash.
func (sm *SimManager) Stash(name string) []*State {
	return sm.stashes[name]
}

// Active returns the active states.
func (sm *SimManager) Active() []*State {
	return sm.stashes[Active]
}

// StashNames returns the names of non-empty stashes, sorted.
func (sm *SimManager) StashNames() []string {
	names := make([]string, 0, len(sm.stashes))
	for name, states := range sm.stashes {
		if len(states) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Move transfers every state of from matching pred into to.
// A nil pred matches all states. It returns the number moved.
func (sm *SimManager) Move(from, to string, pred func(*State) bool) int {
	var keep, moved []*State
	for _, st := range sm.stashes[from] {
		if pred == nil || pred(st) {
			moved = append(moved, st)
		} else {
			keep = append(keep, st)
		}
	}
	sm.stashes[from] = keep
	sm.stashes[to] = append(sm.stashes[to], moved...)
	return len(moved)
}

// Drop removes the named stash.
func (sm *SimManager) Drop(stash string) {
	delete(sm.stashes, stash)
}

// Clone returns a deep copy sharing the image and hooks.
func (sm *SimManager) Clone() *SimManager {
	c := &SimManager{
		img:     sm.img,
		hooks:   sm.hooks,
		stashes: make(map[string][]*State, len(sm.stashes)),
		nextID:  sm.nextID,
		steps:   sm.steps,
	}
	for name, states := range sm.stashes {
		cp := make([]*State, len(states))
		for i, st := range states {
			cp[i] = st.Clone()
		}
		c.stashes[name] = cp
	}
	return c
}

// Step advances every active state by one block.
//
// Hooks at a state's address run before its block. A state with no
// successors is moved to deadended; a state with several is forked.
// States that fail are moved to errored and their errors joined into the
// returned error. If ctx is cancelled while a hook runs, that state and
// every state not yet stepped stay active unchanged and ctx.Err() is
// returned with any errors already collected.
func (sm *SimManager) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	active := sm.stashes[Active]
	var next []*State
	var errs []error
	for i, st := range active {
		succ, err := sm.stepState(ctx, st)
		if err != nil && ctx.Err() != nil {
			sm.stashes[Active] = append(next, active[i:]...)
			return errors.Join(append(errs, ctx.Err())...)
		}
		if err != nil {
			st.Err = err.Error()
			sm.Add(Errored, st)
			errs = append(errs, err)
			continue
		}
		if len(succ) == 0 {
			sm.Add(Deadended, st)
			continue
		}
		next = append(next, succ...)
	}
	sm.stashes[Active] = next
	sm.steps++
	return errors.Join(errs...)
}

func (sm *SimManager) stepState(ctx context.Context, st *State) ([]*State, error) {
	if sm.hooks != nil && sm.hooks.Has(st.PC) {
		from := st.PC
		work := st.Clone()
		redirected, err := sm.hooks.Run(ctx, from, work)
		if err != nil {
			return nil, err
		}
		*st = *work
		if redirected {
			st.History = append(st.History, from)
			return []*State{st}, nil
		}
	}

	b := sm.img.Block(st.PC)
	if b == nil {
		return nil, fmt.Errorf("state %d: %w %#x", st.ID, ErrNoBlock, st.PC)
	}
	targets := transfer(b, st)
	if len(targets) == 0 {
		st.History = append(st.History, st.PC)
		return nil, nil
	}

	st.History = append(st.History, st.PC)
	out := make([]*State, len(targets))
	for i, t := range targets {
		s := st
		if i > 0 {
			s = st.Clone()
			sm.nextID++
			s.ID = sm.nextID
		}
		s.PC = t
		out[i] = s
	}
	return out, nil
}

// transfer applies b's control transfer to st's call stack and returns the
// addresses execution may continue at.
func transfer(b *Block, st *State) []uint64 {
	switch b.Kind {
	case JumpExit:
		return nil
	case JumpRet:
		n := len(st.CallStack)
		if n == 0 {
			return nil
		}
		ret := st.CallStack[n-1]
		st.CallStack = st.CallStack[:n-1]
		return []uint64{ret}
	case JumpCall:
		if len(b.Successors) > 0 {
			st.CallStack = append(st.CallStack, b.End())
		}
		return b.Successors
	default:
		return b.Successors
	}
}
