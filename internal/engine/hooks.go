package engine

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Hooks holds Lua procedures keyed by block address.
//
// All hooks share one Lua state. gopher-lua's LState is not goroutine-safe,
// so every call into it holds mu.
type Hooks struct {
	mu    sync.Mutex
	L     *lua.LState
	funcs map[uint64]*lua.LFunction
	src   map[uint64]string
}

// NewHooks creates an empty hook set with a sandboxed Lua state.
func NewHooks() *Hooks {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &Hooks{
		L:     L,
		funcs: make(map[uint64]*lua.LFunction),
		src:   make(map[uint64]string),
	}
}

// HooksFromImage compiles every hook declared by img.
func HooksFromImage(img *Image) (*Hooks, error) {
	h := NewHooks()
	for _, addr := range sortedKeys(img.Hooks) {
		if err := h.AddHook(addr, img.Hooks[addr]); err != nil {
			h.Close()
			return nil, err
		}
	}
	return h, nil
}

// AddHook compiles src, which must define a global function hook(state),
// and installs it at addr. An existing hook at addr is replaced.
func (h *Hooks) AddHook(addr uint64, src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.L == nil {
		return fmt.Errorf("hook %#x: %w", addr, ErrHooksClosed)
	}
	h.L.SetGlobal("hook", lua.LNil)
	if err := h.L.DoString(src); err != nil {
		return fmt.Errorf("hook %#x: %w", addr, err)
	}
	fn, ok := h.L.GetGlobal("hook").(*lua.LFunction)
	h.L.SetGlobal("hook", lua.LNil)
	if !ok {
		return fmt.Errorf("hook %#x: %w", addr, ErrHookNotFunction)
	}
	h.funcs[addr] = fn
	h.src[addr] = src
	return nil
}

// RemoveHook uninstalls the hook at addr.
func (h *Hooks) RemoveHook(addr uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.funcs, addr)
	delete(h.src, addr)
}

// Has reports whether a hook is installed at addr.
func (h *Hooks) Has(addr uint64) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.funcs[addr]
	return ok
}

// Addrs returns the hooked addresses in ascending order.
func (h *Hooks) Addrs() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sortedKeys(h.src)
}

// Run calls the hook at addr with st.
//
// The hook receives a table with fields pc and regs. Register writes are
// copied back into st. Assigning state.pc redirects the state; Run then
// reports redirected so the caller skips the block at addr.
func (h *Hooks) Run(ctx context.Context, addr uint64, st *State) (redirected bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fn, ok := h.funcs[addr]
	if !ok {
		return false, nil
	}
	if h.L == nil {
		return false, fmt.Errorf("hook %#x: %w", addr, ErrHooksClosed)
	}

	L := h.L
	L.SetContext(ctx)
	defer L.RemoveContext()

	tbl := L.NewTable()
	tbl.RawSetString("pc", lua.LNumber(st.PC))
	regs := L.NewTable()
	for name, v := range st.Regs {
		regs.RawSetString(name, lua.LNumber(v))
	}
	tbl.RawSetString("regs", regs)

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, tbl); err != nil {
		return false, fmt.Errorf("hook %#x: %w", addr, err)
	}

	if rt, ok := tbl.RawGetString("regs").(*lua.LTable); ok {
		rt.ForEach(func(k, v lua.LValue) {
			if n, ok := v.(lua.LNumber); ok {
				st.Regs[k.String()] = uint64(n)
			}
		})
	}
	if pc, ok := tbl.RawGetString("pc").(lua.LNumber); ok && uint64(pc) != st.PC {
		st.PC = uint64(pc)
		return true, nil
	}
	return false, nil
}

// Close releases the Lua state.
func (h *Hooks) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.L != nil {
		h.L.Close()
		h.L = nil
	}
}
