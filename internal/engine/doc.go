// Package engine is the binary-analysis collaborator used by the debugger
// core: a loaded program image, a simulation manager with named stashes of
// execution states, recorded traces, and a single-state emulator standing in
// for a live process.
//
// Images are described in TOML:
//
//	name  = "demo"
//	arch  = "amd64"
//	entry = 0x1000
//
//	[[blocks]]
//	addr         = 0x1000
//	size         = 5
//	instructions = [0x1000]
//	kind         = "call"
//	successors   = [0x2000]
//
//	[[hooks]]
//	addr = 0x2000
//	lua  = "function hook(state) state.regs.rax = 1 end"
//
// A call block pushes its return site (addr+size) on the state's call stack
// and a ret block pops it. A state whose block has no successor, or whose
// block kind is exit, moves to the deadended stash.
//
// Hooks are sandboxed Lua functions run before the block at their address
// executes. They see the state as a table with pc and regs fields and may
// modify both.
//
// SimManager values are not safe for concurrent use. Driving jobs step a
// Clone taken on the control thread and hand the result back.
package engine
