package debugger

import "github.com/dshills/tracewright/internal/engine"

// StepOverTarget returns the return site of a block consisting of a single
// call instruction, or nil for any other block.
func StepOverTarget(b *engine.Block) *uint64 {
	if b == nil || !b.IsSingleCall() {
		return nil
	}
	addr := b.Addr + b.Size
	return &addr
}

// StepOver steps dbg over the call at its current address, or performs a
// plain step when the current block is not a single call.
func StepOver(dbg Debugger, img *engine.Image) error {
	var until *uint64
	if loc, ok := dbg.(Locator); ok && img != nil {
		if pc, ok := loc.PC(); ok {
			until = StepOverTarget(img.Block(pc))
		}
	}
	return dbg.StepForward(until)
}
