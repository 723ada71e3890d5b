package engine

import (
	"fmt"
	"sort"
)

// JumpKind classifies how a block transfers control.
type JumpKind string

const (
	// JumpBoring is a plain jump or fall-through.
	JumpBoring JumpKind = "boring"
	// JumpCall is a call; the return site is pushed on the call stack.
	JumpCall JumpKind = "call"
	// JumpRet returns to the top of the call stack.
	JumpRet JumpKind = "ret"
	// JumpExit terminates the program.
	JumpExit JumpKind = "exit"
)

// Block is a basic block of the image.
type Block struct {
	Addr         uint64   `toml:"addr"`
	Size         uint64   `toml:"size"`
	Instructions []uint64 `toml:"instructions"`
	Kind         JumpKind `toml:"kind"`
	Successors   []uint64 `toml:"successors"`
}

// End returns the address just past the block.
func (b *Block) End() uint64 {
	return b.Addr + b.Size
}

// IsSingleCall reports whether the block is one call instruction.
func (b *Block) IsSingleCall() bool {
	return len(b.Instructions) == 1 && b.Kind == JumpCall
}

// Image is a loaded program.
type Image struct {
	Name   string
	Path   string
	Arch   string
	Entry  uint64
	Blocks map[uint64]*Block
	Hooks  map[uint64]string
}

// Block returns the block starting at addr, or nil.
func (img *Image) Block(addr uint64) *Block {
	if img == nil {
		return nil
	}
	return img.Blocks[addr]
}

// Addrs returns the block addresses in ascending order.
func (img *Image) Addrs() []uint64 {
	return sortedKeys(img.Blocks)
}

// Validate checks structural consistency.
func (img *Image) Validate() error {
	if len(img.Blocks) == 0 {
		return fmt.Errorf("image has no blocks")
	}
	if img.Block(img.Entry) == nil {
		return fmt.Errorf("entry %#x is not a block", img.Entry)
	}
	for _, addr := range img.Addrs() {
		b := img.Blocks[addr]
		if b.Size == 0 {
			return fmt.Errorf("block %#x has zero size", addr)
		}
		if b.End() < b.Addr {
			return fmt.Errorf("block %#x overflows the address space", addr)
		}
		switch b.Kind {
		case JumpBoring, JumpCall, JumpRet, JumpExit:
		default:
			return fmt.Errorf("block %#x has unknown kind %q", addr, b.Kind)
		}
		for _, ins := range b.Instructions {
			if ins < b.Addr || ins >= b.End() {
				return fmt.Errorf("block %#x: instruction %#x outside block", addr, ins)
			}
		}
		for _, s := range b.Successors {
			if img.Block(s) == nil {
				return fmt.Errorf("block %#x: successor %#x is not a block", addr, s)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
