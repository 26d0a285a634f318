package arm

import (
	"fmt"

	"github.com/kestrelcore/armjit/arm/ir"
)

// BlockKey packs a guest program counter, its mode, and its Thumb state
// into a single integer, per the design note replacing the source's
// separate key fields: pc in bits 8..39, mode in bits 1..5, the
// Thumb bit in bit 0. Two blocks with the same key produce identical
// architectural behavior given identical guest state (data model
// invariant 3), so the packed integer form is exactly as total a key as
// the tuple it replaces.
type BlockKey uint64

// NewBlockKey builds a key from the current CPSR's mode and Thumb bit and
// a program counter already adjusted back to the executing instruction's
// own address (i.e. with the pipeline offset subtracted out).
func NewBlockKey(pc uint32, mode ir.GuestMode, thumb bool) BlockKey {
	key := uint64(pc) << 8
	key |= uint64(mode) << 1
	if thumb {
		key |= 1
	}
	return BlockKey(key)
}

func (k BlockKey) PC() uint32        { return uint32(k >> 8) }
func (k BlockKey) Mode() ir.GuestMode { return ir.GuestMode((k >> 1) & 0x1F) }
func (k BlockKey) Thumb() bool       { return k&1 != 0 }
func (k BlockKey) Valid() bool       { return k != 0 }

func (k BlockKey) String() string {
	return fmt.Sprintf("%#x[mode=%#x,thumb=%v]", k.PC(), uint8(k.Mode()), k.Thumb())
}

// BasicBlock is a maximal straight-line run of guest instructions ending
// at a control-flow boundary: an ordered list of micro-blocks, an
// optional statically known successor key, and whatever the backend
// produced for it. Once inserted into the cache a BasicBlock is immutable
// except for outright invalidation (data model invariant 4).
type BasicBlock struct {
	Key BlockKey

	MicroBlocks []ir.MicroBlock

	// BranchTarget is the successor key computed by the translator when
	// the last instruction's target didn't depend on runtime state.
	// Zero (an invalid key, since PC 0 with mode 0 never occurs for a
	// live block) when the successor requires re-dispatch.
	BranchTarget BlockKey

	// Compiled is backend-owned state produced by Backend.Compile,
	// opaque to this package.
	Compiled any

	// spanLo/spanHi bound the guest instruction addresses this block was
	// translated from, in ascending order, used for range-flush
	// intersection tests. instrWidth is 4 for every micro-block in a
	// non-Thumb block; spanHi is the last micro-block's address plus one
	// instruction width.
	spanLo, spanHi uint32
}

// intersects reports whether this block's guest address span overlaps
// [lo, hi], inclusive, per the block cache's range-flush contract.
func (b *BasicBlock) intersects(lo, hi uint32) bool {
	return b.spanLo <= hi && lo <= b.spanHi
}
