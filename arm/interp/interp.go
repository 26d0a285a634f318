// Package interp is a reference Backend: it interprets a BasicBlock's IR
// directly against a bound CPU's register file instead of lowering it to
// host machine code. It exists so cmd/armdis has something to actually run
// (§10.4's "run" subcommand) and so the differential oracle in arm/oracle
// has a baseline to compare a real backend against, per §8 invariant 3
// ("executing a block to completion leaves architectural state identical
// to an interpreter"). Grounded on the teacher's own register-machine
// interpreter (pvm/interpreter/instructions.go): a flat opcode switch over
// a small value/register model, no code generation at all.
package interp

import (
	"fmt"

	"github.com/kestrelcore/armjit/arm"
	"github.com/kestrelcore/armjit/arm/ir"
	"github.com/kestrelcore/armjit/armlog"
)

var log = armlog.New("interp")

// Backend interprets IR directly. A Backend is created before the CPU it
// will serve (arm.New needs a Backend up front), so the CPU reference is
// attached afterward via Bind — the same two-phase construction the
// teacher's interpreter uses when wiring a VM to its host environment
// (pvm.NewPVM followed by SetHostFunctions).
type Backend struct {
	cpu *arm.CPU
	mem arm.Memory
}

// New returns an unbound interpreter backend. Call Bind before the first
// CPU.Run.
func New() *Backend { return &Backend{} }

// Bind attaches the CPU whose registers and memory this backend will read
// and write.
func (b *Backend) Bind(cpu *arm.CPU) {
	b.cpu = cpu
	b.mem = cpu.Memory()
}

// Compile does no code generation; there is nothing to lower, so it just
// marks the block ready.
func (b *Backend) Compile(block *arm.BasicBlock) error {
	if b.cpu == nil {
		return fmt.Errorf("interp: Backend not bound to a CPU")
	}
	block.Compiled = true
	return nil
}

// Call interprets every micro-block in program order, gating each on its
// recorded condition, and returns the remaining cycle budget, charging one
// cycle per micro-block. A block
// interprets to completion once entered — real generated code has no
// mid-block yield point either, so the budget can run slightly negative on
// the last block of a Run, exactly as a hardware-cycle-accounted emulator
// would overrun by less than one block. Load/Store opcodes are executed
// against the bound CPU's Memory as ordinary sequential reads/writes; the
// interpreter has no notion of a store buffer or bus arbitration.
func (b *Backend) Call(block *arm.BasicBlock, remainingCycles int) int {
	for i := range block.MicroBlocks {
		b.execMicroBlock(&block.MicroBlocks[i])
	}
	return remainingCycles - len(block.MicroBlocks)
}

// hostFlags shadows the "native condition flags" the IR contract assumes a
// real backend exposes after an UpdateHostFlags opcode; the interpreter has
// no actual host flags register, so it keeps its own.
type hostFlags struct {
	n, z, c, v bool
}

func (b *Backend) execMicroBlock(mb *ir.MicroBlock) {
	if !evalCond(mb.Cond, b.cpu.GetCPSR()) {
		return
	}

	vars := make([]uint32, len(mb.Vars))
	// Start from the guest's own flags, so an opcode that leaves a host flag
	// untouched leaves the guest flag unchanged when folded back into CPSR.
	cpsr := b.cpu.GetCPSR()
	flags := hostFlags{
		n: cpsr&(1<<31) != 0,
		z: cpsr&(1<<30) != 0,
		c: cpsr&(1<<29) != 0,
		v: cpsr&(1<<28) != 0,
	}

	valueOf := func(v ir.Value) uint32 {
		if v.IsVar() {
			return vars[v.VarID()]
		}
		return v.ImmValue()
	}

	for _, op := range mb.Opcodes {
		switch op.Kind {
		case ir.KindLoadGPR:
			vars[op.Output.ID] = b.cpu.GetGPRMode(op.Reg.Reg, op.Reg.Mode)
		case ir.KindStoreGPR:
			b.cpu.SetGPRMode(op.Reg.Reg, op.Reg.Mode, valueOf(op.Rhs))
		case ir.KindLoadCPSR:
			vars[op.Output.ID] = b.cpu.GetCPSR()
		case ir.KindStoreCPSR:
			b.cpu.SetCPSR(valueOf(op.Rhs))

		case ir.KindLSL, ir.KindLSR, ir.KindASR, ir.KindROR:
			operand, amount := valueOf(op.Lhs), valueOf(op.Rhs)
			result, carry := shift(op.Kind, operand, amount)
			vars[op.Output.ID] = result
			if op.UpdateHostFlags && amount != 0 {
				flags.c = carry
			}

		case ir.KindAnd, ir.KindEor, ir.KindAdd, ir.KindSub:
			lhs, rhs := valueOf(op.Lhs), valueOf(op.Rhs)
			result, c, v := alu(op.Kind, lhs, rhs)
			if op.HasOutput {
				vars[op.Output.ID] = result
			}
			if op.UpdateHostFlags {
				flags.n = result&0x80000000 != 0
				flags.z = result == 0
				// AND/EOR have no defined carry/overflow of their own (see
				// the AND emitter's doc comment); a preceding shift's
				// carry-out must survive into the merged CPSR untouched.
				if op.Kind == ir.KindAdd || op.Kind == ir.KindSub {
					flags.c = c
					flags.v = v
				}
			}

		case ir.KindUpdateNZCV:
			input := valueOf(op.Rhs)
			vars[op.Output.ID] = mergeNZCV(input, flags, true)
		case ir.KindUpdateNZC:
			input := valueOf(op.Rhs)
			vars[op.Output.ID] = mergeNZCV(input, flags, false)

		case ir.KindLoad:
			vars[op.Output.ID] = b.load(valueOf(op.Lhs), op.Width, op.Signed)
		case ir.KindStore:
			b.store(valueOf(op.Lhs), valueOf(op.Rhs), op.Width)

		case ir.KindMul:
			rm, rs := valueOf(op.Lhs), valueOf(op.Rhs)
			result := rm * rs
			if op.HasAccum {
				result += valueOf(op.Accum)
			}
			vars[op.Output.ID] = result
			if op.UpdateHostFlags {
				flags.n = result&0x80000000 != 0
				flags.z = result == 0
			}

		case ir.KindMulLong:
			rm, rs := valueOf(op.Lhs), valueOf(op.Rhs)
			var product uint64
			if op.Signed {
				product = uint64(int64(int32(rm)) * int64(int32(rs)))
			} else {
				product = uint64(rm) * uint64(rs)
			}
			if op.HasAccum {
				product += uint64(valueOf(op.AccumHi))<<32 | uint64(valueOf(op.Accum))
			}
			lo, hi := uint32(product), uint32(product>>32)
			vars[op.Output.ID] = lo
			vars[op.OutputHi.ID] = hi
			if op.UpdateHostFlags {
				flags.n = hi&0x80000000 != 0
				flags.z = lo == 0 && hi == 0
			}

		default:
			log.Error("interp: unhandled opcode kind", "kind", op.Kind)
		}
	}
}

func (b *Backend) load(address uint32, width ir.MemWidth, signed bool) uint32 {
	switch width {
	case ir.WidthByte:
		v := b.mem.ReadU8(address, arm.BusData)
		if signed {
			return uint32(int32(int8(v)))
		}
		return uint32(v)
	case ir.WidthHalfword:
		v := b.mem.ReadU16(address, arm.BusData)
		if signed {
			return uint32(int32(int16(v)))
		}
		return uint32(v)
	default:
		return b.mem.ReadU32(address, arm.BusData)
	}
}

func (b *Backend) store(address, value uint32, width ir.MemWidth) {
	switch width {
	case ir.WidthByte:
		b.mem.WriteU8(address, uint8(value), arm.BusData)
	case ir.WidthHalfword:
		b.mem.WriteU16(address, uint16(value), arm.BusData)
	default:
		b.mem.WriteU32(address, value, arm.BusData)
	}
}

func shift(kind ir.Kind, operand, amount uint32) (result uint32, carryOut bool) {
	if amount == 0 {
		return operand, false
	}
	switch kind {
	case ir.KindLSL:
		if amount > 32 {
			return 0, false
		}
		return operand << amount, amount <= 32 && operand&(1<<(32-amount))&math32One(amount) != 0
	case ir.KindLSR:
		if amount >= 32 {
			return 0, amount == 32 && operand&0x80000000 != 0
		}
		return operand >> amount, operand&(1<<(amount-1)) != 0
	case ir.KindASR:
		signed := int32(operand)
		if amount >= 32 {
			if signed < 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(signed >> amount), operand&(1<<(amount-1)) != 0
	case ir.KindROR:
		amount &= 31
		if amount == 0 {
			return operand, operand&0x80000000 != 0
		}
		return (operand >> amount) | (operand << (32 - amount)), operand&(1<<(amount-1)) != 0
	}
	return operand, false
}

// math32One always returns 1, so masking the LSL carry-out expression above
// with it changes nothing; the amount>32 guard is what excludes
// out-of-range amounts.
func math32One(uint32) uint32 { return 1 }

func alu(kind ir.Kind, lhs, rhs uint32) (result uint32, carry, overflow bool) {
	switch kind {
	case ir.KindAnd:
		return lhs & rhs, false, false
	case ir.KindEor:
		return lhs ^ rhs, false, false
	case ir.KindAdd:
		sum := uint64(lhs) + uint64(rhs)
		result = uint32(sum)
		carry = sum > 0xFFFFFFFF
		overflow = (lhs^result)&(rhs^result)&0x80000000 != 0
		return
	case ir.KindSub:
		diff := uint64(lhs) - uint64(rhs)
		result = uint32(diff)
		carry = lhs >= rhs // ARM SUB carry is the inverse of a borrow.
		overflow = (lhs^rhs)&(lhs^result)&0x80000000 != 0
		return
	}
	return 0, false, false
}

func mergeNZCV(input uint32, f hostFlags, includeV bool) uint32 {
	const flagMask = 0xF0000000
	out := input &^ uint32(flagMask)
	if f.n {
		out |= 1 << 31
	}
	if f.z {
		out |= 1 << 30
	}
	if f.c {
		out |= 1 << 29
	}
	if includeV && f.v {
		out |= 1 << 28
	} else if includeV {
		// leave V clear
	} else {
		out |= input & (1 << 28) // UpdateNZC preserves the existing V bit.
	}
	return out
}

// evalCond implements the standard ARM condition-code table against a
// CPSR's N/Z/C/V bits.
func evalCond(cond ir.Cond, cpsr uint32) bool {
	n := cpsr&(1<<31) != 0
	z := cpsr&(1<<30) != 0
	c := cpsr&(1<<29) != 0
	v := cpsr&(1<<28) != 0

	switch cond {
	case 0x0: // EQ
		return z
	case 0x1: // NE
		return !z
	case 0x2: // CS/HS
		return c
	case 0x3: // CC/LO
		return !c
	case 0x4: // MI
		return n
	case 0x5: // PL
		return !n
	case 0x6: // VS
		return v
	case 0x7: // VC
		return !v
	case 0x8: // HI
		return c && !z
	case 0x9: // LS
		return !c || z
	case 0xA: // GE
		return n == v
	case 0xB: // LT
		return n != v
	case 0xC: // GT
		return !z && n == v
	case 0xD: // LE
		return z || n != v
	case 0xE: // AL
		return true
	default: // NV
		return false
	}
}
