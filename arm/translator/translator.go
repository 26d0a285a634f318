// Package translator drives ARM instruction decoding and emits the
// corresponding IR into one micro-block per instruction, mirroring the
// shape of the reference Translator: one Translate call per instruction,
// itself acting as the decode sink.
package translator

import (
	"github.com/kestrelcore/armjit/arm/decode"
	"github.com/kestrelcore/armjit/arm/ir"
	"github.com/kestrelcore/armjit/armlog"
)

var log = armlog.New("translate")

const instrWidth = 4 // ARM state only; Thumb is out of scope.

// Result carries everything the caller (the basic-block compile loop) needs
// to decide whether to keep pulling instructions into this block.
type Result struct {
	Block ir.MicroBlock

	// Terminated is true when this instruction ends the basic block: a
	// branch or any other instruction that writes PC. A refusal is reported
	// through Translate's ok result instead and leaves Terminated false.
	Terminated bool

	// BranchTarget is the statically known successor guest address, valid
	// only when Terminated and the target didn't depend on runtime state
	// (register-relative branches leave this at zero).
	BranchTarget uint32
	HasBranchTarget bool
}

// Translator translates exactly one guest instruction per call. The caller
// (the basic-block builder) is responsible for looping until Result.Terminated
// and for all guest memory access — this type never reads guest memory itself.
type Translator struct {
	mode    ir.GuestMode
	address uint32
	emitter *ir.Emitter
	result  Result
}

// New returns a translator for guest mode. The mode determines which
// banked register file GPR references resolve against.
func New(mode ir.GuestMode) *Translator {
	return &Translator{mode: mode}
}

// Translate decodes word (the instruction found at address) and emits its
// IR. It refuses (returns ok=false) for Thumb addresses (bit 0 set), for
// undefined encodings, and for instruction families this IR cannot express
// (see the per-family comments below) — refusal and block termination are
// the same event, per the error taxonomy this module implements.
func (t *Translator) Translate(address uint32, word uint32) (Result, bool) {
	if address&1 != 0 {
		log.Debug("refusing thumb-mode address", "address", address)
		return Result{}, false
	}

	t.address = address
	t.emitter = ir.NewEmitter(address)
	t.result = Result{}

	ok := decode.Decode[bool](word, t)
	t.result.Block = t.emitter.Block()
	return t.result, ok
}

func (t *Translator) reg(index uint8) ir.GuestReg {
	return ir.GuestReg{Mode: t.mode, Reg: index}
}

func (t *Translator) loadVar(index uint8, label string) ir.Variable {
	v := t.emitter.CreateVar(ir.UInt32, label)
	t.emitter.LoadGPR(t.reg(index), v)
	return v
}

// EmitUpdateNZCV is the canonical fold for arithmetic-family opcodes (ADD,
// SUB and their carry-in variants, CMP, CMN): load CPSR, fold the host's
// NZCV onto it, store it back.
func (t *Translator) EmitUpdateNZCV() {
	in := t.emitter.CreateVar(ir.StatusRegister, "cpsr_in")
	out := t.emitter.CreateVar(ir.StatusRegister, "cpsr_out")
	t.emitter.LoadCPSR(in)
	t.emitter.UpdateNZCV(out, in)
	t.emitter.StoreCPSR(ir.VarValue(out))
}

// EmitUpdateNZC is EmitUpdateNZCV's counterpart for logical-family opcodes
// (AND, EOR, TST, TEQ, MOV, MVN, ORR, BIC), which never define the guest V
// flag.
func (t *Translator) EmitUpdateNZC() {
	in := t.emitter.CreateVar(ir.StatusRegister, "cpsr_in")
	out := t.emitter.CreateVar(ir.StatusRegister, "cpsr_out")
	t.emitter.LoadCPSR(in)
	t.emitter.UpdateNZC(out, in)
	t.emitter.StoreCPSR(ir.VarValue(out))
}

// storePC writes newAddr — the raw architectural address execution will
// continue at — as the new PC. Register storage always holds
// executing-instruction-address + 2*instr_width (invariant 5), so every
// write to r15 must bake in that offset here; ARM never adds it at
// write-time itself; only reads of r15 as an operand observe it.
func (t *Translator) storePC(newAddr ir.Value) {
	if !newAddr.IsVar() {
		t.emitter.StoreGPR(t.reg(15), ir.ConstU32(newAddr.ImmValue()+2*instrWidth))
		return
	}
	adjusted := t.emitter.CreateVar(ir.UInt32, "pc_store")
	t.emitter.ADD(&adjusted, newAddr, ir.ConstU32(2*instrWidth), false)
	t.emitter.StoreGPR(t.reg(15), ir.VarValue(adjusted))
}

func (t *Translator) terminate(staticTarget uint32, known bool) {
	t.result.Terminated = true
	if known {
		t.result.HasBranchTarget = true
		t.result.BranchTarget = staticTarget
	}
}

func rotateLeft32(v, amount uint32) uint32 {
	amount %= 32
	if amount == 0 {
		return v
	}
	return (v << amount) | (v >> (32 - amount))
}

// resolveOperand2 realizes a decoded shifter operand as an IR value,
// emitting a shift opcode only when the guest operation could actually
// change the host carry flag (obligation 1 of §4.4): a zero-rotate
// immediate or a bare LSL#0 register form leaves the carry untouched and
// is passed through as a plain value with no shift IR at all.
func (t *Translator) resolveOperand2(op2 decode.Operand2, setFlags bool) ir.Value {
	if op2.Immediate {
		if op2.Rotate == 0 {
			return ir.ConstU32(op2.Imm)
		}
		imm8 := rotateLeft32(op2.Imm, op2.Rotate)
		result := t.emitter.CreateVar(ir.UInt32, "op2")
		t.emitter.ROR(result, ir.ConstU32(imm8), ir.ConstU32(op2.Rotate), setFlags)
		return ir.VarValue(result)
	}

	rm := t.loadVar(op2.Rm, "rm")

	var amount ir.Value
	if op2.ShiftAmountIsReg {
		rs := t.loadVar(op2.Rs, "rs")
		amount = ir.VarValue(rs)
	} else {
		if op2.ShiftImm == 0 && op2.ShiftKind == decode.ShiftLSL {
			return ir.VarValue(rm)
		}
		amount = ir.ConstU32(uint32(op2.ShiftImm))
	}

	result := t.emitter.CreateVar(ir.UInt32, "op2")
	switch op2.ShiftKind {
	case decode.ShiftLSL:
		t.emitter.LSL(result, ir.VarValue(rm), amount, setFlags)
	case decode.ShiftLSR:
		t.emitter.LSR(result, ir.VarValue(rm), amount, setFlags)
	case decode.ShiftASR:
		t.emitter.ASR(result, ir.VarValue(rm), amount, setFlags)
	case decode.ShiftROR:
		t.emitter.ROR(result, ir.VarValue(rm), amount, setFlags)
	}
	return ir.VarValue(result)
}

const allOnes = 0xFFFFFFFF

// bitwiseOr synthesizes result = a|b from AND/EOR: the two are disjoint
// bit-for-bit (a^b sets exactly the bits where a and b differ, a&b sets
// exactly the bits where they agree at 1), so their XOR reconstructs a|b
// exactly. The final EOR carries updateHostFlags.
func (t *Translator) bitwiseOr(result *ir.Variable, a, b ir.Value, updateHostFlags bool) {
	xor := t.emitter.CreateVar(ir.UInt32, "or_xor")
	and := t.emitter.CreateVar(ir.UInt32, "or_and")
	t.emitter.EOR(&xor, a, b, false)
	t.emitter.AND(&and, a, b, false)
	t.emitter.EOR(result, ir.VarValue(xor), ir.VarValue(and), updateHostFlags)
}

func (t *Translator) bitwiseNot(v ir.Value) ir.Value {
	result := t.emitter.CreateVar(ir.UInt32, "not")
	t.emitter.EOR(&result, v, ir.ConstU32(allOnes), false)
	return ir.VarValue(result)
}

// HandleDataProcessing realizes AND..MVN. The IR has no dedicated move, or,
// bic, or carry-in opcode; MOV/MVN/ORR/BIC are synthesized from AND/EOR,
// and ADC/SBC/RSC approximate the carry-in by folding CPSR.C through a
// second ADD/SUB rather than a single 3-operand op — see the comment on
// emitCarryIn.
func (t *Translator) HandleDataProcessing(d decode.DataProcessing) bool {
	t.emitter.SetCond(ir.Cond(d.Cond))
	op2 := t.resolveOperand2(d.Op2, d.SetFlags)

	var rn ir.Value
	needsRn := d.Opcode != decode.DPMov && d.Opcode != decode.DPMvn
	if needsRn {
		rn = ir.VarValue(t.loadVar(d.Rn, "rn"))
	}

	flagOnly := d.Opcode.FlagOnly()
	var resultVar ir.Variable
	var result *ir.Variable
	if !flagOnly {
		resultVar = t.emitter.CreateVar(ir.UInt32, "dpresult")
		result = &resultVar
	}

	logical := true
	switch d.Opcode {
	case decode.DPAnd, decode.DPTst:
		t.emitter.AND(result, rn, op2, d.SetFlags)
	case decode.DPEor, decode.DPTeq:
		t.emitter.EOR(result, rn, op2, d.SetFlags)
	case decode.DPSub, decode.DPCmp:
		t.emitter.SUB(result, rn, op2, d.SetFlags)
		logical = false
	case decode.DPRsb:
		t.emitter.SUB(result, op2, rn, d.SetFlags)
		logical = false
	case decode.DPAdd, decode.DPCmn:
		t.emitter.ADD(result, rn, op2, d.SetFlags)
		logical = false
	case decode.DPAdc:
		t.emitCarryIn(result, rn, op2, d.SetFlags, false)
		logical = false
	case decode.DPSbc:
		t.emitCarryIn(result, rn, op2, d.SetFlags, true)
		logical = false
	case decode.DPRsc:
		t.emitCarryIn(result, op2, rn, d.SetFlags, true)
		logical = false
	case decode.DPOrr:
		t.bitwiseOr(result, rn, op2, d.SetFlags)
	case decode.DPMov:
		t.emitter.EOR(result, ir.ConstU32(0), op2, d.SetFlags)
	case decode.DPBic:
		notOp2 := t.bitwiseNot(op2)
		t.emitter.AND(result, rn, notOp2, d.SetFlags)
	case decode.DPMvn:
		t.emitter.EOR(result, ir.ConstU32(allOnes), op2, d.SetFlags)
	}

	if !flagOnly && d.Rd != 15 {
		t.emitter.StoreGPR(t.reg(d.Rd), ir.VarValue(resultVar))
	}

	if d.SetFlags {
		if logical {
			t.EmitUpdateNZC()
		} else {
			t.EmitUpdateNZCV()
		}
	}

	if !flagOnly && d.Rd == 15 {
		t.storePC(ir.VarValue(resultVar))
		t.terminate(0, false) // runtime-computed target, not statically known
	}

	return true
}

// emitCarryIn approximates ADC/SBC/RSC by chaining two ADD/SUB opcodes: the
// primary operation, then folding in CPSR.C. This does not reproduce the
// exact host carry-out of a genuine 3-operand add on the rare boundary case
// where the intermediate result is 0xFFFFFFFF and the carry-in is 1; the
// IR has no 3-input arithmetic opcode to express that exactly.
func (t *Translator) emitCarryIn(result *ir.Variable, lhs, rhs ir.Value, setFlags bool, subtract bool) {
	cpsr := t.emitter.CreateVar(ir.StatusRegister, "cpsr")
	t.emitter.LoadCPSR(cpsr)
	carryBit := t.emitter.CreateVar(ir.UInt32, "carry_bit")
	carryMasked := t.emitter.CreateVar(ir.UInt32, "carry_masked")
	t.emitter.AND(&carryMasked, ir.VarValue(cpsr), ir.ConstU32(1<<29), false)
	t.emitter.LSR(carryBit, ir.VarValue(carryMasked), ir.ConstU32(29), false)

	primary := t.emitter.CreateVar(ir.UInt32, "carryin_primary")
	if subtract {
		t.emitter.SUB(&primary, lhs, rhs, false)
		notCarry := t.emitter.CreateVar(ir.UInt32, "not_carry")
		t.emitter.EOR(&notCarry, ir.VarValue(carryBit), ir.ConstU32(1), false)
		t.emitter.SUB(result, ir.VarValue(primary), ir.VarValue(notCarry), setFlags)
	} else {
		t.emitter.ADD(&primary, lhs, rhs, false)
		t.emitter.ADD(result, ir.VarValue(primary), ir.VarValue(carryBit), setFlags)
	}
}

// HandleStatusRegisterMove realizes MRS/MSR against CPSR. SPSR access has
// no corresponding IR opcode (there is no load_spsr/store_spsr in the fixed
// opcode set) and is refused.
func (t *Translator) HandleStatusRegisterMove(m decode.StatusRegisterMove) bool {
	if m.Reg == decode.StatusSPSR {
		log.Debug("refusing SPSR access, no IR opcode for it")
		return false
	}
	t.emitter.SetCond(ir.Cond(m.Cond))

	if !m.ToStatus {
		cpsr := t.emitter.CreateVar(ir.StatusRegister, "cpsr")
		t.emitter.LoadCPSR(cpsr)
		t.emitter.StoreGPR(t.reg(m.Rd), ir.VarValue(cpsr))
		return true
	}

	var src ir.Value
	if m.Immediate {
		src = ir.ConstU32(m.Imm)
	} else {
		src = ir.VarValue(t.loadVar(m.Rm, "msr_src"))
	}

	mask := uint32(0)
	if m.Fsxc&0x1 != 0 {
		mask |= 0x000000FF
	}
	if m.Fsxc&0x2 != 0 {
		mask |= 0x0000FF00
	}
	if m.Fsxc&0x4 != 0 {
		mask |= 0x00FF0000
	}
	if m.Fsxc&0x8 != 0 {
		mask |= 0xFF000000
	}

	cur := t.emitter.CreateVar(ir.StatusRegister, "cpsr")
	t.emitter.LoadCPSR(cur)

	maskedSrc := t.emitter.CreateVar(ir.UInt32, "msr_masked_src")
	maskedCur := t.emitter.CreateVar(ir.UInt32, "msr_masked_cur")
	t.emitter.AND(&maskedSrc, src, ir.ConstU32(mask), false)
	t.emitter.AND(&maskedCur, ir.VarValue(cur), ir.ConstU32(^mask), false)

	// The two masked halves cover complementary bit sets, so EOR merges them
	// exactly as OR would.
	merged := t.emitter.CreateVar(ir.StatusRegister, "msr_merged")
	t.emitter.EOR(&merged, ir.VarValue(maskedSrc), ir.VarValue(maskedCur), false)
	t.emitter.StoreCPSR(ir.VarValue(merged))
	return true
}

// HandleBranchRelative realizes B and BL. The target is always statically
// known: a compile-time function of the instruction's own address and the
// decoded offset.
//
// Unconditional BLX(immediate) (b.Exchange) unconditionally switches the
// guest to Thumb state at the target, which this package cannot decode —
// Thumb is out of scope entirely, not just for odd addresses — so it is
// refused here rather than emitted as an (incorrectly ARM-decoded) branch.
func (t *Translator) HandleBranchRelative(b decode.BranchRelative) bool {
	if b.Exchange {
		log.Debug("refusing BLX(immediate), target is guest thumb state")
		return false
	}
	t.emitter.SetCond(ir.Cond(b.Cond))
	target := uint32(int64(t.address) + 2*instrWidth + int64(b.Offset))
	if b.Link {
		t.emitter.StoreGPR(t.reg(14), ir.ConstU32(t.address+instrWidth))
	}
	t.storePC(ir.ConstU32(target))
	t.terminate(target, true)
	return true
}

// HandleBranchExchange realizes BX and BLX(register). The target comes
// from a register at runtime, so it's never statically known; the Thumb
// bit is left in the raw value; a later Translate on that address will
// itself refuse if it turns out to be odd, per the address&1 check.
func (t *Translator) HandleBranchExchange(b decode.BranchExchange) bool {
	t.emitter.SetCond(ir.Cond(b.Cond))
	target := t.loadVar(b.Rm, "bx_target")
	if b.Link {
		t.emitter.StoreGPR(t.reg(14), ir.ConstU32(t.address+instrWidth))
	}
	t.storePC(ir.VarValue(target))
	t.terminate(0, false)
	return true
}

// HandleSoftwareInterrupt refuses SWI. Vectoring it needs the exception
// base, a CPU-level configuration value (see arm.Config) that the
// translator's entry point (address, word) doesn't carry, so no IR is
// emitted for it.
func (t *Translator) HandleSoftwareInterrupt(s decode.SoftwareInterrupt) bool {
	log.Debug("refusing SWI, exception vectoring is a dispatch-loop concern", "comment", s.Comment)
	return false
}

// HandleMultiply realizes MUL and MLA.
func (t *Translator) HandleMultiply(m decode.Multiply) bool {
	t.emitter.SetCond(ir.Cond(m.Cond))
	rm := ir.VarValue(t.loadVar(m.Rm, "rm"))
	rs := ir.VarValue(t.loadVar(m.Rs, "rs"))
	result := t.emitter.CreateVar(ir.UInt32, "mulresult")

	var accum ir.Value
	if m.Accumulate {
		accum = ir.VarValue(t.loadVar(m.Rn, "mla_acc"))
	}
	t.emitter.Mul(result, rm, rs, accum, m.Accumulate, m.SetFlags)
	t.emitter.StoreGPR(t.reg(m.Rd), ir.VarValue(result))
	if m.SetFlags {
		t.EmitUpdateNZC()
	}
	return true
}

// HandleMultiplyLong realizes UMULL/UMLAL/SMULL/SMLAL.
func (t *Translator) HandleMultiplyLong(m decode.MultiplyLong) bool {
	t.emitter.SetCond(ir.Cond(m.Cond))
	rm := ir.VarValue(t.loadVar(m.Rm, "rm"))
	rs := ir.VarValue(t.loadVar(m.Rs, "rs"))
	lo := t.emitter.CreateVar(ir.UInt32, "mulllo")
	hi := t.emitter.CreateVar(ir.UInt32, "mullhi")

	var accLo, accHi ir.Value
	if m.Accumulate {
		accLo = ir.VarValue(t.loadVar(m.RdLo, "umlal_acclo"))
		accHi = ir.VarValue(t.loadVar(m.RdHi, "umlal_acchi"))
	}
	t.emitter.MulLong(lo, hi, rm, rs, accLo, accHi, m.Accumulate, m.Signed, m.SetFlags)
	t.emitter.StoreGPR(t.reg(m.RdLo), ir.VarValue(lo))
	t.emitter.StoreGPR(t.reg(m.RdHi), ir.VarValue(hi))
	if m.SetFlags {
		t.EmitUpdateNZC()
	}
	return true
}

// HandleSingleDataSwap realizes SWP/SWPB as a load immediately followed by
// a store. The IR has no atomic exchange opcode, so this is a sequential
// approximation — correct for a single core, not a faithful multi-core
// swap.
func (t *Translator) HandleSingleDataSwap(s decode.SingleDataSwap) bool {
	t.emitter.SetCond(ir.Cond(s.Cond))
	addr := ir.VarValue(t.loadVar(s.Rn, "swpaddr"))
	width := ir.WidthWord
	if s.Byte {
		width = ir.WidthByte
	}
	loaded := t.emitter.CreateVar(ir.UInt32, "swpload")
	t.emitter.Load(loaded, addr, width, false)
	value := t.loadVar(s.Rm, "swpvalue")
	t.emitter.Store(addr, ir.VarValue(value), width)
	t.emitter.StoreGPR(t.reg(s.Rd), ir.VarValue(loaded))
	return true
}

// applyOffset computes base+offset or base-offset for address calculation.
// This never touches the host condition flags: ARM address arithmetic
// never sets them, regardless of what the ADD/SUB opcode could carry.
func (t *Translator) applyOffset(base, offset ir.Value, add bool) ir.Value {
	result := t.emitter.CreateVar(ir.UInt32, "effaddr")
	if add {
		t.emitter.ADD(&result, base, offset, false)
	} else {
		t.emitter.SUB(&result, base, offset, false)
	}
	return ir.VarValue(result)
}

func (t *Translator) resolveMemOffset(o decode.MemOffset) ir.Value {
	if o.Immediate {
		return ir.ConstU32(o.Imm)
	}
	rm := ir.VarValue(t.loadVar(o.Rm, "offreg"))
	if o.ShiftImm == 0 && o.ShiftKind == decode.ShiftLSL {
		return rm
	}
	result := t.emitter.CreateVar(ir.UInt32, "offshift")
	amount := ir.ConstU32(uint32(o.ShiftImm))
	switch o.ShiftKind {
	case decode.ShiftLSL:
		t.emitter.LSL(result, rm, amount, false)
	case decode.ShiftLSR:
		t.emitter.LSR(result, rm, amount, false)
	case decode.ShiftASR:
		t.emitter.ASR(result, rm, amount, false)
	case decode.ShiftROR:
		t.emitter.ROR(result, rm, amount, false)
	}
	return ir.VarValue(result)
}

// HandleSingleDataTransfer realizes LDR/STR/LDRB/STRB. Address calculation
// always happens (effAddr = base +/- offset); pre-indexed addressing
// transfers at effAddr, post-indexed transfers at the unmodified base and
// always writes the updated address back to Rn afterward — pre-indexed
// writeback only happens when the encoding's W bit is set.
func (t *Translator) HandleSingleDataTransfer(d decode.SingleDataTransfer) bool {
	t.emitter.SetCond(ir.Cond(d.Cond))
	base := t.loadVar(d.Rn, "base")
	offset := t.resolveMemOffset(d.Offset)
	effAddr := t.applyOffset(ir.VarValue(base), offset, d.Add)

	transferAddr := ir.VarValue(base)
	if d.PreIncrement {
		transferAddr = effAddr
	}

	width := ir.WidthWord
	if d.Byte {
		width = ir.WidthByte
	}

	if d.Load {
		result := t.emitter.CreateVar(ir.UInt32, "ldrresult")
		t.emitter.Load(result, transferAddr, width, false)
		if d.Rd == 15 {
			t.singleTransferWriteback(d, effAddr)
			t.storePC(ir.VarValue(result))
			t.terminate(0, false) // loaded value, not statically known
			return true
		}
		t.emitter.StoreGPR(t.reg(d.Rd), ir.VarValue(result))
	} else {
		value := t.loadVar(d.Rd, "strvalue")
		t.emitter.Store(transferAddr, ir.VarValue(value), width)
	}

	t.singleTransferWriteback(d, effAddr)
	return true
}

func (t *Translator) singleTransferWriteback(d decode.SingleDataTransfer, effAddr ir.Value) {
	if d.PreIncrement && !d.Writeback {
		return
	}
	t.emitter.StoreGPR(t.reg(d.Rn), effAddr)
}

// HandleHalfwordSignedTransfer realizes LDRH/STRH/LDRSB/LDRSH.
func (t *Translator) HandleHalfwordSignedTransfer(h decode.HalfwordSignedTransfer) bool {
	t.emitter.SetCond(ir.Cond(h.Cond))
	base := t.loadVar(h.Rn, "base")

	var offset ir.Value
	if h.Offset.Immediate {
		offset = ir.ConstU32(uint32(h.Offset.Imm))
	} else {
		offset = ir.VarValue(t.loadVar(h.Offset.Rm, "offreg"))
	}
	effAddr := t.applyOffset(ir.VarValue(base), offset, h.Add)

	transferAddr := ir.VarValue(base)
	if h.PreIncrement {
		transferAddr = effAddr
	}

	width := ir.WidthHalfword
	signed := h.Kind != decode.HalfwordUnsignedHalf
	if h.Kind == decode.HalfwordSignedByte {
		width = ir.WidthByte
	}

	if h.Load {
		result := t.emitter.CreateVar(ir.UInt32, "ldrhresult")
		t.emitter.Load(result, transferAddr, width, signed)
		t.emitter.StoreGPR(t.reg(h.Rd), ir.VarValue(result))
	} else {
		value := t.loadVar(h.Rd, "strhvalue")
		t.emitter.Store(transferAddr, ir.VarValue(value), width)
	}

	if !h.PreIncrement || h.Writeback {
		t.emitter.StoreGPR(t.reg(h.Rn), effAddr)
	}
	return true
}

// HandleBlockDataTransfer realizes LDM/STM. RegList is fixed by the
// encoding, so the set and count of transferred registers are compile-time
// constants — this unrolls the transfer into one Load/Store opcode per set
// bit, in numeric register order low-to-high regardless of increment or
// decrement direction, matching the architecture's fixed transfer order.
// The S-bit combined with r15 in the register list (exception return,
// restoring SPSR into CPSR) is refused: there is no SPSR-load IR opcode,
// the same gap HandleStatusRegisterMove documents for MRS/MSR.
func (t *Translator) HandleBlockDataTransfer(b decode.BlockDataTransfer) bool {
	if b.UserMode && b.Load && b.RegList&(1<<15) != 0 {
		log.Debug("refusing LDM with S-bit and r15, no SPSR-restore IR opcode")
		return false
	}

	t.emitter.SetCond(ir.Cond(b.Cond))
	base := t.loadVar(b.Rn, "base")

	var regs []uint8
	for i := uint8(0); i < 16; i++ {
		if b.RegList&(1<<i) != 0 {
			regs = append(regs, i)
		}
	}
	n := int64(len(regs))

	var startOffset int64
	switch {
	case b.Add && !b.PreIncrement: // IA
		startOffset = 0
	case b.Add && b.PreIncrement: // IB
		startOffset = 4
	case !b.Add && !b.PreIncrement: // DA
		startOffset = -4 * (n - 1)
	default: // DB
		startOffset = -4 * n
	}

	bankMode := t.mode
	if b.UserMode {
		bankMode = ir.ModeUser
	}

	loadedPC := false
	for i, r := range regs {
		addrVar := t.emitter.CreateVar(ir.UInt32, "ldmaddr")
		t.emitter.ADD(&addrVar, ir.VarValue(base), ir.ConstU32(uint32(startOffset+int64(i)*4)), false)
		reg := ir.GuestReg{Mode: bankMode, Reg: r}

		if b.Load {
			result := t.emitter.CreateVar(ir.UInt32, "ldmvalue")
			t.emitter.Load(result, ir.VarValue(addrVar), ir.WidthWord, false)
			if r == 15 {
				t.storePC(ir.VarValue(result))
				loadedPC = true
			} else {
				t.emitter.StoreGPR(reg, ir.VarValue(result))
			}
		} else {
			value := t.emitter.CreateVar(ir.UInt32, "stmvalue")
			t.emitter.LoadGPR(reg, value)
			t.emitter.Store(ir.VarValue(addrVar), ir.VarValue(value), ir.WidthWord)
		}
	}

	if b.Writeback {
		delta := 4 * n
		if !b.Add {
			delta = -delta
		}
		newBase := t.emitter.CreateVar(ir.UInt32, "ldmnewbase")
		t.emitter.ADD(&newBase, ir.VarValue(base), ir.ConstU32(uint32(delta)), false)
		t.emitter.StoreGPR(t.reg(b.Rn), ir.VarValue(newBase))
	}

	if loadedPC {
		t.terminate(0, false) // loaded value, not statically known
	}
	return true
}

// The remaining families have no representation in this IR. Coprocessor
// register transfer is out of scope per the FP/coprocessor exclusion;
// signed halfword multiply, saturating add/sub, and count-leading-zeros are
// ARMv5TE-and-later DSP-extension instructions with no corresponding
// opcode — real code compiled for the ARMv4/v5 base ISA this module
// otherwise targets never emits them. SWI is refused for the reason given
// on HandleSoftwareInterrupt above: exception vectoring needs
// exceptionBase, which this entry point doesn't carry.
func (t *Translator) HandleSignedHalfwordMultiply(decode.SignedHalfwordMultiply) bool { return false }
func (t *Translator) HandleSaturatingAddSub(decode.SaturatingAddSub) bool             { return false }
func (t *Translator) HandleCountLeadingZeros(decode.CountLeadingZeros) bool           { return false }
func (t *Translator) HandleCoprocessorRegisterTransfer(decode.CoprocessorRegisterTransfer) bool {
	return false
}

func (t *Translator) Undefined(word uint32) bool {
	log.Debug("undefined instruction", "word", word)
	return false
}
