package ir

// Emitter builds the opcode list and variable pool of one MicroBlock. It is
// append-only: opcodes are appended in program order and the emitter
// performs no optimization of its own (that is an external pass, per the
// contract this package implements).
type Emitter struct {
	block MicroBlock
}

// NewEmitter starts a fresh micro-block for the guest instruction at addr.
// The block starts out unconditional; SetCond narrows that once the
// translator has decoded the guest instruction's condition field.
func NewEmitter(addr uint32) *Emitter {
	return &Emitter{block: MicroBlock{GuestAddress: addr, Cond: CondAL}}
}

// SetCond records the guest condition guarding this micro-block's opcodes.
func (e *Emitter) SetCond(cond Cond) {
	e.block.Cond = cond
}

// Block returns the micro-block built so far. Call once translation of the
// guest instruction is complete.
func (e *Emitter) Block() MicroBlock {
	return e.block
}

// CreateVar allocates a fresh SSA name. The returned Variable is usable as
// the output of exactly one subsequent opcode.
func (e *Emitter) CreateVar(dtype DataType, label string) Variable {
	v := Variable{ID: VarID(len(e.block.Vars)), Type: dtype, Label: label}
	e.block.Vars = append(e.block.Vars, v)
	return v
}

func (e *Emitter) append(op Opcode) {
	e.block.Opcodes = append(e.block.Opcodes, op)
}

// LoadGPR reads the guest register named by reg into result.
func (e *Emitter) LoadGPR(reg GuestReg, result Variable) {
	e.append(Opcode{Kind: KindLoadGPR, HasOutput: true, Output: result, Reg: reg})
}

// StoreGPR writes value into the guest register named by reg. Writing GPR
// 15 stores the literal value; pipeline-offset adjustment on PC writes is
// the caller's responsibility.
func (e *Emitter) StoreGPR(reg GuestReg, value Value) {
	e.append(Opcode{Kind: KindStoreGPR, Reg: reg, Rhs: value})
}

// LoadCPSR reads the current CPSR into result.
func (e *Emitter) LoadCPSR(result Variable) {
	e.append(Opcode{Kind: KindLoadCPSR, HasOutput: true, Output: result})
}

// StoreCPSR writes value as the new CPSR.
func (e *Emitter) StoreCPSR(value Value) {
	e.append(Opcode{Kind: KindStoreCPSR, Rhs: value})
}

func (e *Emitter) shift(kind Kind, result Variable, operand Value, amount Value, updateHostFlags bool) {
	e.append(Opcode{
		Kind:            kind,
		HasOutput:       true,
		Output:          result,
		Lhs:             operand,
		Rhs:             amount,
		UpdateHostFlags: updateHostFlags,
	})
}

// LSL emits a logical-shift-left. operand may be a loaded register value or
// a compile-time constant (an immediate operand2 realized via a shift of
// zero, or a rotated immediate realized via ROR). When updateHostFlags is
// true the backend must arrange for the host carry flag to reflect the
// guest shifter carry-out after this opcode executes; otherwise the host
// flags are left unspecified.
func (e *Emitter) LSL(result Variable, operand Value, amount Value, updateHostFlags bool) {
	e.shift(KindLSL, result, operand, amount, updateHostFlags)
}

func (e *Emitter) LSR(result Variable, operand Value, amount Value, updateHostFlags bool) {
	e.shift(KindLSR, result, operand, amount, updateHostFlags)
}

func (e *Emitter) ASR(result Variable, operand Value, amount Value, updateHostFlags bool) {
	e.shift(KindASR, result, operand, amount, updateHostFlags)
}

func (e *Emitter) ROR(result Variable, operand Value, amount Value, updateHostFlags bool) {
	e.shift(KindROR, result, operand, amount, updateHostFlags)
}

// resultOp emits an arithmetic/bitwise opcode. result is nil to permit a
// flag-only form (CMP, TST, TEQ, CMN) that omits the output.
func (e *Emitter) resultOp(kind Kind, result *Variable, lhs Value, rhs Value, updateHostFlags bool) {
	op := Opcode{
		Kind:            kind,
		Lhs:             lhs,
		Rhs:             rhs,
		UpdateHostFlags: updateHostFlags,
	}
	if result != nil {
		op.HasOutput = true
		op.Output = *result
	}
	e.append(op)
}

// AND emits a bitwise AND. When updateHostFlags is true the host N/Z
// (there is no defined carry/overflow change for AND itself; callers that
// need the shifter carry-out fold it via a preceding shift) must match the
// guest's result. result may be nil for the TST form. MOV/MVN/ORR/BIC are
// synthesized by callers from AND/EOR plus a zero or all-ones lhs, since
// the IR has no dedicated move/or/bic opcode.
func (e *Emitter) AND(result *Variable, lhs Value, rhs Value, updateHostFlags bool) {
	e.resultOp(KindAnd, result, lhs, rhs, updateHostFlags)
}

// EOR emits a bitwise exclusive-or. result may be nil for the TEQ form.
func (e *Emitter) EOR(result *Variable, lhs Value, rhs Value, updateHostFlags bool) {
	e.resultOp(KindEor, result, lhs, rhs, updateHostFlags)
}

// ADD emits an addition. When updateHostFlags is true the host N/Z/C/V
// must match the guest's addition semantics. result may be nil for the CMN
// form.
func (e *Emitter) ADD(result *Variable, lhs Value, rhs Value, updateHostFlags bool) {
	e.resultOp(KindAdd, result, lhs, rhs, updateHostFlags)
}

// SUB emits a subtraction (lhs - rhs). result may be nil for the CMP form.
func (e *Emitter) SUB(result *Variable, lhs Value, rhs Value, updateHostFlags bool) {
	e.resultOp(KindSub, result, lhs, rhs, updateHostFlags)
}

// UpdateNZCV produces a new CPSR value in output whose N/Z/C/V flags are
// taken from the current host flag state, with the remainder copied from
// input.
func (e *Emitter) UpdateNZCV(output Variable, input Variable) {
	e.append(Opcode{Kind: KindUpdateNZCV, HasOutput: true, Output: output, Rhs: VarValue(input)})
}

// UpdateNZC is UpdateNZCV but leaves the guest's V flag untouched, for
// opcodes (logical shifts feeding a flag-setting data-processing op) that
// only ever redefine N/Z/C.
func (e *Emitter) UpdateNZC(output Variable, input Variable) {
	e.append(Opcode{Kind: KindUpdateNZC, HasOutput: true, Output: output, Rhs: VarValue(input)})
}

// Load emits a memory read of width at address into result, sign-extending
// when signed is true (meaningful only for Byte/Halfword; a signed Word
// load is nonsensical and callers never ask for one).
func (e *Emitter) Load(result Variable, address Value, width MemWidth, signed bool) {
	e.append(Opcode{
		Kind:      KindLoad,
		HasOutput: true,
		Output:    result,
		Lhs:       address,
		Width:     width,
		Signed:    signed,
	})
}

// Store emits a memory write of value, truncated to width, at address.
func (e *Emitter) Store(address Value, value Value, width MemWidth) {
	e.append(Opcode{Kind: KindStore, Lhs: address, Rhs: value, Width: width})
}

// Mul emits a 32-bit multiply (MUL) into result. When accumulate is true,
// accum (MLA's Rn) is added to the rm*rs product before it is stored. When
// updateHostFlags is true the host N/Z must match the 32-bit result; the C
// flag is architecturally UNPREDICTABLE for multiply and V is unaffected,
// so a backend may leave both alone.
func (e *Emitter) Mul(result Variable, rm Value, rs Value, accum Value, accumulate bool, updateHostFlags bool) {
	e.append(Opcode{
		Kind:            KindMul,
		HasOutput:       true,
		Output:          result,
		Lhs:             rm,
		Rhs:             rs,
		HasAccum:        accumulate,
		Accum:           accum,
		UpdateHostFlags: updateHostFlags,
	})
}

// MulLong emits a 64-bit multiply (UMULL/SMULL), or its accumulating form
// (UMLAL/SMLAL) when accumulate is true, storing the low half in lo and the
// high half in hi. signed selects a signed multiply; accumLo/accumHi carry
// the prior RdLo:RdHi value when accumulate is true. When updateHostFlags
// is true the host N/Z must reflect the 64-bit result (N from bit 63 of hi,
// Z from both halves being zero); C/V are UNPREDICTABLE/unaffected.
func (e *Emitter) MulLong(lo Variable, hi Variable, rm Value, rs Value, accumLo Value, accumHi Value, accumulate bool, signed bool, updateHostFlags bool) {
	e.append(Opcode{
		Kind:            KindMulLong,
		HasOutput:       true,
		Output:          lo,
		OutputHi:        hi,
		Lhs:             rm,
		Rhs:             rs,
		HasAccum:        accumulate,
		Accum:           accumLo,
		AccumHi:         accumHi,
		Signed:          signed,
		UpdateHostFlags: updateHostFlags,
	})
}
