package ir

// Kind identifies an IR operation.
type Kind uint8

const (
	KindLoadGPR Kind = iota
	KindStoreGPR
	KindLoadCPSR
	KindStoreCPSR

	KindLSL
	KindLSR
	KindASR
	KindROR

	KindAnd
	KindEor
	KindAdd
	KindSub

	KindUpdateNZCV
	KindUpdateNZC

	// KindLoad and KindStore are the guest memory accesses backing every
	// transfer family (LDR/STR/LDM/STM/SWP and their halfword/byte/signed
	// variants); a backend lowers them against the host-provided Memory
	// interface (see arm/memory.go), the same collaborator the translator
	// itself never touches directly.
	KindLoad
	KindStore

	// KindMul and KindMulLong back MUL/MLA and UMULL/UMLAL/SMULL/SMLAL.
	KindMul
	KindMulLong
)

func (k Kind) String() string {
	names := [...]string{
		"LoadGPR", "StoreGPR", "LoadCPSR", "StoreCPSR",
		"LSL", "LSR", "ASR", "ROR",
		"AND", "EOR", "ADD", "SUB",
		"UpdateNZCV", "UpdateNZC",
		"Load", "Store",
		"Mul", "MulLong",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// MemWidth selects the access width for KindLoad/KindStore.
type MemWidth uint8

const (
	WidthByte MemWidth = iota
	WidthHalfword
	WidthWord
)

func (w MemWidth) String() string {
	switch w {
	case WidthByte:
		return "byte"
	case WidthHalfword:
		return "halfword"
	case WidthWord:
		return "word"
	default:
		return "?"
	}
}

// Opcode is one IR instruction: an operation kind, at most one output
// variable, and its input values. Shift and arithmetic/bitwise kinds carry
// UpdateHostFlags to say whether the backend must expose the guest's
// carry-out (shifts) or full NZCV effect (arithmetic/bitwise) on the host's
// native condition flags after executing this opcode.
type Opcode struct {
	Kind Kind

	// Output is valid for every kind except StoreGPR, StoreCPSR, Store, and
	// the flag-only (result-suppressed) form of AND/EOR/ADD/SUB.
	HasOutput bool
	Output    Variable

	// Inputs, kind-dependent:
	//   LoadGPR/StoreGPR:  GuestReg identifies the register; StoreGPR's
	//                      Rhs carries the value.
	//   LoadCPSR:          no inputs.
	//   StoreCPSR:         Rhs is the new CPSR value.
	//   shifts:            Lhs is the operand, Rhs is the shift amount.
	//   AND/EOR/ADD/SUB:   Lhs, Rhs are the two operands.
	//   UpdateNZCV/NZC:    Rhs is the input CPSR whose non-flag bits are
	//                      preserved; the flag bits come from host state.
	//   Load:              Lhs is the address; Width and Signed select the
	//                      access; Output receives the (sign-extended,
	//                      when Signed) 32-bit result.
	//   Store:             Lhs is the address, Rhs the value to write,
	//                      truncated to Width.
	//   Mul:               Lhs, Rhs are Rm, Rs; when HasAccum, Accum is
	//                      MLA's Rn. Output is the 32-bit result.
	//   MulLong:           Lhs, Rhs are Rm, Rs; Signed selects a signed
	//                      multiply; when HasAccum, Accum/AccumHi carry
	//                      UMLAL/SMLAL's RdLo:RdHi. Output/OutputHi carry
	//                      the low/high halves of the 64-bit result.
	Reg             GuestReg
	Lhs             Value
	Rhs             Value
	UpdateHostFlags bool

	// OutputHi carries KindMulLong's high result half; Output carries the
	// low half.
	OutputHi Variable

	// HasAccum, Accum, AccumHi carry an optional multiply-accumulate
	// operand: KindMul uses Accum only (MLA's Rn); KindMulLong uses both
	// (UMLAL/SMLAL's RdLo:RdHi). false means a plain MUL/UMULL/SMULL.
	HasAccum bool
	Accum    Value
	AccumHi  Value

	// Signed selects a sign-extending load (KindLoad, meaningful only for
	// Byte/Halfword widths) or a signed multiply (KindMulLong).
	Signed bool

	// Width selects the access width for KindLoad/KindStore.
	Width MemWidth
}

// MicroBlock is the IR of one guest instruction: an ordered opcode list
// plus the variable pool it owns. Ordering matters only between opcodes
// that alias guest state or consume each other's variables — the emitter
// itself performs no reordering or optimization.
type MicroBlock struct {
	Opcodes []Opcode
	Vars    []Variable

	// GuestAddress is the address of the guest instruction this
	// micro-block was translated from, used for disassembly and range
	// flush accounting.
	GuestAddress uint32

	// Cond is the guest condition guarding every opcode in this block.
	// CondAL (the default zero value is deliberately overridden to this
	// by the emitter, since the zero Cond value is EQ, not AL) means the
	// backend applies the opcodes unconditionally; any other value means
	// the backend must skip them all when the runtime condition is false.
	Cond Cond

	// Disasm is a best-effort text rendering of the source instruction,
	// set by the CPU's block-building loop (arm/cpu.go) via arm/disasm, not
	// by the translator; never consulted by execution.
	Disasm string
}
