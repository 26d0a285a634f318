package decode

// DPOpcode is the 4-bit data-processing sub-opcode (bits 24..21).
type DPOpcode uint8

const (
	DPAnd DPOpcode = iota
	DPEor
	DPSub
	DPRsb
	DPAdd
	DPAdc
	DPSbc
	DPRsc
	DPTst
	DPTeq
	DPCmp
	DPCmn
	DPOrr
	DPMov
	DPBic
	DPMvn
)

// FlagOnly reports whether the opcode never writes a destination register
// (CMP, CMN, TST, TEQ) — the emitter must omit the store in that case.
func (o DPOpcode) FlagOnly() bool {
	switch o {
	case DPTst, DPTeq, DPCmp, DPCmn:
		return true
	default:
		return false
	}
}

// Operand2 is the ARM shifter operand: either a rotated 8-bit immediate or
// a register optionally passed through the barrel shifter.
type Operand2 struct {
	Immediate bool // true: Imm/Rotate valid. false: shift fields valid.

	// Immediate form: value = rotate_right(Imm, Rotate); Rotate is the raw
	// 2*rot4 amount (0..30), kept around because a zero rotate leaves the
	// host carry flag unaffected while a nonzero rotate exposes bit 31 of
	// the result as the new carry.
	Imm    uint32
	Rotate uint32

	// Register form.
	ShiftKind        ShiftKind
	Rm               uint8
	ShiftAmountIsReg bool
	Rs               uint8 // valid when ShiftAmountIsReg
	ShiftImm         uint8 // valid when !ShiftAmountIsReg
}

// DataProcessing covers AND..MVN, both immediate and register-shifted forms,
// including the CMP/CMN/TST/TEQ comparison instructions (FlagOnly()==true).
type DataProcessing struct {
	Cond     Cond
	Opcode   DPOpcode
	SetFlags bool
	Rn       uint8 // first operand register (ignored by MOV/MVN)
	Rd       uint8 // destination register (ignored by TST/TEQ/CMP/CMN)
	Op2      Operand2
}

// Multiply covers MUL and MLA.
type Multiply struct {
	Cond       Cond
	Accumulate bool
	SetFlags   bool
	Rd         uint8
	Rn         uint8 // accumulate operand, valid when Accumulate
	Rs         uint8
	Rm         uint8
}

// MultiplyLong covers UMULL, UMLAL, SMULL, SMLAL.
type MultiplyLong struct {
	Cond       Cond
	Signed     bool
	Accumulate bool
	SetFlags   bool
	RdHi       uint8
	RdLo       uint8
	Rs         uint8
	Rm         uint8
}

// SignedHalfwordMultiplyOp selects among the ARMv5TE signed halfword
// multiply family.
type SignedHalfwordMultiplyOp uint8

const (
	SMulSMLAxy  SignedHalfwordMultiplyOp = iota // accumulating 16x16->32
	SMulSMULxy                                  // non-accumulating 16x16->32
	SMulSMLAWy                                  // 32x16->32, accumulating
	SMulSMULWy                                  // 32x16->32, non-accumulating
	SMulSMLALxy                                 // accumulating 16x16->64
)

// SignedHalfwordMultiply covers SMLAxy/SMULxy/SMLAWy/SMULWy/SMLALxy. X and Y
// select the top or bottom halfword of Rm and Rs respectively.
type SignedHalfwordMultiply struct {
	Cond   Cond
	Op     SignedHalfwordMultiplyOp
	Rd     uint8 // or RdHi for SMLALxy
	Rn     uint8 // accumulator, or RdLo for SMLALxy
	Rs     uint8
	Rm     uint8
	X      bool // Rm top half selected
	Y      bool // Rs top half selected
}

// SaturatingOp selects among QADD, QSUB, QDADD, QDSUB.
type SaturatingOp uint8

const (
	SatAdd SaturatingOp = iota
	SatSub
	SatDoubleAdd
	SatDoubleSub
)

// SaturatingAddSub covers QADD/QSUB/QDADD/QDSUB.
type SaturatingAddSub struct {
	Cond Cond
	Op   SaturatingOp
	Rd   uint8
	Rn   uint8
	Rm   uint8
}

// CountLeadingZeros covers CLZ (ARMv5+ only; see the open question in
// DESIGN.md about architecture-version gating).
type CountLeadingZeros struct {
	Cond Cond
	Rd   uint8
	Rm   uint8
}

// SingleDataSwap covers SWP/SWPB.
type SingleDataSwap struct {
	Cond Cond
	Byte bool
	Rn   uint8 // memory address register
	Rd   uint8 // destination register
	Rm   uint8 // value to store
}

// MemOffset is the address offset for single data transfer and swap-like
// instructions: either a 12-bit unsigned immediate or a shifted register,
// direction controlled by Add.
type MemOffset struct {
	Immediate bool
	Imm       uint32 // 0..4095
	ShiftKind ShiftKind
	ShiftImm  uint8
	Rm        uint8
}

// SingleDataTransfer covers LDR/STR/LDRB/STRB with immediate or shifted
// register offsets.
type SingleDataTransfer struct {
	Cond         Cond
	Load         bool
	Byte         bool
	PreIncrement bool
	Add          bool
	Writeback    bool
	Rn           uint8
	Rd           uint8
	Offset       MemOffset
}

// HalfwordOffset is the 8-bit offset used by the extra load/store
// (halfword and signed-byte/halfword) encoding: either an immediate split
// across bits 11..8 and 3..0, or a plain register.
type HalfwordOffset struct {
	Immediate bool
	Imm       uint8 // 0..255
	Rm        uint8
}

// HalfwordTransferKind distinguishes the four extra load/store forms.
type HalfwordTransferKind uint8

const (
	HalfwordUnsignedHalf HalfwordTransferKind = iota // LDRH / STRH
	HalfwordSignedByte                               // LDRSB (load only)
	HalfwordSignedHalf                               // LDRSH (load only)
)

// HalfwordSignedTransfer covers LDRH/STRH/LDRSB/LDRSH.
type HalfwordSignedTransfer struct {
	Cond         Cond
	Kind         HalfwordTransferKind
	Load         bool
	PreIncrement bool
	Add          bool
	Writeback    bool
	Rn           uint8
	Rd           uint8
	Offset       HalfwordOffset
}

// BlockDataTransfer covers LDM/STM in all four addressing modes.
type BlockDataTransfer struct {
	Cond         Cond
	Load         bool
	PreIncrement bool
	Add          bool
	Writeback    bool
	UserMode     bool // 'S' bit: force user-mode registers / restore CPSR on LDM w/ r15
	Rn           uint8
	RegList      uint16 // bit i set => register i is transferred
}

// BranchRelative covers B, BL, and the ARMv5 unconditional BLX(immediate).
type BranchRelative struct {
	Cond     Cond
	Link     bool
	Exchange bool  // BLX(immediate): switch to Thumb at the target
	Offset   int32 // byte offset relative to (PC + 2*instr_width)
}

// BranchExchange covers BX and BLX(register).
type BranchExchange struct {
	Cond Cond
	Link bool
	Rm   uint8
}

// StatusRegister selects CPSR or SPSR_<mode>.
type StatusRegister uint8

const (
	StatusCPSR StatusRegister = iota
	StatusSPSR
)

// StatusRegisterMove covers MRS and both forms of MSR.
type StatusRegisterMove struct {
	Cond      Cond
	ToStatus  bool // true: MSR (write status register). false: MRS (read it).
	Reg       StatusRegister
	Rd        uint8 // destination register, valid for MRS
	Immediate bool  // MSR operand form, valid for ToStatus
	Rm        uint8 // MSR register-operand source, valid when !Immediate
	Imm       uint32
	Rotate    uint32
	Fsxc      uint8 // field mask: bit0=c(ontrol) bit1=x bit2=s bit3=f(lags)
}

// CoprocessorRegisterTransfer covers MRC/MCR. Execution is out of scope
// (coprocessor execution is a non-goal); the translator refuses any block
// containing one. CDP has no corresponding variant: the group 111 carve-out
// that would select it always yields Undefined instead (bits 24 and 4 both
// clear), so no CoprocessorDataOp descriptor exists.
type CoprocessorRegisterTransfer struct {
	Cond     Cond
	Load     bool // MRC (true) vs MCR (false)
	CopNum   uint8
	Opcode1  uint8
	Rd       uint8
	Crn      uint8
	Crm      uint8
	Opcode2  uint8
}

// SoftwareInterrupt covers SWI/SVC. Vectoring to the exception base is a
// dispatch-loop concern (it needs the CPU's exception_base configuration,
// which this decode-only descriptor doesn't carry); see the translator's
// HandleSoftwareInterrupt for why the JIT frontend itself refuses it.
type SoftwareInterrupt struct {
	Cond    Cond
	Comment uint32 // low 24 bits of the instruction word
}

// Sink receives exactly one call per Decode invocation: one Handle* method
// for the matched variant, or Undefined for a guest word with no matching
// encoding. Implementations return a caller-chosen ResultType; Decode
// returns whatever the sink returns, unmodified.
type Sink[ResultType any] interface {
	HandleDataProcessing(DataProcessing) ResultType
	HandleMultiply(Multiply) ResultType
	HandleMultiplyLong(MultiplyLong) ResultType
	HandleSignedHalfwordMultiply(SignedHalfwordMultiply) ResultType
	HandleSaturatingAddSub(SaturatingAddSub) ResultType
	HandleCountLeadingZeros(CountLeadingZeros) ResultType
	HandleSingleDataSwap(SingleDataSwap) ResultType
	HandleSingleDataTransfer(SingleDataTransfer) ResultType
	HandleHalfwordSignedTransfer(HalfwordSignedTransfer) ResultType
	HandleBlockDataTransfer(BlockDataTransfer) ResultType
	HandleBranchRelative(BranchRelative) ResultType
	HandleBranchExchange(BranchExchange) ResultType
	HandleStatusRegisterMove(StatusRegisterMove) ResultType
	HandleCoprocessorRegisterTransfer(CoprocessorRegisterTransfer) ResultType
	HandleSoftwareInterrupt(SoftwareInterrupt) ResultType
	Undefined(word uint32) ResultType
}
