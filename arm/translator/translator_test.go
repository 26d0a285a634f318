package translator_test

import (
	"testing"

	"github.com/kestrelcore/armjit/arm/ir"
	"github.com/kestrelcore/armjit/arm/translator"
)

func opcodesOfKind(block ir.MicroBlock, kind ir.Kind) []ir.Opcode {
	var out []ir.Opcode
	for _, op := range block.Opcodes {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// "B ." at PC=0x1000: offset -8 targets 0x1000 itself, and the stored PC
// (per the pipeline-offset storage convention) must be target+8.
func TestBranchRelativeSelfLoopStoresPipelineOffsetPC(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	res, ok := tr.Translate(0x1000, 0xEAFFFFFE)
	if !ok {
		t.Fatal("translate refused")
	}
	if !res.Terminated || !res.HasBranchTarget || res.BranchTarget != 0x1000 {
		t.Fatalf("result = %+v, want terminated with target 0x1000", res)
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 1 {
		t.Fatalf("store count = %d, want 1", len(stores))
	}
	pcStore := stores[0]
	if pcStore.Reg.Reg != 15 {
		t.Fatalf("stored register = %d, want r15", pcStore.Reg.Reg)
	}
	if pcStore.Rhs.IsVar() || pcStore.Rhs.ImmValue() != 0x1008 {
		t.Errorf("stored pc = %+v, want constant 0x1008", pcStore.Rhs)
	}
}

// BL must additionally store the return address into LR (r14) before the
// PC write, and the branch target must still be statically known.
func TestBranchRelativeLinkStoresReturnAddress(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	// BL with offset 0 at address 0x2000.
	res, ok := tr.Translate(0x2000, 0xEB000000)
	if !ok {
		t.Fatal("translate refused")
	}
	if !res.HasBranchTarget || res.BranchTarget != 0x2008 {
		t.Fatalf("target = %#x, want 0x2008", res.BranchTarget)
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 2 {
		t.Fatalf("store count = %d, want 2 (LR then PC)", len(stores))
	}
	if stores[0].Reg.Reg != 14 || stores[0].Rhs.ImmValue() != 0x2004 {
		t.Errorf("lr store = %+v, want r14 = 0x2004", stores[0])
	}
}

// BX has a runtime-only target: no statically known branch target, and the
// stored PC must come from an ADD (register value + pipeline offset), not a
// constant.
func TestBranchExchangeHasNoStaticTarget(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	res, ok := tr.Translate(0x3000, 0xE12FFF10) // BX r0
	if !ok {
		t.Fatal("translate refused")
	}
	if !res.Terminated || res.HasBranchTarget {
		t.Fatalf("result = %+v, want terminated with no static target", res)
	}
	adds := opcodesOfKind(res.Block, ir.KindAdd)
	if len(adds) != 1 {
		t.Fatalf("add count = %d, want 1 (pipeline-offset fold)", len(adds))
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 1 || stores[0].Reg.Reg != 15 || !stores[0].Rhs.IsVar() {
		t.Errorf("pc store = %+v, want a variable store to r15", stores)
	}
}

// MOV r0, #1: no Rn load, an EOR against a zero constant realizing the
// synthesized MOV, and the destination register store.
func TestDataProcessingMovSynthesizedFromEor(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	res, ok := tr.Translate(0x4000, 0xE3A00001)
	if !ok {
		t.Fatal("translate refused")
	}
	eors := opcodesOfKind(res.Block, ir.KindEor)
	if len(eors) != 1 {
		t.Fatalf("eor count = %d, want 1", len(eors))
	}
	if eors[0].Lhs.IsVar() || eors[0].Lhs.ImmValue() != 0 {
		t.Errorf("eor lhs = %+v, want constant 0", eors[0].Lhs)
	}
	loads := opcodesOfKind(res.Block, ir.KindLoadGPR)
	if len(loads) != 0 {
		t.Errorf("load count = %d, want 0 (MOV never reads Rn)", len(loads))
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 1 || stores[0].Reg.Reg != 0 {
		t.Errorf("store = %+v, want r0", stores)
	}
}

// ORR synthesis: XOR then AND then XOR, over the same two operands, per the
// disjoint-bits identity a|b = (a^b)^(a&b).
func TestDataProcessingOrrSynthesis(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	// ORR r0, r1, r2 (cond=AL, opcode=1100, S=0, Rn=1, Rd=0, Op2=register r2 LSL#0).
	res, ok := tr.Translate(0x5000, 0xE1810002)
	if !ok {
		t.Fatal("translate refused")
	}
	if len(opcodesOfKind(res.Block, ir.KindEor)) != 2 {
		t.Errorf("eor count = %d, want 2 (xor, then merge)", len(opcodesOfKind(res.Block, ir.KindEor)))
	}
	if len(opcodesOfKind(res.Block, ir.KindAnd)) != 1 {
		t.Errorf("and count = %d, want 1", len(opcodesOfKind(res.Block, ir.KindAnd)))
	}
}

// A data-processing instruction writing r15 terminates the block with no
// statically known target (the destination value is runtime-computed) and
// stores through the pipeline-offset ADD path, not a bare constant.
func TestDataProcessingWritingPCTerminatesWithoutStaticTarget(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	// MOV r15, r0 (cond=AL, opcode=1101 MOV, S=0, Rd=15, Op2 = register r0 LSL#0).
	res, ok := tr.Translate(0x6000, 0xE1A0F000)
	if !ok {
		t.Fatal("translate refused")
	}
	if !res.Terminated || res.HasBranchTarget {
		t.Fatalf("result = %+v, want terminated with no static target", res)
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 1 || stores[0].Reg.Reg != 15 {
		t.Fatalf("stores = %+v, want a single r15 store", stores)
	}
	if !stores[0].Rhs.IsVar() {
		t.Errorf("pc store rhs = %+v, want a variable (runtime pipeline-offset add)", stores[0].Rhs)
	}
}

// MSR to CPSR_f only touches the flags byte: the merge must AND the source
// against 0xFF000000 and the current value against its complement.
func TestStatusRegisterMoveFieldMask(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	// MSR CPSR_f, r0 (cond=AL, Fsxc bits at 19..16 = 1000 selects f only, Rd field=1111, Rm=r0).
	res, ok := tr.Translate(0x7000, 0xE128F000)
	if !ok {
		t.Fatal("translate refused")
	}
	ands := opcodesOfKind(res.Block, ir.KindAnd)
	if len(ands) != 2 {
		t.Fatalf("and count = %d, want 2 (mask source, mask current)", len(ands))
	}
	foundFlagsMask := false
	for _, a := range ands {
		if !a.Rhs.IsVar() && a.Rhs.ImmValue() == 0xFF000000 {
			foundFlagsMask = true
		}
	}
	if !foundFlagsMask {
		t.Errorf("no AND against the flags-only mask 0xFF000000 found: %+v", ands)
	}
}

// SPSR access has no IR representation and must be refused outright.
func TestStatusRegisterMoveRefusesSPSR(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	// MRS r0, SPSR (cond=AL, R bit set selects SPSR, Rd=0).
	_, ok := tr.Translate(0x8000, 0xE14F0000)
	if ok {
		t.Fatal("translate accepted an SPSR access, want refusal")
	}
}

// Families genuinely left with no IR-level representation must be refused,
// identically to Undefined, never partially translated: SWI needs
// exceptionBase plumbing this entry point doesn't carry, and coprocessor
// register transfer is out of scope entirely.
func TestUntranslatableFamiliesAreRefused(t *testing.T) {
	cases := []struct {
		name string
		word uint32
	}{
		{"SWI 0", 0xEF000000},
		{"MRC p15, 0, r0, c1, c0, 0", 0xEE110F10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := translator.New(ir.ModeUser)
			res, ok := tr.Translate(0x9000, tc.word)
			if ok {
				t.Fatalf("translate accepted %s, want refusal", tc.name)
			}
			if res.Terminated {
				t.Errorf("refused translation set Terminated, want zero Result")
			}
		})
	}
}

// MUL r1, r2, r3 (cond=AL, Rd=1, Rs=3, Rm=2): a plain multiply with no
// accumulate, so exactly one Mul opcode and no Load/Store of Rn as an
// accumulator.
func TestMultiplyLowersToMulOpcode(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	res, ok := tr.Translate(0x9000, 0xE0010392)
	if !ok {
		t.Fatal("translate refused")
	}
	muls := opcodesOfKind(res.Block, ir.KindMul)
	if len(muls) != 1 {
		t.Fatalf("mul count = %d, want 1", len(muls))
	}
	if muls[0].HasAccum {
		t.Errorf("mul without the accumulate bit set HasAccum")
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 1 || stores[0].Reg.Reg != 1 {
		t.Errorf("store = %+v, want r1", stores)
	}
}

// UMULL r0, r1, r2, r3 (RdLo=0, RdHi=1, Rm=2, Rs=3, unsigned, no accumulate):
// one MulLong opcode with Signed=false and HasAccum=false, storing both
// halves.
func TestMultiplyLongLowersToMulLongOpcode(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	res, ok := tr.Translate(0x9004, 0xE0810392)
	if !ok {
		t.Fatal("translate refused")
	}
	longs := opcodesOfKind(res.Block, ir.KindMulLong)
	if len(longs) != 1 {
		t.Fatalf("mullong count = %d, want 1", len(longs))
	}
	if longs[0].Signed {
		t.Errorf("UMULL lowered with Signed=true")
	}
	if longs[0].HasAccum {
		t.Errorf("UMULL lowered with HasAccum=true")
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 2 {
		t.Fatalf("store count = %d, want 2 (RdLo, RdHi)", len(stores))
	}
}

// LDR r0, [r1]: a pre-indexed Load with a zero offset, reading a word at the
// base address, and no writeback since the W bit is clear.
func TestSingleDataTransferLowersToLoadOpcode(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	res, ok := tr.Translate(0x9008, 0xE5910000)
	if !ok {
		t.Fatal("translate refused")
	}
	loads := opcodesOfKind(res.Block, ir.KindLoad)
	if len(loads) != 1 {
		t.Fatalf("load count = %d, want 1", len(loads))
	}
	if loads[0].Width != ir.WidthWord {
		t.Errorf("width = %v, want word", loads[0].Width)
	}
	stores := opcodesOfKind(res.Block, ir.KindStoreGPR)
	if len(stores) != 1 || stores[0].Reg.Reg != 0 {
		t.Errorf("store = %+v, want a single store to r0", stores)
	}
}

// STMFD sp!, {r0, r1} (pre-decrement, writeback, Rn=sp): two Store opcodes
// and a writeback that subtracts 8 from sp.
func TestBlockDataTransferLowersToStoreOpcodesWithWriteback(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	// STMDB r13!, {r0, r1}: cond=AL, P=1,U=0,S=0,W=1,L=0, Rn=13, list=0x0003.
	res, ok := tr.Translate(0x900C, 0xE92D0003)
	if !ok {
		t.Fatal("translate refused")
	}
	stores := opcodesOfKind(res.Block, ir.KindStore)
	if len(stores) != 2 {
		t.Fatalf("store count = %d, want 2", len(stores))
	}
	writebacks := opcodesOfKind(res.Block, ir.KindStoreGPR)
	found := false
	for _, w := range writebacks {
		if w.Reg.Reg == 13 {
			found = true
		}
	}
	if !found {
		t.Errorf("no writeback store to r13 found: %+v", writebacks)
	}
}

// A conditional instruction (cond != AL) must have its condition recorded
// on the micro-block: per the translator's per-instruction obligations,
// gating the block's effects on the runtime condition is the backend's job,
// but only if the block says which condition to check.
func TestConditionalInstructionRecordsCond(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	// MOVEQ r0, #1 (cond=EQ=0000).
	res, ok := tr.Translate(0xA000, 0x03A00001)
	if !ok {
		t.Fatal("translate refused")
	}
	if res.Block.Cond != 0x0 {
		t.Errorf("cond = %#x, want EQ (0x0)", res.Block.Cond)
	}
}

func TestUnconditionalInstructionRecordsCondAL(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	res, ok := tr.Translate(0xA000, 0xE3A00001)
	if !ok {
		t.Fatal("translate refused")
	}
	if res.Block.Cond != ir.CondAL {
		t.Errorf("cond = %#x, want AL", res.Block.Cond)
	}
}

// Unconditional BLX(immediate) switches to Thumb state at its target, which
// this package cannot decode, so it must be refused even though the
// address it currently sits at is perfectly aligned.
func TestBranchRelativeRefusesThumbExchange(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	_, ok := tr.Translate(0xB000, 0xFA000000) // unconditional BLX(imm), offset 0
	if ok {
		t.Fatal("translate accepted a thumb-exchanging BLX(immediate), want refusal")
	}
}

// A Thumb-bit address must be refused before any decode occurs.
func TestTranslateRefusesOddAddress(t *testing.T) {
	tr := translator.New(ir.ModeUser)
	_, ok := tr.Translate(0x1001, 0xE3A00001)
	if ok {
		t.Fatal("translate accepted an odd (thumb) address, want refusal")
	}
}
