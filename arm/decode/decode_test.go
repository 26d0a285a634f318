package decode_test

import (
	"testing"

	"github.com/kestrelcore/armjit/arm/decode"
)

// recordingSink implements decode.Sink[string] and records which handler
// fired, and how many handler calls were made in total, so tests can assert
// "which variant", "which fields" and "exactly one call".
type recordingSink struct {
	kind  string
	calls int
	dp    decode.DataProcessing
	mul   decode.Multiply
	br    decode.BranchRelative
	bx    decode.BranchExchange
	sat   decode.SaturatingAddSub
	shm   decode.SignedHalfwordMultiply
	undef uint32
}

func (s *recordingSink) HandleDataProcessing(v decode.DataProcessing) string {
	s.kind, s.dp = "DataProcessing", v
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleMultiply(v decode.Multiply) string {
	s.kind, s.mul = "Multiply", v
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleMultiplyLong(decode.MultiplyLong) string {
	s.kind = "MultiplyLong"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleSignedHalfwordMultiply(v decode.SignedHalfwordMultiply) string {
	s.kind, s.shm = "SignedHalfwordMultiply", v
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleSaturatingAddSub(v decode.SaturatingAddSub) string {
	s.kind, s.sat = "SaturatingAddSub", v
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleCountLeadingZeros(decode.CountLeadingZeros) string {
	s.kind = "CountLeadingZeros"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleSingleDataSwap(decode.SingleDataSwap) string {
	s.kind = "SingleDataSwap"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleSingleDataTransfer(decode.SingleDataTransfer) string {
	s.kind = "SingleDataTransfer"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleHalfwordSignedTransfer(decode.HalfwordSignedTransfer) string {
	s.kind = "HalfwordSignedTransfer"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleBlockDataTransfer(decode.BlockDataTransfer) string {
	s.kind = "BlockDataTransfer"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleBranchRelative(v decode.BranchRelative) string {
	s.kind, s.br = "BranchRelative", v
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleBranchExchange(v decode.BranchExchange) string {
	s.kind, s.bx = "BranchExchange", v
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleStatusRegisterMove(decode.StatusRegisterMove) string {
	s.kind = "StatusRegisterMove"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleCoprocessorRegisterTransfer(decode.CoprocessorRegisterTransfer) string {
	s.kind = "CoprocessorRegisterTransfer"
	s.calls++
	return s.kind
}
func (s *recordingSink) HandleSoftwareInterrupt(decode.SoftwareInterrupt) string {
	s.kind = "SoftwareInterrupt"
	s.calls++
	return s.kind
}
func (s *recordingSink) Undefined(word uint32) string {
	s.kind, s.undef = "Undefined", word
	s.calls++
	return s.kind
}

// Scenarios drawn verbatim from the specification's concrete-scenario table.
func TestDecodeScenarios(t *testing.T) {
	t.Run("MOV r0, #1", func(t *testing.T) {
		s := &recordingSink{}
		decode.Decode[string](0xE3A00001, s)
		if s.kind != "DataProcessing" {
			t.Fatalf("kind = %s, want DataProcessing", s.kind)
		}
		if s.dp.Cond != decode.CondAL {
			t.Errorf("cond = %v, want AL", s.dp.Cond)
		}
		if s.dp.Opcode != decode.DPMov {
			t.Errorf("opcode = %v, want MOV", s.dp.Opcode)
		}
		if !s.dp.Op2.Immediate || s.dp.Op2.Imm != 1 || s.dp.Op2.Rotate != 0 {
			t.Errorf("op2 = %+v, want immediate 1 rotate 0", s.dp.Op2)
		}
		if s.dp.Rd != 0 {
			t.Errorf("rd = %d, want 0", s.dp.Rd)
		}
	})

	t.Run("B .", func(t *testing.T) {
		s := &recordingSink{}
		decode.Decode[string](0xEAFFFFFE, s)
		if s.kind != "BranchRelative" {
			t.Fatalf("kind = %s, want BranchRelative", s.kind)
		}
		if s.br.Offset != -8 {
			t.Errorf("offset = %d, want -8", s.br.Offset)
		}
		if s.br.Link || s.br.Exchange {
			t.Errorf("link/exchange = %v/%v, want false/false", s.br.Link, s.br.Exchange)
		}
	})

	t.Run("unconditional BLX immediate, offset 0", func(t *testing.T) {
		s := &recordingSink{}
		decode.Decode[string](0xFA000000, s)
		if s.kind != "BranchRelative" {
			t.Fatalf("kind = %s, want BranchRelative", s.kind)
		}
		if s.br.Offset != 0 || !s.br.Link || !s.br.Exchange {
			t.Errorf("br = %+v, want offset 0 link+exchange", s.br)
		}
	})

	t.Run("BX r0", func(t *testing.T) {
		s := &recordingSink{}
		decode.Decode[string](0xE12FFF10, s)
		if s.kind != "BranchExchange" {
			t.Fatalf("kind = %s, want BranchExchange", s.kind)
		}
		if s.bx.Rm != 0 || s.bx.Link {
			t.Errorf("bx = %+v, want reg=0 link=false", s.bx)
		}
	})

	t.Run("MUL r1, r2, r3", func(t *testing.T) {
		s := &recordingSink{}
		decode.Decode[string](0xE0010392, s)
		if s.kind != "Multiply" {
			t.Fatalf("kind = %s, want Multiply", s.kind)
		}
		if s.mul.Rd != 1 || s.mul.Rm != 2 || s.mul.Rs != 3 || s.mul.Accumulate || s.mul.SetFlags {
			t.Errorf("mul = %+v", s.mul)
		}
	})

	t.Run("CDP always decodes as undefined", func(t *testing.T) {
		// cond=AL, group 111, bit24=0 bit4=0 (word & 0x1000010 == 0).
		s := &recordingSink{}
		decode.Decode[string](0xEE000000, s)
		if s.kind != "Undefined" {
			t.Fatalf("kind = %s, want Undefined", s.kind)
		}
	})

	t.Run("NV with non-branch group is undefined", func(t *testing.T) {
		s := &recordingSink{}
		decode.Decode[string](0xF7F0F0F0, s)
		if s.kind != "Undefined" {
			t.Fatalf("kind = %s, want Undefined", s.kind)
		}
		if s.undef != 0xF7F0F0F0 {
			t.Errorf("undef word = %#x", s.undef)
		}
	})
}

// Boundary behaviors called out explicitly in the specification.
func TestDecodeBoundaries(t *testing.T) {
	t.Run("group 000 bits7..4=1001 bits24..23=11 is undefined", func(t *testing.T) {
		// cond=AL, bits27..25=000, bit7..4=1001 (0x90), bits24..23=11
		word := uint32(0xE1F00090)
		s := &recordingSink{}
		decode.Decode[string](word, s)
		if s.kind != "Undefined" {
			t.Fatalf("kind = %s, want Undefined", s.kind)
		}
	})

	t.Run("QADD r0, r1, r2 in the miscellaneous carve-out", func(t *testing.T) {
		word := uint32(0xE1010052)
		s := &recordingSink{}
		decode.Decode[string](word, s)
		if s.kind != "SaturatingAddSub" {
			t.Fatalf("kind = %s, want SaturatingAddSub", s.kind)
		}
		if s.sat.Op != decode.SatAdd || s.sat.Rd != 0 || s.sat.Rn != 1 || s.sat.Rm != 2 {
			t.Errorf("sat = %+v", s.sat)
		}
	})

	t.Run("SMULBB r0, r1, r2 in the miscellaneous carve-out", func(t *testing.T) {
		word := uint32(0xE1600281)
		s := &recordingSink{}
		decode.Decode[string](word, s)
		if s.kind != "SignedHalfwordMultiply" {
			t.Fatalf("kind = %s, want SignedHalfwordMultiply", s.kind)
		}
		if s.shm.Op != decode.SMulSMULxy || s.shm.Rd != 0 || s.shm.Rm != 1 || s.shm.Rs != 2 || s.shm.X || s.shm.Y {
			t.Errorf("shm = %+v", s.shm)
		}
	})
}

// Round-trip law: rotate_right(imm8, 2*rot4) matches a reference
// implementation bit-for-bit, for every rotation amount.
func TestDataProcessingImmediateRotation(t *testing.T) {
	reference := func(imm8, rot4 uint32) uint32 {
		amount := (2 * rot4) % 32
		if amount == 0 {
			return imm8
		}
		return (imm8 >> amount) | (imm8 << (32 - amount))
	}

	for rot4 := uint32(0); rot4 < 16; rot4++ {
		imm8 := uint32(0xB7)
		word := uint32(0xE3A00000) | (rot4 << 8) | imm8 // MOV r0, #imm8 ROR 2*rot4
		s := &recordingSink{}
		decode.Decode[string](word, s)
		if s.kind != "DataProcessing" {
			t.Fatalf("rot4=%d: kind = %s", rot4, s.kind)
		}
		want := reference(imm8, rot4)
		if s.dp.Op2.Imm != want {
			t.Errorf("rot4=%d: imm = %#x, want %#x", rot4, s.dp.Op2.Imm, want)
		}
	}
}

// Branch offset sign-extension law: a 24-bit field with its top bit set
// must always decode to a negative offset.
func TestBranchOffsetSignExtends(t *testing.T) {
	word := uint32(0xEA800000) // B with 24-bit field = 0x800000 (top bit set)
	s := &recordingSink{}
	decode.Decode[string](word, s)
	if s.kind != "BranchRelative" {
		t.Fatalf("kind = %s", s.kind)
	}
	if s.br.Offset >= 0 {
		t.Errorf("offset = %d, want negative", s.br.Offset)
	}
}

// Fuzz: decoding never invokes more than one handler per call, and every
// word yields either exactly one variant or Undefined.
func FuzzDecodeExactlyOneResult(f *testing.F) {
	f.Add(uint32(0xE3A00001))
	f.Add(uint32(0xEAFFFFFE))
	f.Add(uint32(0xF7F0F0F0))
	f.Fuzz(func(t *testing.T, word uint32) {
		s := &recordingSink{}
		decode.Decode[string](word, s)
		if s.kind == "" {
			t.Fatalf("word %#x: no handler invoked", word)
		}
		if s.calls != 1 {
			t.Fatalf("word %#x: %d handler calls, want exactly 1", word, s.calls)
		}
	})
}
