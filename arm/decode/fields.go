package decode

// bits extracts the inclusive bit range [lo, hi] of word, right-justified.
func bits(word uint32, lo, hi uint) uint32 {
	width := hi - lo + 1
	mask := uint32(1)<<width - 1
	return (word >> lo) & mask
}

func bit(word uint32, n uint) bool {
	return (word>>n)&1 != 0
}

func rotateRight32(v uint32, amount uint32) uint32 {
	amount &= 31
	if amount == 0 {
		return v
	}
	return (v >> amount) | (v << (32 - amount))
}

// signExtend24To32 sign-extends a 24-bit two's-complement field.
func signExtend24To32(v uint32) int32 {
	if v&0x00800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v)
}

func decodeOperand2Immediate(word uint32) Operand2 {
	imm8 := bits(word, 0, 7)
	rot4 := bits(word, 8, 11)
	rotate := rot4 * 2
	return Operand2{
		Immediate: true,
		Imm:       rotateRight32(imm8, rotate),
		Rotate:    rotate,
	}
}

func decodeOperand2Register(word uint32) Operand2 {
	op2 := Operand2{
		Immediate: false,
		ShiftKind: ShiftKind(bits(word, 5, 6)),
		Rm:        uint8(bits(word, 0, 3)),
	}
	if bit(word, 4) {
		op2.ShiftAmountIsReg = true
		op2.Rs = uint8(bits(word, 8, 11))
	} else {
		op2.ShiftImm = uint8(bits(word, 7, 11))
	}
	return op2
}

func decodeMemOffsetImmediate(word uint32) MemOffset {
	return MemOffset{Immediate: true, Imm: bits(word, 0, 11)}
}

func decodeMemOffsetRegister(word uint32) MemOffset {
	return MemOffset{
		Immediate: false,
		ShiftKind: ShiftKind(bits(word, 5, 6)),
		ShiftImm:  uint8(bits(word, 7, 11)),
		Rm:        uint8(bits(word, 0, 3)),
	}
}

// decodeHalfwordOffset builds the 8-bit split immediate used by the extra
// load/store encoding: high nibble in bits 11..8, low nibble in bits 3..0.
func decodeHalfwordOffsetImmediate(word uint32) HalfwordOffset {
	hi := bits(word, 8, 11)
	lo := bits(word, 0, 3)
	return HalfwordOffset{Immediate: true, Imm: uint8(hi<<4 | lo)}
}

func decodeHalfwordOffsetRegister(word uint32) HalfwordOffset {
	return HalfwordOffset{Immediate: false, Rm: uint8(bits(word, 0, 3))}
}
