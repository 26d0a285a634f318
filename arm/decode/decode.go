package decode

// Decode inspects a 32-bit ARM instruction word, builds the matching
// descriptor, and delivers it to sink's corresponding Handle method. If no
// variant matches it delivers sink.Undefined(word). Decode is pure,
// allocation-free (aside from the generic dispatch itself), and total:
// every possible word produces exactly one sink call.
func Decode[R any](word uint32, sink Sink[R]) R {
	cond := decodeCond(word)

	if cond == CondNV {
		if bits(word, 25, 27) == 0b101 {
			return decodeBranchLinkExchangeRelative(word, sink)
		}
		return sink.Undefined(word)
	}

	switch bits(word, 25, 27) {
	case 0b000:
		return decodeGroup000(cond, word, sink)
	case 0b001:
		return decodeGroup001(cond, word, sink)
	case 0b010:
		return decodeSingleDataTransfer(cond, word, decodeMemOffsetImmediate(word), sink)
	case 0b011:
		if bit(word, 4) {
			// Media instructions / architecturally undefined space.
			return sink.Undefined(word)
		}
		return decodeSingleDataTransfer(cond, word, decodeMemOffsetRegister(word), sink)
	case 0b100:
		return decodeBlockDataTransfer(cond, word, sink)
	case 0b101:
		return decodeBranchRelative(cond, word, sink)
	case 0b110:
		// Coprocessor load/store and double-register transfers: not
		// modeled, always undefined.
		return sink.Undefined(word)
	case 0b111:
		return decodeGroup111(cond, word, sink)
	}

	return sink.Undefined(word) // unreachable: bits(word,25,27) covers 0..7
}

func decodeGroup000[R any](cond Cond, word uint32, sink Sink[R]) R {
	setFlags := bit(word, 20)
	subOpcode := bits(word, 21, 24)

	if word&0x90 == 0x90 {
		if word&0x60 != 0 {
			return decodeHalfwordSignedTransfer(cond, word, sink)
		}
		switch bits(word, 23, 24) {
		case 0b00, 0b01:
			return decodeMultiplyGroup(cond, word, sink)
		case 0b10:
			return sink.HandleSingleDataSwap(SingleDataSwap{
				Cond: cond,
				Byte: bit(word, 22),
				Rn:   uint8(bits(word, 16, 19)),
				Rd:   uint8(bits(word, 12, 15)),
				Rm:   uint8(bits(word, 0, 3)),
			})
		default: // 0b11
			return sink.Undefined(word)
		}
	}

	if !setFlags && subOpcode >= 0b1000 && subOpcode <= 0b1011 {
		return decodeMiscellaneous(cond, word, sink)
	}

	return decodeDataProcessing(cond, word, decodeOperand2Register(word), sink)
}

func decodeMultiplyGroup[R any](cond Cond, word uint32, sink Sink[R]) R {
	switch bits(word, 21, 24) {
	case 0b0000, 0b0001:
		return sink.HandleMultiply(Multiply{
			Cond:       cond,
			Accumulate: bit(word, 21),
			SetFlags:   bit(word, 20),
			Rd:         uint8(bits(word, 16, 19)),
			Rn:         uint8(bits(word, 12, 15)),
			Rs:         uint8(bits(word, 8, 11)),
			Rm:         uint8(bits(word, 0, 3)),
		})
	case 0b0100, 0b0101, 0b0110, 0b0111:
		return sink.HandleMultiplyLong(MultiplyLong{
			Cond:       cond,
			Signed:     bit(word, 22),
			Accumulate: bit(word, 21),
			SetFlags:   bit(word, 20),
			RdHi:       uint8(bits(word, 16, 19)),
			RdLo:       uint8(bits(word, 12, 15)),
			Rs:         uint8(bits(word, 8, 11)),
			Rm:         uint8(bits(word, 0, 3)),
		})
	default:
		return sink.Undefined(word)
	}
}

// decodeMiscellaneous implements group 000's !set_flags, sub_opcode in
// 8..11 carve-out: status register moves, BX/BLX(reg), CLZ, saturating
// add/sub, and the signed halfword multiply family.
func decodeMiscellaneous[R any](cond Cond, word uint32, sink Sink[R]) R {
	if word&0xF0 == 0 {
		if bit(word, 21) {
			return sink.HandleStatusRegisterMove(decodeMSR(cond, word))
		}
		return sink.HandleStatusRegisterMove(decodeMRS(cond, word))
	}

	if word&0x6000F0 == 0x200010 {
		return sink.HandleBranchExchange(BranchExchange{Cond: cond, Link: false, Rm: uint8(bits(word, 0, 3))})
	}

	if word&0x6000F0 == 0x200020 {
		// Branch and exchange to Jazelle: not modeled.
		return sink.Undefined(word)
	}

	// NOTE (open question, mirrored rather than silently fixed per the
	// design note on architecture-version gating): CLZ is only valid on
	// ARMv5+, but this decoder does not gate it on a configured guest
	// architecture version and decodes it unconditionally.
	if word&0x6000F0 == 0x600010 {
		return sink.HandleCountLeadingZeros(CountLeadingZeros{
			Cond: cond,
			Rd:   uint8(bits(word, 12, 15)),
			Rm:   uint8(bits(word, 0, 3)),
		})
	}

	if word&0x6000F0 == 0x200030 {
		return sink.HandleBranchExchange(BranchExchange{Cond: cond, Link: true, Rm: uint8(bits(word, 0, 3))})
	}

	if word&0xF0 == 0x50 {
		return decodeSaturatingAddSub(cond, word, sink)
	}

	if word&0x6000F0 == 0x200070 {
		// Breakpoint: not modeled.
		return sink.Undefined(word)
	}

	if word&0x90 == 0x80 {
		return decodeSignedHalfwordMultiply(cond, word, sink)
	}

	return sink.Undefined(word)
}

// decodeMSR mirrors the source encoding's single move-status-register
// helper: it always extracts both the register and immediate operand
// fields, and Immediate (bit 25) tells the emitter which one is live.
func decodeMSR(cond Cond, word uint32) StatusRegisterMove {
	imm8 := bits(word, 0, 7)
	rot4 := bits(word, 8, 11)
	rotate := rot4 * 2
	return StatusRegisterMove{
		Cond:      cond,
		ToStatus:  true,
		Reg:       statusRegOf(word),
		Immediate: bit(word, 25),
		Rm:        uint8(bits(word, 0, 3)),
		Imm:       rotateRight32(imm8, rotate),
		Rotate:    rotate,
		Fsxc:      uint8(bits(word, 16, 19)),
	}
}

func decodeMRS(cond Cond, word uint32) StatusRegisterMove {
	return StatusRegisterMove{
		Cond:     cond,
		ToStatus: false,
		Reg:      statusRegOf(word),
		Rd:       uint8(bits(word, 12, 15)),
	}
}

func statusRegOf(word uint32) StatusRegister {
	if bit(word, 22) {
		return StatusSPSR
	}
	return StatusCPSR
}

func decodeSaturatingAddSub[R any](cond Cond, word uint32, sink Sink[R]) R {
	op := bits(word, 20, 23)
	if op&0b1001 != 0 {
		return sink.Undefined(word)
	}
	var kind SaturatingOp
	switch {
	case !bit(op, 1) && !bit(op, 2):
		kind = SatAdd
	case bit(op, 1) && !bit(op, 2):
		kind = SatSub
	case !bit(op, 1) && bit(op, 2):
		kind = SatDoubleAdd
	default:
		kind = SatDoubleSub
	}
	return sink.HandleSaturatingAddSub(SaturatingAddSub{
		Cond: cond,
		Op:   kind,
		Rd:   uint8(bits(word, 12, 15)),
		Rn:   uint8(bits(word, 16, 19)),
		Rm:   uint8(bits(word, 0, 3)),
	})
}

func decodeSignedHalfwordMultiply[R any](cond Cond, word uint32, sink Sink[R]) R {
	op := bits(word, 21, 24)
	x := bit(word, 5)
	y := bit(word, 6)
	dst := uint8(bits(word, 16, 19))
	lhs := uint8(bits(word, 0, 3))
	rhs := uint8(bits(word, 8, 11))
	op3 := uint8(bits(word, 12, 15))

	switch op {
	case 0b1000, 0b1011:
		kind := SMulSMLAxy
		if op == 0b1011 {
			kind = SMulSMULxy
		}
		return sink.HandleSignedHalfwordMultiply(SignedHalfwordMultiply{
			Cond: cond, Op: kind, X: x, Y: y,
			Rd: dst, Rm: lhs, Rs: rhs, Rn: op3,
		})
	case 0b1001:
		kind := SMulSMULWy
		if !x {
			kind = SMulSMLAWy
		}
		return sink.HandleSignedHalfwordMultiply(SignedHalfwordMultiply{
			Cond: cond, Op: kind, X: x, Y: y,
			Rd: dst, Rm: lhs, Rs: rhs, Rn: op3,
		})
	case 0b1010:
		return sink.HandleSignedHalfwordMultiply(SignedHalfwordMultiply{
			Cond: cond, Op: SMulSMLALxy, X: x, Y: y,
			Rd: dst, Rn: op3, Rm: lhs, Rs: rhs,
		})
	default:
		return sink.Undefined(word)
	}
}

func decodeDataProcessing[R any](cond Cond, word uint32, op2 Operand2, sink Sink[R]) R {
	return sink.HandleDataProcessing(DataProcessing{
		Cond:     cond,
		Opcode:   DPOpcode(bits(word, 21, 24)),
		SetFlags: bit(word, 20),
		Rn:       uint8(bits(word, 16, 19)),
		Rd:       uint8(bits(word, 12, 15)),
		Op2:      op2,
	})
}

func decodeGroup001[R any](cond Cond, word uint32, sink Sink[R]) R {
	setFlags := bit(word, 20)
	if !setFlags {
		switch bits(word, 21, 24) {
		case 0b1000, 0b1010:
			return sink.Undefined(word)
		case 0b1001, 0b1011:
			return sink.HandleStatusRegisterMove(decodeMSR(cond, word))
		}
	}
	return decodeDataProcessing(cond, word, decodeOperand2Immediate(word), sink)
}

func decodeSingleDataTransfer[R any](cond Cond, word uint32, offset MemOffset, sink Sink[R]) R {
	return sink.HandleSingleDataTransfer(SingleDataTransfer{
		Cond:         cond,
		Load:         bit(word, 20),
		Byte:         bit(word, 22),
		PreIncrement: bit(word, 24),
		Add:          bit(word, 23),
		Writeback:    bit(word, 21),
		Rn:           uint8(bits(word, 16, 19)),
		Rd:           uint8(bits(word, 12, 15)),
		Offset:       offset,
	})
}

func decodeHalfwordSignedTransfer[R any](cond Cond, word uint32, sink Sink[R]) R {
	load := bit(word, 20)
	sub := bits(word, 5, 6) // opcode field distinguishing SH/SB/H
	var kind HalfwordTransferKind
	switch sub {
	case 0b01:
		kind = HalfwordUnsignedHalf
	case 0b10:
		kind = HalfwordSignedByte
	default: // 0b11
		kind = HalfwordSignedHalf
	}

	var offset HalfwordOffset
	if bit(word, 22) {
		offset = decodeHalfwordOffsetImmediate(word)
	} else {
		offset = decodeHalfwordOffsetRegister(word)
	}

	return sink.HandleHalfwordSignedTransfer(HalfwordSignedTransfer{
		Cond:         cond,
		Kind:         kind,
		Load:         load,
		PreIncrement: bit(word, 24),
		Add:          bit(word, 23),
		Writeback:    bit(word, 21),
		Rn:           uint8(bits(word, 16, 19)),
		Rd:           uint8(bits(word, 12, 15)),
		Offset:       offset,
	})
}

func decodeBlockDataTransfer[R any](cond Cond, word uint32, sink Sink[R]) R {
	return sink.HandleBlockDataTransfer(BlockDataTransfer{
		Cond:         cond,
		Load:         bit(word, 20),
		PreIncrement: bit(word, 24),
		Add:          bit(word, 23),
		Writeback:    bit(word, 21),
		UserMode:     bit(word, 22),
		Rn:           uint8(bits(word, 16, 19)),
		RegList:      uint16(bits(word, 0, 15)),
	})
}

func decodeBranchRelative[R any](cond Cond, word uint32, sink Sink[R]) R {
	offset := signExtend24To32(bits(word, 0, 23)) * 4
	return sink.HandleBranchRelative(BranchRelative{
		Cond:   cond,
		Link:   bit(word, 24),
		Offset: offset,
	})
}

func decodeBranchLinkExchangeRelative[R any](word uint32, sink Sink[R]) R {
	offset := signExtend24To32(bits(word, 0, 23)) * 4
	offset += int32(bits(word, 24, 24)) * 2
	return sink.HandleBranchRelative(BranchRelative{
		Cond:     CondAL,
		Link:     true,
		Exchange: true,
		Offset:   offset,
	})
}

// decodeGroup111 implements the "coprocessor data op / coprocessor
// register transfer / supervisor call" carve-out: bit 24 selects SWI, and
// (when clear) bit 4 selects CDP (unmodeled, undefined) versus MRC/MCR.
func decodeGroup111[R any](cond Cond, word uint32, sink Sink[R]) R {
	if word&0x1000010 == 0 {
		// Coprocessor data processing: not modeled.
		return sink.Undefined(word)
	}
	if word&0x1000010 == 0x10 {
		return sink.HandleCoprocessorRegisterTransfer(CoprocessorRegisterTransfer{
			Cond:    cond,
			Load:    bit(word, 20),
			Rd:      uint8(bits(word, 12, 15)),
			CopNum:  uint8(bits(word, 8, 11)),
			Opcode1: uint8(bits(word, 21, 23)),
			Crn:     uint8(bits(word, 16, 19)),
			Crm:     uint8(bits(word, 0, 3)),
			Opcode2: uint8(bits(word, 5, 7)),
		})
	}
	return sink.HandleSoftwareInterrupt(SoftwareInterrupt{
		Cond:    cond,
		Comment: bits(word, 0, 23),
	})
}
