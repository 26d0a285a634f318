// Package disasm renders a guest ARM instruction word back to text, the way
// pvm/recompiler.go's Disassemble renders generated x86 bytes back to text:
// hand the raw encoding to golang.org/x/arch's architecture-specific
// disassembler rather than re-deriving mnemonic and operand syntax from a
// decoder this module already maintains for its own purposes. pvm reaches
// for x86asm.Decode+Inst.String() on the bytes it emits; this package reaches
// for x86asm's ARM sibling, armasm, on the bytes it receives as a guest.
//
// This package is diagnostic only: cmd/armdis and arm/cpu.go's per-block
// trace annotation are its only callers, never the translator.
package disasm

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/arm/armasm"
)

// Decode renders word as a single line of ARM assembly text in GNU syntax,
// best effort. Every family the translator refuses is still rendered here —
// a disassembler has no reason to share the translator's scope limits — and
// a word armasm itself can't decode falls back to a placeholder.
func Decode(word uint32) string {
	var enc [4]byte
	binary.LittleEndian.PutUint32(enc[:], word)

	inst, err := armasm.Decode(enc[:], armasm.ModeARM)
	if err != nil {
		return fmt.Sprintf("UNDEFINED (%#08x)", word)
	}
	return armasm.GNUSyntax(inst)
}
