package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelcore/armjit/arm"
	"github.com/kestrelcore/armjit/arm/interp"
	"github.com/kestrelcore/armjit/arm/ir"
)

// movsMemory serves a single MOVS r0, r0, LSR #2 at address 0, then an
// unconditional self-branch everywhere else so the block terminates right
// after it.
type movsMemory struct{}

func (movsMemory) FastReadCodeU32(address uint32) uint32 {
	if address == 0 {
		return 0xE1B00120 // MOVS r0, r0, LSR #2
	}
	return 0xEAFFFFFE // B .
}

func (movsMemory) ReadU8(uint32, arm.BusKind) uint8     { return 0 }
func (movsMemory) ReadU16(uint32, arm.BusKind) uint16   { return 0 }
func (movsMemory) ReadU32(uint32, arm.BusKind) uint32   { return 0 }
func (movsMemory) WriteU8(uint32, uint8, arm.BusKind)   {}
func (movsMemory) WriteU16(uint32, uint16, arm.BusKind) {}
func (movsMemory) WriteU32(uint32, uint32, arm.BusKind) {}

// A preceding shift's carry-out must survive an AND/EOR-family opcode in the
// same micro-block untouched, since AND/EOR have no carry-out of their own
// (see the AND emitter's doc comment) — this is what synthesizes MOVS from
// a shifted-register operand plus EOR. Regression test for a bug where the
// EOR that synthesizes MOV unconditionally zeroed the host carry flag,
// discarding the one the LSR had just set.
func TestMOVSShifterCarryOutSurvivesIntoCPSR(t *testing.T) {
	backend := interp.New()
	cpu := arm.New(arm.Config{Memory: movsMemory{}, Backend: backend})
	backend.Bind(cpu)
	cpu.SetCPSR(uint32(ir.ModeUser))
	cpu.SetGPR(15, 0) // start executing at the MOVS
	cpu.SetGPR(0, 2)  // bit 1 set: LSR #2 shifts it out into the carry

	cpu.Run(1)

	require.Zero(t, cpu.GetGPR(0), "2 >> 2 == 0")
	cpsr := cpu.GetCPSR()
	require.NotZero(t, cpsr&(1<<29), "the LSR shifter's carry-out must reach CPSR.C")
	require.NotZero(t, cpsr&(1<<30), "the result is zero, Z must be set")
	require.Zero(t, cpsr&(1<<31), "the result is non-negative, N must be clear")
}
