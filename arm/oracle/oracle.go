//go:build unicorn
// +build unicorn

// Package oracle cross-checks this module's IR-interpreted execution
// against a real ARM core, Unicorn, so that a divergence is a compiler bug
// rather than a matter of interpretation. Gated the same way the teacher
// gates its own Unicorn-backed sandbox (recompiler_sandbox.go, x86 mode):
// the cgo dependency must not be mandatory for `go test ./...`.
package oracle

import (
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/kestrelcore/armjit/arm"
)

var gprRegs = [16]int{
	uc.ARM_REG_R0, uc.ARM_REG_R1, uc.ARM_REG_R2, uc.ARM_REG_R3,
	uc.ARM_REG_R4, uc.ARM_REG_R5, uc.ARM_REG_R6, uc.ARM_REG_R7,
	uc.ARM_REG_R8, uc.ARM_REG_R9, uc.ARM_REG_R10, uc.ARM_REG_R11,
	uc.ARM_REG_R12, uc.ARM_REG_R13, uc.ARM_REG_R14, uc.ARM_REG_R15,
}

const memSize = uint64(0x100000) // 1 MiB scratch region, page-aligned.

// Oracle runs guest code on a real ARM core for one basic block's worth of
// instructions and reports the resulting register file, for comparison
// against this module's own execution of the same code.
type Oracle struct {
	mu uc.Unicorn
}

// New maps a memSize scratch region at base and returns a ready oracle.
// base and its length must be page-aligned, mirroring the teacher's
// NewEmulator page-rounding for its own guest RAM region.
func New(base uint64) (*Oracle, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_ARM, uc.MODE_ARM)
	if err != nil {
		return nil, fmt.Errorf("create unicorn: %w", err)
	}
	if err := mu.MemMap(base, memSize); err != nil {
		mu.Close()
		return nil, fmt.Errorf("map guest memory: %w", err)
	}
	if err := mu.MemProtect(base, memSize, uc.PROT_ALL); err != nil {
		mu.Close()
		return nil, fmt.Errorf("protect guest memory: %w", err)
	}
	return &Oracle{mu: mu}, nil
}

func (o *Oracle) Close() error { return o.mu.Close() }

// LoadState seeds the oracle's GPRs and CPSR to match a CPU's architectural
// state before a comparison run, and writes code into the scratch region at
// its guest address.
func (o *Oracle) LoadState(cpu *arm.CPU, code []byte, codeAddr uint64) error {
	for i, reg := range gprRegs {
		if err := o.mu.RegWrite(reg, uint64(cpu.GetGPR(uint8(i)))); err != nil {
			return fmt.Errorf("write r%d: %w", i, err)
		}
	}
	if err := o.mu.RegWrite(uc.ARM_REG_CPSR, uint64(cpu.GetCPSR())); err != nil {
		return fmt.Errorf("write cpsr: %w", err)
	}
	if err := o.mu.MemWrite(codeAddr, code); err != nil {
		return fmt.Errorf("write code: %w", err)
	}
	return nil
}

// RunTo executes from start until it reaches stop (exclusive), the
// standard Unicorn one-shot Start/stop-address convention.
func (o *Oracle) RunTo(start, stop uint64) error {
	if err := o.mu.Start(start, stop); err != nil {
		return fmt.Errorf("run to %#x: %w", stop, err)
	}
	return nil
}

// GPRs reads back all sixteen general registers.
func (o *Oracle) GPRs() ([16]uint32, error) {
	var out [16]uint32
	for i, reg := range gprRegs {
		v, err := o.mu.RegRead(reg)
		if err != nil {
			return out, fmt.Errorf("read r%d: %w", i, err)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

func (o *Oracle) CPSR() (uint32, error) {
	v, err := o.mu.RegRead(uc.ARM_REG_CPSR)
	if err != nil {
		return 0, fmt.Errorf("read cpsr: %w", err)
	}
	return uint32(v), nil
}

// Diff compares the oracle's current register file against cpu's and
// returns a description of every mismatch, empty if none. r15 is excluded
// from the general loop and never compared: Unicorn reports the real next-
// fetch address on halt, not the pipeline-offset convention this module
// stores PC under, so a caller comparing PCs must reconcile that
// out-of-band rather than relying on this method.
func (o *Oracle) Diff(cpu *arm.CPU) ([]string, error) {
	gprs, err := o.GPRs()
	if err != nil {
		return nil, err
	}
	var mismatches []string
	for i, want := range gprs {
		if i == 15 {
			continue
		}
		if got := cpu.GetGPR(uint8(i)); got != want {
			mismatches = append(mismatches, fmt.Sprintf("r%d: cpu=%#x oracle=%#x", i, got, want))
		}
	}
	cpsr, err := o.CPSR()
	if err != nil {
		return nil, err
	}
	if got := cpu.GetCPSR(); got != cpsr {
		mismatches = append(mismatches, fmt.Sprintf("cpsr: cpu=%#x oracle=%#x", got, cpsr))
	}
	return mismatches, nil
}
