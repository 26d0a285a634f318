package arm

import "github.com/kestrelcore/armjit/arm/ir"

// Backend lowers a compiled BasicBlock's IR to executable host code and
// runs it. It is an external collaborator: this package never generates
// machine code itself, only drives when Compile and Call are invoked.
//
// Compile must record whatever it needs to run the block later on
// block.Compiled; the CPU treats that field as backend-owned opaque state.
// Call enters the block's compiled code and returns when it yields control
// back — because the cycle budget ran out, because the block reached a
// point requiring re-dispatch (a runtime-computed branch target, a refused
// successor), or because guest state now requests IRQ-wait.
type Backend interface {
	Compile(block *BasicBlock) error
	Call(block *BasicBlock, remainingCycles int) int
}

// Optimizer runs after translation and before backend compilation, one
// micro-block at a time. It is optional: a nil Optimizer in Config means
// the translator's output is handed to the backend unmodified, which is
// always correct, just possibly slower generated code.
type Optimizer interface {
	Optimize(block *ir.MicroBlock)
}
