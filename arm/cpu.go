package arm

import (
	"github.com/kestrelcore/armjit/arm/disasm"
	"github.com/kestrelcore/armjit/arm/ir"
	"github.com/kestrelcore/armjit/arm/translator"
	"github.com/kestrelcore/armjit/armlog"
)

var log = armlog.New("cpu")

const (
	armInstrWidth   = 4
	thumbInstrWidth = 2

	// speculativeCompileDepth bounds the recursion the source performed
	// when warming the cache along a statically known branch target; see
	// compileSpeculative for the work-queue reimplementation.
	speculativeCompileDepth = 8

	irqVectorOffset = 0x18
)

// Config carries everything New needs to build a CPU: where guest
// exceptions vector to, the guest address space, and the two optional
// external collaborators (backend is required; optimizer is not).
type Config struct {
	ExceptionBase uint32
	Memory        Memory
	Backend       Backend
	Optimizer     Optimizer // nil is valid: skip the optimization pass.
}

// CPU is the single owning structure for one guest core's architectural
// state, block cache, translator, and backend — the source's back-reference
// object graph (CPU, translator, cache, backend, all holding pointers to
// each other) collapsed into one struct holding its subsystems directly.
// A CPU is not internally synchronized; §5 requires the host to serialize
// Run, IRQ line mutations, and state inspection.
type CPU struct {
	exceptionBase uint32
	memory        Memory
	backend       Backend
	optimizer     Optimizer

	regs  *registerFile
	cache *blockCache

	irqLine     bool
	waitForIRQ  bool
	cyclesToRun int

	// halted is set once the dispatch loop hits a refused translation and
	// stays set until Reset. Per §7 a refusal is fatal, not retried: the
	// guest core simply stops.
	halted bool
}

// New builds a CPU from cfg. Backend must be non-nil; there is no
// interpreter fallback in this core.
func New(cfg Config) *CPU {
	if cfg.Backend == nil {
		panic("arm: Config.Backend must not be nil")
	}
	return &CPU{
		exceptionBase: cfg.ExceptionBase,
		memory:        cfg.Memory,
		backend:       cfg.Backend,
		optimizer:     cfg.Optimizer,
		regs:          newRegisterFile(),
		cache:         newBlockCache(),
	}
}

// Reset clears IRQ state and the cycle budget, resets architectural state
// to its zero value, and flushes the block cache.
func (c *CPU) Reset() {
	c.irqLine = false
	c.waitForIRQ = false
	c.cyclesToRun = 0
	c.halted = false
	c.regs = newRegisterFile()
	c.cache.flush()
}

func (c *CPU) IRQLine() bool          { return c.irqLine }
func (c *CPU) SetIRQLine(asserted bool) { c.irqLine = asserted }
func (c *CPU) WaitForIRQ()            { c.waitForIRQ = true }
func (c *CPU) CancelIRQWait()         { c.waitForIRQ = false }
func (c *CPU) IsWaitingForIRQ() bool  { return c.waitForIRQ }

// IsHalted reports whether the dispatch loop has stopped after a refused
// translation, per §7's fatal-condition contract. Run returns 0 immediately
// on every call while halted; only Reset clears it.
func (c *CPU) IsHalted() bool { return c.halted }

func (c *CPU) ClearICache() { c.cache.flush() }

func (c *CPU) ClearICacheRange(lo, hi uint32) { c.cache.flushRange(lo, hi) }

// CacheStats reports the block cache's accumulated hit/miss/eviction
// counters, for diagnostic tools such as cmd/armdis.
func (c *CPU) CacheStats() CacheStats { return c.cache.Stats() }

// Memory returns the guest address space this CPU was configured with, for
// a Backend's generated code (or an interpreter standing in for one) to
// perform guest data access against, per §6's Memory contract.
func (c *CPU) Memory() Memory { return c.memory }

func (c *CPU) instrWidth() uint32 {
	if cpsrThumb(c.regs.cpsrValue()) {
		return thumbInstrWidth
	}
	return armInstrWidth
}

// GetGPR reads register reg as banked for the CPU's current mode.
func (c *CPU) GetGPR(reg uint8) uint32 {
	return c.regs.get(c.regs.currentMode(), reg)
}

// GetGPRMode reads register reg as banked for an explicit mode, for host
// inspection of a mode the CPU isn't currently running in.
func (c *CPU) GetGPRMode(reg uint8, mode ir.GuestMode) uint32 {
	return c.regs.get(mode, reg)
}

// SetGPR writes register reg as banked for the CPU's current mode. Writing
// PC (register 15) applies the pipeline offset per invariant 5: the stored
// value becomes value + 2*instr_width, not value itself.
func (c *CPU) SetGPR(reg uint8, value uint32) {
	c.SetGPRMode(reg, c.regs.currentMode(), value)
}

func (c *CPU) SetGPRMode(reg uint8, mode ir.GuestMode, value uint32) {
	if reg == 15 {
		value += 2 * c.instrWidth()
	}
	c.regs.set(mode, reg, value)
}

func (c *CPU) GetCPSR() uint32          { return c.regs.cpsrValue() }
func (c *CPU) SetCPSR(value uint32)     { c.regs.setCPSR(value) }
func (c *CPU) GetSPSR(mode ir.GuestMode) uint32 { return c.regs.spsrValue(mode) }
func (c *CPU) SetSPSR(mode ir.GuestMode, value uint32) {
	c.regs.setSPSR(mode, value)
}

// currentBlockKey forms the block key from live architectural state: the
// executing instruction's own address (the stored PC minus the pipeline
// offset), the current mode, and the Thumb bit.
func (c *CPU) currentBlockKey() BlockKey {
	cpsr := c.regs.cpsrValue()
	mode := cpsrMode(cpsr)
	thumb := cpsrThumb(cpsr)
	storedPC := c.regs.get(mode, 15)
	width := armInstrWidth
	if thumb {
		width = thumbInstrWidth
	}
	return NewBlockKey(storedPC-uint32(2*width), mode, thumb)
}

// Run executes up to requestedCycles guest cycles and returns how many
// actually ran. If the guest PC ever lands on an instruction the translator
// refuses, per §7 that is a fatal condition: Run stops immediately, without
// calling the backend, and returns the count executed so far. Once halted
// this way, every subsequent Run call returns 0 until Reset.
func (c *CPU) Run(requestedCycles int) int {
	if c.halted {
		return 0
	}
	if c.IsWaitingForIRQ() && !c.irqLine {
		return 0
	}

	c.cyclesToRun += requestedCycles
	startCycles := c.cyclesToRun

	for c.cyclesToRun > 0 {
		if c.irqLine && !cpsrIRQMasked(c.regs.cpsrValue()) {
			c.signalIRQ()
		}

		key := c.currentBlockKey()
		block := c.cache.get(key)
		if block == nil {
			block = c.compile(key, 0)
			if len(block.MicroBlocks) == 0 {
				log.Error("halting dispatch: translation refused", "key", key)
				c.halted = true
				executed := startCycles - c.cyclesToRun
				c.cyclesToRun = 0
				return executed
			}
		}

		c.cyclesToRun = c.backend.Call(block, c.cyclesToRun)

		if c.IsWaitingForIRQ() {
			executed := startCycles - c.cyclesToRun
			c.cyclesToRun = 0
			return executed
		}
	}
	return startCycles - c.cyclesToRun
}

// compile translates key's block, runs the optional optimizer over each
// micro-block, hands it to the backend, and inserts it into the cache.
// depth bounds the speculative pre-compile of a statically known branch
// target, mirroring the source's recursive warm-up but reimplemented as an
// explicit work queue with a visited set (per the design note on
// converting bounded recursion into an iterative form), so pre-compiling a
// long straight-line chain of blocks never grows the host stack.
func (c *CPU) compile(key BlockKey, depth int) *BasicBlock {
	block := c.translate(key)

	if len(block.MicroBlocks) == 0 {
		// A refusal on the first instruction of the block: nothing to hand
		// the backend and nothing worth caching. The caller (Run) checks
		// for exactly this and halts rather than calling backend.Call on
		// an empty block and looping forever on the same guest PC.
		return block
	}

	if c.optimizer != nil {
		for i := range block.MicroBlocks {
			c.optimizer.Optimize(&block.MicroBlocks[i])
		}
	}

	if err := c.backend.Compile(block); err != nil {
		log.Error("backend compile failed", "key", key, "error", err)
	}
	c.cache.set(block)

	c.compileSpeculative(block, depth)
	return block
}

// compileSpeculative pre-compiles the chain of statically known branch
// targets starting at block, breadth-first, up to speculativeCompileDepth
// hops, skipping any target already cached or already visited this pass.
func (c *CPU) compileSpeculative(block *BasicBlock, depth int) {
	if depth >= speculativeCompileDepth {
		return
	}
	visited := map[BlockKey]bool{block.Key: true}
	queue := []struct {
		key   BlockKey
		depth int
	}{}
	if block.BranchTarget.Valid() {
		queue = append(queue, struct {
			key   BlockKey
			depth int
		}{block.BranchTarget, depth + 1})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if visited[item.key] || item.depth > speculativeCompileDepth {
			continue
		}
		visited[item.key] = true
		if c.cache.get(item.key) != nil {
			continue
		}

		next := c.translate(item.key)
		if len(next.MicroBlocks) == 0 {
			// Refused: nothing to warm here, and no branch target to chase
			// further since Terminated never happened.
			continue
		}
		if c.optimizer != nil {
			for i := range next.MicroBlocks {
				c.optimizer.Optimize(&next.MicroBlocks[i])
			}
		}
		if err := c.backend.Compile(next); err != nil {
			log.Error("speculative backend compile failed", "key", item.key, "error", err)
			continue
		}
		c.cache.set(next)

		if next.BranchTarget.Valid() {
			queue = append(queue, struct {
				key   BlockKey
				depth int
			}{next.BranchTarget, item.depth + 1})
		}
	}
}

// translate builds one BasicBlock by repeatedly fetching and translating
// instructions from key's starting address until the translator reports
// block termination or refuses. A refusal after at least one instruction
// still yields a block ending at the refusal point, since everything
// translated up to there remains valid to run. A refusal on the very first
// instruction yields a block with zero MicroBlocks; compile and Run both
// check for exactly that and treat it as the fatal condition §7 describes,
// halting the dispatch loop rather than compiling or caching an empty
// block.
func (c *CPU) translate(key BlockKey) *BasicBlock {
	block := &BasicBlock{Key: key, spanLo: key.PC(), spanHi: key.PC()}

	tr := translator.New(key.Mode())
	address := key.PC()
	for {
		word := c.memory.FastReadCodeU32(address)
		res, ok := tr.Translate(address, word)
		if !ok {
			log.Debug("translation refused", "address", address)
			break
		}

		res.Block.Disasm = disasm.Decode(word)
		block.MicroBlocks = append(block.MicroBlocks, res.Block)
		block.spanHi = address + armInstrWidth

		if res.Terminated {
			if res.HasBranchTarget {
				block.BranchTarget = NewBlockKey(res.BranchTarget, key.Mode(), false)
			}
			break
		}
		address += armInstrWidth
	}
	return block
}

// signalIRQ performs the IRQ handshake described in §4.6: save CPSR to
// SPSR_irq, switch to IRQ mode with IRQ masked and Thumb cleared, set LR to
// the return address, and vector PC to the IRQ entry.
func (c *CPU) signalIRQ() {
	c.waitForIRQ = false

	cpsr := c.regs.cpsrValue()
	thumb := cpsrThumb(cpsr)
	c.regs.setSPSR(ir.ModeIRQ, cpsr)

	// pc is the raw stored r15 value (executing_addr + 2*width, per the
	// pipeline-offset convention) — §4.6 defines the return address in
	// terms of this raw value, not the recovered executing address.
	pc := c.GetGPR(15)
	var returnAddr uint32
	if thumb {
		returnAddr = pc
	} else {
		returnAddr = pc - armInstrWidth
	}

	newCPSR := (cpsr &^ cpsrModeMask) | uint32(ir.ModeIRQ)
	newCPSR |= 1 << cpsrBitI
	newCPSR &^= 1 << cpsrBitT
	c.regs.setCPSR(newCPSR)

	c.SetGPRMode(14, ir.ModeIRQ, returnAddr)
	c.SetGPRMode(15, ir.ModeIRQ, c.exceptionBase+irqVectorOffset)
}
