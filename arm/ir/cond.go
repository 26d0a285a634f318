package ir

// Cond is the 4-bit guest condition code guarding a micro-block's effects.
// The IR has no branch or compare opcode of its own — per the translator
// contract, evaluating the condition and skipping the block's effects when
// it's false is the backend's job (typically a branch-around at codegen
// time); the emitter's only responsibility is recording which condition
// applies.
type Cond uint8

// CondAL needs no runtime check: the block's effects always apply.
const CondAL Cond = 0xE
