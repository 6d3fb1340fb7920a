package core

// Flags holds the condition codes the ALU writes back on every operation:
// Z (zero), N (negative), EQ (operands equal) and LT (less-than). Decode
// combines these with a microcode branch-type field to resolve a taken
// branch.
type Flags struct {
	Z, N, EQ, LT bool
}

// Registers is the per-core pipeline register file. A is always the
// freshly-pushed value; a POP shifts B into A and refills B from the stack
// cache. SP never decreases below the stack cache's base.
type Registers struct {
	PC uint32 // microcode program counter (11 bits)
	IR uint32 // microcode instruction register

	A, B uint32 // two-register top-of-stack

	SP uint8  // stack pointer (index into the logical Java stack)
	VP uint32 // variable pointer (local variable base)
	MP uint32 // method pointer (current method's constant-pool base)

	Scratch [16]uint32
	Flags   Flags
}

// Reset restores the register file to its power-on state.
func (r *Registers) Reset() {
	*r = Registers{}
}
