package core

// JumpTable maps a fetched bytecode (0-255) to the microcode ROM address
// its implementation begins at. Unmapped entries fall through to a
// default trap handler, matching the teacher's coprocessor dispatch
// table default-case pattern (coprocessor_manager.go's worker lookup
// falling back to an "unknown op" slot).
type JumpTable struct {
	entries    [256]uint32
	trapTarget uint32
}

// NewJumpTable creates a jump table where every entry starts out routed
// to trapTarget (the illegal-opcode trap in the microcode ROM).
func NewJumpTable(trapTarget uint32) *JumpTable {
	jt := &JumpTable{trapTarget: trapTarget}
	for i := range jt.entries {
		jt.entries[i] = trapTarget
	}
	return jt
}

// Set binds a bytecode to a microcode start address.
func (jt *JumpTable) Set(opcode uint8, target uint32) {
	jt.entries[opcode] = target
}

// Lookup returns the microcode start address for opcode.
func (jt *JumpTable) Lookup(opcode uint8) uint32 {
	return jt.entries[opcode]
}
