package core

// BranchType is the internal 4-bit branch condition the bytecode fetch
// stage remaps JVM opcode low bits into.
type BranchType int

const (
	BrNone BranchType = iota
	BrEQ
	BrNE
	BrLT
	BrGE
	BrGT
	BrLE
	BrACmpEQ
	BrACmpNE
	BrIfNull
	BrIfNonNull
)

// InterruptKind enumerates the two priority-ordered async sources that can
// redirect bytecode fetch: a pending hardware exception always outranks a
// pending interrupt, and both outrank normal fetch.
type InterruptKind int

const (
	IntrNone InterruptKind = iota
	IntrTimer
	IntrIO
)

// BytecodeFetch maintains JPC, fetches one bytecode byte per cycle, and
// accumulates operand bytes into jopd. Every field here must hold bit-for-
// bit across an arbitrarily long stall (spec §9 hazard #1, regression for
// bug #29): Step only mutates state when !stalled.
type BytecodeFetch struct {
	jbc []byte // per-core bytecode RAM

	JPC     uint32
	jopd    uint16
	bcInstr uint8

	branchSave uint32 // jpc at the start of the current branch's condition eval

	pendingExc ExceptionKind
	pendingIrq InterruptKind
}

// NewBytecodeFetch creates a bytecode-fetch unit over the given per-core
// bytecode RAM.
func NewBytecodeFetch(jbc []byte) *BytecodeFetch {
	return &BytecodeFetch{jbc: jbc}
}

// RaiseException posts a hardware exception for injection on the next
// jfetch. It always wins priority over any currently-pending interrupt,
// and is captured even if raised in the same cycle as a fetch (the
// pending bit is set combinationally then latched, so the fetch it races
// is not lost).
func (bf *BytecodeFetch) RaiseException(kind ExceptionKind) {
	bf.pendingExc = kind
}

// RaiseInterrupt posts a pending interrupt, unless an exception already
// has priority.
func (bf *BytecodeFetch) RaiseInterrupt(kind InterruptKind) {
	if bf.pendingExc == ExcNone {
		bf.pendingIrq = kind
	}
}

// FetchByte returns the bytecode byte at JPC without advancing anything —
// the raw "current instruction register" value Decode reads.
func (bf *BytecodeFetch) FetchByte() uint8 {
	return bf.jbc[bf.JPC]
}

// Instr returns the opcode byte latched by the most recent Advance — the
// bytecode a jfetch just fetched and is dispatching through the jump
// table.
func (bf *BytecodeFetch) Instr() uint8 { return bf.bcInstr }

// Advance moves JPC forward by one byte (normal fetch path). Must only be
// called when the pipeline is not stalled.
func (bf *BytecodeFetch) Advance() {
	bf.bcInstr = bf.jbc[bf.JPC]
	bf.JPC++
}

// AccumulateOperand shifts the next bytecode byte into jopd (jopdfetch).
func (bf *BytecodeFetch) AccumulateOperand() {
	bf.jopd = (bf.jopd << 8) | uint16(bf.jbc[bf.JPC])
	bf.JPC++
}

// Operand returns the current value of the jopd operand accumulator.
func (bf *BytecodeFetch) Operand() uint16 { return bf.jopd }

// FetchImmediateByte resets jopd and shifts in exactly one operand byte,
// for bytecodes (bipush-style) whose immediate is a single byte rather
// than the two-cycle accumulation a 16-bit branch offset needs.
func (bf *BytecodeFetch) FetchImmediateByte() uint8 {
	b := bf.jbc[bf.JPC]
	bf.jopd = uint16(b)
	bf.JPC++
	return b
}

// ResolveBranch computes jpc_br + sign-extend(jopd), the target of a
// taken branch, where jpc_br is the JPC captured at branch-condition
// evaluation time.
func (bf *BytecodeFetch) ResolveBranch() uint32 {
	offset := int32(int16(bf.jopd))
	return uint32(int64(bf.branchSave) + int64(offset))
}

// SaveBranchBase latches JPC as jpc_br for an upcoming branch resolution.
func (bf *BytecodeFetch) SaveBranchBase() {
	bf.branchSave = bf.JPC
}

// TakeBranch sets JPC to target (taken branch or absolute method
// invocation).
func (bf *BytecodeFetch) TakeBranch(target uint32) {
	bf.JPC = target
}

// PendingTrap reports whether an exception or interrupt is waiting to
// redirect the next jfetch, and clears it if so (the redirect is
// one-shot). Exception outranks interrupt outranks normal.
func (bf *BytecodeFetch) PendingTrap() (kind ExceptionKind, irq InterruptKind, has bool) {
	if bf.pendingExc != ExcNone {
		k := bf.pendingExc
		bf.pendingExc = ExcNone
		return k, IntrNone, true
	}
	if bf.pendingIrq != IntrNone {
		k := bf.pendingIrq
		bf.pendingIrq = IntrNone
		return ExcNone, k, true
	}
	return ExcNone, IntrNone, false
}

// remapBranchOpcode maps a JVM if_* opcode's low bits to the internal
// branch-type enum used by ResolveBranch's caller (Decode).
func remapBranchOpcode(lowBits uint8) BranchType {
	switch lowBits {
	case 0:
		return BrEQ
	case 1:
		return BrNE
	case 2:
		return BrLT
	case 3:
		return BrGE
	case 4:
		return BrGT
	case 5:
		return BrLE
	default:
		return BrNone
	}
}

// BranchTaken evaluates a branch type against the current flags.
func BranchTaken(bt BranchType, f Flags) bool {
	switch bt {
	case BrEQ:
		return f.Z
	case BrNE:
		return !f.Z
	case BrLT:
		return f.LT
	case BrGE:
		return !f.LT
	case BrGT:
		return !f.LT && !f.EQ
	case BrLE:
		return f.LT || f.EQ
	case BrACmpEQ, BrIfNull:
		return f.EQ
	case BrACmpNE, BrIfNonNull:
		return !f.EQ
	}
	return false
}
