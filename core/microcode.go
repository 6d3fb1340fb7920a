package core

import "fmt"

// OperandMux selects the source of an ALU operand.
type OperandMux int

const (
	MuxZero OperandMux = iota
	MuxStackTOS
	MuxStackNOS
	MuxRegA
	MuxRegB
	MuxImmediate // next bytecode byte, loaded into jopd by FetchImmediateByte, sign-extended
	MuxMemResult
	MuxVP
	MuxMP
	MuxPC
)

// WriteDest selects where an Execute-stage result is written back to.
type WriteDest int

const (
	DestNone WriteDest = iota
	DestStackPush
	DestRegA
	DestRegB
	DestVP
	DestMP
	DestPC
)

// NextPCSel selects how the microcode PC advances after this instruction.
type NextPCSel int

const (
	NpcSequential NextPCSel = iota
	NpcJump                 // unconditional jump to JumpTarget
	NpcBranchTaken          // jump to JumpTarget only if the branch condition holds
	NpcJFetch               // return to the jump table via the next fetched bytecode
)

// MicroInstr is one word of the microcode ROM: the decoded control signals
// for a single pipeline cycle, mirroring the bit-field layout the spec's
// microcode table describes (ALU op / operand muxes / push-pop / mem-op
// class / jopdfetch / jfetch / next-PC select).
type MicroInstr struct {
	ALUOp ALUOp
	AMux  OperandMux
	BMux  OperandMux
	Dest  WriteDest

	Pop int // number of operand-stack words this cycle consumes (0-2)

	MemOp MemOpClass // asserted memory-controller request class, if any

	OpdFetch bool // jopdfetch marker, checked by Validate; Core.Step does not read it (operand bytes are fetched through MuxImmediate)
	JFetch   bool // jfetch: this is the instruction's last cycle; next cycle re-enters via jump table

	NextPC     NextPCSel
	JumpTarget uint32
	Branch     BranchType

	// Halt stops this core permanently once executed (sys_exit); Cluster
	// still ticks it but its pipeline becomes a no-op forever after.
	Halt bool
}

// Validate enforces the two structural mutual-exclusion rules every
// microcode word must satisfy. NewMicrocodeROM calls it on every word, so
// ROMs built by micasm's BuildROM and hand-built ROM images used by tests
// get the same check.
func (mi MicroInstr) Validate() error {
	if mi.OpdFetch && mi.JFetch {
		return fmt.Errorf("microcode: opdfetch and jfetch cannot both be asserted in the same cycle")
	}
	if mi.MemOp != MemNone && mi.Dest == DestStackPush {
		return fmt.Errorf("microcode: a memory-op cycle cannot also push a stack value in the same cycle; the result lands in the memory-result register on completion and a later word pushes it via MuxMemResult")
	}
	return nil
}

// MicrocodeROM holds the control-store program executed by Decode/Execute.
type MicrocodeROM struct {
	words []MicroInstr
}

// NewMicrocodeROM wraps a validated slice of microcode words.
func NewMicrocodeROM(words []MicroInstr) (*MicrocodeROM, error) {
	for i, w := range words {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("microcode word %d: %w", i, err)
		}
	}
	return &MicrocodeROM{words: words}, nil
}

// Fetch returns the microcode word at pc.
func (rom *MicrocodeROM) Fetch(pc uint32) MicroInstr {
	return rom.words[pc]
}

// Len reports the ROM's word count.
func (rom *MicrocodeROM) Len() int { return len(rom.words) }
