package micasm

import (
	"fmt"

	"github.com/jop-sim/jopcore/core"
)

// encode decodes one parsed instruction line into a MicroInstr. The
// mnemonic table intentionally stays small: it covers exactly the
// microcode sequences the bundled scenarios need (arithmetic, field and
// array access, branching; no method dispatch), the same scope
// judgment call the teacher's ie32asm.go makes by covering only the
// ie32 opcodes its own test programs exercise.
func encode(ri rawInstr, labels map[string]uint32) (core.MicroInstr, error) {
	switch ri.mnemonic {
	case "NOP":
		return core.MicroInstr{}, nil

	case "DUP":
		return core.MicroInstr{AMux: core.MuxStackTOS, Dest: core.DestStackPush}, nil

	case "ADD", "SUB", "AND", "OR", "XOR", "SHL", "SHR", "USHR", "CMP", "EQ", "DIV", "REM":
		return core.MicroInstr{
			ALUOp: aluOpByName[ri.mnemonic],
			AMux:  core.MuxStackNOS, BMux: core.MuxStackTOS,
			Pop: 2, Dest: core.DestStackPush,
		}, nil

	case "PUSHIMM":
		return core.MicroInstr{AMux: core.MuxImmediate, Dest: core.DestStackPush, OpdFetch: true}, nil

	case "PUSHA":
		return core.MicroInstr{AMux: core.MuxRegA, Dest: core.DestStackPush}, nil

	case "STOREA":
		return core.MicroInstr{AMux: core.MuxStackTOS, Pop: 1, Dest: core.DestRegA}, nil

	case "GETFIELD":
		return core.MicroInstr{AMux: core.MuxStackTOS, Pop: 1, MemOp: core.MemGetfield}, nil

	case "PUTFIELD":
		return core.MicroInstr{AMux: core.MuxStackNOS, BMux: core.MuxStackTOS, Pop: 2, MemOp: core.MemPutfield}, nil

	case "IALOAD":
		return core.MicroInstr{AMux: core.MuxStackNOS, BMux: core.MuxStackTOS, Pop: 2, MemOp: core.MemIaload}, nil

	case "IASTORE":
		return core.MicroInstr{AMux: core.MuxStackNOS, BMux: core.MuxStackTOS, Pop: 2, MemOp: core.MemIastore}, nil

	case "JUMP":
		target, err := labelArg(ri, labels, 0)
		if err != nil {
			return core.MicroInstr{}, err
		}
		return core.MicroInstr{NextPC: core.NpcJump, JumpTarget: target}, nil

	case "BEQ", "BNE", "BLT", "BGE", "BGT", "BLE":
		target, err := labelArg(ri, labels, 0)
		if err != nil {
			return core.MicroInstr{}, err
		}
		return core.MicroInstr{
			AMux: core.MuxStackNOS, BMux: core.MuxStackTOS, Pop: 2,
			NextPC: core.NpcBranchTaken, JumpTarget: target, Branch: branchByName[ri.mnemonic],
		}, nil

	case "JFETCH":
		return core.MicroInstr{JFetch: true}, nil

	case "HALT":
		return core.MicroInstr{Halt: true}, nil
	}
	return core.MicroInstr{}, fmt.Errorf("micasm:%d: unknown mnemonic %q", ri.line, ri.mnemonic)
}

var aluOpByName = map[string]core.ALUOp{
	"ADD": core.ALUAdd, "SUB": core.ALUSub, "AND": core.ALUAnd, "OR": core.ALUOr,
	"XOR": core.ALUXor, "SHL": core.ALUShl, "SHR": core.ALUShr, "USHR": core.ALUUshr,
	"CMP": core.ALUCmp, "EQ": core.ALUEq, "DIV": core.ALUDiv, "REM": core.ALURem,
}

var branchByName = map[string]core.BranchType{
	"BEQ": core.BrEQ, "BNE": core.BrNE, "BLT": core.BrLT,
	"BGE": core.BrGE, "BGT": core.BrGT, "BLE": core.BrLE,
}

func labelArg(ri rawInstr, labels map[string]uint32, idx int) (uint32, error) {
	if idx >= len(ri.args) {
		return 0, fmt.Errorf("micasm:%d: %s requires a label argument", ri.line, ri.mnemonic)
	}
	addr, ok := labels[ri.args[idx]]
	if !ok {
		return 0, fmt.Errorf("micasm:%d: undefined label %q", ri.line, ri.args[idx])
	}
	return addr, nil
}
