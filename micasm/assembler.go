// Package micasm assembles a small line-oriented microcode assembly
// language into a core.MicrocodeROM plus a core.JumpTable, so test
// vectors and scenarios can express a bytecode's microcode sequence as
// readable text instead of literal MicroInstr struct literals.
//
// Grounded on the teacher's assembler/ie32asm.go: a two-pass assembler
// (pass one resolves label addresses, pass two encodes operands that
// reference them) over a mnemonic table, adapted here from an ie32
// instruction encoding into core.MicroInstr field encoding.
package micasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jop-sim/jopcore/core"
)

// Program is the result of a successful Assemble: a microcode word list
// plus a label table, kept around so callers (and tests) can refer to
// labels by name instead of raw addresses.
type Program struct {
	Words  []core.MicroInstr
	Labels map[string]uint32

	// Bindings maps a bytecode value to the label its implementation
	// starts at, populated by `.bind <opcode> <label>` directives.
	Bindings map[uint8]string
}

type rawInstr struct {
	mnemonic string
	args     []string
	line     int
}

// Assemble parses src and returns the assembled program. It does not
// build the MicrocodeROM/JumpTable itself (see BuildROM/BuildJumpTable)
// so callers can inspect or further edit the decoded form first.
func Assemble(src string) (*Program, error) {
	labels := map[string]uint32{}
	bindings := map[uint8]string{}
	var instrs []rawInstr

	for lineNo, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, ".bind") {
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, fmt.Errorf("micasm:%d: .bind takes <opcode> <label>", lineNo+1)
			}
			op, err := parseU8(fields[1])
			if err != nil {
				return nil, fmt.Errorf("micasm:%d: %w", lineNo+1, err)
			}
			bindings[op] = fields[2]
			continue
		}
		if strings.HasSuffix(line, ":") {
			name := strings.TrimSuffix(line, ":")
			labels[name] = uint32(len(instrs))
			continue
		}
		fields := strings.Fields(line)
		instrs = append(instrs, rawInstr{mnemonic: strings.ToUpper(fields[0]), args: fields[1:], line: lineNo + 1})
	}

	words := make([]core.MicroInstr, len(instrs))
	for i, ri := range instrs {
		mi, err := encode(ri, labels)
		if err != nil {
			return nil, err
		}
		words[i] = mi
	}

	return &Program{Words: words, Labels: labels, Bindings: bindings}, nil
}

// BuildROM validates and wraps the assembled words as a MicrocodeROM.
func (p *Program) BuildROM() (*core.MicrocodeROM, error) {
	return core.NewMicrocodeROM(p.Words)
}

// BuildJumpTable constructs a jump table routing every bound opcode to
// its label's address; unbound opcodes fall through to trapLabel.
func (p *Program) BuildJumpTable(trapLabel string) (*core.JumpTable, error) {
	trapAddr, ok := p.Labels[trapLabel]
	if !ok {
		return nil, fmt.Errorf("micasm: unknown trap label %q", trapLabel)
	}
	jt := core.NewJumpTable(trapAddr)
	for op, label := range p.Bindings {
		addr, ok := p.Labels[label]
		if !ok {
			return nil, fmt.Errorf("micasm: .bind 0x%02x references unknown label %q", op, label)
		}
		jt.Set(op, addr)
	}
	return jt, nil
}

func parseU8(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), hexOrDec(s), 8)
	if err != nil {
		return 0, fmt.Errorf("bad opcode %q: %w", s, err)
	}
	return uint8(v), nil
}

func hexOrDec(s string) int {
	if strings.HasPrefix(s, "0x") {
		return 16
	}
	return 10
}
