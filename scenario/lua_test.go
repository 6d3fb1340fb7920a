package scenario

import (
	"testing"

	"github.com/jop-sim/jopcore/micasm"
)

func TestLuaScriptDrivesIntegerAddScenario(t *testing.T) {
	prog, err := micasm.Assemble(integerAddProgram)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	prog.Bindings[0x00] = "start"

	h, err := Build(smallConfig(1), prog, []byte{0x00, 0x2A, 0x11})
	if err != nil {
		t.Fatalf("build harness: %v", err)
	}

	script := `
jop.tick(1000)
jop.assert(jop.halted(0), "core 0 should have halted")
`
	if err := RunLuaScript(h, script); err != nil {
		t.Fatalf("lua script: %v", err)
	}
}

func TestLuaScriptReadsRegistersAndMemory(t *testing.T) {
	prog, err := micasm.Assemble(`
boot:
    jfetch
trap:
    halt
start:
    halt
`)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	prog.Bindings[0x00] = "start"

	h, err := Build(smallConfig(1), prog, []byte{0x00})
	if err != nil {
		t.Fatalf("build harness: %v", err)
	}

	script := `
jop.write_memory(0, 0, 0xBEEF)
jop.assert(jop.read_memory(0, 0) == 0xBEEF, "memory round trip failed")
jop.assert(jop.register(0, "SP") == 0, "fresh core should start with SP == 0")
`
	if err := RunLuaScript(h, script); err != nil {
		t.Fatalf("lua script: %v", err)
	}
}
