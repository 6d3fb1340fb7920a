package scenario

import (
	"testing"

	"github.com/jop-sim/jopcore/core"
	"github.com/jop-sim/jopcore/micasm"
)

func smallConfig(cores int) *core.Config {
	cfg := core.DefaultConfig()
	cfg.CoreCount = cores
	cfg.HeapWords = 4096
	cfg.HandleCap = 256
	cfg.StackBankCount = 2
	cfg.StackBankWords = 32
	return &cfg
}

// integerAddProgram assembles the "push 42, push 17, iadd, halt" test
// vector (spec §8); the sum is left on the operand stack.
const integerAddProgram = `
boot:
    jfetch
trap:
    halt
start:
    pushimm
    pushimm
    add
    halt
`

func TestIntegerAddScenario(t *testing.T) {
	prog, err := micasm.Assemble(integerAddProgram)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	prog.Bindings[0x00] = "start"

	// byte 0 is the dispatched opcode (bound to "start"); bytes 1-2 are
	// the two pushimm operands (42 and 17) consumed one per pushimm.
	bytecode := []byte{0x00, 0x2A, 0x11}
	h, err := Build(smallConfig(1), prog, bytecode)
	if err != nil {
		t.Fatalf("build harness: %v", err)
	}

	if _, err := h.Run(1000); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !h.Cluster.Cores[0].Halted {
		t.Fatalf("core did not halt")
	}
}

// TestFieldStoreLoadSingleCore exercises a getfield/putfield round trip
// through the object cache on one core (spec §8).
func TestFieldStoreLoadSingleCore(t *testing.T) {
	cfg := smallConfig(1)
	prog, err := micasm.Assemble(`
boot:
    jfetch
trap:
    halt
start:
    putfield
    getfield
    halt
`)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	prog.Bindings[0x00] = "start"

	h, err := Build(cfg, prog, []byte{0x00})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	handle := h.Handles.Alloc(64, 8*4, 0, core.TypeObject)
	if handle == 0 {
		t.Fatalf("handle alloc failed")
	}
	c := h.Cluster.Cores[0]
	// putfield consumes the top two words (handle, value); the handle
	// left below them is the operand getfield reads.
	c.Stack.Write(0, handle)
	c.Stack.Write(1, handle)
	c.Stack.Write(2, 0xCAFE)
	c.Regs.SP = 3

	if _, err := h.Run(200); err != nil {
		t.Fatalf("run: %v", err)
	}
}

// TestSMPLockOrdering calls the cluster's CmpSync lock directly on behalf
// of cores 0 and 1 for 100 iterations and checks that core 0 acquires it
// each time and that releasing it hands it to the waiting core 1 with no
// gap (spec §8).
func TestSMPLockOrdering(t *testing.T) {
	cfg := smallConfig(2)
	cfg.UseIHLU = false

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

	h, err := Build(cfg, prog, []byte{0x00})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for i := 0; i < 100; i++ {
		h.Cluster.CmpSync.Request(0)
		h.Cluster.CmpSync.Poll()
		if h.Cluster.CmpSync.Owner() != 0 {
			t.Fatalf("iteration %d: core 0 did not acquire the lock", i)
		}
		h.Cluster.CmpSync.Request(1)
		h.Cluster.CmpSync.Release(0)
		if h.Cluster.CmpSync.Owner() != 1 {
			t.Fatalf("iteration %d: no-gap handoff to core 1 failed", i)
		}
		h.Cluster.CmpSync.Release(1)
	}
}

// TestGCCompaction allocates 50 objects, drops references to all but 25,
// forces a collection, and checks every surviving handle is still valid
// and no two of them share a data pointer (spec §8).
func TestGCCompaction(t *testing.T) {
	cfg := smallConfig(1)
	cfg.HeapWords = 4096

	// The heap starts at byte 4: a data pointer of 0 marks a handle free.
	mem := core.NewMainMemory(1 + cfg.HeapWords + cfg.HandleCap*8)
	handles := core.NewHandleTable(mem, uint32(cfg.HeapWords*4)+4, cfg.HandleCap)

	var survivors []uint32
	gc := core.NewGC(mem, handles, 4, cfg.HeapWords, 64, 64,
		func() []uint32 { return survivors },
		func(uint32, func(uint32)) {},
		func(uint32) int { return 4 },
	)

	var all []uint32
	for i := 0; i < 50; i++ {
		hdl, ok := gc.Alloc(4, 0, core.TypeObject)
		if !ok {
			t.Fatalf("alloc %d failed", i)
		}
		all = append(all, hdl)
	}
	survivors = all[:25]

	gc.StartCycle()
	for i := 0; i < 10000 && gc.Phase() != core.GCIdle; i++ {
		gc.Tick()
	}
	if gc.Phase() != core.GCIdle {
		t.Fatalf("collection did not complete")
	}

	seen := map[uint32]bool{}
	for _, hdl := range survivors {
		if !handles.IsValid(hdl) {
			t.Fatalf("survivor handle %d not valid after compaction", hdl)
		}
		dp := handles.Field(hdl, core.HOffDataPtr)
		if seen[dp] {
			t.Fatalf("data pointer %d reused by two live handles", dp)
		}
		seen[dp] = true
	}
}

// TestArrayBoundsException checks an out-of-range iaload traps to the
// array-bounds exception state (spec §8).
func TestArrayBoundsException(t *testing.T) {
	cfg := smallConfig(1)
	prog, err := micasm.Assemble(`
boot:
    jfetch
trap:
    halt
start:
    iaload
    halt
`)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	prog.Bindings[0x00] = "start"

	h, err := Build(cfg, prog, []byte{0x00})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	handle := h.Handles.Alloc(64, 4, 0, core.TypePrimArray) // length 4
	c := h.Cluster.Cores[0]
	c.Stack.Write(0, handle)
	c.Stack.Write(1, 99) // out of bounds
	c.Regs.SP = 2

	var sawExc bool
	for i := 0; i < 50 && !sawExc; i++ {
		if exc := c.Step(); exc != nil && exc.Kind == core.ExcArrayBounds {
			sawExc = true
		}
	}
	if !sawExc {
		t.Fatalf("expected ArrayIndexOutOfBounds, got none")
	}
}

// TestDeepRecursionPreservesJPC is the regression for bug #29: jopd must
// be bit-identical across an arbitrarily long stall. No recursion is run;
// the stall is a stack-cache rotation forced right after an operand
// fetch, and the test checks that neither jopd nor the byte at JPC
// changes across it.
func TestDeepRecursionPreservesJPC(t *testing.T) {
	cfg := smallConfig(1)
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

	h, err := Build(cfg, prog, []byte{0x00, 0x00, 0x11, 0x22})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c := h.Cluster.Cores[0]

	c.BC.AccumulateOperand()
	opd := c.BC.Operand()
	before := c.BC.FetchByte()

	// Force an unrelated stall by starting a stack rotation; jopd must
	// not change while it resolves.
	c.Stack.StartRotationIfNeeded(uint32(cfg.StackBankWords) * 10)
	for c.Stack.Rotating {
		c.Stack.StepRotation()
	}

	if got := c.BC.Operand(); got != opd {
		t.Fatalf("jopd changed across stall: 0x%04x != 0x%04x", got, opd)
	}
	after := c.BC.FetchByte()
	if before != after {
		t.Fatalf("bytecode instruction register changed across stall: %v != %v", before, after)
	}
}
