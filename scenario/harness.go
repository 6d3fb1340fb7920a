// Package scenario assembles small, fully-wired clusters for the
// simulator's end-to-end test vectors and exposes them to both Go tests
// and Lua scripts (see lua.go), the same two-track test strategy the
// teacher uses: Go tests for invariants, embedded Lua for scripted
// end-to-end programs driving the debug command stream.
package scenario

import (
	"context"

	"github.com/jop-sim/jopcore/core"
	"github.com/jop-sim/jopcore/debug"
	"github.com/jop-sim/jopcore/micasm"
)

// Harness is one assembled, single- or multi-core cluster ready to run a
// microcode program loaded from micasm source.
type Harness struct {
	Cfg     *core.Config
	Mem     *core.MainMemory
	Handles *core.HandleTable
	Cluster *core.Cluster
	GC      *core.GC
}

// Build assembles a harness with cfg.CoreCount cores, all sharing one
// memory image, one handle table, one set of semantic caches per core,
// and the micasm-assembled program prog running identically on every
// core (each core gets its own bytecode fetch unit over the one shared
// bytecode slice, and its own stack cache and memory controller — the
// SMP fabric components are what's actually shared).
func Build(cfg *core.Config, prog *micasm.Program, bytecode []byte) (*Harness, error) {
	rom, err := prog.BuildROM()
	if err != nil {
		return nil, err
	}
	jt, err := prog.BuildJumpTable("trap")
	if err != nil {
		return nil, err
	}

	mem := core.NewMainMemory(cfg.HeapWords + cfg.HandleCap*8 + 4096)
	handleBase := uint32(cfg.HeapWords * 4)
	handles := core.NewHandleTable(mem, handleBase, cfg.HandleCap)
	spillBase := handleBase + uint32(cfg.HandleCap*32)

	snoop := &core.SnoopBus{}
	arbiter := core.NewArbiter(cfg.CoreCount)
	cmpsync := core.NewCmpSync(cfg.CoreCount)
	var ihlu *core.IHLU
	if cfg.UseIHLU {
		ihlu = core.NewIHLU(cfg.IHLUSlots)
	}

	gc := core.NewGC(mem, handles, 0, cfg.HeapWords, cfg.MarkStep, cfg.CompactStep,
		func() []uint32 { return nil },
		func(uint32, func(uint32)) {},
		func(uint32) int { return 0 },
	)

	cores := make([]*core.Core, cfg.CoreCount)
	for i := 0; i < cfg.CoreCount; i++ {
		mc := core.NewMethodCache(cfg.MethodCacheBlocks, cfg.MethodCacheBlockSize)
		oc := core.NewObjectCache(cfg.ObjectCacheEntries, cfg.ObjectCacheFields)
		ac := core.NewArrayCache(cfg.ArrayCacheEntries, cfg.ArrayCacheElements)
		snoop.Subscribe(i, oc, ac)
		mctl := core.NewMemoryController(i, mem, handles, mc, oc, ac, snoop)
		mctl.AttachGC(gc)

		stack := core.NewStackCache(mem, spillBase, cfg.StackBankCount, cfg.StackBankWords)
		bc := core.NewBytecodeFetch(bytecode)
		cores[i] = core.NewCore(i, stack, bc, mctl, rom, jt)
	}

	cluster := core.NewCluster(cfg, cores, arbiter, cmpsync, ihlu, snoop, gc)

	return &Harness{Cfg: cfg, Mem: mem, Handles: handles, Cluster: cluster, GC: gc}, nil
}

// Run ticks the cluster until every core halts or maxCycles elapses,
// whichever comes first. It returns the number of cycles actually run.
func (h *Harness) Run(maxCycles int) (int, error) {
	ctx := context.Background()
	for i := 0; i < maxCycles; i++ {
		if h.AllHalted() {
			return i, nil
		}
		if err := h.Cluster.Tick(ctx); err != nil {
			return i, err
		}
	}
	return maxCycles, nil
}

// AllHalted reports whether every core has reached sys_exit.
func (h *Harness) AllHalted() bool {
	for _, c := range h.Cluster.Cores {
		if !c.Halted {
			return false
		}
	}
	return true
}

// Monitor builds a debug.Monitor bridged onto this harness's cores, for
// scenarios that drive the debug command stream directly (see lua.go)
// rather than only inspecting Core/GC state from Go.
func (h *Harness) Monitor() *debug.Monitor {
	cores := make([]debug.DebuggableCore, len(h.Cluster.Cores))
	for i, c := range h.Cluster.Cores {
		cores[i] = debug.CoreAdapter{C: c}
	}
	return debug.NewMonitor(cores, debug.NewBreakpointTable())
}
