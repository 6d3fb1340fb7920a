// Command jopsim loads a linked class image and a microcode program,
// assembles a cluster, and runs it to completion or a cycle budget,
// optionally attaching the interactive debug console afterward.
//
// Grounded on the teacher's own cmd/ entry point shape (flag-parsed input
// paths, assemble a machine, run it, report final state) adapted to a
// cluster of JOP cores instead of a single ie32 chiptune player.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jop-sim/jopcore/core"
	"github.com/jop-sim/jopcore/debug"
	"github.com/jop-sim/jopcore/micasm"
)

func main() {
	classPath := flag.String("class", "", "path to a linked class image (required)")
	asmPath := flag.String("asm", "", "path to a microcode assembly source file (required)")
	trapLabel := flag.String("trap", "trap", "microcode label the trap/illegal-opcode jump table entry falls through to")
	cores := flag.Int("cores", 2, "number of cores in the cluster")
	useIHLU := flag.Bool("ihlu", true, "use the per-object IHLU lock fabric instead of CmpSync only")
	cycles := flag.Int("cycles", 2_000_000, "cycle budget before giving up")
	interactive := flag.Bool("debug", false, "attach the interactive debug console instead of free-running")
	flag.Parse()

	if *classPath == "" || *asmPath == "" {
		fmt.Fprintln(os.Stderr, "usage: jopsim -class <image> -asm <microcode.asm> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(*classPath, *asmPath, *trapLabel, *cores, *useIHLU, *cycles, *interactive); err != nil {
		log.Fatal(err)
	}
}

func run(classPath, asmPath, trapLabel string, coreCount int, useIHLU bool, cycleBudget int, interactive bool) error {
	asmSrc, err := os.ReadFile(asmPath)
	if err != nil {
		return fmt.Errorf("jopsim: reading microcode source: %w", err)
	}
	prog, err := micasm.Assemble(string(asmSrc))
	if err != nil {
		return fmt.Errorf("jopsim: assembling microcode: %w", err)
	}
	rom, err := prog.BuildROM()
	if err != nil {
		return fmt.Errorf("jopsim: building ROM: %w", err)
	}
	jt, err := prog.BuildJumpTable(trapLabel)
	if err != nil {
		return fmt.Errorf("jopsim: building jump table: %w", err)
	}

	cfg := core.DefaultConfig()
	cfg.CoreCount = coreCount
	cfg.UseIHLU = useIHLU

	mem := core.NewMainMemory(cfg.HeapWords + cfg.HandleCap*8 + 4096)

	classFile, err := os.Open(classPath)
	if err != nil {
		return fmt.Errorf("jopsim: opening class image: %w", err)
	}
	defer classFile.Close()

	loader := core.NewClassLoader(mem)
	img, err := loader.Load(classFile)
	if err != nil {
		return fmt.Errorf("jopsim: loading class image: %w", err)
	}

	bytecode := make([]byte, img.Header.BytecodeWords*4)
	for i := range bytecode {
		bytecode[i] = mem.ReadByte(img.BytecodeBase + uint32(i))
	}

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

	gc := core.NewGC(mem, handles, img.HeapBase, cfg.HeapWords, cfg.MarkStep, cfg.CompactStep,
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

	cluster := core.NewCluster(&cfg, cores, arbiter, cmpsync, ihlu, snoop, gc)

	if interactive {
		debugCores := make([]debug.DebuggableCore, len(cores))
		for i, c := range cores {
			debugCores[i] = debug.CoreAdapter{C: c}
		}
		mon := debug.NewMonitor(debugCores, debug.NewBreakpointTable())
		term := debug.NewTerminal(mon, os.Stdout)
		return term.RunInteractive()
	}

	ctx := context.Background()
	cycle := 0
	for ; cycle < cycleBudget; cycle++ {
		if allHalted(cores) {
			break
		}
		if err := cluster.Tick(ctx); err != nil {
			return fmt.Errorf("jopsim: cluster tick %d: %w", cycle, err)
		}
	}

	fmt.Printf("ran %d cycles across %d core(s), %d GC collection(s)\n", cycle, cfg.CoreCount, gc.Collections)
	for _, c := range cores {
		status := "running"
		if c.Halted {
			status = "halted"
		}
		fmt.Printf("core %d: %s at uPC=%d JPC=%d\n", c.ID, status, c.UPC(), c.JPC())
	}
	return nil
}

func allHalted(cores []*core.Core) bool {
	for _, c := range cores {
		if !c.Halted {
			return false
		}
	}
	return true
}
