package core

import (
	"sort"
	"sync"
)

// GCPhase is one state of the incremental mark-compact collector.
type GCPhase int

const (
	GCIdle GCPhase = iota
	GCRootScan
	GCMark
	GCCompact
	GCSweep
)

// RootsFunc returns every handle address currently reachable directly
// from machine state (core registers, static reference table) at the
// moment it is called. The collector re-reads roots only at ROOT_SCAN.
type RootsFunc func() []uint32

// ScanRefsFunc invokes visit once per reference field a live object or
// array holds, so MARK can extend reachability through the object graph.
type ScanRefsFunc func(handle uint32, visit func(childHandle uint32))

// SizeFunc reports the data-area size, in words, of a handle's payload,
// used by COMPACT to know how much to move.
type SizeFunc func(handle uint32) int

// GC is the incremental mark-compact collector over one shared heap and
// handle table. ROOT_SCAN, COMPACT and SWEEP are stop-the-world; MARK
// proceeds incrementally while mutators run, relying on the SATB write
// barrier (writebarrier.go) to keep the snapshot-at-beginning invariant.
//
// Grounded on the teacher's coprocessor_manager.go worker-table
// bookkeeping pattern generalised into an explicit multi-phase FSM, the
// same shape memctl.go's state machine follows, since the teacher has no
// direct GC analogue.
type GC struct {
	mu sync.Mutex

	mem     *MainMemory
	handles *HandleTable

	heapBase  uint32
	heapLimit uint32
	bumpPtr   uint32

	currentMark uint32 // toggles between 1 and 2 each cycle
	grayHead    uint32

	phase GCPhase

	markStep    int
	compactStep int

	compactList   []uint32
	compactCursor int
	compactTarget uint32

	roots    RootsFunc
	scanRefs ScanRefsFunc
	sizeOf   SizeFunc

	trace TraceFunc

	Collections int
}

// NewGC creates a collector over a bump-allocated heap of heapWords words
// starting at heapBase, backed by handles.
func NewGC(mem *MainMemory, handles *HandleTable, heapBase uint32, heapWords int, markStep, compactStep int, roots RootsFunc, scanRefs ScanRefsFunc, sizeOf SizeFunc) *GC {
	return &GC{
		mem: mem, handles: handles,
		heapBase: heapBase, heapLimit: heapBase + uint32(heapWords*4), bumpPtr: heapBase,
		currentMark: 1, markStep: markStep, compactStep: compactStep,
		roots: roots, scanRefs: scanRefs, sizeOf: sizeOf, trace: DiscardTrace,
	}
}

// FreeFraction reports the bump-allocator's remaining headroom as a
// fraction of total heap size. It does not account for garbage between
// heapBase and bumpPtr, which is why GC is triggered proactively rather
// than only on allocation failure.
func (gc *GC) FreeFraction() float64 {
	total := float64(gc.heapLimit - gc.heapBase)
	free := float64(gc.heapLimit - gc.bumpPtr)
	return free / total
}

// ShouldTrigger reports whether the collector is idle and below the
// configured free-space threshold.
func (gc *GC) ShouldTrigger(cfg *Config) bool {
	return gc.phase == GCIdle && gc.FreeFraction() < cfg.GCTriggerFreeFraction
}

// IsStopTheWorld reports whether the current phase requires every core
// to be halted (spec §4.11): ROOT_SCAN takes a consistent root snapshot,
// COMPACT relocates live data out from under any concurrent reader, and
// SWEEP rewrites the handle free/use lists in place.
func (gc *GC) IsStopTheWorld() bool {
	return gc.phase == GCRootScan || gc.phase == GCCompact || gc.phase == GCSweep
}

// Phase reports the collector's current phase.
func (gc *GC) Phase() GCPhase { return gc.phase }

// Alloc bump-allocates a zero-initialised data area of the given size and
// wraps it in a fresh handle. ok is false when either the heap or the
// handle table is exhausted (the caller raises OutOfMemoryError, or
// forces a synchronous collection and retries).
func (gc *GC) Alloc(words int, meta, typ uint32) (handle uint32, ok bool) {
	size := uint32(words * 4)
	if gc.bumpPtr+size > gc.heapLimit {
		return 0, false
	}
	dataPtr := gc.bumpPtr
	gc.mem.ZeroRange(dataPtr, words*4)
	h := gc.handles.Alloc(dataPtr, meta, gc.currentMark, typ)
	if h == 0 {
		return 0, false
	}
	gc.bumpPtr += size
	return h, true
}

// StartCycle begins a new collection from GCIdle. The caller must halt
// every core before the next Tick (ROOT_SCAN is always stop-the-world).
func (gc *GC) StartCycle() {
	if gc.phase != GCIdle {
		return
	}
	gc.currentMark = 3 - gc.currentMark // toggle 1<->2
	gc.grayHead = 0
	gc.phase = GCRootScan
}

// markGray marks addr live for the current cycle and links it onto the
// gray worklist, unless it is already marked (cycle-safe: a handle is
// pushed onto the gray list at most once per collection).
func (gc *GC) markGray(addr uint32) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.markGrayLocked(addr)
}

func (gc *GC) markGrayLocked(addr uint32) {
	if addr == 0 || !gc.handles.IsValid(addr) {
		return
	}
	if gc.handles.Field(addr, HOffMark) == gc.currentMark {
		return
	}
	gc.handles.SetField(addr, HOffMark, gc.currentMark)
	gc.handles.SetField(addr, HOffGrayLink, gc.grayHead)
	gc.grayHead = addr
}

// WriteBarrier is the SATB hook every aastore/putfield_ref/putstatic_ref
// must call with the reference value it is about to overwrite. During
// ROOT_SCAN or MARK that value must be retained, since the snapshot
// taken at ROOT_SCAN would otherwise miss it (spec §4.17); outside those
// phases it is a (lock-free) no-op. Cores run their Step concurrently
// under Cluster's errgroup fan-out, so this acquires the same mutex
// stepMark uses to pop the gray worklist.
func (gc *GC) WriteBarrier(overwrittenRef uint32) {
	if gc.phase != GCRootScan && gc.phase != GCMark {
		return
	}
	gc.markGray(overwrittenRef)
}

// Tick advances the collector by one cycle's worth of budgeted work.
// Cluster calls this once per cycle regardless of phase; Tick is a no-op
// when idle.
func (gc *GC) Tick() {
	switch gc.phase {
	case GCIdle:
		return
	case GCRootScan:
		for _, r := range gc.roots() {
			gc.markGray(r)
		}
		gc.phase = GCMark
	case GCMark:
		gc.stepMark()
	case GCCompact:
		gc.stepCompact()
	case GCSweep:
		gc.handles.RebuildLists(func(addr uint32) bool {
			return gc.handles.Field(addr, HOffMark) == gc.currentMark
		})
		gc.phase = GCIdle
		gc.Collections++
	}
}

func (gc *GC) stepMark() {
	for i := 0; i < gc.markStep; i++ {
		gc.mu.Lock()
		if gc.grayHead == 0 {
			gc.mu.Unlock()
			gc.phase = GCCompact
			gc.compactList = nil
			gc.compactCursor = 0
			gc.compactTarget = gc.heapBase
			return
		}
		addr := gc.grayHead
		gc.grayHead = gc.handles.Field(addr, HOffGrayLink)
		gc.handles.SetField(addr, HOffGrayLink, 0)
		gc.mu.Unlock()
		gc.scanRefs(addr, gc.markGray)
	}
}

func (gc *GC) stepCompact() {
	if gc.compactList == nil {
		gc.handles.Walk(func(addr uint32) {
			if gc.handles.Field(addr, HOffMark) == gc.currentMark {
				gc.compactList = append(gc.compactList, addr)
			}
		})
		// Slide in ascending address order so no survivor is overwritten
		// before it has been moved.
		sort.Slice(gc.compactList, func(i, j int) bool {
			return gc.handles.Field(gc.compactList[i], HOffDataPtr) < gc.handles.Field(gc.compactList[j], HOffDataPtr)
		})
	}
	n := 0
	for gc.compactCursor < len(gc.compactList) && n < gc.compactStep {
		addr := gc.compactList[gc.compactCursor]
		size := gc.sizeOf(addr)
		old := gc.handles.Field(addr, HOffDataPtr)
		if old != gc.compactTarget {
			gc.mem.CopyWords(gc.compactTarget, old, size)
			gc.handles.SetField(addr, HOffDataPtr, gc.compactTarget)
		}
		gc.compactTarget += uint32(size * 4)
		gc.compactCursor++
		n++
	}
	if gc.compactCursor >= len(gc.compactList) {
		if gc.compactTarget < gc.bumpPtr {
			gc.mem.ZeroRange(gc.compactTarget, int(gc.bumpPtr-gc.compactTarget))
		}
		gc.bumpPtr = gc.compactTarget
		gc.phase = GCSweep
	}
}
