package core

import "testing"

func newTestGC(t *testing.T, heapWords int, roots RootsFunc, scanRefs ScanRefsFunc, sizeOf SizeFunc) (*MainMemory, *HandleTable, *GC) {
	t.Helper()
	const handleCap = 64
	// The heap starts at byte 4: a data pointer of 0 marks a handle free.
	mem := NewMainMemory(1 + heapWords + handleCap*8)
	handles := NewHandleTable(mem, uint32(heapWords*4)+4, handleCap)
	gc := NewGC(mem, handles, 4, heapWords, 8, 8, roots, scanRefs, sizeOf)
	return mem, handles, gc
}

func runToIdle(t *testing.T, gc *GC, budget int) {
	t.Helper()
	gc.StartCycle()
	for i := 0; i < budget && gc.Phase() != GCIdle; i++ {
		gc.Tick()
	}
	if gc.Phase() != GCIdle {
		t.Fatalf("collection did not reach GCIdle within %d ticks", budget)
	}
}

func TestGCCompactionPreservesSurvivorsAndReclaimsGarbage(t *testing.T) {
	var survivors []uint32
	_, handles, gc := newTestGC(t, 2048,
		func() []uint32 { return survivors },
		func(uint32, func(uint32)) {},
		func(uint32) int { return 4 },
	)

	var all []uint32
	for i := 0; i < 20; i++ {
		h, ok := gc.Alloc(4, 0, TypeObject)
		if !ok {
			t.Fatalf("alloc %d failed", i)
		}
		all = append(all, h)
	}
	for i := 0; i < len(all); i += 2 {
		survivors = append(survivors, all[i])
	}

	runToIdle(t, gc, 10000)

	seen := map[uint32]bool{}
	for _, h := range survivors {
		if !handles.IsValid(h) {
			t.Fatalf("survivor %d invalid after compaction", h)
		}
		dp := handles.Field(h, HOffDataPtr)
		if seen[dp] {
			t.Fatalf("data pointer %d aliased between two survivors", dp)
		}
		seen[dp] = true
	}

	dead := all[1]
	if handles.IsValid(dead) {
		t.Fatalf("non-root, non-reachable handle %d survived sweep", dead)
	}
	if got, want := gc.Collections, 1; got != want {
		t.Fatalf("Collections = %d, want %d", got, want)
	}
}

func TestGCWriteBarrierRetainsOverwrittenRefDuringMark(t *testing.T) {
	// A two-object graph: root -> a -> b. Root scan only sees `root`;
	// `a`'s reference to `b` is about to be overwritten by a mutator
	// concurrently with MARK. The SATB write barrier must keep `b` alive
	// even though, after the overwrite, nothing in the live graph points
	// to it any more.
	refs := map[uint32]uint32{} // handle -> the one child ref it holds
	var root uint32

	_, handles, gc := newTestGC(t, 2048,
		func() []uint32 { return []uint32{root} },
		func(h uint32, visit func(uint32)) {
			if child, ok := refs[h]; ok && child != 0 {
				visit(child)
			}
		},
		func(uint32) int { return 4 },
	)

	a, _ := gc.Alloc(4, 0, TypeObject)
	b, _ := gc.Alloc(4, 0, TypeObject)
	root = a
	refs[a] = b

	gc.StartCycle()
	gc.Tick() // ROOT_SCAN: marks `a`, enters MARK

	// Mutator overwrites a's reference to b mid-MARK. Per spec §4.17 the
	// mutator must fire WriteBarrier with the value it is clobbering.
	overwritten := refs[a]
	refs[a] = 0
	gc.WriteBarrier(overwritten)

	for i := 0; i < 10000 && gc.Phase() != GCIdle; i++ {
		gc.Tick()
	}
	if gc.Phase() != GCIdle {
		t.Fatalf("collection did not complete")
	}

	if !handles.IsValid(b) {
		t.Fatalf("handle %d (retained only by the SATB write barrier) was collected", b)
	}
}

func TestGCAllocFailsWhenHeapExhausted(t *testing.T) {
	_, _, gc := newTestGC(t, 16,
		func() []uint32 { return nil },
		func(uint32, func(uint32)) {},
		func(uint32) int { return 4 },
	)
	for i := 0; i < 4; i++ {
		if _, ok := gc.Alloc(4, 0, TypeObject); !ok {
			t.Fatalf("alloc %d: expected success before heap exhaustion", i)
		}
	}
	if _, ok := gc.Alloc(4, 0, TypeObject); ok {
		t.Fatalf("alloc on exhausted heap unexpectedly succeeded")
	}
}
