package core

import "testing"

func newTestHandleTable(t *testing.T, cap int) (*MainMemory, *HandleTable) {
	t.Helper()
	// The table starts one record in: address 0 is the list-end sentinel
	// and never a valid handle.
	mem := NewMainMemory((cap + 1) * 8)
	ht := NewHandleTable(mem, 32, cap)
	return mem, ht
}

func TestHandleAllocFreeListExclusivity(t *testing.T) {
	_, ht := newTestHandleTable(t, 4)

	var allocated []uint32
	for i := 0; i < 4; i++ {
		h := ht.Alloc(64+uint32(i*4), 0, 0, TypeObject)
		if h == 0 {
			t.Fatalf("alloc %d: expected a free handle, got 0", i)
		}
		allocated = append(allocated, h)
	}
	if got := ht.Alloc(64, 0, 0, TypeObject); got != 0 {
		t.Fatalf("alloc on exhausted table returned %d, want 0", got)
	}

	seen := map[uint32]bool{}
	for _, h := range allocated {
		if seen[h] {
			t.Fatalf("handle %d allocated twice", h)
		}
		seen[h] = true
		if !ht.IsValid(h) {
			t.Fatalf("handle %d should be valid immediately after alloc", h)
		}
	}

	// A handle can never be reachable from both the use list and the free
	// list at once: freeing one must not leave it discoverable by Walk.
	freed := allocated[0]
	ht.Free(freed)
	ht.Walk(func(addr uint32) {
		if addr == freed {
			t.Fatalf("freed handle %d still reachable from the use list", freed)
		}
	})
	if ht.IsValid(freed) {
		t.Fatalf("freed handle %d reported valid", freed)
	}
}

func TestHandleRebuildListsSweepsUnkept(t *testing.T) {
	_, ht := newTestHandleTable(t, 8)

	var all []uint32
	for i := 0; i < 8; i++ {
		all = append(all, ht.Alloc(64+uint32(i*4), 0, 0, TypeObject))
	}
	keep := map[uint32]bool{all[1]: true, all[3]: true, all[5]: true}

	ht.RebuildLists(func(addr uint32) bool { return keep[addr] })

	kept := 0
	ht.Walk(func(addr uint32) {
		if !keep[addr] {
			t.Fatalf("handle %d survived RebuildLists but was not in the keep set", addr)
		}
		kept++
	})
	if kept != len(keep) {
		t.Fatalf("use list has %d handles, want %d", kept, len(keep))
	}
	if got, want := ht.FreeCount(), 8-len(keep); got != want {
		t.Fatalf("free count = %d, want %d", got, want)
	}
	for addr := range keep {
		if !ht.IsValid(addr) {
			t.Fatalf("kept handle %d reported invalid after rebuild", addr)
		}
	}
}

func TestHandleIsValidRejectsOutOfRangeAndMisaligned(t *testing.T) {
	_, ht := newTestHandleTable(t, 2)
	h := ht.Alloc(64, 0, 0, TypeObject)

	if ht.IsValid(0) {
		t.Fatalf("address 0 must never be valid (it is the free sentinel)")
	}
	if ht.IsValid(h + 1) {
		t.Fatalf("misaligned address reported valid")
	}
	if ht.IsValid(ht.base + uint32(ht.cap*handleRecordBytes)) {
		t.Fatalf("address one past the handle area reported valid")
	}
}
