package core

import "testing"

func TestIHLUReentrancyAndHandoff(t *testing.T) {
	h := NewIHLU(2)

	if st := h.Lock(0xCAFE, 0); st != LockGranted {
		t.Fatalf("first lock on a free slot = %v, want LockGranted", st)
	}
	if st := h.Lock(0xCAFE, 0); st != LockGranted {
		t.Fatalf("reentrant lock by the owner = %v, want LockGranted", st)
	}
	if st := h.Lock(0xCAFE, 1); st != LockQueued {
		t.Fatalf("contended lock by a different core = %v, want LockQueued", st)
	}

	if handoff := h.Unlock(0xCAFE, 0); handoff != -1 {
		t.Fatalf("unwinding one reentrancy level handed off to %d, want -1 (still held)", handoff)
	}
	if !h.HoldsAny(0) {
		t.Fatalf("core 0 should still hold the slot after one of two unlocks")
	}

	handoff := h.Unlock(0xCAFE, 0)
	if handoff != 1 {
		t.Fatalf("final unlock handed off to %d, want queued core 1", handoff)
	}
	if h.HoldsAny(0) {
		t.Fatalf("core 0 still reported as holding after releasing its last level")
	}
	if !h.HoldsAny(1) {
		t.Fatalf("core 1 should now hold the slot handed off to it")
	}
}

func TestIHLULockFullWhenSlotsExhausted(t *testing.T) {
	h := NewIHLU(1)
	if st := h.Lock(1, 0); st != LockGranted {
		t.Fatalf("lock on the only slot = %v, want LockGranted", st)
	}
	if st := h.Lock(2, 1); st != LockFull {
		t.Fatalf("lock on a second key with no free slots = %v, want LockFull", st)
	}
}

func TestIHLUUnlockByNonOwnerIsNoOp(t *testing.T) {
	h := NewIHLU(1)
	h.Lock(5, 0)
	if handoff := h.Unlock(5, 1); handoff != -1 {
		t.Fatalf("unlock by non-owner returned handoff %d, want -1", handoff)
	}
	if !h.HoldsAny(0) {
		t.Fatalf("owner's lock was released by a non-owner's Unlock call")
	}
}
