package core

// WriteBarrierTarget is the minimal surface the memory controller needs
// from the collector to fire a SATB write barrier; GC satisfies it.
type WriteBarrierTarget interface {
	WriteBarrier(overwrittenRef uint32)
}

// AttachGC wires gc to this memory controller so putfield_ref,
// putstatic_ref and aastore can fire the SATB barrier on their old value
// before overwriting it (spec §4.17). Wiring is optional: a controller
// with no GC attached (e.g. a unit test driving memctl.go in isolation)
// simply skips the barrier.
func (m *MemoryController) AttachGC(gc WriteBarrierTarget) {
	m.gc = gc
}

// fireRefBarrier reads the field's current value and forwards it to the
// attached collector before the caller overwrites it.
func (m *MemoryController) fireRefBarrier(addr uint32) {
	if m.gc == nil {
		return
	}
	m.gc.WriteBarrier(m.mem.Read32(addr))
}
