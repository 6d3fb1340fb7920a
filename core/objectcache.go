package core

// objectCacheEntry holds up to 8 fields of one object, each independently
// valid so a partial fill (only the requested field on a miss) is
// representable.
type objectCacheEntry struct {
	valid     bool
	handle    uint32
	fieldOK   [8]bool
	data      [8]uint32
	fifoOrder int
}

// ObjectCache (O$) is a fully-associative 16-entry x 8-field cache. A
// getfield hit returns the field in zero busy cycles — callers check Get
// before driving the memory controller's handle path at all. Only field
// indices 0-7 are cacheable; higher indices always bypass.
//
// Grounded on the same FIFO-ring shape as MethodCache (coprocessor_manager
// ring bookkeeping), specialised per-field instead of per-block.
type ObjectCache struct {
	entries  []objectCacheEntry
	fifoNext int
}

// NewObjectCache creates an O$ with the given entry count and field width.
// fieldCount is expected to be 8 per spec; the type always allocates 8
// slots per entry and ignores indices the spec marks non-cacheable.
func NewObjectCache(entryCount, fieldCount int) *ObjectCache {
	_ = fieldCount
	return &ObjectCache{entries: make([]objectCacheEntry, entryCount)}
}

func (oc *ObjectCache) find(handle uint32) int {
	for i := range oc.entries {
		if oc.entries[i].valid && oc.entries[i].handle == handle {
			return i
		}
	}
	return -1
}

// Get returns (value, hit) for a getfield. field >= 8 always misses
// (bypasses the cache entirely, as the spec requires).
func (oc *ObjectCache) Get(handle uint32, field int) (uint32, bool) {
	if field < 0 || field >= 8 {
		return 0, false
	}
	i := oc.find(handle)
	if i < 0 || !oc.entries[i].fieldOK[field] {
		return 0, false
	}
	return oc.entries[i].data[field], true
}

// Fill installs (or updates) one field after a memory-controller handle
// fetch. field >= 8 is a silent no-op (bypass fields are never cached).
func (oc *ObjectCache) Fill(handle uint32, field int, value uint32) {
	if field < 0 || field >= 8 {
		return
	}
	i := oc.find(handle)
	if i < 0 {
		i = oc.fifoNext
		oc.fifoNext = (oc.fifoNext + 1) % len(oc.entries)
		oc.entries[i] = objectCacheEntry{valid: true, handle: handle}
	}
	oc.entries[i].fieldOK[field] = true
	oc.entries[i].data[field] = value
}

// WriteThrough updates a field on a putfield hit without allocating a new
// entry on a miss (write-through only applies when the line is resident).
func (oc *ObjectCache) WriteThrough(handle uint32, field int, value uint32) {
	if field < 0 || field >= 8 {
		return
	}
	i := oc.find(handle)
	if i < 0 {
		return
	}
	oc.entries[i].fieldOK[field] = true
	oc.entries[i].data[field] = value
}

// Invalidate clears every valid bit (stidx / cinval).
func (oc *ObjectCache) Invalidate() {
	for i := range oc.entries {
		oc.entries[i] = objectCacheEntry{}
	}
}

// Snoop clears one field of one entry when another core writes it
// (cross-core putfield). Single-cycle, never stalls the snooping core.
func (oc *ObjectCache) Snoop(handle uint32, field int) {
	if field < 0 || field >= 8 {
		return
	}
	i := oc.find(handle)
	if i < 0 {
		return
	}
	oc.entries[i].fieldOK[field] = false
}
