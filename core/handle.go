package core

// Handle type discriminants (offset 3 of a handle record).
const (
	TypeObject = iota
	TypeRefArray
	TypePrimArray
)

// Handle field offsets within an 8-word, 8-aligned handle record.
const (
	HOffDataPtr   = 0 // data pointer; 0 = handle free
	HOffMeta      = 1 // method table pointer (object) or array length
	HOffMark      = 2 // mark / space tag
	HOffType      = 3 // type discriminant
	HOffNextLink  = 4 // free-list / use-list link
	HOffGrayLink  = 5 // gray-list link; 0 = not gray
	// offsets 6-7 reserved
)

const handleWords = 8
const handleWordBytes = 4
const handleRecordBytes = handleWords * handleWordBytes

// HandleTable manages the 8-word handle records backing every Java
// reference. A reference is always a handle address, never a data
// address; moving an object during compaction updates only offset 0.
type HandleTable struct {
	mem      *MainMemory
	base     uint32 // byte address of handle 0
	cap      int    // handle cap, independent of heap size
	freeHead uint32 // address of first free handle, or 0
	useHead  uint32 // address of first live handle, or 0
}

// NewHandleTable allocates a handle area of `cap` handles starting at
// `base` and chains them onto the free list.
func NewHandleTable(mem *MainMemory, base uint32, cap int) *HandleTable {
	ht := &HandleTable{mem: mem, base: base, cap: cap}
	ht.mem.ZeroRange(base, cap*handleRecordBytes)
	var prev uint32
	for i := cap - 1; i >= 0; i-- {
		addr := base + uint32(i*handleRecordBytes)
		ht.mem.Write32(addr+HOffNextLink*4, prev)
		prev = addr
	}
	ht.freeHead = prev
	return ht
}

// addrForIndex returns the handle address for the i'th slot.
func (ht *HandleTable) addrForIndex(i int) uint32 {
	return ht.base + uint32(i*handleRecordBytes)
}

// IsValid reports whether addr is an 8-aligned, in-range, non-free handle.
func (ht *HandleTable) IsValid(addr uint32) bool {
	if addr == 0 {
		return false
	}
	if addr < ht.base || addr >= ht.base+uint32(ht.cap*handleRecordBytes) {
		return false
	}
	if (addr-ht.base)%handleRecordBytes != 0 {
		return false
	}
	return ht.mem.Read32(addr+HOffDataPtr*4) != 0
}

// Field reads handle word at the given offset (0-7).
func (ht *HandleTable) Field(addr uint32, offset int) uint32 {
	return ht.mem.Read32(addr + uint32(offset*4))
}

// SetField writes handle word at the given offset.
func (ht *HandleTable) SetField(addr uint32, offset int, value uint32) {
	ht.mem.Write32(addr+uint32(offset*4), value)
}

// Alloc pops a handle from the free list, links it onto the use list and
// fills offsets 0-3. Returns 0 (never a valid handle) if none are free.
func (ht *HandleTable) Alloc(dataPtr, meta uint32, mark uint32, typ uint32) uint32 {
	if ht.freeHead == 0 {
		return 0
	}
	addr := ht.freeHead
	ht.freeHead = ht.Field(addr, HOffNextLink)

	ht.SetField(addr, HOffDataPtr, dataPtr)
	ht.SetField(addr, HOffMeta, meta)
	ht.SetField(addr, HOffMark, mark)
	ht.SetField(addr, HOffType, typ)
	ht.SetField(addr, HOffNextLink, ht.useHead)
	ht.SetField(addr, HOffGrayLink, 0)
	ht.useHead = addr
	return addr
}

// Free unlinks addr from the use list and returns it to the free list.
// SWEEP uses RebuildLists instead of calling Free directly, but Free is
// kept for direct unit testing of the free-list invariant.
func (ht *HandleTable) Free(addr uint32) {
	if ht.useHead == addr {
		ht.useHead = ht.Field(addr, HOffNextLink)
	} else {
		for prev := ht.useHead; prev != 0; prev = ht.Field(prev, HOffNextLink) {
			if ht.Field(prev, HOffNextLink) == addr {
				ht.SetField(prev, HOffNextLink, ht.Field(addr, HOffNextLink))
				break
			}
		}
	}
	ht.SetField(addr, HOffDataPtr, 0)
	ht.SetField(addr, HOffNextLink, ht.freeHead)
	ht.freeHead = addr
}

// Walk invokes fn for every handle currently on the use list.
func (ht *HandleTable) Walk(fn func(addr uint32)) {
	for addr := ht.useHead; addr != 0; addr = ht.Field(addr, HOffNextLink) {
		fn(addr)
	}
}

// RebuildLists walks every slot in the handle area (not just the use
// list — SWEEP must see handles regardless of their current list
// membership) and rebuilds the use and free lists: a handle survives onto
// the use list iff keep(addr) returns true, otherwise it is zeroed and
// pushed onto the free list.
func (ht *HandleTable) RebuildLists(keep func(addr uint32) bool) {
	var newUse, newFree uint32
	for i := 0; i < ht.cap; i++ {
		addr := ht.addrForIndex(i)
		if ht.Field(addr, HOffDataPtr) == 0 {
			ht.SetField(addr, HOffNextLink, newFree)
			newFree = addr
			continue
		}
		if keep(addr) {
			ht.SetField(addr, HOffNextLink, newUse)
			newUse = addr
		} else {
			ht.SetField(addr, HOffDataPtr, 0)
			ht.SetField(addr, HOffNextLink, newFree)
			newFree = addr
		}
	}
	ht.useHead = newUse
	ht.freeHead = newFree
}

// FreeCount counts free slots by walking the free list.
func (ht *HandleTable) FreeCount() int {
	n := 0
	for addr := ht.freeHead; addr != 0; addr = ht.Field(addr, HOffNextLink) {
		n++
	}
	return n
}
