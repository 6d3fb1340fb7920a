package core

// stackBank is one fixed-size window of the logical Java stack held in
// fast on-chip memory.
type stackBank struct {
	words    []uint32
	resident bool
	dirty    bool
	base     uint32 // index of the first logical stack slot this bank covers
	highWater bool  // true once any slot in this bank has ever been written
}

// StackCache is a sliding window of banks over the logical Java operand
// stack. Exactly one bank is "active" (directly addressable), and it is
// the only bank ever made resident: a rotation spills the oldest resident
// bank (if dirty) and reuses its storage for the new window, filled from
// the spill region or zeroed, stalling the whole core for its duration
// (spec §4.4/§4.14). Neighbouring windows are not kept resident.
type StackCache struct {
	mem       *MainMemory
	spillBase uint32 // byte address in main memory where bank N begins
	bankWords int
	banks     []stackBank
	active    int // index into banks of the currently active bank
	highestSP uint32

	// Rotating reports whether a rotation is currently in progress; while
	// true the core (and bytecode fetch) must freeze.
	Rotating   bool
	rotSpillIdx int
	rotFillIdx  int
	rotStep     int
	rotNewBase  uint32
	rotDirection int // +1 growing up, -1 growing down
}

// NewStackCache creates a stack cache of bankCount banks, each bankWords
// words, spilling to mem starting at spillBase. Bank 0 begins resident
// and active, covering logical stack slots [0, bankWords).
func NewStackCache(mem *MainMemory, spillBase uint32, bankCount, bankWords int) *StackCache {
	sc := &StackCache{mem: mem, spillBase: spillBase, bankWords: bankWords}
	sc.banks = make([]stackBank, bankCount)
	for i := range sc.banks {
		sc.banks[i].words = make([]uint32, bankWords)
		sc.banks[i].base = uint32(i * bankWords)
	}
	sc.banks[0].resident = true
	sc.active = 0
	return sc
}

// bankFor returns the bank index covering logical slot addr, or -1 if no
// resident bank currently covers it.
func (sc *StackCache) bankFor(addr uint32) int {
	for i := range sc.banks {
		if sc.banks[i].resident && addr >= sc.banks[i].base && addr < sc.banks[i].base+uint32(sc.bankWords) {
			return i
		}
	}
	return -1
}

// Read returns the word at logical stack address addr. addr must fall
// within the active bank; StartRotationIfNeeded must be called first to
// ensure that invariant.
func (sc *StackCache) Read(addr uint32) uint32 {
	b := &sc.banks[sc.active]
	return b.words[addr-b.base]
}

// Write stores value at logical stack address addr in the active bank.
func (sc *StackCache) Write(addr uint32, value uint32) {
	b := &sc.banks[sc.active]
	b.words[addr-b.base] = value
	b.dirty = true
	if addr > sc.highestSP {
		sc.highestSP = addr
	}
}

// StartRotationIfNeeded checks whether addr falls outside the active
// bank. If so it begins a rotation sequence (spec §4.14 steps 1-3) and
// returns true; the caller must stall the whole pipeline (including
// bytecode fetch) until Rotating goes false.
func (sc *StackCache) StartRotationIfNeeded(addr uint32) bool {
	b := &sc.banks[sc.active]
	if addr >= b.base && addr < b.base+uint32(sc.bankWords) {
		return false
	}
	if sc.Rotating {
		return true
	}

	direction := 1
	if addr < b.base {
		direction = -1
	}
	sc.rotDirection = direction
	sc.rotNewBase = uint32(int64(addr/uint32(sc.bankWords)) * int64(sc.bankWords))

	// Evict the oldest resident bank on the trailing edge.
	evictIdx := sc.active
	best := b.base
	for i := range sc.banks {
		if !sc.banks[i].resident {
			continue
		}
		if direction > 0 && sc.banks[i].base < best {
			best = sc.banks[i].base
			evictIdx = i
		}
		if direction < 0 && sc.banks[i].base > best {
			best = sc.banks[i].base
			evictIdx = i
		}
	}
	sc.rotSpillIdx = evictIdx
	// Reuse the evicted slot as the new bank's storage.
	sc.rotFillIdx = evictIdx
	sc.rotStep = 0
	sc.Rotating = true
	return true
}

// StepRotation advances the in-flight rotation by one cycle. It returns
// true once the rotation has completed and Deassert-ed the stall.
func (sc *StackCache) StepRotation() bool {
	if !sc.Rotating {
		return true
	}
	evict := &sc.banks[sc.rotSpillIdx]
	switch sc.rotStep {
	case 0:
		if evict.resident && evict.dirty {
			spillAddr := sc.spillBase + evict.base*4
			for i, w := range evict.words {
				sc.mem.Write32(spillAddr+uint32(i*4), w)
				_ = i
			}
		}
		sc.rotStep++
		return false
	case 1:
		// Fill (or zero-initialise past the high-water mark) the new bank.
		if sc.rotNewBase > sc.highestSP {
			for i := range evict.words {
				evict.words[i] = 0
			}
		} else {
			fillAddr := sc.spillBase + sc.rotNewBase*4
			for i := range evict.words {
				evict.words[i] = sc.mem.Read32(fillAddr + uint32(i*4))
			}
		}
		evict.base = sc.rotNewBase
		evict.resident = true
		evict.dirty = false
		sc.active = sc.rotFillIdx
		sc.Rotating = false
		return true
	}
	return true
}
