package core

// arrayLineWidth is the number of elements a single A$ line covers (spec: 4).
const arrayLineWidth = 4

// arrayCacheEntry covers a 4-element region of one array. The tag is
// {handle, index upper bits} so distinct 4-element windows of the same
// array occupy distinct lines.
type arrayCacheEntry struct {
	valid      bool
	handle     uint32
	indexUpper uint32 // index / arrayLineWidth
	lineValid  bool
	data       [arrayLineWidth]uint32
	fillingGen uint64 // snoop-during-fill guard token
}

// ArrayCache (A$) is a fully-associative 16-entry x 4-element cache.
// Grounded on the same FIFO-ring allocation shape as MethodCache/ObjectCache.
type ArrayCache struct {
	entries  []arrayCacheEntry
	fifoNext int
	gen      uint64 // monotonically increasing fill generation counter
}

// NewArrayCache creates an A$ with the given entry count / elements-per-line.
func NewArrayCache(entryCount, elementsPerLine int) *ArrayCache {
	_ = elementsPerLine // spec fixes this at 4; parameter kept for Config symmetry
	return &ArrayCache{entries: make([]arrayCacheEntry, entryCount)}
}

func (ac *ArrayCache) find(handle uint32, indexUpper uint32) int {
	for i := range ac.entries {
		if ac.entries[i].valid && ac.entries[i].handle == handle && ac.entries[i].indexUpper == indexUpper {
			return i
		}
	}
	return -1
}

// Get returns (value, hit) for an iaload at the given element index.
func (ac *ArrayCache) Get(handle uint32, index int) (uint32, bool) {
	upper := uint32(index / arrayLineWidth)
	i := ac.find(handle, upper)
	if i < 0 || !ac.entries[i].lineValid {
		return 0, false
	}
	return ac.entries[i].data[index%arrayLineWidth], true
}

// BeginFill allocates (or reuses) the line for a miss and returns a fill
// token; the caller (memory controller) then streams in up to
// arrayLineWidth words and calls CompleteFill with the same token. The
// token guards against a concurrent snoop marking a line valid that
// arrived invalidated mid-fill (spec §4.8 snoop-during-fill guard).
func (ac *ArrayCache) BeginFill(handle uint32, index int) (line int, token uint64) {
	upper := uint32(index / arrayLineWidth)
	i := ac.find(handle, upper)
	if i < 0 {
		i = ac.fifoNext
		ac.fifoNext = (ac.fifoNext + 1) % len(ac.entries)
	}
	ac.gen++
	ac.entries[i] = arrayCacheEntry{valid: true, handle: handle, indexUpper: upper, fillingGen: ac.gen}
	return i, ac.gen
}

// CompleteFill writes the fetched words and marks the line valid, unless a
// snoop invalidated it mid-fill (the entry's fillingGen no longer matches
// the token handed out by BeginFill, or the entry was reassigned).
func (ac *ArrayCache) CompleteFill(line int, token uint64, words []uint32) {
	e := &ac.entries[line]
	if !e.valid || e.fillingGen != token {
		return // snooped away mid-fill; drop the stale response
	}
	copy(e.data[:], words)
	e.lineValid = true
}

// WriteThrough updates one element on an iastore hit.
func (ac *ArrayCache) WriteThrough(handle uint32, index int, value uint32) {
	upper := uint32(index / arrayLineWidth)
	i := ac.find(handle, upper)
	if i < 0 || !ac.entries[i].lineValid {
		return
	}
	ac.entries[i].data[index%arrayLineWidth] = value
}

// Invalidate clears every line (stidx / cinval).
func (ac *ArrayCache) Invalidate() {
	for i := range ac.entries {
		ac.entries[i] = arrayCacheEntry{}
	}
}

// Snoop invalidates the line covering index of handle, bumping its
// fillingGen so an in-flight fill for that same line is dropped by
// CompleteFill's token check.
func (ac *ArrayCache) Snoop(handle uint32, index int) {
	upper := uint32(index / arrayLineWidth)
	i := ac.find(handle, upper)
	if i < 0 {
		return
	}
	ac.entries[i].lineValid = false
	ac.gen++
	ac.entries[i].fillingGen = ac.gen
}
