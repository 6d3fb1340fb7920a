package core

// methodCacheBlock is a tag-only M$ block; the data lives in the
// bytecode RAM itself, never duplicated into the cache.
type methodCacheBlock struct {
	tag      uint32
	tagValid bool
}

// MethodCache is a fully-associative, tag-only cache over a per-core
// bytecode RAM. FIFO replacement advances the allocation pointer by
// ceil(method_length/block_size) blocks on a miss.
//
// Grounded on the teacher's coprocessor_manager.go ring-buffer bookkeeping
// (RING_HEAD_OFFSET/RING_TAIL_OFFSET/RING_CAPACITY): the same
// head-pointer-modulo-capacity FIFO shape, repurposed here to evict cache
// blocks instead of mailbox ring entries.
type MethodCache struct {
	blocks    []methodCacheBlock
	blockSize int
	fifoHead  int
}

// NewMethodCache creates an M$ with the given block count/size.
func NewMethodCache(blockCount, blockSize int) *MethodCache {
	return &MethodCache{
		blocks:    make([]methodCacheBlock, blockCount),
		blockSize: blockSize,
	}
}

// Lookup performs the S1 combinational tag compare. A block whose tag is
// numerically zero never hits unless tagValid is also set — this is the
// guard against a cleared tag matching a lookup for bytecode address 0
// (spec §9 hazard #4).
func (mc *MethodCache) Lookup(methodStart uint32) bool {
	for i := range mc.blocks {
		if mc.blocks[i].tagValid && mc.blocks[i].tag == methodStart {
			return true
		}
	}
	return false
}

// Fill performs the S2 allocation on a miss: it installs methodStart at
// the FIFO head, advancing the head by enough blocks to cover
// methodLength, and explicitly clears tagValid on every evicted block.
func (mc *MethodCache) Fill(methodStart uint32, methodLength int) {
	blocksNeeded := (methodLength + mc.blockSize - 1) / mc.blockSize
	if blocksNeeded < 1 {
		blocksNeeded = 1
	}
	n := len(mc.blocks)
	for i := 0; i < blocksNeeded && i < n; i++ {
		idx := (mc.fifoHead + i) % n
		mc.blocks[idx].tagValid = false // evict first: never a stale tag-zero hit
		mc.blocks[idx].tag = methodStart
		mc.blocks[idx].tagValid = true
	}
	mc.fifoHead = (mc.fifoHead + blocksNeeded) % n
}

// Invalidate clears every block's valid bit (stidx / cinval).
func (mc *MethodCache) Invalidate() {
	for i := range mc.blocks {
		mc.blocks[i].tagValid = false
	}
}
