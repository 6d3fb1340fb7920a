package core

// Config collects the sizing knobs the hardware would otherwise fix at
// synthesis time. Defaults match the literal constants named in the spec.
type Config struct {
	CoreCount int

	HeapWords   int // main heap, in 32-bit words; scenario.Build and jopsim place the handle area after these words, not in front of them
	HandleCap   int // maximum live handles, independent of heap size (spec default 65536)
	HandleWords int // words per handle record (spec: 8)

	StackBankCount int // resident banks in the stack cache
	StackBankWords int // words per bank

	MethodCacheBlocks    int // M$ blocks (spec: 16)
	MethodCacheBlockSize int // words per block

	ObjectCacheEntries int // O$ entries (spec: 16)
	ObjectCacheFields  int // fields per entry (spec: 8)

	ArrayCacheEntries  int // A$ entries (spec: 16)
	ArrayCacheElements int // elements per entry (spec: 4)

	GCTriggerFreeFraction float64 // proactive GC trigger (spec: 0.25)
	MarkStep              int     // gray handles popped per MARK increment
	CompactStep           int     // handles slid per COMPACT increment

	UseIHLU bool // true: per-object IHLU; false: global CmpSync only
	IHLUSlots int
}

// DefaultConfig returns the configuration implied by the literal constants
// named throughout spec.md.
func DefaultConfig() Config {
	return Config{
		CoreCount: 2,

		HeapWords:   1 << 20, // 4MiB heap
		HandleCap:   65536,
		HandleWords: 8,

		StackBankCount: 4,
		StackBankWords: 256,

		MethodCacheBlocks:    16,
		MethodCacheBlockSize: 128,

		ObjectCacheEntries: 16,
		ObjectCacheFields:  8,

		ArrayCacheEntries:  16,
		ArrayCacheElements: 4,

		GCTriggerFreeFraction: 0.25,
		MarkStep:              16,
		CompactStep:           8,

		UseIHLU:   true,
		IHLUSlots: 32,
	}
}
