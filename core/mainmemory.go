package core

import (
	"encoding/binary"
	"sync"
)

// MainMemory is the simulated main memory backing the heap, handle area,
// per-core bytecode RAMs and stack-cache spill region. It is byte
// addressed: Read32/Write32 take the byte address of a 32-bit word, and
// ReadByte/WriteByte give byte-granular access for the bytecode loader.
//
// Grounded on the teacher's memory_bus.go SystemBus: a contiguous []byte
// block, little-endian 32-bit access via encoding/binary, and an
// RWMutex guarding every access so the model stays safe when a GC
// goroutine and a core's memory controller touch it concurrently.
type MainMemory struct {
	mu    sync.RWMutex
	bytes []byte

	// BeatCycles models the N-cycle latency of a single-beat access; 1
	// reproduces BRAM-like single-cycle response, >1 an SDR-like delay.
	BeatCycles int
}

// NewMainMemory allocates a memory model of the given size in words.
func NewMainMemory(words int) *MainMemory {
	return &MainMemory{
		bytes:      make([]byte, words*4),
		BeatCycles: 1,
	}
}

// Size returns the memory size in bytes.
func (m *MainMemory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bytes)
}

// Read32 reads a little-endian 32-bit word at a byte address.
func (m *MainMemory) Read32(addr uint32) uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return binary.LittleEndian.Uint32(m.bytes[addr : addr+4])
}

// Write32 writes a little-endian 32-bit word at a byte address.
func (m *MainMemory) Write32(addr uint32, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	binary.LittleEndian.PutUint32(m.bytes[addr:addr+4], value)
}

// ReadByte reads a single byte — used by the bytecode fetch stage and the
// classfile-image loader.
func (m *MainMemory) ReadByte(addr uint32) byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bytes[addr]
}

// WriteByte writes a single byte.
func (m *MainMemory) WriteByte(addr uint32, value byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes[addr] = value
}

// CopyWords performs a raw bulk word copy (backs System.arraycopy-style
// bulk writes and the memCopy memory-controller operation). It bypasses
// the object/array cache write-through path entirely: per spec §4.13,
// callers must explicitly invalidate snoop state afterwards.
func (m *MainMemory) CopyWords(dst, src uint32, words int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.bytes[dst:dst+uint32(words*4)], m.bytes[src:src+uint32(words*4)])
}

// ZeroRange zero-fills a byte range. Used for freshly allocated handle
// areas and heap objects, and for the region a compaction cycle vacates.
// The stack cache zero-fills its own bank storage.
func (m *MainMemory) ZeroRange(addr uint32, length int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.bytes[addr : addr+uint32(length)])
}

// Reset zeroes the entire memory block.
func (m *MainMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.bytes)
}
