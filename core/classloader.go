package core

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// ImageHeader is the fixed prefix of a compiled class-file image: the
// address of the first free (unused) memory word after the image, which
// the loader uses to seed the bump-pointer heap base, followed by the
// word count of each section so the loader can place them contiguously
// without re-parsing class structure at load time.
type ImageHeader struct {
	FirstFree        uint32
	ConstantPoolWords uint32
	StaticRefWords    uint32
	BytecodeWords     uint32
}

// ClassLoader reads a linked image produced offline (by an assembler or
// compiler outside this simulator's scope) and lays it out into main
// memory starting at address 0, matching the wire format §5's data model
// describes: a header of four big-endian uint32 words (ImageHeader), then the constant pool,
// static reference table and concatenated method bytecode arrays back to
// back.
//
// Grounded on the teacher's media_loader.go chunked binary-format reader
// (fixed header, length-prefixed sections, io.Reader-based), adapted from
// loading chiptune sample data to loading a linked Java image.
type ClassLoader struct {
	mem *MainMemory
}

// NewClassLoader creates a loader writing into mem.
func NewClassLoader(mem *MainMemory) *ClassLoader {
	return &ClassLoader{mem: mem}
}

// LoadedImage describes where each section of a loaded image landed in
// main memory, so the caller can point a core's bytecode fetch unit and
// a GC heap base at the right addresses.
type LoadedImage struct {
	Header         ImageHeader
	ConstantPool   uint32
	StaticRefTable uint32
	BytecodeBase   uint32
	HeapBase       uint32
}

// Load reads a class image from r and writes it into memory starting at
// address 0. It returns the section layout computed from the header.
func (cl *ClassLoader) Load(r io.Reader) (*LoadedImage, error) {
	br := bufio.NewReader(r)

	var hdr ImageHeader
	for _, field := range []*uint32{&hdr.FirstFree, &hdr.ConstantPoolWords, &hdr.StaticRefWords, &hdr.BytecodeWords} {
		if err := binary.Read(br, binary.BigEndian, field); err != nil {
			return nil, fmt.Errorf("classloader: reading image header: %w", err)
		}
	}

	img := &LoadedImage{Header: hdr}
	addr := uint32(0)

	img.ConstantPool = addr
	addr, err := cl.loadWords(br, addr, int(hdr.ConstantPoolWords))
	if err != nil {
		return nil, fmt.Errorf("classloader: constant pool: %w", err)
	}

	img.StaticRefTable = addr
	addr, err = cl.loadWords(br, addr, int(hdr.StaticRefWords))
	if err != nil {
		return nil, fmt.Errorf("classloader: static ref table: %w", err)
	}

	img.BytecodeBase = addr
	addr, err = cl.loadWords(br, addr, int(hdr.BytecodeWords))
	if err != nil {
		return nil, fmt.Errorf("classloader: bytecode: %w", err)
	}

	img.HeapBase = hdr.FirstFree
	return img, nil
}

func (cl *ClassLoader) loadWords(r io.Reader, addr uint32, count int) (uint32, error) {
	var w uint32
	for i := 0; i < count; i++ {
		if err := binary.Read(r, binary.BigEndian, &w); err != nil {
			return addr, err
		}
		cl.mem.Write32(addr, w)
		addr += 4
	}
	return addr, nil
}
