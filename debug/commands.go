package debug

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CommandType enumerates the debug transport's framed command/response
// types (spec §6).
type CommandType byte

const (
	CmdHalt CommandType = iota + 1
	CmdResume
	CmdStepMicrocode
	CmdStepBytecode
	CmdReadRegisters
	CmdReadStack
	CmdReadMemory
	CmdWriteMemory
	CmdSetBreakpoint
	CmdClearBreakpoint
	CmdQueryBreakpoint
	CmdPing
	CmdQueryInfo

	// RespHalted is the frame type of the asynchronous HALTED
	// notification. Monitor does not emit frames of this type; it reports
	// breakpoint halts as BreakpointEvent values on Monitor.Events.
	RespHalted CommandType = 0x80 + iota
	RespOK
	RespError
	RespData
)

const frameSync = 0xA5

// Frame is one {SYNC, type, length, core, payload, crc} unit of the
// debug transport.
type Frame struct {
	Type    CommandType
	Core    byte
	Payload []byte
}

// crc8MaximTable is precomputed for CRC-8/MAXIM (poly 0x31, reflected,
// init 0x00, xorout 0x00) — the Dallas/Maxim 1-Wire CRC the spec names.
var crc8MaximTable = func() [256]byte {
	var tbl [256]byte
	for i := 0; i < 256; i++ {
		crc := byte(i)
		for b := 0; b < 8; b++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0x8C
			} else {
				crc >>= 1
			}
		}
		tbl[i] = crc
	}
	return tbl
}()

func crc8Maxim(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crc8MaximTable[crc^b]
	}
	return crc
}

// Encode serialises f into wire bytes, appending the CRC-8/MAXIM
// checksum over everything from SYNC through the payload.
func Encode(f Frame) []byte {
	buf := make([]byte, 0, 5+len(f.Payload)+1)
	buf = append(buf, frameSync, byte(f.Type))
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(f.Payload)))
	buf = append(buf, length[:]...)
	buf = append(buf, f.Core)
	buf = append(buf, f.Payload...)
	buf = append(buf, crc8Maxim(buf))
	return buf
}

// Decode reads one frame from r, validating SYNC and the checksum.
func Decode(r io.Reader) (*Frame, error) {
	hdr := make([]byte, 5)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("debug: reading frame header: %w", err)
	}
	if hdr[0] != frameSync {
		return nil, fmt.Errorf("debug: bad sync byte 0x%02x", hdr[0])
	}
	length := binary.BigEndian.Uint16(hdr[2:4])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("debug: reading frame payload: %w", err)
	}
	var crcByte [1]byte
	if _, err := io.ReadFull(r, crcByte[:]); err != nil {
		return nil, fmt.Errorf("debug: reading frame crc: %w", err)
	}
	want := crc8Maxim(append(append([]byte{}, hdr...), payload...))
	if crcByte[0] != want {
		return nil, fmt.Errorf("debug: crc mismatch: got 0x%02x want 0x%02x", crcByte[0], want)
	}
	return &Frame{Type: CommandType(hdr[1]), Core: hdr[4], Payload: payload}, nil
}

// EncodeRegisters packs a register snapshot as a CmdReadRegisters reply
// payload: one uint32 value per register, in snapshot order.
func EncodeRegisters(regs []RegisterInfo) []byte {
	buf := make([]byte, 4*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint32(buf[i*4:], r.Value)
	}
	return buf
}
