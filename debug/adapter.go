package debug

import "github.com/jop-sim/jopcore/core"

// CoreAdapter satisfies DebuggableCore over a live core.Core, translating
// its RegisterSnapshot slice into this package's RegisterInfo.
type CoreAdapter struct {
	C *core.Core
}

func (a CoreAdapter) CoreID() int { return a.C.CoreID() }

func (a CoreAdapter) Registers() []RegisterInfo {
	snaps := a.C.Registers()
	out := make([]RegisterInfo, len(snaps))
	for i, s := range snaps {
		out[i] = RegisterInfo{Name: s.Name, Value: s.Value, Width: s.Width}
	}
	return out
}

func (a CoreAdapter) ReadStack(addr uint32) uint32           { return a.C.ReadStack(addr) }
func (a CoreAdapter) ReadMemory(addr uint32) uint32          { return a.C.ReadMemory(addr) }
func (a CoreAdapter) WriteMemory(addr uint32, value uint32)  { a.C.WriteMemory(addr, value) }
func (a CoreAdapter) PC() uint32                             { return a.C.UPC() }
func (a CoreAdapter) JPC() uint32                             { return a.C.JPC() }
func (a CoreAdapter) SetHalt(h bool)                          { a.C.SetHalt(h) }
func (a CoreAdapter) Halted() bool                             { return a.C.IsHalted() }
func (a CoreAdapter) StepMicrocode()                           { a.C.StepMicrocode() }
func (a CoreAdapter) StepBytecode()                            { a.C.StepBytecode() }
