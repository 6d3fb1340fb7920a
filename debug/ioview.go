package debug

import "fmt"

// SysRegView is a read-only window onto one core's view of the system
// register file (spec §6): cycle counter, interrupt source, last
// exception kind, lock status, cpu id/count, boot signal, GC-halt line.
// It is assembled by the caller from live cluster state (this package
// has no dependency on core to avoid an import cycle) and exists purely
// to give the debug monitor a stable, named row set to render.
type SysRegView struct {
	CycleCounter    uint64
	InterruptSource int
	ExceptionKind   string
	LockGranted     bool
	LockHalted      bool
	CPUID           int
	CPUCount        int
	BootSignal      bool
	GCHalted        bool
}

// Rows renders the view as ordered (name, value) pairs matching the
// system register file table's row order.
func (v SysRegView) Rows() []struct{ Name, Value string } {
	return []struct{ Name, Value string }{
		{"cycle counter", fmt.Sprintf("%d", v.CycleCounter)},
		{"interrupt source", fmt.Sprintf("%d", v.InterruptSource)},
		{"exception", v.ExceptionKind},
		{"lock", fmt.Sprintf("granted=%v halted=%v", v.LockGranted, v.LockHalted)},
		{"cpu id", fmt.Sprintf("%d", v.CPUID)},
		{"cpu count", fmt.Sprintf("%d", v.CPUCount)},
		{"signal", fmt.Sprintf("%v", v.BootSignal)},
		{"GC halt", fmt.Sprintf("%v", v.GCHalted)},
	}
}
