package debug

// Breakpoint is a simple PC or JPC comparator for one core (spec §7's
// "Debug breakpoint" error-taxonomy entry: a per-core PC/JPC comparator
// match halts the core and emits an asynchronous HALTED notification).
type Breakpoint struct {
	Core    int
	Addr    uint32
	OnJPC   bool // false: compares against the microcode PC
	Enabled bool
}

// ConditionalBreakpoint extends Breakpoint with an arbitrary predicate
// evaluated against the core's current state, e.g. "halt when A == 0".
type ConditionalBreakpoint struct {
	Breakpoint
	Condition func(DebuggableCore) bool
}

// Watchpoint records a memory address to watch for reads or writes. The
// table stores and clears watchpoints, but Check does not evaluate them
// and this package has no hook into the memory controller, so a
// watchpoint never halts a core.
type Watchpoint struct {
	Core    int
	Addr    uint32
	OnWrite bool
	Enabled bool
}

// BreakpointTable tracks every set breakpoint, conditional breakpoint
// and watchpoint, keyed by core.
type BreakpointTable struct {
	breakpoints map[int][]*Breakpoint
	conditional map[int][]*ConditionalBreakpoint
	watchpoints map[int][]*Watchpoint
}

// NewBreakpointTable creates an empty table.
func NewBreakpointTable() *BreakpointTable {
	return &BreakpointTable{
		breakpoints: make(map[int][]*Breakpoint),
		conditional: make(map[int][]*ConditionalBreakpoint),
		watchpoints: make(map[int][]*Watchpoint),
	}
}

// Set adds a plain breakpoint.
func (t *BreakpointTable) Set(bp Breakpoint) {
	bp.Enabled = true
	t.breakpoints[bp.Core] = append(t.breakpoints[bp.Core], &bp)
}

// SetConditional adds a conditional breakpoint.
func (t *BreakpointTable) SetConditional(cb ConditionalBreakpoint) {
	cb.Enabled = true
	t.conditional[cb.Core] = append(t.conditional[cb.Core], &cb)
}

// SetWatch adds a watchpoint.
func (t *BreakpointTable) SetWatch(w Watchpoint) {
	w.Enabled = true
	t.watchpoints[w.Core] = append(t.watchpoints[w.Core], &w)
}

// Clear disables every plain breakpoint and watchpoint at addr for core;
// conditional breakpoints are left as they are.
func (t *BreakpointTable) Clear(core int, addr uint32) {
	for _, bp := range t.breakpoints[core] {
		if bp.Addr == addr {
			bp.Enabled = false
		}
	}
	for _, w := range t.watchpoints[core] {
		if w.Addr == addr {
			w.Enabled = false
		}
	}
}

// Query reports whether any enabled breakpoint at addr exists for core.
func (t *BreakpointTable) Query(core int, addr uint32) bool {
	for _, bp := range t.breakpoints[core] {
		if bp.Enabled && bp.Addr == addr {
			return true
		}
	}
	return false
}

// Check evaluates every plain and conditional breakpoint for dc after a
// step, returning the halt reason string if one fired.
func (t *BreakpointTable) Check(dc DebuggableCore) (reason string, hit bool) {
	core := dc.CoreID()
	pc, jpc := dc.PC(), dc.JPC()
	for _, bp := range t.breakpoints[core] {
		if !bp.Enabled {
			continue
		}
		addr := pc
		if bp.OnJPC {
			addr = jpc
		}
		if addr == bp.Addr {
			return "breakpoint", true
		}
	}
	for _, cb := range t.conditional[core] {
		if cb.Enabled && cb.Condition(dc) {
			return "conditional breakpoint", true
		}
	}
	return "", false
}
