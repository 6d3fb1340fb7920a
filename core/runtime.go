package core

// sysExcHelperSlot is the method-table slot sys_exc dispatches to. It is
// the *fifth* slot, not the fourth (spec §9 hazard #5): the first four
// slots are reserved for the class's own <init>/<clinit>/monitor helpers,
// so a naive "magic number 4" off-by-one silently calls the wrong method.
const sysExcHelperSlot = 4 // zero-based index => the fifth slot

// Monitors dispatches monitorenter/monitorexit either through the single
// global CmpSync lock or the per-object IHLU table, per Config.UseIHLU.
// Grounded on the teacher's coprocessor_manager.go lock dispatch, which
// likewise picks one of several backing resources by a static config
// flag rather than at the call site.
type Monitors struct {
	cfg     *Config
	cmpsync *CmpSync
	ihlu    *IHLU

	// reentrancy tracks CmpSync's nesting depth per core, since CmpSync
	// (unlike IHLU) has no built-in per-key reentrancy counter: it is a
	// single global lock, so "the same lock" is trivially always true.
	reentrancy []int
}

// NewMonitors wires a Monitors dispatcher for a cluster of `cores` cores.
func NewMonitors(cfg *Config, cmpsync *CmpSync, ihlu *IHLU, cores int) *Monitors {
	return &Monitors{cfg: cfg, cmpsync: cmpsync, ihlu: ihlu, reentrancy: make([]int, cores)}
}

// MonitorEnter acquires the lock for handle on behalf of core. halted
// reports whether the core must stop issuing further bytecodes until a
// later MonitorEnter retry succeeds (CmpSync queued, or IHLU queued). A
// full IHLU table with no free slot returns halted=false with
// ExcIllegalMonitorState; CmpSync never returns an exception, since it
// always eventually grants.
func (m *Monitors) MonitorEnter(core int, handle uint32) (halted bool, excKind ExceptionKind) {
	if !m.cfg.UseIHLU {
		if m.cmpsync.IsHeldBy(core) {
			m.reentrancy[core]++
			return false, ExcNone
		}
		m.cmpsync.Request(core)
		if m.cmpsync.Owner() != core {
			return true, ExcNone
		}
		m.reentrancy[core] = 1
		return false, ExcNone
	}

	switch m.ihlu.Lock(handle, core) {
	case LockGranted:
		return false, ExcNone
	case LockQueued:
		return true, ExcNone
	default: // LockFull
		return false, ExcIllegalMonitorState
	}
}

// MonitorExit releases handle's lock held by core, returning the core id
// (if any) that the handoff un-halts.
func (m *Monitors) MonitorExit(core int, handle uint32) (handoff int, excKind ExceptionKind) {
	if !m.cfg.UseIHLU {
		if !m.cmpsync.IsHeldBy(core) {
			return -1, ExcIllegalMonitorState
		}
		m.reentrancy[core]--
		if m.reentrancy[core] > 0 {
			return -1, ExcNone
		}
		m.cmpsync.Release(core)
		return -1, ExcNone
	}
	return m.ihlu.Unlock(handle, core), ExcNone
}

// SysExcTarget computes the JPC of the Java helper sys_exc must transfer
// control to: the fifth slot (index sysExcHelperSlot) of the method
// table rooted at mp. The caller must first decrement JPC by the
// bytecode's own length so the helper, if it returns normally, resumes
// at the faulting instruction rather than past it.
func SysExcTarget(methodTableBase uint32, mem *MainMemory) uint32 {
	return mem.Read32(methodTableBase + uint32(sysExcHelperSlot*4))
}
