package debug

// Snapshot is a point-in-time capture of one core's visible state, for
// before/after diffing with Diff. Monitor's commands read registers and
// stack directly and do not use it.
type Snapshot struct {
	CoreID    int
	Registers []RegisterInfo
	Stack     []uint32 // logical stack words [0, len) as of capture time
}

// Capture snapshots dc's registers and the bottom stackWords of its
// logical stack.
func Capture(dc DebuggableCore, stackWords int) Snapshot {
	regs := dc.Registers()
	stack := make([]uint32, stackWords)
	for i := range stack {
		stack[i] = dc.ReadStack(uint32(i))
	}
	return Snapshot{CoreID: dc.CoreID(), Registers: regs, Stack: stack}
}

// Diff reports which register names changed value between two snapshots
// of the same core, in before/after pairs.
func Diff(before, after Snapshot) map[string][2]uint32 {
	prev := make(map[string]uint32, len(before.Registers))
	for _, r := range before.Registers {
		prev[r.Name] = r.Value
	}
	changed := make(map[string][2]uint32)
	for _, r := range after.Registers {
		if p, ok := prev[r.Name]; ok && p != r.Value {
			changed[r.Name] = [2]uint32{p, r.Value}
		}
	}
	return changed
}
