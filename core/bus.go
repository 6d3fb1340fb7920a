package core

// BusOp identifies the class of a bus command.
type BusOp int

const (
	BusRead BusOp = iota
	BusWrite
)

// BusCommand is the command channel record: {source, address, length,
// opcode, data, last}. Addr/Len are in words; Data carries write-beats in
// order (len(Data)==1 for a single-word access).
type BusCommand struct {
	Source  int
	Addr    uint32
	Len     int
	Op      BusOp
	Data    []uint32
	IsBurst bool // gates burst-response beat counting (spec §9 hazard #7)
}

// BusResponse is the response channel record.
type BusResponse struct {
	Source int
	Data   []uint32
	Last   bool
	Error  bool
}

// Arbiter is a synchronous, round-robin bus arbiter with source tagging.
// Arbitration is zero-cycle when the bus is idle. During a burst the
// winning source holds the bus until IsBurst completes: no mid-burst
// switch. A single-core configuration bypasses the arbiter (Grant always
// returns the lone requester).
//
// Grounded on the teacher's coprocessor_manager.go: a fixed-size table of
// requesters served round-robin, tracked by a "last served" cursor, the
// same shape as CoprocessorManager's worker table but driving bus grants
// instead of coprocessor tickets.
type Arbiter struct {
	sources   int
	lastOwner int
	owner     int
	busy      bool // true while a burst is in flight
}

// NewArbiter creates an arbiter serving the given number of sources.
func NewArbiter(sources int) *Arbiter {
	return &Arbiter{sources: sources, lastOwner: -1, owner: -1}
}

// Grant selects a winner among the sources whose request bit is set,
// starting the scan just above the last-granted owner (fair round robin).
// It returns -1 if no source is requesting. If a burst is in flight the
// current owner is returned unconditionally — the bus is held.
func (a *Arbiter) Grant(requesting []bool) int {
	if a.busy {
		return a.owner
	}
	n := len(requesting)
	for i := 1; i <= n; i++ {
		idx := (a.lastOwner + i) % n
		if requesting[idx] {
			a.lastOwner = idx
			a.owner = idx
			return idx
		}
	}
	a.owner = -1
	return -1
}

// BeginBurst marks the bus held by the current owner until EndBurst.
func (a *Arbiter) BeginBurst() { a.busy = true }

// EndBurst releases the bus so the next Grant can switch owners.
func (a *Arbiter) EndBurst() { a.busy = false }
