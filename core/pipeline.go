package core

// Core is one JOP pipeline: bytecode fetch, microcode decode/execute,
// stack cache, ALU, and a private memory controller, all driven by a
// single Step per cycle. It is the central assembly point the rest of
// the core package's components are built to plug into.
type Core struct {
	ID int

	Regs  Registers
	Stack *StackCache
	Mul   MulUnit
	BC    *BytecodeFetch
	Mem   *MemoryController
	ROM   *MicrocodeROM
	JT    *JumpTable

	CmpSync *CmpSync
	IHLU    *IHLU
	GC      *GC // optional; non-nil once a collector is attached to the cluster

	uPC uint32 // microcode program counter

	interconnectHalt bool // set only through SetInterconnectHalt
	gcHalt           bool // asserted by the garbage collector during STW phases
	debugHalt        bool // asserted by the debug monitor

	Halted bool // sys_exit reached, or a fatal trap with no handler

	trace TraceFunc

	// memInFlight is set when Step issues a memory request and cleared
	// when the memory controller reports it done.
	memInFlight bool
}

// NewCore assembles a pipeline for core id over the given shared/private
// components. Caller wires Mem/ROM/JT/CmpSync/IHLU afterward if not
// supplied here.
func NewCore(id int, stack *StackCache, bc *BytecodeFetch, mem *MemoryController, rom *MicrocodeROM, jt *JumpTable) *Core {
	c := &Core{ID: id, Stack: stack, BC: bc, Mem: mem, ROM: rom, JT: jt, trace: DiscardTrace}
	c.Regs.Reset()
	return c
}

// SetTrace installs a trace sink for cycle-level diagnostics.
func (c *Core) SetTrace(t TraceFunc) { c.trace = t }

// SetInterconnectHalt asserts or clears the interconnect-halt suspension
// point. Cluster does not call it and does not consult its Arbiter, so
// the line stays clear unless a caller sets it.
func (c *Core) SetInterconnectHalt(h bool) { c.interconnectHalt = h }

// SetGCHalt is driven by the garbage collector during a stop-the-world
// phase. The CmpSync-owner and any-IHLU-held exemptions are applied by
// the caller (Cluster) before calling this, per spec §4.11/§4.12 — Core
// itself does not know about lock ownership.
func (c *Core) SetGCHalt(h bool) { c.gcHalt = h }

// SetDebugHalt is driven by the debug monitor.
func (c *Core) SetDebugHalt(h bool) { c.debugHalt = h }

func (c *Core) operand(mux OperandMux) uint32 {
	switch mux {
	case MuxZero:
		return 0
	case MuxStackTOS:
		return c.Stack.Read(uint32(c.Regs.SP) - 1)
	case MuxStackNOS:
		return c.Stack.Read(uint32(c.Regs.SP) - 2)
	case MuxRegA:
		return c.Regs.A
	case MuxRegB:
		return c.Regs.B
	case MuxImmediate:
		return uint32(int32(int8(c.BC.FetchImmediateByte())))
	case MuxMemResult:
		return c.Regs.Scratch[0]
	case MuxVP:
		return c.Regs.VP
	case MuxMP:
		return c.Regs.MP
	case MuxPC:
		return c.BC.JPC
	}
	return 0
}

func (c *Core) writeback(dest WriteDest, value uint32) {
	switch dest {
	case DestStackPush:
		c.Stack.StartRotationIfNeeded(uint32(c.Regs.SP))
		c.Stack.Write(uint32(c.Regs.SP), value)
		c.Regs.SP++
	case DestRegA:
		c.Regs.A = value
	case DestRegB:
		c.Regs.B = value
	case DestVP:
		c.Regs.VP = value
	case DestMP:
		c.Regs.MP = value
	case DestPC:
		c.BC.JPC = value
	}
}

// Step runs exactly one clock cycle of this core's pipeline. It returns
// the hardware exception raised this cycle, if any (the caller still
// calls Step again next cycle; the trap redirect happens on the next
// jfetch per BytecodeFetch.PendingTrap's one-shot semantics).
func (c *Core) Step() *HardwareException {
	if c.Stack.Rotating {
		c.Stack.StepRotation()
		return nil
	}
	if c.Mem.Busy() {
		done, result, exc := c.Mem.Step()
		if done {
			c.Regs.Scratch[0] = result
			c.memInFlight = false
		}
		if exc != nil {
			c.BC.RaiseException(exc.Kind)
			return exc
		}
		return nil
	}
	if c.interconnectHalt || c.gcHalt || c.debugHalt || c.Halted {
		return nil
	}

	instr := c.ROM.Fetch(c.uPC)

	a := c.operand(instr.AMux)
	b := c.operand(instr.BMux)

	for i := 0; i < instr.Pop; i++ {
		c.Regs.SP--
	}

	var result uint32
	var flags Flags
	switch instr.ALUOp {
	case ALUMulStart:
		c.Mul.Start(int32(a), int32(b))
	case ALUMulStep:
		c.Mul.Step()
		if c.Mul.Done() {
			result = c.Mul.Result()
		}
	case ALUDiv, ALURem:
		q, r, divByZero := DivMod(int32(a), int32(b))
		if divByZero {
			// Divide-by-zero must throw synchronously, right here, not
			// via the async hardware-exception trap path: that path
			// redirects on the *next* jfetch, by which point JPC has
			// already moved past the faulting bytecode (spec §9 hazard
			// #6). uPC is left unchanged so a handler re-dispatch can
			// resume cleanly.
			return &HardwareException{Kind: ExcArithmetic}
		}
		if instr.ALUOp == ALUDiv {
			result = uint32(q)
		} else {
			result = uint32(r)
		}
		flags = Flags{Z: result == 0, N: int32(result) < 0, EQ: q == 0, LT: int32(result) < 0}
	default:
		result, flags = ApplyALU(instr.ALUOp, a, b)
	}
	c.Regs.Flags = flags

	if instr.Halt {
		c.Halted = true
		return nil
	}

	if instr.MemOp != MemNone {
		req := MemRequest{Op: instr.MemOp, Addr: a, Data: b}
		if instr.MemOp == MemIaload {
			req.Index = int(int32(b))
		}
		c.Mem.Issue(req)
		c.memInFlight = true
	} else if instr.Dest != DestNone {
		c.writeback(instr.Dest, result)
	}

	if instr.JFetch {
		c.BC.Advance()
		if kind, _, has := c.BC.PendingTrap(); has {
			target := c.JT.Lookup(trapOpcodeFor(kind))
			c.uPC = target
			return nil
		}
		c.uPC = c.JT.Lookup(c.BC.Instr())
		return nil
	}

	switch instr.NextPC {
	case NpcJump:
		c.uPC = instr.JumpTarget
	case NpcBranchTaken:
		if BranchTaken(instr.Branch, c.Regs.Flags) {
			c.uPC = instr.JumpTarget
		} else {
			c.uPC++
		}
	default:
		c.uPC++
	}
	return nil
}

// CoreID returns this core's cluster-assigned index.
func (c *Core) CoreID() int { return c.ID }

// UPC returns the current microcode program counter.
func (c *Core) UPC() uint32 { return c.uPC }

// JPC returns the current bytecode program counter.
func (c *Core) JPC() uint32 { return c.BC.JPC }

// RegisterSnapshot is the named, ordered register dump the debug package
// renders; kept here (rather than importing debug, which would cycle)
// as a plain struct slice any caller can adapt.
type RegisterSnapshot struct {
	Name  string
	Value uint32
	Width int
}

// Registers returns every exposed pipeline register (spec §4.1) as a
// named snapshot, in the fixed order the debug transport's
// "read registers" command replies with.
func (c *Core) Registers() []RegisterSnapshot {
	return []RegisterSnapshot{
		{"PC", c.uPC, 11},
		{"JPC", c.BC.JPC, 32},
		{"IR", c.Regs.IR, 10},
		{"A", c.Regs.A, 32},
		{"B", c.Regs.B, 32},
		{"SP", uint32(c.Regs.SP), 8},
		{"VP", c.Regs.VP, 32},
		{"MP", c.Regs.MP, 32},
	}
}

// ReadStack reads one word from the logical operand stack, by way of the
// stack cache (spec §4.3's shared debug read port).
func (c *Core) ReadStack(logicalAddr uint32) uint32 { return c.Stack.Read(logicalAddr) }

// ReadMemory and WriteMemory give the debug transport a raw, uncached
// path to main memory, matching "the controller drives a bus master for
// memory access when enabled" (spec §6).
func (c *Core) ReadMemory(addr uint32) uint32         { return c.Mem.mem.Read32(addr) }
func (c *Core) WriteMemory(addr uint32, value uint32) { c.Mem.mem.Write32(addr, value) }

// SetHalt asserts or clears the debug-halt suspension point.
func (c *Core) SetHalt(h bool) { c.SetDebugHalt(h) }

// IsHalted reports whether the core is debug-halted or terminally
// halted.
func (c *Core) IsHalted() bool { return c.debugHalt || c.Halted }

// StepMicrocode runs exactly one pipeline cycle regardless of the
// debug-halt line, then re-asserts it — the "step microcode" debug
// command.
func (c *Core) StepMicrocode() {
	held := c.debugHalt
	c.debugHalt = false
	c.Step()
	c.debugHalt = held
}

// StepBytecode runs pipeline cycles until JPC changes (a jfetch or an
// operand fetch both move it), at most 4096 cycles — the "step bytecode"
// debug command.
func (c *Core) StepBytecode() {
	held := c.debugHalt
	c.debugHalt = false
	startJPC := c.BC.JPC
	for i := 0; i < 4096 && c.BC.JPC == startJPC; i++ {
		c.Step()
	}
	c.debugHalt = held
}

// PutStaticRef performs a putstatic_ref: fires the SATB write barrier on
// the value currently at addr before overwriting it with newVal (spec
// §4.17). Static fields live in a fixed main-memory region rather than
// behind a handle, so this bypasses the memory controller's cached
// field path entirely.
func (c *Core) PutStaticRef(addr, newVal uint32) {
	if c.GC != nil {
		c.GC.WriteBarrier(c.Mem.mem.Read32(addr))
	}
	c.Mem.mem.Write32(addr, newVal)
}

// trapOpcodeFor picks the jump-table slot a hardware exception redirects
// through. By convention the jump table's high entries (256-N) are
// reserved for trap handlers, indexed by exception kind so a handler can
// tell which condition fired without decoding the faulting bytecode.
func trapOpcodeFor(kind ExceptionKind) uint8 {
	return uint8(0xF0 + int(kind))
}
