package scenario

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/jop-sim/jopcore/debug"
)

// RunLuaScript drives harness h's debug-command stream from a Lua script,
// the scripted half of the two-track test strategy SPEC_FULL.md's ambient
// stack calls for (Go tests for invariants, Lua scripts for end-to-end
// programs exercised the same way an external debug client would).
//
// The script sees one global table, `jop`, with:
//
//	jop.tick(n)                 -- advance the cluster n cycles
//	jop.halted(core)             -- bool
//	jop.all_halted()             -- bool
//	jop.halt(core)                -- debug-halt a core
//	jop.resume(core)
//	jop.step_microcode(core)
//	jop.step_bytecode(core)
//	jop.register(core, name)     -- uint32 value, or errors if unknown
//	jop.read_memory(core, addr)  -- uint32
//	jop.write_memory(core, addr, value)
//	jop.assert(cond, message)    -- Lua-level assertion, fails the script
func RunLuaScript(h *Harness, script string) error {
	mon := h.Monitor()

	L := lua.NewState()
	defer L.Close()

	jopTable := L.NewTable()

	L.SetField(jopTable, "tick", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		for i := 0; i < n && !h.AllHalted(); i++ {
			if err := h.Cluster.Tick(context.Background()); err != nil {
				L.RaiseError("cluster tick: %v", err)
				return 0
			}
			mon.AfterStep()
		}
		return 0
	}))

	L.SetField(jopTable, "halted", L.NewFunction(func(L *lua.LState) int {
		core := L.CheckInt(1)
		L.Push(lua.LBool(mustCore(L, mon, core).Halted()))
		return 1
	}))

	L.SetField(jopTable, "all_halted", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(h.AllHalted()))
		return 1
	}))

	L.SetField(jopTable, "halt", L.NewFunction(func(L *lua.LState) int {
		mustCore(L, mon, L.CheckInt(1)).SetHalt(true)
		return 0
	}))

	L.SetField(jopTable, "resume", L.NewFunction(func(L *lua.LState) int {
		mustCore(L, mon, L.CheckInt(1)).SetHalt(false)
		return 0
	}))

	L.SetField(jopTable, "step_microcode", L.NewFunction(func(L *lua.LState) int {
		mustCore(L, mon, L.CheckInt(1)).StepMicrocode()
		return 0
	}))

	L.SetField(jopTable, "step_bytecode", L.NewFunction(func(L *lua.LState) int {
		mustCore(L, mon, L.CheckInt(1)).StepBytecode()
		return 0
	}))

	L.SetField(jopTable, "register", L.NewFunction(func(L *lua.LState) int {
		dc := mustCore(L, mon, L.CheckInt(1))
		name := L.CheckString(2)
		for _, r := range dc.Registers() {
			if r.Name == name {
				L.Push(lua.LNumber(r.Value))
				return 1
			}
		}
		L.RaiseError("unknown register %q", name)
		return 0
	}))

	L.SetField(jopTable, "read_memory", L.NewFunction(func(L *lua.LState) int {
		dc := mustCore(L, mon, L.CheckInt(1))
		addr := uint32(L.CheckInt(2))
		L.Push(lua.LNumber(dc.ReadMemory(addr)))
		return 1
	}))

	L.SetField(jopTable, "write_memory", L.NewFunction(func(L *lua.LState) int {
		dc := mustCore(L, mon, L.CheckInt(1))
		addr := uint32(L.CheckInt(2))
		value := uint32(L.CheckInt(3))
		dc.WriteMemory(addr, value)
		return 0
	}))

	L.SetField(jopTable, "assert", L.NewFunction(func(L *lua.LState) int {
		if !L.ToBool(1) {
			msg := "assertion failed"
			if L.GetTop() >= 2 {
				msg = L.CheckString(2)
			}
			L.RaiseError("%s", msg)
		}
		return 0
	}))

	L.SetGlobal("jop", jopTable)

	return L.DoString(script)
}

func mustCore(L *lua.LState, mon *debug.Monitor, idx int) debug.DebuggableCore {
	if idx < 0 || idx >= len(mon.Cores) {
		L.RaiseError("core index %d out of range (cluster has %d cores)", idx, len(mon.Cores))
		return nil
	}
	return mon.Cores[idx]
}
