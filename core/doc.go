// Package core implements a cycle-accurate functional model of the JOP
// microcode pipeline: register file, stack cache, ALU, bytecode frontend,
// memory controller, semantic caches, and the SMP fabric that ties a
// cluster of cores together behind a shared bus.
//
// Build order mirrors the dependency order of the hardware it models,
// leaves first: Bus, MainMemory, the ALU, BytecodeFetch, JumpTable,
// MicrocodeROM, MethodCache, ObjectCache and ArrayCache have no
// dependencies on other components; HandleTable and StackCache depend on
// MainMemory; MemoryController depends on MainMemory, HandleTable, the
// caches and SnoopBus; Core ties BytecodeFetch, JumpTable, MicrocodeROM,
// StackCache, the ALU and MemoryController together; Cluster depends on
// Core plus CmpSync/IHLU/SnoopBus and the GC.
package core
