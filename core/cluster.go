package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Cluster is the SMP fabric tying a fixed number of identical cores
// together over one CmpSync lock, one IHLU (if enabled), one bus
// arbiter, one cache-snoop bus and one garbage collector.
//
// Grounded on the teacher's coprocessor_manager.go, which fans work out
// to N worker goroutines and collects their results through an errgroup
// before advancing; here every core's Step is combinational within a
// cycle, so the same fan-out/join shape becomes the cycle driver itself.
type Cluster struct {
	Cores []*Core

	Arbiter *Arbiter
	CmpSync *CmpSync
	IHLU    *IHLU
	Snoop   *SnoopBus
	GC      *GC

	cfg *Config

	Cycle uint64
}

// NewCluster assembles a cluster of the given cores sharing the given
// fabric components.
func NewCluster(cfg *Config, cores []*Core, arbiter *Arbiter, cmpsync *CmpSync, ihlu *IHLU, snoop *SnoopBus, gc *GC) *Cluster {
	for _, c := range cores {
		c.CmpSync = cmpsync
		c.IHLU = ihlu
		c.GC = gc
	}
	return &Cluster{Cores: cores, Arbiter: arbiter, CmpSync: cmpsync, IHLU: ihlu, Snoop: snoop, GC: gc, cfg: cfg}
}

// Tick advances the whole cluster by exactly one clock cycle: every
// core's Step runs concurrently (they only ever contend through the
// mutex-guarded fabric components, never by touching each other's
// fields directly), then the shared sequencers — CmpSync handoff, GC
// phase progression, proactive GC trigger — are polled once.
func (cl *Cluster) Tick(ctx context.Context) error {
	cl.applyGCHalt()

	g, _ := errgroup.WithContext(ctx)
	for _, c := range cl.Cores {
		c := c
		g.Go(func() error {
			c.Step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cl.CmpSync.Poll()

	if cl.GC != nil {
		cl.GC.Tick()
		if cl.GC.ShouldTrigger(cl.cfg) {
			cl.GC.StartCycle()
		}
	}

	cl.Cycle++
	return nil
}

// applyGCHalt asserts or clears each core's GC-halt line for the cycle
// about to run, honouring the two drain exemptions of spec §4.11/§4.12:
// a core currently owning CmpSync, or currently holding any IHLU slot,
// is never halted — it is left to run until it releases, which is the
// only way those locks make forward progress during a stop-the-world
// phase without deadlocking against the collector that is waiting on it.
func (cl *Cluster) applyGCHalt() {
	stw := cl.GC != nil && cl.GC.IsStopTheWorld()
	for i, c := range cl.Cores {
		if !stw {
			c.SetGCHalt(false)
			continue
		}
		exempt := cl.CmpSync.IsHeldBy(i) || (cl.IHLU != nil && cl.IHLU.HoldsAny(i))
		c.SetGCHalt(!exempt)
	}
}
