package core

// SnoopBus broadcasts object/array-cache invalidations across a cluster.
// Every putfield/iastore issues a combinational snoop carrying
// {handle, field_or_index}; every remote core's O$/A$ compares the key in
// parallel and clears the matching valid bit. Invalidation is single-cycle
// and never stalls the snooping core.
//
// Grounded on the teacher's debug_interface.go BreakpointEvent channel
// publish/subscribe pattern (SetBreakpointChannel), repurposed from an
// async debugger notification into a same-cycle broadcast to every other
// core's caches.
type SnoopBus struct {
	subscribers []*snoopSubscriber
}

type snoopSubscriber struct {
	coreID int
	oc     *ObjectCache
	ac     *ArrayCache
}

// Subscribe registers a core's caches to receive snoop invalidations
// raised by any other core.
func (s *SnoopBus) Subscribe(coreID int, oc *ObjectCache, ac *ArrayCache) {
	s.subscribers = append(s.subscribers, &snoopSubscriber{coreID, oc, ac})
}

// BroadcastField invalidates {handle, field} in every subscriber except
// the issuing core.
func (s *SnoopBus) BroadcastField(issuer int, handle uint32, field int) {
	for _, sub := range s.subscribers {
		if sub.coreID == issuer {
			continue
		}
		sub.oc.Snoop(handle, field)
	}
}

// BroadcastIndex invalidates the array line covering index in every
// subscriber except the issuing core.
func (s *SnoopBus) BroadcastIndex(issuer int, handle uint32, index int) {
	for _, sub := range s.subscribers {
		if sub.coreID == issuer {
			continue
		}
		sub.ac.Snoop(handle, index)
	}
}

// InvalidateAll broadcasts a full O$/A$ invalidation to every subscriber
// (used after a raw wrMem bulk copy, which bypasses snoop by construction
// per spec §4.13 — callers must call this explicitly).
func (s *SnoopBus) InvalidateAll() {
	for _, sub := range s.subscribers {
		sub.oc.Invalidate()
		sub.ac.Invalidate()
	}
}
