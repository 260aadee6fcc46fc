package swrast

import "sync/atomic"

// Stats are pipeline statistics accumulated since the context was created.
// Front-end and back-end counts are only collected for draws recorded while
// EnableStats(true) was in effect; rasterizer counts are always collected.
type Stats struct {
	// Input assembly and vertex shading.
	IaVertices    uint64
	IaPrimitives  uint64
	VsInvocations uint64
	// Primitives entering and leaving cull and viewport setup.
	CInvocations uint64
	CPrimitives  uint64
	// SoPrimitives is the number of primitives handed to stream-out.
	SoPrimitives uint64

	DepthPassCount uint64
	PsInvocations  uint64
	CsInvocations  uint64

	// Rasterizer counters.
	RasterPrimitives uint64
	TrivialAccepts   uint64
	TrivialRejects   uint64
	PartialTiles     uint64
	BackendCalls     uint64
}

// statsCounters are one worker's statistics. They are read by whichever
// worker answers a GetStats query, so every field is atomic.
type statsCounters struct {
	iaVertices     atomic.Uint64
	iaPrimitives   atomic.Uint64
	vsInvocations  atomic.Uint64
	cInvocations   atomic.Uint64
	cPrimitives    atomic.Uint64
	soPrimitives   atomic.Uint64
	depthPassCount atomic.Uint64
	psInvocations  atomic.Uint64
	csInvocations  atomic.Uint64
}

// collectStats sums the counters of every worker into dst.
func (c *Context) collectStats(dst *Stats) {
	var s Stats
	for i := range c.workers {
		w := &c.workers[i]
		st := &w.stats
		s.IaVertices += st.iaVertices.Load()
		s.IaPrimitives += st.iaPrimitives.Load()
		s.VsInvocations += st.vsInvocations.Load()
		s.CInvocations += st.cInvocations.Load()
		s.CPrimitives += st.cPrimitives.Load()
		s.SoPrimitives += st.soPrimitives.Load()
		s.DepthPassCount += st.depthPassCount.Load()
		s.PsInvocations += st.psInvocations.Load()
		s.CsInvocations += st.csInvocations.Load()

		rc := &w.scratch.Counters
		s.RasterPrimitives += rc.Primitives.Load()
		s.TrivialAccepts += rc.TrivialAccepts.Load()
		s.TrivialRejects += rc.TrivialRejects.Load()
		s.PartialTiles += rc.PartialTiles.Load()
		s.BackendCalls += rc.BackendCalls.Load()
	}
	*dst = s
}
