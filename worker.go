package swrast

import (
	"runtime"

	"github.com/gogpu/swrast/internal/raster"
)

// workerLoop is the body of one pool goroutine.
func (c *Context) workerLoop(id int) {
	w := &c.workers[id]
	idle := func() bool {
		e := c.enqueued.Load()
		return w.fe.Load() >= e && w.be.Load() >= e
	}
	for c.pool.Sleep(idle) {
		progressed := c.workOnFifoBE(w)
		progressed = c.workOnCompute(w) || progressed
		progressed = c.workOnFifoFE(w) || progressed
		if progressed {
			c.pool.NotifyProgress()
		} else {
			runtime.Gosched()
		}
	}
}

// workOnFifoFE runs the front end of every draw this worker can claim. It
// reports whether the worker moved its cursor or ran any work.
func (c *Context) workOnFifoFE(w *worker) bool {
	progressed := false
	enq := c.enqueued.Load()
	cur := w.fe.Load()
	for cur < enq {
		dc := c.slot(cur)
		if !dc.isCompute && !dc.doneFE.Load() && !dc.feLock.Load() {
			break
		}
		cur++
		progressed = true
	}
	w.fe.Store(cur)

	for id := cur; id < enq; id++ {
		dc := c.slot(id)
		if dc.isCompute || dc.feLock.Load() {
			continue
		}
		// A draw with a dependency waits until every worker is past the
		// front end of all earlier draws.
		if dc.dependency != 0 && c.minFECursor() < id {
			break
		}
		if dc.feLock.CompareAndSwap(false, true) {
			dc.work.fn(c, dc, w)
			dc.doneFE.Store(true)
			progressed = true
		}
	}
	return progressed
}

func (c *Context) minFECursor() uint64 {
	m := c.workers[0].fe.Load()
	for i := 1; i < len(c.workers); i++ {
		m = min(m, c.workers[i].fe.Load())
	}
	return m
}

// findFirstIncompleteDraw moves the worker's back-end cursor past every
// finished draw and reports whether there is a draw left to look at.
func (c *Context) findFirstIncompleteDraw(w *worker) (moved, pending bool) {
	enq := c.enqueued.Load()
	start := w.be.Load()
	cur := start
	for cur < enq {
		dc := c.slot(cur)
		if dc.isCompute {
			if !dc.dispatch.complete() {
				break
			}
		} else if !dc.doneFE.Load() || !dc.tiles.complete() {
			break
		}
		cur++
	}
	w.be.Store(cur)
	return cur != start, cur < enq
}

// dependencyMet reports whether dc may run. done is the newest draw this
// worker knows to be complete.
func (c *Context) dependencyMet(dc *DrawContext, done uint64) bool {
	if dc.dependency == 0 {
		return true
	}
	if dc.dependency > done {
		return false
	}
	if c.lastRetired.Load() >= dc.dependency {
		return true
	}
	c.updateRetirement()
	return c.lastRetired.Load() >= dc.dependency
}

// workOnFifoBE runs back-end work of graphics draws in submission order.
// Each macrotile queue is claimed with a try-lock so tiles of one draw are
// processed in parallel and a tile of a later draw is never processed
// before the same tile of an earlier one.
func (c *Context) workOnFifoBE(w *worker) bool {
	progressed, pending := c.findFirstIncompleteDraw(w)
	if !pending {
		return progressed
	}

	enq := c.enqueued.Load()
	done := w.be.Load() - 1
	clear(w.locked)
	for i := w.be.Load(); i < enq; i++ {
		dc := c.slot(i)
		if dc.isCompute || !dc.doneFE.Load() {
			return progressed
		}
		if !c.dependencyMet(dc, done) {
			return progressed
		}

		for _, q := range dc.tiles.dirty {
			if _, ok := w.locked[q.id]; ok {
				continue
			}
			if !q.tryLock() {
				w.locked[q.id] = struct{}{}
				continue
			}
			c.processTile(dc, w, q)
			dc.tiles.markComplete(q)
			progressed = true

			if w.be.Load() == i && dc.tiles.complete() {
				w.be.Store(i + 1)
				done = i
				clear(w.locked)
				break
			}
		}
	}
	return progressed
}

// processTile runs every work item queued on one macrotile.
func (c *Context) processTile(dc *DrawContext, w *worker, q *tileQueue) {
	ds := dc.state
	switch dc.work.kind {
	case workDraw:
		rtai := ^uint32(0)
		t := (*beTarget)(dc)
		for i := range q.work {
			item := &q.work[i]
			if r := item.tri.Flags.RenderTargetArrayIndex; r != rtai {
				rtai = r
				c.hotTiles.Initialize(q.id, ds.attachments, ds.api.Rast.SampleCount, rtai, &ds.api.Surfaces)
			}
			item.rasterize(&ds.setup, t, w.id, q.id, item.tri)
		}
	case workClear:
		d := &dc.work.clear
		c.hotTiles.Clear(q.id, d.mask, ds.api.Rast.SampleCount, 0, d.value)
	case workStoreTiles:
		d := &dc.work.store
		c.hotTiles.Store(q.id, MaskOf(d.attachment), 0, d.post, &ds.api.Surfaces)
	case workInvalidateTiles:
		c.hotTiles.Invalidate(q.id, dc.work.invalidate.mask, 0)
	case workSync:
		d := &dc.work.sync
		if d.fn != nil {
			d.fn(d.userData...)
		}
	case workQueryStats:
		c.collectStats(dc.work.stats.dst)
	}
}

// workOnCompute runs thread groups of the dispatch at the worker's back-end
// cursor.
func (c *Context) workOnCompute(w *worker) bool {
	progressed, pending := c.findFirstIncompleteDraw(w)
	if !pending {
		return progressed
	}
	cur := w.be.Load()
	dc := c.slot(cur)
	if !dc.isCompute || !c.dependencyMet(dc, cur-1) {
		return progressed
	}

	q := dc.dispatch
	if q.queued() == 0 {
		return progressed
	}
	last := false
	for {
		group, ok := q.getWork()
		if !ok {
			break
		}
		c.runThreadGroup(dc, w, group)
		last = q.finishWork()
		progressed = true
	}
	if last {
		dc.doneCompute.Store(true)
	}
	return progressed
}

func (c *Context) runThreadGroup(dc *DrawContext, w *worker, group uint32) {
	api := &dc.state.api
	d := &dc.work.dispatch
	cc := &w.compute
	cc.WorkerID = w.id
	cc.GroupID = [3]uint32{group % d.groupsX, group / d.groupsX % d.groupsY, group / (d.groupsX * d.groupsY)}
	cc.ThreadsInGroup = api.ThreadsInGroup
	cc.Private = dc.state.private
	if api.CsFunc != nil {
		api.CsFunc(cc)
	}
	if api.EnableStats {
		w.stats.csInvocations.Add(uint64(api.ThreadsInGroup))
	}
}

// beTarget adapts a draw context to the rasterizer.
type beTarget DrawContext

func (t *beTarget) HotTiles(workerID, macroTile, rtai uint32, bufs *raster.RenderBuffers) {
	dc := (*DrawContext)(t)
	ds := dc.state
	hot := dc.ctx.hotTiles
	n := ds.api.Rast.SampleCount
	*bufs = raster.RenderBuffers{}
	for rt := range MaxRenderTargets {
		att := AttachmentColor0 + Attachment(rt)
		if ds.attachments.Has(att) {
			bufs.Color[rt] = hot.HotTile(macroTile, att, true, n, rtai).Buffer
		}
	}
	if ds.attachments.Has(AttachmentDepth) {
		bufs.Depth = hot.HotTile(macroTile, AttachmentDepth, true, n, rtai).Buffer
	}
	if ds.attachments.Has(AttachmentStencil) {
		bufs.Stencil = hot.HotTile(macroTile, AttachmentStencil, true, n, rtai).Buffer
	}
}

func (t *beTarget) Backend(workerID, x, y uint32, tri *raster.TriangleDesc, bufs *raster.RenderBuffers) {
	dc := (*DrawContext)(t)
	dc.state.backend(dc, workerID, x, y, tri, bufs)
}

func (t *beTarget) Scratch(workerID uint32) *raster.Scratch {
	return &t.ctx.workers[workerID].scratch
}
