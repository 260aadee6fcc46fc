package swrast

import (
	"sync/atomic"

	"github.com/gogpu/swrast/internal/raster"
)

// rasterFunc rasterizes one binned primitive inside a macrotile.
type rasterFunc func(s *raster.Setup, t raster.Target, workerID, macroTile uint32, work *raster.TriangleWorkDesc)

// beWork is one unit of back-end work queued on a macrotile.
type beWork struct {
	rasterize rasterFunc
	tri       *raster.TriangleWorkDesc
}

// tileQueue is the back-end work of one macrotile of one draw. The worker
// that wins tryLock runs the whole queue; the lock stays taken until the
// queue is reused by a later draw.
type tileQueue struct {
	id   uint32
	lock atomic.Bool
	work []beWork
}

func (q *tileQueue) tryLock() bool { return q.lock.CompareAndSwap(false, true) }

// macroTileMgr collects per-macrotile work for one draw. The front end
// enqueues while it owns the draw; back-end workers only read the queues
// after doneFE is published.
type macroTileMgr struct {
	tiles    map[uint32]*tileQueue
	dirty    []*tileQueue
	produced int64
	consumed atomic.Int64
}

func newMacroTileMgr() *macroTileMgr {
	return &macroTileMgr{tiles: make(map[uint32]*tileQueue)}
}

// reset empties the queues for a new draw, keeping their storage.
func (m *macroTileMgr) reset() {
	for _, q := range m.dirty {
		clear(q.work)
		q.work = q.work[:0]
	}
	clear(m.dirty)
	m.dirty = m.dirty[:0]
	m.produced = 0
	m.consumed.Store(0)
}

// enqueue adds work to macrotile id.
func (m *macroTileMgr) enqueue(id uint32, w beWork) {
	q := m.tiles[id]
	if q == nil {
		q = &tileQueue{id: id}
		m.tiles[id] = q
	}
	if len(q.work) == 0 {
		q.lock.Store(false)
		m.dirty = append(m.dirty, q)
	}
	q.work = append(q.work, w)
	m.produced++
}

// markComplete records that every item of q has run.
func (m *macroTileMgr) markComplete(q *tileQueue) {
	m.consumed.Add(int64(len(q.work)))
}

// complete reports whether all enqueued work has run. Only meaningful once
// the front end is done.
func (m *macroTileMgr) complete() bool {
	return m.consumed.Load() == m.produced
}

// dispatchQueue hands out the thread groups of a dispatch.
type dispatchQueue struct {
	total    uint32
	next     atomic.Uint32
	finished atomic.Uint32
}

func (q *dispatchQueue) reset(total uint32) {
	q.total = total
	q.next.Store(0)
	q.finished.Store(0)
}

// queued returns the number of groups not yet handed out.
func (q *dispatchQueue) queued() uint32 {
	n := q.next.Load()
	if n >= q.total {
		return 0
	}
	return q.total - n
}

// getWork claims the next thread group.
func (q *dispatchQueue) getWork() (uint32, bool) {
	if q.next.Load() >= q.total {
		return 0, false
	}
	id := q.next.Add(1) - 1
	return id, id < q.total
}

// finishWork records a finished group and reports whether it was the last.
func (q *dispatchQueue) finishWork() bool {
	return q.finished.Add(1) == q.total
}

func (q *dispatchQueue) complete() bool {
	return q.finished.Load() >= q.total
}
