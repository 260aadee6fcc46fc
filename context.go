package swrast

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/swrast/internal/arena"
	"github.com/gogpu/swrast/internal/hottile"
	"github.com/gogpu/swrast/internal/parallel"
	"github.com/gogpu/swrast/internal/raster"
)

// Context owns the draw and state rings, the worker pool and the hot tiles.
//
// All methods except LastRetired, DrawsEnqueued and Workers must be called
// from a single goroutine, the API goroutine.
type Context struct {
	opts options
	log  *slog.Logger

	dcRing []DrawContext
	dsRing []DrawState

	// Owned by the API goroutine.
	cur, prev  *DrawContext
	nextDrawID uint64
	curStateID uint64
	closed     bool

	// enqueued is one past the id of the newest published draw.
	enqueued    atomic.Uint64
	lastRetired atomic.Uint64
	retireMu    sync.Mutex

	workers  []worker
	pool     *parallel.WorkerPool
	hotTiles *hottile.Manager
	selector BackendSelector
}

// worker is the per-worker state. The cursors are read by the retirement
// tracker; everything else is private to the worker.
type worker struct {
	id uint32

	// fe and be are the first draw ids this worker has not yet passed in
	// the front end and back end.
	fe atomic.Uint64
	be atomic.Uint64

	scratch raster.Scratch
	stats   statsCounters
	locked  map[uint32]struct{}
	fes     feScratch
	pixel   PixelContext
	compute ComputeContext
}

// NewContext creates a context and starts its workers.
func NewContext(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("swrast: new context: %w", err)
	}

	log := o.logger
	if log == nil {
		log = Logger()
	}

	numWorkers := 1
	if !o.singleThreaded {
		numWorkers = o.workers
		if numWorkers <= 0 {
			numWorkers = runtime.GOMAXPROCS(0)
		}
		if numWorkers > maxWorkers {
			log.Warn("swrast: worker count clamped", "requested", numWorkers, "max", maxWorkers)
			numWorkers = maxWorkers
		}
	}

	c := &Context{
		opts:       o,
		log:        log,
		dcRing:     make([]DrawContext, o.maxDrawsInFlight),
		dsRing:     make([]DrawState, o.maxDrawsInFlight),
		nextDrawID: 1,
		workers:    make([]worker, numWorkers),
		hotTiles:   hottile.NewManager(o.callbacks, log),
		selector:   o.selector,
	}
	if c.selector == nil {
		c.selector = DefaultBackendSelector
	}
	for i := range c.dcRing {
		c.dcRing[i].init(c)
		c.dsRing[i].arena = arena.New()
	}
	for i := range c.workers {
		w := &c.workers[i]
		w.id = uint32(i)
		w.fe.Store(1)
		w.be.Store(1)
		w.locked = make(map[uint32]struct{})
	}
	c.enqueued.Store(1)

	// The first draw context carries the default state.
	c.acquireDraw(false).state.api = defaultAPIState()

	if !o.singleThreaded {
		c.pool = parallel.NewWorkerPool(numWorkers)
		c.pool.Start(c.workerLoop)
	}

	log.Info("swrast: context created",
		"workers", numWorkers,
		"singleThreaded", o.singleThreaded,
		"maxDrawsInFlight", o.maxDrawsInFlight,
		"driver", o.driver)
	return c, nil
}

// Close waits for all submitted work and stops the workers. Close is safe
// to call multiple times.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.WaitForIdle()
	c.closed = true
	if c.pool != nil {
		c.pool.Close()
	}
	c.log.Info("swrast: context closed",
		"draws", c.enqueued.Load()-1,
		"hotTiles", c.hotTiles.NumTiles(),
		"hotTileBytes", c.hotTiles.Bytes())
}

// LastRetired returns the id of the newest draw known to be retired.
func (c *Context) LastRetired() uint64 { return c.lastRetired.Load() }

// DrawsEnqueued returns the number of draws published to the workers.
func (c *Context) DrawsEnqueued() uint64 { return c.enqueued.Load() - 1 }

// Workers returns the number of workers, 1 in single-threaded mode.
func (c *Context) Workers() int { return len(c.workers) }

// HotTile returns the hot tile of an attachment of the macrotile at
// (macroX, macroY), or nil if it was never touched. The result is only
// stable while the context is idle.
func (c *Context) HotTile(att Attachment, macroX, macroY, rtai uint32) *HotTile {
	id := raster.MacroTileID(macroX, macroY)
	return c.hotTiles.HotTile(id, att, false, 0, rtai)
}

func (c *Context) slot(id uint64) *DrawContext {
	return &c.dcRing[id%uint64(len(c.dcRing))]
}

func (c *Context) singleThreaded() bool { return c.pool == nil }
