package swrast

import (
	"sync/atomic"

	"github.com/gogpu/swrast/internal/arena"
	"github.com/gogpu/swrast/internal/raster"
)

// workKind is the operation a draw context carries.
type workKind uint8

const (
	workDraw workKind = iota
	workDispatch
	workSync
	workClear
	workStoreTiles
	workInvalidateTiles
	workQueryStats
)

func (k workKind) String() string {
	switch k {
	case workDraw:
		return "draw"
	case workDispatch:
		return "dispatch"
	case workSync:
		return "sync"
	case workClear:
		return "clear"
	case workStoreTiles:
		return "store"
	case workInvalidateTiles:
		return "invalidate"
	case workQueryStats:
		return "stats"
	}
	return "unknown"
}

// drawDesc is the vertex range of one (sub-)draw.
type drawDesc struct {
	indexed       bool
	numVerts      uint32
	startVertex   uint32
	indices       []byte
	baseVertex    int32
	numInstances  uint32
	startInstance uint32
	startPrimID   uint32
}

type dispatchDesc struct {
	groupsX, groupsY, groupsZ uint32
}

// SyncFunc is called once all work submitted before Sync has retired.
type SyncFunc func(userData ...uint64)

type syncDesc struct {
	fn       SyncFunc
	userData []uint64
}

type clearDesc struct {
	mask  AttachmentMask
	value ClearValue
}

type storeDesc struct {
	attachment Attachment
	post       TileState
}

type invalidateDesc struct {
	mask AttachmentMask
}

type statsDesc struct {
	dst *Stats
}

// feWork is the front-end work of a draw context. Only the member matching
// kind is meaningful.
type feWork struct {
	kind       workKind
	fn         func(c *Context, dc *DrawContext, w *worker)
	draw       drawDesc
	dispatch   dispatchDesc
	sync       syncDesc
	clear      clearDesc
	store      storeDesc
	invalidate invalidateDesc
	stats      statsDesc
}

// stateOwnership records whether a draw context owns its state slot or
// shares its predecessor's.
type stateOwnership uint8

const (
	stateOwned stateOwnership = iota
	stateAliased
)

// DrawState is the pipeline configuration of a draw plus the data derived
// from it once per non-split draw.
type DrawState struct {
	api APIState

	backend      BackendFunc
	processPrim  primFunc
	feAttribMask uint32
	attachments  AttachmentMask
	setup        raster.Setup
	samplePosX   [MaxSamples]float32
	samplePosY   [MaxSamples]float32
	sampleMasked [MaxSamples]bool

	private []byte
	arena   *arena.Arena
}

// API returns the pipeline configuration the draw was recorded with.
func (s *DrawState) API() *APIState { return &s.api }

// SamplePosition returns sample i's offset inside the pixel.
func (s *DrawState) SamplePosition(i uint32) (x, y float32) {
	return s.samplePosX[i], s.samplePosY[i]
}

// DrawContext is one in-flight draw or dispatch.
//
// Fields other than the atomics are written by the API goroutine before the
// draw is published and are read-only afterwards.
type DrawContext struct {
	ctx *Context

	drawID     uint64
	dependency uint64
	isCompute  bool

	doneFE      atomic.Bool
	doneCompute atomic.Bool
	inUse       atomic.Bool
	feLock      atomic.Bool

	arena     *arena.Arena
	work      feWork
	state     *DrawState
	ownership stateOwnership

	tiles    *macroTileMgr
	dispatch *dispatchQueue
}

// ID returns the draw id.
func (dc *DrawContext) ID() uint64 { return dc.drawID }

// State returns the draw's pipeline state.
func (dc *DrawContext) State() *DrawState { return dc.state }

// Private returns the draw's private state, or nil.
func (dc *DrawContext) Private() []byte { return dc.state.private }

func (dc *DrawContext) init(c *Context) {
	dc.ctx = c
	dc.arena = arena.New()
	dc.tiles = newMacroTileMgr()
	dc.dispatch = new(dispatchQueue)
}
