package swrast

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swrast/internal/hottile"
)

// Dispatch submits a compute dispatch of x*y*z thread groups.
func (c *Context) Dispatch(x, y, z uint32) {
	dc := c.acquireDraw(false)
	dc.isCompute = true
	dc.work = feWork{kind: workDispatch, dispatch: dispatchDesc{groupsX: x, groupsY: y, groupsZ: z}}
	total := x * y * z
	dc.dispatch.reset(total)
	if total == 0 {
		dc.doneCompute.Store(true)
	}
	dc.inUse.Store(true)
	c.queueDispatch(dc)
}

// ClearRenderTarget clears the attachments in mask inside the scissor
// rectangle, or viewport 0 when scissoring is off. Clears are recorded per
// macrotile and materialized when a tile is next used or stored.
func (c *Context) ClearRenderTarget(mask AttachmentMask, color gputypes.Color, depth float32, stencil uint8) {
	dc := c.acquireDraw(false)
	c.setupMacroTileScissors(dc)
	dc.work = feWork{
		kind:  workClear,
		fn:    processTiles,
		clear: clearDesc{mask: mask, value: ClearValue{Color: color, Depth: depth, Stencil: stencil}},
	}
	dc.inUse.Store(true)
	c.queueDraw(dc)
}

// StoreTiles writes the hot tiles of an attachment back to its surface and
// leaves them in state post, TileResolved or TileInvalid.
func (c *Context) StoreTiles(att Attachment, post TileState) {
	if att >= hottile.NumAttachments {
		panic(fmt.Sprintf("swrast: invalid attachment %v", att))
	}
	if post != TileResolved && post != TileInvalid {
		panic(fmt.Sprintf("swrast: invalid post-store state %v", post))
	}
	dc := c.acquireDraw(false)
	c.setupMacroTileScissors(dc)
	dc.work = feWork{kind: workStoreTiles, fn: processTiles, store: storeDesc{attachment: att, post: post}}
	dc.inUse.Store(true)
	c.queueDraw(dc)
}

// InvalidateTiles discards the hot tile contents of the attachments in mask.
func (c *Context) InvalidateTiles(mask AttachmentMask) {
	dc := c.acquireDraw(false)
	c.setupMacroTileScissors(dc)
	dc.work = feWork{kind: workInvalidateTiles, fn: processTiles, invalidate: invalidateDesc{mask: mask}}
	dc.inUse.Store(true)
	c.queueDraw(dc)
}

// Sync calls fn on a worker once every previously submitted draw has
// retired. Sync does not block.
func (c *Context) Sync(fn SyncFunc, userData ...uint64) {
	dc := c.acquireDraw(false)
	dc.work = feWork{kind: workSync, fn: processSingleTile, sync: syncDesc{fn: fn, userData: slices.Clone(userData)}}
	dc.inUse.Store(true)
	dc.dependency = dc.drawID - 1
	c.queueDraw(dc)
}

// GetStats fills dst with the statistics of every draw submitted before it,
// once they have retired. Call WaitForIdle before reading dst.
func (c *Context) GetStats(dst *Stats) {
	dc := c.acquireDraw(false)
	dc.work = feWork{kind: workQueryStats, fn: processSingleTile, stats: statsDesc{dst: dst}}
	dc.inUse.Store(true)
	dc.dependency = dc.drawID - 1
	c.queueDraw(dc)
}

// EnableStats turns front-end and back-end statistics on or off for
// subsequent draws.
func (c *Context) EnableStats(enable bool) {
	c.apiState().EnableStats = enable
}

// AllocDrawContextMemory allocates memory that lives as long as the state of
// the open draw context.
func (c *Context) AllocDrawContextMemory(size, align int) []byte {
	return c.acquireDraw(false).state.arena.Alloc(size, align)
}

// PrivateContextState returns the driver's private state of the open draw
// context, allocating it on first use. It is nil when the context was
// created without WithPrivateStateSize. The contents are copied into every
// following draw.
func (c *Context) PrivateContextState() []byte {
	ds := c.acquireDraw(false).state
	if ds.private == nil && c.opts.privateStateSize > 0 {
		ds.private = ds.arena.Alloc(c.opts.privateStateSize, privateStateAlign)
	}
	return ds.private
}
