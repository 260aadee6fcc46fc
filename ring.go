package swrast

// acquireDraw returns the open draw context, or opens the next one.
//
// Opening a context claims ring slot nextDrawID mod N, waiting for the draw
// that last used the slot to retire. A non-split context copies the previous
// context's state into the next state slot; a split context shares it.
func (c *Context) acquireDraw(split bool) *DrawContext {
	if c.cur != nil {
		if split {
			panic("swrast: split draw requested while a draw context is open")
		}
		return c.cur
	}
	if split && c.prev == nil {
		panic("swrast: split draw requested without a previous draw")
	}

	dc := c.slot(c.nextDrawID)
	c.waitForSlot(dc)
	c.cur = dc

	if split {
		dc.state = c.prev.state
		dc.ownership = stateAliased
	} else {
		ds := &c.dsRing[c.curStateID%uint64(len(c.dsRing))]
		if c.prev != nil {
			copyState(ds, c.prev.state)
		} else {
			ds.arena.Reset()
			ds.private = nil
		}
		c.curStateID++
		dc.state = ds
		dc.ownership = stateOwned
	}

	dc.dependency = 0
	dc.arena.Reset()
	dc.isCompute = false
	dc.inUse.Store(false)
	dc.doneCompute.Store(false)
	dc.doneFE.Store(false)
	dc.feLock.Store(false)
	dc.work = feWork{}
	dc.tiles.reset()
	dc.dispatch.reset(0)

	dc.drawID = c.nextDrawID
	c.nextDrawID++
	return dc
}

// copyState copies the API state of src into dst. Derived pipeline data is
// rebuilt by setupPipeline; private state is copied into dst's arena.
func copyState(dst, src *DrawState) {
	a := dst.arena
	a.Reset()
	*dst = DrawState{api: src.api, arena: a}
	if src.private != nil {
		dst.private = a.CopyBytes(src.private, privateStateAlign)
	}
}

// waitForSlot blocks until the draw that last used dc has retired. Waiting
// for retirement rather than only for the draw itself keeps the un-retired
// span within the ring.
func (c *Context) waitForSlot(dc *DrawContext) {
	old := dc.drawID
	if old == 0 {
		return
	}
	c.waitForDependencies(old)
}

// initDraw prepares a context for submission. Split draws keep the derived
// state of the draw they continue.
func (c *Context) initDraw(dc *DrawContext, split bool) {
	if !split {
		c.setupMacroTileScissors(dc)
		c.setupPipeline(dc)
	}
	dc.inUse.Store(true)
}
