package swrast

import "fmt"

// stillDrawing reports whether dc has work outstanding. A draw is finished
// once its front end (or, for a dispatch, its last thread group) is done and
// every worker has moved both cursors past it, so no worker still reads the
// slot when it is reused. Callers hold retireMu.
func (c *Context) stillDrawing(dc *DrawContext) bool {
	done := dc.doneFE.Load()
	if dc.isCompute {
		done = dc.doneCompute.Load()
	}
	if done {
		for i := range c.workers {
			w := &c.workers[i]
			if w.fe.Load() <= dc.drawID || w.be.Load() <= dc.drawID {
				return true
			}
		}
		dc.inUse.Store(false)
	}
	return dc.inUse.Load()
}

// updateRetirement advances lastRetired over every finished draw in
// submission order.
func (c *Context) updateRetirement() {
	c.retireMu.Lock()
	defer c.retireMu.Unlock()

	head := c.lastRetired.Load() + 1
	tail := c.enqueued.Load()
	if tail > head && tail-head > uint64(len(c.dcRing)) {
		panic(fmt.Sprintf("swrast: %d draws outstanding in a ring of %d", tail-head, len(c.dcRing)))
	}
	for ; head < tail; head++ {
		dc := c.slot(head)
		if c.stillDrawing(dc) {
			break
		}
		c.lastRetired.Store(dc.drawID)
	}
}

// waitForDependencies blocks until draw id has retired.
func (c *Context) waitForDependencies(id uint64) {
	if c.lastRetired.Load() >= id {
		return
	}
	if c.singleThreaded() {
		for {
			c.updateRetirement()
			if c.lastRetired.Load() >= id {
				return
			}
			c.pump()
		}
	}
	c.pool.WaitProgress(func() bool {
		c.pool.WakeAll()
		c.updateRetirement()
		return c.lastRetired.Load() >= id
	})
}

// pump runs one worker pass on the API goroutine. Single-threaded contexts
// use it to drain work that could not finish when it was submitted.
func (c *Context) pump() {
	w := &c.workers[0]
	c.workOnFifoFE(w)
	c.workOnFifoBE(w)
	c.workOnCompute(w)
}

// WaitForIdle blocks until every submitted draw has retired.
func (c *Context) WaitForIdle() {
	if c.prev == nil {
		return
	}
	c.waitForDependencies(c.prev.drawID)
}
