package swrast

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swrast/internal/arena"
)

// Draw submits a non-indexed draw of numVertices vertices.
func (c *Context) Draw(topology Topology, startVertex, numVertices uint32) {
	c.DrawInstanced(topology, numVertices, 1, startVertex, 0)
}

// DrawInstanced submits a non-indexed instanced draw. Large draws are split
// into several draw contexts that share one state.
func (c *Context) DrawInstanced(topology Topology, numVertsPerInstance, numInstances, startVertex, startInstance uint32) {
	c.drawSplit(topology, drawDesc{
		numVerts:      numVertsPerInstance,
		startVertex:   startVertex,
		numInstances:  numInstances,
		startInstance: startInstance,
	}, 0)
}

// DrawIndexed submits an indexed draw reading numIndices indices from the
// bound index buffer, starting at index indexOffset.
func (c *Context) DrawIndexed(topology Topology, numIndices, indexOffset uint32, baseVertex int32) {
	c.DrawIndexedInstanced(topology, numIndices, 1, indexOffset, baseVertex, 0)
}

// DrawIndexedInstanced submits an indexed instanced draw.
func (c *Context) DrawIndexedInstanced(topology Topology, numIndices, numInstances, indexOffset uint32, baseVertex int32, startInstance uint32) {
	ib := &c.apiState().IndexBuffer
	size := ib.Format.Size()
	if size == 0 {
		panic(fmt.Sprintf("swrast: indexed draw with index format %v", ib.Format))
	}
	first, last := uint64(indexOffset), uint64(indexOffset)+uint64(numIndices)
	start, end := first*uint64(size), last*uint64(size)
	if end > uint64(len(ib.Data)) {
		panic(fmt.Sprintf("swrast: indices %d..%d beyond index buffer of %d bytes", first, last, len(ib.Data)))
	}
	c.drawSplit(topology, drawDesc{
		indexed:       true,
		numVerts:      numIndices,
		indices:       ib.Data[start:end],
		baseVertex:    baseVertex,
		numInstances:  numInstances,
		startInstance: startInstance,
	}, size)
}

// drawSplit queues d as one or more draw contexts of at most
// maxVertsPerDraw vertices each. Every context after the first aliases the
// first one's state.
func (c *Context) drawSplit(topology Topology, d drawDesc, indexSize uint32) {
	dc := c.acquireDraw(false)
	api := &dc.state.api

	total := d.numVerts
	maxVerts := c.maxVertsPerDraw(dc, total, topology)
	primsPerDraw := topology.NumPrims(maxVerts)

	api.Topology = topology
	api.ForceFront = false
	oldCull := api.Rast.CullMode
	if topology == PointList {
		api.Rast.CullMode = gputypes.CullModeNone
		api.ForceFront = true
	}

	indices := d.indices
	remaining := total
	for draw := uint32(0); remaining > 0; draw++ {
		n := min(remaining, maxVerts)
		split := draw > 0
		dc = c.acquireDraw(split)
		c.initDraw(dc, split)

		sub := d
		sub.numVerts = n
		sub.startPrimID = draw * primsPerDraw
		if d.indexed {
			sub.indices = indices[:n*indexSize]
			indices = indices[n*indexSize:]
		} else {
			sub.startVertex = d.startVertex + draw*maxVerts
		}
		dc.work = feWork{kind: workDraw, fn: processDraw, draw: sub}
		c.queueDraw(dc)
		remaining -= n
	}

	// The next context inherits the draw's state; restore what point
	// lists overrode.
	c.apiState().Rast.CullMode = oldCull
}

// maxVertsPerDraw returns how many vertices one draw context may carry.
func (c *Context) maxVertsPerDraw(dc *DrawContext, total uint32, topology Topology) uint32 {
	api := &dc.state.api
	if api.SoState.Enable {
		return total
	}
	switch {
	case topology == PointList || topology == TriangleList:
		return arena.RoundDown(c.opts.maxPrimsPerDraw, topology.VertsPerPrim())
	case topology.IsPatchList() && api.TsState.Enable:
		return topology.ControlPoints() * c.opts.maxTessPrimsPerDraw
	}
	return total
}

// queueDraw publishes the open draw context to the workers.
func (c *Context) queueDraw(dc *DrawContext) { c.queue(dc, false) }

// queueDispatch publishes the open compute context to the workers.
func (c *Context) queueDispatch(dc *DrawContext) { c.queue(dc, true) }

func (c *Context) queue(dc *DrawContext, compute bool) {
	// Incrementing enqueued publishes every field written to dc so far.
	c.enqueued.Add(1)
	if c.singleThreaded() {
		w := &c.workers[0]
		if compute {
			c.workOnCompute(w)
		} else {
			c.workOnFifoFE(w)
			c.workOnFifoBE(w)
		}
	} else {
		c.pool.WakeAll()
	}
	c.prev = dc
	c.cur = nil
}
