package swrast

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/swrast/internal/arena"
	"github.com/gogpu/swrast/internal/raster"
)

// primFunc turns one assembled primitive into binned back-end work.
type primFunc func(fe *feScratch, verts []*Vertex, primID uint32)

// feScratch is a worker's front-end state for the draw it is processing.
type feScratch struct {
	c   *Context
	dc  *DrawContext
	w   *worker
	api *APIState

	verts [3]Vertex
	prim  [3]*Vertex
	fetch FetchContext
	vc    VertexContext
	so    StreamOutContext
}

func (fe *feScratch) begin(c *Context, dc *DrawContext, w *worker) {
	fe.c, fe.dc, fe.w = c, dc, w
	fe.api = &dc.state.api
}

// processDraw is the front end of a draw: fetch, vertex shading, primitive
// assembly, stream-out and binning.
func processDraw(c *Context, dc *DrawContext, w *worker) {
	api := &dc.state.api
	d := &dc.work.draw
	topo := api.Topology

	if api.GsState.Enable || api.TsState.Enable {
		c.log.Debug("swrast: draw skipped, geometry and tessellation stages are not executed",
			"draw", dc.drawID)
		return
	}
	if topo.IsPatchList() {
		c.log.Debug("swrast: patch list without tessellation dropped", "draw", dc.drawID, "topology", topo)
		return
	}
	vpp := topo.VertsPerPrim()
	if vpp == 0 {
		c.log.Debug("swrast: unknown topology", "draw", dc.drawID, "topology", topo)
		return
	}

	fe := &w.fes
	fe.begin(c, dc, w)
	st := &w.stats
	for inst := range d.numInstances {
		for v := range d.numVerts {
			fe.shade(d, inst, v)
			if k, ok := fe.assemble(topo, v); ok {
				fe.emit(fe.prim[:vpp], d.startPrimID+k)
			}
		}
		if api.EnableStats {
			st.iaVertices.Add(uint64(d.numVerts))
			st.vsInvocations.Add(uint64(d.numVerts))
		}
	}
}

// vertexID returns the id of the v-th vertex of the draw.
func (fe *feScratch) vertexID(d *drawDesc, v uint32) uint32 {
	if !d.indexed {
		return d.startVertex + v
	}
	var idx uint32
	switch fe.api.IndexBuffer.Format {
	case gputypes.IndexFormatUint16:
		idx = uint32(binary.LittleEndian.Uint16(d.indices[v*2:]))
	default:
		idx = binary.LittleEndian.Uint32(d.indices[v*4:])
	}
	return uint32(int32(idx) + d.baseVertex)
}

// shade fetches and shades vertex v of instance inst into its assembly slot.
func (fe *feScratch) shade(d *drawDesc, inst, v uint32) {
	api := fe.api
	vert := &fe.verts[v%3]
	*vert = Vertex{}
	id := fe.vertexID(d, v)
	if api.FetchFunc != nil {
		fe.fetch = FetchContext{
			Buffers:       &api.VertexBuffers,
			VertexID:      id,
			InstanceID:    inst,
			StartInstance: d.startInstance,
		}
		api.FetchFunc(&fe.fetch, vert)
	}
	if api.VertexFunc != nil {
		fe.vc = VertexContext{WorkerID: fe.w.id, VertexID: id, InstanceID: inst, Private: fe.dc.state.private}
		api.VertexFunc(&fe.vc, vert)
	}
}

// assemble reports whether vertex v completes a primitive and if so points
// fe.prim at its vertices. Odd triangles of a strip swap their first two
// vertices to keep a consistent winding.
func (fe *feScratch) assemble(topo Topology, v uint32) (prim uint32, ok bool) {
	slot := func(i uint32) *Vertex { return &fe.verts[i%3] }
	switch topo {
	case PointList:
		fe.prim[0] = slot(v)
		return v, true
	case LineList:
		if v%2 == 0 {
			return 0, false
		}
		fe.prim[0], fe.prim[1] = slot(v-1), slot(v)
		return v / 2, true
	case LineStrip:
		if v == 0 {
			return 0, false
		}
		fe.prim[0], fe.prim[1] = slot(v-1), slot(v)
		return v - 1, true
	case TriangleList:
		if v%3 != 2 {
			return 0, false
		}
		fe.prim[0], fe.prim[1], fe.prim[2] = slot(v-2), slot(v-1), slot(v)
		return v / 3, true
	case TriangleStrip:
		if v < 2 {
			return 0, false
		}
		k := v - 2
		if k%2 == 0 {
			fe.prim[0], fe.prim[1] = slot(v-2), slot(v-1)
		} else {
			fe.prim[0], fe.prim[1] = slot(v-1), slot(v-2)
		}
		fe.prim[2] = slot(v)
		return k, true
	}
	return 0, false
}

// emit runs stream-out and the draw's primitive processing for one
// primitive.
func (fe *feScratch) emit(verts []*Vertex, primID uint32) {
	api := fe.api
	st := &fe.w.stats
	if api.EnableStats {
		st.iaPrimitives.Add(1)
	}
	if api.SoState.Enable {
		for s, f := range api.SoFuncs {
			if f == nil {
				continue
			}
			fe.so = StreamOutContext{Verts: verts, PrimitiveID: primID, Stream: uint32(s), Buffers: &api.SoBuffers}
			f(&fe.so)
			if api.EnableStats {
				st.soPrimitives.Add(1)
			}
		}
	}
	if p := fe.dc.state.processPrim; p != nil {
		p(fe, verts, primID)
	}
}

// project divides by w and applies the viewport transform. It reports false
// for primitives with a vertex at or behind the eye or outside the
// guardband; those are dropped rather than clipped.
func (fe *feScratch) project(verts []*Vertex, out *[3][4]float32) bool {
	api := fe.api
	vp := uint32(0)
	if api.Backend.ReadViewportArrayIndex {
		vp = min(verts[0].ViewportIndex, MaxViewports-1)
	}
	m := &api.ViewportMatrix[vp]
	gb := &api.Guardband
	for i, v := range verts {
		w := v.Position[3]
		if !(w > 0) {
			return false
		}
		rcp := 1 / w
		x, y, z := v.Position[0]*rcp, v.Position[1]*rcp, v.Position[2]*rcp
		if !api.Frontend.VpTransformDisable {
			if gb.Right > 0 && (x < -gb.Left || x > gb.Right || y < -gb.Top || y > gb.Bottom) {
				return false
			}
			x, y, z = x*m.M00+m.M30, y*m.M11+m.M31, z*m.M22+m.M32
		} else if abs(x) > guardbandWidth || abs(y) > guardbandHeight {
			return false
		}
		out[i] = [4]float32{x, y, z, rcp}
	}
	return true
}

// cull reports the facing of a screen-space triangle and whether it
// survives culling. Zero-area triangles never survive.
func (fe *feScratch) cull(pos *[3][4]float32) (front, keep bool) {
	api := fe.api
	area := (pos[1][0]-pos[0][0])*(pos[2][1]-pos[0][1]) - (pos[2][0]-pos[0][0])*(pos[1][1]-pos[0][1])
	if area == 0 || area != area {
		return false, false
	}
	// Screen space is y-down, so counter-clockwise has negative area.
	front = (area < 0) == (api.Rast.FrontFace == gputypes.FrontFaceCCW)
	if api.ForceFront {
		front = true
	}
	switch api.Rast.CullMode {
	case gputypes.CullModeFront:
		return front, !front
	case gputypes.CullModeBack:
		return front, front
	}
	return front, true
}

// newWork allocates a work descriptor from the draw arena. src maps each of
// the three descriptor vertices to an input vertex.
func (fe *feScratch) newWork(verts []*Vertex, pos *[3][4]float32, src [3]int, front bool, primID uint32) *raster.TriangleWorkDesc {
	api := fe.api
	ds := fe.dc.state
	a := fe.dc.arena

	work := arena.NewValue[raster.TriangleWorkDesc](a)
	for v, s := range src {
		work.Tri[raster.TriX+v] = pos[s][0]
		work.Tri[raster.TriY+v] = pos[s][1]
		work.Tri[raster.TriZ+v] = pos[s][2]
		work.Tri[raster.TriRcpW+v] = pos[s][3]
	}

	work.Flags.FrontFacing = front
	work.Flags.PrimitiveID = primID
	if api.Backend.ReadRenderTargetArrayIndex {
		work.Flags.RenderTargetArrayIndex = verts[0].RenderTargetArrayIndex
	}
	if api.Backend.ReadViewportArrayIndex {
		work.Flags.ViewportIndex = min(verts[0].ViewportIndex, MaxViewports-1)
	}

	if n := min(api.LinkageCount, MaxAttributes); n > 0 {
		attribs := arena.MakeSlice[float32](a, int(n)*12)
		for k := range n {
			slot := api.LinkageMap[k]
			if ds.feAttribMask&(1<<slot) == 0 {
				continue
			}
			constant := api.Backend.ConstantInterpolationMask&(1<<k) != 0
			for v, s := range src {
				if constant {
					s = 0
				}
				copy(attribs[int(k)*12+v*4:], verts[s].Attribs[slot][:])
			}
		}
		work.Attribs = attribs
		work.NumAttribs = n
	}
	return work
}

// bin queues work on every macrotile its bounds overlap inside the scissor.
func (fe *feScratch) bin(work *raster.TriangleWorkDesc, bounds fixed.Rectangle26_6, fn rasterFunc) {
	r := bounds.Intersect(fe.dc.state.setup.Scissor)
	if r.Empty() {
		return
	}
	x0, y0, x1, y1 := raster.MacroTileRange(r)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			fe.dc.tiles.enqueue(raster.MacroTileID(x, y), beWork{rasterize: fn, tri: work})
		}
	}
}

// userClip builds the clip distance coefficients of a primitive. Triangles
// get (d0-d2, d1-d2, d2) per distance, lines the raw endpoint distances
// and points the constant form (0, 0, d0).
func (fe *feScratch) userClip(verts []*Vertex, lines bool) []float32 {
	mask := fe.api.Rast.ClipDistanceMask
	n := bits.OnesCount8(mask)
	if n == 0 {
		return nil
	}
	per := 3
	if lines {
		per = 2
	}
	out := arena.MakeSlice[float32](fe.dc.arena, n*per)
	k := 0
	for d := range MaxClipDistances {
		if mask&(1<<d) == 0 {
			continue
		}
		o := out[k*per:]
		switch {
		case lines:
			o[0], o[1] = verts[0].ClipDistance[d], verts[1].ClipDistance[d]
		case len(verts) == 1:
			o[0], o[1], o[2] = 0, 0, verts[0].ClipDistance[d]
		default:
			d0, d1, d2 := verts[0].ClipDistance[d], verts[1].ClipDistance[d], verts[2].ClipDistance[d]
			o[0], o[1], o[2] = d0-d2, d1-d2, d2
		}
		k++
	}
	return out
}

func binTriangles(fe *feScratch, verts []*Vertex, primID uint32) {
	var pos [3][4]float32
	if !fe.project(verts, &pos) {
		return
	}
	st := &fe.w.stats
	stats := fe.api.EnableStats
	if stats {
		st.cInvocations.Add(1)
	}
	front, keep := fe.cull(&pos)
	if !keep {
		return
	}
	if stats {
		st.cPrimitives.Add(1)
	}
	work := fe.newWork(verts, &pos, [3]int{0, 1, 2}, front, primID)
	work.UserClip = fe.userClip(verts, false)
	fe.bin(work, raster.PrimitiveBounds(work, 3, 0), raster.RasterizeTriangle)
}

func binLines(fe *feScratch, verts []*Vertex, primID uint32) {
	var pos [3][4]float32
	if !fe.project(verts, &pos) {
		return
	}
	st := &fe.w.stats
	if fe.api.EnableStats {
		st.cInvocations.Add(1)
		st.cPrimitives.Add(1)
	}
	work := fe.newWork(verts, &pos, [3]int{0, 1, 1}, true, primID)
	work.Flags.YMajor = abs(pos[1][1]-pos[0][1]) > abs(pos[1][0]-pos[0][0])
	work.UserClip = fe.userClip(verts, true)
	fe.bin(work, raster.PrimitiveBounds(work, 2, fe.api.Rast.LineWidth/2), raster.RasterizeLine)
}

// binPoints bins one-pixel points. The position is snapped to the pixel
// holding it.
func binPoints(fe *feScratch, verts []*Vertex, primID uint32) {
	var pos [3][4]float32
	if !fe.project(verts, &pos) {
		return
	}
	st := &fe.w.stats
	if fe.api.EnableStats {
		st.cInvocations.Add(1)
		st.cPrimitives.Add(1)
	}
	pos[0][0] = float32(math.Floor(float64(pos[0][0])))
	pos[0][1] = float32(math.Floor(float64(pos[0][1])))
	work := fe.newWork(verts, &pos, [3]int{0, 0, 0}, true, primID)
	work.UserClip = fe.userClip(verts, false)
	fe.bin(work, raster.PrimitiveBounds(work, 1, 0), raster.RasterizePoint)
}

// binPointSprites bins wide or multisampled points as screen-aligned quads
// made of two triangles.
func binPointSprites(fe *feScratch, verts []*Vertex, primID uint32) {
	api := fe.api
	var pos [3][4]float32
	if !fe.project(verts, &pos) {
		return
	}
	st := &fe.w.stats
	if api.EnableStats {
		st.cInvocations.Add(1)
		st.cPrimitives.Add(1)
	}
	size := api.Rast.PointSize
	if api.Rast.PointParam {
		size = verts[0].PointSize
	}
	if !(size > 0) {
		return
	}
	h := size / 2
	cx, cy := pos[0][0], pos[0][1]
	clip := fe.userClip(verts, false)
	quads := [2][3][2]float32{
		{{cx - h, cy - h}, {cx + h, cy - h}, {cx - h, cy + h}},
		{{cx + h, cy - h}, {cx + h, cy + h}, {cx - h, cy + h}},
	}
	for _, q := range quads {
		var p [3][4]float32
		for i := range q {
			p[i] = [4]float32{q[i][0], q[i][1], pos[0][2], pos[0][3]}
		}
		work := fe.newWork(verts, &p, [3]int{0, 0, 0}, true, primID)
		for i := range q {
			work.Tri[raster.TriX+i] = q[i][0]
			work.Tri[raster.TriY+i] = q[i][1]
		}
		work.UserClip = clip
		fe.bin(work, raster.PrimitiveBounds(work, 3, 0), raster.RasterizeTriangle)
	}
}

// processTiles queues one work item on every macrotile of the draw's
// scissor. Clears, stores and invalidates use it.
func processTiles(c *Context, dc *DrawContext, w *worker) {
	r := dc.state.setup.Scissor
	if r.Empty() {
		return
	}
	x0, y0, x1, y1 := raster.MacroTileRange(r)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dc.tiles.enqueue(raster.MacroTileID(x, y), beWork{})
		}
	}
}

// processSingleTile queues one work item on macrotile 0. Syncs and stats
// queries use it.
func processSingleTile(c *Context, dc *DrawContext, w *worker) {
	dc.tiles.enqueue(raster.MacroTileID(0, 0), beWork{})
}

func abs(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) &^ (1 << 31))
}
