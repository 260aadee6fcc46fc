// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"golang.org/x/image/math/fixed"
)

// RasterizeTriangle computes the coverage of one binned triangle inside
// macroTile and calls the backend once for every raster tile with at least
// one covered sample.
//
// The covered area is the triangle's bounding box intersected with the
// scissor rectangle and the macrotile. Each tile in that area is first tested
// at the corners of its sample bounding box: a tile outside any edge is
// skipped, a tile inside all three edges is fully covered, and everything
// else is resolved per sample and per 2x2 quad. Degenerate triangles and
// empty intersections produce no backend calls.
func RasterizeTriangle(s *Setup, t Target, workerID, macroTile uint32, work *TriangleWorkDesc) {
	scratch := t.Scratch(workerID)
	scratch.Counters.Primitives.Add(1)
	rasterizeTriangle(s, &s.Samples, t, scratch, workerID, macroTile, work)
}

// rasterizeTriangle evaluates coverage at the positions of samples. The hot
// tiles always hold s.Samples.Count planes; when samples has fewer positions
// the mask of sample 0 is copied to every plane.
func rasterizeTriangle(s *Setup, samples *SamplePattern, t Target, scratch *Scratch, workerID, macroTile uint32, work *TriangleWorkDesc) {
	var (
		vx, vy [3]fixed.Int26_6
		fx, fy [3]float32
	)
	for i := range 3 {
		vx[i] = ToFixed(work.Tri[TriX+i])
		vy[i] = ToFixed(work.Tri[TriY+i])
		fx[i] = FixedToFloat(vx[i])
		fy[i] = FixedToFloat(vy[i])
	}

	edges, det := setupEdges(vx, vy)
	if det == 0 {
		return
	}

	r := triangleBounds(vx, vy).Intersect(s.Scissor).Intersect(MacroTileRect(macroTile))
	if r.Empty() {
		return
	}

	var desc TriangleDesc
	setupDesc(&desc, s, samples, scratch, work, &edges, det, fx, fy)

	minSX, minSY, maxSX, maxSY := samples.Bounds()
	cornerX := [2]int64{int64(minSX), int64(maxSX) + (TileXDim-1)*FixedScale}
	cornerY := [2]int64{int64(minSY), int64(maxSY) + (TileYDim-1)*FixedScale}

	const tileShiftX = FixedShift + TileXShift
	const tileShiftY = FixedShift + TileYShift
	tx0, tx1 := int(r.Min.X)>>tileShiftX, int(r.Max.X-1)>>tileShiftX
	ty0, ty1 := int(r.Min.Y)>>tileShiftY, int(r.Max.Y-1)>>tileShiftY

	scissor := pixelBounds(s.Scissor)
	mx, my := MacroTileCoords(macroTile)
	steps := newBufferSteps(s.Samples.Count)
	lx0 := uint32(tx0) - mx*TilesPerMacroTileX

	var base, cur, view RenderBuffers
	t.HotTiles(workerID, macroTile, work.Flags.RenderTargetArrayIndex, &base)

	for ty := ty0; ty <= ty1; ty++ {
		steps.tileBuffers(&cur, &base, lx0, uint32(ty)-my*TilesPerMacroTileY)
		for tx := tx0; tx <= tx1; tx++ {
			px, py := tx*TileXDim, ty*TileYDim
			ox, oy := int64(px)*FixedScale, int64(py)*FixedScale

			covered := coverTile(&desc, &edges, samples, ox, oy, cornerX, cornerY, &scratch.Counters)
			if covered != 0 {
				for i := samples.Count; i < desc.NumSamples; i++ {
					desc.Coverage[i] = desc.Coverage[0]
				}
				if !scissor.containsTile(px, py) {
					covered = scissor.clip(&desc, px, py)
				}
			}
			if covered != 0 {
				steps.view(&view, &cur)
				t.Backend(workerID, uint32(px), uint32(py), &desc, &view)
				scratch.Counters.BackendCalls.Add(1)
			}
			if tx < tx1 {
				steps.stepX(&cur)
			}
		}
	}
}

// setupDesc fills the interpolation part of the backend descriptor.
func setupDesc(desc *TriangleDesc, s *Setup, samples *SamplePattern, scratch *Scratch, work *TriangleWorkDesc, edges *[3]edge, det int64, fx, fy [3]float32) {
	var a, b, c [3]float64
	for k := range edges {
		a[k] = float64(edges[k].a) / FixedScale
		b[k] = float64(edges[k].b) / FixedScale
		c[k] = -(a[k]*float64(fx[k]) + b[k]*float64(fy[k]))
	}
	desc.I = [3]float32{float32(a[1]), float32(b[1]), float32(c[1])}
	desc.J = [3]float32{float32(a[2]), float32(b[2]), float32(c[2])}
	desc.RecipDet = float32(FixedScale * FixedScale / float64(det))

	z := [3]float32{work.Tri[TriZ], work.Tri[TriZ+1], work.Tri[TriZ+2]}
	if s.Bias.Enabled() {
		z0, z1 := z[0]-z[2], z[1]-z[2]
		dzdx := (z0*desc.I[0] + z1*desc.J[0]) * desc.RecipDet
		dzdy := (z0*desc.I[1] + z1*desc.J[1]) * desc.RecipDet
		bias := computeDepthBias(&s.Bias, z, dzdx, dzdy)
		for i := range z {
			z[i] += bias
		}
	}
	desc.Z = [3]float32{z[0] - z[2], z[1] - z[2], z[2]}

	w := &work.Tri
	desc.OneOverW = [3]float32{w[TriRcpW] - w[TriRcpW+2], w[TriRcpW+1] - w[TriRcpW+2], w[TriRcpW+2]}

	desc.NumSamples = s.Samples.Count
	desc.Flags = work.Flags
	desc.NumAttribs = work.NumAttribs
	desc.Attribs = work.Attribs
	desc.ClipDistanceMask = s.ClipDistanceMask
	desc.UserClip = work.UserClip

	if n := int(work.NumAttribs) * 12; n > 0 {
		persp := scratch.perspAttribs[:n]
		for i := range persp {
			// i%12/4 is the vertex the component belongs to.
			persp[i] = work.Attribs[i] * w[TriRcpW+i%12/4]
		}
		desc.PerspAttribs = persp
	}
}

// coverTile computes the per-sample coverage of the tile at fixed-point origin
// (ox, oy) into desc and returns the union of all sample masks.
func coverTile(desc *TriangleDesc, edges *[3]edge, samples *SamplePattern, ox, oy int64, cornerX, cornerY [2]int64, c *Counters) CoverageMask {
	accept := true
	for k := range edges {
		inside := 0
		for _, y := range cornerY {
			for _, x := range cornerX {
				if edges[k].eval(ox+x, oy+y) >= 0 {
					inside++
				}
			}
		}
		if inside == 0 {
			c.TrivialRejects.Add(1)
			return 0
		}
		if inside != 4 {
			accept = false
		}
	}

	if accept {
		for i := range samples.Count {
			desc.Coverage[i] = FullCoverage
		}
		c.TrivialAccepts.Add(1)
		return FullCoverage
	}

	c.PartialTiles.Add(1)
	var union CoverageMask
	for i := range samples.Count {
		m := partialMask(edges, ox+int64(samples.X[i]), oy+int64(samples.Y[i]))
		desc.Coverage[i] = m
		union |= m
	}
	return union
}

// partialMask sweeps the tile in 2x2 quads for one sample position. (sx, sy)
// is the sample's fixed-point position in the tile's top-left pixel.
func partialMask(edges *[3]edge, sx, sy int64) CoverageMask {
	var rowE, dx, dy [3]int64
	for k := range edges {
		rowE[k] = edges[k].eval(sx, sy)
		dx[k] = edges[k].a * FixedScale
		dy[k] = edges[k].b * FixedScale
	}

	var mask CoverageMask
	bit := uint(0)
	for range TileYDim / 2 {
		e := rowE
		for range TileXDim / 2 {
			for p := range 4 {
				ox, oy := int64(p&1), int64(p>>1)
				if e[0]+ox*dx[0]+oy*dy[0] >= 0 &&
					e[1]+ox*dx[1]+oy*dy[1] >= 0 &&
					e[2]+ox*dx[2]+oy*dy[2] >= 0 {
					mask |= 1 << (bit + uint(p))
				}
			}
			bit += 4
			for k := range e {
				e[k] += 2 * dx[k]
			}
		}
		for k := range rowE {
			rowE[k] += 2 * dy[k]
		}
	}
	return mask
}

func triangleBounds(vx, vy [3]fixed.Int26_6) fixed.Rectangle26_6 {
	return fixed.Rectangle26_6{
		Min: fixed.Point26_6{X: min(vx[0], vx[1], vx[2]), Y: min(vy[0], vy[1], vy[2])},
		Max: fixed.Point26_6{X: max(vx[0], vx[1], vx[2]), Y: max(vy[0], vy[1], vy[2])},
	}
}

// pixelRect is a half-open rectangle in whole pixels.
type pixelRect struct {
	x0, y0, x1, y1 int
}

func pixelBounds(r fixed.Rectangle26_6) pixelRect {
	return pixelRect{
		x0: int(r.Min.X) >> FixedShift,
		y0: int(r.Min.Y) >> FixedShift,
		x1: int(r.Max.X) >> FixedShift,
		y1: int(r.Max.Y) >> FixedShift,
	}
}

func (r pixelRect) containsTile(px, py int) bool {
	return px >= r.x0 && py >= r.y0 && px+TileXDim <= r.x1 && py+TileYDim <= r.y1
}

// clip masks the coverage of a tile that straddles the rectangle and returns
// the union of the clipped masks.
func (r pixelRect) clip(desc *TriangleDesc, px, py int) CoverageMask {
	m := rectMask(r.x0-px, r.y0-py, r.x1-px, r.y1-py)
	var union CoverageMask
	for i := range desc.NumSamples {
		desc.Coverage[i] &= m
		union |= desc.Coverage[i]
	}
	return union
}

// PrimitiveBounds returns the fixed-point bounding box of the first n
// vertices of work, grown by pad pixels on every side.
func PrimitiveBounds(work *TriangleWorkDesc, n int, pad float32) fixed.Rectangle26_6 {
	var vx, vy [3]fixed.Int26_6
	for i := range 3 {
		j := min(i, n-1)
		vx[i] = ToFixed(work.Tri[TriX+j])
		vy[i] = ToFixed(work.Tri[TriY+j])
	}
	r := triangleBounds(vx, vy)
	if pad != 0 {
		p := ToFixed(pad)
		r.Min.X -= p
		r.Min.Y -= p
		r.Max.X += p
		r.Max.Y += p
	}
	// Max is exclusive; a vertex on it still owns the pixel it starts.
	r.Max.X++
	r.Max.Y++
	return r
}
