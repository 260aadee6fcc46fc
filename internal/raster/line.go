// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"math/bits"

	"golang.org/x/image/math/fixed"
)

var singleSample = StandardPattern(1)

// RasterizeLine rasterizes a wide line as two triangles. The endpoints are
// pushed half the line width to either side of the line, across its major
// axis, giving a quad split along one diagonal. Both halves go through the
// triangle path with a single sample at the pixel center, and that coverage
// is applied to every sample of the draw.
func RasterizeLine(s *Setup, t Target, workerID, macroTile uint32, work *TriangleWorkDesc) {
	scratch := t.Scratch(workerID)
	scratch.Counters.Primitives.Add(1)

	h := s.LineWidth * 0.5
	clip := s.Scissor.Intersect(MacroTileRect(macroTile))
	tri := &scratch.lineTri

	bloatLine(tri, scratch, work, s.ClipDistanceMask, [3]int{0, 0, 1}, [3]float32{h, -h, -h})
	if !quadBounds(tri).Intersect(clip).Empty() {
		rasterizeTriangle(s, &singleSample, t, scratch, workerID, macroTile, tri)
	}

	bloatLine(tri, scratch, work, s.ClipDistanceMask, [3]int{1, 1, 0}, [3]float32{-h, h, h})
	if !quadBounds(tri).Intersect(clip).Empty() {
		rasterizeTriangle(s, &singleSample, t, scratch, workerID, macroTile, tri)
	}
}

// bloatLine builds one half of a line quad in dst from the endpoints picked
// by verts, offsetting each vertex by bloat across the major axis.
func bloatLine(dst *TriangleWorkDesc, scratch *Scratch, src *TriangleWorkDesc, clipMask uint8, verts [3]int, bloat [3]float32) {
	*dst = TriangleWorkDesc{NumAttribs: src.NumAttribs, Flags: src.Flags}
	for v, sv := range verts {
		dst.Tri[TriX+v] = src.Tri[TriX+sv]
		dst.Tri[TriY+v] = src.Tri[TriY+sv]
		dst.Tri[TriZ+v] = src.Tri[TriZ+sv]
		dst.Tri[TriRcpW+v] = src.Tri[TriRcpW+sv]
		if src.Flags.YMajor {
			dst.Tri[TriX+v] += bloat[v]
		} else {
			dst.Tri[TriY+v] += bloat[v]
		}
	}

	if n := int(src.NumAttribs); n > 0 {
		attribs := scratch.lineAttribs[:n*12]
		for a := range n {
			for v, sv := range verts {
				copy(attribs[a*12+v*4:a*12+v*4+4], src.Attribs[a*12+sv*4:a*12+sv*4+4])
			}
		}
		dst.Attribs = attribs
	}

	if n := bits.OnesCount8(clipMask); n > 0 && len(src.UserClip) >= n*2 {
		out := scratch.lineClip[:n*3]
		for d := range n {
			d0 := src.UserClip[d*2+verts[0]]
			d1 := src.UserClip[d*2+verts[1]]
			d2 := src.UserClip[d*2+verts[2]]
			out[d*3], out[d*3+1], out[d*3+2] = d0-d2, d1-d2, d2
		}
		dst.UserClip = out
	}
}

func quadBounds(tri *TriangleWorkDesc) fixed.Rectangle26_6 {
	var vx, vy [3]fixed.Int26_6
	for i := range 3 {
		vx[i] = ToFixed(tri.Tri[TriX+i])
		vy[i] = ToFixed(tri.Tri[TriY+i])
	}
	return triangleBounds(vx, vy)
}
