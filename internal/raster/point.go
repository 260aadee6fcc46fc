// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

// RasterizePoint covers the single pixel holding a one-pixel point. The
// pixel's mask bit comes from a lookup table; no edge functions are
// evaluated. Every sample of the pixel is covered.
func RasterizePoint(s *Setup, t Target, workerID, macroTile uint32, work *TriangleWorkDesc) {
	scratch := t.Scratch(workerID)
	scratch.Counters.Primitives.Add(1)

	x, y := int(work.Tri[TriX]), int(work.Tri[TriY])
	sc := pixelBounds(s.Scissor)
	mb := pixelBounds(MacroTileRect(macroTile))
	if x < max(sc.x0, mb.x0) || x >= min(sc.x1, mb.x1) || y < max(sc.y0, mb.y0) || y >= min(sc.y1, mb.y1) {
		return
	}

	tileX, tileY := x&^(TileXDim-1), y&^(TileYDim-1)
	mask := CoverageMask(1) << pointCoverage[y&(TileYDim-1)][x&(TileXDim-1)]

	z := work.Tri[TriZ]
	desc := TriangleDesc{
		Z:                [3]float32{z, z, z},
		OneOverW:         [3]float32{1, 1, 1},
		RecipDet:         1,
		NumSamples:       s.Samples.Count,
		Flags:            work.Flags,
		NumAttribs:       work.NumAttribs,
		Attribs:          work.Attribs,
		PerspAttribs:     work.Attribs,
		ClipDistanceMask: s.ClipDistanceMask,
		UserClip:         work.UserClip,
	}
	for i := range s.Samples.Count {
		desc.Coverage[i] = mask
	}

	mx, my := MacroTileCoords(macroTile)
	steps := newBufferSteps(s.Samples.Count)
	var base, cur, view RenderBuffers
	t.HotTiles(workerID, macroTile, work.Flags.RenderTargetArrayIndex, &base)
	steps.tileBuffers(&cur, &base, uint32(tileX/TileXDim)-mx*TilesPerMacroTileX, uint32(tileY/TileYDim)-my*TilesPerMacroTileY)
	steps.view(&view, &cur)

	t.Backend(workerID, uint32(tileX), uint32(tileY), &desc, &view)
	scratch.Counters.BackendCalls.Add(1)
}
