// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"math"

	"golang.org/x/image/math/fixed"
)

// Fixed-point vertex precision. Screen positions are snapped to 1/64 of a
// pixel (26.6) before edge setup.
const (
	FixedShift = 6
	FixedScale = 1 << FixedShift
	fixedHalf  = FixedScale / 2
)

// Tile and macrotile geometry, in pixels.
const (
	TileXDim        = 8
	TileYDim        = 8
	TileXShift      = 3
	TileYShift      = 3
	MacroTileXDim   = 64
	MacroTileYDim   = 64
	MacroTileXShift = 6
	MacroTileYShift = 6

	// TilesPerMacroTileX is the number of raster tiles across a macrotile.
	TilesPerMacroTileX = MacroTileXDim / TileXDim
	TilesPerMacroTileY = MacroTileYDim / TileYDim

	pixelsPerTile = TileXDim * TileYDim
)

// Pipeline limits shared by the rasterizer and its callers.
const (
	MaxRenderTargets = 8
	MaxAttributes    = 32
	MaxSamples       = 16
	MaxClipDistances = 8
)

// ToFixed converts a screen coordinate to 26.6 fixed point, rounding to
// nearest.
func ToFixed(f float32) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(float64(f) * FixedScale))
}

// FixedToFloat converts a 26.6 value back to a float.
func FixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / FixedScale
}

// Quantize snaps f to the fixed-point grid. Setup math that runs in floating
// point uses quantized positions so adjacent triangles interpolate the same
// values along their shared edge.
func Quantize(f float32) float32 {
	return FixedToFloat(ToFixed(f))
}

// PixelRect converts a pixel rectangle to a half-open fixed-point rectangle.
func PixelRect(x0, y0, x1, y1 int) fixed.Rectangle26_6 {
	return fixed.Rectangle26_6{
		Min: fixed.Point26_6{X: fixed.I(x0), Y: fixed.I(y0)},
		Max: fixed.Point26_6{X: fixed.I(x1), Y: fixed.I(y1)},
	}
}

// MacroTileID packs macrotile coordinates into the identifier used by the
// binner and the hot tile manager.
func MacroTileID(x, y uint32) uint32 {
	return y<<16 | x&0xffff
}

// MacroTileCoords unpacks a macrotile identifier.
func MacroTileCoords(id uint32) (x, y uint32) {
	return id & 0xffff, id >> 16
}

// MacroTileRect returns the fixed-point bounds of a macrotile.
func MacroTileRect(id uint32) fixed.Rectangle26_6 {
	mx, my := MacroTileCoords(id)
	x0 := int(mx) * MacroTileXDim
	y0 := int(my) * MacroTileYDim
	return PixelRect(x0, y0, x0+MacroTileXDim, y0+MacroTileYDim)
}

// MacroTileRange returns the inclusive range of macrotiles overlapping the
// non-empty rectangle r.
func MacroTileRange(r fixed.Rectangle26_6) (x0, y0, x1, y1 uint32) {
	const shiftX = FixedShift + MacroTileXShift
	const shiftY = FixedShift + MacroTileYShift
	return uint32(int(r.Min.X) >> shiftX), uint32(int(r.Min.Y) >> shiftY),
		uint32(int(r.Max.X-1) >> shiftX), uint32(int(r.Max.Y-1) >> shiftY)
}
