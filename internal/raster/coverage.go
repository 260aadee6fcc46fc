// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import "math/bits"

// CoverageMask holds one bit per pixel of an 8x8 raster tile for a single
// sample.
//
// Pixels are grouped into 2x2 quads. Quads are numbered row-major across the
// tile and each quad owns four consecutive bits, pixels inside a quad again
// row-major:
//
//	bit(x, y) = ((y>>1)*4 + (x>>1))*4 + (y&1)*2 + (x&1)
//
// Hot tile buffers store pixels in the same order, so bit i of the mask
// addresses element i of a sample plane.
type CoverageMask uint64

// FullCoverage has every pixel of the tile set.
const FullCoverage CoverageMask = ^CoverageMask(0)

// BitIndex returns the mask bit of pixel (x, y) within a tile.
func BitIndex(x, y uint32) uint32 {
	return ((y>>1)*(TileXDim/2)+(x>>1))*4 + (y&1)*2 + (x & 1)
}

// PixelOf is the inverse of BitIndex.
func PixelOf(bit uint32) (x, y uint32) {
	quad := bit >> 2
	x = (quad%(TileXDim/2))*2 + bit&1
	y = (quad/(TileXDim/2))*2 + (bit>>1)&1
	return x, y
}

// Has reports whether pixel (x, y) is covered.
func (m CoverageMask) Has(x, y uint32) bool {
	return m&(1<<BitIndex(x, y)) != 0
}

// Count returns the number of covered pixels.
func (m CoverageMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// pointCoverage maps a pixel offset within a tile straight to its mask bit.
var pointCoverage = func() (t [TileYDim][TileXDim]uint8) {
	for y := range uint32(TileYDim) {
		for x := range uint32(TileXDim) {
			t[y][x] = uint8(BitIndex(x, y))
		}
	}
	return t
}()

// rectMask returns the mask of pixels inside [x0,x1)x[y0,y1), in tile-local
// pixel coordinates clamped to the tile.
func rectMask(x0, y0, x1, y1 int) CoverageMask {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, TileXDim), min(y1, TileYDim)
	var m CoverageMask
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m |= 1 << BitIndex(uint32(x), uint32(y))
		}
	}
	return m
}
