// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import "honnef.co/go/safeish"

// Bytes per sample of the hot tile formats: RGBA32Float color, Depth32Float
// depth and Stencil8 stencil.
const (
	ColorBytesPerSample   = 16
	DepthBytesPerSample   = 4
	StencilBytesPerSample = 1
)

// RenderBuffers points into the hot tiles of one raster tile. Each slice
// holds NumSamples planes of 64 pixels in coverage-mask bit order.
type RenderBuffers struct {
	Color   [MaxRenderTargets][]byte
	Depth   []byte
	Stencil []byte
}

// ColorValues views render target rt as RGBA float32 values.
func (b *RenderBuffers) ColorValues(rt int) []float32 {
	return safeish.SliceCast[[]float32](b.Color[rt])
}

// DepthValues views the depth buffer as float32 values.
func (b *RenderBuffers) DepthValues() []float32 {
	return safeish.SliceCast[[]float32](b.Depth)
}

// TileBytes returns the size of one raster tile of an attachment with the
// given bytes per sample.
func TileBytes(bytesPerSample, numSamples uint32) int {
	return int(bytesPerSample * pixelsPerTile * numSamples)
}

// MacroTileBytes returns the size of one macrotile hot tile.
func MacroTileBytes(bytesPerSample, numSamples uint32) int {
	return TileBytes(bytesPerSample, numSamples) * TilesPerMacroTileX * TilesPerMacroTileY
}

// bufferSteps holds the per-tile strides of every attachment.
type bufferSteps struct {
	color, depth, stencil int
}

func newBufferSteps(numSamples uint32) bufferSteps {
	return bufferSteps{
		color:   TileBytes(ColorBytesPerSample, numSamples),
		depth:   TileBytes(DepthBytesPerSample, numSamples),
		stencil: TileBytes(StencilBytesPerSample, numSamples),
	}
}

// advance moves every non-nil buffer forward by n tiles.
func (s *bufferSteps) advance(b *RenderBuffers, n int) {
	if n == 0 {
		return
	}
	for rt := range b.Color {
		if b.Color[rt] != nil {
			b.Color[rt] = b.Color[rt][s.color*n:]
		}
	}
	if b.Depth != nil {
		b.Depth = b.Depth[s.depth*n:]
	}
	if b.Stencil != nil {
		b.Stencil = b.Stencil[s.stencil*n:]
	}
}

// stepX advances to the next tile in a row.
func (s *bufferSteps) stepX(b *RenderBuffers) { s.advance(b, 1) }

// view trims each buffer to exactly one tile.
func (s *bufferSteps) view(dst, src *RenderBuffers) {
	for rt := range src.Color {
		dst.Color[rt] = trim(src.Color[rt], s.color)
	}
	dst.Depth = trim(src.Depth, s.depth)
	dst.Stencil = trim(src.Stencil, s.stencil)
}

func trim(b []byte, n int) []byte {
	if b == nil {
		return nil
	}
	return b[:n:n]
}

// tileBuffers positions base, which points at the macrotile origin, at the
// raster tile (tx, ty) given in macrotile-local tile coordinates.
func (s *bufferSteps) tileBuffers(dst, base *RenderBuffers, tx, ty uint32) {
	*dst = *base
	s.advance(dst, int(ty)*TilesPerMacroTileX+int(tx))
}
