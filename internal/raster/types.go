// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/fixed"
)

// Component offsets into TriangleWorkDesc.Tri.
const (
	TriX    = 0
	TriY    = 4
	TriZ    = 8
	TriRcpW = 12
)

// TriFlags carries per-primitive bits from the binner to the rasterizer and
// the backend.
type TriFlags struct {
	FrontFacing bool
	YMajor      bool
	// PrimitiveID is the index of the primitive within its draw.
	PrimitiveID            uint32
	RenderTargetArrayIndex uint32
	ViewportIndex          uint32
}

// TriangleWorkDesc is one binned primitive. It is allocated by the binner
// from the draw's arena and is only valid while the draw is in flight.
//
// Tri stores screen-space x, y, z and 1/w grouped per component:
//
//	x0 x1 x2 _  y0 y1 y2 _  z0 z1 z2 _  1/w0 1/w1 1/w2 _
//
// Lines use vertices 0 and 1; points use vertex 0 with x and y already
// snapped to the pixel.
//
// Attribs holds NumAttribs attributes of 3 vertices x 4 components. UserClip
// holds, per enabled clip distance, the plane-equation coefficients
// (d0-d2, d1-d2, d2) for triangles or the raw endpoint distances (d0, d1)
// for lines.
type TriangleWorkDesc struct {
	Tri        [16]float32
	Attribs    []float32
	NumAttribs uint32
	Flags      TriFlags
	UserClip   []float32
}

// TriangleDesc is what the backend receives for one covered tile.
//
// Barycentrics at a sample (x, y) in pixels are
//
//	i = (I[0]*x + I[1]*y + I[2]) * RecipDet
//	j = (J[0]*x + J[1]*y + J[2]) * RecipDet
//
// weighting vertices 0 and 1; vertex 2 gets 1-i-j. Z and OneOverW are stored
// as (v0-v2, v1-v2, v2) so z = Z[0]*i + Z[1]*j + Z[2].
type TriangleDesc struct {
	I, J     [3]float32
	Z        [3]float32
	OneOverW [3]float32
	RecipDet float32

	// Coverage holds one mask per sample; only the first NumSamples are
	// meaningful.
	Coverage   [MaxSamples]CoverageMask
	NumSamples uint32

	Flags        TriFlags
	NumAttribs   uint32
	Attribs      []float32
	PerspAttribs []float32

	ClipDistanceMask uint8
	UserClip         []float32
}

// DepthBias is the polygon offset applied to interpolated depth.
type DepthBias struct {
	Constant   float32
	SlopeScale float32
	Clamp      float32
	// Format selects the precision factor the constant term is scaled by.
	Format gputypes.TextureFormat
}

// Enabled reports whether the bias changes depth at all.
func (b *DepthBias) Enabled() bool {
	return b.Constant != 0 || b.SlopeScale != 0
}

// Setup is the read-only per-draw state the rasterizer needs. It is derived
// once per non-split draw.
type Setup struct {
	// Scissor is the half-open, pixel-aligned rectangle coverage is limited
	// to.
	Scissor          fixed.Rectangle26_6
	Samples          SamplePattern
	LineWidth        float32
	Bias             DepthBias
	ClipDistanceMask uint8
}

// Target connects the rasterizer to the draw being rasterized.
type Target interface {
	// HotTiles fills bufs with the hot tile buffers of macroTile, each
	// starting at the macrotile origin, for every attachment the draw
	// touches. Unused attachments are left nil.
	HotTiles(workerID, macroTile, rtai uint32, bufs *RenderBuffers)

	// Backend shades one covered tile whose top-left pixel is (x, y).
	Backend(workerID, x, y uint32, tri *TriangleDesc, bufs *RenderBuffers)

	// Scratch returns the worker's private scratch space.
	Scratch(workerID uint32) *Scratch
}

// Counters are per-worker rasterizer statistics.
type Counters struct {
	Primitives     atomic.Uint64
	TrivialRejects atomic.Uint64
	TrivialAccepts atomic.Uint64
	PartialTiles   atomic.Uint64
	BackendCalls   atomic.Uint64
}

// Scratch is per-worker memory reused across primitives.
type Scratch struct {
	Counters Counters

	perspAttribs [MaxAttributes * 12]float32
	lineTri      TriangleWorkDesc
	lineAttribs  [MaxAttributes * 12]float32
	lineClip     [MaxClipDistances * 3]float32
}
