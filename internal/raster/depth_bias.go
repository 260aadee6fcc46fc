// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"math"

	"github.com/gogpu/gputypes"
)

// biasFactor returns the smallest resolvable depth step for the format. For
// float formats it depends on the largest depth of the primitive.
func biasFactor(format gputypes.TextureFormat, z [3]float32) float32 {
	switch format {
	case gputypes.TextureFormatDepth16Unorm:
		return 1.0 / (1 << 16)
	case gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8:
		return 1.0 / (1 << 24)
	default:
		zMax := max(abs32(z[0]), abs32(z[1]), abs32(z[2]))
		exp := int(math.Float32bits(zMax)>>23&0xff) - 127
		return float32(math.Ldexp(1, exp-23))
	}
}

// computeDepthBias returns the offset added to every depth of a triangle.
// dzdx and dzdy are the screen-space depth gradients.
func computeDepthBias(b *DepthBias, z [3]float32, dzdx, dzdy float32) float32 {
	slope := max(abs32(dzdx), abs32(dzdy))
	bias := b.Constant*biasFactor(b.Format, z) + b.SlopeScale*slope
	switch {
	case b.Clamp > 0:
		bias = min(bias, b.Clamp)
	case b.Clamp < 0:
		bias = max(bias, b.Clamp)
	}
	return bias
}

func abs32(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) &^ (1 << 31))
}
