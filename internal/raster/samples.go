// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"fmt"

	"golang.org/x/image/math/fixed"
)

// SamplePattern lists the sample positions inside a pixel, measured from the
// pixel's top-left corner.
type SamplePattern struct {
	Count uint32
	X, Y  [MaxSamples]fixed.Int26_6
}

// standard sample offsets from the pixel center in 1/16 pixel units.
var standardOffsets = map[uint32][][2]int{
	2: {{4, 4}, {-4, -4}},
	4: {{-2, -6}, {6, -2}, {-6, 2}, {2, 6}},
	8: {{1, -3}, {-1, 3}, {5, 1}, {-3, -5}, {-5, 5}, {-7, -1}, {3, 7}, {7, -7}},
	16: {
		{1, 1}, {-1, -3}, {-3, 2}, {4, -1}, {-5, -2}, {2, 5}, {5, 3}, {3, -5},
		{-2, 6}, {0, -7}, {-4, -6}, {-6, 4}, {-8, 0}, {7, -4}, {6, 7}, {-7, -8},
	},
}

// ValidSampleCount reports whether n is a supported sample count.
func ValidSampleCount(n uint32) bool {
	switch n {
	case 1, 2, 4, 8, 16:
		return true
	}
	return false
}

// StandardPattern returns the standard sample positions for count samples.
// A single sample sits at the pixel center. It panics on an unsupported count.
func StandardPattern(count uint32) SamplePattern {
	if !ValidSampleCount(count) {
		panic(fmt.Sprintf("raster: unsupported sample count %d", count))
	}
	p := SamplePattern{Count: count}
	if count == 1 {
		p.X[0], p.Y[0] = fixedHalf, fixedHalf
		return p
	}
	// 1/16 px is 4 units of 26.6.
	for i, o := range standardOffsets[count] {
		p.X[i] = fixed.Int26_6((8 + o[0]) * 4)
		p.Y[i] = fixed.Int26_6((8 + o[1]) * 4)
	}
	return p
}

// Bounds returns the bounding box of the sample positions. Corner tests for
// trivial accept and reject are evaluated on this box.
func (p *SamplePattern) Bounds() (minX, minY, maxX, maxY fixed.Int26_6) {
	minX, minY = p.X[0], p.Y[0]
	maxX, maxY = minX, minY
	for i := uint32(1); i < p.Count; i++ {
		minX, maxX = min(minX, p.X[i]), max(maxX, p.X[i])
		minY, maxY = min(minY, p.Y[i]), max(maxY, p.Y[i])
	}
	return minX, minY, maxX, maxY
}

// Float returns the sample positions in pixels.
func (p *SamplePattern) Float() (x, y [MaxSamples]float32) {
	for i := range p.Count {
		x[i] = FixedToFloat(p.X[i])
		y[i] = FixedToFloat(p.Y[i])
	}
	return x, y
}
