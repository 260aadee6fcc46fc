package hottile

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swrast/internal/raster"
)

// Attachment identifies one render output of a macrotile.
type Attachment uint32

// Attachments. Color targets come first so Color0+i is render target i.
const (
	Color0 Attachment = iota
	Color1
	Color2
	Color3
	Color4
	Color5
	Color6
	Color7
	Depth
	Stencil

	NumAttachments
)

// Format returns the format hot tiles of the attachment are kept in.
func (a Attachment) Format() gputypes.TextureFormat {
	switch {
	case a < Depth:
		return gputypes.TextureFormatRGBA32Float
	case a == Depth:
		return gputypes.TextureFormatDepth32Float
	default:
		return gputypes.TextureFormatStencil8
	}
}

// BytesPerSample returns the storage size of one sample.
func (a Attachment) BytesPerSample() uint32 {
	switch {
	case a < Depth:
		return raster.ColorBytesPerSample
	case a == Depth:
		return raster.DepthBytesPerSample
	default:
		return raster.StencilBytesPerSample
	}
}

func (a Attachment) String() string {
	switch {
	case a < Depth:
		return fmt.Sprintf("Color%d", uint32(a))
	case a == Depth:
		return "Depth"
	case a == Stencil:
		return "Stencil"
	default:
		return fmt.Sprintf("Attachment(%d)", uint32(a))
	}
}

// AttachmentMask is a set of attachments.
type AttachmentMask uint32

// MaskOf builds a mask from attachments.
func MaskOf(atts ...Attachment) AttachmentMask {
	var m AttachmentMask
	for _, a := range atts {
		m |= 1 << a
	}
	return m
}

// ColorMask returns the mask of render targets 0 through n-1.
func ColorMask(n uint32) AttachmentMask {
	return AttachmentMask(1)<<n - 1
}

// Has reports whether a is in the set.
func (m AttachmentMask) Has(a Attachment) bool {
	return m&(1<<a) != 0
}

// Count returns the number of attachments in the set.
func (m AttachmentMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// State is the relationship between a hot tile and its surface.
type State uint8

const (
	// Invalid tiles hold no useful data and are loaded from the surface on
	// first use.
	Invalid State = iota
	// Clear tiles have a pending fast clear; the buffer is filled with the
	// clear value on first use.
	Clear
	// Dirty tiles hold data newer than the surface.
	Dirty
	// Resolved tiles match the surface.
	Resolved
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "Invalid"
	case Clear:
		return "Clear"
	case Dirty:
		return "Dirty"
	case Resolved:
		return "Resolved"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}
