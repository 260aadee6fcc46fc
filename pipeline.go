package swrast

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/swrast/internal/raster"
)

// BackendFunc shades one covered raster tile whose top-left pixel is (x, y).
// It is called concurrently for different macrotiles; calls for one
// macrotile are serialized in submission order.
type BackendFunc func(dc *DrawContext, workerID, x, y uint32, tri *TriangleDesc, bufs *RenderBuffers)

// BackendKey describes the back end a draw with a pixel shader needs.
type BackendKey struct {
	Rate        ShadingRate
	Multisample bool
	SampleCount uint32
	// MaxRTSlot is the highest render target the pixel shader writes.
	MaxRTSlot uint32
}

// BackendSelector picks the back end for a key. It must be a pure function
// of the key.
type BackendSelector func(key BackendKey) BackendFunc

// maxScissor bounds scissor rectangles to the addressable macrotiles.
const maxScissor = 0xffff * raster.MacroTileXDim

// setupMacroTileScissors derives the draw's pixel-space scissor from
// scissor rectangle 0, or from viewport 0 when scissoring is disabled.
func (c *Context) setupMacroTileScissors(dc *DrawContext) {
	api := &dc.state.api
	var left, top, right, bottom int32
	if api.Rast.ScissorEnable {
		r := api.Scissors[0]
		left, top, right, bottom = r.Left, r.Top, r.Right, r.Bottom
	} else {
		vp := api.Viewports[0]
		left, top = int32(vp.X), int32(vp.Y)
		right, bottom = left+int32(vp.Width), top+int32(vp.Height)
	}
	left, top = max(left, 0), max(top, 0)
	right, bottom = min(max(right, 0), maxScissor), min(max(bottom, 0), maxScissor)
	dc.state.setup.Scissor = raster.PixelRect(int(left), int(top), int(right), int(bottom))
}

// setupPipeline derives the per-draw data the front and back ends use:
// the back end, the primitive processing function, the attachments the
// draw touches and the sample tables.
func (c *Context) setupPipeline(dc *DrawContext) {
	ds := dc.state
	api := &ds.api

	n := api.Rast.SampleCount
	if !raster.ValidSampleCount(n) {
		panic(fmt.Sprintf("swrast: invalid sample count %d", n))
	}
	pattern := raster.StandardPattern(n)
	if api.Rast.CustomSamplePattern {
		pattern = api.Rast.SamplePattern
		pattern.Count = n
	}
	ds.setup.Samples = pattern
	ds.setup.LineWidth = api.Rast.LineWidth
	ds.setup.ClipDistanceMask = api.Rast.ClipDistanceMask
	ds.setup.Bias = raster.DepthBias{
		Constant:   float32(api.DepthStencil.DepthBias),
		SlopeScale: api.DepthStencil.DepthBiasSlopeScale,
		Clamp:      api.DepthStencil.DepthBiasClamp,
		Format:     api.DepthStencil.Format,
	}

	ps := &api.PixelShader
	if ps.Func == nil {
		ds.backend = nullBackend
	} else {
		rate := ps.ShadingRate
		if rate == ShadingRateSample && n == 1 {
			rate = ShadingRatePixel
		}
		if rate != ShadingRatePixel && rate != ShadingRateSample {
			panic(fmt.Sprintf("swrast: unsupported shading rate %d", rate))
		}
		key := BackendKey{
			Rate:        rate,
			Multisample: n > 1,
			SampleCount: n,
			MaxRTSlot:   maxRTSlot(ps.RenderTargetMask),
		}
		ds.backend = c.selector(key)
		if ds.backend == nil {
			panic(fmt.Sprintf("swrast: no back end for %+v", key))
		}
	}

	var atts AttachmentMask
	if ps.Func != nil {
		atts |= AttachmentMask(ps.RenderTargetMask)
	}
	dss := &api.DepthStencil
	if dss.DepthTestEnable || dss.DepthWriteEnabled {
		atts |= MaskOf(AttachmentDepth)
	}
	if dss.StencilTestEnable {
		atts |= MaskOf(AttachmentStencil)
	}
	ds.attachments = atts

	switch api.Topology {
	case PointList:
		if n == 1 && api.Rast.PointSize == 1 && !api.Rast.PointParam {
			ds.processPrim = binPoints
		} else {
			ds.processPrim = binPointSprites
		}
	case LineList, LineStrip:
		ds.processPrim = binLines
	default:
		ds.processPrim = binTriangles
	}

	linkage := api.LinkageMask
	if ps.Func == nil && !dss.DepthTestEnable && !dss.DepthWriteEnabled &&
		!dss.StencilTestEnable && api.LinkageCount == 0 {
		ds.processPrim = nil
		linkage = 0
	}
	if api.SoState.Enable && api.SoState.RasterizerDisable {
		ds.processPrim = nil
	}

	ds.feAttribMask = linkage
	if api.SoState.Enable {
		for _, m := range api.SoState.StreamMasks {
			ds.feAttribMask |= m
		}
	}

	ds.samplePosX, ds.samplePosY = pattern.Float()
	for i := range ds.sampleMasked {
		ds.sampleMasked[i] = api.Blend.SampleMask&(1<<i) == 0
	}
}

func maxRTSlot(mask uint8) uint32 {
	if mask == 0 {
		return 0
	}
	return uint32(bits.Len8(mask)) - 1
}
