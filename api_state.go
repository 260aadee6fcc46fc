package swrast

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/swrast/internal/hottile"
	"github.com/gogpu/swrast/internal/raster"
)

// apiState returns the state of the open draw context.
func (c *Context) apiState() *APIState {
	return &c.acquireDraw(false).state.api
}

// SetVertexBuffers binds bufs to consecutive slots starting at first.
func (c *Context) SetVertexBuffers(first uint32, bufs ...VertexBuffer) {
	if int(first)+len(bufs) > MaxVertexBuffers {
		panic(fmt.Sprintf("swrast: vertex buffer slots %d..%d out of range", first, int(first)+len(bufs)-1))
	}
	copy(c.apiState().VertexBuffers[first:], bufs)
}

// SetIndexBuffer binds the index buffer.
func (c *Context) SetIndexBuffer(ib IndexBuffer) {
	c.apiState().IndexBuffer = ib
}

// SetFetchFunc sets the vertex fetch function.
func (c *Context) SetFetchFunc(fn FetchFunc) {
	c.apiState().FetchFunc = fn
}

// SetVertexFunc sets the vertex shader.
func (c *Context) SetVertexFunc(fn VertexFunc) {
	c.apiState().VertexFunc = fn
}

// SetSoFunc sets the stream-out function of a stream.
func (c *Context) SetSoFunc(fn SoFunc, stream uint32) {
	if stream >= MaxSoStreams {
		panic(fmt.Sprintf("swrast: stream-out stream %d out of range", stream))
	}
	c.apiState().SoFuncs[stream] = fn
}

// SetSoState sets the stream-out configuration.
func (c *Context) SetSoState(s SoState) {
	c.apiState().SoState = s
}

// SetSoBuffers binds a stream-out buffer.
func (c *Context) SetSoBuffers(buf SoBuffer, slot uint32) {
	if slot >= MaxSoBuffers {
		panic(fmt.Sprintf("swrast: stream-out buffer slot %d out of range", slot))
	}
	c.apiState().SoBuffers[slot] = buf
}

// SetFrontendState sets the fixed-function front-end state.
func (c *Context) SetFrontendState(s FrontendState) {
	c.apiState().Frontend = s
}

// SetGsState sets the geometry shader state.
func (c *Context) SetGsState(s GsState) {
	c.apiState().GsState = s
}

// SetGsFunc sets the geometry shader.
func (c *Context) SetGsFunc(fn GsFunc) {
	c.apiState().GsFunc = fn
}

// SetCsFunc sets the compute shader and its thread group size.
func (c *Context) SetCsFunc(fn CsFunc, threadsInGroup uint32) {
	api := c.apiState()
	api.CsFunc = fn
	api.ThreadsInGroup = threadsInGroup
}

// SetTsState sets the tessellation state.
func (c *Context) SetTsState(s TsState) {
	c.apiState().TsState = s
}

// SetHsFunc sets the hull shader.
func (c *Context) SetHsFunc(fn HsFunc) {
	c.apiState().HsFunc = fn
}

// SetDsFunc sets the domain shader.
func (c *Context) SetDsFunc(fn DsFunc) {
	c.apiState().DsFunc = fn
}

// SetDepthStencilState sets the depth and stencil configuration.
func (c *Context) SetDepthStencilState(s DepthStencilState) {
	c.apiState().DepthStencil = s
}

// SetBackendState sets the back-end configuration.
func (c *Context) SetBackendState(s BackendState) {
	c.apiState().Backend = s
}

// SetPixelShaderState sets the pixel shader and the targets it writes.
func (c *Context) SetPixelShaderState(s PixelShaderState) {
	c.apiState().PixelShader = s
}

// SetBlendState sets the output merger configuration.
func (c *Context) SetBlendState(s BlendState) {
	c.apiState().Blend = s
}

// SetBlendFunc sets a custom blend function for render target rt. It
// replaces the built-in blend of the render target's gputypes.BlendState.
func (c *Context) SetBlendFunc(rt uint32, fn BlendFunc) {
	if rt >= MaxRenderTargets {
		panic(fmt.Sprintf("swrast: render target %d out of range", rt))
	}
	c.apiState().BlendFuncs[rt] = fn
}

// SetLinkage selects the vertex attributes passed to the back end. Back-end
// attribute k reads vertex attribute slots[k]. A nil slots uses the set bits
// of mask in ascending order.
func (c *Context) SetLinkage(mask uint32, slots []uint8) {
	n := bits.OnesCount32(mask)
	if slots != nil && len(slots) != n {
		panic(fmt.Sprintf("swrast: linkage map has %d slots, mask has %d", len(slots), n))
	}
	api := c.apiState()
	api.LinkageMask = mask
	api.LinkageCount = uint32(n)
	api.LinkageMap = [MaxAttributes]uint8{}
	if slots != nil {
		for i, s := range slots {
			if s >= MaxAttributes {
				panic(fmt.Sprintf("swrast: linkage slot %d out of range", s))
			}
			api.LinkageMap[i] = s
		}
		return
	}
	for i, m := 0, mask; m != 0; i, m = i+1, m&(m-1) {
		api.LinkageMap[i] = uint8(bits.TrailingZeros32(m))
	}
}

// SetRastState sets the rasterizer configuration.
func (c *Context) SetRastState(s RastState) {
	if !raster.ValidSampleCount(s.SampleCount) {
		panic(fmt.Sprintf("swrast: invalid sample count %d", s.SampleCount))
	}
	c.apiState().Rast = s
}

// SetViewports sets the viewports. A nil matrices computes the viewport
// transform from the viewports using the context's driver convention.
func (c *Context) SetViewports(vps []Viewport, matrices []ViewportMatrix) {
	if len(vps) > MaxViewports {
		panic(fmt.Sprintf("swrast: %d viewports, at most %d", len(vps), MaxViewports))
	}
	if matrices != nil && len(matrices) != len(vps) {
		panic(fmt.Sprintf("swrast: %d viewport matrices for %d viewports", len(matrices), len(vps)))
	}
	api := c.apiState()
	copy(api.Viewports[:], vps)
	if matrices != nil {
		copy(api.ViewportMatrix[:], matrices)
	} else {
		for i, vp := range vps {
			api.ViewportMatrix[i] = viewportMatrix(c.opts.driver, vp)
		}
	}
	updateGuardband(api)
}

func viewportMatrix(driver DriverType, vp Viewport) ViewportMatrix {
	var m ViewportMatrix
	m.M00 = vp.Width / 2
	m.M11 = -vp.Height / 2
	if driver == DriverGL {
		m.M30 = max(vp.X, 0) + m.M00
		m.M31 = max(vp.Y, 0) - m.M11
		m.M22 = (vp.MaxZ - vp.MinZ) / 2
		m.M32 = vp.MinZ + m.M22
		return m
	}
	m.M30 = vp.X + m.M00
	m.M31 = vp.Y - m.M11
	m.M22 = vp.MaxZ - vp.MinZ
	m.M32 = vp.MinZ
	return m
}

// updateGuardband sets the guardband from viewport 0, in NDC units.
func updateGuardband(api *APIState) {
	vp := &api.Viewports[0]
	api.Guardband.Left = guardbandWidth / vp.Width
	api.Guardband.Right = api.Guardband.Left
	api.Guardband.Top = guardbandHeight / vp.Height
	api.Guardband.Bottom = api.Guardband.Top
}

// SetScissorRects sets the scissor rectangles. Only rectangle 0 limits
// rasterization.
func (c *Context) SetScissorRects(rects []Rect) {
	if len(rects) > MaxViewports {
		panic(fmt.Sprintf("swrast: %d scissor rects, at most %d", len(rects), MaxViewports))
	}
	copy(c.apiState().Scissors[:], rects)
}

// SetRenderTarget binds the surface an attachment loads from and stores to.
func (c *Context) SetRenderTarget(att Attachment, s Surface) {
	if att >= hottile.NumAttachments {
		panic(fmt.Sprintf("swrast: invalid attachment %v", att))
	}
	c.apiState().Surfaces[att] = s
}
