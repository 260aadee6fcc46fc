package swrast

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/swrast/internal/hottile"
	"github.com/gogpu/swrast/internal/raster"
)

// Pipeline limits.
const (
	MaxVertexBuffers  = 32
	MaxSoStreams      = 4
	MaxSoBuffers      = 4
	MaxViewports      = 16
	MaxRenderTargets  = raster.MaxRenderTargets
	MaxAttributes     = raster.MaxAttributes
	MaxClipDistances  = raster.MaxClipDistances
	MaxSamples        = raster.MaxSamples
	guardbandWidth    = 32768.0
	guardbandHeight   = 32768.0
	defaultPointSize  = 1.0
	defaultLineWidth  = 1.0
	privateStateAlign = 64
)

// Types shared with the back end.
type (
	TriangleDesc  = raster.TriangleDesc
	RenderBuffers = raster.RenderBuffers
	CoverageMask  = raster.CoverageMask
	SamplePattern = raster.SamplePattern
	TriFlags      = raster.TriFlags
)

// Hot tile types re-exported for drivers.
type (
	Attachment     = hottile.Attachment
	AttachmentMask = hottile.AttachmentMask
	TileState      = hottile.State
	HotTile        = hottile.HotTile
	Surface        = hottile.Surface
	ClearValue     = hottile.ClearValue
	TileCallbacks  = hottile.Callbacks
)

// Attachments.
const (
	AttachmentColor0  = hottile.Color0
	AttachmentColor1  = hottile.Color1
	AttachmentColor2  = hottile.Color2
	AttachmentColor3  = hottile.Color3
	AttachmentColor4  = hottile.Color4
	AttachmentColor5  = hottile.Color5
	AttachmentColor6  = hottile.Color6
	AttachmentColor7  = hottile.Color7
	AttachmentDepth   = hottile.Depth
	AttachmentStencil = hottile.Stencil
)

// Hot tile states accepted by StoreTiles.
const (
	TileInvalid  = hottile.Invalid
	TileResolved = hottile.Resolved
)

// MaskOf builds an attachment mask.
func MaskOf(atts ...Attachment) AttachmentMask { return hottile.MaskOf(atts...) }

// Vertex is one vertex as produced by fetch and vertex shading.
type Vertex struct {
	// Position is the clip-space position.
	Position     [4]float32
	ClipDistance [MaxClipDistances]float32
	PointSize    float32
	// RenderTargetArrayIndex and ViewportIndex are read when the back-end
	// state asks for them.
	RenderTargetArrayIndex uint32
	ViewportIndex          uint32
	Attribs                [MaxAttributes][4]float32
}

// VertexBuffer is a bound vertex stream.
type VertexBuffer struct {
	Data  []byte
	Pitch uint32
	// PerInstance advances the stream per instance instead of per vertex.
	PerInstance bool
}

// IndexBuffer is the bound index stream.
type IndexBuffer struct {
	Format gputypes.IndexFormat
	Data   []byte
}

// FetchContext describes the vertex being fetched.
type FetchContext struct {
	Buffers       *[MaxVertexBuffers]VertexBuffer
	VertexID      uint32
	InstanceID    uint32
	StartInstance uint32
}

// FetchFunc reads one vertex from the bound buffers.
type FetchFunc func(fc *FetchContext, v *Vertex)

// VertexContext describes the vertex being shaded.
type VertexContext struct {
	WorkerID   uint32
	VertexID   uint32
	InstanceID uint32
	// Private is the draw's private state, if any was allocated.
	Private []byte
}

// VertexFunc shades one vertex in place.
type VertexFunc func(vc *VertexContext, v *Vertex)

// StreamOutContext carries one primitive to a stream-out function.
type StreamOutContext struct {
	Verts       []*Vertex
	PrimitiveID uint32
	Stream      uint32
	Buffers     *[MaxSoBuffers]SoBuffer
}

// SoFunc writes one primitive to the stream-out buffers.
type SoFunc func(so *StreamOutContext)

// SoBuffer is a stream-out target.
type SoBuffer struct {
	Data []float32
	// Pitch is the number of floats per vertex.
	Pitch uint32
	// WriteOffset points at the driver's write cursor, in floats. SoFunc
	// implementations advance it; it is shared by every draw that binds
	// the buffer.
	WriteOffset *uint32
}

// SoState is the stream-out configuration. Stream-out draws are never split.
type SoState struct {
	Enable bool
	// StreamMasks lists the vertex attributes each stream reads.
	StreamMasks [MaxSoStreams]uint32
	// RasterizerDisable discards primitives after stream-out.
	RasterizerDisable bool
}

// FrontendState configures the fixed-function front end.
type FrontendState struct {
	// VpTransformDisable treats positions as already being in screen space.
	VpTransformDisable bool
}

// GsState configures the geometry shader stage.
type GsState struct {
	Enable bool
}

// GsFunc is an opaque geometry shader.
type GsFunc func(ctx any)

// TsState configures tessellation.
type TsState struct {
	Enable bool
}

// HsFunc and DsFunc are opaque hull and domain shaders.
type (
	HsFunc func(ctx any)
	DsFunc func(ctx any)
)

// ComputeContext describes one thread group of a dispatch.
type ComputeContext struct {
	WorkerID       uint32
	GroupID        [3]uint32
	ThreadsInGroup uint32
	Private        []byte
}

// CsFunc runs one compute thread group.
type CsFunc func(cc *ComputeContext)

// DepthStencilState extends gputypes.DepthStencilState with the enables it
// leaves implicit.
type DepthStencilState struct {
	gputypes.DepthStencilState
	DepthTestEnable   bool
	StencilTestEnable bool
	StencilRef        uint8
}

// BackendState configures how primitives reach the back end.
type BackendState struct {
	// ConstantInterpolationMask selects attributes taken from the
	// provoking vertex (vertex 0).
	ConstantInterpolationMask  uint32
	ReadRenderTargetArrayIndex bool
	ReadViewportArrayIndex     bool
}

// ShadingRate is the frequency the pixel shader runs at.
type ShadingRate uint8

// Shading rates. Coarse shading is not supported.
const (
	ShadingRatePixel ShadingRate = iota
	ShadingRateSample
	ShadingRateCoarse
)

// PixelContext is one pixel or sample handed to a pixel shader.
type PixelContext struct {
	WorkerID uint32
	// X and Y are the screen position of the evaluated sample.
	X, Y        float32
	I, J        float32
	Z           float32
	Sample      uint32
	FrontFacing bool
	Flags       TriFlags
	// Attribs holds the perspective-correct interpolated attributes.
	Attribs [MaxAttributes][4]float32
	Private []byte

	// Color is written by the shader for every render target it outputs.
	Color   [MaxRenderTargets][4]float32
	Discard bool
}

// PixelFunc is a pixel shader.
type PixelFunc func(pc *PixelContext)

// PixelShaderState configures pixel shading.
type PixelShaderState struct {
	Func        PixelFunc
	ShadingRate ShadingRate
	// RenderTargetMask lists the color render targets the shader writes.
	RenderTargetMask uint8
}

// RenderTargetBlendState configures one render target.
type RenderTargetBlendState struct {
	Enable    bool
	Blend     gputypes.BlendState
	WriteMask gputypes.ColorWriteMask
}

// BlendState configures the output merger.
type BlendState struct {
	Constant gputypes.Color
	// SampleMask disables samples whose bit is clear.
	SampleMask   uint32
	RenderTarget [MaxRenderTargets]RenderTargetBlendState
}

// BlendFunc blends a shaded color into a render target.
type BlendFunc func(state *BlendState, rt uint32, src, dst [4]float32) [4]float32

// RastState configures rasterization.
type RastState struct {
	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace
	PointSize float32
	// PointParam takes the point size from the vertex.
	PointParam    bool
	LineWidth     float32
	ScissorEnable bool
	// SampleCount is 1, 2, 4, 8 or 16.
	SampleCount uint32
	// SamplePattern overrides the standard positions when
	// CustomSamplePattern is set.
	CustomSamplePattern bool
	SamplePattern       SamplePattern
	ClipDistanceMask    uint8
}

// Viewport is a screen-space viewport.
type Viewport struct {
	X, Y, Width, Height float32
	MinZ, MaxZ          float32
}

// ViewportMatrix maps NDC to screen space:
// x' = x*M00 + M30, y' = y*M11 + M31, z' = z*M22 + M32.
type ViewportMatrix struct {
	M00, M11, M22 float32
	M30, M31, M32 float32
}

// Rect is a half-open pixel rectangle.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Guardband holds the guardband extents relative to viewport 0.
type Guardband struct {
	Left, Right, Top, Bottom float32
}

// APIState is everything the state setters configure.
type APIState struct {
	VertexBuffers [MaxVertexBuffers]VertexBuffer
	IndexBuffer   IndexBuffer

	FetchFunc  FetchFunc
	VertexFunc VertexFunc
	SoFuncs    [MaxSoStreams]SoFunc
	SoState    SoState
	SoBuffers  [MaxSoBuffers]SoBuffer
	GsState    GsState
	GsFunc     GsFunc
	TsState    TsState
	HsFunc     HsFunc
	DsFunc     DsFunc
	CsFunc     CsFunc

	ThreadsInGroup uint32

	Frontend     FrontendState
	DepthStencil DepthStencilState
	Backend      BackendState
	PixelShader  PixelShaderState
	Blend        BlendState
	BlendFuncs   [MaxRenderTargets]BlendFunc
	Rast         RastState

	LinkageMask  uint32
	LinkageCount uint32
	LinkageMap   [MaxAttributes]uint8

	Viewports      [MaxViewports]Viewport
	ViewportMatrix [MaxViewports]ViewportMatrix
	Guardband      Guardband
	Scissors       [MaxViewports]Rect

	Surfaces hottile.Surfaces

	Topology    Topology
	ForceFront  bool
	EnableStats bool
}

func defaultAPIState() APIState {
	s := APIState{}
	s.Rast.CullMode = gputypes.CullModeNone
	s.Rast.FrontFace = gputypes.FrontFaceCCW
	s.Rast.PointSize = defaultPointSize
	s.Rast.LineWidth = defaultLineWidth
	s.Rast.SampleCount = 1
	s.Blend.SampleMask = ^uint32(0)
	for i := range s.Blend.RenderTarget {
		s.Blend.RenderTarget[i].Blend = gputypes.BlendStateReplace()
		s.Blend.RenderTarget[i].WriteMask = gputypes.ColorWriteMaskAll
	}
	s.DepthStencil.DepthStencilState = gputypes.DefaultDepthStencilState(gputypes.TextureFormatDepth32Float)
	s.DepthStencil.DepthWriteEnabled = false
	return s
}
