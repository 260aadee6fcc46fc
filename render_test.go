package swrast

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"honnef.co/go/safeish"

	"github.com/gogpu/swrast/internal/raster"
)

// frame is a linear surface the store callback copies sample 0 into.
type frame struct {
	w, h  int
	color [][4]float32
	depth []float32
}

func newFrame(w, h int) *frame {
	return &frame{w: w, h: h, color: make([][4]float32, w*h), depth: make([]float32, w*h)}
}

func storeToFrame(s Surface, att Attachment, macroX, macroY, rtai uint32, t *HotTile) {
	f := s.(*frame)
	vals := safeish.SliceCast[[]float32](t.Buffer)
	for ly := range uint32(raster.MacroTileYDim) {
		for lx := range uint32(raster.MacroTileXDim) {
			x := int(macroX*raster.MacroTileXDim + lx)
			y := int(macroY*raster.MacroTileYDim + ly)
			if x >= f.w || y >= f.h {
				continue
			}
			tile := (ly/raster.TileYDim)*raster.TilesPerMacroTileX + lx/raster.TileXDim
			idx := tile*t.NumSamples*64 + raster.BitIndex(lx%raster.TileXDim, ly%raster.TileYDim)
			switch att {
			case AttachmentColor0:
				copy(f.color[y*f.w+x][:], vals[idx*4:idx*4+4])
			case AttachmentDepth:
				f.depth[y*f.w+x] = vals[idx]
			}
		}
	}
}

// coloredVerts is a fetch function over positions and a color in
// attribute 0.
func coloredVerts(pos [][4]float32, col [][4]float32) FetchFunc {
	return func(fc *FetchContext, v *Vertex) {
		v.Position = pos[fc.VertexID]
		v.Attribs[0] = col[fc.VertexID]
	}
}

func copyColor(pc *PixelContext) { pc.Color[0] = pc.Attribs[0] }

// quadGrid tiles NDC with n*n quads, two triangles each, every quad in its
// own flat color, followed by one overlapping triangle.
func quadGrid(n int) (pos, col [][4]float32) {
	step := 2 / float32(n)
	for qy := range n {
		for qx := range n {
			x0, y0 := -1+float32(qx)*step, 1-float32(qy)*step
			x1, y1 := x0+step, y0-step
			c := [4]float32{float32(qx) / float32(n), float32(qy) / float32(n), 0.25, 1}
			for _, p := range [][2]float32{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y0}, {x1, y1}, {x0, y1}} {
				pos = append(pos, [4]float32{p[0], p[1], 0.5, 1})
				col = append(col, c)
			}
		}
	}
	for _, p := range [][2]float32{{-0.5, 0.5}, {0.7, 0.2}, {-0.1, -0.8}} {
		pos = append(pos, [4]float32{p[0], p[1], 0.5, 1})
		col = append(col, [4]float32{1, 1, 1, 1})
	}
	return pos, col
}

const renderSize = 128

func renderGrid(t *testing.T, opts ...Option) *frame {
	t.Helper()
	f := newFrame(renderSize, renderSize)
	opts = append(opts, WithTileCallbacks(TileCallbacks{Store: storeToFrame}))
	c := newTestContext(t, opts...)

	pos, col := quadGrid(4)
	c.SetRenderTarget(AttachmentColor0, f)
	c.SetViewports([]Viewport{{Width: renderSize, Height: renderSize, MaxZ: 1}}, nil)
	c.SetFetchFunc(coloredVerts(pos, col))
	c.SetLinkage(1, nil)
	c.SetPixelShaderState(PixelShaderState{Func: copyColor, RenderTargetMask: 1})

	c.ClearRenderTarget(MaskOf(AttachmentColor0), gputypes.Color{B: 1, A: 1}, 1, 0)
	c.Draw(TriangleList, 0, uint32(len(pos)-3))
	c.Draw(TriangleList, uint32(len(pos)-3), 3)
	c.StoreTiles(AttachmentColor0, TileResolved)
	c.WaitForIdle()
	return f
}

// =============================================================================
// End-to-end rendering
// =============================================================================

func TestRender_ThreadingIndependent(t *testing.T) {
	want := renderGrid(t, WithSingleThreaded())

	variants := []struct {
		name string
		opts []Option
	}{
		{"workers", []Option{WithWorkers(4)}},
		{"split single", []Option{WithSingleThreaded(), WithMaxPrimsPerDraw(3)}},
		{"split workers", []Option{WithWorkers(4), WithMaxPrimsPerDraw(3), WithMaxDrawsInFlight(4)}},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			got := renderGrid(t, v.opts...)
			for i := range want.color {
				if got.color[i] != want.color[i] {
					t.Fatalf("pixel (%d, %d) = %v, want %v", i%renderSize, i/renderSize, got.color[i], want.color[i])
				}
			}
		})
	}
}

func TestRender_PrimitiveIDs(t *testing.T) {
	for _, opts := range [][]Option{
		{WithSingleThreaded()},
		{WithWorkers(4), WithMaxPrimsPerDraw(3)},
	} {
		f := newFrame(renderSize, renderSize)
		c := newTestContext(t, append(opts, WithTileCallbacks(TileCallbacks{Store: storeToFrame}))...)
		pos, col := quadGrid(4)
		c.SetRenderTarget(AttachmentColor0, f)
		c.SetViewports([]Viewport{{Width: renderSize, Height: renderSize, MaxZ: 1}}, nil)
		c.SetFetchFunc(coloredVerts(pos, col))
		c.SetPixelShaderState(PixelShaderState{
			Func:             func(pc *PixelContext) { pc.Color[0] = [4]float32{float32(pc.Flags.PrimitiveID), 0, 0, 1} },
			RenderTargetMask: 1,
		})
		c.Draw(TriangleList, 0, uint32(len(pos)-3))
		c.StoreTiles(AttachmentColor0, TileResolved)
		c.WaitForIdle()

		// Quad q is triangles 2q (upper left half) and 2q+1.
		for q := range 16 {
			x, y := q%4*32, q/4*32
			if got := f.color[(y+4)*renderSize+x+4][0]; got != float32(2*q) {
				t.Errorf("quad %d upper half: primitive %g, want %d", q, got, 2*q)
			}
			if got := f.color[(y+28)*renderSize+x+28][0]; got != float32(2*q+1) {
				t.Errorf("quad %d lower half: primitive %g, want %d", q, got, 2*q+1)
			}
		}
	}
}

func TestRender_QuadColors(t *testing.T) {
	f := renderGrid(t, WithSingleThreaded())

	near := func(a, b [4]float32) bool {
		for i := range a {
			if math.Abs(float64(a[i]-b[i])) > 1e-4 {
				return false
			}
		}
		return true
	}
	tests := []struct {
		x, y int
		want [4]float32
	}{
		{2, 2, [4]float32{0, 0, 0.25, 1}},
		{125, 2, [4]float32{0.75, 0, 0.25, 1}},
		{2, 125, [4]float32{0, 0.75, 0.25, 1}},
		{125, 125, [4]float32{0.75, 0.75, 0.25, 1}},
		// Inside the overlapping triangle, drawn last.
		{58, 48, [4]float32{1, 1, 1, 1}},
	}
	for _, tt := range tests {
		if got := f.color[tt.y*f.w+tt.x]; !near(got, tt.want) {
			t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestRender_ClearOnly(t *testing.T) {
	f := newFrame(renderSize, renderSize)
	c := newTestContext(t, WithWorkers(2), WithTileCallbacks(TileCallbacks{Store: storeToFrame}))
	c.SetRenderTarget(AttachmentColor0, f)
	c.SetViewports([]Viewport{{Width: renderSize, Height: renderSize, MaxZ: 1}}, nil)

	red := gputypes.Color{R: 1, A: 1}
	c.ClearRenderTarget(MaskOf(AttachmentColor0), red, 1, 0)
	c.StoreTiles(AttachmentColor0, TileResolved)
	c.WaitForIdle()

	for i, px := range f.color {
		if px != [4]float32{1, 0, 0, 1} {
			t.Fatalf("pixel %d = %v, want cleared red", i, px)
		}
	}
}

func TestRender_DepthTest(t *testing.T) {
	for _, mode := range threadingModes {
		t.Run(mode.name, func(t *testing.T) {
			f := newFrame(renderSize, renderSize)
			opts := append([]Option{WithTileCallbacks(TileCallbacks{Store: storeToFrame})}, mode.opts...)
			c := newTestContext(t, opts...)

			c.SetRenderTarget(AttachmentDepth, f)
			c.SetViewports([]Viewport{{Width: renderSize, Height: renderSize, MaxZ: 1}}, nil)
			ds := DepthStencilState{DepthTestEnable: true}
			ds.DepthWriteEnabled = true
			ds.DepthCompare = gputypes.CompareFunctionLess
			c.SetDepthStencilState(ds)
			c.ClearRenderTarget(MaskOf(AttachmentDepth), gputypes.Color{}, 1, 0)

			// Upper-left half at 0.5, then the whole screen at 0.75.
			c.SetFetchFunc(positions(unitTriangle))
			c.Draw(TriangleList, 0, 3)
			full := [][4]float32{
				{-1, 1, 0.75, 1}, {1, 1, 0.75, 1}, {-1, -1, 0.75, 1},
				{1, 1, 0.75, 1}, {1, -1, 0.75, 1}, {-1, -1, 0.75, 1},
			}
			c.SetFetchFunc(positions(full))
			c.Draw(TriangleList, 0, 6)
			c.StoreTiles(AttachmentDepth, TileResolved)
			c.WaitForIdle()

			tests := []struct {
				x, y int
				want float32
			}{
				{2, 2, 0.5},
				{100, 10, 0.5},
				{125, 125, 0.75},
				{30, 120, 0.75},
			}
			for _, tt := range tests {
				if got := f.depth[tt.y*f.w+tt.x]; got != tt.want {
					t.Errorf("depth (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
				}
			}
		})
	}
}
