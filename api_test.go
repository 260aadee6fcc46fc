package swrast

import (
	"encoding/binary"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gputypes"
)

// =============================================================================
// Draw splitting
// =============================================================================

func TestDraw_Splits(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded(), WithMaxPrimsPerDraw(4))

	before := c.DrawsEnqueued()
	c.Draw(TriangleList, 0, 9)
	// 4 prims round down to 3 vertices per draw.
	if got := c.DrawsEnqueued() - before; got != 3 {
		t.Fatalf("draw split into %d contexts, want 3", got)
	}

	first := c.slot(before + 1)
	for id := before + 1; id <= c.DrawsEnqueued(); id++ {
		dc := c.slot(id)
		if dc.state != first.state {
			t.Errorf("draw %d does not share the state of the first split", id)
		}
		if id > before+1 && dc.ownership != stateAliased {
			t.Errorf("draw %d ownership = %d, want aliased", id, dc.ownership)
		}
		k := uint32(id - before - 1)
		if dc.work.draw.startVertex != k*3 || dc.work.draw.startPrimID != k {
			t.Errorf("draw %d starts at vertex %d prim %d", id, dc.work.draw.startVertex, dc.work.draw.startPrimID)
		}
	}
	if first.ownership != stateOwned {
		t.Error("first split does not own its state")
	}
	if c.cur == nil || c.cur.state == first.state {
		t.Error("context after a split draw must own a fresh state")
	}
}

func TestDraw_StripsNotSplit(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded(), WithMaxPrimsPerDraw(3))
	before := c.DrawsEnqueued()
	c.Draw(TriangleStrip, 0, 30)
	if got := c.DrawsEnqueued() - before; got != 1 {
		t.Errorf("strip split into %d contexts, want 1", got)
	}
}

func TestDraw_StreamOutDisablesSplit(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded(), WithMaxPrimsPerDraw(3))

	var prims atomic.Int32
	var ids []uint32
	c.SetSoState(SoState{Enable: true})
	c.SetSoFunc(func(so *StreamOutContext) {
		prims.Add(1)
		ids = append(ids, so.PrimitiveID)
	}, 0)

	before := c.DrawsEnqueued()
	c.Draw(TriangleList, 0, 9)
	c.WaitForIdle()

	if got := c.DrawsEnqueued() - before; got != 1 {
		t.Errorf("stream-out draw split into %d contexts, want 1", got)
	}
	if prims.Load() != 3 {
		t.Errorf("stream-out saw %d primitives, want 3", prims.Load())
	}
	for i, id := range ids {
		if id != uint32(i) {
			t.Errorf("primitive ids = %v, want 0 1 2", ids)
			break
		}
	}
}

func TestDraw_SplitPrimitiveIDs(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded(), WithMaxPrimsPerDraw(6))

	before := c.DrawsEnqueued()
	c.Draw(PointList, 4, 10)
	if got := c.DrawsEnqueued() - before; got != 2 {
		t.Fatalf("point draw split into %d contexts, want 2", got)
	}
	tests := []struct {
		id                         uint64
		startVertex, verts, primID uint32
	}{
		{before + 1, 4, 6, 0},
		{before + 2, 10, 4, 6},
	}
	for _, tt := range tests {
		d := c.slot(tt.id).work.draw
		if d.startVertex != tt.startVertex || d.numVerts != tt.verts || d.startPrimID != tt.primID {
			t.Errorf("draw %d: start %d verts %d prim %d, want %d %d %d",
				tt.id, d.startVertex, d.numVerts, d.startPrimID, tt.startVertex, tt.verts, tt.primID)
		}
	}
}

func TestDraw_PointListRestoresCull(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	rs := defaultAPIState().Rast
	rs.CullMode = gputypes.CullModeBack
	c.SetRastState(rs)

	c.Draw(PointList, 0, 1)

	st := &c.prev.state.api
	if st.Rast.CullMode != gputypes.CullModeNone || !st.ForceFront {
		t.Errorf("point draw: cull %v forceFront %v, want None true", st.Rast.CullMode, st.ForceFront)
	}
	if got := c.apiState().Rast.CullMode; got != gputypes.CullModeBack {
		t.Errorf("cull mode after point draw = %v, want Back", got)
	}

	c.Draw(TriangleList, 0, 3)
	if c.prev.state.api.ForceFront {
		t.Error("triangle draw after points is forced front facing")
	}
}

func TestDrawIndexed_AdvancesIndices(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded(), WithMaxPrimsPerDraw(3))

	idx := make([]byte, 2*8)
	for i := range 8 {
		binary.LittleEndian.PutUint16(idx[i*2:], uint16(7-i))
	}
	c.SetIndexBuffer(IndexBuffer{Format: gputypes.IndexFormatUint16, Data: idx})

	var seen []uint32
	c.SetFetchFunc(func(fc *FetchContext, v *Vertex) { seen = append(seen, fc.VertexID) })
	c.DrawIndexed(TriangleList, 6, 2, 10)
	c.WaitForIdle()

	want := []uint32{15, 14, 13, 12, 11, 10}
	if len(seen) != len(want) {
		t.Fatalf("fetched %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("fetched %v, want %v", seen, want)
		}
	}
}

func TestDrawIndexed_OutOfRangePanics(t *testing.T) {
	tests := []struct {
		name                    string
		numIndices, indexOffset uint32
	}{
		{"past end", 6, 0},
		{"offset past end", 3, 2},
		{"wrapping offset", 2, math.MaxUint32},
		{"wrapping count", math.MaxUint32, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t, WithSingleThreaded())
			c.SetIndexBuffer(IndexBuffer{Format: gputypes.IndexFormatUint32, Data: make([]byte, 12)})
			defer func() {
				msg, _ := recover().(string)
				if !strings.Contains(msg, "beyond index buffer") {
					t.Errorf("panic = %q, want index buffer range message", msg)
				}
			}()
			c.DrawIndexed(TriangleList, tt.numIndices, tt.indexOffset, 0)
		})
	}
}

func TestDrawInstanced_InstanceIDs(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	var got []uint32
	c.SetVertexFunc(func(vc *VertexContext, v *Vertex) {
		if vc.VertexID == 0 {
			got = append(got, vc.InstanceID)
		}
	})
	c.DrawInstanced(TriangleList, 3, 4, 0, 2)
	c.WaitForIdle()
	if len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Errorf("instance ids = %v, want 0..3", got)
	}
}

// =============================================================================
// State setters
// =============================================================================

func TestSetLinkage(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())

	c.SetLinkage(0b1010, nil)
	api := c.apiState()
	if api.LinkageCount != 2 || api.LinkageMap[0] != 1 || api.LinkageMap[1] != 3 {
		t.Errorf("linkage count %d map %v", api.LinkageCount, api.LinkageMap[:2])
	}

	c.SetLinkage(0b11, []uint8{5, 4})
	if api.LinkageMap[0] != 5 || api.LinkageMap[1] != 4 {
		t.Errorf("explicit linkage map %v", api.LinkageMap[:2])
	}
}

func TestSetViewports_Matrix(t *testing.T) {
	vp := Viewport{X: 10, Y: 20, Width: 100, Height: 50, MinZ: 0, MaxZ: 1}
	tests := []struct {
		driver DriverType
		want   ViewportMatrix
	}{
		{DriverDX, ViewportMatrix{M00: 50, M11: -25, M22: 1, M30: 60, M31: 45, M32: 0}},
		{DriverGL, ViewportMatrix{M00: 50, M11: -25, M22: 0.5, M30: 60, M31: 45, M32: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.driver.String(), func(t *testing.T) {
			c := newTestContext(t, WithSingleThreaded(), WithDriver(tt.driver))
			c.SetViewports([]Viewport{vp}, nil)
			api := c.apiState()
			if api.ViewportMatrix[0] != tt.want {
				t.Errorf("matrix = %+v, want %+v", api.ViewportMatrix[0], tt.want)
			}
			if api.Guardband.Left != 32768.0/100 || api.Guardband.Top != 32768.0/50 {
				t.Errorf("guardband = %+v", api.Guardband)
			}
		})
	}
}

func TestSetters_SlotLimitsPanic(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	tests := []struct {
		name string
		fn   func()
	}{
		{"vertex buffers", func() { c.SetVertexBuffers(MaxVertexBuffers-1, VertexBuffer{}, VertexBuffer{}) }},
		{"so stream", func() { c.SetSoFunc(nil, MaxSoStreams) }},
		{"so buffer", func() { c.SetSoBuffers(SoBuffer{}, MaxSoBuffers) }},
		{"blend func", func() { c.SetBlendFunc(MaxRenderTargets, nil) }},
		{"viewports", func() { c.SetViewports(make([]Viewport, MaxViewports+1), nil) }},
		{"scissors", func() { c.SetScissorRects(make([]Rect, MaxViewports+1)) }},
		{"render target", func() { c.SetRenderTarget(AttachmentStencil+1, nil) }},
		{"sample count", func() { c.SetRastState(RastState{SampleCount: 3}) }},
		{"linkage map", func() { c.SetLinkage(0b111, []uint8{0}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("did not panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestStateCopiedBetweenDraws(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	c.SetScissorRects([]Rect{{Left: 1, Top: 2, Right: 3, Bottom: 4}})
	c.Draw(TriangleList, 0, 3)
	c.SetScissorRects([]Rect{{Left: 5, Top: 6, Right: 7, Bottom: 8}})

	if got := c.prev.state.api.Scissors[0]; got != (Rect{1, 2, 3, 4}) {
		t.Errorf("submitted draw sees scissor %+v after a later change", got)
	}
	if got := c.apiState().Scissors[0]; got != (Rect{5, 6, 7, 8}) {
		t.Errorf("open draw scissor = %+v", got)
	}
}

func TestAcquireDraw_SplitWhileOpenPanics(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	c.apiState()
	defer func() {
		if recover() == nil {
			t.Error("split acquire with an open context did not panic")
		}
	}()
	c.acquireDraw(true)
}
