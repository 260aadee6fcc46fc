package swrast

import (
	"sync/atomic"
	"testing"
)

// newTestContext creates a context and closes it when the test ends.
func newTestContext(t testing.TB, opts ...Option) *Context {
	t.Helper()
	c, err := NewContext(opts...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// threadingModes runs a test once single-threaded and once with a pool.
var threadingModes = []struct {
	name string
	opts []Option
}{
	{"single", []Option{WithSingleThreaded()}},
	{"workers", []Option{WithWorkers(4)}},
}

// positions makes a fetch function reading clip-space positions by vertex id.
func positions(pos [][4]float32) FetchFunc {
	return func(fc *FetchContext, v *Vertex) {
		v.Position = pos[fc.VertexID]
	}
}

var unitTriangle = [][4]float32{
	{-1, 1, 0.5, 1},
	{1, 1, 0.5, 1},
	{-1, -1, 0.5, 1},
}

// =============================================================================
// Draw ids and retirement
// =============================================================================

func TestContext_DrawIDsIncrease(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())

	var ids []uint64
	for range 5 {
		c.Draw(TriangleList, 0, 3)
		ids = append(ids, c.prev.ID())
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[i-1]+1 {
			t.Fatalf("draw ids %v are not consecutive", ids)
		}
	}
	if c.DrawsEnqueued() != ids[len(ids)-1] {
		t.Errorf("DrawsEnqueued() = %d, want %d", c.DrawsEnqueued(), ids[len(ids)-1])
	}
}

func TestContext_WaitForIdle(t *testing.T) {
	for _, mode := range threadingModes {
		t.Run(mode.name, func(t *testing.T) {
			c := newTestContext(t, mode.opts...)
			c.SetViewports([]Viewport{{Width: 256, Height: 256, MaxZ: 1}}, nil)
			c.SetFetchFunc(positions(unitTriangle))
			c.SetDepthStencilState(DepthStencilState{DepthTestEnable: true})

			for range 50 {
				c.Draw(TriangleList, 0, 3)
			}
			c.WaitForIdle()

			if c.LastRetired() != c.DrawsEnqueued() {
				t.Errorf("LastRetired() = %d, want %d", c.LastRetired(), c.DrawsEnqueued())
			}
		})
	}
}

func TestContext_WaitForIdleEmpty(t *testing.T) {
	c := newTestContext(t, WithWorkers(2))
	c.WaitForIdle()
	if c.LastRetired() != 0 {
		t.Errorf("LastRetired() = %d, want 0", c.LastRetired())
	}
}

func TestContext_RingWrap(t *testing.T) {
	for _, mode := range threadingModes {
		t.Run(mode.name, func(t *testing.T) {
			opts := append([]Option{WithMaxDrawsInFlight(2)}, mode.opts...)
			c := newTestContext(t, opts...)
			c.SetViewports([]Viewport{{Width: 256, Height: 256, MaxZ: 1}}, nil)
			c.SetFetchFunc(positions(unitTriangle))
			c.SetDepthStencilState(DepthStencilState{DepthTestEnable: true})

			const draws = 200
			for range draws {
				c.Draw(TriangleList, 0, 3)
				if span := c.DrawsEnqueued() - c.LastRetired(); span > 2 {
					t.Fatalf("%d draws outstanding in a ring of 2", span)
				}
			}
			c.WaitForIdle()
			if c.LastRetired() != draws {
				t.Errorf("LastRetired() = %d, want %d", c.LastRetired(), draws)
			}
		})
	}
}

func TestContext_CloseIdempotent(t *testing.T) {
	c, err := NewContext(WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}
	c.Draw(TriangleList, 0, 0)
	c.Close()
	c.Close()
}

// =============================================================================
// Sync and stats
// =============================================================================

func TestContext_SyncAfterPriorWork(t *testing.T) {
	for _, mode := range threadingModes {
		t.Run(mode.name, func(t *testing.T) {
			c := newTestContext(t, mode.opts...)
			c.SetViewports([]Viewport{{Width: 64, Height: 64, MaxZ: 1}}, nil)
			c.SetFetchFunc(positions(unitTriangle))

			var shaded atomic.Int64
			c.SetVertexFunc(func(vc *VertexContext, v *Vertex) {
				shaded.Add(1)
			})

			const draws = 20
			for range draws {
				c.Draw(TriangleList, 0, 3)
			}

			var seen int64 = -1
			var payload []uint64
			c.Sync(func(userData ...uint64) {
				seen = shaded.Load()
				payload = userData
			}, 7, 9)
			c.WaitForIdle()

			if seen != draws*3 {
				t.Errorf("sync saw %d shaded vertices, want %d", seen, draws*3)
			}
			if len(payload) != 2 || payload[0] != 7 || payload[1] != 9 {
				t.Errorf("sync user data = %v, want [7 9]", payload)
			}
		})
	}
}

func TestContext_SyncDependency(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	c.Draw(TriangleList, 0, 3)
	c.Sync(nil)
	if got, want := c.prev.dependency, c.prev.ID()-1; got != want {
		t.Errorf("sync dependency = %d, want %d", got, want)
	}
}

func TestContext_GetStats(t *testing.T) {
	for _, mode := range threadingModes {
		t.Run(mode.name, func(t *testing.T) {
			c := newTestContext(t, mode.opts...)
			c.SetViewports([]Viewport{{Width: 64, Height: 64, MaxZ: 1}}, nil)
			quad := [][4]float32{
				{-1, 1, 0, 1}, {1, 1, 0, 1}, {-1, -1, 0, 1},
				{1, 1, 0, 1}, {1, -1, 0, 1}, {-1, -1, 0, 1},
			}
			c.SetFetchFunc(positions(quad))
			c.SetDepthStencilState(DepthStencilState{DepthTestEnable: true})
			c.EnableStats(true)
			c.Draw(TriangleList, 0, 6)

			var st Stats
			c.GetStats(&st)
			c.WaitForIdle()

			if st.IaVertices != 6 || st.VsInvocations != 6 {
				t.Errorf("vertices %d, vs invocations %d, want 6 6", st.IaVertices, st.VsInvocations)
			}
			if st.IaPrimitives != 2 || st.CPrimitives != 2 {
				t.Errorf("primitives %d, culled-in %d, want 2 2", st.IaPrimitives, st.CPrimitives)
			}
			if st.DepthPassCount != 64*64 {
				t.Errorf("DepthPassCount = %d, want %d", st.DepthPassCount, 64*64)
			}
			if st.BackendCalls == 0 || st.RasterPrimitives == 0 {
				t.Errorf("rasterizer counters not collected: %+v", st)
			}
		})
	}
}

// =============================================================================
// Compute
// =============================================================================

func TestDispatch_RunsEachGroupOnce(t *testing.T) {
	for _, mode := range threadingModes {
		t.Run(mode.name, func(t *testing.T) {
			c := newTestContext(t, mode.opts...)
			const gx, gy, gz = 4, 3, 2
			var runs [gx * gy * gz]atomic.Int32
			c.SetCsFunc(func(cc *ComputeContext) {
				g := cc.GroupID
				runs[g[2]*gx*gy+g[1]*gx+g[0]].Add(1)
			}, 64)
			c.EnableStats(true)
			c.Dispatch(gx, gy, gz)

			var st Stats
			c.GetStats(&st)
			c.WaitForIdle()

			for i := range runs {
				if n := runs[i].Load(); n != 1 {
					t.Errorf("group %d ran %d times", i, n)
				}
			}
			if st.CsInvocations != gx*gy*gz*64 {
				t.Errorf("CsInvocations = %d, want %d", st.CsInvocations, gx*gy*gz*64)
			}
		})
	}
}

func TestDispatch_Empty(t *testing.T) {
	c := newTestContext(t, WithWorkers(2))
	c.Dispatch(0, 4, 4)
	c.WaitForIdle()
	if c.LastRetired() != c.DrawsEnqueued() {
		t.Errorf("empty dispatch did not retire: %d of %d", c.LastRetired(), c.DrawsEnqueued())
	}
}

// =============================================================================
// Private state and per-draw memory
// =============================================================================

func TestPrivateContextState(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded(), WithPrivateStateSize(16))

	p := c.PrivateContextState()
	if len(p) != 16 {
		t.Fatalf("len(PrivateContextState()) = %d, want 16", len(p))
	}
	copy(p, "driver state 123")
	c.Draw(TriangleList, 0, 3)

	q := c.PrivateContextState()
	if string(q) != "driver state 123" {
		t.Errorf("private state of next draw = %q", q)
	}
	if &p[0] == &q[0] {
		t.Error("next draw shares the private state instead of copying it")
	}
}

func TestPrivateContextState_Disabled(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	if p := c.PrivateContextState(); p != nil {
		t.Errorf("PrivateContextState() = %v, want nil", p)
	}
}

func TestAllocDrawContextMemory(t *testing.T) {
	c := newTestContext(t, WithSingleThreaded())
	b := c.AllocDrawContextMemory(100, 64)
	if len(b) != 100 {
		t.Errorf("len = %d, want 100", len(b))
	}
}
