// Package swrast is the concurrent core of a tile-based software rasterizer.
//
// # Overview
//
// A Context turns a stream of draw, dispatch, clear, store and sync commands
// into per-tile coverage and hands every covered tile to a backend. Commands
// are recorded by one API goroutine into a ring of draw contexts and executed
// by a pool of workers:
//
//   - the front end of a draw fetches and shades vertices, assembles
//     primitives, culls them and bins them into 64x64 pixel macrotiles;
//   - the back end rasterizes every macrotile independently, in submission
//     order within a macrotile, writing into hot tiles.
//
// # Quick Start
//
//	ctx, err := swrast.NewContext(swrast.WithWorkers(4))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	ctx.SetViewports([]swrast.Viewport{{Width: 256, Height: 256, MaxZ: 1}}, nil)
//	ctx.SetVertexFunc(func(vc *swrast.VertexContext, v *swrast.Vertex) {
//		v.Position = positions[vc.VertexID]
//	})
//	ctx.SetPixelShaderState(swrast.PixelShaderState{
//		Func:             func(pc *swrast.PixelContext) { pc.Color[0] = [4]float32{1, 0, 0, 1} },
//		RenderTargetMask: 1,
//	})
//	ctx.Draw(swrast.TriangleList, 0, 3)
//	ctx.StoreTiles(swrast.AttachmentColor0, swrast.TileResolved)
//	ctx.WaitForIdle()
//
// # Draw Lifetime
//
// Every command is a draw context with a strictly increasing id. A ring of
// MaxDrawsInFlight contexts bounds how far the API goroutine may run ahead;
// it blocks only when the slot it needs has not retired yet. A draw retires
// once its front end is done and every worker has moved past it. Sync and
// GetStats wait for all earlier draws to retire before their back end runs.
//
// # Coordinate System
//
// Screen space has its origin at the top-left corner with y pointing down.
// Vertex positions are snapped to 1/64 pixel. Samples on an edge shared by
// two triangles belong to exactly one of them (top-left rule).
package swrast
