package swrast

import (
	"math/bits"

	"github.com/gogpu/gputypes"
	"golang.org/x/exp/constraints"

	"github.com/gogpu/swrast/internal/raster"
)

const pixelsPerTile = raster.TileXDim * raster.TileYDim

// nullBackend is the back end of draws without a pixel shader. It applies
// the sample mask and user clip distances, then runs the depth and stencil
// tests and writes.
func nullBackend(dc *DrawContext, workerID, x, y uint32, tri *TriangleDesc, bufs *RenderBuffers) {
	ds := dc.state
	api := &ds.api
	var passed uint64
	for s := range tri.NumSamples {
		if ds.sampleMasked[s] {
			continue
		}
		sx, sy := ds.samplePosX[s], ds.samplePosY[s]
		for m := uint64(tri.Coverage[s]); m != 0; m &= m - 1 {
			bit := uint32(bits.TrailingZeros64(m))
			px, py := raster.PixelOf(bit)
			i, j := barycentrics(tri, float32(x+px)+sx, float32(y+py)+sy)
			if clipped(tri, i, j) {
				continue
			}
			z := tri.Z[0]*i + tri.Z[1]*j + tri.Z[2]
			if depthStencil(api, bufs, s*pixelsPerTile+bit, z, tri.Flags.FrontFacing) {
				passed++
			}
		}
	}
	if api.EnableStats {
		dc.ctx.workers[workerID].stats.depthPassCount.Add(passed)
	}
}

// DefaultBackendSelector returns the built-in shading back end. It runs
// the pixel shader once per covered pixel or sample, tests depth and
// stencil and writes or blends the shader's colors into the render targets.
func DefaultBackendSelector(key BackendKey) BackendFunc {
	perSample := key.Rate == ShadingRateSample
	maxRT := key.MaxRTSlot
	return func(dc *DrawContext, workerID, x, y uint32, tri *TriangleDesc, bufs *RenderBuffers) {
		shadeTile(dc, workerID, x, y, tri, bufs, perSample, maxRT)
	}
}

func shadeTile(dc *DrawContext, workerID, x, y uint32, tri *TriangleDesc, bufs *RenderBuffers, perSample bool, maxRT uint32) {
	ds := dc.state
	api := &ds.api
	w := &dc.ctx.workers[workerID]
	pc := &w.pixel
	var psCount, passCount uint64

	if perSample {
		for s := range tri.NumSamples {
			if ds.sampleMasked[s] {
				continue
			}
			sx, sy := ds.samplePosX[s], ds.samplePosY[s]
			for m := uint64(tri.Coverage[s]); m != 0; m &= m - 1 {
				bit := uint32(bits.TrailingZeros64(m))
				px, py := raster.PixelOf(bit)
				fx, fy := float32(x+px)+sx, float32(y+py)+sy
				i, j := barycentrics(tri, fx, fy)
				if clipped(tri, i, j) {
					continue
				}
				z := tri.Z[0]*i + tri.Z[1]*j + tri.Z[2]
				if !depthStencil(api, bufs, s*pixelsPerTile+bit, z, tri.Flags.FrontFacing) {
					continue
				}
				passCount++
				psCount++
				if runPixelShader(dc, w, tri, fx, fy, i, j, z, s) {
					writeColors(api, bufs, s*pixelsPerTile+bit, pc, maxRT)
				}
			}
		}
	} else {
		var covered uint64
		for s := range tri.NumSamples {
			if !ds.sampleMasked[s] {
				covered |= uint64(tri.Coverage[s])
			}
		}
		for ; covered != 0; covered &= covered - 1 {
			bit := uint32(bits.TrailingZeros64(covered))
			px, py := raster.PixelOf(bit)
			fx, fy := float32(x+px)+0.5, float32(y+py)+0.5

			// Depth is tested per sample; the shader runs once for the
			// pixel if any sample survives.
			var live uint32
			for s := range tri.NumSamples {
				if ds.sampleMasked[s] || uint64(tri.Coverage[s])&(1<<bit) == 0 {
					continue
				}
				si, sj := barycentrics(tri, float32(x+px)+ds.samplePosX[s], float32(y+py)+ds.samplePosY[s])
				if clipped(tri, si, sj) {
					continue
				}
				z := tri.Z[0]*si + tri.Z[1]*sj + tri.Z[2]
				if depthStencil(api, bufs, s*pixelsPerTile+bit, z, tri.Flags.FrontFacing) {
					live |= 1 << s
					passCount++
				}
			}
			if live == 0 {
				continue
			}
			i, j := barycentrics(tri, fx, fy)
			z := tri.Z[0]*i + tri.Z[1]*j + tri.Z[2]
			psCount++
			if !runPixelShader(dc, w, tri, fx, fy, i, j, z, 0) {
				continue
			}
			for ; live != 0; live &= live - 1 {
				s := uint32(bits.TrailingZeros32(live))
				writeColors(api, bufs, s*pixelsPerTile+bit, pc, maxRT)
			}
		}
	}

	if api.EnableStats {
		w.stats.psInvocations.Add(psCount)
		w.stats.depthPassCount.Add(passCount)
	}
}

// runPixelShader interpolates the attributes at (i, j) and runs the shader.
// It reports false when the shader discarded the pixel.
func runPixelShader(dc *DrawContext, w *worker, tri *TriangleDesc, fx, fy, i, j, z float32, sample uint32) bool {
	pc := &w.pixel
	pc.WorkerID = w.id
	pc.X, pc.Y = fx, fy
	pc.I, pc.J = i, j
	pc.Z = z
	pc.Sample = sample
	pc.FrontFacing = tri.Flags.FrontFacing
	pc.Flags = tri.Flags
	pc.Private = dc.state.private
	pc.Discard = false
	pc.Color = [MaxRenderTargets][4]float32{}

	k := 1 - i - j
	oneOverW := tri.OneOverW[0]*i + tri.OneOverW[1]*j + tri.OneOverW[2]
	rw := float32(1)
	if oneOverW != 0 {
		rw = 1 / oneOverW
	}
	for a := range tri.NumAttribs {
		p := tri.PerspAttribs[a*12 : a*12+12]
		for comp := range 4 {
			pc.Attribs[a][comp] = (p[comp]*i + p[4+comp]*j + p[8+comp]*k) * rw
		}
	}

	dc.state.api.PixelShader.Func(pc)
	return !pc.Discard
}

// writeColors merges the shader's colors into sample idx of every written
// render target.
func writeColors(api *APIState, bufs *RenderBuffers, idx uint32, pc *PixelContext, maxRT uint32) {
	for rt := range maxRT + 1 {
		if api.PixelShader.RenderTargetMask&(1<<rt) == 0 || bufs.Color[rt] == nil {
			continue
		}
		dst := bufs.ColorValues(int(rt))[idx*4 : idx*4+4]
		src := pc.Color[rt]
		rts := &api.Blend.RenderTarget[rt]
		out := src
		if rts.Enable {
			var cur [4]float32
			copy(cur[:], dst)
			if f := api.BlendFuncs[rt]; f != nil {
				out = f(&api.Blend, rt, src, cur)
			} else {
				out = blend(&rts.Blend, api.Blend.Constant, src, cur)
			}
		}
		wm := rts.WriteMask
		if wm&gputypes.ColorWriteMaskRed != 0 {
			dst[0] = out[0]
		}
		if wm&gputypes.ColorWriteMaskGreen != 0 {
			dst[1] = out[1]
		}
		if wm&gputypes.ColorWriteMaskBlue != 0 {
			dst[2] = out[2]
		}
		if wm&gputypes.ColorWriteMaskAlpha != 0 {
			dst[3] = out[3]
		}
	}
}

func barycentrics(tri *TriangleDesc, x, y float32) (i, j float32) {
	i = (tri.I[0]*x + tri.I[1]*y + tri.I[2]) * tri.RecipDet
	j = (tri.J[0]*x + tri.J[1]*y + tri.J[2]) * tri.RecipDet
	return i, j
}

// clipped reports whether any enabled user clip distance is negative at
// (i, j).
func clipped(tri *TriangleDesc, i, j float32) bool {
	n := bits.OnesCount8(tri.ClipDistanceMask)
	if n == 0 || len(tri.UserClip) < n*3 {
		return false
	}
	for d := range n {
		c := tri.UserClip[d*3 : d*3+3]
		if c[0]*i+c[1]*j+c[2] < 0 {
			return true
		}
	}
	return false
}

// depthStencil runs the stencil and depth tests for one sample and applies
// their writes. It reports whether the sample survived.
func depthStencil(api *APIState, bufs *RenderBuffers, idx uint32, z float32, front bool) bool {
	dss := &api.DepthStencil
	var depth []float32
	if bufs.Depth != nil {
		depth = bufs.DepthValues()
	}

	depthPass := true
	if dss.DepthTestEnable && depth != nil {
		depthPass = compare(dss.DepthCompare, z, depth[idx])
	}

	if dss.StencilTestEnable && bufs.Stencil != nil {
		face := &dss.StencilFront
		if !front {
			face = &dss.StencilBack
		}
		cur := uint32(bufs.Stencil[idx])
		rm := dss.StencilReadMask
		stencilPass := compare(face.Compare, uint32(dss.StencilRef)&rm, cur&rm)

		op := face.PassOp
		switch {
		case !stencilPass:
			op = face.FailOp
		case !depthPass:
			op = face.DepthFailOp
		}
		nv := stencilOp(op, cur, uint32(dss.StencilRef))
		wm := dss.StencilWriteMask & 0xff
		bufs.Stencil[idx] = uint8(cur&^wm | nv&wm)
		if !stencilPass {
			return false
		}
	}

	if !depthPass {
		return false
	}
	if dss.DepthWriteEnabled && depth != nil {
		depth[idx] = z
	}
	return true
}

func compare[T constraints.Ordered](f gputypes.CompareFunction, src, dst T) bool {
	switch f {
	case gputypes.CompareFunctionNever:
		return false
	case gputypes.CompareFunctionLess:
		return src < dst
	case gputypes.CompareFunctionEqual:
		return src == dst
	case gputypes.CompareFunctionLessEqual:
		return src <= dst
	case gputypes.CompareFunctionGreater:
		return src > dst
	case gputypes.CompareFunctionNotEqual:
		return src != dst
	case gputypes.CompareFunctionGreaterEqual:
		return src >= dst
	}
	return true
}

func stencilOp(op gputypes.StencilOperation, cur, ref uint32) uint32 {
	switch op {
	case gputypes.StencilOperationZero:
		return 0
	case gputypes.StencilOperationReplace:
		return ref
	case gputypes.StencilOperationInvert:
		return ^cur & 0xff
	case gputypes.StencilOperationIncrementClamp:
		return min(cur+1, 0xff)
	case gputypes.StencilOperationDecrementClamp:
		if cur == 0 {
			return 0
		}
		return cur - 1
	case gputypes.StencilOperationIncrementWrap:
		return (cur + 1) & 0xff
	case gputypes.StencilOperationDecrementWrap:
		return (cur - 1) & 0xff
	}
	return cur
}

// blend applies a WebGPU blend state to one color.
func blend(bs *gputypes.BlendState, constant gputypes.Color, src, dst [4]float32) [4]float32 {
	k := [4]float32{float32(constant.R), float32(constant.G), float32(constant.B), float32(constant.A)}
	var out [4]float32
	for c := range 4 {
		comp := &bs.Color
		if c == 3 {
			comp = &bs.Alpha
		}
		sf := blendFactor(comp.SrcFactor, c, src, dst, k)
		df := blendFactor(comp.DstFactor, c, src, dst, k)
		s, d := src[c]*sf, dst[c]*df
		switch comp.Operation {
		case gputypes.BlendOperationSubtract:
			out[c] = s - d
		case gputypes.BlendOperationReverseSubtract:
			out[c] = d - s
		case gputypes.BlendOperationMin:
			out[c] = min(src[c], dst[c])
		case gputypes.BlendOperationMax:
			out[c] = max(src[c], dst[c])
		default:
			out[c] = s + d
		}
	}
	return out
}

func blendFactor(f gputypes.BlendFactor, c int, src, dst, k [4]float32) float32 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorOne:
		return 1
	case gputypes.BlendFactorSrc:
		return src[c]
	case gputypes.BlendFactorOneMinusSrc:
		return 1 - src[c]
	case gputypes.BlendFactorSrcAlpha:
		return src[3]
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 1 - src[3]
	case gputypes.BlendFactorDst:
		return dst[c]
	case gputypes.BlendFactorOneMinusDst:
		return 1 - dst[c]
	case gputypes.BlendFactorDstAlpha:
		return dst[3]
	case gputypes.BlendFactorOneMinusDstAlpha:
		return 1 - dst[3]
	case gputypes.BlendFactorSrcAlphaSaturated:
		if c == 3 {
			return 1
		}
		return min(src[3], 1-dst[3])
	case gputypes.BlendFactorConstant:
		return k[c]
	case gputypes.BlendFactorOneMinusConstant:
		return 1 - k[c]
	}
	return 1
}
