// Command swrdemo renders a small scene with the swrast tile rasterizer,
// writes it to a PNG file and prints the pipeline statistics.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"honnef.co/go/safeish"

	"github.com/gogpu/swrast"
	"github.com/gogpu/swrast/internal/raster"
)

func main() {
	var (
		width    = flag.Int("width", 512, "image width")
		height   = flag.Int("height", 512, "image height")
		output   = flag.String("output", "swrdemo.png", "output file")
		workers  = flag.Int("workers", 0, "worker goroutines, 0 for GOMAXPROCS")
		single   = flag.Bool("single", false, "run single-threaded on the API goroutine")
		samples  = flag.Uint("samples", 4, "samples per pixel (1, 2, 4, 8 or 16)")
		segments = flag.Int("segments", 48, "triangles per ring")
		verbose  = flag.Bool("v", false, "log pipeline events to stderr")
	)
	flag.Parse()

	img := image.NewRGBA(image.Rect(0, 0, *width, *height))

	opts := []swrast.Option{
		swrast.WithWorkers(*workers),
		swrast.WithTileCallbacks(swrast.TileCallbacks{Store: storeTile}),
	}
	if *single {
		opts = append(opts, swrast.WithSingleThreaded())
	}
	if *verbose {
		opts = append(opts, swrast.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}
	ctx, err := swrast.NewContext(opts...)
	if err != nil {
		log.Fatalf("Failed to create context: %v", err)
	}
	defer ctx.Close()

	start := time.Now()
	var stats swrast.Stats
	renderScene(ctx, img, uint32(*samples), *segments, &stats)
	ctx.WaitForIdle()
	elapsed := time.Since(start)

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		log.Fatalf("Failed to encode: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	p := message.NewPrinter(language.English)
	p.Printf("Rendered %dx%d with %d samples on %d workers in %v\n",
		*width, *height, *samples, ctx.Workers(), elapsed.Round(time.Microsecond))
	p.Printf("  draws enqueued       %d\n", ctx.DrawsEnqueued())
	p.Printf("  vertices shaded      %d\n", stats.VsInvocations)
	p.Printf("  primitives binned    %d\n", stats.CPrimitives)
	p.Printf("  trivial accepts      %d\n", stats.TrivialAccepts)
	p.Printf("  partial tiles        %d\n", stats.PartialTiles)
	p.Printf("  pixel shader calls   %d\n", stats.PsInvocations)
	p.Printf("  depth test passes    %d\n", stats.DepthPassCount)
	log.Printf("Demo saved to %s\n", *output)
}

// renderScene draws two interleaved rings of triangles at different depths
// over a cleared background.
func renderScene(ctx *swrast.Context, img *image.RGBA, samples uint32, segments int, stats *swrast.Stats) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	pos, col := rings(segments, float32(h)/float32(w))

	ctx.EnableStats(true)
	ctx.SetRenderTarget(swrast.AttachmentColor0, img)
	ctx.SetViewports([]swrast.Viewport{{Width: float32(w), Height: float32(h), MaxZ: 1}}, nil)

	rs := swrast.RastState{
		CullMode:    gputypes.CullModeNone,
		FrontFace:   gputypes.FrontFaceCCW,
		PointSize:   1,
		LineWidth:   1,
		SampleCount: samples,
	}
	ctx.SetRastState(rs)

	ctx.SetDepthStencilState(swrast.DepthStencilState{
		DepthStencilState: gputypes.DefaultDepthStencilState(gputypes.TextureFormatDepth32Float),
		DepthTestEnable:   true,
	})

	ctx.SetFetchFunc(func(fc *swrast.FetchContext, v *swrast.Vertex) {
		v.Position = pos[fc.VertexID]
		v.Attribs[0] = col[fc.VertexID]
	})
	ctx.SetLinkage(1, nil)
	ctx.SetPixelShaderState(swrast.PixelShaderState{
		Func:             func(pc *swrast.PixelContext) { pc.Color[0] = pc.Attribs[0] },
		RenderTargetMask: 1,
	})

	ctx.ClearRenderTarget(swrast.MaskOf(swrast.AttachmentColor0, swrast.AttachmentDepth),
		gputypes.Color{R: 0.05, G: 0.07, B: 0.12, A: 1}, 1, 0)
	ctx.Draw(swrast.TriangleList, 0, uint32(len(pos)))
	ctx.StoreTiles(swrast.AttachmentColor0, swrast.TileResolved)
	ctx.GetStats(stats)
}

// rings builds two fans of colored triangles. The outer ring sits behind
// the inner one and is drawn first.
func rings(segments int, aspect float32) (pos, col [][4]float32) {
	ring := func(r0, r1, z, phase float32) {
		for i := range segments {
			a0 := 2*math.Pi*float64(i)/float64(segments) + float64(phase)
			a1 := 2*math.Pi*float64(i+1)/float64(segments) + float64(phase)
			c := hue(float32(i) / float32(segments))
			for _, p := range [][2]float64{{float64(r0), a0}, {float64(r1), a0}, {float64(r1), a1}} {
				x := float32(p[0]*math.Cos(p[1])) * aspect
				y := float32(p[0] * math.Sin(p[1]))
				pos = append(pos, [4]float32{x, y, z, 1})
				col = append(col, c)
			}
		}
	}
	ring(0.3, 0.95, 0.6, 0)
	ring(0.1, 0.7, 0.4, math.Pi/float32(segments))
	return pos, col
}

func hue(t float32) [4]float32 {
	ch := func(o float64) float32 {
		return float32(0.5 + 0.5*math.Cos(2*math.Pi*(float64(t)+o)))
	}
	return [4]float32{ch(0), ch(2.0 / 3), ch(1.0 / 3), 1}
}

// storeTile resolves a color hot tile into the image by averaging its
// samples.
func storeTile(s swrast.Surface, att swrast.Attachment, macroX, macroY, rtai uint32, t *swrast.HotTile) {
	img, ok := s.(*image.RGBA)
	if !ok || att != swrast.AttachmentColor0 {
		return
	}
	vals := safeish.SliceCast[[]float32](t.Buffer)
	b := img.Bounds()
	ns := t.NumSamples
	for ly := range uint32(raster.MacroTileYDim) {
		for lx := range uint32(raster.MacroTileXDim) {
			x := int(macroX*raster.MacroTileXDim + lx)
			y := int(macroY*raster.MacroTileYDim + ly)
			if x >= b.Max.X || y >= b.Max.Y {
				continue
			}
			tile := (ly/raster.TileYDim)*raster.TilesPerMacroTileX + lx/raster.TileXDim
			bit := raster.BitIndex(lx%raster.TileXDim, ly%raster.TileYDim)
			var sum [4]float32
			for smp := range ns {
				i := ((tile*ns+smp)*64 + bit) * 4
				for c := range sum {
					sum[c] += vals[i+uint32(c)]
				}
			}
			img.SetRGBA(x, y, color.RGBA{
				R: to8(sum[0] / float32(ns)),
				G: to8(sum[1] / float32(ns)),
				B: to8(sum[2] / float32(ns)),
				A: to8(sum[3] / float32(ns)),
			})
		}
	}
}

func to8(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}
