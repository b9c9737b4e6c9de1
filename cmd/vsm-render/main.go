// Command vsm-render draws the variance shadow mapping scene headless on the software
// backend and writes the final frame to a PNG or WebP file.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/config"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/vsm"
	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file")
	width := flag.Int("width", 0, "Output width in pixels")
	height := flag.Int("height", 0, "Output height in pixels")
	kernel := flag.Int("kernel", 0, "Blur kernel size, odd")
	sigma := flag.Float64("sigma", 0, "Blur kernel standard deviation in texels")
	clearHex := flag.String("clear", "", "Screen clear color as rrggbb")
	debugView := flag.String("debug-view", "", "none, shadow-factor or light-depth")
	output := flag.String("output", "", "Output file, .png or .webp")
	scale := flag.Int("scale", 0, "Supersample factor, the frame is rendered larger and downscaled")
	frames := flag.Int("frames", 0, "Number of frames to render before the snapshot")
	workers := flag.Int("workers", 0, "Software rasterizer workers (default: NumCPU)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		Width:       *width,
		Height:      *height,
		KernelSize:  *kernel,
		KernelSigma: *sigma,
		ClearColor:  *clearHex,
		DebugView:   *debugView,
		Output:      *output,
		Supersample: *scale,
		Frames:      *frames,
		Workers:     *workers,
		LogLevel:    *logLevel,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := common.NewConsoleLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	common.SetLogger(log)

	if err := run(context.Background(), cfg); err != nil {
		log.Error("render failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) (err error) {
	clearColor, _ := cfg.Clear()
	view, _ := cfg.View()

	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware,
		renderer.WithWorkers(cfg.Workers),
		renderer.WithScreenClearColor(clearColor),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer func() { err = multierr.Append(err, r.Release()) }()

	p := vsm.NewPipeline(r,
		vsm.WithKernel(cfg.KernelSize, cfg.KernelSigma),
		vsm.WithDebugView(view),
	)
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, p.Uninitialize()) }()

	frame := cfg.FrameSize()
	if err := p.Prepare(vsm.StateDiff{FrameSize: &frame, CanvasSize: &frame, ClearColor: &clearColor}); err != nil {
		return err
	}

	start := time.Now()
	for n := range uint64(cfg.Frames) {
		if err := p.RenderFrame(n); err != nil {
			return err
		}
		p.Swap()
	}
	common.Logger().Info("frames rendered",
		zap.Int("frames", cfg.Frames),
		zap.Stringer("frame", frame),
		zap.Duration("elapsed", time.Since(start)),
	)

	img, err := r.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	img = downscale(img, cfg.OutputSize())

	format, _ := cfg.OutputFormat()
	if err := write(cfg.Output, format, img); err != nil {
		return err
	}
	common.Logger().Info("snapshot written", zap.String("path", cfg.Output), zap.Stringer("size", cfg.OutputSize()))
	return nil
}

// downscale resamples a supersampled frame to the output size with Catmull-Rom filtering.
func downscale(img *image.NRGBA, size common.Size) *image.NRGBA {
	b := img.Bounds()
	w, h := int(size.Width), int(size.Height)
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func write(path string, format config.OutputFormat, img image.Image) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	switch format {
	case config.OutputFormatWebP:
		err = nativewebp.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
