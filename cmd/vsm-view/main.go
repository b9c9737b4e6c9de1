// Command vsm-view opens a window and renders the variance shadow mapping scene with the
// WebGPU backend. Middle-drag orbits, the wheel zooms, WASD pans, R resets the view and
// F1-F3 switch between the shaded scene and the debug views.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/config"
	"github.com/Carmen-Shannon/oxy-vsm/engine"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/vsm"
	"github.com/Carmen-Shannon/oxy-vsm/engine/window"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file")
	width := flag.Int("width", 0, "Initial window width")
	height := flag.Int("height", 0, "Initial window height")
	kernel := flag.Int("kernel", 0, "Blur kernel size, odd")
	sigma := flag.Float64("sigma", 0, "Blur kernel standard deviation in texels")
	clearHex := flag.String("clear", "", "Screen clear color as rrggbb")
	debugView := flag.String("debug-view", "", "none, shadow-factor or light-depth")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	profile := flag.Bool("profile", false, "Log frame statistics")
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
		LogLevel:    *logLevel,
		Profile:     *profile,
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("viewer stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) (err error) {
	clearColor, _ := cfg.Clear()
	view, _ := cfg.View()

	// ── Window ──────────────────────────────────────────────────────────
	w, err := window.NewWindow(
		window.WithTitle("oxy-vsm"),
		window.WithSize(cfg.Width, cfg.Height),
	)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, w.Close()) }()

	// ── Renderer ────────────────────────────────────────────────────────
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU,
		renderer.WithSurface(w),
		renderer.WithPresentMode(renderer.PresentModeVSync),
		renderer.WithScreenClearColor(clearColor),
	)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, r.Release()) }()

	// ── Pipeline + Engine ───────────────────────────────────────────────
	p := vsm.NewPipeline(r,
		vsm.WithKernel(cfg.KernelSize, cfg.KernelSigma),
		vsm.WithDebugView(view),
	)
	eng := engine.NewEngine(w, r, p,
		engine.WithProfiling(cfg.Profile),
		engine.WithTickRate(60),
	)
	return eng.Run(ctx)
}
