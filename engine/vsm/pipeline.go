package vsm

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/light"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Lifecycle is the set of hooks a host drives the pipeline through.
type Lifecycle interface {
	// Initialize acquires programs, cameras, the blur kernel, unsized targets and the geometry.
	// On failure everything acquired so far is released and the state stays StateUninitialized.
	//
	// Parameters:
	//   - ctx: checked between acquisition steps
	//
	// Returns:
	//   - error: a *common.InitializationError for missing capabilities or programs, a
	//     *common.UsageError for invalid cameras or kernels, or ctx.Err()
	Initialize(ctx context.Context) error

	// Uninitialize releases everything Initialize acquired in reverse order. It is safe to call
	// twice and after a failed Initialize.
	//
	// Returns:
	//   - error: every release error, combined
	Uninitialize() error

	// Update advances observer navigation.
	//
	// Returns:
	//   - bool: true if the observer view changed
	Update() bool

	// Prepare applies a state diff, sizing targets, viewports and aspect ratios, and moves the
	// pipeline to StateActive.
	//
	// Parameters:
	//   - diff: the requested state changes
	//
	// Returns:
	//   - error: a *common.UsageError in the wrong state or without a frame size, or a
	//     *common.ResourceCreationError if a target could not be sized
	Prepare(diff StateDiff) error

	// RenderFrame runs capture, both blur directions and composite.
	//
	// Parameters:
	//   - frameNumber: the host's frame counter, used for logging
	//
	// Returns:
	//   - error: a *common.UsageError outside StateActive, or the first pass error
	RenderFrame(frameNumber uint64) error

	// Swap is called after presentation. It has nothing to do.
	Swap()
}

// Targets are the three variance maps a Pipeline owns.
type Targets struct {
	// Raw receives the capture pass.
	Raw target.RenderTarget

	// Intermediate holds the horizontally blurred map.
	Intermediate target.RenderTarget

	// Filtered holds the fully blurred map the composite pass samples.
	Filtered target.RenderTarget
}

func (t Targets) all() []target.RenderTarget {
	return []target.RenderTarget{t.Raw, t.Intermediate, t.Filtered}
}

// Pipeline renders a scene with variance shadow mapping: a light-space moment capture, a
// separable Gaussian blur and a composite that shades with the Chebyshev upper bound.
type Pipeline interface {
	Lifecycle

	// State returns the lifecycle stage.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Current returns the last applied pipeline state.
	//
	// Returns:
	//   - PipelineState: frame size, canvas size and clear color
	Current() PipelineState

	// Kernel returns the blur kernel. It is the zero Kernel before Initialize.
	//
	// Returns:
	//   - Kernel: the blur kernel
	Kernel() Kernel

	// Observer returns the camera the composite pass renders from, or nil before Initialize.
	//
	// Returns:
	//   - camera.Camera: the observer camera
	Observer() camera.Camera

	// Light returns the shadow-casting light, or nil before Initialize.
	//
	// Returns:
	//   - light.Light: the light
	Light() light.Light

	// Targets returns the owned variance maps. They are nil before Initialize.
	//
	// Returns:
	//   - Targets: the raw, intermediate and filtered targets
	Targets() Targets

	// Batches returns the geometry drawn by both passes.
	//
	// Returns:
	//   - []geometry.Batch: the batches
	Batches() []geometry.Batch

	// DebugView returns what the composite pass writes.
	//
	// Returns:
	//   - DebugView: the debug view
	DebugView() DebugView

	// SetDebugView selects what the composite pass writes. It takes effect on the next frame.
	//
	// Parameters:
	//   - view: the debug view
	SetDebugView(view DebugView)
}

type pipelineImpl struct {
	mu *sync.Mutex

	renderer renderer.Renderer
	state    State
	current  PipelineState

	// Construction settings. observerOption and lightOption are nil unless supplied.
	observerOption camera.Camera
	lightOption    light.Light
	batches        []geometry.Batch
	kernelSize     int
	kernelSigma    float32
	baseColor      common.Color
	debugView      DebugView
	frustumCulling bool

	// programs are registered with the renderer while the pipeline is initialized.
	programs *programs

	observer camera.Camera
	light    light.Light
	kernel   Kernel
	targets  Targets

	capture   *capturePass
	blur      *blurPass
	composite *compositePass

	// releasers undo each acquisition step and run in reverse order.
	releasers []func() error
}

var _ Pipeline = &pipelineImpl{}

// NewPipeline creates an uninitialized Pipeline that draws through r.
// Without options it renders the default scene: a cube floating over a plane, lit from
// (0, 6, 6) and observed from (6, 6, 0) with a 31 tap, sigma 15 blur.
//
// Parameters:
//   - r: the renderer all passes draw through
//   - options: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the pipeline in StateUninitialized
func NewPipeline(r renderer.Renderer, options ...PipelineBuilderOption) Pipeline {
	p := &pipelineImpl{
		mu:             &sync.Mutex{},
		renderer:       r,
		state:          StateUninitialized,
		kernelSize:     DefaultKernelSize,
		kernelSigma:    DefaultKernelSigma,
		baseColor:      DefaultBaseColor,
		frustumCulling: true,
	}
	for _, option := range options {
		option(p)
	}
	if len(p.batches) == 0 {
		p.batches = []geometry.Batch{geometry.NewCube("cube"), geometry.NewPlane("plane")}
	}
	return p
}

func (p *pipelineImpl) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateUninitialized {
		return common.NewUsageError("vsm initialize", "pipeline is %s", p.state)
	}

	if err := p.initialize(ctx); err != nil {
		err = multierr.Append(err, p.release())
		common.Logger().Error("vsm pipeline initialization failed", zap.Error(err))
		return err
	}
	p.state = StateInitialized
	p.current.ClearColor = p.renderer.Screen().ClearColor()
	common.Logger().Info("vsm pipeline initialized",
		zap.Int("kernel_size", p.kernel.Size),
		zap.Float32("kernel_sigma", p.kernel.Sigma),
		zap.Int("batches", len(p.batches)),
	)
	return nil
}

// initialize runs the acquisition steps, pushing a releaser after each. Caller must hold the mutex.
func (p *pipelineImpl) initialize(ctx context.Context) error {
	caps := p.renderer.Capabilities()
	if !caps.FloatRenderTargets {
		return common.NewInitializationError("vsm initialize", "backend cannot render to %s targets", target.ColorFormatRG16Float)
	}
	if !caps.Derivatives {
		return common.NewInitializationError("vsm initialize", "backend has no fragment derivatives")
	}

	progs, err := newPrograms(caps.ScreenFormat)
	if err != nil {
		return err
	}
	if err := p.renderer.RegisterPipelines(progs.all()...); err != nil {
		return multierr.Append(err, p.renderer.UnregisterPipelines(progs.all()...))
	}
	p.programs = progs
	p.releasers = append(p.releasers, func() error {
		err := p.renderer.UnregisterPipelines(progs.all()...)
		p.programs = nil
		p.capture, p.blur, p.composite = nil, nil, nil
		return err
	})
	for _, prog := range progs.all() {
		if p.renderer.Pipeline(prog.Key()) != prog {
			return common.NewInitializationError("vsm initialize", "pipeline key %q is registered by another owner", prog.Key())
		}
	}
	p.capture = &capturePass{program: p.programs.capture, handles: p.programs.captureHandles, cull: p.frustumCulling}
	p.blur = &blurPass{program: p.programs.blur, handles: p.programs.blurHandles}
	p.composite = &compositePass{program: p.programs.composite, handles: p.programs.compositeHandles, cull: p.frustumCulling}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.observer = common.Coalesce(p.observerOption, newDefaultObserver())
	p.light = common.Coalesce(p.lightOption, light.NewLight())
	p.releasers = append(p.releasers, func() error {
		p.observer, p.light = nil, nil
		return nil
	})
	if err := p.observer.Validate(); err != nil {
		return err
	}
	if err := p.light.Validate(); err != nil {
		return err
	}

	kernel, err := NewKernel(p.kernelSize, p.kernelSigma)
	if err != nil {
		return err
	}
	p.kernel = kernel
	if err := ctx.Err(); err != nil {
		return err
	}

	alloc := p.renderer.Allocator()
	p.targets = Targets{
		Raw:          newVarianceTarget(alloc, "vsm.raw"),
		Intermediate: newVarianceTarget(alloc, "vsm.intermediate"),
		Filtered:     newVarianceTarget(alloc, "vsm.filtered"),
	}
	p.releasers = append(p.releasers, func() error {
		var errs error
		for _, t := range p.targets.all() {
			errs = multierr.Append(errs, t.Release())
		}
		p.targets = Targets{}
		return errs
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	uploader := p.renderer.Uploader()
	slot := p.programs.positionSlot()
	for _, b := range p.batches {
		if err := b.Initialize(uploader, slot); err != nil {
			return err
		}
		p.releasers = append(p.releasers, b.Uninitialize)
	}
	return nil
}

func (p *pipelineImpl) Uninitialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateUninitialized && len(p.releasers) == 0 {
		return nil
	}
	err := p.release()
	p.state = StateUninitialized
	p.current.FrameSize, p.current.CanvasSize = common.Size{}, common.Size{}
	if err != nil {
		common.Logger().Warn("vsm pipeline released with errors", zap.Error(err))
	} else {
		common.Logger().Info("vsm pipeline uninitialized")
	}
	return err
}

// release pops every releaser, newest first. Caller must hold the mutex.
func (p *pipelineImpl) release() error {
	var errs error
	for i := len(p.releasers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, p.releasers[i]())
	}
	p.releasers = nil
	p.kernel = Kernel{}
	return errs
}

func (p *pipelineImpl) Update() bool {
	p.mu.Lock()
	observer := p.observer
	p.mu.Unlock()
	if observer == nil {
		return false
	}
	return observer.Update()
}

func (p *pipelineImpl) Prepare(diff StateDiff) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateUninitialized {
		return common.NewUsageError("vsm prepare", "pipeline is %s", p.state)
	}

	next := p.current
	altered := next.Apply(diff)
	if !next.FrameSize.Valid() {
		return common.NewUsageError("vsm prepare", "frame size %s must be positive", next.FrameSize)
	}

	frame := next.FrameSize
	screen := p.renderer.Screen()
	for _, t := range p.targets.all() {
		var err error
		switch {
		case !t.Initialized():
			err = t.Allocate(frame.Width, frame.Height, target.ColorFormatRG16Float, target.DepthFormatDepth16Unorm)
		case altered.Has(FrameSizeChanged):
			err = t.Resize(frame.Width, frame.Height)
		}
		if err != nil {
			return err
		}
	}
	if !screen.Initialized() || altered.Has(FrameSizeChanged) {
		if err := p.renderer.Resize(frame.Width, frame.Height); err != nil {
			return err
		}
	}

	projector := p.light.Camera()
	if altered.Has(FrameSizeChanged) {
		p.observer.SetViewport(frame)
		projector.SetViewport(frame)
	}
	if altered.Has(FrameSizeChanged) || altered.Has(CanvasSizeChanged) {
		aspect := aspectOf(next)
		p.observer.SetAspect(aspect)
		projector.SetAspect(aspect)
	}
	if altered.Has(ClearColorChanged) {
		screen.SetClearColor(next.ClearColor)
	}

	p.current = next
	if p.state != StateActive || altered != 0 {
		common.Logger().Debug("vsm pipeline prepared",
			zap.Stringer("frame", next.FrameSize),
			zap.Stringer("canvas", next.CanvasSize),
			zap.Stringer("altered", altered),
		)
	}
	p.state = StateActive
	return nil
}

func (p *pipelineImpl) RenderFrame(frameNumber uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateActive {
		return common.NewUsageError("vsm render frame", "pipeline is %s", p.state)
	}

	if err := p.capture.run(p.renderer, p.targets.Raw, p.light, p.batches); err != nil {
		return p.frameError(frameNumber, "capture", err)
	}
	if err := p.blur.run(p.renderer, p.targets.Raw, p.targets.Intermediate, p.targets.Filtered, p.kernel); err != nil {
		return p.frameError(frameNumber, "blur", err)
	}
	params := compositeParams{baseColor: p.baseColor, debugView: p.debugView}
	if err := p.composite.run(p.renderer, p.observer, p.light, p.targets.Filtered, p.batches, params); err != nil {
		return p.frameError(frameNumber, "composite", err)
	}
	return nil
}

func (p *pipelineImpl) frameError(frameNumber uint64, pass string, err error) error {
	common.Logger().Error("vsm frame failed",
		zap.Uint64("frame", frameNumber),
		zap.String("pass", pass),
		zap.Error(err),
	)
	return err
}

func (p *pipelineImpl) Swap() {}

func (p *pipelineImpl) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *pipelineImpl) Current() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *pipelineImpl) Kernel() Kernel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kernel
}

func (p *pipelineImpl) Observer() camera.Camera {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.observer
}

func (p *pipelineImpl) Light() light.Light {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.light
}

func (p *pipelineImpl) Targets() Targets {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.targets
}

func (p *pipelineImpl) Batches() []geometry.Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batches
}

func (p *pipelineImpl) DebugView() DebugView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.debugView
}

func (p *pipelineImpl) SetDebugView(view DebugView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.debugView = view
}

// newDefaultObserver builds the default observer with an orbit controller around the origin.
func newDefaultObserver() camera.Camera {
	ctrl := camera.NewCameraController(camera.WithEyeTarget(DefaultObserverEye, DefaultObserverCenter))
	return camera.NewCamera(
		camera.WithController(ctrl),
		camera.WithFov(mgl32.DegToRad(DefaultObserverFov)),
		camera.WithNear(DefaultObserverNear),
		camera.WithFar(DefaultObserverFar),
	)
}

func newVarianceTarget(alloc target.Allocator, label string) target.RenderTarget {
	v := light.ShadowClearValue
	return target.NewRenderTarget(alloc,
		target.WithLabel(label),
		target.WithClearColor(common.Color{R: v, G: v, B: v, A: v}),
		target.WithClearDepth(1),
	)
}

// aspectOf follows the canvas when the host supplied one, the frame otherwise.
func aspectOf(s PipelineState) float32 {
	if s.CanvasSize.Valid() {
		return s.CanvasSize.Aspect()
	}
	return s.FrameSize.Aspect()
}
