package renderer

import (
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	uniforms      map[string]*pipeline.UniformBuffers

	backendType RendererBackendType
	backend     RendererBackend

	screen     target.RenderTarget
	activePass *pass
	released   bool

	// Pre-creation config collected from builder options
	pending            []pipeline.Pipeline
	surface            Surface
	workers            int
	maxDimension       uint32
	pendingPresentMode *PresentMode
	screenClearColor   common.Color
}

// Renderer is the graphics context the render passes draw through.
//
// It owns the backend device, caches registered pipelines with their uniform buffers and
// owns the screen target. Work is issued from a single goroutine: one pass is open at a time
// and every pass finishes its work before the next begins.
type Renderer interface {
	// Capabilities returns the backend's feature set.
	//
	// Returns:
	//   - Capabilities: the device capabilities
	Capabilities() Capabilities

	// Allocator returns the allocator that creates render target storage on this device.
	//
	// Returns:
	//   - target.Allocator: the backend allocator
	Allocator() target.Allocator

	// Uploader returns the uploader that copies geometry to this device.
	//
	// Returns:
	//   - geometry.Uploader: the backend uploader
	Uploader() geometry.Uploader

	// Screen returns the target presented to the display. It is unallocated until the first Resize.
	//
	// Returns:
	//   - target.RenderTarget: the screen target
	Screen() target.RenderTarget

	// Resize allocates the screen target on the first call and resizes it afterwards.
	//
	// Parameters:
	//   - width: the frame width in pixels
	//   - height: the frame height in pixels
	//
	// Returns:
	//   - error: a *common.ResourceCreationError if the device rejected the size
	Resize(width, height uint32) error

	// Pipeline retrieves the registered Pipeline with the given key, or nil.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the registered pipeline, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the backend pipeline objects and caches the pipelines by key.
	// Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: a *common.InitializationError if the device rejected a pipeline
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// UnregisterPipelines drops the pipelines from the cache and frees their backend objects.
	// A pipeline is only dropped when it is the one registered under its key.
	//
	// Parameters:
	//   - pipelines: the Pipelines to unregister
	//
	// Returns:
	//   - error: a *common.UsageError if a pipeline is in use by the open pass
	UnregisterPipelines(pipelines ...pipeline.Pipeline) error

	// BeginPass opens a pass that draws into t with p. The target must be bound as the write target
	// and its formats must match the pipeline's.
	//
	// Parameters:
	//   - t: the write target
	//   - p: a registered pipeline
	//
	// Returns:
	//   - Pass: the open pass
	//   - error: a *common.UsageError if a precondition is not met
	BeginPass(t target.RenderTarget, p pipeline.Pipeline) (Pass, error)

	// Snapshot reads the screen target back into an image.
	//
	// Returns:
	//   - *image.NRGBA: the screen pixels, row 0 at the top
	//   - error: an error if the screen is unallocated or the backend cannot read it
	Snapshot() (*image.NRGBA, error)

	// ReadTexels reads a target's color attachment back as float texels, row-major with row 0
	// at the top. Channels the format lacks read as 0, and a missing alpha reads as 1.
	//
	// Parameters:
	//   - t: an allocated target that is not bound for writing
	//
	// Returns:
	//   - [][4]float32: width*height texels
	//   - error: a *common.UsageError if the target is unallocated, bound for writing, or the
	//     backend cannot read it back
	ReadTexels(t target.RenderTarget) ([][4]float32, error)

	// Present shows the composited screen.
	//
	// Returns:
	//   - error: an error if presentation failed
	Present() error

	// SetPresentMode sets the surface present mode. It takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Release frees the screen target and the device. A second call is a no-op.
	//
	// Returns:
	//   - error: every release error, combined
	Release() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on the given backend.
// The wgpu backend requires WithSurface; the software backend runs headless.
//
// Parameters:
//   - backendType: the backend to create
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: a *common.InitializationError if the backend could not be created
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		pipelineCache:    make(map[string]pipeline.Pipeline),
		uniforms:         make(map[string]*pipeline.UniformBuffers),
		backendType:      backendType,
		screenClearColor: common.DefaultClearColor,
	}

	// Apply options first so config is available before the backend requests a device.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.workers, r.maxDimension)
	case BackendTypeWGPU:
		if r.surface == nil {
			return nil, common.NewInitializationError("renderer", "the wgpu backend needs a surface")
		}
		backend, err := newWGPURendererBackend(r.surface)
		if err != nil {
			return nil, err
		}
		r.backend = backend
	default:
		return nil, common.NewInitializationError("renderer", "unknown backend %v", backendType)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.screen = target.NewRenderTarget(screenAllocator{r.backend},
		target.WithLabel("screen"),
		target.WithClearColor(r.screenClearColor),
	)

	if err := r.RegisterPipelines(r.pending...); err != nil {
		return nil, multierr.Append(err, r.backend.Release())
	}
	r.pending = nil

	caps := r.backend.Capabilities()
	common.Logger().Info("renderer created",
		zap.Stringer("backend", backendType),
		zap.Bool("float_render_targets", caps.FloatRenderTargets),
		zap.Bool("derivatives", caps.Derivatives),
		zap.Uint32("max_texture_dimension", caps.MaxTextureDimension),
		zap.Stringer("screen_format", caps.ScreenFormat),
	)
	return r, nil
}

func (r *renderer) Capabilities() Capabilities {
	return r.backend.Capabilities()
}

func (r *renderer) Allocator() target.Allocator {
	return r.backend
}

func (r *renderer) Uploader() geometry.Uploader {
	return r.backend
}

func (r *renderer) Screen() target.RenderTarget {
	return r.screen
}

func (r *renderer) Resize(width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return common.NewUsageError("renderer resize", "renderer was released")
	}
	if !r.screen.Initialized() {
		return r.screen.Allocate(width, height, r.backend.Capabilities().ScreenFormat, target.DepthFormatDepth16Unorm)
	}
	return r.screen.Resize(width, height)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.Key()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return err
		}
		r.pipelineCache[key] = p
		r.uniforms[key] = pipeline.NewUniformBuffers(p)
		common.Logger().Debug("pipeline registered", zap.String("key", key))
	}
	return nil
}

func (r *renderer) UnregisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs error
	for _, p := range pipelines {
		key := p.Key()
		if r.pipelineCache[key] != p {
			continue
		}
		if r.activePass != nil && r.activePass.pipeline == p {
			errs = multierr.Append(errs, common.NewUsageError("unregister "+key, "pipeline is drawing the open pass"))
			continue
		}
		delete(r.pipelineCache, key)
		delete(r.uniforms, key)
		errs = multierr.Append(errs, r.backend.UnregisterRenderPipeline(p))
		common.Logger().Debug("pipeline unregistered", zap.String("key", key))
	}
	return errs
}

func (r *renderer) BeginPass(t target.RenderTarget, p pipeline.Pipeline) (Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op := "begin pass " + p.Key()
	switch {
	case r.released:
		return nil, common.NewUsageError(op, "renderer was released")
	case r.activePass != nil:
		return nil, common.NewUsageError(op, "pass %q is still open", r.activePass.pipeline.Key())
	case r.pipelineCache[p.Key()] != p:
		return nil, common.NewUsageError(op, "pipeline is not registered")
	case !t.Initialized():
		return nil, common.NewUsageError(op, "target %s is not allocated", t.Label())
	case t.Role() != target.RoleWrite:
		return nil, common.NewUsageError(op, "target %s is not bound as the write target", t.Label())
	case t.ColorFormat() != p.ColorFormat():
		return nil, common.NewUsageError(op, "target %s is %v, pipeline writes %v", t.Label(), t.ColorFormat(), p.ColorFormat())
	case p.DepthTestEnabled() && t.DepthFormat() == target.DepthFormatNone:
		return nil, common.NewUsageError(op, "target %s has no depth attachment", t.Label())
	}

	encoder, err := r.backend.BeginPass(t, p)
	if err != nil {
		return nil, err
	}
	ps := &pass{
		mu:       &sync.Mutex{},
		r:        r,
		pipeline: p,
		target:   t,
		encoder:  encoder,
		uniforms: r.uniforms[p.Key()],
		textures: make(map[pipeline.BindingKey]target.RenderTarget),
	}
	r.activePass = ps
	return ps, nil
}

func (r *renderer) Snapshot() (*image.NRGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	storage := r.screen.Storage()
	if storage == nil {
		return nil, common.NewUsageError("snapshot", "screen is not allocated")
	}
	return r.backend.Snapshot(storage)
}

func (r *renderer) ReadTexels(t target.RenderTarget) ([][4]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op := "read texels " + t.Label()
	switch {
	case r.released:
		return nil, common.NewUsageError(op, "renderer was released")
	case !t.Initialized():
		return nil, common.NewUsageError(op, "target is not allocated")
	case t.Role() == target.RoleWrite:
		return nil, common.NewUsageError(op, "target is bound as the write target")
	}
	return r.backend.ReadTexels(t.Storage())
}

func (r *renderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activePass != nil {
		return common.NewUsageError("present", "pass %q is still open", r.activePass.pipeline.Key())
	}
	return r.backend.Present()
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	err := multierr.Combine(
		r.screen.Release(),
		r.backend.Release(),
	)
	common.Logger().Info("renderer released", zap.Error(err))
	return err
}

// endPass clears the open pass once its encoder has finished.
func (r *renderer) endPass(p *pass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activePass == p {
		r.activePass = nil
	}
}

// screenAllocator routes the screen target's allocation to the backend's surface storage.
type screenAllocator struct {
	backend RendererBackend
}

func (a screenAllocator) AllocateStorage(_ string, desc target.Descriptor) (target.Storage, error) {
	return a.backend.AllocateScreen(desc)
}
