package renderer

import (
	"fmt"
	"image"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Surface provides the native window surface the wgpu backend presents to.
type Surface interface {
	// SurfaceDescriptor returns the platform-specific descriptor for WebGPU surface creation.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	limits        wgpu.Limits
	surfaceFormat wgpu.TextureFormat
	screenFormat  target.ColorFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Frame state: the swapchain texture acquired by the first pass that writes the screen.
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	pipelines []*wgpuPipeline
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend requests an adapter and device compatible with the surface.
// The surface is configured when the screen target is first allocated.
func newWGPURendererBackend(s Surface) (RendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		limits:      wgpu.DefaultLimits(),
	}
	w.surface = w.instance.CreateSurface(s.SurfaceDescriptor())

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: w.surface,
	})
	if err != nil {
		return nil, &common.InitializationError{Op: "request adapter", Err: err}
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: w.limits,
		},
	})
	if err != nil {
		return nil, &common.InitializationError{Op: "request device", Err: err}
	}
	w.device = d
	w.queue = d.GetQueue()

	capabilities := w.surface.GetCapabilities(w.adapter)
	if len(capabilities.Formats) == 0 {
		return nil, common.NewInitializationError("surface", "no supported surface formats")
	}
	w.surfaceFormat = capabilities.Formats[0]
	w.screenFormat = target.ColorFormatRGBA8Unorm
	switch w.surfaceFormat {
	case wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		w.screenFormat = target.ColorFormatBGRA8Unorm
	}
	return w, nil
}

func (b *wgpuRendererBackendImpl) Capabilities() Capabilities {
	// RG16Float is renderable and filterable and fragment derivatives are core in WebGPU.
	return Capabilities{
		FloatRenderTargets:  true,
		Derivatives:         true,
		MaxTextureDimension: b.limits.MaxTextureDimension2D,
		ScreenFormat:        b.screenFormat,
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) AllocateStorage(label string, desc target.Descriptor) (target.Storage, error) {
	s := &wgpuStorage{mu: &sync.Mutex{}, backend: b, label: label, desc: desc}
	if err := s.Resize(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *wgpuRendererBackendImpl) AllocateScreen(desc target.Descriptor) (target.Storage, error) {
	if desc.Color != b.screenFormat {
		return nil, common.NewResourceCreationError("allocate screen", "surface format is %v, not %v", b.screenFormat, desc.Color)
	}
	s := &wgpuStorage{mu: &sync.Mutex{}, backend: b, label: "screen", desc: desc, screen: true}
	if err := s.Resize(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *wgpuRendererBackendImpl) UploadMesh(label string, positions []float32, indices []uint32, positionSlot uint32) (geometry.MeshBuffers, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexData := common.SliceToBytes(positions)
	indexData := common.SliceToBytes(indices)
	if len(vertexData) == 0 || len(indexData) == 0 {
		return nil, common.NewResourceCreationError("upload "+label, "empty mesh")
	}

	vertexBuffer, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label + " Vertex Buffer",
		Size:             uint64(len(vertexData)),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, &common.ResourceCreationError{Op: "upload " + label, Err: err}
	}
	b.queue.WriteBuffer(vertexBuffer, 0, vertexData)

	indexBuffer, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label + " Index Buffer",
		Size:             uint64(len(indexData)),
		Usage:            wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		vertexBuffer.Release()
		return nil, &common.ResourceCreationError{Op: "upload " + label, Err: err}
	}
	b.queue.WriteBuffer(indexBuffer, 0, indexData)

	return &wgpuMesh{
		mu:           &sync.Mutex{},
		vertexBuffer: vertexBuffer,
		indexBuffer:  indexBuffer,
		indexCount:   uint32(len(indices)),
		slot:         positionSlot,
	}, nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	op := "register " + p.Key()
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: vertexShader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: vertexShader.Source(),
		},
	})
	if err != nil {
		return &common.InitializationError{Op: op, Err: err}
	}
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: fragmentShader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: fragmentShader.Source(),
		},
	})
	if err != nil {
		vs.Release()
		return &common.InitializationError{Op: op, Err: err}
	}

	wp := &wgpuPipeline{
		key:           p.Key(),
		vertexModule:  vs,
		fragmentModule: fs,
		uniforms:      make(map[pipeline.BindingKey]*wgpu.Buffer),
		vertexSlots:   make(map[uint32]uint32),
	}
	if err := b.createPipelineObjects(p, wp); err != nil {
		wp.release()
		return &common.InitializationError{Op: op, Err: err}
	}

	b.mu.Lock()
	b.pipelines = append(b.pipelines, wp)
	b.mu.Unlock()
	p.SetPipeline(wp)
	return nil
}

func (b *wgpuRendererBackendImpl) UnregisterRenderPipeline(p pipeline.Pipeline) error {
	wp, ok := p.Pipeline().(*wgpuPipeline)
	if !ok {
		return common.NewUsageError("unregister "+p.Key(), "pipeline was not registered with the wgpu backend")
	}
	b.mu.Lock()
	b.pipelines = slices.DeleteFunc(b.pipelines, func(other *wgpuPipeline) bool { return other == wp })
	b.mu.Unlock()
	wp.release()
	p.SetPipeline(nil)
	return nil
}

// createPipelineObjects builds the bind group layouts from the reflected bindings, the uniform
// buffers and the render pipeline.
func (b *wgpuRendererBackendImpl) createPipelineObjects(p pipeline.Pipeline, wp *wgpuPipeline) error {
	bindings := p.Bindings()
	groups := make(map[uint32][]wgpu.BindGroupLayoutEntry)
	maxGroup := -1
	for _, binding := range bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    binding.Binding,
			Visibility: visibility(p, binding),
		}
		switch binding.Kind {
		case shader.BindingKindUniform:
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
			entry.Buffer.MinBindingSize = uint64(binding.Size)
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: p.Key() + " " + binding.Name + " Buffer",
				Size:  uint64(binding.Size),
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return err
			}
			wp.uniforms[pipeline.BindingKey{Group: binding.Group, Binding: binding.Binding}] = buf
		case shader.BindingKindTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		case shader.BindingKindSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		}
		groups[binding.Group] = append(groups[binding.Group], entry)
		maxGroup = max(maxGroup, int(binding.Group))
	}

	wp.layouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range wp.layouts {
		layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.Key(), g),
			Entries: groups[uint32(g)],
		})
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		wp.layouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key(),
		BindGroupLayouts: wp.layouts,
	})
	if err != nil {
		return err
	}
	wp.layout = pipelineLayout

	if h, err := p.Uniform("model"); err == nil {
		wp.model, wp.hasModel = h, true
	}

	var vertexLayouts []wgpu.VertexBufferLayout
	if !p.Fullscreen() {
		for i, in := range p.Shader(shader.ShaderTypeVertex).VertexInputs() {
			format, ok := vertexFormats[in.Components]
			if !ok {
				return fmt.Errorf("vertex input %q has %d components", in.Name, in.Components)
			}
			vertexLayouts = append(vertexLayouts, wgpu.VertexBufferLayout{
				ArrayStride: uint64(in.Components) * 4,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{{
					Format:         format,
					Offset:         0,
					ShaderLocation: in.Location,
				}},
			})
			wp.vertexSlots[in.Location] = uint32(i)
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if p.DepthFormat() != target.DepthFormatNone {
		depthCompare := compareFunctions[p.DepthCompare()]
		if !p.DepthTestEnabled() {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth16Unorm,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Key() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     wp.vertexModule,
			EntryPoint: p.Shader(shader.ShaderTypeVertex).EntryPoint(),
			Buffers:    vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     wp.fragmentModule,
			EntryPoint: p.Shader(shader.ShaderTypeFragment).EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    b.textureFormat(p.ColorFormat()),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: frontFaces[p.FrontFace()],
			CullMode:  cullModes[p.CullMode()],
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return err
	}
	wp.render = created
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass(t target.RenderTarget, p pipeline.Pipeline) (passEncoder, error) {
	op := "begin pass " + p.Key()
	storage, ok := t.Storage().(*wgpuStorage)
	if !ok {
		return nil, common.NewUsageError(op, "target %s was not allocated by the wgpu backend", t.Label())
	}
	wp, ok := p.Pipeline().(*wgpuPipeline)
	if !ok {
		return nil, common.NewUsageError(op, "pipeline was not registered with the wgpu backend")
	}

	colorView := storage.colorView
	if storage.screen {
		view, err := b.acquireFrame()
		if err != nil {
			return nil, err
		}
		colorView = view
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}

	storage.mu.Lock()
	clearMask, clearColor, clearDepth := storage.pendingClear, storage.clearColor, storage.clearDepth
	storage.pendingClear = 0
	depthView := storage.depthView
	storage.mu.Unlock()

	colorAttachment := wgpu.RenderPassColorAttachment{
		View:    colorView,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if clearMask&target.ClearColor != 0 {
		colorAttachment.LoadOp = wgpu.LoadOpClear
		colorAttachment.ClearValue = wgpu.Color{
			R: float64(clearColor.R), G: float64(clearColor.G), B: float64(clearColor.B), A: float64(clearColor.A),
		}
	}
	desc := &wgpu.RenderPassDescriptor{
		Label:            p.Key() + " Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment},
	}
	if depthView != nil {
		depthAttachment := &wgpu.RenderPassDepthStencilAttachment{
			View:         depthView,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if clearMask&target.ClearDepth != 0 {
			depthAttachment.DepthLoadOp = wgpu.LoadOpClear
			depthAttachment.DepthClearValue = clearDepth
		}
		desc.DepthStencilAttachment = depthAttachment
	}

	pass := encoder.BeginRenderPass(desc)
	pass.SetPipeline(wp.render)
	return &wgpuPassEncoder{
		backend:  b,
		pipeline: p,
		wp:       wp,
		encoder:  encoder,
		pass:     pass,
	}, nil
}

func (b *wgpuRendererBackendImpl) Snapshot(target.Storage) (*image.NRGBA, error) {
	return nil, common.NewUsageError("snapshot", "the wgpu backend presents to a window surface and does not read the screen back")
}

func (b *wgpuRendererBackendImpl) ReadTexels(target.Storage) ([][4]float32, error) {
	return nil, common.NewUsageError("read texels", "the wgpu backend does not read targets back")
}

func (b *wgpuRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no frame surface is held, nothing to present.
	if b.frameSurface == nil {
		return nil
	}

	// Present the acquired surface image and release local references.
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return nil
	}
	for _, wp := range b.pipelines {
		wp.release()
	}
	b.pipelines = nil
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
	b.device = nil
	return nil
}

// acquireFrame returns the swapchain view of the current frame, acquiring it on first use.
func (b *wgpuRendererBackendImpl) acquireFrame() (*wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameView != nil {
		return b.frameView, nil
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	b.frameSurface = surfaceTexture
	b.frameView = view
	return view, nil
}

// configureSurface reconfigures the swapchain for a new frame size.
func (b *wgpuRendererBackendImpl) configureSurface(width, height uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	common.Logger().Debug("surface configured", zap.Uint32("width", width), zap.Uint32("height", height))
}

func (b *wgpuRendererBackendImpl) textureFormat(f target.ColorFormat) wgpu.TextureFormat {
	if f == b.screenFormat {
		return b.surfaceFormat
	}
	switch f {
	case target.ColorFormatRG16Float:
		return wgpu.TextureFormatRG16Float
	case target.ColorFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

var (
	vertexFormats = map[uint32]wgpu.VertexFormat{
		1: wgpu.VertexFormatFloat32,
		2: wgpu.VertexFormatFloat32x2,
		3: wgpu.VertexFormatFloat32x3,
		4: wgpu.VertexFormatFloat32x4,
	}
	compareFunctions = map[pipeline.CompareFunction]wgpu.CompareFunction{
		pipeline.CompareAlways:    wgpu.CompareFunctionAlways,
		pipeline.CompareLess:      wgpu.CompareFunctionLess,
		pipeline.CompareLessEqual: wgpu.CompareFunctionLessEqual,
	}
	cullModes = map[pipeline.CullMode]wgpu.CullMode{
		pipeline.CullModeNone:  wgpu.CullModeNone,
		pipeline.CullModeFront: wgpu.CullModeFront,
		pipeline.CullModeBack:  wgpu.CullModeBack,
	}
	frontFaces = map[pipeline.FrontFace]wgpu.FrontFace{
		pipeline.FrontFaceCCW: wgpu.FrontFaceCCW,
		pipeline.FrontFaceCW:  wgpu.FrontFaceCW,
	}
)

// visibility ORs the stages whose shader declares the binding.
func visibility(p pipeline.Pipeline, binding shader.Binding) wgpu.ShaderStage {
	var v wgpu.ShaderStage
	if b, ok := p.Shader(shader.ShaderTypeVertex).Binding(binding.Name); ok && b.Group == binding.Group && b.Binding == binding.Binding {
		v |= wgpu.ShaderStageVertex
	}
	if b, ok := p.Shader(shader.ShaderTypeFragment).Binding(binding.Name); ok && b.Group == binding.Group && b.Binding == binding.Binding {
		v |= wgpu.ShaderStageFragment
	}
	if v == 0 {
		v = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	}
	return v
}

// wgpuPipeline is the backend object stored on a registered pipeline.
type wgpuPipeline struct {
	key            string
	vertexModule   *wgpu.ShaderModule
	fragmentModule *wgpu.ShaderModule
	layouts        []*wgpu.BindGroupLayout
	layout         *wgpu.PipelineLayout
	render         *wgpu.RenderPipeline

	// uniforms holds one device buffer per uniform binding.
	uniforms map[pipeline.BindingKey]*wgpu.Buffer

	// model is the per-draw object transform; each draw gets its own buffer for its group.
	model    shader.UniformHandle
	hasModel bool

	// vertexSlots maps a vertex input location to its vertex buffer slot.
	vertexSlots map[uint32]uint32
}

func (wp *wgpuPipeline) release() {
	for _, buf := range wp.uniforms {
		buf.Release()
	}
	for _, l := range wp.layouts {
		if l != nil {
			l.Release()
		}
	}
	if wp.layout != nil {
		wp.layout.Release()
	}
	if wp.render != nil {
		wp.render.Release()
	}
	if wp.vertexModule != nil {
		wp.vertexModule.Release()
	}
	if wp.fragmentModule != nil {
		wp.fragmentModule.Release()
	}
}

// wgpuPassEncoder records one render pass into its own command encoder.
type wgpuPassEncoder struct {
	backend  *wgpuRendererBackendImpl
	pipeline pipeline.Pipeline
	wp       *wgpuPipeline
	encoder  *wgpu.CommandEncoder
	pass     *wgpu.RenderPassEncoder

	// transient objects released after submission
	drawBuffers []*wgpu.Buffer
	bindGroups  []*wgpu.BindGroup
}

var _ passEncoder = &wgpuPassEncoder{}

func (e *wgpuPassEncoder) Draw(call drawCall) error {
	b := e.backend
	op := "draw " + e.pipeline.Key()

	for _, key := range call.uniforms.TakeDirty() {
		if buf, ok := e.wp.uniforms[key]; ok {
			b.queue.WriteBuffer(buf, 0, call.uniforms.Bytes(key))
		}
	}

	var modelBuffer *wgpu.Buffer
	if e.wp.hasModel {
		key := pipeline.BindingKey{Group: e.wp.model.Group(), Binding: e.wp.model.Binding()}
		data := call.uniforms.Bytes(key)
		copy(data[e.wp.model.Offset():], common.SliceToBytes(call.model[:]))
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: op + " model",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return &common.ResourceCreationError{Op: op, Err: err}
		}
		b.queue.WriteBuffer(buf, 0, data)
		e.drawBuffers = append(e.drawBuffers, buf)
		modelBuffer = buf
	}

	entries := make([][]wgpu.BindGroupEntry, len(e.wp.layouts))
	bindings := e.pipeline.Bindings()
	for _, binding := range bindings {
		key := pipeline.BindingKey{Group: binding.Group, Binding: binding.Binding}
		entry := wgpu.BindGroupEntry{Binding: binding.Binding}
		switch binding.Kind {
		case shader.BindingKindUniform:
			entry.Buffer = e.wp.uniforms[key]
			if modelBuffer != nil && key == (pipeline.BindingKey{Group: e.wp.model.Group(), Binding: e.wp.model.Binding()}) {
				entry.Buffer = modelBuffer
			}
			entry.Size = wgpu.WholeSize
		case shader.BindingKindTexture:
			s, err := wgpuStorageOf(call.textures[key])
			if err != nil {
				return common.NewUsageError(op, "texture %q: %v", binding.Name, err)
			}
			entry.TextureView = s.colorView
		case shader.BindingKindSampler:
			s, err := wgpuStorageOf(samplerSource(bindings, binding, call.textures))
			if err != nil {
				return common.NewUsageError(op, "sampler %q: %v", binding.Name, err)
			}
			entry.Sampler = s.sampler
		}
		entries[binding.Group] = append(entries[binding.Group], entry)
	}

	for g, layout := range e.wp.layouts {
		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", e.pipeline.Key(), g),
			Layout:  layout,
			Entries: entries[g],
		})
		if err != nil {
			return &common.ResourceCreationError{Op: op, Err: err}
		}
		e.bindGroups = append(e.bindGroups, bindGroup)
		e.pass.SetBindGroup(uint32(g), bindGroup, nil)
	}

	if call.mesh == nil {
		e.pass.Draw(3, 1, 0, 0)
		return nil
	}
	mesh, ok := call.mesh.(*wgpuMesh)
	if !ok {
		return common.NewUsageError(op, "mesh was not uploaded by the wgpu backend")
	}
	slot, ok := e.wp.vertexSlots[mesh.slot]
	if !ok {
		return common.NewUsageError(op, "pipeline has no vertex input at location %d", mesh.slot)
	}
	e.pass.SetVertexBuffer(slot, mesh.vertexBuffer, 0, wgpu.WholeSize)
	e.pass.SetIndexBuffer(mesh.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	e.pass.DrawIndexed(mesh.indexCount, 1, 0, 0, 0)
	return nil
}

func (e *wgpuPassEncoder) End() error {
	e.pass.End()
	defer e.releaseTransient()

	commandBuffer, err := e.encoder.Finish(nil)
	if err != nil {
		e.encoder.Release()
		return err
	}
	e.backend.queue.Submit(commandBuffer)
	commandBuffer.Release()
	e.encoder.Release()
	return nil
}

func (e *wgpuPassEncoder) releaseTransient() {
	for _, bg := range e.bindGroups {
		bg.Release()
	}
	for _, buf := range e.drawBuffers {
		buf.Release()
	}
	e.bindGroups, e.drawBuffers = nil, nil
}

// samplerSource returns the texture that shares the sampler's group.
func samplerSource(bindings []shader.Binding, sampler shader.Binding, textures map[pipeline.BindingKey]target.RenderTarget) target.RenderTarget {
	for _, b := range bindings {
		if b.Kind == shader.BindingKindTexture && b.Group == sampler.Group {
			return textures[pipeline.BindingKey{Group: b.Group, Binding: b.Binding}]
		}
	}
	return nil
}

func wgpuStorageOf(t target.RenderTarget) (*wgpuStorage, error) {
	if t == nil {
		return nil, fmt.Errorf("no target bound")
	}
	s, ok := t.Storage().(*wgpuStorage)
	if !ok {
		return nil, fmt.Errorf("target %s was not allocated by the wgpu backend", t.Label())
	}
	return s, nil
}

// wgpuMesh holds the device vertex and index buffers of a batch.
type wgpuMesh struct {
	mu           *sync.Mutex
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   uint32
	slot         uint32
}

var _ geometry.MeshBuffers = &wgpuMesh{}

func (m *wgpuMesh) IndexCount() uint32 {
	return m.indexCount
}

func (m *wgpuMesh) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
		m.indexBuffer = nil
	}
	return nil
}

// wgpuStorage is a color texture, an optional depth texture and a clamp/linear sampler.
// The screen storage has no color texture; passes draw into the acquired swapchain view.
type wgpuStorage struct {
	mu      *sync.Mutex
	backend *wgpuRendererBackendImpl
	label   string
	desc    target.Descriptor
	screen  bool

	colorTexture *wgpu.Texture
	colorView    *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
	sampler      *wgpu.Sampler

	// pendingClear is applied as LoadOpClear by the next pass that writes the storage.
	pendingClear target.ClearMask
	clearColor   common.Color
	clearDepth   float32
}

var _ target.Storage = &wgpuStorage{}

func (s *wgpuStorage) Resize(width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.backend
	op := "allocate " + s.label

	if width > b.limits.MaxTextureDimension2D || height > b.limits.MaxTextureDimension2D {
		return common.NewResourceCreationError(op, "size %dx%d above the device limit %d", width, height, b.limits.MaxTextureDimension2D)
	}
	if s.desc.Color.Channels() == 0 {
		return common.NewResourceCreationError(op, "unsupported color format %v", s.desc.Color)
	}

	// The new attachments are built aside; the current ones stay live until all of them exist.
	next := wgpuAttachments{}
	if err := s.createAttachments(&next, width, height); err != nil {
		next.release()
		return &common.ResourceCreationError{Op: op, Err: err}
	}
	if s.sampler == nil && !s.screen {
		samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         s.label + " Sampler",
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMinClamp:   0,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			next.release()
			return &common.ResourceCreationError{Op: op, Err: err}
		}
		s.sampler = samp
	}

	s.current().release()
	s.colorTexture, s.colorView = next.colorTexture, next.colorView
	s.depthTexture, s.depthView = next.depthTexture, next.depthView
	s.desc.Width, s.desc.Height = width, height
	if s.screen {
		b.configureSurface(width, height)
	}
	return nil
}

// wgpuAttachments groups the textures a storage owns at one size.
type wgpuAttachments struct {
	colorTexture *wgpu.Texture
	colorView    *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
}

func (a wgpuAttachments) release() {
	if a.colorView != nil {
		a.colorView.Release()
	}
	if a.colorTexture != nil {
		a.colorTexture.Release()
	}
	if a.depthView != nil {
		a.depthView.Release()
	}
	if a.depthTexture != nil {
		a.depthTexture.Release()
	}
}

// current returns the live attachments. Caller must hold the mutex.
func (s *wgpuStorage) current() wgpuAttachments {
	return wgpuAttachments{
		colorTexture: s.colorTexture,
		colorView:    s.colorView,
		depthTexture: s.depthTexture,
		depthView:    s.depthView,
	}
}

// createAttachments fills next with textures of the given size. On error next holds whatever
// was created so far. Caller must hold the mutex.
func (s *wgpuStorage) createAttachments(next *wgpuAttachments, width, height uint32) error {
	b := s.backend
	size := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	var err error

	if !s.screen {
		next.colorTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         s.label + " Color Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.textureFormat(s.desc.Color),
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		})
		if err != nil {
			return err
		}
		if next.colorView, err = next.colorTexture.CreateView(nil); err != nil {
			return err
		}
	}

	if s.desc.Depth != target.DepthFormatNone {
		next.depthTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         s.label + " Depth Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        wgpu.TextureFormatDepth16Unorm,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return err
		}
		if next.depthView, err = next.depthTexture.CreateView(nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *wgpuStorage) Clear(mask target.ClearMask, color common.Color, depth float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingClear |= mask
	s.clearColor = color
	s.clearDepth = depth
}

func (s *wgpuStorage) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseTextures()
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
	return nil
}

// releaseTextures frees the attachments. Caller must hold the mutex.
func (s *wgpuStorage) releaseTextures() {
	s.current().release()
	s.colorTexture, s.colorView = nil, nil
	s.depthTexture, s.depthView = nil, nil
}
