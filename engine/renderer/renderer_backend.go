package renderer

import (
	"image"

	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend. It needs a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU rasterizer. It renders headless and supports Snapshot.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Capabilities describes what a backend's device supports.
type Capabilities struct {
	// FloatRenderTargets reports that RG16Float color attachments can be rendered to and filtered.
	FloatRenderTargets bool

	// Derivatives reports that fragment programs can use screen-space derivatives.
	Derivatives bool

	// MaxTextureDimension is the largest width or height of a render target.
	MaxTextureDimension uint32

	// ScreenFormat is the color format of the screen target.
	ScreenFormat target.ColorFormat
}

// drawCall is one draw recorded on a pass. A nil mesh draws the fullscreen triangle.
type drawCall struct {
	mesh     geometry.MeshBuffers
	model    mgl32.Mat4
	uniforms *pipeline.UniformBuffers
	textures map[pipeline.BindingKey]target.RenderTarget
}

// passEncoder records the draws of one pass for a backend.
type passEncoder interface {
	// Draw records or executes one draw.
	Draw(call drawCall) error

	// End finishes the pass and submits its work.
	End() error
}

// RendererBackend is the device-specific half of the Renderer.
// All calls arrive from the renderer's control goroutine.
type RendererBackend interface {
	target.Allocator
	geometry.Uploader

	// Capabilities returns the device's feature set.
	Capabilities() Capabilities

	// AllocateScreen creates the storage presented to the display.
	//
	// Parameters:
	//   - desc: the screen size and formats
	//
	// Returns:
	//   - target.Storage: the screen storage
	//   - error: a *common.ResourceCreationError if the surface could not be configured
	AllocateScreen(desc target.Descriptor) (target.Storage, error)

	// RegisterRenderPipeline creates the backend pipeline object and stores it on p via SetPipeline.
	//
	// Parameters:
	//   - p: the pipeline to create
	//
	// Returns:
	//   - error: a *common.InitializationError if the device rejected the pipeline
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// UnregisterRenderPipeline frees the backend pipeline object stored on p and clears it.
	//
	// Parameters:
	//   - p: a pipeline created by RegisterRenderPipeline
	//
	// Returns:
	//   - error: an error if the backend object could not be freed
	UnregisterRenderPipeline(p pipeline.Pipeline) error

	// BeginPass starts a pass that writes t with p.
	//
	// Parameters:
	//   - t: the write target, already validated by the renderer
	//   - p: a registered pipeline
	//
	// Returns:
	//   - passEncoder: the encoder for the pass
	//   - error: an error if the pass could not begin
	BeginPass(t target.RenderTarget, p pipeline.Pipeline) (passEncoder, error)

	// Snapshot reads back a storage allocated by AllocateScreen.
	//
	// Parameters:
	//   - screen: the screen storage
	//
	// Returns:
	//   - *image.NRGBA: the pixels, row 0 at the top
	//   - error: an error if the backend cannot read the screen back
	Snapshot(screen target.Storage) (*image.NRGBA, error)

	// ReadTexels reads back the color attachment of any storage this backend allocated.
	//
	// Parameters:
	//   - storage: the target storage
	//
	// Returns:
	//   - [][4]float32: the texels, row 0 at the top
	//   - error: an error if the backend cannot read the storage back
	ReadTexels(storage target.Storage) ([][4]float32, error)

	// Present shows the last composited frame.
	//
	// Returns:
	//   - error: an error if presentation failed
	Present() error

	// SetPresentMode sets the surface present mode. It takes effect on the next screen resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Release frees the device. Storage and buffers must be released first.
	//
	// Returns:
	//   - error: the release error, if any
	Release() error
}
