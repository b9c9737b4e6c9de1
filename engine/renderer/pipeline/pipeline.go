package pipeline

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the program (vertex + fragment shader), the fixed-function state applied when a pass
// uses it and the backend object created when the pipeline is registered with a renderer.
type pipeline struct {
	mu *sync.Mutex

	pipelineKey string

	vertexShader, fragmentShader shader.Shader
	bindings                     []shader.Binding

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      CompareFunction
	cullMode          CullMode
	frontFace         FrontFace
	colorFormat       target.ColorFormat
	depthFormat       target.DepthFormat
	fullscreen        bool

	software *SoftwareShader

	// backend is the backend-specific pipeline object, set on registration.
	backend any
}

// Pipeline is a render program with its fixed-function state. Uniform, texture and attribute
// lookups return immutable handles tagged with the pipeline key; using a handle with a different
// pipeline is a usage error.
type Pipeline interface {
	// Key returns the unique key of this pipeline.
	//
	// Returns:
	//   - string: the pipeline key
	Key() string

	// Shader retrieves the shader of the given stage.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the shader, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Bindings returns the resources of both stages, merged and sorted by group then binding.
	//
	// Returns:
	//   - []shader.Binding: the program's resources
	Bindings() []shader.Binding

	// Uniform resolves a uniform member by name.
	//
	// Parameters:
	//   - name: the member or variable name
	//
	// Returns:
	//   - shader.UniformHandle: the handle
	//   - error: *common.UsageError if the program has no such uniform
	Uniform(name string) (shader.UniformHandle, error)

	// Texture resolves a sampled texture by variable name.
	//
	// Parameters:
	//   - name: the texture variable name
	//
	// Returns:
	//   - shader.TextureHandle: the handle
	//   - error: *common.UsageError if the program has no such texture
	Texture(name string) (shader.TextureHandle, error)

	// Attribute resolves a vertex input and checks its location.
	//
	// Parameters:
	//   - name: the vertex input name
	//   - slot: the location the caller binds it to
	//
	// Returns:
	//   - shader.AttributeHandle: the handle
	//   - error: *common.UsageError if the input is missing or at another location
	Attribute(name string, slot uint32) (shader.AttributeHandle, error)

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	DepthCompare() CompareFunction
	CullMode() CullMode
	FrontFace() FrontFace

	// ColorFormat returns the format of the targets this pipeline writes.
	ColorFormat() target.ColorFormat

	// DepthFormat returns the depth format of the targets this pipeline writes.
	DepthFormat() target.DepthFormat

	// Fullscreen reports whether the vertex stage generates a fullscreen triangle from the vertex index.
	Fullscreen() bool

	// Software returns the CPU form of the program, or nil.
	//
	// Returns:
	//   - *SoftwareShader: the software stages
	Software() *SoftwareShader

	// Pipeline returns the backend-specific pipeline object. The caller type-asserts it.
	//
	// Returns:
	//   - any: the backend object, nil before registration
	Pipeline() any

	// SetPipeline stores the backend-specific pipeline object.
	//
	// Parameters:
	//   - p: the backend object
	SetPipeline(p any)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline. Vertex and fragment shaders are required; when both stages bind
// the same @group/@binding they must agree on the resource kind and size.
// Defaults: depth test and write on with less-equal, no culling, CCW front faces, RGBA8 color and Depth16 depth.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the new pipeline
//   - error: *common.InitializationError if a stage is missing or the stages disagree
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		mu:                &sync.Mutex{},
		pipelineKey:       pipelineKey,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      CompareLessEqual,
		cullMode:          CullModeNone,
		frontFace:         FrontFaceCCW,
		colorFormat:       target.ColorFormatRGBA8Unorm,
		depthFormat:       target.DepthFormatDepth16Unorm,
	}
	for _, opt := range opts {
		opt(p)
	}

	op := "pipeline " + pipelineKey
	if p.vertexShader == nil || p.vertexShader.ShaderType() != shader.ShaderTypeVertex {
		return nil, common.NewInitializationError(op, "missing vertex shader")
	}
	if p.fragmentShader == nil || p.fragmentShader.ShaderType() != shader.ShaderTypeFragment {
		return nil, common.NewInitializationError(op, "missing fragment shader")
	}
	bindings, err := mergeBindings(p.vertexShader.Bindings(), p.fragmentShader.Bindings())
	if err != nil {
		return nil, &common.InitializationError{Op: op, Err: err}
	}
	p.bindings = bindings
	return p, nil
}

func (p *pipeline) Key() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) Bindings() []shader.Binding {
	return append([]shader.Binding(nil), p.bindings...)
}

func (p *pipeline) Uniform(name string) (shader.UniformHandle, error) {
	return shader.FindUniform(p.pipelineKey, name, p.vertexShader, p.fragmentShader)
}

func (p *pipeline) Texture(name string) (shader.TextureHandle, error) {
	return shader.FindTexture(p.pipelineKey, name, p.fragmentShader, p.vertexShader)
}

func (p *pipeline) Attribute(name string, slot uint32) (shader.AttributeHandle, error) {
	return shader.FindAttribute(p.pipelineKey, name, slot, p.vertexShader)
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() CompareFunction {
	return p.depthCompare
}

func (p *pipeline) CullMode() CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() FrontFace {
	return p.frontFace
}

func (p *pipeline) ColorFormat() target.ColorFormat {
	return p.colorFormat
}

func (p *pipeline) DepthFormat() target.DepthFormat {
	return p.depthFormat
}

func (p *pipeline) Fullscreen() bool {
	return p.fullscreen
}

func (p *pipeline) Software() *SoftwareShader {
	return p.software
}

func (p *pipeline) Pipeline() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend
}

func (p *pipeline) SetPipeline(backend any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backend = backend
}

// mergeBindings unions the resources of both stages. A pair bound by both stages must have the same
// kind and size.
func mergeBindings(vertex, fragment []shader.Binding) ([]shader.Binding, error) {
	merged := append([]shader.Binding(nil), vertex...)
	for _, fb := range fragment {
		found := false
		for _, vb := range vertex {
			if vb.Group != fb.Group || vb.Binding != fb.Binding {
				continue
			}
			found = true
			if vb.Kind != fb.Kind || vb.Size != fb.Size {
				return nil, fmt.Errorf("@group(%d) @binding(%d) is %s %q (%d bytes) in the vertex stage but %s %q (%d bytes) in the fragment stage",
					fb.Group, fb.Binding, vb.Kind, vb.Name, vb.Size, fb.Kind, fb.Name, fb.Size)
			}
		}
		if !found {
			merged = append(merged, fb)
		}
	}
	sortBindings(merged)
	return merged, nil
}

func sortBindings(b []shader.Binding) {
	for i := 1; i < len(b); i++ {
		for j := i; j > 0 && less(b[j], b[j-1]); j-- {
			b[j], b[j-1] = b[j-1], b[j]
		}
	}
}

func less(a, b shader.Binding) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Binding < b.Binding
}
