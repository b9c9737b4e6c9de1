package pipeline

import (
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
)

// PipelineBuilderOption is a function that configures a pipeline during creation.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage.
//
// Parameters:
//   - s: a shader of type ShaderTypeVertex
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment stage.
//
// Parameters:
//   - s: a shader of type ShaderTypeFragment
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithDepthTestEnabled toggles the depth test. A disabled test also disables depth writes.
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
		if !enabled {
			p.depthWriteEnabled = false
		}
	}
}

// WithDepthWriteEnabled toggles depth writes.
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the depth test predicate.
func WithDepthCompare(compare CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithCullMode sets which faces are culled.
//
// Parameters:
//   - mode: CullModeNone, CullModeFront or CullModeBack
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullMode(mode CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the winding order of front faces.
func WithFrontFace(frontFace FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithTargetFormats sets the formats of the targets the pipeline renders into.
//
// Parameters:
//   - color: the color attachment format
//   - depth: the depth attachment format, or target.DepthFormatNone
//
// Returns:
//   - PipelineBuilderOption: a function that sets the target formats
func WithTargetFormats(color target.ColorFormat, depth target.DepthFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = color
		p.depthFormat = depth
	}
}

// WithFullscreen marks the vertex stage as generating a fullscreen triangle from the vertex index.
func WithFullscreen() PipelineBuilderOption {
	return func(p *pipeline) {
		p.fullscreen = true
	}
}

// WithSoftwareShader attaches the CPU form of the program used by the software backend.
//
// Parameters:
//   - s: the software stages
//
// Returns:
//   - PipelineBuilderOption: a function that sets the software shader
func WithSoftwareShader(s SoftwareShader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.software = &s
	}
}
