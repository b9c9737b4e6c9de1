package vsm

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
)

// DrawUniformsSource declares the per-draw model matrix at group 1. Backends give every draw
// its own copy of this buffer.
//
//go:embed assets/draw_uniforms.wgsl
var DrawUniformsSource string

// CaptureUniformsSource declares the light transforms shared by both capture stages.
//
//go:embed assets/capture_uniforms.wgsl
var CaptureUniformsSource string

// CompositeUniformsSource declares the observer and light parameters shared by both composite stages.
//
//go:embed assets/composite_uniforms.wgsl
var CompositeUniformsSource string

//go:embed assets/capture.vert.wgsl
var captureVertexSource string

//go:embed assets/capture.frag.wgsl
var captureFragmentSource string

//go:embed assets/fullscreen.vert.wgsl
var fullscreenVertexSource string

//go:embed assets/blur.frag.wgsl
var blurFragmentSource string

//go:embed assets/composite.vert.wgsl
var compositeVertexSource string

//go:embed assets/composite.frag.wgsl
var compositeFragmentSource string

// newPreProcessor resolves the shared uniform declarations included by the stage sources.
func newPreProcessor() shader.PreProcessor {
	return shader.NewPreProcessor(map[string]string{
		"draw_uniforms":      DrawUniformsSource,
		"capture_uniforms":   CaptureUniformsSource,
		"composite_uniforms": CompositeUniformsSource,
	})
}
