package renderer

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSurface sets the window surface the wgpu backend presents to.
//
// Parameters:
//   - s: the surface provider, usually the engine window
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface option to a renderer
func WithSurface(s Surface) RendererBuilderOption {
	return func(r *renderer) {
		r.surface = s
	}
}

// WithPipeline pre-caches a Pipeline under its key. It is registered with the backend on the
// first RegisterPipelines call that names it.
//
// Parameters:
//   - p: the Pipeline to cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pending = append(r.pending, p)
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithWorkers sets the number of software rasterizer workers. Zero selects one per CPU.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker option to a renderer
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = max(n, 0)
	}
}

// WithMaxTextureDimension caps the target size the software device accepts.
// The wgpu backend reports the adapter limit instead.
//
// Parameters:
//   - dim: the largest allowed width or height
//
// Returns:
//   - RendererBuilderOption: a function that applies the limit to a renderer
func WithMaxTextureDimension(dim uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.maxDimension = dim
	}
}

// WithScreenClearColor sets the screen target's clear color. The default is common.DefaultClearColor.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color to a renderer
func WithScreenClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.screenClearColor = c
	}
}
