package vsm

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/light"
)

// PipelineBuilderOption is a function that configures a Pipeline during construction.
type PipelineBuilderOption func(*pipelineImpl)

// WithObserver sets the camera the composite pass renders from.
// By default Initialize builds the default observer with an orbit controller.
//
// Parameters:
//   - c: the observer camera
//
// Returns:
//   - PipelineBuilderOption: a function that applies the observer option
func WithObserver(c camera.Camera) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.observerOption = c
	}
}

// WithLight sets the shadow-casting light. By default Initialize builds light.NewLight().
//
// Parameters:
//   - l: the light
//
// Returns:
//   - PipelineBuilderOption: a function that applies the light option
func WithLight(l light.Light) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.lightOption = l
	}
}

// WithBatches replaces the default cube and plane with the given geometry.
// The pipeline initializes and uninitializes the batches with its own lifecycle.
//
// Parameters:
//   - batches: the geometry both passes draw
//
// Returns:
//   - PipelineBuilderOption: a function that applies the batches option
func WithBatches(batches ...geometry.Batch) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.batches = append([]geometry.Batch(nil), batches...)
	}
}

// WithKernel sets the blur kernel. It is validated by Initialize.
//
// Parameters:
//   - size: the odd tap count
//   - sigma: the Gaussian standard deviation in texels
//
// Returns:
//   - PipelineBuilderOption: a function that applies the kernel option
func WithKernel(size int, sigma float32) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.kernelSize = size
		p.kernelSigma = sigma
	}
}

// WithDebugView sets the initial debug view.
func WithDebugView(view DebugView) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.debugView = view
	}
}

// WithBaseColor sets the surface color of the shaded geometry.
func WithBaseColor(c common.Color) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.baseColor = c
	}
}

// WithFrustumCulling toggles skipping batches whose bounds fall outside the light or observer frustum.
// It is enabled by default.
func WithFrustumCulling(enabled bool) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.frustumCulling = enabled
	}
}
