package target

import "github.com/Carmen-Shannon/oxy-vsm/common"

// RenderTargetBuilderOption is a functional option for configuring a RenderTarget.
type RenderTargetBuilderOption func(*renderTargetImpl)

// WithLabel sets the debug label used in logs and errors.
func WithLabel(label string) RenderTargetBuilderOption {
	return func(t *renderTargetImpl) {
		t.label = label
	}
}

// WithClearColor sets the color Clear resets the color attachment to.
func WithClearColor(color common.Color) RenderTargetBuilderOption {
	return func(t *renderTargetImpl) {
		t.clearColor = color
	}
}

// WithClearDepth sets the depth Clear resets the depth attachment to.
func WithClearDepth(depth float32) RenderTargetBuilderOption {
	return func(t *renderTargetImpl) {
		t.clearDepth = depth
	}
}
