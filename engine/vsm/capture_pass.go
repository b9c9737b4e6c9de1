package vsm

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/light"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
)

// capturePass renders the light's view of the batches into the raw variance target.
// Front faces are culled, so the map stores the far side of closed shapes.
type capturePass struct {
	program pipeline.Pipeline
	handles *captureHandles
	cull    bool
}

// run binds raw for writing, clears it and draws every batch the light can see.
func (c *capturePass) run(r renderer.Renderer, raw target.RenderTarget, l light.Light, batches []geometry.Batch) (err error) {
	if err := raw.BindAsWriteTarget(); err != nil {
		return err
	}
	defer raw.Unbind()
	if err := raw.Clear(target.ClearAll); err != nil {
		return err
	}

	pass, err := r.BeginPass(raw, c.program)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pass.End()) }()

	projector := l.Camera()
	err = multierr.Combine(
		pass.SetMatrix(c.handles.lightView, projector.ViewMatrix()),
		pass.SetMatrix(c.handles.lightProjection, projector.ProjectionMatrix()),
		pass.SetFloat(c.handles.lightFar, l.Far()),
	)
	if err != nil {
		return err
	}
	return drawBatches(pass, visibleBatches(batches, projector.ViewProjectionMatrix(), c.cull))
}

// drawBatches binds and draws each batch, unbinding all of them when done.
func drawBatches(d geometry.Drawer, batches []geometry.Batch) error {
	defer func() {
		for _, b := range batches {
			b.Unbind()
		}
	}()
	for _, b := range batches {
		if err := b.Bind(); err != nil {
			return err
		}
		if err := b.Draw(d); err != nil {
			return err
		}
	}
	return nil
}

// visibleBatches drops batches whose bounding sphere is outside the frustum of viewProjection.
func visibleBatches(batches []geometry.Batch, viewProjection mgl32.Mat4, cull bool) []geometry.Batch {
	if !cull {
		return batches
	}
	frustum := common.ExtractFrustum(viewProjection)
	visible := make([]geometry.Batch, 0, len(batches))
	for _, b := range batches {
		if center, radius := b.Bounds(); frustum.IntersectsSphere(center, radius) {
			visible = append(visible, b)
		}
	}
	return visible
}
