package vsm

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/light"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"go.uber.org/multierr"
)

// compositePass shades the batches from the observer into the screen target, attenuating the
// light by the Chebyshev bound read from the filtered variance map.
type compositePass struct {
	program pipeline.Pipeline
	handles *compositeHandles
	cull    bool
}

// compositeParams are the per-frame surface and debug settings.
type compositeParams struct {
	baseColor common.Color
	debugView DebugView
}

func (c *compositePass) run(r renderer.Renderer, observer camera.Camera, l light.Light, filtered target.RenderTarget, batches []geometry.Batch, params compositeParams) (err error) {
	if err := filtered.BindAsReadSource(0); err != nil {
		return err
	}
	defer filtered.Unbind()

	screen := r.Screen()
	if err := screen.BindAsWriteTarget(); err != nil {
		return err
	}
	defer screen.Unbind()
	if err := screen.Clear(target.ClearAll); err != nil {
		return err
	}

	pass, err := r.BeginPass(screen, c.program)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pass.End()) }()

	projector := l.Camera()
	lightColor := l.Color().Mul(l.Intensity())
	base := params.baseColor
	err = multierr.Combine(
		pass.SetMatrix(c.handles.cameraViewProjection, observer.ViewProjectionMatrix()),
		pass.SetMatrix(c.handles.lightView, projector.ViewMatrix()),
		pass.SetMatrix(c.handles.lightProjection, projector.ProjectionMatrix()),
		pass.SetVec3(c.handles.lightPosition, l.Position()),
		pass.SetFloat(c.handles.lightFar, l.Far()),
		pass.SetFloats(c.handles.lightColor, lightColor.X(), lightColor.Y(), lightColor.Z(), 1),
		pass.SetFloats(c.handles.baseColor, base.R, base.G, base.B, base.A),
		pass.SetFloat(c.handles.ambient, l.Ambient()),
		pass.SetUint(c.handles.debugView, uint32(params.debugView)),
		pass.SetTexture(c.handles.shadowMap, filtered),
	)
	if err != nil {
		return err
	}
	return drawBatches(pass, visibleBatches(batches, observer.ViewProjectionMatrix(), c.cull))
}
