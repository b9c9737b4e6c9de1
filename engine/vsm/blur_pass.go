package vsm

import (
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
)

// blurPass filters a variance target with a separable Gaussian: one horizontal and one
// vertical fullscreen draw.
type blurPass struct {
	program pipeline.Pipeline
	handles *blurHandles
}

// run blurs source along x into horizontal, then horizontal along y into vertical.
func (b *blurPass) run(r renderer.Renderer, source, horizontal, vertical target.RenderTarget, k Kernel) error {
	if err := b.draw(r, source, horizontal, mgl32.Vec2{1 / float32(source.Width()), 0}, k); err != nil {
		return err
	}
	return b.draw(r, horizontal, vertical, mgl32.Vec2{0, 1 / float32(horizontal.Height())}, k)
}

// draw runs one direction. step is the uv distance between neighboring taps.
func (b *blurPass) draw(r renderer.Renderer, src, dst target.RenderTarget, step mgl32.Vec2, k Kernel) (err error) {
	if err := src.BindAsReadSource(0); err != nil {
		return err
	}
	defer src.Unbind()
	if err := dst.BindAsWriteTarget(); err != nil {
		return err
	}
	defer dst.Unbind()
	if err := dst.Clear(target.ClearAll); err != nil {
		return err
	}

	pass, err := r.BeginPass(dst, b.program)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pass.End()) }()

	err = multierr.Combine(
		pass.SetFloats(b.handles.weights, k.Packed()...),
		pass.SetVec2(b.handles.direction, step),
		pass.SetUint(b.handles.taps, k.Taps()),
		pass.SetTexture(b.handles.source, src),
	)
	if err != nil {
		return err
	}
	return pass.DrawFullscreen()
}
