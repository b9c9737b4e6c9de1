package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type pass struct {
	mu *sync.Mutex

	r        *renderer
	pipeline pipeline.Pipeline
	target   target.RenderTarget
	encoder  passEncoder

	uniforms *pipeline.UniformBuffers
	textures map[pipeline.BindingKey]target.RenderTarget
	draws    int
	ended    bool
}

// Pass is an open render pass: one pipeline drawing into one write target.
// Uniform values and textures set on the pass apply to every following draw.
type Pass interface {
	geometry.Drawer

	// SetMatrix writes a mat4x4<f32> uniform.
	//
	// Parameters:
	//   - h: a handle from the pass's pipeline
	//   - m: the column-major matrix
	//
	// Returns:
	//   - error: a *common.UsageError for a foreign handle or a size mismatch
	SetMatrix(h shader.UniformHandle, m mgl32.Mat4) error

	// SetFloat writes an f32 uniform.
	SetFloat(h shader.UniformHandle, v float32) error

	// SetUint writes a u32 uniform.
	SetUint(h shader.UniformHandle, v uint32) error

	// SetVec2 writes a vec2<f32> uniform.
	SetVec2(h shader.UniformHandle, v mgl32.Vec2) error

	// SetVec3 writes a vec3<f32> uniform.
	SetVec3(h shader.UniformHandle, v mgl32.Vec3) error

	// SetFloats writes consecutive f32 values starting at the uniform, e.g. an array of vec4.
	SetFloats(h shader.UniformHandle, v ...float32) error

	// SetTexture binds a read-source target to a texture of the pipeline.
	//
	// Parameters:
	//   - h: a texture handle from the pass's pipeline
	//   - t: a target bound with BindAsReadSource
	//
	// Returns:
	//   - error: a *common.UsageError for a foreign handle or a target not bound for reading
	SetTexture(h shader.TextureHandle, t target.RenderTarget) error

	// DrawFullscreen draws one triangle covering the whole target. The pipeline's vertex stage
	// builds the triangle from the vertex index.
	//
	// Returns:
	//   - error: a *common.UsageError if the pass has ended or a texture is unbound
	DrawFullscreen() error

	// End finishes the pass and submits its work. A second call is a no-op.
	//
	// Returns:
	//   - error: an error if the backend failed to submit
	End() error
}

var _ Pass = &pass{}

func (p *pass) SetMatrix(h shader.UniformHandle, m mgl32.Mat4) error {
	return p.SetFloats(h, m[:]...)
}

func (p *pass) SetFloat(h shader.UniformHandle, v float32) error {
	return p.SetFloats(h, v)
}

func (p *pass) SetUint(h shader.UniformHandle, v uint32) error {
	if err := p.check("set uniform " + h.Name()); err != nil {
		return err
	}
	return p.uniforms.SetUint32(h, v)
}

func (p *pass) SetVec2(h shader.UniformHandle, v mgl32.Vec2) error {
	return p.SetFloats(h, v[:]...)
}

func (p *pass) SetVec3(h shader.UniformHandle, v mgl32.Vec3) error {
	return p.SetFloats(h, v[:]...)
}

func (p *pass) SetFloats(h shader.UniformHandle, v ...float32) error {
	if err := p.check("set uniform " + h.Name()); err != nil {
		return err
	}
	return p.uniforms.SetFloat32s(h, v...)
}

func (p *pass) SetTexture(h shader.TextureHandle, t target.RenderTarget) error {
	op := "set texture " + h.Name()
	if err := p.check(op); err != nil {
		return err
	}
	if h.Program() != p.pipeline.Key() {
		return common.NewUsageError(p.op(op), "handle belongs to program %q", h.Program())
	}
	if t.Role() != target.RoleRead {
		return common.NewUsageError(p.op(op), "target %s is not bound as a read source", t.Label())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textures[pipeline.BindingKey{Group: h.Group(), Binding: h.Binding()}] = t
	return nil
}

func (p *pass) DrawMesh(buffers geometry.MeshBuffers, model mgl32.Mat4) error {
	if buffers == nil {
		return common.NewUsageError(p.op("draw"), "no mesh buffers")
	}
	return p.draw(buffers, model)
}

func (p *pass) DrawFullscreen() error {
	if !p.pipeline.Fullscreen() {
		return common.NewUsageError(p.op("draw fullscreen"), "pipeline has no fullscreen vertex stage")
	}
	return p.draw(nil, mgl32.Ident4())
}

func (p *pass) End() error {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return nil
	}
	p.ended = true
	p.mu.Unlock()

	err := p.encoder.End()
	p.r.endPass(p)
	common.Logger().Debug("pass ended",
		zap.String("pipeline", p.pipeline.Key()),
		zap.String("target", p.target.Label()),
		zap.Int("draws", p.draws),
		zap.Error(err),
	)
	return err
}

func (p *pass) draw(mesh geometry.MeshBuffers, model mgl32.Mat4) error {
	if err := p.check("draw"); err != nil {
		return err
	}
	p.mu.Lock()
	textures := make(map[pipeline.BindingKey]target.RenderTarget, len(p.textures))
	for k, v := range p.textures {
		textures[k] = v
	}
	p.draws++
	p.mu.Unlock()

	for _, b := range p.pipeline.Bindings() {
		if b.Kind != shader.BindingKindTexture {
			continue
		}
		t, ok := textures[pipeline.BindingKey{Group: b.Group, Binding: b.Binding}]
		if !ok {
			return common.NewUsageError(p.op("draw"), "texture %q is not bound", b.Name)
		}
		if t.Role() != target.RoleRead {
			return common.NewUsageError(p.op("draw"), "texture %q target %s was unbound", b.Name, t.Label())
		}
	}

	return p.encoder.Draw(drawCall{
		mesh:     mesh,
		model:    model,
		uniforms: p.uniforms,
		textures: textures,
	})
}

func (p *pass) check(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return common.NewUsageError(p.op(op), "pass has ended")
	}
	return nil
}

func (p *pass) op(name string) string {
	return "pass " + p.pipeline.Key() + ": " + name
}
