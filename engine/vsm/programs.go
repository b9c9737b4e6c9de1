package vsm

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"go.uber.org/multierr"
)

const (
	CapturePipelineKey   = "vsm.capture"
	BlurPipelineKey      = "vsm.blur"
	CompositePipelineKey = "vsm.composite"
)

// positionAttribute is the vertex input every batch binds its positions to.
const positionAttribute = "position"

// captureHandles are the capture program's lookups, resolved once after creation.
type captureHandles struct {
	lightView       shader.UniformHandle
	lightProjection shader.UniformHandle
	lightFar        shader.UniformHandle
	position        shader.AttributeHandle
}

type blurHandles struct {
	weights   shader.UniformHandle
	direction shader.UniformHandle
	taps      shader.UniformHandle
	source    shader.TextureHandle
}

type compositeHandles struct {
	cameraViewProjection shader.UniformHandle
	lightView            shader.UniformHandle
	lightProjection      shader.UniformHandle
	lightPosition        shader.UniformHandle
	lightFar             shader.UniformHandle
	lightColor           shader.UniformHandle
	baseColor            shader.UniformHandle
	ambient              shader.UniformHandle
	debugView            shader.UniformHandle
	shadowMap            shader.TextureHandle
	position             shader.AttributeHandle
}

// programs holds the three pipelines and their handles. The renderer owns the device objects.
type programs struct {
	capture   pipeline.Pipeline
	blur      pipeline.Pipeline
	composite pipeline.Pipeline

	captureHandles   *captureHandles
	blurHandles      *blurHandles
	compositeHandles *compositeHandles
}

// newPrograms compiles and validates the shipped WGSL, builds the pipelines with their
// software stages and resolves every handle the passes use.
//
// Parameters:
//   - screen: the color format of the screen target the composite pass writes
//
// Returns:
//   - *programs: the programs
//   - error: a *common.InitializationError if a stage does not compile or a lookup fails
func newPrograms(screen target.ColorFormat) (*programs, error) {
	pp := newPreProcessor()
	var errs error
	compile := func(key string, t shader.ShaderType, src string) shader.Shader {
		s, err := shader.NewShader(key, t, src, shader.WithPreProcessor(pp))
		errs = multierr.Append(errs, err)
		return s
	}
	captureVS := compile("capture.vert", shader.ShaderTypeVertex, captureVertexSource)
	captureFS := compile("capture.frag", shader.ShaderTypeFragment, captureFragmentSource)
	fullscreenVS := compile("fullscreen.vert", shader.ShaderTypeVertex, fullscreenVertexSource)
	blurFS := compile("blur.frag", shader.ShaderTypeFragment, blurFragmentSource)
	compositeVS := compile("composite.vert", shader.ShaderTypeVertex, compositeVertexSource)
	compositeFS := compile("composite.frag", shader.ShaderTypeFragment, compositeFragmentSource)
	if errs != nil {
		return nil, errs
	}

	p := &programs{
		captureHandles:   &captureHandles{},
		blurHandles:      &blurHandles{},
		compositeHandles: &compositeHandles{},
	}

	var err error
	p.capture, err = pipeline.NewPipeline(CapturePipelineKey,
		pipeline.WithVertexShader(captureVS),
		pipeline.WithFragmentShader(captureFS),
		pipeline.WithDepthCompare(pipeline.CompareLessEqual),
		pipeline.WithCullMode(pipeline.CullModeFront),
		pipeline.WithFrontFace(pipeline.FrontFaceCCW),
		pipeline.WithTargetFormats(target.ColorFormatRG16Float, target.DepthFormatDepth16Unorm),
		pipeline.WithSoftwareShader(captureSoftwareShader(p.captureHandles)),
	)
	if err != nil {
		return nil, err
	}
	p.blur, err = pipeline.NewPipeline(BlurPipelineKey,
		pipeline.WithVertexShader(fullscreenVS),
		pipeline.WithFragmentShader(blurFS),
		pipeline.WithFullscreen(),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithTargetFormats(target.ColorFormatRG16Float, target.DepthFormatDepth16Unorm),
		pipeline.WithSoftwareShader(blurSoftwareShader(p.blurHandles)),
	)
	if err != nil {
		return nil, err
	}
	p.composite, err = pipeline.NewPipeline(CompositePipelineKey,
		pipeline.WithVertexShader(compositeVS),
		pipeline.WithFragmentShader(compositeFS),
		pipeline.WithDepthCompare(pipeline.CompareLessEqual),
		pipeline.WithCullMode(pipeline.CullModeBack),
		pipeline.WithFrontFace(pipeline.FrontFaceCCW),
		pipeline.WithTargetFormats(screen, target.DepthFormatDepth16Unorm),
		pipeline.WithSoftwareShader(compositeSoftwareShader(p.compositeHandles)),
	)
	if err != nil {
		return nil, err
	}

	if err := p.resolve(); err != nil {
		return nil, &common.InitializationError{Op: "resolve handles", Err: err}
	}
	if p.captureHandles.position.Location() != p.compositeHandles.position.Location() {
		return nil, common.NewInitializationError("resolve handles",
			"capture reads positions at location %d, composite at %d",
			p.captureHandles.position.Location(), p.compositeHandles.position.Location())
	}
	return p, nil
}

// positionSlot is the attribute location batches upload their positions to.
func (p *programs) positionSlot() uint32 {
	return p.captureHandles.position.Location()
}

func (p *programs) all() []pipeline.Pipeline {
	return []pipeline.Pipeline{p.capture, p.blur, p.composite}
}

func (p *programs) resolve() error {
	c := &handleResolver{p: p.capture}
	*p.captureHandles = captureHandles{
		lightView:       c.uniform("light_view"),
		lightProjection: c.uniform("light_projection"),
		lightFar:        c.uniform("light_far"),
		position:        c.attribute(positionAttribute),
	}

	b := &handleResolver{p: p.blur}
	*p.blurHandles = blurHandles{
		weights:   b.uniform("weights"),
		direction: b.uniform("direction"),
		taps:      b.uniform("taps"),
		source:    b.texture("source"),
	}

	s := &handleResolver{p: p.composite}
	*p.compositeHandles = compositeHandles{
		cameraViewProjection: s.uniform("camera_view_projection"),
		lightView:            s.uniform("light_view"),
		lightProjection:      s.uniform("light_projection"),
		lightPosition:        s.uniform("light_position"),
		lightFar:             s.uniform("light_far"),
		lightColor:           s.uniform("light_color"),
		baseColor:            s.uniform("base_color"),
		ambient:              s.uniform("ambient"),
		debugView:            s.uniform("debug_view"),
		shadowMap:            s.texture("shadow_map"),
		position:             s.attribute(positionAttribute),
	}
	return multierr.Combine(c.err, b.err, s.err)
}

// handleResolver collects lookup errors so a program's handles resolve in one expression.
type handleResolver struct {
	p   pipeline.Pipeline
	err error
}

func (r *handleResolver) uniform(name string) shader.UniformHandle {
	h, err := r.p.Uniform(name)
	r.err = multierr.Append(r.err, err)
	return h
}

func (r *handleResolver) texture(name string) shader.TextureHandle {
	h, err := r.p.Texture(name)
	r.err = multierr.Append(r.err, err)
	return h
}

func (r *handleResolver) attribute(name string) shader.AttributeHandle {
	for _, in := range r.p.Shader(shader.ShaderTypeVertex).VertexInputs() {
		if in.Name == name {
			h, err := r.p.Attribute(name, in.Location)
			r.err = multierr.Append(r.err, err)
			return h
		}
	}
	r.err = multierr.Append(r.err, common.NewUsageError("program "+r.p.Key(), "no vertex input named %q", name))
	return shader.AttributeHandle{}
}
