package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

const testVertex = `struct Frame {
    view_projection: mat4x4<f32>,
    far: f32,
}
@group(0) @binding(0) var<uniform> frame: Frame;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return frame.view_projection * vec4<f32>(position, frame.far);
}
`

const testFragment = `struct Frame {
    view_projection: mat4x4<f32>,
    far: f32,
}
@group(0) @binding(0) var<uniform> frame: Frame;
@group(0) @binding(1) var source: texture_2d<f32>;
@group(0) @binding(2) var source_sampler: sampler;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return textureSample(source, source_sampler, vec2<f32>(frame.far, 0.0));
}
`

const mismatchedFragment = `@group(0) @binding(0) var source: texture_2d<f32>;
@group(0) @binding(1) var source_sampler: sampler;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return textureSample(source, source_sampler, vec2<f32>(0.5, 0.5));
}
`

func compile(t *testing.T, key string, shaderType shader.ShaderType, src string) shader.Shader {
	t.Helper()
	s, err := shader.NewShader(key, shaderType, src)
	if err != nil {
		t.Fatalf("NewShader(%s): %v", key, err)
	}
	return s
}

func newTestPipeline(t *testing.T) Pipeline {
	t.Helper()
	p, err := NewPipeline("test",
		WithVertexShader(compile(t, "test.vert", shader.ShaderTypeVertex, testVertex)),
		WithFragmentShader(compile(t, "test.frag", shader.ShaderTypeFragment, testFragment)),
		WithCullMode(CullModeFront),
	)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestNewPipeline(t *testing.T) {
	p := newTestPipeline(t)

	bindings := p.Bindings()
	if len(bindings) != 3 {
		t.Fatalf("Bindings() = %+v, want 3 merged entries", bindings)
	}
	for i, b := range bindings {
		if b.Binding != uint32(i) {
			t.Errorf("binding %d = %+v, want sorted by binding", i, b)
		}
	}
	if p.CullMode() != CullModeFront || !p.DepthTestEnabled() || p.DepthCompare() != CompareLessEqual {
		t.Errorf("fixed-function state = %v %v %v", p.CullMode(), p.DepthTestEnabled(), p.DepthCompare())
	}
	if p.Pipeline() != nil {
		t.Error("Pipeline() before registration is not nil")
	}
	p.SetPipeline("backend")
	if p.Pipeline() != "backend" {
		t.Errorf("Pipeline() = %v, want backend", p.Pipeline())
	}
}

func TestNewPipelineErrors(t *testing.T) {
	vert := compile(t, "test.vert", shader.ShaderTypeVertex, testVertex)
	frag := compile(t, "test.frag", shader.ShaderTypeFragment, testFragment)
	mismatch := compile(t, "mismatch.frag", shader.ShaderTypeFragment, mismatchedFragment)

	cases := []struct {
		name string
		opts []PipelineBuilderOption
	}{
		{"no stages", nil},
		{"no fragment", []PipelineBuilderOption{WithVertexShader(vert)}},
		{"no vertex", []PipelineBuilderOption{WithFragmentShader(frag)}},
		{"swapped stages", []PipelineBuilderOption{WithVertexShader(frag), WithFragmentShader(vert)}},
		{"binding kind mismatch", []PipelineBuilderOption{WithVertexShader(vert), WithFragmentShader(mismatch)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPipeline(tc.name, tc.opts...)
			var initErr *common.InitializationError
			if !errors.As(err, &initErr) {
				t.Errorf("NewPipeline() = %v, want InitializationError", err)
			}
		})
	}
}

func TestDepthTestDisablesWrites(t *testing.T) {
	p, err := NewPipeline("test",
		WithVertexShader(compile(t, "test.vert", shader.ShaderTypeVertex, testVertex)),
		WithFragmentShader(compile(t, "test.frag", shader.ShaderTypeFragment, testFragment)),
		WithDepthTestEnabled(false),
	)
	if err != nil {
		t.Fatal(err)
	}
	if p.DepthWriteEnabled() {
		t.Error("depth writes enabled with the depth test off")
	}
}

func TestHandles(t *testing.T) {
	p := newTestPipeline(t)

	if _, err := p.Uniform("far"); err != nil {
		t.Errorf("Uniform(far) = %v", err)
	}
	tex, err := p.Texture("source")
	if err != nil {
		t.Fatalf("Texture(source) = %v", err)
	}
	if tex.Program() != "test" {
		t.Errorf("texture program = %q, want test", tex.Program())
	}
	if _, err := p.Attribute("position", 0); err != nil {
		t.Errorf("Attribute(position, 0) = %v", err)
	}

	var usage *common.UsageError
	if _, err := p.Uniform("nope"); !errors.As(err, &usage) {
		t.Errorf("Uniform(nope) = %v, want UsageError", err)
	}
	if _, err := p.Attribute("position", 3); !errors.As(err, &usage) {
		t.Errorf("Attribute(position, 3) = %v, want UsageError", err)
	}
}

func TestUniformBuffers(t *testing.T) {
	p := newTestPipeline(t)
	u := NewUniformBuffers(p)

	vp, _ := p.Uniform("view_projection")
	far, _ := p.Uniform("far")

	m := mgl32.Translate3D(1, 2, 3)
	if err := u.SetFloat32s(vp, m[:]...); err != nil {
		t.Fatal(err)
	}
	if err := u.SetFloat32s(far, 16); err != nil {
		t.Fatal(err)
	}
	if got := u.Mat4(vp); got != m {
		t.Errorf("Mat4() = %v, want %v", got, m)
	}
	if got := u.Float32(far); got != 16 {
		t.Errorf("Float32(far) = %v, want 16", got)
	}

	dirty := u.TakeDirty()
	if len(dirty) != 1 || dirty[0] != (BindingKey{0, 0}) {
		t.Errorf("TakeDirty() = %v, want [{0 0}]", dirty)
	}
	if len(u.TakeDirty()) != 0 {
		t.Error("TakeDirty() did not clear the set")
	}

	var usage *common.UsageError
	if err := u.SetFloat32s(far, 1, 2); !errors.As(err, &usage) {
		t.Errorf("oversized write = %v, want UsageError", err)
	}

	foreign, err := NewPipeline("other",
		WithVertexShader(p.Shader(shader.ShaderTypeVertex)),
		WithFragmentShader(p.Shader(shader.ShaderTypeFragment)),
	)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := foreign.Uniform("far")
	if err := u.SetFloat32s(h, 1); !errors.As(err, &usage) {
		t.Errorf("foreign handle = %v, want UsageError", err)
	}
}

func TestCompareFunction(t *testing.T) {
	cases := []struct {
		compare       CompareFunction
		depth, stored float32
		want          bool
	}{
		{CompareAlways, 1, 0, true},
		{CompareLess, 0.5, 0.5, false},
		{CompareLess, 0.4, 0.5, true},
		{CompareLessEqual, 0.5, 0.5, true},
		{CompareLessEqual, 0.6, 0.5, false},
	}
	for _, tc := range cases {
		if got := tc.compare.Passes(tc.depth, tc.stored); got != tc.want {
			t.Errorf("%v.Passes(%v, %v) = %v, want %v", tc.compare, tc.depth, tc.stored, got, tc.want)
		}
	}
}
