package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
)

const testUniforms = `struct Frame {
    view_projection: mat4x4<f32>,
    far: f32,
    weights: array<vec4<f32>, 8>,
}
@group(0) @binding(0) var<uniform> frame: Frame;`

const testVertex = `//@vsm:include frame

@group(0) @binding(1) var source: texture_2d<f32>;
@group(0) @binding(2) var source_sampler: sampler;

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.clip = frame.view_projection * vec4<f32>(position, 1.0);
    out.uv = position.xy;
    return out;
}
`

func newTestShader(t *testing.T) Shader {
	t.Helper()
	s, err := NewShader("test.vert", ShaderTypeVertex, testVertex,
		WithPreProcessor(NewPreProcessor(map[string]string{"frame": testUniforms})))
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	return s
}

func TestPreProcessor(t *testing.T) {
	pp := NewPreProcessor(nil)
	pp.Register("x", "struct X { a: f32, }")

	out, err := pp.Process("  //@vsm:include x\nfn f() {}")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "struct X") || !strings.HasSuffix(out, "fn f() {}") {
		t.Errorf("Process() = %q", out)
	}

	bad := []string{"//@vsm:include", "//@vsm:include a b", "//@vsm:include missing"}
	for _, src := range bad {
		if _, err := pp.Process(src); err == nil {
			t.Errorf("Process(%q) succeeded, want error", src)
		}
	}
}

func TestShaderReflection(t *testing.T) {
	s := newTestShader(t)

	if s.EntryPoint() != "vs_main" {
		t.Errorf("EntryPoint() = %q, want vs_main", s.EntryPoint())
	}
	inputs := s.VertexInputs()
	if len(inputs) != 1 || inputs[0].Name != "position" || inputs[0].Location != 0 || inputs[0].Components != 3 {
		t.Errorf("VertexInputs() = %+v", inputs)
	}

	frame, ok := s.Binding("frame")
	if !ok || frame.Kind != BindingKindUniform || frame.Group != 0 || frame.Binding != 0 {
		t.Fatalf("Binding(frame) = %+v, %v", frame, ok)
	}
	want := []UniformMember{
		{Name: "view_projection", Offset: 0, Size: 64},
		{Name: "far", Offset: 64, Size: 4},
		{Name: "weights", Offset: 80, Size: 128},
	}
	if len(frame.Members) != len(want) {
		t.Fatalf("members = %+v, want %+v", frame.Members, want)
	}
	for i, m := range want {
		if frame.Members[i] != m {
			t.Errorf("member %d = %+v, want %+v", i, frame.Members[i], m)
		}
	}
	if frame.Size < 208 {
		t.Errorf("uniform size = %d, want at least 208", frame.Size)
	}

	if b, _ := s.Binding("source"); b.Kind != BindingKindTexture || b.Binding != 1 {
		t.Errorf("Binding(source) = %+v", b)
	}
	if b, _ := s.Binding("source_sampler"); b.Kind != BindingKindSampler || b.Binding != 2 {
		t.Errorf("Binding(source_sampler) = %+v", b)
	}
}

func TestShaderStructVertexInputs(t *testing.T) {
	src := `struct VertexInput {
    @location(2) uv: vec2<f32>,
    @location(0) position: vec3<f32>,
}

@vertex
fn vs_main(in: VertexInput, @location(1) weight: f32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(in.position * weight, in.uv.x);
}
`
	s, err := NewShader("struct.vert", ShaderTypeVertex, src)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}

	want := []VertexInput{
		{Name: "position", Location: 0, Components: 3},
		{Name: "weight", Location: 1, Components: 1},
		{Name: "uv", Location: 2, Components: 2},
	}
	got := s.VertexInputs()
	if len(got) != len(want) {
		t.Fatalf("VertexInputs() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("VertexInputs()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFindHandles(t *testing.T) {
	s := newTestShader(t)

	u, err := FindUniform("prog", "far", s)
	if err != nil {
		t.Fatal(err)
	}
	if u.Program() != "prog" || u.Offset() != 64 || u.Size() != 4 || !u.Valid() {
		t.Errorf("FindUniform(far) = %+v", u)
	}

	tex, err := FindTexture("prog", "source", s)
	if err != nil {
		t.Fatal(err)
	}
	if sb, ok := tex.SamplerBinding(); !ok || sb != 2 {
		t.Errorf("sampler binding = %d, %v, want 2, true", sb, ok)
	}

	if _, err := FindAttribute("prog", "position", 0, s); err != nil {
		t.Errorf("FindAttribute(position, 0) = %v", err)
	}

	var usage *common.UsageError
	if _, err := FindUniform("prog", "missing", s); !errors.As(err, &usage) {
		t.Errorf("FindUniform(missing) = %v, want UsageError", err)
	}
	if _, err := FindTexture("prog", "far", s); !errors.As(err, &usage) {
		t.Errorf("FindTexture(far) = %v, want UsageError", err)
	}
	if _, err := FindAttribute("prog", "position", 1, s); !errors.As(err, &usage) {
		t.Errorf("FindAttribute(position, 1) = %v, want UsageError", err)
	}
	if (UniformHandle{}).Valid() {
		t.Error("zero UniformHandle reports Valid")
	}
}

func TestNewShaderErrors(t *testing.T) {
	cases := []struct {
		name       string
		shaderType ShaderType
		source     string
	}{
		{"empty", ShaderTypeVertex, ""},
		{"syntax", ShaderTypeVertex, "fn vs_main( {"},
		{"missing stage", ShaderTypeFragment, strings.Replace(testVertex, "//@vsm:include frame", testUniforms, 1)},
		{"unknown include", ShaderTypeVertex, "//@vsm:include nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewShader(tc.name, tc.shaderType, tc.source, WithPreProcessor(NewPreProcessor(nil)))
			var initErr *common.InitializationError
			if !errors.As(err, &initErr) {
				t.Errorf("NewShader() = %v, want InitializationError", err)
			}
		})
	}
}
