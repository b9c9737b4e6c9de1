package renderer

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"github.com/go-gl/mathgl/mgl32"
)

const solidVertex = `struct Frame {
    view_projection: mat4x4<f32>,
    color: vec4<f32>,
}
@group(0) @binding(0) var<uniform> frame: Frame;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return frame.view_projection * vec4<f32>(position, 1.0);
}
`

const solidFragment = `struct Frame {
    view_projection: mat4x4<f32>,
    color: vec4<f32>,
}
@group(0) @binding(0) var<uniform> frame: Frame;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return frame.color;
}
`

const copyVertex = `struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = select(-1.0, 3.0, index == 1u);
    let y = select(-1.0, 3.0, index == 2u);
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>(x * 0.5 + 0.5, 0.5 - y * 0.5);
    return out;
}
`

const copyFragment = `@group(0) @binding(0) var source: texture_2d<f32>;
@group(0) @binding(1) var source_sampler: sampler;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(source, source_sampler, uv);
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

// newSolidPipeline draws meshes with a flat color. The handles are resolved after creation, so the
// software stages capture them through pointers.
func newSolidPipeline(t *testing.T, key string, options ...pipeline.PipelineBuilderOption) pipeline.Pipeline {
	t.Helper()
	var viewProjection, color shader.UniformHandle
	sw := pipeline.SoftwareShader{
		Vertex: func(u pipeline.Uniforms, position mgl32.Vec3, model mgl32.Mat4, _ []float32) mgl32.Vec4 {
			return u.Mat4(viewProjection).Mul4(model).Mul4x1(position.Vec4(1))
		},
		Fragment: func(u pipeline.Uniforms, _ pipeline.Textures, _ *pipeline.Fragment) mgl32.Vec4 {
			var c mgl32.Vec4
			copy(c[:], u.Float32s(color))
			return c
		},
	}
	options = append([]pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(compile(t, key+".vert", shader.ShaderTypeVertex, solidVertex)),
		pipeline.WithFragmentShader(compile(t, key+".frag", shader.ShaderTypeFragment, solidFragment)),
		pipeline.WithSoftwareShader(sw),
	}, options...)
	p, err := pipeline.NewPipeline(key, options...)
	if err != nil {
		t.Fatalf("NewPipeline(%s): %v", key, err)
	}
	if viewProjection, err = p.Uniform("view_projection"); err != nil {
		t.Fatal(err)
	}
	if color, err = p.Uniform("color"); err != nil {
		t.Fatal(err)
	}
	return p
}

func newCopyPipeline(t *testing.T) pipeline.Pipeline {
	t.Helper()
	var source shader.TextureHandle
	sw := pipeline.SoftwareShader{
		Varyings: 2,
		Vertex: func(_ pipeline.Uniforms, position mgl32.Vec3, _ mgl32.Mat4, varyings []float32) mgl32.Vec4 {
			varyings[0] = position.X()*0.5 + 0.5
			varyings[1] = 0.5 - position.Y()*0.5
			return position.Vec4(1)
		},
		Fragment: func(_ pipeline.Uniforms, tex pipeline.Textures, frag *pipeline.Fragment) mgl32.Vec4 {
			return tex.Sample(source, mgl32.Vec2{frag.Varyings[0], frag.Varyings[1]})
		},
	}
	p, err := pipeline.NewPipeline("copy",
		pipeline.WithVertexShader(compile(t, "copy.vert", shader.ShaderTypeVertex, copyVertex)),
		pipeline.WithFragmentShader(compile(t, "copy.frag", shader.ShaderTypeFragment, copyFragment)),
		pipeline.WithFullscreen(),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithSoftwareShader(sw),
	)
	if err != nil {
		t.Fatalf("NewPipeline(copy): %v", err)
	}
	if source, err = p.Texture("source"); err != nil {
		t.Fatal(err)
	}
	return p
}

func newSoftwareRenderer(t *testing.T, width, height uint32, pipelines ...pipeline.Pipeline) Renderer {
	t.Helper()
	options := []RendererBuilderOption{WithWorkers(4)}
	for _, p := range pipelines {
		options = append(options, WithPipeline(p))
	}
	r, err := NewRenderer(BackendTypeSoftware, options...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(func() { _ = r.Release() })
	if err := r.Resize(width, height); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	return r
}

// drawTriangles clears the screen and draws one mesh per color with the solid pipeline.
func drawTriangles(t *testing.T, r Renderer, p pipeline.Pipeline, viewProjection mgl32.Mat4, meshes [][]float32, colors []mgl32.Vec4) {
	t.Helper()
	screen := r.Screen()
	if err := screen.BindAsWriteTarget(); err != nil {
		t.Fatal(err)
	}
	defer screen.Unbind()
	if err := screen.Clear(target.ClearAll); err != nil {
		t.Fatal(err)
	}

	ps, err := r.BeginPass(screen, p)
	if err != nil {
		t.Fatalf("BeginPass: %v", err)
	}
	defer ps.End()

	vp, _ := p.Uniform("view_projection")
	color, _ := p.Uniform("color")
	if err := ps.SetMatrix(vp, viewProjection); err != nil {
		t.Fatal(err)
	}
	for i, positions := range meshes {
		indices := make([]uint32, len(positions)/3)
		for j := range indices {
			indices[j] = uint32(j)
		}
		buffers, err := r.Uploader().UploadMesh("mesh", positions, indices, 0)
		if err != nil {
			t.Fatal(err)
		}
		if err := ps.SetFloats(color, colors[i][:]...); err != nil {
			t.Fatal(err)
		}
		if err := ps.DrawMesh(buffers, mgl32.Ident4()); err != nil {
			t.Fatalf("DrawMesh: %v", err)
		}
	}
}

func pixel(t *testing.T, r Renderer, x, y int) [4]uint8 {
	t.Helper()
	img, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	c := img.NRGBAAt(x, y)
	return [4]uint8{c.R, c.G, c.B, c.A}
}

var (
	red   = mgl32.Vec4{1, 0, 0, 1}
	green = mgl32.Vec4{0, 1, 0, 1}
)

func rgba8(c mgl32.Vec4) [4]uint8 {
	return common.Color{R: c[0], G: c[1], B: c[2], A: c[3]}.RGBA8()
}

func TestFullscreenCopy(t *testing.T) {
	p := newCopyPipeline(t)
	r := newSoftwareRenderer(t, 64, 48, p)

	source := target.NewRenderTarget(r.Allocator(), target.WithLabel("source"))
	defer source.Release()
	if err := source.Allocate(8, 8, target.ColorFormatRGBA8Unorm, target.DepthFormatNone); err != nil {
		t.Fatal(err)
	}
	fill := common.Color{R: 0.2, G: 0.4, B: 0.6, A: 1}
	source.SetClearColor(fill)
	if err := source.Clear(target.ClearColor); err != nil {
		t.Fatal(err)
	}

	screen := r.Screen()
	if err := screen.BindAsWriteTarget(); err != nil {
		t.Fatal(err)
	}
	ps, err := r.BeginPass(screen, p)
	if err != nil {
		t.Fatalf("BeginPass: %v", err)
	}
	h, _ := p.Texture("source")
	if err := ps.DrawFullscreen(); err == nil {
		t.Error("DrawFullscreen() with an unbound texture succeeded")
	}
	if err := ps.SetTexture(h, source); err == nil {
		t.Error("SetTexture() with a target that is not a read source succeeded")
	}
	if err := source.BindAsReadSource(0); err != nil {
		t.Fatal(err)
	}
	if err := ps.SetTexture(h, source); err != nil {
		t.Fatalf("SetTexture: %v", err)
	}
	if err := ps.DrawFullscreen(); err != nil {
		t.Fatalf("DrawFullscreen: %v", err)
	}
	if err := ps.End(); err != nil {
		t.Fatal(err)
	}
	screen.Unbind()
	source.Unbind()

	img, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := fill.RGBA8()
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			c := img.NRGBAAt(x, y)
			got := [4]uint8{c.R, c.G, c.B, c.A}
			if got != want {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestCulling(t *testing.T) {
	ccw := []float32{-0.5, -0.5, 0.5, 0.5, -0.5, 0.5, 0, 0.5, 0.5}
	cw := []float32{-0.5, -0.5, 0.5, 0, 0.5, 0.5, 0.5, -0.5, 0.5}
	background := common.White.RGBA8()

	cases := []struct {
		name      string
		cull      pipeline.CullMode
		mesh      []float32
		wantDrawn bool
	}{
		{"none keeps ccw", pipeline.CullModeNone, ccw, true},
		{"none keeps cw", pipeline.CullModeNone, cw, true},
		{"back keeps ccw", pipeline.CullModeBack, ccw, true},
		{"back drops cw", pipeline.CullModeBack, cw, false},
		{"front drops ccw", pipeline.CullModeFront, ccw, false},
		{"front keeps cw", pipeline.CullModeFront, cw, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newSolidPipeline(t, "solid", pipeline.WithCullMode(tc.cull))
			r := newSoftwareRenderer(t, 64, 64, p)
			r.Screen().SetClearColor(common.White)
			drawTriangles(t, r, p, mgl32.Ident4(), [][]float32{tc.mesh}, []mgl32.Vec4{red})

			got := pixel(t, r, 32, 36)
			if drawn := got != background; drawn != tc.wantDrawn {
				t.Errorf("pixel = %v, drawn = %v, want %v", got, drawn, tc.wantDrawn)
			}
			if corner := pixel(t, r, 1, 1); corner != background {
				t.Errorf("corner pixel = %v, want background %v", corner, background)
			}
		})
	}
}

func TestDepthTest(t *testing.T) {
	cover := func(z float32) []float32 {
		return []float32{-1, -1, z, 3, -1, z, -1, 3, z}
	}
	cases := []struct {
		name   string
		meshes [][]float32
		colors []mgl32.Vec4
	}{
		{"near drawn last", [][]float32{cover(0.8), cover(0.2)}, []mgl32.Vec4{red, green}},
		{"near drawn first", [][]float32{cover(0.2), cover(0.8)}, []mgl32.Vec4{green, red}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newSolidPipeline(t, "solid")
			r := newSoftwareRenderer(t, 32, 32, p)
			drawTriangles(t, r, p, mgl32.Ident4(), tc.meshes, tc.colors)
			if got, want := pixel(t, r, 16, 16), rgba8(green); got != want {
				t.Errorf("pixel = %v, want the nearer color %v", got, want)
			}
		})
	}
}

func TestNearPlaneClipping(t *testing.T) {
	p := newSolidPipeline(t, "solid")
	r := newSoftwareRenderer(t, 64, 64, p)
	r.Screen().SetClearColor(common.White)

	// The third vertex is behind the eye; only the part in front of the near plane is drawn.
	projection := common.PerspectiveZO(mgl32.DegToRad(90), 1, 0.1, 10)
	mesh := []float32{-1, -1, -2, 1, -1, -2, 0, 0, 1}
	drawTriangles(t, r, p, projection, [][]float32{mesh}, []mgl32.Vec4{red})

	if got, want := pixel(t, r, 32, 56), rgba8(red); got != want {
		t.Errorf("pixel in front of the near plane = %v, want %v", got, want)
	}
	if got, want := pixel(t, r, 32, 8), common.White.RGBA8(); got != want {
		t.Errorf("pixel above the clipped edge = %v, want %v", got, want)
	}
}

func TestBeginPassErrors(t *testing.T) {
	solid := newSolidPipeline(t, "solid")
	unregistered := newSolidPipeline(t, "unregistered")
	variance := newSolidPipeline(t, "variance", pipeline.WithTargetFormats(target.ColorFormatRG16Float, target.DepthFormatDepth16Unorm))
	r := newSoftwareRenderer(t, 16, 16, solid, variance)

	noDepth := target.NewRenderTarget(r.Allocator(), target.WithLabel("no depth"))
	defer noDepth.Release()
	if err := noDepth.Allocate(16, 16, target.ColorFormatRGBA8Unorm, target.DepthFormatNone); err != nil {
		t.Fatal(err)
	}
	unallocated := target.NewRenderTarget(r.Allocator(), target.WithLabel("unallocated"))

	cases := []struct {
		name  string
		setup func(t *testing.T) (target.RenderTarget, pipeline.Pipeline, func())
	}{
		{"unbound target", func(t *testing.T) (target.RenderTarget, pipeline.Pipeline, func()) {
			return r.Screen(), solid, func() {}
		}},
		{"unallocated target", func(t *testing.T) (target.RenderTarget, pipeline.Pipeline, func()) {
			return unallocated, solid, func() {}
		}},
		{"unregistered pipeline", func(t *testing.T) (target.RenderTarget, pipeline.Pipeline, func()) {
			_ = r.Screen().BindAsWriteTarget()
			return r.Screen(), unregistered, r.Screen().Unbind
		}},
		{"color format mismatch", func(t *testing.T) (target.RenderTarget, pipeline.Pipeline, func()) {
			_ = r.Screen().BindAsWriteTarget()
			return r.Screen(), variance, r.Screen().Unbind
		}},
		{"depth test without depth", func(t *testing.T) (target.RenderTarget, pipeline.Pipeline, func()) {
			_ = noDepth.BindAsWriteTarget()
			return noDepth, solid, noDepth.Unbind
		}},
		{"pass already open", func(t *testing.T) (target.RenderTarget, pipeline.Pipeline, func()) {
			_ = r.Screen().BindAsWriteTarget()
			open, err := r.BeginPass(r.Screen(), solid)
			if err != nil {
				t.Fatal(err)
			}
			return r.Screen(), solid, func() {
				_ = open.End()
				r.Screen().Unbind()
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tgt, p, cleanup := tc.setup(t)
			defer cleanup()
			ps, err := r.BeginPass(tgt, p)
			if ps != nil {
				_ = ps.End()
			}
			var usage *common.UsageError
			if !errors.As(err, &usage) {
				t.Errorf("BeginPass() = %v, want UsageError", err)
			}
		})
	}
}

func TestPassAfterEnd(t *testing.T) {
	p := newSolidPipeline(t, "solid")
	r := newSoftwareRenderer(t, 8, 8, p)
	if err := r.Screen().BindAsWriteTarget(); err != nil {
		t.Fatal(err)
	}
	defer r.Screen().Unbind()

	ps, err := r.BeginPass(r.Screen(), p)
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.DrawFullscreen(); err == nil {
		t.Error("DrawFullscreen() on a mesh pipeline succeeded")
	}
	if err := ps.End(); err != nil {
		t.Fatal(err)
	}
	if err := ps.End(); err != nil {
		t.Errorf("second End() = %v, want nil", err)
	}
	h, _ := p.Uniform("color")
	var usage *common.UsageError
	if err := ps.SetFloats(h, 1, 1, 1, 1); !errors.As(err, &usage) {
		t.Errorf("SetFloats() after End = %v, want UsageError", err)
	}
	if err := r.Present(); err != nil {
		t.Errorf("Present() = %v", err)
	}
}

func TestRendererLifecycle(t *testing.T) {
	r, err := NewRenderer(BackendTypeSoftware, WithMaxTextureDimension(64))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Snapshot(); err == nil {
		t.Error("Snapshot() before Resize succeeded")
	}
	var resErr *common.ResourceCreationError
	if err := r.Resize(128, 16); !errors.As(err, &resErr) {
		t.Errorf("Resize(128, 16) above the limit = %v, want ResourceCreationError", err)
	}
	if err := r.Resize(32, 16); err != nil {
		t.Fatalf("Resize(32, 16): %v", err)
	}
	if err := r.Resize(64, 48); err != nil {
		t.Fatalf("Resize(64, 48): %v", err)
	}
	if got := r.Screen().Size(); got != (common.Size{Width: 64, Height: 48}) {
		t.Errorf("Screen().Size() = %v, want 64x48", got)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("Snapshot bounds = %v, want 64x48", b)
	}

	if err := r.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Errorf("second Release() = %v, want nil", err)
	}
	var usage *common.UsageError
	if err := r.Resize(8, 8); !errors.As(err, &usage) {
		t.Errorf("Resize() after Release = %v, want UsageError", err)
	}
}

func TestNewRendererErrors(t *testing.T) {
	var initErr *common.InitializationError
	if _, err := NewRenderer(BackendTypeWGPU); !errors.As(err, &initErr) {
		t.Errorf("NewRenderer(wgpu) without a surface = %v, want InitializationError", err)
	}

	p, err := pipeline.NewPipeline("no software",
		pipeline.WithVertexShader(compile(t, "solid.vert", shader.ShaderTypeVertex, solidVertex)),
		pipeline.WithFragmentShader(compile(t, "solid.frag", shader.ShaderTypeFragment, solidFragment)),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewRenderer(BackendTypeSoftware, WithPipeline(p)); !errors.As(err, &initErr) {
		t.Errorf("NewRenderer() with a pipeline lacking software stages = %v, want InitializationError", err)
	}
}

func TestRoundHalf(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{1, 1},
		{-0.5, -0.5},
		{1 + 1.0/2048, 1},            // tie rounds to even
		{1 + 3.0/2048, 1 + 1.0/512},  // tie rounds to even
		{1 + 1.0/1024, 1 + 1.0/1024}, // representable
		{0.1, 0.0999755859375},
		{70000, float32(math.Inf(1))},
		{1e-8, 0},
		{3.0 / (1 << 24), 3.0 / (1 << 24)},
	}
	for _, tc := range cases {
		if got := roundHalf(tc.in); got != tc.want {
			t.Errorf("roundHalf(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestQuantizeDepth16(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 1},
	}
	for _, tc := range cases {
		if got := quantizeDepth16(tc.in); got != tc.want {
			t.Errorf("quantizeDepth16(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, d := range []float32{0.1, 0.25, 0.5, 0.7, 0.999} {
		q := quantizeDepth16(d)
		if diff := math.Abs(float64(q - d)); diff > 0.5/65535+1e-7 {
			t.Errorf("quantizeDepth16(%v) = %v, off by %v", d, q, diff)
		}
		steps := float64(q) * 65535
		if math.Abs(steps-math.Round(steps)) > 1e-2 {
			t.Errorf("quantizeDepth16(%v) = %v is not on the 16-bit grid", d, q)
		}
	}
}

func TestReadTexels(t *testing.T) {
	r := newSoftwareRenderer(t, 8, 8)

	rt := target.NewRenderTarget(r.Allocator(), target.WithLabel("moments"),
		target.WithClearColor(common.Color{R: 0.25, G: 0.75, B: 0.5, A: 0.5}))
	defer rt.Release()
	if _, err := r.ReadTexels(rt); err == nil {
		t.Error("ReadTexels() on an unallocated target succeeded")
	}

	if err := rt.Allocate(4, 2, target.ColorFormatRG16Float, target.DepthFormatNone); err != nil {
		t.Fatal(err)
	}
	if err := rt.Clear(target.ClearColor); err != nil {
		t.Fatal(err)
	}
	texels, err := r.ReadTexels(rt)
	if err != nil {
		t.Fatalf("ReadTexels: %v", err)
	}
	if len(texels) != 8 {
		t.Fatalf("len(texels) = %d, want 8", len(texels))
	}
	want := [4]float32{0.25, 0.75, 0, 1}
	for i, got := range texels {
		if got != want {
			t.Errorf("texel %d = %v, want %v", i, got, want)
		}
	}

	if err := rt.BindAsWriteTarget(); err != nil {
		t.Fatal(err)
	}
	_, err = r.ReadTexels(rt)
	var usage *common.UsageError
	if !errors.As(err, &usage) {
		t.Errorf("ReadTexels() on the write target error = %v, want *common.UsageError", err)
	}
	rt.Unbind()
}

func TestFailedResizeKeepsContents(t *testing.T) {
	r := newSoftwareRenderer(t, 8, 8)

	rt := target.NewRenderTarget(r.Allocator(), target.WithLabel("moments"),
		target.WithClearColor(common.Color{R: 0.25, G: 0.75}))
	defer rt.Release()
	if err := rt.Allocate(4, 2, target.ColorFormatRG16Float, target.DepthFormatDepth16Unorm); err != nil {
		t.Fatal(err)
	}
	if err := rt.Clear(target.ClearAll); err != nil {
		t.Fatal(err)
	}

	err := rt.Resize(DefaultSoftwareMaxDimension+1, 2)
	var creation *common.ResourceCreationError
	if !errors.As(err, &creation) {
		t.Fatalf("Resize() above the limit error = %v, want *common.ResourceCreationError", err)
	}
	if got, want := rt.Size(), (common.Size{Width: 4, Height: 2}); got != want {
		t.Errorf("Size() after failed resize = %s, want %s", got, want)
	}
	texels, err := r.ReadTexels(rt)
	if err != nil {
		t.Fatalf("ReadTexels: %v", err)
	}
	if len(texels) != 8 {
		t.Fatalf("len(texels) = %d, want 8", len(texels))
	}
	for i, got := range texels {
		if got[0] != 0.25 || got[1] != 0.75 {
			t.Errorf("texel %d = %v, want moments (0.25, 0.75)", i, got)
		}
	}

	if err := rt.Resize(8, 4); err != nil {
		t.Fatalf("Resize() after a failure: %v", err)
	}
	if got, want := rt.Size(), (common.Size{Width: 8, Height: 4}); got != want {
		t.Errorf("Size() = %s, want %s", got, want)
	}
}

func TestUnregisterPipelines(t *testing.T) {
	owned := newSolidPipeline(t, "solid")
	r := newSoftwareRenderer(t, 16, 16, owned)

	other := newSolidPipeline(t, "solid")
	if err := r.UnregisterPipelines(other); err != nil {
		t.Fatalf("UnregisterPipelines(foreign): %v", err)
	}
	if r.Pipeline("solid") != owned {
		t.Fatal("a pipeline sharing the key unregistered the owner")
	}

	screen := r.Screen()
	if err := screen.BindAsWriteTarget(); err != nil {
		t.Fatal(err)
	}
	ps, err := r.BeginPass(screen, owned)
	if err != nil {
		t.Fatalf("BeginPass: %v", err)
	}
	var usage *common.UsageError
	if err := r.UnregisterPipelines(owned); !errors.As(err, &usage) {
		t.Errorf("UnregisterPipelines() during its pass = %v, want *common.UsageError", err)
	}
	if err := ps.End(); err != nil {
		t.Fatal(err)
	}
	screen.Unbind()

	if err := r.UnregisterPipelines(owned); err != nil {
		t.Fatalf("UnregisterPipelines: %v", err)
	}
	if r.Pipeline("solid") != nil {
		t.Error("Pipeline() still returns the unregistered pipeline")
	}
	if owned.Pipeline() != nil {
		t.Error("backend object survived UnregisterPipelines")
	}
	if _, err := r.BeginPass(screen, owned); err == nil {
		t.Error("BeginPass() with an unregistered pipeline succeeded")
	}

	if err := r.RegisterPipelines(owned); err != nil {
		t.Fatalf("RegisterPipelines after unregister: %v", err)
	}
	if r.Pipeline("solid") != owned {
		t.Error("Pipeline() after re-registering = other, want the pipeline")
	}
}
