package renderer

import (
	"math"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// FullscreenTriangle is the clip-space triangle drawn by DrawFullscreen. Fullscreen WGSL vertex
// stages build the same positions from the vertex index.
var FullscreenTriangle = [3]mgl32.Vec3{{-1, -1, 0}, {3, -1, 0}, {-1, 3, 0}}

// minClipW keeps clipped vertices strictly in front of the eye.
const minClipW = 1e-6

type clipVertex struct {
	pos      mgl32.Vec4
	varyings []float32
}

// clipPlanes are the signed distances to the near (z = 0), far (z = w) and eye planes of the
// [0, 1] depth range. A vertex is inside when every distance is non-negative.
var clipPlanes = [...]func(p mgl32.Vec4) float32{
	func(p mgl32.Vec4) float32 { return p.Z() },
	func(p mgl32.Vec4) float32 { return p.W() - p.Z() },
	func(p mgl32.Vec4) float32 { return p.W() - minClipW },
}

// screenTriangle is a triangle set up for scan conversion in window space.
// The barycentric weight of vertex i at pixel (x, y) is a[i]*x + b[i]*y + c[i].
type screenTriangle struct {
	a, b, c [3]float32

	z    [3]float32
	invW [3]float32
	// vary holds each vertex's varyings divided by w.
	vary [3][]float32

	minX, maxX, minY, maxY int
	frontFacing            bool
}

// interpolate writes the perspective-correct varyings at the given weights into out and returns 1/w.
func (t *screenTriangle) interpolate(l [3]float32, out []float32) float32 {
	iw := l[0]*t.invW[0] + l[1]*t.invW[1] + l[2]*t.invW[2]
	if iw <= 0 {
		clear(out)
		return iw
	}
	w := 1 / iw
	for j := range out {
		out[j] = (l[0]*t.vary[0][j] + l[1]*t.vary[1][j] + l[2]*t.vary[2][j]) * w
	}
	return iw
}

func (t *screenTriangle) weights(x, y float32) [3]float32 {
	return [3]float32{
		t.a[0]*x + t.b[0]*y + t.c[0],
		t.a[1]*x + t.b[1]*y + t.c[1],
		t.a[2]*x + t.b[2]*y + t.c[2],
	}
}

// softwarePassEncoder executes draws immediately; End has nothing left to submit.
type softwarePassEncoder struct {
	backend  *softwareRendererBackendImpl
	pipeline pipeline.Pipeline
	shader   *pipeline.SoftwareShader
	target   *softwareStorage
}

var _ passEncoder = &softwarePassEncoder{}

func (e *softwarePassEncoder) Draw(call drawCall) error {
	op := "draw " + e.pipeline.Key()

	positions, indices := fullscreenPositions[:], fullscreenIndices[:]
	if call.mesh != nil {
		mesh, ok := call.mesh.(*softwareMesh)
		if !ok {
			return common.NewUsageError(op, "mesh was not uploaded by the software backend")
		}
		mesh.mu.Lock()
		released := mesh.released
		positions, indices = mesh.positions, mesh.indices
		mesh.mu.Unlock()
		if released {
			return common.NewUsageError(op, "mesh %s was released", mesh.label)
		}
	}

	textures := &softwareTextures{targets: make(map[pipeline.BindingKey]*softwareStorage, len(call.textures))}
	for k, t := range call.textures {
		s, ok := t.Storage().(*softwareStorage)
		if !ok {
			return common.NewUsageError(op, "texture target %s was not allocated by the software backend", t.Label())
		}
		textures.targets[k] = s
	}
	uniforms := call.uniforms.Freeze()

	verts := make([]clipVertex, len(positions)/3)
	for i := range verts {
		varyings := make([]float32, e.shader.Varyings)
		p := mgl32.Vec3{positions[3*i], positions[3*i+1], positions[3*i+2]}
		verts[i] = clipVertex{pos: e.shader.Vertex(uniforms, p, call.model, varyings), varyings: varyings}
	}

	e.target.mu.Lock()
	defer e.target.mu.Unlock()
	if e.target.released {
		return common.NewUsageError(op, "target %s was released", e.target.label)
	}

	tris := make([]screenTriangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		poly := clipPolygon([]clipVertex{verts[indices[i]], verts[indices[i+1]], verts[indices[i+2]]})
		for j := 1; j+1 < len(poly); j++ {
			if tri, ok := e.setup(poly[0], poly[j], poly[j+1]); ok {
				tris = append(tris, tri)
			}
		}
	}
	if len(tris) == 0 {
		return nil
	}

	e.backend.run(e.target.height, func(y0, y1 int) {
		e.rasterize(tris, uniforms, textures, y0, y1)
	})
	return nil
}

func (e *softwarePassEncoder) End() error {
	return nil
}

var (
	fullscreenPositions = [...]float32{
		FullscreenTriangle[0][0], FullscreenTriangle[0][1], FullscreenTriangle[0][2],
		FullscreenTriangle[1][0], FullscreenTriangle[1][1], FullscreenTriangle[1][2],
		FullscreenTriangle[2][0], FullscreenTriangle[2][1], FullscreenTriangle[2][2],
	}
	fullscreenIndices = [...]uint32{0, 1, 2}
)

// setup projects a clipped triangle to window space, applies face culling and prepares the
// barycentric plane equations. Window y grows downwards; front faces are judged in NDC.
func (e *softwarePassEncoder) setup(v0, v1, v2 clipVertex) (screenTriangle, bool) {
	var t screenTriangle
	var x, y, nx, ny [3]float32
	width, height := float32(e.target.width), float32(e.target.height)

	for k, v := range [3]clipVertex{v0, v1, v2} {
		iw := 1 / v.pos.W()
		nx[k], ny[k] = v.pos.X()*iw, v.pos.Y()*iw
		x[k] = (nx[k]*0.5 + 0.5) * width
		y[k] = (0.5 - ny[k]*0.5) * height
		t.z[k] = v.pos.Z() * iw
		t.invW[k] = iw
		t.vary[k] = make([]float32, len(v.varyings))
		for j, a := range v.varyings {
			t.vary[k][j] = a * iw
		}
	}

	ndcArea := (nx[1]-nx[0])*(ny[2]-ny[0]) - (nx[2]-nx[0])*(ny[1]-ny[0])
	if ndcArea == 0 || math.IsNaN(float64(ndcArea)) {
		return t, false
	}
	t.frontFacing = (ndcArea > 0) == (e.pipeline.FrontFace() == pipeline.FrontFaceCCW)
	switch e.pipeline.CullMode() {
	case pipeline.CullModeFront:
		if t.frontFacing {
			return t, false
		}
	case pipeline.CullModeBack:
		if !t.frontFacing {
			return t, false
		}
	}

	area := (x[1]-x[0])*(y[2]-y[0]) - (x[2]-x[0])*(y[1]-y[0])
	if area == 0 {
		return t, false
	}
	inv := 1 / area
	for k := 0; k < 3; k++ {
		i, j := (k+1)%3, (k+2)%3
		t.a[k] = -(y[j] - y[i]) * inv
		t.b[k] = (x[j] - x[i]) * inv
		t.c[k] = ((y[j]-y[i])*x[i] - (x[j]-x[i])*y[i]) * inv
	}

	t.minX = common.ClampValue(int(math.Floor(float64(min(x[0], x[1], x[2])))), 0, e.target.width-1)
	t.maxX = common.ClampValue(int(math.Ceil(float64(max(x[0], x[1], x[2])))), 0, e.target.width-1)
	t.minY = common.ClampValue(int(math.Floor(float64(min(y[0], y[1], y[2])))), 0, e.target.height-1)
	t.maxY = common.ClampValue(int(math.Ceil(float64(max(y[0], y[1], y[2])))), 0, e.target.height-1)
	return t, true
}

// rasterize shades every covered pixel of the rows [y0, y1). Caller holds the target mutex
// and each band owns its rows.
func (e *softwarePassEncoder) rasterize(tris []screenTriangle, u pipeline.Uniforms, tex pipeline.Textures, y0, y1 int) {
	n := e.shader.Varyings
	frag := &pipeline.Fragment{Varyings: make([]float32, n)}
	var neighbor []float32
	if e.shader.Derivatives {
		frag.Ddx, frag.Ddy = make([]float32, n), make([]float32, n)
		neighbor = make([]float32, n)
	}

	s := e.target
	depthTest := e.pipeline.DepthTestEnabled() && s.depth != nil
	depthWrite := depthTest && e.pipeline.DepthWriteEnabled()
	compare := e.pipeline.DepthCompare()

	for i := range tris {
		t := &tris[i]
		frag.FrontFacing = t.frontFacing
		for py := max(t.minY, y0); py <= min(t.maxY, y1-1); py++ {
			fy := float32(py) + 0.5
			for px := t.minX; px <= t.maxX; px++ {
				fx := float32(px) + 0.5
				l := t.weights(fx, fy)
				if l[0] < 0 || l[1] < 0 || l[2] < 0 {
					continue
				}

				z := l[0]*t.z[0] + l[1]*t.z[1] + l[2]*t.z[2]
				idx := py*s.width + px
				if depthTest {
					z = quantizeDepth16(z)
					if !compare.Passes(z, s.depth[idx]) {
						continue
					}
					if depthWrite {
						s.depth[idx] = z
					}
				}

				iw := t.interpolate(l, frag.Varyings)
				if e.shader.Derivatives {
					t.derivative(t.weights(fx+1, fy), frag.Varyings, neighbor, frag.Ddx)
					t.derivative(t.weights(fx, fy+1), frag.Varyings, neighbor, frag.Ddy)
				}
				frag.Position = mgl32.Vec4{fx, fy, z, iw}

				s.write(px, py, e.shader.Fragment(u, tex, frag))
			}
		}
	}
}

// derivative writes the forward difference of the varyings towards the neighbor weights.
func (t *screenTriangle) derivative(l [3]float32, center, scratch, out []float32) {
	if t.interpolate(l, scratch) <= 0 {
		clear(out)
		return
	}
	for j := range out {
		out[j] = scratch[j] - center[j]
	}
}

// clipPolygon clips a convex polygon against clipPlanes (Sutherland-Hodgman). Varyings are
// interpolated linearly in clip space.
func clipPolygon(poly []clipVertex) []clipVertex {
	inside := true
	for _, v := range poly {
		for _, dist := range clipPlanes {
			if dist(v.pos) < 0 {
				inside = false
			}
		}
	}
	if inside {
		return poly
	}

	for _, dist := range clipPlanes {
		if len(poly) == 0 {
			return nil
		}
		out := make([]clipVertex, 0, len(poly)+1)
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			da, db := dist(a.pos), dist(b.pos)
			if da >= 0 {
				out = append(out, a)
			}
			if (da >= 0) != (db >= 0) {
				out = append(out, lerpVertex(a, b, da/(da-db)))
			}
		}
		poly = out
	}
	return poly
}

func lerpVertex(a, b clipVertex, t float32) clipVertex {
	v := clipVertex{
		pos:      a.pos.Add(b.pos.Sub(a.pos).Mul(t)),
		varyings: make([]float32, len(a.varyings)),
	}
	for i := range v.varyings {
		v.varyings[i] = a.varyings[i] + (b.varyings[i]-a.varyings[i])*t
	}
	return v
}

// softwareTextures samples read-source targets for software fragment stages.
type softwareTextures struct {
	targets map[pipeline.BindingKey]*softwareStorage
}

var _ pipeline.Textures = &softwareTextures{}

func (t *softwareTextures) Sample(h shader.TextureHandle, uv mgl32.Vec2) mgl32.Vec4 {
	s, ok := t.targets[pipeline.BindingKey{Group: h.Group(), Binding: h.Binding()}]
	if !ok || s.color == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	return s.sample(uv)
}

// sample filters the four texels around uv with clamp-to-edge addressing.
func (s *softwareStorage) sample(uv mgl32.Vec2) mgl32.Vec4 {
	x := sanitize(uv.X())*float32(s.width) - 0.5
	y := sanitize(uv.Y())*float32(s.height) - 0.5
	fx, fy := float32(math.Floor(float64(x))), float32(math.Floor(float64(y)))
	tx, ty := x-fx, y-fy

	x0 := common.ClampValue(int(fx), 0, s.width-1)
	x1 := common.ClampValue(int(fx)+1, 0, s.width-1)
	y0 := common.ClampValue(int(fy), 0, s.height-1)
	y1 := common.ClampValue(int(fy)+1, 0, s.height-1)

	c00, c10 := s.texel(x0, y0), s.texel(x1, y0)
	c01, c11 := s.texel(x0, y1), s.texel(x1, y1)
	var out mgl32.Vec4
	for ch := range out {
		top := c00[ch] + (c10[ch]-c00[ch])*tx
		bottom := c01[ch] + (c11[ch]-c01[ch])*tx
		out[ch] = top + (bottom-top)*ty
	}
	return out
}

// sanitize limits a texture coordinate to a range where the texel index cannot overflow.
func sanitize(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return 0
	}
	return common.ClampValue(v, -1, 2)
}

// roundHalf rounds v to the nearest IEEE half-precision value (round to nearest even).
func roundHalf(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return v
	}
	bits := math.Float32bits(v)
	sign := bits & 0x80000000
	abs := math.Float32frombits(bits &^ 0x80000000)

	var r float32
	switch {
	case abs >= 65520:
		r = float32(math.Inf(1))
	case abs < 6.103515625e-05:
		// subnormal halves are multiples of 2^-24
		r = float32(math.RoundToEven(float64(abs)*(1<<24)) / (1 << 24))
	default:
		const shift = 13
		b := math.Float32bits(abs)
		b += 1<<(shift-1) - 1 + (b>>shift)&1
		b &^= 1<<shift - 1
		r = math.Float32frombits(b)
	}
	return math.Float32frombits(math.Float32bits(r) | sign)
}

// quantizeDepth16 rounds a depth to the nearest 16-bit unorm value.
func quantizeDepth16(d float32) float32 {
	return float32(math.Round(float64(common.Saturate(d))*65535) / 65535)
}
