package pipeline

import (
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms gives software shaders read access to the values set on a pass.
type Uniforms interface {
	Float32(h shader.UniformHandle) float32
	Float32s(h shader.UniformHandle) []float32
	Uint32(h shader.UniformHandle) uint32
	Mat4(h shader.UniformHandle) mgl32.Mat4
}

// Textures gives software fragment shaders bilinear, clamp-to-edge sampling of bound targets.
type Textures interface {
	// Sample returns the texel at uv in [0, 1]^2 with v = 0 at the top row.
	// Missing channels read as 0 and missing alpha as 1.
	Sample(h shader.TextureHandle, uv mgl32.Vec2) mgl32.Vec4
}

// Fragment is the input of a software fragment shader.
type Fragment struct {
	// Position holds the window x and y of the pixel center, the depth in [0, 1] and 1/w.
	Position mgl32.Vec4

	// Varyings are the perspective-correct interpolated vertex outputs.
	Varyings []float32

	// Ddx and Ddy are the screen-space derivatives of Varyings, filled when the pipeline requests them.
	Ddx []float32
	Ddy []float32

	FrontFacing bool
}

// VertexFunc is the software form of a vertex entry point. It writes the stage outputs into
// varyings and returns the clip-space position.
type VertexFunc func(u Uniforms, position mgl32.Vec3, model mgl32.Mat4, varyings []float32) mgl32.Vec4

// FragmentFunc is the software form of a fragment entry point. It returns the color written
// to the target; channels beyond the target format are dropped.
type FragmentFunc func(u Uniforms, t Textures, frag *Fragment) mgl32.Vec4

// SoftwareShader pairs the software stages of a program.
type SoftwareShader struct {
	Vertex   VertexFunc
	Fragment FragmentFunc

	// Varyings is the number of float32 outputs Vertex writes.
	Varyings int

	// Derivatives requests Fragment.Ddx and Fragment.Ddy.
	Derivatives bool
}
