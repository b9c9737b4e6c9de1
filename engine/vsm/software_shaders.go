package vsm

import (
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// The functions below are the CPU forms of the WGSL stages in assets/. Each one mirrors its
// shader line for line so both backends produce the same image.

func captureSoftwareShader(h *captureHandles) pipeline.SoftwareShader {
	return pipeline.SoftwareShader{
		Varyings: 3,
		Vertex: func(u pipeline.Uniforms, position mgl32.Vec3, model mgl32.Mat4, varyings []float32) mgl32.Vec4 {
			view := u.Mat4(h.lightView).Mul4(model).Mul4x1(position.Vec4(1))
			copy(varyings, view[:3])
			return u.Mat4(h.lightProjection).Mul4x1(view)
		},
		Fragment: func(u pipeline.Uniforms, _ pipeline.Textures, frag *pipeline.Fragment) mgl32.Vec4 {
			m := Moments(EncodeDepth(vec3(frag.Varyings).Len(), u.Float32(h.lightFar)))
			return mgl32.Vec4{m.Mean, m.MeanSquared, 0, 1}
		},
	}
}

func blurSoftwareShader(h *blurHandles) pipeline.SoftwareShader {
	return pipeline.SoftwareShader{
		Varyings: 2,
		Vertex:   fullscreenVertex,
		Fragment: func(u pipeline.Uniforms, t pipeline.Textures, frag *pipeline.Fragment) mgl32.Vec4 {
			weights := u.Float32s(h.weights)
			direction := u.Float32s(h.direction)
			taps := min(int(u.Uint32(h.taps)), len(weights))
			uv := mgl32.Vec2{frag.Varyings[0], frag.Varyings[1]}
			step := mgl32.Vec2{direction[0], direction[1]}

			sum := moments(t.Sample(h.source, uv)).Mul(weights[0])
			for i := 1; i < taps; i++ {
				offset := step.Mul(float32(i))
				a := moments(t.Sample(h.source, uv.Add(offset)))
				b := moments(t.Sample(h.source, uv.Sub(offset)))
				sum = sum.Add(a.Add(b).Mul(weights[i]))
			}
			return mgl32.Vec4{sum[0], sum[1], 0, 1}
		},
	}
}

func compositeSoftwareShader(h *compositeHandles) pipeline.SoftwareShader {
	return pipeline.SoftwareShader{
		Varyings:    3,
		Derivatives: true,
		Vertex: func(u pipeline.Uniforms, position mgl32.Vec3, model mgl32.Mat4, varyings []float32) mgl32.Vec4 {
			world := model.Mul4x1(position.Vec4(1))
			copy(varyings, world[:3])
			return u.Mat4(h.cameraViewProjection).Mul4x1(world)
		},
		Fragment: func(u pipeline.Uniforms, t pipeline.Textures, frag *pipeline.Fragment) mgl32.Vec4 {
			world := vec3(frag.Varyings)
			normal := vec3(frag.Ddy).Cross(vec3(frag.Ddx))

			lightView := u.Mat4(h.lightView).Mul4x1(world.Vec4(1))
			clip := u.Mat4(h.lightProjection).Mul4x1(lightView)
			uv := mgl32.Vec2{clip.X()/clip.W()*0.5 + 0.5, 0.5 - clip.Y()/clip.W()*0.5}
			depth := EncodeDepth(lightView.Vec3().Len(), u.Float32(h.lightFar))

			m := moments(t.Sample(h.shadowMap, uv))
			sample := VarianceSample{Mean: m[0], MeanSquared: m[1]}
			factor := ShadowFactor(sample, depth)

			switch DebugView(u.Uint32(h.debugView)) {
			case DebugViewShadowFactor:
				return mgl32.Vec4{factor, factor, factor, 1}
			case DebugViewLightDepth:
				return mgl32.Vec4{sample.Mean, sample.Mean, sample.Mean, 1}
			}

			var lambert float32
			if normal.Len() > 0 {
				toLight := vec3(u.Float32s(h.lightPosition)).Sub(world).Normalize()
				lambert = max(normal.Normalize().Dot(toLight), 0)
			}
			ambient := u.Float32(h.ambient)
			lightColor := vec3(u.Float32s(h.lightColor))
			base := u.Float32s(h.baseColor)
			diffuse := lightColor.Mul(lambert * factor)

			var out mgl32.Vec4
			for i := 0; i < 3; i++ {
				out[i] = base[i] * (ambient + diffuse[i]*(1-ambient))
			}
			out[3] = base[3]
			return out
		},
	}
}

// fullscreenVertex expands FullscreenTriangle positions and derives uv with v = 0 on the top row.
func fullscreenVertex(_ pipeline.Uniforms, position mgl32.Vec3, _ mgl32.Mat4, varyings []float32) mgl32.Vec4 {
	varyings[0] = position.X()*0.5 + 0.5
	varyings[1] = 0.5 - position.Y()*0.5
	return mgl32.Vec4{position.X(), position.Y(), 0, 1}
}

func vec3(v []float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func moments(texel mgl32.Vec4) mgl32.Vec2 {
	return mgl32.Vec2{texel[0], texel[1]}
}
