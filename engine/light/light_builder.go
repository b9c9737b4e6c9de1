package light

import "github.com/go-gl/mathgl/mgl32"

// lightBuilder collects construction parameters; the projector camera is built from it once.
type lightBuilder struct {
	position  mgl32.Vec3
	target    mgl32.Vec3
	up        mgl32.Vec3
	fov       float32
	near      float32
	far       float32
	color     mgl32.Vec3
	intensity float32
	ambient   float32
}

// LightBuilderOption is a function that configures a Light during construction.
type LightBuilderOption func(*lightBuilder)

// WithPosition sets the world-space position of the light.
//
// Parameters:
//   - x, y, z: the position components
//
// Returns:
//   - LightBuilderOption: a function that applies the position option
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget sets the point the light looks at.
//
// Parameters:
//   - x, y, z: the target components
//
// Returns:
//   - LightBuilderOption: a function that applies the target option
func WithTarget(x, y, z float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.target = mgl32.Vec3{x, y, z}
	}
}

// WithUp sets the projector's up vector. The vector is normalized by the camera.
//
// Parameters:
//   - x, y, z: the up components
//
// Returns:
//   - LightBuilderOption: a function that applies the up option
func WithUp(x, y, z float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.up = mgl32.Vec3{x, y, z}
	}
}

// WithFov sets the projector's vertical field of view in degrees.
//
// Parameters:
//   - degrees: field of view
//
// Returns:
//   - LightBuilderOption: a function that applies the field of view option
func WithFov(degrees float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.fov = degrees
	}
}

// WithClipPlanes sets the projector's near and far planes. The far plane is also the depth
// normalization distance.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - LightBuilderOption: a function that applies the clip plane option
func WithClipPlanes(near, far float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.near = near
		b.far = far
	}
}

// WithColor sets the RGB color of the light.
//
// Parameters:
//   - r, g, bl: the color components
//
// Returns:
//   - LightBuilderOption: a function that applies the color option
func WithColor(r, g, bl float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.color = mgl32.Vec3{r, g, bl}
	}
}

// WithIntensity sets the scalar intensity multiplier.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.intensity = intensity
	}
}

// WithAmbient sets the fraction of the base color kept in full shadow. It is clamped to [0, 1].
func WithAmbient(ambient float32) LightBuilderOption {
	return func(b *lightBuilder) {
		b.ambient = ambient
	}
}
