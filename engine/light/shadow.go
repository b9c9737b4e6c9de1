package light

import "github.com/go-gl/mathgl/mgl32"

// DefaultShadowNear is the near plane of the light's perspective projector.
const DefaultShadowNear float32 = 3.0

// DefaultShadowFar is the far plane of the light's perspective projector. Light-space depths are
// normalized by this distance before they are written to the variance map.
const DefaultShadowFar float32 = 16.0

// DefaultShadowFov is the vertical field of view of the light's projector, in degrees.
const DefaultShadowFov float32 = 45.0

// DefaultAmbient is the fraction of the base color that survives full shadow.
const DefaultAmbient float32 = 0.25

// ShadowClearValue is the value a variance map holds where nothing was captured.
// A mean of 1 sits at the far plane, so every receiver in front of it is lit.
const ShadowClearValue float32 = 1.0

// DefaultPosition returns the projector's eye position.
//
// Returns:
//   - mgl32.Vec3: the default light position
func DefaultPosition() mgl32.Vec3 {
	return mgl32.Vec3{0, 6, 6}
}

// DefaultUp returns the projector's up vector, normalize(0, 1, -1).
//
// Returns:
//   - mgl32.Vec3: the default light up vector
func DefaultUp() mgl32.Vec3 {
	return mgl32.Vec3{0, 1, -1}.Normalize()
}
