package camera

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithEye sets the camera position.
//
// Parameters:
//   - x, y, z: eye position in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's eye
func WithEye(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eye = mgl32.Vec3{x, y, z}
	}
}

// WithCenter sets the point the camera looks at.
//
// Parameters:
//   - x, y, z: look-at target in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's center
func WithCenter(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.center = mgl32.Vec3{x, y, z}
	}
}

// WithUp sets the camera's up vector. The vector is normalized.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = normalizeOr(mgl32.Vec3{x, y, z}, c.up)
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the camera's near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the camera's far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithViewport sets the initial viewport size.
//
// Parameters:
//   - size: the viewport size in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's viewport
func WithViewport(size common.Size) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewport = size
	}
}

// WithController attaches a CameraController. The camera's eye and center follow the controller
// from construction on, overriding WithEye and WithCenter.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
