package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithEyeTarget derives the spherical coordinates from an eye position and a target.
// The elevation is measured from the horizontal plane and the azimuth from +Z towards +X.
//
// Parameters:
//   - eye: the initial eye position
//   - target: the orbit target
//
// Returns:
//   - CameraControllerOption: functional option to set the initial pose
func WithEyeTarget(eye, target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		offset := eye.Sub(target)
		r := offset.Len()
		if r == 0 {
			return
		}
		cc.target = target
		cc.radius = r
		cc.elevation = float32(math.Asin(float64(offset.Y() / r)))
		cc.azimuth = float32(math.Atan2(float64(offset.X()), float64(offset.Z())))
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - min: minimum distance from the target
//   - max: maximum distance from the target
//
// Returns:
//   - CameraControllerOption: functional option to set the radius bounds
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithOrbitSpeed sets the angle in radians applied by each keyboard orbit step.
//
// Parameters:
//   - speed: radians per step
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit speed
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitSpeed = speed
	}
}

// WithMouseSensitivity sets the radians of orbit per pixel of mouse drag.
//
// Parameters:
//   - sensitivity: radians per pixel
//
// Returns:
//   - CameraControllerOption: functional option to set the mouse sensitivity
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the world units of radius change per scroll step.
//
// Parameters:
//   - speed: units per scroll step
//
// Returns:
//   - CameraControllerOption: functional option to set the zoom speed
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed sets the multiplier applied to pan deltas.
//
// Parameters:
//   - speed: pan multiplier
//
// Returns:
//   - CameraControllerOption: functional option to set the pan speed
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.panSpeed = speed
	}
}
