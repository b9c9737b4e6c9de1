package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController drives a Camera's eye and center from user navigation.
// It combines orbit controls (spherical coordinates around a target) with planar panning
// that moves eye and target together. Every mutation bumps Version so the camera can
// cheaply detect changes in Update.
type CameraController interface {
	orbitCameraController
	planarCameraController

	// Position returns the current eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position in world space
	Position() mgl32.Vec3

	// Target returns the current orbit target.
	//
	// Returns:
	//   - mgl32.Vec3: the target in world space
	Target() mgl32.Vec3

	// SetTarget moves the orbit target and recomputes the eye from the spherical coordinates.
	//
	// Parameters:
	//   - target: the new target
	SetTarget(target mgl32.Vec3)

	// Zoom moves the eye towards (positive delta) or away from the target, clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: scroll amount, scaled by the zoom speed
	Zoom(delta float32)

	// Reset restores the spherical coordinates and target captured at construction.
	Reset()

	// Version returns a counter that increases on every mutation.
	//
	// Returns:
	//   - uint64: the current revision
	Version() uint64
}

// orbitCameraController defines orbit-style controls around a target point.
type orbitCameraController interface {
	// OrbitLeft rotates the eye around the target by -OrbitSpeed radians of azimuth.
	OrbitLeft()

	// OrbitRight rotates the eye around the target by +OrbitSpeed radians of azimuth.
	OrbitRight()

	// OrbitUp raises the elevation by OrbitSpeed, clamped to the maximum elevation.
	OrbitUp()

	// OrbitDown lowers the elevation by OrbitSpeed, clamped to the minimum elevation.
	OrbitDown()

	// Drag orbits by a mouse delta in pixels, scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx, dy: cursor movement since the last event
	Drag(dx, dy int32)

	Radius() float32
	Azimuth() float32
	Elevation() float32
}

// planarCameraController defines panning that translates eye and target together.
type planarCameraController interface {
	// PanRight moves along the camera's horizontal right axis.
	//
	// Parameters:
	//   - delta: distance in world units, scaled by the pan speed
	PanRight(delta float32)

	// PanForward moves along the view direction projected onto the ground plane.
	//
	// Parameters:
	//   - delta: distance in world units, scaled by the pan speed
	PanForward(delta float32)
}
