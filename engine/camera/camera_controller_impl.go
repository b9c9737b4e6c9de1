package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraControllerImpl is the single implementation of CameraController.
// Orbit methods modify spherical coordinates and recompute the position; planar methods
// translate both position and target along the camera's ground-plane axes.
type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	// Spherical coordinates of position relative to target.
	radius    float32
	azimuth   float32 // around +Y, measured from +Z towards +X
	elevation float32 // from the horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32

	initialTarget    mgl32.Vec3
	initialRadius    float32
	initialAzimuth   float32
	initialElevation float32

	version uint64
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller. The defaults frame a scene of a few world
// units around the origin: radius 6*sqrt(2) at a 45 degree elevation looking down the +X axis.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},

		radius:    float32(6 * math.Sqrt2),
		azimuth:   float32(math.Pi / 2),
		elevation: float32(math.Pi / 4),

		minRadius:    2.0,
		maxRadius:    40.0,
		minElevation: 0.05,
		maxElevation: float32(math.Pi/2 - 0.1),

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
		panSpeed:         1.0,
	}

	for _, option := range options {
		option(cc)
	}

	cc.radius = common.ClampValue(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.ClampValue(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.initialTarget = cc.target
	cc.initialRadius = cc.radius
	cc.initialAzimuth = cc.azimuth
	cc.initialElevation = cc.elevation
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the position from the spherical coordinates and bumps the version.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position = cc.target.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
	cc.version++
}

// groundAxes returns the horizontal right and forward axes of the current view.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) groundAxes() (right, forward mgl32.Vec3) {
	sinAzim := float32(math.Sin(float64(cc.azimuth)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	forward = mgl32.Vec3{-sinAzim, 0, -cosAzim}
	right = mgl32.Vec3{cosAzim, 0, -sinAzim}
	return right, forward
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.ClampValue(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Reset() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = cc.initialTarget
	cc.radius = cc.initialRadius
	cc.azimuth = cc.initialAzimuth
	cc.elevation = cc.initialElevation
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Version() uint64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.version
}

func (cc *cameraControllerImpl) OrbitLeft() {
	cc.orbit(-cc.speed(), 0)
}

func (cc *cameraControllerImpl) OrbitRight() {
	cc.orbit(cc.speed(), 0)
}

func (cc *cameraControllerImpl) OrbitUp() {
	cc.orbit(0, cc.speed())
}

func (cc *cameraControllerImpl) OrbitDown() {
	cc.orbit(0, -cc.speed())
}

func (cc *cameraControllerImpl) Drag(dx, dy int32) {
	cc.mu.Lock()
	s := cc.mouseSensitivity
	cc.mu.Unlock()
	cc.orbit(-float32(dx)*s, float32(dy)*s)
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) PanRight(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, _ := cc.groundAxes()
	cc.target = cc.target.Add(right.Mul(delta * cc.panSpeed))
	cc.updatePosition()
}

func (cc *cameraControllerImpl) PanForward(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_, forward := cc.groundAxes()
	cc.target = cc.target.Add(forward.Mul(delta * cc.panSpeed))
	cc.updatePosition()
}

func (cc *cameraControllerImpl) speed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbitSpeed
}

// orbit applies an azimuth and elevation delta, wrapping the azimuth into [-pi, pi) and clamping
// the elevation.
func (cc *cameraControllerImpl) orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	az := math.Mod(float64(cc.azimuth+dAzimuth)+math.Pi, 2*math.Pi)
	if az < 0 {
		az += 2 * math.Pi
	}
	cc.azimuth = float32(az - math.Pi)
	cc.elevation = common.ClampValue(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}
