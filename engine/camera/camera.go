package camera

import (
	"errors"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/go-gl/mathgl/mgl32"
)

// parallelEpsilon is the tolerance used to reject an up vector that is parallel to the view direction.
const parallelEpsilon = 1e-5

type cameraImpl struct {
	mu *sync.Mutex

	eye    mgl32.Vec3
	center mgl32.Vec3
	up     mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewport common.Size

	// dirty marks the cached matrices as stale; they are rebuilt on the next read.
	dirty                bool
	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	controller CameraController
	// controllerVersion is the controller revision last copied into eye/center.
	controllerVersion uint64
}

// Camera is a perspective look-at camera. It is used both for the observer and for the
// light, which acts purely as a projector for the shadow passes.
//
// Matrices are column-major mgl32.Mat4 values. The projection maps view depth to the
// WebGPU clip range [0, 1].
type Camera interface {
	// Eye returns the camera position in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Eye() mgl32.Vec3

	// Center returns the look-at target in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at point
	Center() mgl32.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up direction
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Viewport returns the viewport size in pixels the camera renders into.
	//
	// Returns:
	//   - common.Size: the viewport size, zero until the first frame is prepared
	Viewport() common.Size

	// ViewMatrix returns the world-to-view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the view-to-clip matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns ProjectionMatrix * ViewMatrix.
	//
	// Returns:
	//   - mgl32.Mat4: the combined view-projection matrix
	ViewProjectionMatrix() mgl32.Mat4

	// Validate checks the camera invariants: 0 < near < far, a positive aspect, a field of view
	// inside (0, pi), an eye distinct from the center and an up vector that is not parallel
	// to the view direction.
	//
	// Returns:
	//   - error: a *common.UsageError naming the violated invariant, or nil
	Validate() error

	// Controller returns the attached CameraController, or nil.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// Update copies the eye and center from the attached controller when it has changed since the
	// last call, re-orthogonalizing the up vector against world up. Cameras without a controller
	// never change here.
	//
	// Returns:
	//   - bool: true if the view changed
	Update() bool

	// SetEye sets the camera position.
	//
	// Parameters:
	//   - eye: the new eye position
	SetEye(eye mgl32.Vec3)

	// SetCenter sets the look-at target.
	//
	// Parameters:
	//   - center: the new look-at point
	SetCenter(center mgl32.Vec3)

	// SetUp sets the up vector. The vector is normalized.
	//
	// Parameters:
	//   - up: the new up direction
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetViewport records the viewport size. It does not change the aspect ratio, which follows the canvas.
	//
	// Parameters:
	//   - size: the viewport size in pixels
	SetViewport(size common.Size)

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach, or nil to detach
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera. Defaults place the eye at (0, 0, 1) looking at the origin
// with a 45 degree field of view, near 0.1 and far 100.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		eye:    mgl32.Vec3{0, 0, 1},
		center: mgl32.Vec3{0, 0, 0},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    mgl32.DegToRad(45),
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		dirty:  true,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.syncController(true)
	}
	return c
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Center() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Viewport() common.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !(c.near > 0):
		return common.NewUsageError("camera", "near plane must be > 0, got %v", c.near)
	case !(c.near < c.far):
		return common.NewUsageError("camera", "near plane %v must be less than far plane %v", c.near, c.far)
	case !(c.aspect > 0):
		return common.NewUsageError("camera", "aspect ratio must be > 0, got %v", c.aspect)
	case !(c.fov > 0) || c.fov >= math.Pi:
		return common.NewUsageError("camera", "field of view must be in (0, pi), got %v", c.fov)
	}

	dir := c.center.Sub(c.eye)
	if dir.Len() <= parallelEpsilon {
		return &common.UsageError{Op: "camera", Err: errors.New("eye and center coincide")}
	}
	if common.ParallelVec3(dir, c.up, parallelEpsilon) {
		return common.NewUsageError("camera", "up %v is parallel to the view direction %v", c.up, dir)
	}
	return nil
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return false
	}
	return c.syncController(false)
}

func (c *cameraImpl) SetEye(eye mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = eye
	c.dirty = true
}

func (c *cameraImpl) SetCenter(center mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = center
	c.dirty = true
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = normalizeOr(up, c.up)
	c.dirty = true
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.dirty = true
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.dirty = true
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.dirty = true
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.dirty = true
}

func (c *cameraImpl) SetViewport(size common.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = size
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	if ctrl != nil {
		c.syncController(true)
	}
}

// syncController pulls eye and center from the controller when its revision moved (or when forced).
// The up vector becomes world up made orthogonal to the new view direction, so orbiting never
// produces a degenerate basis. Caller must hold the mutex.
func (c *cameraImpl) syncController(force bool) bool {
	version := c.controller.Version()
	if !force && version == c.controllerVersion {
		return false
	}
	c.controllerVersion = version
	c.eye = c.controller.Position()
	c.center = c.controller.Target()

	dir := c.center.Sub(c.eye)
	if dir.Len() > parallelEpsilon {
		dir = dir.Normalize()
		worldUp := mgl32.Vec3{0, 1, 0}
		c.up = normalizeOr(worldUp.Sub(dir.Mul(dir.Dot(worldUp))), c.up)
	}
	c.dirty = true
	return true
}

// updateMatrices rebuilds the view, projection and view-projection matrices when dirty.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if !c.dirty {
		return
	}
	c.viewMatrix = mgl32.LookAtV(c.eye, c.center, c.up)
	c.projectionMatrix = common.PerspectiveZO(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.dirty = false
}

// normalizeOr returns v normalized, or fallback when v has no usable length.
func normalizeOr(v, fallback mgl32.Vec3) mgl32.Vec3 {
	if v.Len() <= parallelEpsilon {
		return fallback
	}
	return v.Normalize()
}
