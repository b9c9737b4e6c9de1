package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

type lightImpl struct {
	mu *sync.Mutex

	projector camera.Camera
	color     mgl32.Vec3
	intensity float32
	ambient   float32
}

// Light is the single shadow-casting light of the scene. It is a perspective projector: its
// camera defines the light space that the capture pass renders depth into and that the composite
// pass projects receivers back into.
type Light interface {
	// Camera returns the projector camera. Its view and projection matrices define light space.
	//
	// Returns:
	//   - camera.Camera: the light's projector
	Camera() camera.Camera

	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the projector eye
	Position() mgl32.Vec3

	// Direction returns the normalized direction the light points in.
	//
	// Returns:
	//   - mgl32.Vec3: normalize(center - eye)
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Intensity returns the scalar multiplier applied to the diffuse term.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Ambient returns the fraction of the base color kept in full shadow.
	//
	// Returns:
	//   - float32: the ambient term in [0, 1]
	Ambient() float32

	// Far returns the projector's far plane, the normalization distance for light depths.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// LinearDepth returns the distance from the light to a world-space point divided by Far,
	// clamped to [0, 1]. This is the value the capture pass stores as the first moment.
	//
	// Parameters:
	//   - world: a world-space position
	//
	// Returns:
	//   - float32: the normalized light distance
	LinearDepth(world mgl32.Vec3) float32

	// Validate checks the projector camera's invariants.
	//
	// Returns:
	//   - error: a *common.UsageError, or nil
	Validate() error

	// SetPosition moves the projector eye.
	//
	// Parameters:
	//   - position: the new light position
	SetPosition(position mgl32.Vec3)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - color: the new light color
	SetColor(color mgl32.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the new intensity
	SetIntensity(intensity float32)
}

var _ Light = &lightImpl{}

// NewLight creates the scene light. Without options the projector sits at (0, 6, 6) looking at the
// origin with up normalize(0, 1, -1), a 45 degree field of view, near 3 and far 16.
//
// Parameters:
//   - options: functional options to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(options ...LightBuilderOption) Light {
	b := &lightBuilder{
		position:  DefaultPosition(),
		up:        DefaultUp(),
		fov:       DefaultShadowFov,
		near:      DefaultShadowNear,
		far:       DefaultShadowFar,
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1,
		ambient:   DefaultAmbient,
	}
	for _, option := range options {
		option(b)
	}

	return &lightImpl{
		mu: &sync.Mutex{},
		projector: camera.NewCamera(
			camera.WithEye(b.position.X(), b.position.Y(), b.position.Z()),
			camera.WithCenter(b.target.X(), b.target.Y(), b.target.Z()),
			camera.WithUp(b.up.X(), b.up.Y(), b.up.Z()),
			camera.WithFov(mgl32.DegToRad(b.fov)),
			camera.WithNear(b.near),
			camera.WithFar(b.far),
		),
		color:     b.color,
		intensity: b.intensity,
		ambient:   common.ClampValue(b.ambient, 0, 1),
	}
}

func (l *lightImpl) Camera() camera.Camera {
	return l.projector
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.projector.Eye()
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	dir := l.projector.Center().Sub(l.projector.Eye())
	if dir.Len() == 0 {
		return mgl32.Vec3{}
	}
	return dir.Normalize()
}

func (l *lightImpl) Color() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Ambient() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ambient
}

func (l *lightImpl) Far() float32 {
	return l.projector.Far()
}

func (l *lightImpl) LinearDepth(world mgl32.Vec3) float32 {
	viewPos := l.projector.ViewMatrix().Mul4x1(world.Vec4(1)).Vec3()
	return common.Saturate(viewPos.Len() / l.projector.Far())
}

func (l *lightImpl) Validate() error {
	return l.projector.Validate()
}

func (l *lightImpl) SetPosition(position mgl32.Vec3) {
	l.projector.SetEye(position)
}

func (l *lightImpl) SetColor(color mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = color
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}
