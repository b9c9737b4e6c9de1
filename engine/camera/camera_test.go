package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

// vecApprox compares componentwise by absolute difference.
func vecApprox(a, b mgl32.Vec3, eps float32) bool {
	return approx(a.X(), b.X(), eps) && approx(a.Y(), b.Y(), eps) && approx(a.Z(), b.Z(), eps)
}

func TestCameraViewMapsCenterOntoNegativeZ(t *testing.T) {
	c := NewCamera(
		WithEye(6, 6, 0),
		WithCenter(0, 0, 0),
		WithUp(-1, 1, 0),
	)
	v := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	dist := float32(6 * math.Sqrt2)
	if !approx(v.X(), 0, 1e-4) || !approx(v.Y(), 0, 1e-4) || !approx(v.Z(), -dist, 1e-4) {
		t.Fatalf("center in view space = %v, want (0, 0, %v)", v, -dist)
	}
}

func TestCameraProjectionDepthRange(t *testing.T) {
	c := NewCamera(
		WithEye(0, 0, 10),
		WithNear(2),
		WithFar(20),
	)
	vp := c.ViewProjectionMatrix()

	cases := []struct {
		name  string
		point mgl32.Vec3
		depth float32
	}{
		{"near plane", mgl32.Vec3{0, 0, 8}, 0},
		{"far plane", mgl32.Vec3{0, 0, -10}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clip := vp.Mul4x1(tc.point.Vec4(1))
			if got := clip.Z() / clip.W(); !approx(got, tc.depth, 1e-5) {
				t.Errorf("ndc depth = %v, want %v", got, tc.depth)
			}
		})
	}
}

func TestCameraMatricesFollowSetters(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()
	c.SetAspect(2)
	after := c.ProjectionMatrix()
	if before == after {
		t.Fatal("projection did not change after SetAspect")
	}
	if !approx(after[0]*2, after[5], 1e-6) {
		t.Errorf("x scale %v should be half the y scale %v for aspect 2", after[0], after[5])
	}
}

func TestCameraValidate(t *testing.T) {
	cases := []struct {
		name    string
		options []CameraBuilderOption
		wantErr bool
	}{
		{"defaults", nil, false},
		{"zero near", []CameraBuilderOption{WithNear(0)}, true},
		{"near beyond far", []CameraBuilderOption{WithNear(10), WithFar(5)}, true},
		{"zero aspect", []CameraBuilderOption{WithAspect(0)}, true},
		{"fov too wide", []CameraBuilderOption{WithFov(math.Pi)}, true},
		{"eye on center", []CameraBuilderOption{WithEye(0, 0, 0)}, true},
		{"up parallel", []CameraBuilderOption{WithEye(0, 5, 0)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewCamera(tc.options...).Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
			var usage *common.UsageError
			if err != nil && !errors.As(err, &usage) {
				t.Errorf("error %T is not a *common.UsageError", err)
			}
		})
	}
}

func TestCameraUpdateFollowsController(t *testing.T) {
	ctrl := NewCameraController(WithEyeTarget(mgl32.Vec3{6, 6, 0}, mgl32.Vec3{}))
	c := NewCamera(WithController(ctrl))

	if eye := c.Eye(); !approx(eye.X(), 6, 1e-4) || !approx(eye.Y(), 6, 1e-4) || !approx(eye.Z(), 0, 1e-4) {
		t.Fatalf("eye = %v, want (6, 6, 0)", eye)
	}
	if c.Update() {
		t.Error("Update reported a change with an untouched controller")
	}

	ctrl.OrbitRight()
	if !c.Update() {
		t.Fatal("Update missed a controller change")
	}
	if c.Eye() != ctrl.Position() {
		t.Errorf("eye %v does not match controller position %v", c.Eye(), ctrl.Position())
	}
	dir := c.Center().Sub(c.Eye()).Normalize()
	if d := dir.Dot(c.Up()); !approx(d, 0, 1e-5) {
		t.Errorf("up is not orthogonal to the view direction, dot = %v", d)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("camera invalid after orbit: %v", err)
	}
}

func TestCameraWithoutControllerNeverUpdates(t *testing.T) {
	c := NewCamera()
	c.SetEye(mgl32.Vec3{1, 2, 3})
	if c.Update() {
		t.Error("Update returned true with no controller")
	}
}
