package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNavigatorHeldPan(t *testing.T) {
	cc := NewCameraController(WithEyeTarget(mgl32.Vec3{6, 6, 0}, mgl32.Vec3{}))
	n := NewNavigator(cc)

	n.Press(NavigateForward)
	n.Step(0.5)
	moved := cc.Target()
	if moved.Len() < 1.9 {
		t.Fatalf("target %v moved less than the held pan distance", moved)
	}

	n.Release(NavigateForward)
	n.Step(0.5)
	if got := cc.Target(); got != moved {
		t.Errorf("target moved to %v after release, want %v", got, moved)
	}
}

func TestNavigatorReset(t *testing.T) {
	cc := NewCameraController()
	n := NewNavigator(cc)
	start := cc.Position()

	n.Press(NavigateOrbitLeft)
	n.Step(1)
	n.Scroll(2)
	if vecApprox(cc.Position(), start, 1e-4) {
		t.Fatalf("position did not change from %v", start)
	}
	n.Press(NavigateReset)
	if got := cc.Position(); !vecApprox(got, start, 1e-4) {
		t.Errorf("Position() after reset = %v, want %v", got, start)
	}
}

func TestNavigatorDrag(t *testing.T) {
	cc := NewCameraController()
	n := NewNavigator(cc)

	version := cc.Version()
	n.DragTo(50, 50)
	if cc.Version() != version {
		t.Fatalf("DragTo outside a drag changed the controller")
	}

	azimuth := cc.Azimuth()
	n.BeginDrag(10, 10)
	n.DragTo(30, 10)
	if cc.Azimuth() == azimuth {
		t.Errorf("horizontal drag left azimuth at %v", azimuth)
	}
	n.EndDrag()
	version = cc.Version()
	n.DragTo(90, 90)
	if cc.Version() != version {
		t.Errorf("DragTo after EndDrag changed the controller")
	}
}
