package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFrustumIntersectsSphere(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := PerspectiveZO(mgl32.DegToRad(45), 1, 1, 20)
	f := ExtractFrustum(proj.Mul4(view))

	cases := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"origin", mgl32.Vec3{}, 1, true},
		{"behind eye", mgl32.Vec3{0, 0, 12}, 1, false},
		{"straddles near", mgl32.Vec3{0, 0, 9.5}, 1, true},
		{"beyond far", mgl32.Vec3{0, 0, -15}, 1, false},
		{"far left", mgl32.Vec3{-50, 0, 0}, 1, false},
		{"large sphere off axis", mgl32.Vec3{-8, 0, 0}, 6, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.IntersectsSphere(tc.center, tc.radius); got != tc.want {
				t.Errorf("IntersectsSphere(%v, %v) = %v, want %v", tc.center, tc.radius, got, tc.want)
			}
		})
	}
}
