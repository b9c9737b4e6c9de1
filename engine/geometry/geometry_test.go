package geometry

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeBuffers struct {
	count    uint32
	released int
}

func (f *fakeBuffers) IndexCount() uint32 { return f.count }

func (f *fakeBuffers) Release() error {
	f.released++
	return nil
}

type fakeUploader struct {
	slot    uint32
	uploads []*fakeBuffers
	err     error
}

func (u *fakeUploader) UploadMesh(_ string, _ []float32, indices []uint32, slot uint32) (MeshBuffers, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.slot = slot
	b := &fakeBuffers{count: uint32(len(indices))}
	u.uploads = append(u.uploads, b)
	return b, nil
}

type fakeDrawer struct {
	draws  int
	models []mgl32.Mat4
}

func (d *fakeDrawer) DrawMesh(_ MeshBuffers, model mgl32.Mat4) error {
	d.draws++
	d.models = append(d.models, model)
	return nil
}

func isUsage(err error) bool {
	var usage *common.UsageError
	return errors.As(err, &usage)
}

func TestShapesFaceOutward(t *testing.T) {
	cases := []struct {
		name  string
		batch Batch
	}{
		{"cube", NewCube("cube")},
		{"plane", NewPlane("plane")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos := tc.batch.Positions()
			idx := tc.batch.Indices()
			if len(idx)%3 != 0 {
				t.Fatalf("index count %d is not a triangle list", len(idx))
			}
			center, _ := boundingSphere(pos)
			vertex := func(i uint32) mgl32.Vec3 { return mgl32.Vec3{pos[3*i], pos[3*i+1], pos[3*i+2]} }
			for tri := 0; tri < len(idx); tri += 3 {
				a, b, c := vertex(idx[tri]), vertex(idx[tri+1]), vertex(idx[tri+2])
				n := b.Sub(a).Cross(c.Sub(a))
				outward := a.Add(b).Add(c).Mul(1.0 / 3).Sub(center)
				if tc.name == "plane" {
					outward = mgl32.Vec3{0, 1, 0}
				}
				if n.Dot(outward) <= 0 {
					t.Errorf("triangle %d (%v %v %v) winds inward", tri/3, a, b, c)
				}
			}
		})
	}
}

func TestCubeBounds(t *testing.T) {
	center, radius := NewCube("cube").Bounds()
	if center.Sub(mgl32.Vec3{0, CubeHeight, 0}).Len() > 1e-6 {
		t.Errorf("cube center = %v, want (0, %v, 0)", center, CubeHeight)
	}
	if !mgl32.FloatEqualThreshold(radius, mgl32.Vec3{1, 1, 1}.Len(), 1e-5) {
		t.Errorf("cube radius = %v, want sqrt(3)", radius)
	}
}

func TestBatchLifecycle(t *testing.T) {
	b := NewCube("cube")
	d := &fakeDrawer{}

	if err := b.Bind(); !isUsage(err) {
		t.Errorf("Bind before Initialize = %v, want UsageError", err)
	}
	if err := b.Draw(d); !isUsage(err) {
		t.Errorf("Draw before Initialize = %v, want UsageError", err)
	}

	u := &fakeUploader{}
	if err := b.Initialize(u, 3); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if u.slot != 3 {
		t.Errorf("upload slot = %d, want 3", u.slot)
	}
	if err := b.Initialize(u, 3); !isUsage(err) {
		t.Errorf("second Initialize = %v, want UsageError", err)
	}

	if err := b.Draw(d); !isUsage(err) {
		t.Errorf("Draw while unbound = %v, want UsageError", err)
	}
	if err := b.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := b.Draw(d); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if d.draws != 1 || d.models[0] != b.Model() {
		t.Errorf("drawer saw %d draws with models %v", d.draws, d.models)
	}
	b.Unbind()
	if err := b.Draw(d); !isUsage(err) {
		t.Errorf("Draw after Unbind = %v, want UsageError", err)
	}

	if err := b.Uninitialize(); err != nil {
		t.Fatalf("Uninitialize: %v", err)
	}
	if err := b.Uninitialize(); err != nil {
		t.Fatalf("second Uninitialize: %v", err)
	}
	if got := u.uploads[0].released; got != 1 {
		t.Errorf("buffers released %d times, want 1", got)
	}
	if b.Initialized() {
		t.Error("batch still initialized after Uninitialize")
	}
}

func TestBatchInitializePropagatesUploadError(t *testing.T) {
	want := common.NewResourceCreationError("upload", "out of memory")
	err := NewPlane("plane").Initialize(&fakeUploader{err: want}, 0)
	if !errors.Is(err, want) {
		t.Errorf("Initialize = %v, want %v", err, want)
	}
}

func TestCubeModelOverride(t *testing.T) {
	b := NewCube("moved", WithModel(mgl32.Translate3D(3, 2, -1)))
	center, _ := b.Bounds()
	if center.Sub(mgl32.Vec3{3, 2, -1}).Len() > 1e-6 {
		t.Errorf("moved cube center = %v, want (3, 2, -1)", center)
	}
	if b.Label() != "moved" {
		t.Errorf("Label() = %q, want moved", b.Label())
	}
}
