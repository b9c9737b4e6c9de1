package target

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
)

type fakeStorage struct {
	width, height uint32
	clears        []ClearMask
	lastColor     common.Color
	released      int
}

func (s *fakeStorage) Resize(width, height uint32) error {
	s.width, s.height = width, height
	return nil
}

func (s *fakeStorage) Clear(mask ClearMask, color common.Color, _ float32) {
	s.clears = append(s.clears, mask)
	s.lastColor = color
}

func (s *fakeStorage) Release() error {
	s.released++
	return nil
}

type fakeAllocator struct {
	maxDim  uint32
	storage *fakeStorage
}

func (a *fakeAllocator) AllocateStorage(label string, desc Descriptor) (Storage, error) {
	if desc.Color == ColorFormatNone {
		return nil, common.NewResourceCreationError(label, "unsupported color format %v", desc.Color)
	}
	if a.maxDim > 0 && (desc.Width > a.maxDim || desc.Height > a.maxDim) {
		return nil, common.NewResourceCreationError(label, "size above %d", a.maxDim)
	}
	a.storage = &fakeStorage{width: desc.Width, height: desc.Height}
	return a.storage, nil
}

func isUsage(err error) bool {
	var usage *common.UsageError
	return errors.As(err, &usage)
}

func isResource(err error) bool {
	var rc *common.ResourceCreationError
	return errors.As(err, &rc)
}

func newAllocated(t *testing.T, a *fakeAllocator) RenderTarget {
	t.Helper()
	rt := NewRenderTarget(a, WithLabel("test"))
	if err := rt.Allocate(64, 32, ColorFormatRG16Float, DepthFormatDepth16Unorm); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return rt
}

func TestRenderTargetUnallocatedIsUsageError(t *testing.T) {
	rt := NewRenderTarget(&fakeAllocator{})
	ops := map[string]func() error{
		"Resize":            func() error { return rt.Resize(10, 10) },
		"Clear":             func() error { return rt.Clear(ClearAll) },
		"BindAsWriteTarget": rt.BindAsWriteTarget,
		"BindAsReadSource":  func() error { return rt.BindAsReadSource(0) },
	}
	for name, op := range ops {
		if err := op(); !isUsage(err) {
			t.Errorf("%s on unallocated target = %v, want UsageError", name, err)
		}
	}
	if rt.Initialized() {
		t.Error("unallocated target reports Initialized")
	}
}

func TestRenderTargetAllocate(t *testing.T) {
	cases := []struct {
		name          string
		width, height uint32
		color         ColorFormat
		maxDim        uint32
		check         func(error) bool
	}{
		{"ok", 64, 32, ColorFormatRG16Float, 0, func(err error) bool { return err == nil }},
		{"zero width", 0, 32, ColorFormatRG16Float, 0, isUsage},
		{"zero height", 64, 0, ColorFormatRG16Float, 0, isUsage},
		{"unsupported format", 64, 32, ColorFormatNone, 0, isResource},
		{"too large", 4096, 32, ColorFormatRG16Float, 2048, isResource},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := NewRenderTarget(&fakeAllocator{maxDim: tc.maxDim})
			err := rt.Allocate(tc.width, tc.height, tc.color, DepthFormatDepth16Unorm)
			if !tc.check(err) {
				t.Fatalf("Allocate(%d, %d, %v) = %v", tc.width, tc.height, tc.color, err)
			}
			if err == nil && (rt.Width() != tc.width || rt.Height() != tc.height) {
				t.Errorf("size = %dx%d, want %dx%d", rt.Width(), rt.Height(), tc.width, tc.height)
			}
			if err != nil && rt.Initialized() {
				t.Error("failed Allocate left the target initialized")
			}
		})
	}
}

func TestRenderTargetAllocateTwice(t *testing.T) {
	rt := newAllocated(t, &fakeAllocator{})
	if err := rt.Allocate(8, 8, ColorFormatRG16Float, DepthFormatNone); !isUsage(err) {
		t.Errorf("second Allocate = %v, want UsageError", err)
	}
}

func TestRenderTargetResize(t *testing.T) {
	a := &fakeAllocator{}
	rt := newAllocated(t, a)
	if err := rt.BindAsReadSource(2); err != nil {
		t.Fatal(err)
	}
	if err := rt.Resize(1024, 768); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if got := rt.Size(); got != (common.Size{Width: 1024, Height: 768}) {
		t.Errorf("Size() = %v, want 1024x768", got)
	}
	if a.storage.width != 1024 || a.storage.height != 768 {
		t.Errorf("storage size = %dx%d, want 1024x768", a.storage.width, a.storage.height)
	}
	if rt.Role() != RoleRead || rt.Slot() != 2 {
		t.Errorf("resize dropped the binding: role %v slot %d", rt.Role(), rt.Slot())
	}
	if rt.ColorFormat() != ColorFormatRG16Float || rt.DepthFormat() != DepthFormatDepth16Unorm {
		t.Errorf("resize changed formats to %v/%v", rt.ColorFormat(), rt.DepthFormat())
	}
	if err := rt.Resize(0, 768); !isUsage(err) {
		t.Errorf("Resize(0, 768) = %v, want UsageError", err)
	}
}

func TestRenderTargetRoleConflicts(t *testing.T) {
	rt := newAllocated(t, &fakeAllocator{})

	if err := rt.BindAsWriteTarget(); err != nil {
		t.Fatalf("BindAsWriteTarget: %v", err)
	}
	if err := rt.BindAsReadSource(0); !isUsage(err) {
		t.Errorf("read while writing = %v, want UsageError", err)
	}
	rt.Unbind()

	if err := rt.BindAsReadSource(0); err != nil {
		t.Fatalf("BindAsReadSource: %v", err)
	}
	if err := rt.BindAsWriteTarget(); !isUsage(err) {
		t.Errorf("write while reading = %v, want UsageError", err)
	}
	rt.Unbind()
	if rt.Role() != RoleNone || rt.Slot() != -1 {
		t.Errorf("after Unbind role = %v slot = %d", rt.Role(), rt.Slot())
	}
	if err := rt.BindAsWriteTarget(); err != nil {
		t.Errorf("write after Unbind = %v", err)
	}
}

func TestRenderTargetClearUsesStoredValues(t *testing.T) {
	a := &fakeAllocator{}
	rt := newAllocated(t, a)
	want, _ := common.ColorFromHex("d6d8db")
	rt.SetClearColor(want)
	if err := rt.Clear(ClearAll); err != nil {
		t.Fatal(err)
	}
	if a.storage.lastColor != want || a.storage.clears[0] != ClearAll {
		t.Errorf("storage cleared with %v mask %v", a.storage.lastColor, a.storage.clears[0])
	}
}

func TestRenderTargetClearSkipsMissingDepth(t *testing.T) {
	a := &fakeAllocator{}
	rt := NewRenderTarget(a)
	if err := rt.Allocate(4, 4, ColorFormatRGBA8Unorm, DepthFormatNone); err != nil {
		t.Fatal(err)
	}
	if err := rt.Clear(ClearAll); err != nil {
		t.Fatal(err)
	}
	if a.storage.clears[0] != ClearColor {
		t.Errorf("mask = %v, want ClearColor only", a.storage.clears[0])
	}
}

func TestRenderTargetRelease(t *testing.T) {
	a := &fakeAllocator{}
	rt := newAllocated(t, a)
	if err := rt.Release(); err != nil {
		t.Fatal(err)
	}
	if err := rt.Release(); err != nil {
		t.Fatalf("second Release = %v", err)
	}
	if a.storage.released != 1 {
		t.Errorf("storage released %d times, want 1", a.storage.released)
	}
	if err := rt.BindAsWriteTarget(); !isUsage(err) {
		t.Errorf("use after release = %v, want UsageError", err)
	}
	if err := rt.Allocate(4, 4, ColorFormatRG16Float, DepthFormatNone); !isUsage(err) {
		t.Errorf("Allocate after release = %v, want UsageError", err)
	}
}
