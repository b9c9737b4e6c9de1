package target

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"go.uber.org/zap"
)

type renderTargetImpl struct {
	mu *sync.Mutex

	label     string
	allocator Allocator
	storage   Storage
	desc      Descriptor
	released  bool

	role Role
	slot int

	clearColor common.Color
	clearDepth float32
}

// RenderTarget is a color attachment with an optional depth attachment that a pass can write into
// or sample from, but never both at once.
//
// A target is created empty. Allocate gives it storage on first use and Resize changes the size
// afterwards while keeping formats, clear values and the current role. Every other operation on an
// unallocated or released target is a usage error.
type RenderTarget interface {
	// Label returns the target's debug label.
	Label() string

	// Initialized reports whether storage is allocated.
	//
	// Returns:
	//   - bool: true between Allocate and Release
	Initialized() bool

	Width() uint32
	Height() uint32

	// Size returns the current dimensions, zero before allocation.
	//
	// Returns:
	//   - common.Size: the target size
	Size() common.Size

	ColorFormat() ColorFormat
	DepthFormat() DepthFormat

	// Allocate creates storage. It fails if the target already has storage.
	//
	// Parameters:
	//   - width, height: size in texels, both > 0
	//   - color: the color format
	//   - depth: the depth format, or DepthFormatNone
	//
	// Returns:
	//   - error: *common.UsageError for a zero size or a repeated call, *common.ResourceCreationError if the backend refused
	Allocate(width, height uint32, color ColorFormat, depth DepthFormat) error

	// Resize reallocates storage at a new size. It is a no-op when the size is unchanged.
	//
	// Parameters:
	//   - width, height: the new size in texels, both > 0
	//
	// Returns:
	//   - error: *common.UsageError before allocation or for a zero size, *common.ResourceCreationError if the backend refused
	Resize(width, height uint32) error

	SetClearColor(color common.Color)
	SetClearDepth(depth float32)
	ClearColor() common.Color
	ClearDepth() float32

	// Clear resets the selected attachments to the stored clear values.
	//
	// Parameters:
	//   - mask: the attachments to clear
	//
	// Returns:
	//   - error: *common.UsageError if the target has no storage
	Clear(mask ClearMask) error

	// BindAsWriteTarget makes the target the destination of the next pass.
	//
	// Returns:
	//   - error: *common.UsageError if the target is bound as a read source or has no storage
	BindAsWriteTarget() error

	// BindAsReadSource makes the target sampleable at a texture slot.
	//
	// Parameters:
	//   - slot: the texture unit
	//
	// Returns:
	//   - error: *common.UsageError if the target is the write target or has no storage
	BindAsReadSource(slot int) error

	// Unbind clears the current role.
	Unbind()

	// Role returns the current binding role.
	Role() Role

	// Slot returns the texture slot of the read role, or -1.
	Slot() int

	// Storage returns the backend storage, or nil before allocation.
	//
	// Returns:
	//   - Storage: the backend storage
	Storage() Storage

	// Release frees the storage. A second call is a no-op; any later use is a usage error.
	//
	// Returns:
	//   - error: the backend release error, if any
	Release() error
}

var _ RenderTarget = &renderTargetImpl{}

// NewRenderTarget creates an empty target backed by the given allocator.
// Clear values default to opaque white and depth 1.
//
// Parameters:
//   - allocator: the backend allocator
//   - options: functional options to configure the target
//
// Returns:
//   - RenderTarget: the new target
func NewRenderTarget(allocator Allocator, options ...RenderTargetBuilderOption) RenderTarget {
	t := &renderTargetImpl{
		mu:         &sync.Mutex{},
		label:      "target",
		allocator:  allocator,
		slot:       -1,
		clearColor: common.White,
		clearDepth: 1,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

func (t *renderTargetImpl) Label() string {
	return t.label
}

func (t *renderTargetImpl) Initialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.storage != nil
}

func (t *renderTargetImpl) Width() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc.Width
}

func (t *renderTargetImpl) Height() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc.Height
}

func (t *renderTargetImpl) Size() common.Size {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc.Size()
}

func (t *renderTargetImpl) ColorFormat() ColorFormat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc.Color
}

func (t *renderTargetImpl) DepthFormat() DepthFormat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc.Depth
}

func (t *renderTargetImpl) Allocate(width, height uint32, color ColorFormat, depth DepthFormat) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usable("allocate", false); err != nil {
		return err
	}
	if t.storage != nil {
		return common.NewUsageError(t.op("allocate"), "already allocated")
	}
	if width == 0 || height == 0 {
		return common.NewUsageError(t.op("allocate"), "size %dx%d must be positive", width, height)
	}
	desc := Descriptor{Width: width, Height: height, Color: color, Depth: depth}
	storage, err := t.allocator.AllocateStorage(t.label, desc)
	if err != nil {
		return err
	}
	t.storage = storage
	t.desc = desc
	common.Logger().Debug("render target allocated",
		zap.String("label", t.label),
		zap.Stringer("size", desc.Size()),
		zap.Stringer("color", color),
		zap.Stringer("depth", depth),
	)
	return nil
}

func (t *renderTargetImpl) Resize(width, height uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usable("resize", true); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return common.NewUsageError(t.op("resize"), "size %dx%d must be positive", width, height)
	}
	if width == t.desc.Width && height == t.desc.Height {
		return nil
	}
	if err := t.storage.Resize(width, height); err != nil {
		return err
	}
	t.desc.Width, t.desc.Height = width, height
	common.Logger().Debug("render target resized",
		zap.String("label", t.label),
		zap.Stringer("size", t.desc.Size()),
	)
	return nil
}

func (t *renderTargetImpl) SetClearColor(color common.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearColor = color
}

func (t *renderTargetImpl) SetClearDepth(depth float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearDepth = depth
}

func (t *renderTargetImpl) ClearColor() common.Color {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clearColor
}

func (t *renderTargetImpl) ClearDepth() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clearDepth
}

func (t *renderTargetImpl) Clear(mask ClearMask) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usable("clear", true); err != nil {
		return err
	}
	if t.desc.Depth == DepthFormatNone {
		mask &^= ClearDepth
	}
	t.storage.Clear(mask, t.clearColor, t.clearDepth)
	return nil
}

func (t *renderTargetImpl) BindAsWriteTarget() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usable("bind write", true); err != nil {
		return err
	}
	if t.role == RoleRead {
		return common.NewUsageError(t.op("bind write"), "target is bound as read source at slot %d", t.slot)
	}
	t.role = RoleWrite
	return nil
}

func (t *renderTargetImpl) BindAsReadSource(slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.usable("bind read", true); err != nil {
		return err
	}
	if t.role == RoleWrite {
		return common.NewUsageError(t.op("bind read"), "target is the active write target")
	}
	if slot < 0 {
		return common.NewUsageError(t.op("bind read"), "invalid slot %d", slot)
	}
	t.role = RoleRead
	t.slot = slot
	return nil
}

func (t *renderTargetImpl) Unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.role = RoleNone
	t.slot = -1
}

func (t *renderTargetImpl) Role() Role {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.role
}

func (t *renderTargetImpl) Slot() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slot
}

func (t *renderTargetImpl) Storage() Storage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.storage
}

func (t *renderTargetImpl) Release() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	t.released = true
	t.role = RoleNone
	t.slot = -1
	if t.storage == nil {
		return nil
	}
	err := t.storage.Release()
	t.storage = nil
	return err
}

// usable checks that the target was not released and, when needAlloc is set, that it has storage.
// Caller must hold the mutex.
func (t *renderTargetImpl) usable(op string, needAlloc bool) error {
	if t.released {
		return common.NewUsageError(t.op(op), "target was released")
	}
	if needAlloc && t.storage == nil {
		return common.NewUsageError(t.op(op), "target is not allocated")
	}
	return nil
}

func (t *renderTargetImpl) op(name string) string {
	return "target " + t.label + ": " + name
}
