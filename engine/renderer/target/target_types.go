package target

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vsm/common"
)

// ColorFormat is the texel format of a target's color attachment.
type ColorFormat int

const (
	ColorFormatNone ColorFormat = iota
	// ColorFormatRG16Float holds two half-float channels. Variance maps store (mean, mean squared).
	ColorFormatRG16Float
	ColorFormatRGBA8Unorm
	ColorFormatBGRA8Unorm
)

func (f ColorFormat) String() string {
	switch f {
	case ColorFormatNone:
		return "none"
	case ColorFormatRG16Float:
		return "rg16float"
	case ColorFormatRGBA8Unorm:
		return "rgba8unorm"
	case ColorFormatBGRA8Unorm:
		return "bgra8unorm"
	default:
		return fmt.Sprintf("ColorFormat(%d)", int(f))
	}
}

// Channels returns the number of color channels stored per texel.
func (f ColorFormat) Channels() int {
	switch f {
	case ColorFormatRG16Float:
		return 2
	case ColorFormatRGBA8Unorm, ColorFormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}

// DepthFormat is the format of a target's depth attachment.
type DepthFormat int

const (
	DepthFormatNone DepthFormat = iota
	DepthFormatDepth16Unorm
)

func (f DepthFormat) String() string {
	switch f {
	case DepthFormatNone:
		return "none"
	case DepthFormatDepth16Unorm:
		return "depth16unorm"
	default:
		return fmt.Sprintf("DepthFormat(%d)", int(f))
	}
}

// ClearMask selects the attachments a Clear resets.
type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth

	ClearAll = ClearColor | ClearDepth
)

// Role is the way a target is currently bound.
type Role int

const (
	RoleNone Role = iota
	RoleWrite
	RoleRead
)

func (r Role) String() string {
	switch r {
	case RoleWrite:
		return "write"
	case RoleRead:
		return "read"
	default:
		return "none"
	}
}

// Descriptor describes the storage a backend allocates for a target.
// Sampling always uses clamp-to-edge addressing with linear filtering.
type Descriptor struct {
	Width  uint32
	Height uint32
	Color  ColorFormat
	Depth  DepthFormat
}

// Size returns the descriptor's dimensions.
func (d Descriptor) Size() common.Size {
	return common.Size{Width: d.Width, Height: d.Height}
}

// Storage is the backend-owned memory behind a RenderTarget.
type Storage interface {
	// Resize reallocates the attachments at a new size. Contents are undefined afterwards.
	//
	// Parameters:
	//   - width, height: the new size in texels
	//
	// Returns:
	//   - error: a *common.ResourceCreationError if the device rejected the size
	Resize(width, height uint32) error

	// Clear resets the selected attachments. Backends may defer the clear to the next pass that writes the storage.
	//
	// Parameters:
	//   - mask: the attachments to clear
	//   - color: the clear color
	//   - depth: the clear depth
	Clear(mask ClearMask, color common.Color, depth float32)

	// Release frees the device memory.
	//
	// Returns:
	//   - error: the release error, if any
	Release() error
}

// Allocator creates backend storage for render targets.
type Allocator interface {
	// AllocateStorage creates storage matching a descriptor.
	//
	// Parameters:
	//   - label: debug label
	//   - desc: the requested size and formats
	//
	// Returns:
	//   - Storage: the allocated storage
	//   - error: a *common.ResourceCreationError if a format or size is not supported
	AllocateStorage(label string, desc Descriptor) (Storage, error)
}
