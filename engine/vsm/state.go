package vsm

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vsm/common"
)

// PipelineState is the host-visible state the pipeline renders against.
type PipelineState struct {
	FrameSize  common.Size
	CanvasSize common.Size
	ClearColor common.Color
}

// StateDiff carries the fields the host wants to change. Nil fields are left alone.
type StateDiff struct {
	FrameSize  *common.Size
	CanvasSize *common.Size
	ClearColor *common.Color
}

// Altered is the set of fields a StateDiff actually changed.
type Altered uint8

const (
	FrameSizeChanged Altered = 1 << iota
	CanvasSizeChanged
	ClearColorChanged
)

// Has reports whether every flag of f is set.
func (a Altered) Has(f Altered) bool {
	return a&f == f
}

func (a Altered) String() string {
	return fmt.Sprintf("frame=%t canvas=%t clear=%t",
		a.Has(FrameSizeChanged), a.Has(CanvasSizeChanged), a.Has(ClearColorChanged))
}

// Apply writes the diff into the state and returns what changed. Setting a field to its
// current value does not mark it altered.
//
// Parameters:
//   - diff: the requested changes
//
// Returns:
//   - Altered: the fields whose values changed
func (s *PipelineState) Apply(diff StateDiff) Altered {
	var altered Altered
	if diff.FrameSize != nil && *diff.FrameSize != s.FrameSize {
		s.FrameSize = *diff.FrameSize
		altered |= FrameSizeChanged
	}
	if diff.CanvasSize != nil && *diff.CanvasSize != s.CanvasSize {
		s.CanvasSize = *diff.CanvasSize
		altered |= CanvasSizeChanged
	}
	if diff.ClearColor != nil && *diff.ClearColor != s.ClearColor {
		s.ClearColor = *diff.ClearColor
		altered |= ClearColorChanged
	}
	return altered
}

// Resize returns a diff that sets the frame and canvas sizes.
//
// Parameters:
//   - frame: the drawable size in pixels
//   - canvas: the logical display size, which sets the aspect ratio
//
// Returns:
//   - StateDiff: the diff
func Resize(frame, canvas common.Size) StateDiff {
	return StateDiff{FrameSize: &frame, CanvasSize: &canvas}
}
