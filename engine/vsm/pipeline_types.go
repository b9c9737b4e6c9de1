package vsm

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/go-gl/mathgl/mgl32"
)

// State is the lifecycle stage of a Pipeline.
type State int

const (
	// StateUninitialized owns no resources. Initialize moves to StateInitialized.
	StateUninitialized State = iota

	// StateInitialized owns programs, cameras and unsized targets. Prepare moves to StateActive.
	StateInitialized

	// StateActive has sized targets and can render frames.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DebugView selects what the composite pass writes to the screen.
type DebugView uint32

const (
	// DebugViewNone shades the scene.
	DebugViewNone DebugView = iota

	// DebugViewShadowFactor writes the Chebyshev light factor as gray.
	DebugViewShadowFactor

	// DebugViewLightDepth writes the filtered mean light depth as gray.
	DebugViewLightDepth
)

func (v DebugView) String() string {
	switch v {
	case DebugViewNone:
		return "none"
	case DebugViewShadowFactor:
		return "shadow-factor"
	case DebugViewLightDepth:
		return "light-depth"
	default:
		return fmt.Sprintf("DebugView(%d)", uint32(v))
	}
}

// ParseDebugView maps a debug view name to its value.
//
// Parameters:
//   - name: one of "none", "shadow-factor" or "light-depth"; empty means none
//
// Returns:
//   - DebugView: the parsed view
//   - error: a *common.UsageError for an unknown name
func ParseDebugView(name string) (DebugView, error) {
	for _, v := range []DebugView{DebugViewNone, DebugViewShadowFactor, DebugViewLightDepth} {
		if v.String() == name {
			return v, nil
		}
	}
	if name == "" {
		return DebugViewNone, nil
	}
	return DebugViewNone, common.NewUsageError("debug view", "unknown view %q", name)
}

// DefaultBaseColor is the surface color of the shaded batches.
var DefaultBaseColor = common.Color{R: 0.9, G: 0.9, B: 0.9, A: 1}

// Observer camera placement of the default scene.
var (
	DefaultObserverEye    = mgl32.Vec3{6, 6, 0}
	DefaultObserverCenter = mgl32.Vec3{0, 0, 0}
)

const (
	DefaultObserverFov  float32 = 45
	DefaultObserverNear float32 = 3
	DefaultObserverFar  float32 = 32
)
