package pipeline

import "fmt"

// CullMode selects which triangle faces are discarded before rasterization.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

func (m CullMode) String() string {
	switch m {
	case CullModeNone:
		return "none"
	case CullModeFront:
		return "front"
	case CullModeBack:
		return "back"
	default:
		return fmt.Sprintf("CullMode(%d)", int(m))
	}
}

// FrontFace is the winding order of front-facing triangles in framebuffer space.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// CompareFunction is the depth test predicate, comparing the fragment depth against the stored depth.
type CompareFunction int

const (
	CompareAlways CompareFunction = iota
	CompareLess
	CompareLessEqual
)

func (c CompareFunction) String() string {
	switch c {
	case CompareAlways:
		return "always"
	case CompareLess:
		return "less"
	case CompareLessEqual:
		return "less-equal"
	default:
		return fmt.Sprintf("CompareFunction(%d)", int(c))
	}
}

// Passes reports whether a fragment at depth passes the test against stored.
func (c CompareFunction) Passes(depth, stored float32) bool {
	switch c {
	case CompareLess:
		return depth < stored
	case CompareLessEqual:
		return depth <= stored
	default:
		return true
	}
}
