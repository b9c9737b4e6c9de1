// package common contains plain types shared by the pipeline packages. They are not interface-wrapped structs,
// just value types and helpers that express commonly used data.
package common

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a width/height pair in pixels, used for frame, canvas and render target dimensions.
type Size struct {
	Width  uint32
	Height uint32
}

// Valid reports whether both dimensions are strictly positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Aspect returns width divided by height, or 1 when the size is not valid.
func (s Size) Aspect() float32 {
	if !s.Valid() {
		return 1
	}
	return float32(s.Width) / float32(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// White is the clear color used by variance targets: a cleared texel encodes the far plane.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// DefaultClearColor is the screen clear color, #d6d8db.
var DefaultClearColor = Color{R: 0xd6 / 255.0, G: 0xd8 / 255.0, B: 0xdb / 255.0, A: 1}

// ColorFromHex parses "rrggbb" or "rrggbbaa", with or without a leading '#'.
//
// Parameters:
//   - hex: the hex color string
//
// Returns:
//   - Color: the parsed color, alpha defaults to 1
//   - error: an error if the string is not a valid hex color
func ColorFromHex(hex string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("color %q: expected 6 or 8 hex digits", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", hex, err)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return Color{
		R: float32((v>>24)&0xff) / 255.0,
		G: float32((v>>16)&0xff) / 255.0,
		B: float32((v>>8)&0xff) / 255.0,
		A: float32(v&0xff) / 255.0,
	}, nil
}

// RGBA8 quantizes the color to four 8-bit channels.
func (c Color) RGBA8() [4]uint8 {
	return [4]uint8{
		uint8(Saturate(c.R)*255 + 0.5),
		uint8(Saturate(c.G)*255 + 0.5),
		uint8(Saturate(c.B)*255 + 0.5),
		uint8(Saturate(c.A)*255 + 0.5),
	}
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	q := c.RGBA8()
	return fmt.Sprintf("#%02x%02x%02x", q[0], q[1], q[2])
}
