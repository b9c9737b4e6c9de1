package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/vsm"
)

// Config holds the settings shared by the vsm-render and vsm-view commands.
type Config struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	KernelSize  int     `json:"kernel_size"`
	KernelSigma float32 `json:"kernel_sigma"`
	ClearColor  string  `json:"clear_color"`
	DebugView   string  `json:"debug_view"`
	Output      string  `json:"output"`
	Supersample int     `json:"supersample"`
	Frames      int     `json:"frames"`
	Workers     int     `json:"workers"`
	LogLevel    string  `json:"log_level"`
	Profile     bool    `json:"profile"`
}

// Flags holds command-line overrides. Zero values leave the file setting alone.
type Flags struct {
	Width       int
	Height      int
	KernelSize  int
	KernelSigma float64
	ClearColor  string
	DebugView   string
	Output      string
	Supersample int
	Frames      int
	Workers     int
	LogLevel    string
	Profile     bool
}

const (
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultClearColor  = "d6d8db"
	DefaultOutput      = "vsm.png"
	DefaultSupersample = 1
	DefaultFrames      = 1
	DefaultLogLevel    = "info"

	// MaxFrameDimension caps the rendered side length, Width or Height times Supersample.
	MaxFrameDimension = renderer.DefaultSoftwareMaxDimension
)

// OutputFormat names a snapshot encoding.
type OutputFormat string

const (
	OutputFormatPNG  OutputFormat = "png"
	OutputFormatWebP OutputFormat = "webp"
)

// Load reads a JSON config file.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// Resolve applies flag overrides and fills defaults for anything still unset.
func (c *Config) Resolve(flags Flags) {
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.KernelSize != 0 {
		c.KernelSize = flags.KernelSize
	}
	if flags.KernelSigma != 0 {
		c.KernelSigma = float32(flags.KernelSigma)
	}
	if flags.ClearColor != "" {
		c.ClearColor = flags.ClearColor
	}
	if flags.DebugView != "" {
		c.DebugView = flags.DebugView
	}
	if flags.Output != "" {
		c.Output = flags.Output
	}
	if flags.Supersample > 0 {
		c.Supersample = flags.Supersample
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.Profile {
		c.Profile = true
	}

	c.Width = common.Coalesce(c.Width, DefaultWidth)
	c.Height = common.Coalesce(c.Height, DefaultHeight)
	c.KernelSize = common.Coalesce(c.KernelSize, vsm.DefaultKernelSize)
	c.KernelSigma = common.Coalesce(c.KernelSigma, vsm.DefaultKernelSigma)
	c.ClearColor = common.Coalesce(c.ClearColor, DefaultClearColor)
	c.DebugView = common.Coalesce(c.DebugView, vsm.DebugViewNone.String())
	c.Output = common.Coalesce(c.Output, DefaultOutput)
	c.Supersample = max(c.Supersample, DefaultSupersample)
	c.Frames = max(c.Frames, DefaultFrames)
	c.Workers = common.Coalesce(c.Workers, runtime.NumCPU())
	c.LogLevel = common.Coalesce(c.LogLevel, DefaultLogLevel)
}

// FrameSize is the size the pipeline renders at, Width×Height scaled by Supersample.
// Only meaningful after Validate succeeds.
func (c Config) FrameSize() common.Size {
	s := max(c.Supersample, 1)
	return common.Size{Width: uint32(c.Width * s), Height: uint32(c.Height * s)}
}

// OutputSize is the size of the written snapshot. Only meaningful after Validate succeeds.
func (c Config) OutputSize() common.Size {
	return common.Size{Width: uint32(c.Width), Height: uint32(c.Height)}
}

// OutputFormat returns the snapshot encoding selected by the output extension.
func (c Config) OutputFormat() (OutputFormat, error) {
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".png":
		return OutputFormatPNG, nil
	case ".webp":
		return OutputFormatWebP, nil
	default:
		return "", fmt.Errorf("config: output %q: unsupported format %q, want .png or .webp", c.Output, filepath.Ext(c.Output))
	}
}

// Clear parses the clear color.
func (c Config) Clear() (common.Color, error) {
	col, err := common.ColorFromHex(c.ClearColor)
	if err != nil {
		return common.Color{}, fmt.Errorf("config: clear_color: %w", err)
	}
	return col, nil
}

// View parses the debug view name.
func (c Config) View() (vsm.DebugView, error) {
	v, err := vsm.ParseDebugView(c.DebugView)
	if err != nil {
		return vsm.DebugViewNone, fmt.Errorf("config: debug_view: %w", err)
	}
	return v, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: invalid size %dx%d", c.Width, c.Height)
	}
	if c.Supersample < 1 {
		return fmt.Errorf("config: supersample %d must be at least 1", c.Supersample)
	}
	if w, h := c.Width*c.Supersample, c.Height*c.Supersample; w > MaxFrameDimension || h > MaxFrameDimension {
		return fmt.Errorf("config: frame %dx%d exceeds the maximum side of %d", w, h, MaxFrameDimension)
	}
	if _, err := c.OutputFormat(); err != nil {
		return err
	}
	if _, err := c.Clear(); err != nil {
		return err
	}
	if _, err := c.View(); err != nil {
		return err
	}
	if _, err := vsm.NewKernel(c.KernelSize, c.KernelSigma); err != nil {
		return fmt.Errorf("config: kernel: %w", err)
	}
	return nil
}
