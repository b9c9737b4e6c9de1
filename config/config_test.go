package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/vsm"
)

func TestResolveDefaults(t *testing.T) {
	var c Config
	c.Resolve(Flags{})

	if c.Width != DefaultWidth || c.Height != DefaultHeight {
		t.Errorf("size = %dx%d, want %dx%d", c.Width, c.Height, DefaultWidth, DefaultHeight)
	}
	if c.KernelSize != vsm.DefaultKernelSize || c.KernelSigma != vsm.DefaultKernelSigma {
		t.Errorf("kernel = (%d, %v), want (%d, %v)", c.KernelSize, c.KernelSigma, vsm.DefaultKernelSize, vsm.DefaultKernelSigma)
	}
	if c.ClearColor != DefaultClearColor {
		t.Errorf("ClearColor = %q, want %q", c.ClearColor, DefaultClearColor)
	}
	if c.DebugView != "none" {
		t.Errorf("DebugView = %q, want none", c.DebugView)
	}
	if c.Output != DefaultOutput || c.Supersample != 1 || c.Frames != 1 {
		t.Errorf("output = (%q, %d, %d), want (%q, 1, 1)", c.Output, c.Supersample, c.Frames, DefaultOutput)
	}
	if c.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", c.Workers, runtime.NumCPU())
	}
	if c.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", c.LogLevel, DefaultLogLevel)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	col, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if col.RGBA8() != common.DefaultClearColor.RGBA8() {
		t.Errorf("Clear() = %v, want %v", col, common.DefaultClearColor)
	}
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vsm.json")
	data := `{"width": 640, "height": 480, "kernel_size": 9, "debug_view": "light-depth", "output": "file.webp", "frames": 4}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c.Resolve(Flags{Width: 320, DebugView: "shadow-factor", Supersample: 2})

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Width", c.Width, 320},
		{"Height", c.Height, 480},
		{"KernelSize", c.KernelSize, 9},
		{"KernelSigma", c.KernelSigma, vsm.DefaultKernelSigma},
		{"DebugView", c.DebugView, "shadow-factor"},
		{"Output", c.Output, "file.webp"},
		{"Frames", c.Frames, 4},
		{"Supersample", c.Supersample, 2},
		{"FrameSize", c.FrameSize(), common.Size{Width: 640, Height: 960}},
		{"OutputSize", c.OutputSize(), common.Size{Width: 320, Height: 480}},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	view, err := c.View()
	if err != nil || view != vsm.DebugViewShadowFactor {
		t.Errorf("View() = (%v, %v), want (%v, nil)", view, err, vsm.DebugViewShadowFactor)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.json"), bad} {
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%q) error = nil, want error", path)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad clear color", func(c *Config) { c.ClearColor = "zzz" }},
		{"bad debug view", func(c *Config) { c.DebugView = "normals" }},
		{"even kernel", func(c *Config) { c.KernelSize = 4 }},
		{"negative sigma", func(c *Config) { c.KernelSigma = -1 }},
		{"negative width", func(c *Config) { c.Width = -5 }},
		{"zero height", func(c *Config) { c.Height = 0 }},
		{"zero supersample", func(c *Config) { c.Supersample = 0 }},
		{"frame above limit", func(c *Config) { c.Width, c.Supersample = MaxFrameDimension/2+1, 2 }},
		{"unsupported output", func(c *Config) { c.Output = "frame.jpg" }},
		{"output without extension", func(c *Config) { c.Output = "frame" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.Resolve(Flags{})
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		output string
		want   OutputFormat
	}{
		{"vsm.png", OutputFormatPNG},
		{"out/frame.PNG", OutputFormatPNG},
		{"frame.webp", OutputFormatWebP},
	}
	for _, tt := range tests {
		c := Config{Output: tt.output}
		got, err := c.OutputFormat()
		if err != nil || got != tt.want {
			t.Errorf("OutputFormat(%q) = (%q, %v), want (%q, nil)", tt.output, got, err, tt.want)
		}
	}
}

func TestValidateLargestFrame(t *testing.T) {
	var c Config
	c.Resolve(Flags{Width: MaxFrameDimension / 2, Height: 16, Supersample: 2})
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if got := c.FrameSize(); got.Width != MaxFrameDimension || got.Height != 32 {
		t.Errorf("FrameSize() = %v, want %dx32", got, MaxFrameDimension)
	}
}
