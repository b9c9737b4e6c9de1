package vsm

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/common"
)

func TestPipelineStateApply(t *testing.T) {
	frame := common.Size{Width: 800, Height: 600}
	canvas := common.Size{Width: 400, Height: 300}
	red := common.Color{R: 1, A: 1}

	tests := []struct {
		name    string
		initial PipelineState
		diff    StateDiff
		want    Altered
	}{
		{"empty diff", PipelineState{}, StateDiff{}, 0},
		{"first resize", PipelineState{}, Resize(frame, canvas), FrameSizeChanged | CanvasSizeChanged},
		{"same sizes", PipelineState{FrameSize: frame, CanvasSize: canvas}, Resize(frame, canvas), 0},
		{"frame only", PipelineState{FrameSize: canvas, CanvasSize: canvas}, Resize(frame, canvas), FrameSizeChanged},
		{"clear color", PipelineState{}, StateDiff{ClearColor: &red}, ClearColorChanged},
		{"same clear color", PipelineState{ClearColor: red}, StateDiff{ClearColor: &red}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.initial
			got := s.Apply(tt.diff)
			if got != tt.want {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
			if tt.diff.FrameSize != nil && s.FrameSize != *tt.diff.FrameSize {
				t.Errorf("FrameSize = %v, want %v", s.FrameSize, *tt.diff.FrameSize)
			}
			if tt.diff.ClearColor != nil && s.ClearColor != *tt.diff.ClearColor {
				t.Errorf("ClearColor = %v, want %v", s.ClearColor, *tt.diff.ClearColor)
			}
		})
	}
}

func TestAlteredHas(t *testing.T) {
	a := FrameSizeChanged | ClearColorChanged
	if !a.Has(FrameSizeChanged) || !a.Has(ClearColorChanged) {
		t.Errorf("%v does not report its own flags", a)
	}
	if a.Has(CanvasSizeChanged) || a.Has(FrameSizeChanged|CanvasSizeChanged) {
		t.Errorf("%v reports canvas change", a)
	}
}

func TestParseDebugView(t *testing.T) {
	tests := []struct {
		name    string
		want    DebugView
		wantErr bool
	}{
		{"", DebugViewNone, false},
		{"none", DebugViewNone, false},
		{"shadow-factor", DebugViewShadowFactor, false},
		{"light-depth", DebugViewLightDepth, false},
		{"normals", DebugViewNone, true},
	}
	for _, tt := range tests {
		got, err := ParseDebugView(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDebugView(%q) = %v, %v, want %v, error %t", tt.name, got, err, tt.want, tt.wantErr)
		}
	}
}
