package vsm

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
)

// recordingTarget logs the role and clear calls made on a target.
type recordingTarget struct {
	target.RenderTarget
	name   string
	events *[]string
}

func (r *recordingTarget) BindAsWriteTarget() error {
	*r.events = append(*r.events, r.name+" bind write")
	return r.RenderTarget.BindAsWriteTarget()
}

func (r *recordingTarget) Clear(mask target.ClearMask) error {
	*r.events = append(*r.events, fmt.Sprintf("%s clear %d", r.name, mask))
	return r.RenderTarget.Clear(mask)
}

func (r *recordingTarget) Unbind() {
	*r.events = append(*r.events, r.name+" unbind")
	r.RenderTarget.Unbind()
}

func TestBlurClearsWriteTargets(t *testing.T) {
	r := newTestRenderer(t)
	p := newInitializedPipeline(t, r)
	prepare(t, p, 32, 24)
	impl := p.(*pipelineImpl)
	targets := p.Targets()

	var events []string
	horizontal := &recordingTarget{RenderTarget: targets.Intermediate, name: "horizontal", events: &events}
	vertical := &recordingTarget{RenderTarget: targets.Filtered, name: "vertical", events: &events}
	if err := impl.blur.run(r, targets.Raw, horizontal, vertical, impl.kernel); err != nil {
		t.Fatalf("blur: %v", err)
	}

	clearAll := fmt.Sprintf("clear %d", target.ClearAll)
	want := []string{
		"horizontal bind write",
		"horizontal " + clearAll,
		"horizontal unbind",
		"vertical bind write",
		"vertical " + clearAll,
		"vertical unbind",
		"horizontal unbind",
	}
	if len(events) != len(want) {
		t.Fatalf("events = %q, want %q", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestVarianceTargetsKeepMomentsConsistent(t *testing.T) {
	r := newTestRenderer(t)
	p := newInitializedPipeline(t, r)
	const width, height = 160, 120
	prepare(t, p, width, height)
	if err := p.RenderFrame(1); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	targets := p.Targets()
	for _, tt := range []struct {
		name string
		rt   target.RenderTarget
	}{
		{"raw", targets.Raw},
		{"intermediate", targets.Intermediate},
		{"filtered", targets.Filtered},
	} {
		t.Run(tt.name, func(t *testing.T) {
			texels, err := r.ReadTexels(tt.rt)
			if err != nil {
				t.Fatalf("ReadTexels: %v", err)
			}
			if len(texels) != width*height {
				t.Fatalf("len(texels) = %d, want %d", len(texels), width*height)
			}
			covered, invalid := 0, 0
			for i, texel := range texels {
				s := VarianceSample{Mean: texel[0], MeanSquared: texel[1]}
				if !s.Valid() {
					if invalid == 0 {
						t.Errorf("texel (%d, %d) = %+v: E[x²] < E[x]²", i%width, i/width, s)
					}
					invalid++
				}
				if s.Mean < 1 {
					covered++
				}
			}
			if invalid > 0 {
				t.Errorf("%d of %d texels have negative variance", invalid, len(texels))
			}
			if covered == 0 {
				t.Errorf("no texel holds captured depth")
			}
		})
	}
}
