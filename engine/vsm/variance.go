package vsm

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
)

// varianceEpsilon absorbs half-precision rounding when checking E[x²] >= E[x]².
const varianceEpsilon = 1e-3

// VarianceSample is one texel of a variance shadow map: the first two moments of the
// normalized light depth over the filter footprint.
type VarianceSample struct {
	Mean        float32
	MeanSquared float32
}

// Moments returns the sample a single fragment at normalized depth d writes.
//
// Parameters:
//   - d: the normalized light depth
//
// Returns:
//   - VarianceSample: (d, d²)
func Moments(d float32) VarianceSample {
	return VarianceSample{Mean: d, MeanSquared: d * d}
}

// Variance returns max(E[x²] - E[x]², 0).
func (v VarianceSample) Variance() float32 {
	return max(v.MeanSquared-v.Mean*v.Mean, 0)
}

// Valid reports whether the sample satisfies E[x²] >= E[x]² within rounding error.
func (v VarianceSample) Valid() bool {
	return v.MeanSquared >= v.Mean*v.Mean-varianceEpsilon
}

// EncodeDepth normalizes a light-space distance by the light's far plane, clamped to [0, 1].
//
// Parameters:
//   - distance: the distance from the light
//   - far: the light's far plane distance, > 0
//
// Returns:
//   - float32: the normalized depth
func EncodeDepth(distance, far float32) float32 {
	return common.Saturate(distance / far)
}

// DecodeDepth converts a normalized depth back to a light-space distance.
//
// Parameters:
//   - v: the normalized depth
//   - far: the light's far plane distance
//
// Returns:
//   - float32: the distance from the light
func DecodeDepth(v, far float32) float32 {
	return v * far
}

// ShadowFactor is the one-tailed Chebyshev upper bound on the fraction of light reaching a
// fragment at normalized depth d. Fragments in front of the mean are fully lit.
//
// Parameters:
//   - s: the filtered moments at the fragment's light-space position
//   - d: the fragment's normalized light depth
//
// Returns:
//   - float32: the light factor in [0, 1]
func ShadowFactor(s VarianceSample, d float32) float32 {
	if d <= s.Mean {
		return 1
	}
	variance := s.Variance()
	delta := d - s.Mean
	return common.Saturate(variance / (variance + delta*delta))
}
