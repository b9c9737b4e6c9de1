package vsm

import (
	"math"

	"github.com/Carmen-Shannon/oxy-vsm/common"
)

const (
	// DefaultKernelSize is the number of taps of the shadow map blur.
	DefaultKernelSize = 31

	// DefaultKernelSigma is the standard deviation of the blur in texels.
	DefaultKernelSigma float32 = 15

	// kernelVectors is the length of the array<vec4<f32>, N> carrying the weights.
	kernelVectors = 8

	// MaxKernelSize is the largest kernel whose one-sided weights fit the uniform array.
	MaxKernelSize = 2*kernelVectors*4 - 1
)

// Kernel is a normalized 1D Gaussian. Weights holds all Size taps, symmetric about the center.
type Kernel struct {
	Size    int
	Sigma   float32
	Weights []float32
}

// NewKernel builds a Gaussian kernel with the given odd size and standard deviation.
// The weights sum to 1.
//
// Parameters:
//   - size: the tap count, odd and in [1, MaxKernelSize]
//   - sigma: the standard deviation in texels, > 0
//
// Returns:
//   - Kernel: the normalized kernel
//   - error: a *common.UsageError for an even, non-positive or oversized size or a non-positive sigma
func NewKernel(size int, sigma float32) (Kernel, error) {
	switch {
	case size < 1 || size%2 == 0:
		return Kernel{}, common.NewUsageError("kernel", "size must be odd and >= 1, got %d", size)
	case size > MaxKernelSize:
		return Kernel{}, common.NewUsageError("kernel", "size %d exceeds the maximum of %d", size, MaxKernelSize)
	case !(sigma > 0) || math.IsInf(float64(sigma), 0):
		return Kernel{}, common.NewUsageError("kernel", "sigma must be > 0, got %v", sigma)
	}

	half := size / 2
	weights := make([]float64, size)
	var sum float64
	for i := range weights {
		x := float64(i - half)
		weights[i] = math.Exp(-x * x / (2 * float64(sigma) * float64(sigma)))
		sum += weights[i]
	}

	k := Kernel{Size: size, Sigma: sigma, Weights: make([]float32, size)}
	for i, w := range weights {
		k.Weights[i] = float32(w / sum)
	}
	return k, nil
}

// Taps returns the number of one-sided taps including the center.
func (k Kernel) Taps() uint32 {
	return uint32(k.Size/2 + 1)
}

// Packed returns the center weight followed by the one-sided weights, zero-padded to the
// uniform array<vec4<f32>, 8> layout.
func (k Kernel) Packed() []float32 {
	out := make([]float32, kernelVectors*4)
	copy(out, k.Weights[k.Size/2:])
	return out
}
