package geometry

import "github.com/go-gl/mathgl/mgl32"

// BatchBuilderOption is a functional option for configuring a Batch.
type BatchBuilderOption func(*batchImpl)

// WithLabel sets the batch's debug label.
func WithLabel(label string) BatchBuilderOption {
	return func(b *batchImpl) {
		b.label = label
	}
}

// WithMesh sets the batch's triangle list. The slices are copied.
//
// Parameters:
//   - positions: packed xyz object-space positions
//   - indices: triangle list indices, counter-clockwise when seen from outside
//
// Returns:
//   - BatchBuilderOption: a function that sets the mesh
func WithMesh(positions []float32, indices []uint32) BatchBuilderOption {
	return func(b *batchImpl) {
		b.positions = append([]float32(nil), positions...)
		b.indices = append([]uint32(nil), indices...)
	}
}

// WithModel sets the object-to-world transform.
//
// Parameters:
//   - model: the model matrix
//
// Returns:
//   - BatchBuilderOption: a function that sets the model matrix
func WithModel(model mgl32.Mat4) BatchBuilderOption {
	return func(b *batchImpl) {
		b.model = model
	}
}
