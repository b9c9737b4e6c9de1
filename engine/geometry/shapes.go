package geometry

import "github.com/go-gl/mathgl/mgl32"

// CubeHeight is the height of the cube's center above the ground plane.
const CubeHeight float32 = 1.5

// PlaneHalfSize is half the edge length of the ground plane.
const PlaneHalfSize float32 = 10.0

var cubePositions = []float32{
	-1, -1, -1,
	1, -1, -1,
	1, 1, -1,
	-1, 1, -1,
	-1, -1, 1,
	1, -1, 1,
	1, 1, 1,
	-1, 1, 1,
}

var cubeIndices = []uint32{
	4, 5, 6, 4, 6, 7, // +z
	1, 0, 3, 1, 3, 2, // -z
	5, 1, 2, 5, 2, 6, // +x
	0, 4, 7, 0, 7, 3, // -x
	7, 6, 2, 7, 2, 3, // +y
	0, 1, 5, 0, 5, 4, // -y
}

// NewCube creates a cube with half-extent 1 floating CubeHeight above the origin.
// Options are applied after the defaults, so WithModel moves the cube.
//
// Parameters:
//   - label: the batch label
//   - options: extra batch options
//
// Returns:
//   - Batch: the cube batch
func NewCube(label string, options ...BatchBuilderOption) Batch {
	return NewBatch(append([]BatchBuilderOption{
		WithLabel(label),
		WithMesh(cubePositions, cubeIndices),
		WithModel(mgl32.Translate3D(0, CubeHeight, 0)),
	}, options...)...)
}

// NewPlane creates a square ground plane at y = 0 facing +y.
//
// Parameters:
//   - label: the batch label
//   - options: extra batch options
//
// Returns:
//   - Batch: the plane batch
func NewPlane(label string, options ...BatchBuilderOption) Batch {
	s := PlaneHalfSize
	return NewBatch(append([]BatchBuilderOption{
		WithLabel(label),
		WithMesh(
			[]float32{
				-s, 0, -s,
				-s, 0, s,
				s, 0, s,
				s, 0, -s,
			},
			[]uint32{0, 1, 2, 0, 2, 3},
		),
	}, options...)...)
}
