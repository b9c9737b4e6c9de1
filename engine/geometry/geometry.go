package geometry

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MeshBuffers is a device-side copy of a batch's vertex and index data.
type MeshBuffers interface {
	// IndexCount returns the number of indices to draw.
	IndexCount() uint32

	// Release frees the device buffers. A second call is a no-op.
	Release() error
}

// Uploader copies mesh data to the device.
type Uploader interface {
	// UploadMesh creates vertex and index buffers for a triangle list.
	//
	// Parameters:
	//   - label: debug label for the buffers
	//   - positions: tightly packed xyz positions
	//   - indices: triangle list indices into positions
	//   - positionSlot: the vertex attribute location positions are bound to
	//
	// Returns:
	//   - MeshBuffers: the uploaded buffers
	//   - error: a *common.ResourceCreationError if the device rejected the buffers
	UploadMesh(label string, positions []float32, indices []uint32, positionSlot uint32) (MeshBuffers, error)
}

// Drawer issues indexed draws inside an active pass.
type Drawer interface {
	// DrawMesh draws uploaded buffers with a model matrix.
	//
	// Parameters:
	//   - buffers: buffers returned by an Uploader
	//   - model: the object-to-world transform
	//
	// Returns:
	//   - error: an error if the draw could not be recorded
	DrawMesh(buffers MeshBuffers, model mgl32.Mat4) error
}

type batchImpl struct {
	mu *sync.Mutex

	label     string
	positions []float32
	indices   []uint32
	model     mgl32.Mat4

	localCenter mgl32.Vec3
	localRadius float32

	buffers MeshBuffers
	slot    uint32
	bound   bool
}

// Batch is a static triangle mesh that can be uploaded once and drawn by any pass.
// A batch must be initialized before it is bound, and bound before it is drawn.
type Batch interface {
	// Label returns the batch's debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Positions returns a copy of the object-space xyz positions.
	//
	// Returns:
	//   - []float32: packed positions
	Positions() []float32

	// Indices returns a copy of the triangle list indices.
	//
	// Returns:
	//   - []uint32: triangle list indices
	Indices() []uint32

	// Model returns the object-to-world transform.
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	Model() mgl32.Mat4

	// Bounds returns a world-space bounding sphere.
	//
	// Returns:
	//   - mgl32.Vec3: sphere center
	//   - float32: sphere radius
	Bounds() (mgl32.Vec3, float32)

	// Initialized reports whether the batch currently owns device buffers.
	//
	// Returns:
	//   - bool: true between Initialize and Uninitialize
	Initialized() bool

	// Initialize uploads the mesh with positions bound to the given attribute slot.
	//
	// Parameters:
	//   - u: the device uploader
	//   - positionSlot: vertex attribute location for positions
	//
	// Returns:
	//   - error: a *common.UsageError if already initialized, or the upload error
	Initialize(u Uploader, positionSlot uint32) error

	// Uninitialize releases the device buffers. Calling it on an uninitialized batch is a no-op.
	//
	// Returns:
	//   - error: the release error, if any
	Uninitialize() error

	// Bind marks the batch as the current draw source.
	//
	// Returns:
	//   - error: a *common.UsageError if the batch is not initialized
	Bind() error

	// Draw records one indexed draw.
	//
	// Parameters:
	//   - d: the drawer of the active pass
	//
	// Returns:
	//   - error: a *common.UsageError if the batch is not bound, or the drawer's error
	Draw(d Drawer) error

	// Unbind clears the bound state.
	Unbind()
}

var _ Batch = &batchImpl{}

// NewBatch creates a batch from mesh data. The bounding sphere is computed from the positions.
//
// Parameters:
//   - options: functional options to configure the batch
//
// Returns:
//   - Batch: the newly created batch
func NewBatch(options ...BatchBuilderOption) Batch {
	b := &batchImpl{
		mu:    &sync.Mutex{},
		label: "batch",
		model: mgl32.Ident4(),
	}
	for _, option := range options {
		option(b)
	}
	b.localCenter, b.localRadius = boundingSphere(b.positions)
	return b
}

func (b *batchImpl) Label() string {
	return b.label
}

func (b *batchImpl) Positions() []float32 {
	return append([]float32(nil), b.positions...)
}

func (b *batchImpl) Indices() []uint32 {
	return append([]uint32(nil), b.indices...)
}

func (b *batchImpl) Model() mgl32.Mat4 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model
}

func (b *batchImpl) Bounds() (mgl32.Vec3, float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	center := mgl32.TransformCoordinate(b.localCenter, b.model)
	var scale float32
	for col := 0; col < 3; col++ {
		scale = max(scale, b.model.Col(col).Vec3().Len())
	}
	return center, b.localRadius * scale
}

func (b *batchImpl) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffers != nil
}

func (b *batchImpl) Initialize(u Uploader, positionSlot uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffers != nil {
		return common.NewUsageError("batch "+b.label, "already initialized")
	}
	if len(b.positions) == 0 || len(b.indices) == 0 {
		return common.NewUsageError("batch "+b.label, "no mesh data")
	}
	buffers, err := u.UploadMesh(b.label, b.positions, b.indices, positionSlot)
	if err != nil {
		return err
	}
	b.buffers = buffers
	b.slot = positionSlot
	common.Logger().Debug("batch initialized",
		zap.String("label", b.label),
		zap.Int("vertices", len(b.positions)/3),
		zap.Int("indices", len(b.indices)),
		zap.Uint32("position_slot", positionSlot),
	)
	return nil
}

func (b *batchImpl) Uninitialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffers == nil {
		return nil
	}
	err := b.buffers.Release()
	b.buffers = nil
	b.bound = false
	return err
}

func (b *batchImpl) Bind() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffers == nil {
		return common.NewUsageError("batch "+b.label, "bind before initialize")
	}
	b.bound = true
	return nil
}

func (b *batchImpl) Draw(d Drawer) error {
	b.mu.Lock()
	buffers, bound, model := b.buffers, b.bound, b.model
	b.mu.Unlock()
	if buffers == nil {
		return common.NewUsageError("batch "+b.label, "draw before initialize")
	}
	if !bound {
		return common.NewUsageError("batch "+b.label, "draw while unbound")
	}
	return d.DrawMesh(buffers, model)
}

func (b *batchImpl) Unbind() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound = false
}

// boundingSphere returns the center of the axis-aligned bounds and the distance to the farthest vertex.
func boundingSphere(positions []float32) (mgl32.Vec3, float32) {
	if len(positions) < 3 {
		return mgl32.Vec3{}, 0
	}
	lo := mgl32.Vec3{positions[0], positions[1], positions[2]}
	hi := lo
	for i := 3; i+2 < len(positions); i += 3 {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], positions[i+k])
			hi[k] = max(hi[k], positions[i+k])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var radius float32
	for i := 0; i+2 < len(positions); i += 3 {
		radius = max(radius, mgl32.Vec3{positions[i], positions[i+1], positions[i+2]}.Sub(center).Len())
	}
	return center, radius
}
