package renderer

import (
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/geometry"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/target"
	"go.uber.org/zap"
)

const (
	// DefaultSoftwareMaxDimension is the largest target side the software device accepts.
	DefaultSoftwareMaxDimension = 8192

	// softwareQueueSize is the worker pool's task queue length.
	softwareQueueSize = 256
)

type softwareRendererBackendImpl struct {
	mu *sync.Mutex

	workers      int
	maxDimension uint32
	pool         worker.DynamicWorkerPool

	presented uint64
	released  bool
}

var _ RendererBackend = &softwareRendererBackendImpl{}

// newSoftwareRendererBackend creates the CPU backend. Draws are split into row bands that run on
// a pool of workers; zero arguments select one worker per CPU and DefaultSoftwareMaxDimension.
func newSoftwareRendererBackend(workers int, maxDimension uint32) RendererBackend {
	b := &softwareRendererBackendImpl{
		mu:           &sync.Mutex{},
		workers:      common.Coalesce(workers, runtime.NumCPU()),
		maxDimension: common.Coalesce(maxDimension, DefaultSoftwareMaxDimension),
	}
	b.pool = worker.NewDynamicWorkerPool(b.workers, softwareQueueSize, 1*time.Second)
	return b
}

func (b *softwareRendererBackendImpl) Capabilities() Capabilities {
	return Capabilities{
		FloatRenderTargets:  true,
		Derivatives:         true,
		MaxTextureDimension: b.maxDimension,
		ScreenFormat:        target.ColorFormatRGBA8Unorm,
	}
}

func (b *softwareRendererBackendImpl) AllocateStorage(label string, desc target.Descriptor) (target.Storage, error) {
	if desc.Color.Channels() == 0 {
		return nil, common.NewResourceCreationError("allocate "+label, "unsupported color format %v", desc.Color)
	}
	if desc.Depth != target.DepthFormatNone && desc.Depth != target.DepthFormatDepth16Unorm {
		return nil, common.NewResourceCreationError("allocate "+label, "unsupported depth format %v", desc.Depth)
	}
	s := &softwareStorage{
		mu:           &sync.Mutex{},
		label:        label,
		format:       desc.Color,
		channels:     desc.Color.Channels(),
		depthFormat:  desc.Depth,
		maxDimension: b.maxDimension,
	}
	if err := s.Resize(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *softwareRendererBackendImpl) AllocateScreen(desc target.Descriptor) (target.Storage, error) {
	return b.AllocateStorage("screen", desc)
}

func (b *softwareRendererBackendImpl) UploadMesh(label string, positions []float32, indices []uint32, positionSlot uint32) (geometry.MeshBuffers, error) {
	if len(positions)%3 != 0 {
		return nil, common.NewResourceCreationError("upload "+label, "%d floats is not a whole number of positions", len(positions))
	}
	vertexCount := uint32(len(positions) / 3)
	for _, i := range indices {
		if i >= vertexCount {
			return nil, common.NewResourceCreationError("upload "+label, "index %d out of range for %d vertices", i, vertexCount)
		}
	}
	return &softwareMesh{
		mu:        &sync.Mutex{},
		label:     label,
		positions: append([]float32(nil), positions...),
		indices:   append([]uint32(nil), indices...),
		slot:      positionSlot,
	}, nil
}

func (b *softwareRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	sw := p.Software()
	if sw == nil || sw.Vertex == nil || sw.Fragment == nil {
		return common.NewInitializationError("register "+p.Key(), "the software backend needs software vertex and fragment stages")
	}
	if sw.Varyings < 0 {
		return common.NewInitializationError("register "+p.Key(), "negative varying count %d", sw.Varyings)
	}
	p.SetPipeline(sw)
	return nil
}

func (b *softwareRendererBackendImpl) UnregisterRenderPipeline(p pipeline.Pipeline) error {
	p.SetPipeline(nil)
	return nil
}

func (b *softwareRendererBackendImpl) BeginPass(t target.RenderTarget, p pipeline.Pipeline) (passEncoder, error) {
	storage, ok := t.Storage().(*softwareStorage)
	if !ok {
		return nil, common.NewUsageError("begin pass "+p.Key(), "target %s was not allocated by the software backend", t.Label())
	}
	sw, ok := p.Pipeline().(*pipeline.SoftwareShader)
	if !ok {
		return nil, common.NewUsageError("begin pass "+p.Key(), "pipeline was not registered with the software backend")
	}
	return &softwarePassEncoder{
		backend:  b,
		pipeline: p,
		shader:   sw,
		target:   storage,
	}, nil
}

func (b *softwareRendererBackendImpl) Snapshot(screen target.Storage) (*image.NRGBA, error) {
	s, ok := screen.(*softwareStorage)
	if !ok {
		return nil, common.NewUsageError("snapshot", "screen was not allocated by the software backend")
	}
	return s.image()
}

func (b *softwareRendererBackendImpl) ReadTexels(storage target.Storage) ([][4]float32, error) {
	s, ok := storage.(*softwareStorage)
	if !ok {
		return nil, common.NewUsageError("read texels", "storage was not allocated by the software backend")
	}
	return s.texels()
}

func (b *softwareRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presented++
	return nil
}

func (b *softwareRendererBackendImpl) SetPresentMode(PresentMode) {}

func (b *softwareRendererBackendImpl) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	b.released = true
	b.pool.Stop()
	common.Logger().Debug("software device released", zap.Uint64("frames_presented", b.presented))
	return nil
}

// run executes fn for each row band of [0, height) on the worker pool and waits for all of them.
// Bands are disjoint, so fn may write its rows without synchronization.
func (b *softwareRendererBackendImpl) run(height int, fn func(y0, y1 int)) {
	bands := min(b.workers*2, height)
	if bands <= 1 {
		fn(0, height)
		return
	}
	rows := (height + bands - 1) / bands

	// A WaitGroup provides the per-draw barrier; pool.Wait() waits for the whole pool to idle.
	var wg sync.WaitGroup
	for i := 0; i*rows < height; i++ {
		y0, y1 := i*rows, min((i+1)*rows, height)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// softwareMesh is a host copy of an uploaded triangle list.
type softwareMesh struct {
	mu        *sync.Mutex
	label     string
	positions []float32
	indices   []uint32
	slot      uint32
	released  bool
}

var _ geometry.MeshBuffers = &softwareMesh{}

func (m *softwareMesh) IndexCount() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(len(m.indices))
}

func (m *softwareMesh) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	m.positions, m.indices = nil, nil
	return nil
}

// softwareStorage holds a target's attachments as float32 texels.
// RG16Float texels are rounded to half precision and RGBA8 texels to 8 bits when written.
type softwareStorage struct {
	mu *sync.Mutex

	label        string
	width        int
	height       int
	format       target.ColorFormat
	channels     int
	depthFormat  target.DepthFormat
	maxDimension uint32

	color []float32
	depth []float32

	released bool
}

var _ target.Storage = &softwareStorage{}

func (s *softwareStorage) Resize(width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return common.NewUsageError("resize "+s.label, "storage was released")
	}
	if width == 0 || height == 0 || width > s.maxDimension || height > s.maxDimension {
		return common.NewResourceCreationError("resize "+s.label, "size %dx%d outside [1, %d]", width, height, s.maxDimension)
	}
	s.width, s.height = int(width), int(height)
	s.color = make([]float32, s.width*s.height*s.channels)
	if s.depthFormat != target.DepthFormatNone {
		s.depth = make([]float32, s.width*s.height)
	}
	return nil
}

func (s *softwareStorage) Clear(mask target.ClearMask, color common.Color, depth float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mask&target.ClearColor != 0 {
		texel := [4]float32{color.R, color.G, color.B, color.A}
		for i := 0; i < s.channels; i++ {
			texel[i] = s.quantize(texel[i])
		}
		for i := 0; i < len(s.color); i += s.channels {
			copy(s.color[i:i+s.channels], texel[:s.channels])
		}
	}
	if mask&target.ClearDepth != 0 && s.depth != nil {
		d := quantizeDepth16(depth)
		for i := range s.depth {
			s.depth[i] = d
		}
	}
}

func (s *softwareStorage) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.color, s.depth = nil, nil
	return nil
}

// texel returns the stored channels at (x, y) with missing channels 0 and missing alpha 1.
func (s *softwareStorage) texel(x, y int) [4]float32 {
	out := [4]float32{0, 0, 0, 1}
	i := (y*s.width + x) * s.channels
	copy(out[:s.channels], s.color[i:i+s.channels])
	return out
}

// write stores a fragment color at (x, y), keeping the channels of the format.
func (s *softwareStorage) write(x, y int, c [4]float32) {
	i := (y*s.width + x) * s.channels
	for ch := 0; ch < s.channels; ch++ {
		s.color[i+ch] = s.quantize(c[ch])
	}
}

func (s *softwareStorage) quantize(v float32) float32 {
	switch s.format {
	case target.ColorFormatRG16Float:
		return roundHalf(v)
	case target.ColorFormatRGBA8Unorm, target.ColorFormatBGRA8Unorm:
		return float32(int(common.Saturate(v)*255+0.5)) / 255
	default:
		return v
	}
}

// texels copies the color attachment out, row 0 at the top.
func (s *softwareStorage) texels() ([][4]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, common.NewUsageError("read texels "+s.label, "storage was released")
	}
	out := make([][4]float32, 0, s.width*s.height)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			out = append(out, s.texel(x, y))
		}
	}
	return out, nil
}

// image converts the color attachment to 8-bit NRGBA, row 0 at the top.
func (s *softwareStorage) image() (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, common.NewUsageError("snapshot "+s.label, "storage was released")
	}
	img := image.NewNRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			t := s.texel(x, y)
			q := common.Color{R: t[0], G: t[1], B: t[2], A: t[3]}.RGBA8()
			copy(img.Pix[img.PixOffset(x, y):], q[:])
		}
	}
	return img, nil
}
