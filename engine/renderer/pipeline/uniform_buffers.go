package pipeline

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// BindingKey identifies a @group/@binding pair.
type BindingKey struct {
	Group   uint32
	Binding uint32
}

// UniformBuffers holds the CPU copy of every uniform buffer of one pipeline, laid out with the
// reflected member offsets. Backends upload Bytes for each key; the software backend reads the
// values back through the Uniforms interface.
type UniformBuffers struct {
	mu      *sync.Mutex
	program string
	data    map[BindingKey][]byte
	dirty   map[BindingKey]bool
}

var _ Uniforms = &UniformBuffers{}

// NewUniformBuffers allocates zeroed buffers for every uniform binding of p.
//
// Parameters:
//   - p: the pipeline whose uniform bindings are mirrored
//
// Returns:
//   - *UniformBuffers: the zeroed buffers
func NewUniformBuffers(p Pipeline) *UniformBuffers {
	u := &UniformBuffers{
		mu:      &sync.Mutex{},
		program: p.Key(),
		data:    make(map[BindingKey][]byte),
		dirty:   make(map[BindingKey]bool),
	}
	for _, b := range p.Bindings() {
		if b.Kind == shader.BindingKindUniform {
			u.data[BindingKey{b.Group, b.Binding}] = make([]byte, b.Size)
		}
	}
	return u
}

// Set copies raw bytes into the member addressed by h.
//
// Parameters:
//   - h: a handle produced by this buffer's pipeline
//   - value: little-endian bytes, at most h.Size() long
//
// Returns:
//   - error: *common.UsageError for a foreign handle or an oversized value
func (u *UniformBuffers) Set(h shader.UniformHandle, value []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if h.Program() != u.program {
		return common.NewUsageError("uniforms "+u.program, "handle %q belongs to program %q", h.Name(), h.Program())
	}
	key := BindingKey{h.Group(), h.Binding()}
	buf, ok := u.data[key]
	if !ok {
		return common.NewUsageError("uniforms "+u.program, "no buffer at group %d binding %d", h.Group(), h.Binding())
	}
	if uint32(len(value)) > h.Size() || h.Offset()+uint32(len(value)) > uint32(len(buf)) {
		return common.NewUsageError("uniforms "+u.program, "%d bytes do not fit %q (%d bytes)", len(value), h.Name(), h.Size())
	}
	copy(buf[h.Offset():], value)
	u.dirty[key] = true
	return nil
}

// SetFloat32s writes float32 values starting at the member addressed by h.
func (u *UniformBuffers) SetFloat32s(h shader.UniformHandle, values ...float32) error {
	return u.Set(h, common.SliceToBytes(values))
}

// SetUint32 writes a single u32 member.
func (u *UniformBuffers) SetUint32(h shader.UniformHandle, value uint32) error {
	return u.Set(h, binary.LittleEndian.AppendUint32(nil, value))
}

// Keys returns the binding keys of all buffers.
func (u *UniformBuffers) Keys() []BindingKey {
	u.mu.Lock()
	defer u.mu.Unlock()
	keys := make([]BindingKey, 0, len(u.data))
	for k := range u.data {
		keys = append(keys, k)
	}
	return keys
}

// Bytes returns a copy of the buffer at key.
//
// Parameters:
//   - key: the binding key
//
// Returns:
//   - []byte: the buffer contents, nil if there is no such buffer
func (u *UniformBuffers) Bytes(key BindingKey) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	buf, ok := u.data[key]
	if !ok {
		return nil
	}
	return append([]byte(nil), buf...)
}

// TakeDirty returns the keys written since the last call and clears the set.
func (u *UniformBuffers) TakeDirty() []BindingKey {
	u.mu.Lock()
	defer u.mu.Unlock()
	keys := make([]BindingKey, 0, len(u.dirty))
	for k := range u.dirty {
		keys = append(keys, k)
	}
	clear(u.dirty)
	return keys
}

func (u *UniformBuffers) Float32(h shader.UniformHandle) float32 {
	if v := u.Float32s(h); len(v) > 0 {
		return v[0]
	}
	return 0
}

func (u *UniformBuffers) Float32s(h shader.UniformHandle) []float32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return decodeFloat32s(u.data, h)
}

func (u *UniformBuffers) Uint32(h shader.UniformHandle) uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return decodeUint32(u.data, h)
}

func (u *UniformBuffers) Mat4(h shader.UniformHandle) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], u.Float32s(h))
	return m
}

// Freeze returns a copy of the current values that can be read concurrently without locking.
//
// Returns:
//   - Uniforms: the frozen values
func (u *UniformBuffers) Freeze() Uniforms {
	u.mu.Lock()
	defer u.mu.Unlock()
	f := make(frozenUniforms, len(u.data))
	for k, v := range u.data {
		f[k] = append([]byte(nil), v...)
	}
	return f
}

// frozenUniforms is an immutable snapshot of a pipeline's uniform buffers.
type frozenUniforms map[BindingKey][]byte

func (f frozenUniforms) Float32(h shader.UniformHandle) float32 {
	if v := decodeFloat32s(f, h); len(v) > 0 {
		return v[0]
	}
	return 0
}

func (f frozenUniforms) Float32s(h shader.UniformHandle) []float32 {
	return decodeFloat32s(f, h)
}

func (f frozenUniforms) Uint32(h shader.UniformHandle) uint32 {
	return decodeUint32(f, h)
}

func (f frozenUniforms) Mat4(h shader.UniformHandle) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], decodeFloat32s(f, h))
	return m
}

func decodeFloat32s(data map[BindingKey][]byte, h shader.UniformHandle) []float32 {
	buf, ok := data[BindingKey{h.Group(), h.Binding()}]
	if !ok || h.Offset()+h.Size() > uint32(len(buf)) {
		return nil
	}
	raw := buf[h.Offset() : h.Offset()+h.Size()]
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out
}

func decodeUint32(data map[BindingKey][]byte, h shader.UniformHandle) uint32 {
	buf, ok := data[BindingKey{h.Group(), h.Binding()}]
	if !ok || h.Offset()+4 > uint32(len(buf)) {
		return 0
	}
	return binary.LittleEndian.Uint32(buf[h.Offset():])
}
