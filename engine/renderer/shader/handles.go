package shader

import (
	"github.com/Carmen-Shannon/oxy-vsm/common"
)

// UniformHandle locates one uniform value inside a program's uniform buffers.
// Handles are immutable and carry the key of the program that produced them.
type UniformHandle struct {
	program string
	name    string
	group   uint32
	binding uint32
	offset  uint32
	size    uint32
}

func (h UniformHandle) Program() string { return h.program }
func (h UniformHandle) Name() string    { return h.name }
func (h UniformHandle) Group() uint32   { return h.group }
func (h UniformHandle) Binding() uint32 { return h.binding }
func (h UniformHandle) Offset() uint32  { return h.offset }
func (h UniformHandle) Size() uint32    { return h.size }

// Valid reports whether the handle was produced by a lookup.
func (h UniformHandle) Valid() bool { return h.program != "" }

// TextureHandle locates a sampled texture and its companion sampler.
type TextureHandle struct {
	program        string
	name           string
	group          uint32
	binding        uint32
	samplerBinding uint32
	hasSampler     bool
}

func (h TextureHandle) Program() string { return h.program }
func (h TextureHandle) Name() string    { return h.name }
func (h TextureHandle) Group() uint32   { return h.group }
func (h TextureHandle) Binding() uint32 { return h.binding }

// SamplerBinding returns the binding of the sampler in the texture's group.
//
// Returns:
//   - uint32: the sampler binding
//   - bool: false if the group declares no sampler
func (h TextureHandle) SamplerBinding() (uint32, bool) { return h.samplerBinding, h.hasSampler }

// Valid reports whether the handle was produced by a lookup.
func (h TextureHandle) Valid() bool { return h.program != "" }

// AttributeHandle locates a vertex attribute.
type AttributeHandle struct {
	program    string
	name       string
	location   uint32
	components uint32
}

func (h AttributeHandle) Program() string    { return h.program }
func (h AttributeHandle) Name() string       { return h.name }
func (h AttributeHandle) Location() uint32   { return h.location }
func (h AttributeHandle) Components() uint32 { return h.components }

// Valid reports whether the handle was produced by a lookup.
func (h AttributeHandle) Valid() bool { return h.program != "" }

// FindUniform resolves a uniform by name across the stages of a program. The name matches a
// member of a uniform struct or a uniform variable of non-struct type.
//
// Parameters:
//   - program: the key of the owning program
//   - name: the member or variable name
//   - stages: the program's shaders
//
// Returns:
//   - UniformHandle: the resolved handle
//   - error: a *common.UsageError if no stage declares the name
func FindUniform(program, name string, stages ...Shader) (UniformHandle, error) {
	for _, s := range stages {
		for _, b := range s.Bindings() {
			if b.Kind != BindingKindUniform {
				continue
			}
			for _, m := range b.Members {
				if m.Name != name {
					continue
				}
				return UniformHandle{
					program: program,
					name:    name,
					group:   b.Group,
					binding: b.Binding,
					offset:  m.Offset,
					size:    m.Size,
				}, nil
			}
		}
	}
	return UniformHandle{}, common.NewUsageError("program "+program, "no uniform named %q", name)
}

// FindTexture resolves a sampled texture by variable name. The sampler is the first sampler
// declared in the same group.
//
// Parameters:
//   - program: the key of the owning program
//   - name: the texture variable name
//   - stages: the program's shaders
//
// Returns:
//   - TextureHandle: the resolved handle
//   - error: a *common.UsageError if no stage declares the texture
func FindTexture(program, name string, stages ...Shader) (TextureHandle, error) {
	for _, s := range stages {
		b, ok := s.Binding(name)
		if !ok || b.Kind != BindingKindTexture {
			continue
		}
		h := TextureHandle{program: program, name: name, group: b.Group, binding: b.Binding}
		for _, other := range s.Bindings() {
			if other.Kind == BindingKindSampler && other.Group == b.Group {
				h.samplerBinding, h.hasSampler = other.Binding, true
				break
			}
		}
		return h, nil
	}
	return TextureHandle{}, common.NewUsageError("program "+program, "no texture named %q", name)
}

// FindAttribute resolves a vertex input by name and checks it sits at the expected location.
//
// Parameters:
//   - program: the key of the owning program
//   - name: the vertex input name
//   - location: the location the caller binds the attribute to
//   - vertex: the program's vertex shader
//
// Returns:
//   - AttributeHandle: the resolved handle
//   - error: a *common.UsageError if the input is missing or declared at another location
func FindAttribute(program, name string, location uint32, vertex Shader) (AttributeHandle, error) {
	for _, in := range vertex.VertexInputs() {
		if in.Name != name {
			continue
		}
		if in.Location != location {
			return AttributeHandle{}, common.NewUsageError("program "+program,
				"attribute %q is at location %d, not %d", name, in.Location, location)
		}
		return AttributeHandle{program: program, name: name, location: location, components: in.Components}, nil
	}
	return AttributeHandle{}, common.NewUsageError("program "+program, "no vertex input named %q", name)
}
