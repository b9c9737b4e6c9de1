package shader

import "fmt"

// ShaderType identifies the pipeline stage a shader module provides.
type ShaderType int

const (
	ShaderTypeVertex ShaderType = iota
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// BindingKind is the kind of resource bound at a @group/@binding pair.
type BindingKind int

const (
	BindingKindUniform BindingKind = iota
	BindingKindTexture
	BindingKindSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingKindUniform:
		return "uniform"
	case BindingKindTexture:
		return "texture"
	case BindingKindSampler:
		return "sampler"
	default:
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
}

// UniformMember is one member of a uniform buffer struct.
type UniformMember struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Binding is a reflected module-scope resource.
type Binding struct {
	Name    string
	Group   uint32
	Binding uint32
	Kind    BindingKind

	// Size is the buffer size in bytes for uniforms, zero otherwise.
	Size uint32

	// Members lists the struct members of a uniform buffer. A uniform of non-struct type
	// has a single member named after the variable at offset 0.
	Members []UniformMember
}

// VertexInput is a reflected vertex attribute.
type VertexInput struct {
	Name       string
	Location   uint32
	Components uint32
}
