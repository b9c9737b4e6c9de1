package shader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"go.uber.org/zap"
)

// shader is the implementation of the Shader interface.
// All reflection data is computed once in NewShader and never changes.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string
	inputs     []VertexInput
	bindings   []Binding
	module     *ir.Module
}

// Shader is a parsed, lowered and validated WGSL module for one pipeline stage together with the
// reflection data a program host needs: the entry point, the vertex inputs and every bound
// resource with uniform member offsets.
type Shader interface {
	// Key returns the unique identifier of the shader.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source that was validated
	Source() string

	// ShaderType returns the stage this shader provides.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the name of the stage's entry point function.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// VertexInputs returns the @location inputs of a vertex entry point, sorted by location.
	// Fragment shaders return nil.
	//
	// Returns:
	//   - []VertexInput: the reflected inputs
	VertexInputs() []VertexInput

	// Bindings returns every @group/@binding resource, sorted by group then binding.
	//
	// Returns:
	//   - []Binding: the reflected resources
	Bindings() []Binding

	// Binding looks up a resource by variable name.
	//
	// Parameters:
	//   - name: the WGSL variable name
	//
	// Returns:
	//   - Binding: the resource
	//   - bool: false if no resource has that name
	Binding(name string) (Binding, bool)

	// Module returns the naga IR module.
	//
	// Returns:
	//   - *ir.Module: the lowered module
	Module() *ir.Module
}

var _ Shader = &shader{}

// NewShader parses, lowers and validates WGSL source with naga, then reflects it.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the source must provide an entry point for
//   - source: the WGSL source, before include expansion
//   - options: functional options to configure the shader
//
// Returns:
//   - Shader: the validated shader
//   - error: a *common.InitializationError describing the first failing stage
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	b := &shaderBuilder{}
	for _, option := range options {
		option(b)
	}
	op := "shader " + key

	if b.pp != nil {
		expanded, err := b.pp.Process(source)
		if err != nil {
			return nil, &common.InitializationError{Op: op, Err: fmt.Errorf("pre-process: %w", err)}
		}
		source = expanded
	}
	if source == "" {
		return nil, common.NewInitializationError(op, "empty source")
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, &common.InitializationError{Op: op, Err: err}
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, &common.InitializationError{Op: op, Err: fmt.Errorf("lower: %w", err)}
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return nil, &common.InitializationError{Op: op, Err: fmt.Errorf("validate: %w", err)}
	}
	if len(problems) > 0 {
		errs := make([]error, 0, len(problems))
		for _, p := range problems {
			errs = append(errs, p)
		}
		return nil, &common.InitializationError{Op: op, Err: fmt.Errorf("validate: %w", errors.Join(errs...))}
	}

	ep, err := reflectEntryPoint(module, shaderType)
	if err != nil {
		return nil, &common.InitializationError{Op: op, Err: err}
	}

	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: ep.Name,
		bindings:   reflectBindings(module),
		module:     module,
	}
	if shaderType == ShaderTypeVertex {
		s.inputs = reflectVertexInputs(module, ep)
	}

	common.Logger().Debug("shader compiled",
		zap.String("key", key),
		zap.Stringer("stage", shaderType),
		zap.String("entry_point", s.entryPoint),
		zap.Int("bindings", len(s.bindings)),
		zap.Int("vertex_inputs", len(s.inputs)),
	)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexInputs() []VertexInput {
	return append([]VertexInput(nil), s.inputs...)
}

func (s *shader) Bindings() []Binding {
	return append([]Binding(nil), s.bindings...)
}

func (s *shader) Binding(name string) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

func (s *shader) Module() *ir.Module {
	return s.module
}
