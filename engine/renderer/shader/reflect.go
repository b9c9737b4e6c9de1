package shader

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga/ir"
)

// reflectEntryPoint returns the single entry point of the requested stage.
func reflectEntryPoint(module *ir.Module, shaderType ShaderType) (*ir.EntryPoint, error) {
	want := ir.StageVertex
	if shaderType == ShaderTypeFragment {
		want = ir.StageFragment
	}
	var found *ir.EntryPoint
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		if ep.Stage != want {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("multiple %s entry points: %s and %s", shaderType, found.Name, ep.Name)
		}
		found = ep
	}
	if found == nil {
		return nil, fmt.Errorf("no %s entry point", shaderType)
	}
	return found, nil
}

// reflectVertexInputs collects @location arguments of the entry point, looking through struct-typed arguments.
func reflectVertexInputs(module *ir.Module, ep *ir.EntryPoint) []VertexInput {
	fn := &ep.Function
	var inputs []VertexInput
	for _, arg := range fn.Arguments {
		if loc, ok := location(arg.Binding); ok {
			inputs = append(inputs, VertexInput{
				Name:       arg.Name,
				Location:   loc,
				Components: components(module, arg.Type),
			})
			continue
		}
		st, ok := module.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			continue
		}
		for _, m := range st.Members {
			if loc, ok := location(m.Binding); ok {
				inputs = append(inputs, VertexInput{
					Name:       m.Name,
					Location:   loc,
					Components: components(module, m.Type),
				})
			}
		}
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Location < inputs[j].Location })
	return inputs
}

// reflectBindings collects every module-scope variable with a @group/@binding attribute.
func reflectBindings(module *ir.Module) []Binding {
	var bindings []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b := Binding{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
		}
		switch inner := module.Types[gv.Type].Inner.(type) {
		case ir.ImageType:
			b.Kind = BindingKindTexture
		case ir.SamplerType:
			b.Kind = BindingKindSampler
		case ir.StructType:
			if gv.Space != ir.SpaceUniform {
				continue
			}
			b.Kind = BindingKindUniform
			b.Size = inner.Span
			for _, m := range inner.Members {
				b.Members = append(b.Members, UniformMember{
					Name:   m.Name,
					Offset: m.Offset,
					Size:   typeSize(module, m.Type),
				})
			}
		default:
			if gv.Space != ir.SpaceUniform {
				continue
			}
			b.Kind = BindingKindUniform
			b.Size = typeSize(module, gv.Type)
			b.Members = []UniformMember{{Name: gv.Name, Size: b.Size}}
		}
		bindings = append(bindings, b)
	}
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

func location(binding *ir.Binding) (uint32, bool) {
	if binding == nil {
		return 0, false
	}
	loc, ok := (*binding).(ir.LocationBinding)
	if !ok {
		return 0, false
	}
	return loc.Location, true
}

func components(module *ir.Module, handle ir.TypeHandle) uint32 {
	switch t := module.Types[handle].Inner.(type) {
	case ir.ScalarType:
		return 1
	case ir.VectorType:
		return uint32(t.Size)
	default:
		return 0
	}
}

// typeSize returns the host-shareable size in bytes of 32-bit scalar, vector, matrix and array types.
// Matrix columns of three rows occupy 16 bytes.
func typeSize(module *ir.Module, handle ir.TypeHandle) uint32 {
	switch t := module.Types[handle].Inner.(type) {
	case ir.ScalarType:
		return 4
	case ir.VectorType:
		return uint32(t.Size) * 4
	case ir.MatrixType:
		rows := uint32(t.Rows)
		if rows == 3 {
			rows = 4
		}
		return uint32(t.Columns) * rows * 4
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return t.Stride
		}
		return t.Stride * *t.Size.Constant
	case ir.StructType:
		return t.Span
	default:
		return 0
	}
}
