package shader

type shaderBuilder struct {
	pp PreProcessor
}

// ShaderBuilderOption is a functional option for NewShader.
type ShaderBuilderOption func(*shaderBuilder)

// WithPreProcessor expands include directives with pp before the source is parsed.
//
// Parameters:
//   - pp: the pre-processor holding the registered includes
//
// Returns:
//   - ShaderBuilderOption: a function that sets the pre-processor
func WithPreProcessor(pp PreProcessor) ShaderBuilderOption {
	return func(b *shaderBuilder) {
		b.pp = pp
	}
}
