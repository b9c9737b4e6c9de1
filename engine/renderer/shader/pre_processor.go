// pre_processor.go implements the WGSL include pre-processor. Shader sources may contain
// lines of the form
//
//	//@vsm:include <name>
//
// which are replaced by the WGSL text registered under <name>. Vertex and fragment stages of
// one program share their uniform struct and stage interface this way, so the two stages can
// never disagree on member offsets.
package shader

import (
	"fmt"
	"strings"
)

// includePrefix marks an include directive. It must start the (trimmed) line.
const includePrefix = "//@vsm:include"

type preProcessor struct {
	includes map[string]string
}

// PreProcessor expands include directives in WGSL source.
type PreProcessor interface {
	// Register adds or replaces the WGSL text for an include name.
	//
	// Parameters:
	//   - name: the include name used after the directive
	//   - source: the WGSL text to inject
	Register(name, source string)

	// Process expands every include directive. Includes are not expanded recursively.
	//
	// Parameters:
	//   - source: WGSL source with include directives
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the line of a malformed or unknown include
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with an optional initial set of includes.
//
// Parameters:
//   - includes: include name to WGSL text, may be nil
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(includes map[string]string) PreProcessor {
	p := &preProcessor{includes: make(map[string]string, len(includes))}
	for name, src := range includes {
		p.includes[name] = src
	}
	return p
}

func (p *preProcessor) Register(name, source string) {
	p.includes[name] = source
}

func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), includePrefix)
		if !ok {
			out = append(out, line)
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) != 1 {
			return "", fmt.Errorf("line %d: include expects exactly one name, got %q", i+1, rest)
		}
		src, ok := p.includes[fields[0]]
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, fields[0])
		}
		out = append(out, src)
	}
	return strings.Join(out, "\n"), nil
}
