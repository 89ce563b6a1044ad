package shader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownShader is returned when a shader ID is not registered.
	ErrUnknownShader = errors.New("shader: unknown shader")

	// ErrMissingInclude is returned when an #include names an include that is not registered.
	ErrMissingInclude = errors.New("shader: missing include")
)

// Diagnostic is a single validation message. Line is 1-based in the expanded source, 0 when the
// message has no location.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line <= 0 {
		return d.Message
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// CompileErrorSet lists every validation error found while compiling one shader variant.
type CompileErrorSet struct {
	ShaderID string
	Defines  []string
	Errors   []Diagnostic
	Warnings []Diagnostic
}

func (e *CompileErrorSet) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "shader %q: %d compile error(s)", e.ShaderID, len(e.Errors))
	for _, d := range e.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(d.String())
	}
	return sb.String()
}
