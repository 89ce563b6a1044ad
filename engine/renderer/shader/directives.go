package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// directivePrefix marks a preprocessor line. WGSL has no use for '#' so any line starting with
// it is a directive.
const directivePrefix = "#"

// directiveType identifies a preprocessor directive.
type directiveType string

const (
	// directiveInclude splices another registered source: #include "name"
	directiveInclude directiveType = "include"

	// directiveIfdef keeps the block when the define is set: #ifdef NAME
	directiveIfdef directiveType = "ifdef"

	// directiveIfndef keeps the block when the define is not set: #ifndef NAME
	directiveIfndef directiveType = "ifndef"

	directiveElse  directiveType = "else"
	directiveEndif directiveType = "endif"
)

// directive is a single parsed preprocessor line.
type directive struct {
	Type directiveType

	// Arg is the include name or the define name, empty for #else and #endif.
	Arg string

	Line int
}

// parseDirective parses one source line. Lines that are not directives return nil without error.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number used in error messages
//
// Returns:
//   - *directive: the parsed directive, or nil if the line is ordinary WGSL
//   - error: an error if the line is a malformed or unknown directive
func parseDirective(line string, lineNum int) (*directive, error) {
	trimmed := strings.TrimSpace(line)
	after, ok := strings.CutPrefix(trimmed, directivePrefix)
	if !ok {
		return nil, nil
	}
	// trailing line comments are allowed on directive lines
	if idx := strings.Index(after, "//"); idx >= 0 {
		after = after[:idx]
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty directive")
	}

	switch directiveType(args[0]) {
	case directiveInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("#include requires exactly one quoted name")
		}
		name, err := strconv.Unquote(args[1])
		if err != nil || name == "" {
			return nil, fmt.Errorf("#include name %s must be a non-empty quoted string", args[1])
		}
		return &directive{Type: directiveInclude, Arg: name, Line: lineNum}, nil
	case directiveIfdef, directiveIfndef:
		if len(args) != 2 {
			return nil, fmt.Errorf("#%s requires exactly one define name", args[0])
		}
		return &directive{Type: directiveType(args[0]), Arg: args[1], Line: lineNum}, nil
	case directiveElse, directiveEndif:
		if len(args) != 1 {
			return nil, fmt.Errorf("#%s takes no arguments", args[0])
		}
		return &directive{Type: directiveType(args[0]), Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("unknown directive #%s", args[0])
	}
}

// includeNames returns the names of every #include in code, in order, ignoring malformed lines.
func includeNames(code string) []string {
	var names []string
	for i, line := range strings.Split(code, "\n") {
		if d, err := parseDirective(line, i+1); err == nil && d != nil && d.Type == directiveInclude {
			names = append(names, d.Arg)
		}
	}
	return names
}
