// pre_processor.go implements the WGSL preprocessor. It splices #include directives, expands
// #ifdef/#ifndef/#else/#endif blocks against a define set and replaces override declarations
// named by a define with typed const declarations.
//
// Line numbers are preserved: directive lines and inactive lines are blanked rather than
// removed, so every diagnostic refers to a line of the expanded source.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// IncludeLoader returns the raw text of a named include.
type IncludeLoader func(name string) (string, error)

// Expansion is the result of preprocessing one shader variant.
type Expansion struct {
	// Code is the expanded WGSL source.
	Code string

	// Used holds every define name referenced by a conditional or an override.
	Used map[string]bool

	Errors   []Diagnostic
	Warnings []Diagnostic
}

func (e *Expansion) errorf(line int, format string, args ...any) {
	e.Errors = append(e.Errors, Diagnostic{Line: line, Message: fmt.Sprintf(format, args...)})
}

// PreProcessor expands raw shader sources for a define set.
type PreProcessor interface {
	// Process expands src for the given defines. Validation problems are collected on the
	// returned Expansion; only configuration errors are returned as error.
	//
	// Parameters:
	//   - src: the registered shader source
	//   - defines: the define strings, "NAME" or "NAME=value"
	//
	// Returns:
	//   - *Expansion: the expanded source and its diagnostics
	//   - error: an error wrapping ErrMissingInclude if an include cannot be loaded
	Process(src Source, defines []string) (*Expansion, error)

	// InvalidateInclude drops a cached include so the next Process reloads it.
	//
	// Parameters:
	//   - name: the include name
	InvalidateInclude(name string)

	// CachedIncludes returns the number of includes held in the include cache.
	CachedIncludes() int
}

// preProcessor is the implementation of the PreProcessor interface. The include cache is the
// only state and is safe for concurrent Process calls.
type preProcessor struct {
	load IncludeLoader

	mu       sync.Mutex
	includes map[string]string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that fetches includes through load and caches them.
//
// Parameters:
//   - load: the include loader, typically Registry.Include
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(load IncludeLoader) PreProcessor {
	if load == nil {
		panic("shader: nil include loader")
	}
	return &preProcessor{
		load:     load,
		includes: make(map[string]string),
	}
}

func (p *preProcessor) Process(src Source, defines []string) (*Expansion, error) {
	exp := &Expansion{Used: make(map[string]bool)}

	lines, err := p.flatten(src.Code, []string{src.ID}, make(map[string]bool), exp)
	if err != nil {
		return nil, err
	}

	table := newDefineTable(defines)
	expandConditionals(lines, table, exp)
	substituteOverrides(lines, table, exp)

	exp.Code = strings.Join(lines, "\n")
	return exp, nil
}

func (p *preProcessor) InvalidateInclude(name string) {
	p.mu.Lock()
	delete(p.includes, name)
	p.mu.Unlock()
}

func (p *preProcessor) CachedIncludes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.includes)
}

// include returns the raw text of an include, loading it on first use.
func (p *preProcessor) include(name string) (string, error) {
	p.mu.Lock()
	code, ok := p.includes[name]
	p.mu.Unlock()
	if ok {
		return code, nil
	}

	code, err := p.load(name)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.includes[name] = code
	p.mu.Unlock()
	return code, nil
}

// flatten splices includes recursively. Each include is spliced at most once per expansion;
// an include that reaches itself through stack is reported as a cycle.
func (p *preProcessor) flatten(code string, stack []string, seen map[string]bool, exp *Expansion) ([]string, error) {
	src := strings.Split(code, "\n")
	out := make([]string, 0, len(src))
	for i, line := range src {
		d, err := parseDirective(line, i+1)
		if err != nil || d == nil || d.Type != directiveInclude {
			// malformed directives are reported by the conditional pass
			out = append(out, line)
			continue
		}

		out = append(out, "")
		if slices.Contains(stack, d.Arg) {
			exp.errorf(0, "include cycle: %s -> %s", strings.Join(stack, " -> "), d.Arg)
			continue
		}
		if seen[d.Arg] {
			continue
		}
		seen[d.Arg] = true

		body, err := p.include(d.Arg)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", stack[len(stack)-1], d.Line, err)
		}
		nested, err := p.flatten(body, append(stack[:len(stack):len(stack)], d.Arg), seen, exp)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// conditionalFrame is one open #ifdef/#ifndef block.
type conditionalFrame struct {
	open    directive
	taking  bool
	sawElse bool
}

// expandConditionals blanks directive lines and lines in inactive branches, in place.
func expandConditionals(lines []string, defines defineTable, exp *Expansion) {
	var stack []conditionalFrame
	active := func() bool {
		for _, f := range stack {
			if !f.taking {
				return false
			}
		}
		return true
	}

	for i, line := range lines {
		lineNum := i + 1
		d, err := parseDirective(line, lineNum)
		if err != nil {
			exp.errorf(lineNum, "%v", err)
			lines[i] = ""
			continue
		}
		if d == nil {
			if !active() {
				lines[i] = ""
			}
			continue
		}

		lines[i] = ""
		switch d.Type {
		case directiveIfdef, directiveIfndef:
			exp.Used[d.Arg] = true
			set := defines.has(d.Arg)
			stack = append(stack, conditionalFrame{
				open:   *d,
				taking: set == (d.Type == directiveIfdef),
			})
		case directiveElse:
			if len(stack) == 0 {
				exp.errorf(lineNum, "#else without #ifdef or #ifndef")
				continue
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				exp.errorf(lineNum, "duplicate #else for #%s %s on line %d", top.open.Type, top.open.Arg, top.open.Line)
				continue
			}
			top.sawElse = true
			top.taking = !top.taking
		case directiveEndif:
			if len(stack) == 0 {
				exp.errorf(lineNum, "#endif without #ifdef or #ifndef")
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}

	for _, f := range stack {
		exp.errorf(f.open.Line, "unterminated #%s %s", f.open.Type, f.open.Arg)
	}
}

// overrideRegex captures indent, name, optional type and optional default of an override
// declaration: override NAME: T = default;
var overrideRegex = regexp.MustCompile(`^(\s*)(?:@id\(\s*\d+\s*\)\s*)?override\s+(\w+)\s*(?::\s*([\w<>]+))?\s*(?:=\s*([^;]+?))?\s*;\s*(?://.*)?$`)

// substituteOverrides rewrites overrides named by a define into const declarations, in place.
func substituteOverrides(lines []string, defines defineTable, exp *Expansion) {
	for i, line := range lines {
		m := overrideRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNum := i + 1
		indent, name, typ, def := m[1], m[2], m[3], strings.TrimSpace(m[4])

		value, ok := defines[name]
		if !ok {
			if def == "" {
				exp.errorf(lineNum, "override %s has no default and no define", name)
			}
			continue
		}
		exp.Used[name] = true

		if typ == "" {
			typ = inferLiteralType(def, value)
		}
		k, err := parseKind(typ)
		if err != nil {
			exp.errorf(lineNum, "override %s: %v", name, err)
			continue
		}
		literal, err := k.literal(value)
		if err != nil {
			exp.errorf(lineNum, "define %s for override of type %s: %v", name, typ, err)
			continue
		}
		lines[i] = fmt.Sprintf("%sconst %s: %s = %s;", indent, name, k.typeName(), literal)
	}
}
