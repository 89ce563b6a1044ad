package shader

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct member: optional attributes, name, colon, type
	fieldRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	// entryPointRegex captures the stage attribute and function name of every entry point
	entryPointRegex = regexp.MustCompile(`@(vertex|fragment|compute)\b[^{;]*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name and type
	// from declarations like: @group(0) @binding(0) var<uniform> mvp: MVPUniform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

var entryStageNames = map[string]ShaderType{
	"vertex":   ShaderTypeVertex,
	"fragment": ShaderTypeFragment,
	"compute":  ShaderTypeCompute,
}

// parseEntryPoints returns the entry point function names per stage in source order.
//
// Parameters:
//   - source: WGSL source, comments are stripped first
//
// Returns:
//   - map[ShaderType][]string: entry point names keyed by stage
func parseEntryPoints(source string) map[ShaderType][]string {
	result := make(map[ShaderType][]string)
	for _, m := range entryPointRegex.FindAllStringSubmatch(stripComments(source), -1) {
		stage := entryStageNames[m[1]]
		result[stage] = append(result[stage], m[2])
	}
	return result
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions from WGSL source.
// Omitted dimensions default to 1, and [1, 1, 1] is returned when there is no attribute.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(stripComments(source))
	if match == nil {
		return result
	}
	for i := range 3 {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseBindingDecls returns every resource declaration in source order.
func parseBindingDecls(source string) []bindingDecl {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	decls := make([]bindingDecl, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		decls = append(decls, bindingDecl{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(m[3]),
			name:         m[4],
			typeName:     strings.TrimSpace(m[5]),
		})
	}
	return decls
}

// parseBindGroupLayouts reflects the @group/@binding declarations of source into layout
// descriptors keyed by group index, entries sorted by binding. Uniform and storage buffer entries
// get a MinBindingSize when the bound type's size can be computed.
//
// Parameters:
//   - source: the expanded WGSL source
//   - visibility: the stage flags applied to every entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	cleaned := stripComments(source)
	sizes := computeStructSizes(parseStructBlocks(cleaned))

	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, d := range parseBindingDecls(cleaned) {
		entry := classifyResource(uint32(d.binding), visibility, d.addressSpace, d.typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(d.typeName, sizes); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[d.group] = append(groups[d.group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		slices.SortFunc(entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return int(a.Binding) - int(b.Binding)
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result
}

// parseStructBlocks finds all struct declarations in comment-free WGSL source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		var fields []parsedField
		for _, member := range splitAtTopLevelCommas(m[2]) {
			member = strings.TrimSpace(member)
			fm := fieldRegex.FindStringSubmatch(member)
			if fm == nil {
				continue
			}
			fields = append(fields, parsedField{
				name:      fm[1],
				typeName:  strings.TrimSpace(fm[2]),
				isBuiltin: builtinRegex.MatchString(member),
			})
		}
		structs = append(structs, parsedStruct{name: m[1], fields: fields})
	}
	return structs
}

// StructSize returns the host-shareable byte size of a struct declared in WGSL source.
//
// Parameters:
//   - source: the WGSL source declaring the struct
//   - name: the struct name
//
// Returns:
//   - uint64: the struct size including trailing padding
//   - bool: false if the struct is not declared or contains unknown types
func StructSize(source, name string) (uint64, bool) {
	sizes := computeStructSizes(parseStructBlocks(stripComments(source)))
	layout, ok := sizes[name]
	return layout.size, ok
}
