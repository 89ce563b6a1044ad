package shader

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type in host-shareable memory.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField is a single struct member.
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct is a WGSL struct declaration.
type parsedStruct struct {
	name   string
	fields []parsedField
}

// bindingDecl is one @group(g) @binding(b) var declaration.
type bindingDecl struct {
	group        int
	binding      int
	addressSpace string
	name         string
	typeName     string
}
