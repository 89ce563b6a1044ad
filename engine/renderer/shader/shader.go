package shader

import (
	"slices"
	"time"

	"github.com/Carmen-Shannon/oxy-pipes/common"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies a shader stage.
type ShaderType int

const (
	// ShaderTypeCompute indicates a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment stage of a render pipeline.
	ShaderTypeFragment
)

var shaderTypeNames = [...]string{"compute", "vertex", "fragment"}

func (t ShaderType) String() string {
	if t < 0 || int(t) >= len(shaderTypeNames) {
		return "unknown"
	}
	return shaderTypeNames[t]
}

// Visibility returns the wgpu stage flag for the shader type.
func (t ShaderType) Visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	default:
		return wgpu.ShaderStageNone
	}
}

// Source is one registered shader: raw WGSL text plus what it declares about itself.
type Source struct {
	// ID is the logical shader identifier used in pipeline keys, e.g. "standard".
	ID string

	// Code is the raw WGSL text before preprocessing.
	Code string

	// Path is the manifest-relative file the code was read from, empty for inline sources.
	Path string

	// Family selects the bind group assignment pipelines built from this shader use.
	Family common.ShaderFamily

	// Stages lists the stages the shader must provide entry points for. Defaults to vertex and
	// fragment when empty.
	Stages []ShaderType

	// EntryPoints optionally pins entry point names per stage. Missing stages are discovered
	// from the @vertex/@fragment/@compute attributes.
	EntryPoints map[ShaderType]string

	// Includes, Uniforms and Textures are declared names. Includes must be registered.
	Includes []string
	Uniforms []string
	Textures []string

	// Defines are the feature defines the shader understands, e.g. USE_LIGHTING.
	Defines []string

	// Variants are define sets compiled ahead of time by Warmup.
	Variants [][]string
}

// StageList returns Stages, or vertex and fragment when none are declared.
func (s Source) StageList() []ShaderType {
	if len(s.Stages) == 0 {
		return []ShaderType{ShaderTypeVertex, ShaderTypeFragment}
	}
	return s.Stages
}

// HasStage reports whether the shader declares the stage.
func (s Source) HasStage(t ShaderType) bool {
	return slices.Contains(s.StageList(), t)
}

// Declares reports whether name is one of the shader's declared feature defines.
func (s Source) Declares(name string) bool {
	return slices.Contains(s.Defines, name)
}

// Metadata describes one compilation.
type Metadata struct {
	Duration time.Duration

	// Defines is the canonical define list the variant was compiled with.
	Defines []string

	Warnings    []Diagnostic
	EntryPoints map[ShaderType]string

	// BindGroups are the @group/@binding declarations found in the expanded source, keyed by group.
	BindGroups map[int]wgpu.BindGroupLayoutDescriptor

	// WorkgroupSize is set for compute shaders, [1, 1, 1] when unspecified.
	WorkgroupSize [3]uint32
}

// CompiledShader is the artifact of compiling one shader variant: the expanded source and the
// device module built from it.
type CompiledShader struct {
	ID       string
	Source   string
	Module   device.ShaderModuleID
	Metadata Metadata
}

// EntryPoint returns the entry point for a stage, empty if the shader has none.
func (c *CompiledShader) EntryPoint(t ShaderType) string {
	return c.Metadata.EntryPoints[t]
}
