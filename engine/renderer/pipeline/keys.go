package pipeline

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-pipes/common"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderPass is the pass class a draw is recorded into.
type RenderPass int

const (
	PassOpaque RenderPass = iota
	PassTransparent
	PassWireframe

	// PassShadow is a depth-only pass rendered from a light.
	PassShadow

	// PassUI is an overlay pass without depth.
	PassUI

	// PassPostProcess is a fullscreen pass without vertex buffers.
	PassPostProcess
)

var renderPassNames = [...]string{"opaque", "transparent", "wireframe", "shadow", "ui", "post_process"}

func (p RenderPass) String() string {
	if p < 0 || int(p) >= len(renderPassNames) {
		return "unknown"
	}
	return renderPassNames[p]
}

// PrimitiveClass is the primitive assembly a draw uses.
type PrimitiveClass int

const (
	PrimitiveTriangle PrimitiveClass = iota
	PrimitiveLine
)

func (p PrimitiveClass) String() string {
	if p == PrimitiveLine {
		return "line"
	}
	return "triangle"
}

// BlendMode is the color blend applied by a pipeline.
type BlendMode int

const (
	BlendNone BlendMode = iota

	// BlendAlpha is SrcAlpha, OneMinusSrcAlpha on both color and alpha.
	BlendAlpha
)

func (b BlendMode) String() string {
	if b == BlendAlpha {
		return "alpha"
	}
	return "none"
}

// SemanticKey describes what to draw in renderer terms. It is the identity of the outer cache
// and is compared structurally.
type SemanticKey struct {
	Pass         RenderPass
	AlphaMode    common.AlphaMode
	DoubleSided  bool
	VertexFormat vertex_layout.Format
	HasTexture   bool
	Primitive    PrimitiveClass

	// CustomShader overrides the shader picked from the vertex format, empty for the default.
	CustomShader string
}

// CacheKey returns a deterministic string form of the key for logs. Free-form fields are quoted.
//
// Returns:
//   - string: the key's string form
func (k SemanticKey) CacheKey() string {
	return fmt.Sprintf("pass=%s|alpha=%s|double_sided=%t|vertex=%s|texture=%t|primitive=%s|shader=%q",
		k.Pass, k.AlphaMode, k.DoubleSided, k.VertexFormat, k.HasTexture, k.Primitive, k.CustomShader)
}

func (k SemanticKey) String() string {
	return k.CacheKey()
}

// GPUKey is the GPU-facing identity of a render pipeline. Distinct semantic keys that need the
// same GPU state share one GPUKey and so one pipeline.
//
// Defines are kept canonical and NUL-joined so the key stays comparable; construct keys with
// NewGPUKey or WithDefines.
type GPUKey struct {
	ShaderID   string
	Blend      BlendMode
	Cull       wgpu.CullMode
	Topology   wgpu.PrimitiveTopology
	DepthWrite bool
	DepthTest  bool

	// DepthOnly pipelines have no fragment stage or color target.
	DepthOnly bool

	VertexMask vertex_layout.AttributeMask

	defines string
}

// NewGPUKey creates a key for shaderID with default opaque triangle state and the given defines.
//
// Parameters:
//   - shaderID: the shader the pipeline is built from
//   - defines: the define strings, canonicalized
//
// Returns:
//   - GPUKey: the key
func NewGPUKey(shaderID string, defines ...string) GPUKey {
	return GPUKey{
		ShaderID:   shaderID,
		Cull:       wgpu.CullModeBack,
		Topology:   wgpu.PrimitiveTopologyTriangleList,
		DepthWrite: true,
		DepthTest:  true,
	}.WithDefines(defines...)
}

// WithDefines returns a copy of k with its define list replaced by the canonical form of defines.
func (k GPUKey) WithDefines(defines ...string) GPUKey {
	k.defines = strings.Join(shader.CanonicalDefines(defines), "\x00")
	return k
}

// Defines returns the canonical define list.
func (k GPUKey) Defines() []string {
	if k.defines == "" {
		return nil
	}
	return strings.Split(k.defines, "\x00")
}

// HasDefine reports whether the key carries the named define, with or without a value.
func (k GPUKey) HasDefine(name string) bool {
	for _, d := range k.Defines() {
		if n, _ := shader.SplitDefine(d); n == name {
			return true
		}
	}
	return false
}

// CacheKey returns a deterministic string form of the key for logs and labels.
//
// Returns:
//   - string: the key's string form
func (k GPUKey) CacheKey() string {
	return fmt.Sprintf("shader=%q|blend=%s|cull=%v|topology=%v|depth_write=%t|depth_test=%t|depth_only=%t|mask=%#x|defines=%q",
		k.ShaderID, k.Blend, k.Cull, k.Topology, k.DepthWrite, k.DepthTest, k.DepthOnly, uint32(k.VertexMask), k.Defines())
}

func (k GPUKey) String() string {
	return k.CacheKey()
}
