package pipeline

import (
	"github.com/Carmen-Shannon/oxy-pipes/common"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
	"github.com/cogentcore/webgpu/wgpu"
)

// Default shader IDs picked from the vertex format when a key has no custom shader.
const (
	ShaderStandard = "standard"
	ShaderSkinned  = "skinned"
	ShaderGLTFPBR  = "gltf_pbr"
)

// Feature defines added by DeriveGPUKey.
const (
	DefineAlphaMask   = "ALPHA_MASK"
	DefineHasTexture  = "HAS_TEXTURE"
	DefineSkinning    = "SKINNING"
	DefineVertexColor = "VERTEX_COLOR"
	DefineUseLighting = "USE_LIGHTING"
	DefineUsePBR      = "USE_PBR"
	DefineWireframe   = "WIREFRAME"
	DefineShadowPass  = "SHADOW_PASS"
)

// DefaultShader returns the shader used for a vertex format when no custom shader is set.
func DefaultShader(format vertex_layout.Format) string {
	switch format {
	case vertex_layout.FormatSkinned, vertex_layout.FormatSkinnedEdge:
		return ShaderSkinned
	case vertex_layout.FormatGLTF:
		return ShaderGLTFPBR
	default:
		return ShaderStandard
	}
}

// hasNormals reports whether a format carries vertex normals.
func hasNormals(format vertex_layout.Format) bool {
	switch format {
	case vertex_layout.FormatFull, vertex_layout.FormatSkinned, vertex_layout.FormatSkinnedEdge, vertex_layout.FormatGLTF:
		return true
	default:
		return false
	}
}

// DeriveGPUKey maps a semantic key to the GPU state it needs. It is a pure function.
//
// Parameters:
//   - k: the semantic key
//
// Returns:
//   - GPUKey: the derived GPU key
func DeriveGPUKey(k SemanticKey) GPUKey {
	g := GPUKey{
		ShaderID:   k.CustomShader,
		Blend:      BlendNone,
		Cull:       wgpu.CullModeBack,
		Topology:   wgpu.PrimitiveTopologyTriangleList,
		DepthWrite: true,
		DepthTest:  true,
		VertexMask: vertex_layout.MaskFor(k.VertexFormat),
	}
	if g.ShaderID == "" {
		g.ShaderID = DefaultShader(k.VertexFormat)
	}
	if k.DoubleSided {
		g.Cull = wgpu.CullModeNone
	}
	if k.Primitive == PrimitiveLine {
		g.Topology = wgpu.PrimitiveTopologyLineList
	}

	var defines []string
	lit := hasNormals(k.VertexFormat)

	switch k.Pass {
	case PassTransparent:
		g.Blend = BlendAlpha
		g.DepthWrite = false
	case PassWireframe:
		g.Topology = wgpu.PrimitiveTopologyLineList
		defines = append(defines, DefineWireframe)
		lit = false
	case PassShadow:
		g.DepthOnly = true
		g.Cull = wgpu.CullModeFront
		if k.DoubleSided {
			g.Cull = wgpu.CullModeNone
		}
		defines = append(defines, DefineShadowPass)
		lit = false
	case PassUI:
		g.Blend = BlendAlpha
		g.DepthWrite = false
		g.DepthTest = false
		g.Cull = wgpu.CullModeNone
		lit = false
	case PassPostProcess:
		g.DepthWrite = false
		g.DepthTest = false
		g.Cull = wgpu.CullModeNone
		g.VertexMask = 0
		lit = false
	}

	// alpha blending applies to any color pass, not only the transparent one
	if k.AlphaMode == common.AlphaBlend && !g.DepthOnly {
		g.Blend = BlendAlpha
		g.DepthWrite = false
	}

	if k.AlphaMode == common.AlphaMask {
		defines = append(defines, DefineAlphaMask)
	}
	if k.HasTexture {
		defines = append(defines, DefineHasTexture)
	}
	switch k.VertexFormat {
	case vertex_layout.FormatSkinned, vertex_layout.FormatSkinnedEdge:
		defines = append(defines, DefineSkinning)
	case vertex_layout.FormatColored:
		defines = append(defines, DefineVertexColor)
	}
	if lit {
		defines = append(defines, DefineUseLighting)
	}

	return g.WithDefines(defines...)
}
