package pipeline

import (
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithShader sets the compiled shader the pipeline is built from.
//
// Parameters:
//   - s: the compiled shader variant
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shader for this pipeline
func WithShader(s *shader.CompiledShader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shader = s
	}
}

// WithGPUKey records the key a render pipeline is derived from.
//
// Parameters:
//   - key: the GPU key
//
// Returns:
//   - PipelineBuilderOption: a function that sets the key for this pipeline
func WithGPUKey(key GPUKey) PipelineBuilderOption {
	return func(p *pipeline) {
		p.gpuKey = key
	}
}

// WithBindGroupLayouts sets the bind group layout names in group order.
//
// Parameters:
//   - names: the layout names, index i is bound at @group(i)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the layout names for this pipeline
func WithBindGroupLayouts(names []string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.bindGroupLayouts = names
	}
}

// WithVertexLayout sets the vertex buffer layout for this pipeline.
//
// Parameters:
//   - layout: the vertex layout
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layout for this pipeline
func WithVertexLayout(layout vertex_layout.Layout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayout = layout
	}
}

// WithDepthOnly drops the fragment stage and color target and renders into the shadow depth format.
//
// Parameters:
//   - depthOnly: true for depth-only pipelines
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth-only state for this pipeline
func WithDepthOnly(depthOnly bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthOnly = depthOnly
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthBias sets the depth bias parameters for this pipeline.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias parameters for this pipeline
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled sets whether blending is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., wgpu.PrimitiveTopologyPointList, wgpu.PrimitiveTopologyLineList, wgpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask to use for this pipeline (e.g., wgpu.ColorWriteMaskAll, wgpu.ColorWriteMaskRed, wgpu.ColorWriteMaskGreen, wgpu.ColorWriteMaskBlue, wgpu.ColorWriteMaskAlpha)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithBlendState sets the blend state for this pipeline.
//
// Parameters:
//   - blendState: the blend state to use for this pipeline, ignored unless blending is enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}

// Depth bias applied to depth-only pipelines to keep lit surfaces from shadowing themselves.
const (
	shadowDepthBias           int32   = 2
	shadowDepthBiasSlopeScale float32 = 2.0
)

// keyOptions translates the fixed-function state of a GPU key into builder options.
func keyOptions(key GPUKey) []PipelineBuilderOption {
	opts := []PipelineBuilderOption{
		WithGPUKey(key),
		WithDepthTestEnabled(key.DepthTest),
		WithDepthWriteEnabled(key.DepthWrite),
		WithDepthOnly(key.DepthOnly),
		WithCullMode(key.Cull),
		WithTopology(key.Topology),
	}
	if key.Blend == BlendAlpha {
		blend := alphaBlendState
		opts = append(opts, WithBlendEnabled(true), WithBlendState(&blend))
	}
	if key.DepthOnly {
		opts = append(opts, WithDepthBias(shadowDepthBias, shadowDepthBiasSlopeScale))
	}
	return opts
}
