package pipeline

import (
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// alphaBlendState is the blend used by BlendAlpha: SrcAlpha, OneMinusSrcAlpha on both channels.
var alphaBlendState = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// pipeline is the implementation of the Pipeline interface.
// It holds the device handles and the fixed-function state a pipeline was built with.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the string form of the key the pipeline is cached under
	pipelineKey string
	gpuKey      GPUKey

	shader *shader.CompiledShader

	renderPipeline  device.RenderPipelineID
	computePipeline device.ComputePipelineID
	layout          device.PipelineLayoutID

	bindGroupLayouts []string
	vertexLayout     vertex_layout.Layout

	// The following properties configure render pipelines and are set with the builder options.
	// Compute pipelines keep the defaults and ignore them.

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthOnly           bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState
}

// Pipeline is a resolved GPU pipeline: either a render pipeline (vertex + fragment stages) or a
// compute pipeline. It records the handles created on the device and every piece of state the
// pipeline was built from. Pipelines are immutable once returned by a Resolver.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the string form of the key this pipeline is cached under.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// GPUKey returns the key a render pipeline was derived from, zero for compute pipelines.
	GPUKey() GPUKey

	// Shader returns the compiled shader variant the pipeline was built from.
	//
	// Returns:
	//   - *shader.CompiledShader: the compiled shader
	Shader() *shader.CompiledShader

	// RenderPipeline returns the device handle of a render pipeline, zero for compute pipelines.
	RenderPipeline() device.RenderPipelineID

	// ComputePipeline returns the device handle of a compute pipeline, zero for render pipelines.
	ComputePipeline() device.ComputePipelineID

	// Layout returns the pipeline layout handle.
	Layout() device.PipelineLayoutID

	// BindGroupLayouts returns the bind group layout names in group order.
	//
	// Returns:
	//   - []string: the layout bound at @group(i) is at index i
	BindGroupLayouts() []string

	// VertexLayout returns the vertex buffer layout of a render pipeline.
	VertexLayout() vertex_layout.Layout

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthOnly returns whether the pipeline has no fragment stage.
	DepthOnly() bool

	// DepthBias returns the depth bias value configured for this pipeline.
	//
	// Returns:
	//   - int32: the depth bias value for this pipeline
	DepthBias() int32

	// DepthBiasSlopeScale returns the depth bias slope scale configured for this pipeline.
	//
	// Returns:
	//   - float32: the depth bias slope scale for this pipeline
	DepthBiasSlopeScale() float32

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline (e.g., wgpu.PrimitiveTopologyTriangleList)
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline (e.g., wgpu.ColorWriteMaskAll)
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state for this pipeline, or nil if blending is not enabled
	BlendState() *wgpu.BlendState

	// SetRenderPipeline sets the render pipeline handle
	//
	// Parameters:
	//   - id: the device render pipeline
	SetRenderPipeline(id device.RenderPipelineID)

	// SetComputePipeline sets the compute pipeline handle
	//
	// Parameters:
	//   - id: the device compute pipeline
	SetComputePipeline(id device.ComputePipelineID)

	// SetLayout sets the pipeline layout handle.
	SetLayout(id device.PipelineLayoutID)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
// The result only describes the pipeline; device handles are attached with the setters once created.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeBack,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) GPUKey() GPUKey {
	return p.gpuKey
}

func (p *pipeline) Shader() *shader.CompiledShader {
	return p.shader
}

func (p *pipeline) RenderPipeline() device.RenderPipelineID {
	return p.renderPipeline
}

func (p *pipeline) ComputePipeline() device.ComputePipelineID {
	return p.computePipeline
}

func (p *pipeline) Layout() device.PipelineLayoutID {
	return p.layout
}

func (p *pipeline) BindGroupLayouts() []string {
	return p.bindGroupLayouts
}

func (p *pipeline) VertexLayout() vertex_layout.Layout {
	return p.vertexLayout
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthOnly() bool {
	return p.depthOnly
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	if !p.blendEnabled {
		return nil
	}
	return p.blendState
}

func (p *pipeline) SetRenderPipeline(id device.RenderPipelineID) {
	p.renderPipeline = id
}

func (p *pipeline) SetComputePipeline(id device.ComputePipelineID) {
	p.computePipeline = id
}

func (p *pipeline) SetLayout(id device.PipelineLayoutID) {
	p.layout = id
}

// renderDescriptor builds the device descriptor for a render pipeline from its configured state.
func (p *pipeline) renderDescriptor(info device.Info) *device.RenderPipelineDescriptor {
	desc := &device.RenderPipelineDescriptor{
		Label:        p.pipelineKey,
		Layout:       p.layout,
		VertexModule: p.shader.Module,
		VertexEntry:  p.shader.EntryPoint(shader.ShaderTypeVertex),
		Buffers:      p.vertexLayout.Buffers(),
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(info.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	}

	depthFormat := info.DepthFormat
	if p.depthOnly {
		depthFormat = info.ShadowDepthFormat
		desc.Multisample.Count = 1
	} else {
		desc.HasFragment = true
		desc.FragmentModule = p.shader.Module
		desc.FragmentEntry = p.shader.EntryPoint(shader.ShaderTypeFragment)
		desc.Targets = []wgpu.ColorTargetState{{
			Format:    info.ColorFormat,
			Blend:     p.BlendState(),
			WriteMask: p.writeMask,
		}}
	}

	if p.depthTestEnabled || p.depthWriteEnabled {
		compare := wgpu.CompareFunctionLess
		if !p.depthTestEnabled {
			compare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              depthFormat,
			DepthWriteEnabled:   p.depthWriteEnabled,
			DepthCompare:        compare,
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return desc
}
