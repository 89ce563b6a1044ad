// Package device defines the GPU collaborator used by the pipeline subsystem. GPU objects are
// never handed out directly; the device owns them in per-kind handle tables and gives callers
// small copyable IDs which are released explicitly.
package device

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderModuleID identifies a shader module owned by a Device.
type ShaderModuleID uint32

// BindGroupLayoutID identifies a bind group layout owned by a Device.
type BindGroupLayoutID uint32

// PipelineLayoutID identifies a pipeline layout owned by a Device.
type PipelineLayoutID uint32

// RenderPipelineID identifies a render pipeline owned by a Device.
type RenderPipelineID uint32

// ComputePipelineID identifies a compute pipeline owned by a Device.
type ComputePipelineID uint32

// ErrUnknownHandle is returned when an ID does not resolve to a live object in a handle table.
var ErrUnknownHandle = errors.New("device: unknown handle")

// Info describes the fixed render target configuration of a Device. Pipelines built against
// the device must match these formats.
type Info struct {
	// ColorFormat is the preferred color target format (the surface format when presenting).
	ColorFormat wgpu.TextureFormat

	// DepthFormat is the depth attachment format used by the main render pass.
	DepthFormat wgpu.TextureFormat

	// ShadowDepthFormat is the depth format used by depth-only shadow passes.
	ShadowDepthFormat wgpu.TextureFormat

	// SampleCount is the MSAA sample count of the main render pass.
	SampleCount uint32
}

// ShaderModuleDescriptor describes a WGSL shader module to create.
type ShaderModuleDescriptor struct {
	Label string
	Code  string
}

// RenderPipelineDescriptor mirrors wgpu.RenderPipelineDescriptor with device-owned IDs in place
// of native object references.
type RenderPipelineDescriptor struct {
	Label  string
	Layout PipelineLayoutID

	VertexModule ShaderModuleID
	VertexEntry  string
	Buffers      []wgpu.VertexBufferLayout

	// HasFragment is false for depth-only pipelines which have no fragment stage or color target.
	HasFragment    bool
	FragmentModule ShaderModuleID
	FragmentEntry  string
	Targets        []wgpu.ColorTargetState

	Primitive    wgpu.PrimitiveState
	DepthStencil *wgpu.DepthStencilState
	Multisample  wgpu.MultisampleState
}

// ComputePipelineDescriptor mirrors wgpu.ComputePipelineDescriptor with device-owned IDs.
type ComputePipelineDescriptor struct {
	Label      string
	Layout     PipelineLayoutID
	Module     ShaderModuleID
	EntryPoint string
}

// Device is the set of GPU operations the pipeline subsystem consumes. Implementations own every
// object they create until the matching Release call.
type Device interface {
	// Info returns the render target configuration pipelines must be built against.
	//
	// Returns:
	//   - Info: the color/depth formats and sample count of the device's render targets
	Info() Info

	// CreateShaderModule compiles WGSL source into a shader module.
	//
	// Parameters:
	//   - desc: the label and WGSL source of the module
	//
	// Returns:
	//   - ShaderModuleID: the ID of the created module
	//   - error: an error if the device rejected the module
	CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModuleID, error)

	// CreateBindGroupLayout creates a bind group layout from a wgpu descriptor.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - BindGroupLayoutID: the ID of the created layout
	//   - error: an error if creation failed
	CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (BindGroupLayoutID, error)

	// CreatePipelineLayout creates a pipeline layout from bind group layouts in group-index order.
	//
	// Parameters:
	//   - label: a debug label
	//   - layouts: the bind group layouts, index i is bound at @group(i)
	//
	// Returns:
	//   - PipelineLayoutID: the ID of the created pipeline layout
	//   - error: an error if a layout ID is unknown or creation failed
	CreatePipelineLayout(label string, layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// CreateRenderPipeline creates a render pipeline.
	//
	// Parameters:
	//   - desc: the render pipeline descriptor
	//
	// Returns:
	//   - RenderPipelineID: the ID of the created pipeline
	//   - error: an error if an ID is unknown or creation failed
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipelineID, error)

	// CreateComputePipeline creates a compute pipeline.
	//
	// Parameters:
	//   - desc: the compute pipeline descriptor
	//
	// Returns:
	//   - ComputePipelineID: the ID of the created pipeline
	//   - error: an error if an ID is unknown or creation failed
	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipelineID, error)

	ReleaseShaderModule(id ShaderModuleID)
	ReleaseBindGroupLayout(id BindGroupLayoutID)
	ReleasePipelineLayout(id PipelineLayoutID)
	ReleaseRenderPipeline(id RenderPipelineID)
	ReleaseComputePipeline(id ComputePipelineID)
}
