// Package devicetest provides a recording in-memory Device for tests of code that builds GPU objects.
package devicetest

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInjected is returned by the fake when a Fail* hook is set and matches.
var ErrInjected = errors.New("devicetest: injected failure")

// Device is a fake device.Device. It never touches a GPU; every created object is a recorded
// descriptor in a handle table, so tests can count creations and check what is still live.
//
// The Fail* hooks make the next matching creation call fail with ErrInjected.
type Device struct {
	DeviceInfo device.Info

	FailShaderModule    func(desc device.ShaderModuleDescriptor) bool
	FailRenderPipeline  func(desc *device.RenderPipelineDescriptor) bool
	FailComputePipeline func(desc *device.ComputePipelineDescriptor) bool

	ShaderModules    *device.HandleTable[device.ShaderModuleDescriptor]
	BindGroupLayouts *device.HandleTable[*wgpu.BindGroupLayoutDescriptor]
	PipelineLayouts  *device.HandleTable[[]device.BindGroupLayoutID]
	RenderPipelines  *device.HandleTable[device.RenderPipelineDescriptor]
	ComputePipelines *device.HandleTable[device.ComputePipelineDescriptor]

	// Creation counters, never decremented by releases
	ShaderModuleCreates    int
	BindGroupLayoutCreates int
	PipelineLayoutCreates  int
	RenderPipelineCreates  int
	ComputePipelineCreates int

	// Release counters
	ShaderModuleReleases    int
	RenderPipelineReleases  int
	ComputePipelineReleases int
}

var _ device.Device = &Device{}

// New creates a fake device reporting BGRA8Unorm color, Depth24Plus depth and 4x MSAA.
//
// Returns:
//   - *Device: the fake device
func New() *Device {
	return &Device{
		DeviceInfo: device.Info{
			ColorFormat:       wgpu.TextureFormatBGRA8Unorm,
			DepthFormat:       wgpu.TextureFormatDepth24Plus,
			ShadowDepthFormat: wgpu.TextureFormatDepth32Float,
			SampleCount:       4,
		},
		ShaderModules:    device.NewHandleTable[device.ShaderModuleDescriptor](),
		BindGroupLayouts: device.NewHandleTable[*wgpu.BindGroupLayoutDescriptor](),
		PipelineLayouts:  device.NewHandleTable[[]device.BindGroupLayoutID](),
		RenderPipelines:  device.NewHandleTable[device.RenderPipelineDescriptor](),
		ComputePipelines: device.NewHandleTable[device.ComputePipelineDescriptor](),
	}
}

func (d *Device) Info() device.Info {
	return d.DeviceInfo
}

func (d *Device) CreateShaderModule(desc device.ShaderModuleDescriptor) (device.ShaderModuleID, error) {
	if d.FailShaderModule != nil && d.FailShaderModule(desc) {
		return 0, ErrInjected
	}
	d.ShaderModuleCreates++
	return device.ShaderModuleID(d.ShaderModules.Insert(desc)), nil
}

func (d *Device) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (device.BindGroupLayoutID, error) {
	d.BindGroupLayoutCreates++
	return device.BindGroupLayoutID(d.BindGroupLayouts.Insert(desc)), nil
}

func (d *Device) CreatePipelineLayout(_ string, layouts []device.BindGroupLayoutID) (device.PipelineLayoutID, error) {
	for _, id := range layouts {
		if _, ok := d.BindGroupLayouts.Get(uint32(id)); !ok {
			return 0, device.ErrUnknownHandle
		}
	}
	d.PipelineLayoutCreates++
	return device.PipelineLayoutID(d.PipelineLayouts.Insert(append([]device.BindGroupLayoutID(nil), layouts...))), nil
}

func (d *Device) CreateRenderPipeline(desc *device.RenderPipelineDescriptor) (device.RenderPipelineID, error) {
	if _, ok := d.PipelineLayouts.Get(uint32(desc.Layout)); !ok {
		return 0, device.ErrUnknownHandle
	}
	if _, ok := d.ShaderModules.Get(uint32(desc.VertexModule)); !ok {
		return 0, device.ErrUnknownHandle
	}
	if d.FailRenderPipeline != nil && d.FailRenderPipeline(desc) {
		return 0, ErrInjected
	}
	d.RenderPipelineCreates++
	return device.RenderPipelineID(d.RenderPipelines.Insert(*desc)), nil
}

func (d *Device) CreateComputePipeline(desc *device.ComputePipelineDescriptor) (device.ComputePipelineID, error) {
	if _, ok := d.ShaderModules.Get(uint32(desc.Module)); !ok {
		return 0, device.ErrUnknownHandle
	}
	if d.FailComputePipeline != nil && d.FailComputePipeline(desc) {
		return 0, ErrInjected
	}
	d.ComputePipelineCreates++
	return device.ComputePipelineID(d.ComputePipelines.Insert(*desc)), nil
}

func (d *Device) ReleaseShaderModule(id device.ShaderModuleID) {
	if _, ok := d.ShaderModules.Remove(uint32(id)); ok {
		d.ShaderModuleReleases++
	}
}

func (d *Device) ReleaseBindGroupLayout(id device.BindGroupLayoutID) {
	d.BindGroupLayouts.Remove(uint32(id))
}

func (d *Device) ReleasePipelineLayout(id device.PipelineLayoutID) {
	d.PipelineLayouts.Remove(uint32(id))
}

func (d *Device) ReleaseRenderPipeline(id device.RenderPipelineID) {
	if _, ok := d.RenderPipelines.Remove(uint32(id)); ok {
		d.RenderPipelineReleases++
	}
}

func (d *Device) ReleaseComputePipeline(id device.ComputePipelineID) {
	if _, ok := d.ComputePipelines.Remove(uint32(id)); ok {
		d.ComputePipelineReleases++
	}
}

// RenderPipeline returns the descriptor a live render pipeline was created from.
//
// Parameters:
//   - id: the pipeline ID
//
// Returns:
//   - device.RenderPipelineDescriptor: the recorded descriptor
//   - bool: false if the pipeline is not live
func (d *Device) RenderPipeline(id device.RenderPipelineID) (device.RenderPipelineDescriptor, bool) {
	return d.RenderPipelines.Get(uint32(id))
}

// PipelineLayout returns the bind group layouts a live pipeline layout was created from.
func (d *Device) PipelineLayout(id device.PipelineLayoutID) ([]device.BindGroupLayoutID, bool) {
	return d.PipelineLayouts.Get(uint32(id))
}

// BindGroupLayout returns the descriptor of a live bind group layout.
func (d *Device) BindGroupLayout(id device.BindGroupLayoutID) (*wgpu.BindGroupLayoutDescriptor, bool) {
	return d.BindGroupLayouts.Get(uint32(id))
}
