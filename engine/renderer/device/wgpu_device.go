package device

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDevice is the WebGPU implementation of the Device interface. Every native object it
// creates lives in one of its handle tables until released.
type wgpuDevice struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	info        Info
	presentMode wgpu.PresentMode

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	maxBindGroups        uint32

	shaderModules    *HandleTable[*wgpu.ShaderModule]
	bindGroupLayouts *HandleTable[*wgpu.BindGroupLayout]
	pipelineLayouts  *HandleTable[*wgpu.PipelineLayout]
	renderPipelines  *HandleTable[*wgpu.RenderPipeline]
	computePipelines *HandleTable[*wgpu.ComputePipeline]
}

// WGPUDevice is a Device backed by a real WebGPU adapter. Beyond the Device contract it exposes
// the native objects needed by code that records command buffers.
type WGPUDevice interface {
	Device

	// Native returns the underlying wgpu device.
	//
	// Returns:
	//   - *wgpu.Device: the native device
	Native() *wgpu.Device

	// Queue returns the device queue.
	//
	// Returns:
	//   - *wgpu.Queue: the native queue
	Queue() *wgpu.Queue

	// RenderPipeline resolves a RenderPipelineID to the native pipeline for draw encoding.
	//
	// Parameters:
	//   - id: the pipeline ID returned by CreateRenderPipeline
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the native pipeline
	//   - bool: false if the ID is not live
	RenderPipeline(id RenderPipelineID) (*wgpu.RenderPipeline, bool)

	// Surface returns the presentation surface, nil for headless devices.
	Surface() *wgpu.Surface

	// ConfigureSurface (re)configures the presentation surface for a new size. The preferred color
	// format reported by Info is taken from the surface capabilities. It is a no-op for headless
	// devices.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// Release destroys every object still owned by the device, then the device itself.
	Release()
}

var _ WGPUDevice = &wgpuDevice{}

// NewWGPUDevice acquires an adapter and device. When a surface descriptor is supplied the adapter
// is required to be compatible with it and the color format follows the surface capabilities;
// otherwise the device is headless and renders to BGRA8Unorm.
//
// Parameters:
//   - options: variadic list of WGPUDeviceBuilderOption functions to configure the device
//
// Returns:
//   - WGPUDevice: the initialized device
//   - error: an error if no adapter or device could be acquired
func NewWGPUDevice(options ...WGPUDeviceBuilderOption) (WGPUDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		presentMode:   wgpu.PresentModeFifo,
		maxBindGroups: 8,
		info: Info{
			ColorFormat:       wgpu.TextureFormatBGRA8Unorm,
			DepthFormat:       wgpu.TextureFormatDepth24Plus,
			ShadowDepthFormat: wgpu.TextureFormatDepth32Float,
			SampleCount:       4,
		},
		shaderModules:    NewHandleTable[*wgpu.ShaderModule](),
		bindGroupLayouts: NewHandleTable[*wgpu.BindGroupLayout](),
		pipelineLayouts:  NewHandleTable[*wgpu.PipelineLayout](),
		renderPipelines:  NewHandleTable[*wgpu.RenderPipeline](),
		computePipelines: NewHandleTable[*wgpu.ComputePipeline](),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("device: request adapter: %w", err)
	}
	d.adapter = a

	// The skinned family uses four groups and the standard family up to five, raise the limit
	// so custom shaders can append their own.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = d.maxBindGroups

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Pipeline Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("device: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if d.surface != nil {
		capabilities := d.surface.GetCapabilities(d.adapter)
		if len(capabilities.Formats) > 0 {
			d.info.ColorFormat = capabilities.Formats[0]
		}
	}
	return d, nil
}

func (d *wgpuDevice) Info() Info {
	return d.info
}

func (d *wgpuDevice) Native() *wgpu.Device {
	return d.device
}

func (d *wgpuDevice) Queue() *wgpu.Queue {
	return d.queue
}

func (d *wgpuDevice) RenderPipeline(id RenderPipelineID) (*wgpu.RenderPipeline, bool) {
	return d.renderPipelines.Get(uint32(id))
}

func (d *wgpuDevice) Surface() *wgpu.Surface {
	return d.surface
}

func (d *wgpuDevice) ConfigureSurface(width, height int) {
	if d.surface == nil {
		return
	}
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.info.ColorFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (d *wgpuDevice) CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModuleID, error) {
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Code,
		},
	})
	if err != nil {
		return 0, err
	}
	return ShaderModuleID(d.shaderModules.Insert(m)), nil
}

func (d *wgpuDevice) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (BindGroupLayoutID, error) {
	l, err := d.device.CreateBindGroupLayout(desc)
	if err != nil {
		return 0, err
	}
	return BindGroupLayoutID(d.bindGroupLayouts.Insert(l)), nil
}

func (d *wgpuDevice) CreatePipelineLayout(label string, layouts []BindGroupLayoutID) (PipelineLayoutID, error) {
	native := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, id := range layouts {
		l, ok := d.bindGroupLayouts.Get(uint32(id))
		if !ok {
			return 0, fmt.Errorf("bind group layout %d for group %d: %w", id, i, ErrUnknownHandle)
		}
		native[i] = l
	}
	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: native,
	})
	if err != nil {
		return 0, err
	}
	return PipelineLayoutID(d.pipelineLayouts.Insert(pl)), nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipelineID, error) {
	layout, ok := d.pipelineLayouts.Get(uint32(desc.Layout))
	if !ok {
		return 0, fmt.Errorf("pipeline layout %d: %w", desc.Layout, ErrUnknownHandle)
	}
	vs, ok := d.shaderModules.Get(uint32(desc.VertexModule))
	if !ok {
		return 0, fmt.Errorf("vertex module %d: %w", desc.VertexModule, ErrUnknownHandle)
	}

	var fragment *wgpu.FragmentState
	if desc.HasFragment {
		fs, ok := d.shaderModules.Get(uint32(desc.FragmentModule))
		if !ok {
			return 0, fmt.Errorf("fragment module %d: %w", desc.FragmentModule, ErrUnknownHandle)
		}
		fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.FragmentEntry,
			Targets:    desc.Targets,
		}
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.Buffers,
		},
		Fragment:     fragment,
		Primitive:    desc.Primitive,
		Multisample:  desc.Multisample,
		DepthStencil: desc.DepthStencil,
	})
	if err != nil {
		return 0, err
	}
	return RenderPipelineID(d.renderPipelines.Insert(created)), nil
}

func (d *wgpuDevice) CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipelineID, error) {
	layout, ok := d.pipelineLayouts.Get(uint32(desc.Layout))
	if !ok {
		return 0, fmt.Errorf("pipeline layout %d: %w", desc.Layout, ErrUnknownHandle)
	}
	m, ok := d.shaderModules.Get(uint32(desc.Module))
	if !ok {
		return 0, fmt.Errorf("compute module %d: %w", desc.Module, ErrUnknownHandle)
	}
	created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     m,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return 0, err
	}
	return ComputePipelineID(d.computePipelines.Insert(created)), nil
}

func (d *wgpuDevice) ReleaseShaderModule(id ShaderModuleID) {
	if m, ok := d.shaderModules.Remove(uint32(id)); ok {
		m.Release()
	}
}

func (d *wgpuDevice) ReleaseBindGroupLayout(id BindGroupLayoutID) {
	if l, ok := d.bindGroupLayouts.Remove(uint32(id)); ok {
		l.Release()
	}
}

func (d *wgpuDevice) ReleasePipelineLayout(id PipelineLayoutID) {
	if l, ok := d.pipelineLayouts.Remove(uint32(id)); ok {
		l.Release()
	}
}

func (d *wgpuDevice) ReleaseRenderPipeline(id RenderPipelineID) {
	if p, ok := d.renderPipelines.Remove(uint32(id)); ok {
		p.Release()
	}
}

func (d *wgpuDevice) ReleaseComputePipeline(id ComputePipelineID) {
	if p, ok := d.computePipelines.Remove(uint32(id)); ok {
		p.Release()
	}
}

func (d *wgpuDevice) Release() {
	// pipelines reference layouts and modules, release them first
	d.renderPipelines.Each(func(id uint32, _ *wgpu.RenderPipeline) { d.ReleaseRenderPipeline(RenderPipelineID(id)) })
	d.computePipelines.Each(func(id uint32, _ *wgpu.ComputePipeline) { d.ReleaseComputePipeline(ComputePipelineID(id)) })
	d.pipelineLayouts.Each(func(id uint32, _ *wgpu.PipelineLayout) { d.ReleasePipelineLayout(PipelineLayoutID(id)) })
	d.shaderModules.Each(func(id uint32, _ *wgpu.ShaderModule) { d.ReleaseShaderModule(ShaderModuleID(id)) })
	d.bindGroupLayouts.Each(func(id uint32, l *wgpu.BindGroupLayout) {
		d.bindGroupLayouts.Remove(id)
		l.Release()
	})
	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}
