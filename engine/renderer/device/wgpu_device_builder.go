package device

import "github.com/cogentcore/webgpu/wgpu"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing.
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8x multisample anti-aliasing. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16x multisample anti-aliasing. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// WGPUDeviceBuilderOption is a functional option applied to a wgpu device during construction via NewWGPUDevice.
type WGPUDeviceBuilderOption func(*wgpuDevice)

// WithSurface makes the device present to the surface described by desc. Without it the device
// is headless.
//
// Parameters:
//   - desc: the platform surface descriptor, e.g. from wgpuglfw.GetSurfaceDescriptor
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the surface option to a device
func WithSurface(desc *wgpu.SurfaceDescriptor) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.surfaceDescriptor = desc
	}
}

// WithMSAA sets the sample count reported by Info and baked into every render pipeline.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the MSAA option to a device
func WithMSAA(count MSAASampleCount) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.info.SampleCount = uint32(count)
	}
}

// WithPresentMode sets the surface present mode.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the present mode option to a device
func WithPresentMode(mode PresentMode) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		switch mode {
		case PresentModeUncapped:
			d.presentMode = wgpu.PresentModeImmediate
		default:
			d.presentMode = wgpu.PresentModeFifo
		}
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter. This requires a
// software Vulkan ICD to be installed on the system (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the option to a device
func WithForceSoftwareRenderer(force bool) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithMaxBindGroups overrides the MaxBindGroups device limit (default 8).
//
// Parameters:
//   - n: the number of bind groups a pipeline layout may use
//
// Returns:
//   - WGPUDeviceBuilderOption: a function that applies the limit to a device
func WithMaxBindGroups(n uint32) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.maxBindGroups = n
	}
}
