package bind_group_layout

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// RegistryBuilderOption is a functional option applied to a registry during construction via NewRegistry.
type RegistryBuilderOption func(*registry)

// WithLayout adds or replaces a catalogue entry before any layout is built.
//
// Parameters:
//   - name: the catalogue name
//   - desc: the layout descriptor
//
// Returns:
//   - RegistryBuilderOption: a function that applies the layout option to a registry
func WithLayout(name string, desc *wgpu.BindGroupLayoutDescriptor) RegistryBuilderOption {
	return func(r *registry) {
		r.catalogue[name] = desc
	}
}

// WithLogger sets the logger used for build messages.
func WithLogger(logger *slog.Logger) RegistryBuilderOption {
	return func(r *registry) {
		r.logger = logger
	}
}
