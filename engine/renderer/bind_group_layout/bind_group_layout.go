package bind_group_layout

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-pipes/common"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnknownLayout is returned when a layout name is not in the catalogue.
	ErrUnknownLayout = errors.New("bind_group_layout: unknown layout")

	// ErrLayoutBuilt is returned by Register when the named layout already exists on the device.
	ErrLayoutBuilt = errors.New("bind_group_layout: layout already built")

	// ErrLayoutExists is returned by Adopt when the name is already catalogued.
	ErrLayoutExists = errors.New("bind_group_layout: layout already catalogued")
)

// Registry derives named bind group layouts from a catalogue of descriptors. Layouts are created
// on the device on first use and never rebuilt.
type Registry interface {
	// LayoutFor returns the layout for name, creating it on first use.
	//
	// Parameters:
	//   - name: the catalogue name, e.g. MVP
	//
	// Returns:
	//   - device.BindGroupLayoutID: the device layout
	//   - error: ErrUnknownLayout if name is not catalogued, or the device error
	LayoutFor(name string) (device.BindGroupLayoutID, error)

	// Descriptor returns the catalogued descriptor for name.
	//
	// Parameters:
	//   - name: the catalogue name
	//
	// Returns:
	//   - *wgpu.BindGroupLayoutDescriptor: the descriptor, must not be modified
	//   - error: ErrUnknownLayout if name is not catalogued
	Descriptor(name string) (*wgpu.BindGroupLayoutDescriptor, error)

	// Register adds or replaces a catalogue entry. Replacing a layout that has already been built
	// fails with ErrLayoutBuilt.
	//
	// Parameters:
	//   - name: the catalogue name
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - error: ErrLayoutBuilt if name is already on the device
	Register(name string, desc *wgpu.BindGroupLayoutDescriptor) error

	// Adopt records a layout the caller already created on the device under a new name. The
	// registry owns it from then on.
	//
	// Parameters:
	//   - name: the catalogue name, must not be catalogued yet
	//   - desc: the descriptor the layout was created from
	//   - id: the device layout
	//
	// Returns:
	//   - error: ErrLayoutExists if name is already catalogued
	Adopt(name string, desc *wgpu.BindGroupLayoutDescriptor, id device.BindGroupLayoutID) error

	// Names returns the ordered layout names for a shader family. Index i is bound at @group(i).
	//
	// Parameters:
	//   - family: the shader family
	//   - lighting: whether the standard family appends LIGHTING, ignored by other families
	//
	// Returns:
	//   - []string: the layout names in group order
	Names(family common.ShaderFamily, lighting bool) []string

	// Compose resolves Names to device layouts. Nothing is built unless every name is catalogued.
	//
	// Parameters:
	//   - family: the shader family
	//   - lighting: whether the standard family appends LIGHTING
	//
	// Returns:
	//   - []device.BindGroupLayoutID: the layouts in group order
	//   - error: ErrUnknownLayout or a device error
	Compose(family common.ShaderFamily, lighting bool) ([]device.BindGroupLayoutID, error)

	// Len returns the number of layouts built on the device.
	Len() int
}

// registry is the implementation of the Registry interface.
type registry struct {
	device    device.Device
	logger    *slog.Logger
	catalogue map[string]*wgpu.BindGroupLayoutDescriptor
	built     map[string]device.BindGroupLayoutID
}

var _ Registry = &registry{}

// NewRegistry creates a Registry seeded with the canonical catalogue.
//
// Parameters:
//   - dev: the device that owns the created layouts
//   - options: variadic list of RegistryBuilderOption functions to configure the registry
//
// Returns:
//   - Registry: the new registry
func NewRegistry(dev device.Device, options ...RegistryBuilderOption) Registry {
	if dev == nil {
		panic("bind_group_layout: nil device")
	}
	r := &registry{
		device:    dev,
		logger:    slog.Default(),
		catalogue: defaultCatalogue(),
		built:     make(map[string]device.BindGroupLayoutID),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) LayoutFor(name string) (device.BindGroupLayoutID, error) {
	if id, ok := r.built[name]; ok {
		return id, nil
	}
	desc, ok := r.catalogue[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	id, err := r.device.CreateBindGroupLayout(desc)
	if err != nil {
		return 0, fmt.Errorf("create bind group layout %q: %w", name, err)
	}
	r.built[name] = id
	r.logger.Debug("bind group layout built", "name", name, "entries", len(desc.Entries))
	return id, nil
}

func (r *registry) Descriptor(name string) (*wgpu.BindGroupLayoutDescriptor, error) {
	desc, ok := r.catalogue[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	return desc, nil
}

func (r *registry) Register(name string, desc *wgpu.BindGroupLayoutDescriptor) error {
	if _, ok := r.built[name]; ok {
		return fmt.Errorf("%w: %q", ErrLayoutBuilt, name)
	}
	r.catalogue[name] = desc
	return nil
}

func (r *registry) Adopt(name string, desc *wgpu.BindGroupLayoutDescriptor, id device.BindGroupLayoutID) error {
	if _, ok := r.catalogue[name]; ok {
		return fmt.Errorf("%w: %q", ErrLayoutExists, name)
	}
	r.catalogue[name] = desc
	r.built[name] = id
	r.logger.Debug("bind group layout adopted", "name", name, "entries", len(desc.Entries))
	return nil
}

func (r *registry) Names(family common.ShaderFamily, lighting bool) []string {
	switch family {
	case common.FamilySkinned:
		return []string{Time, MVP, SkinnedMaterial, SkinnedAnimation}
	case common.FamilyGLTF:
		return []string{Time, MVP, GLTFPBRMaterial}
	default:
		names := []string{Time, MVP, Texture, Material}
		if lighting {
			names = append(names, Lighting)
		}
		return names
	}
}

func (r *registry) Compose(family common.ShaderFamily, lighting bool) ([]device.BindGroupLayoutID, error) {
	names := r.Names(family, lighting)
	if i := slices.IndexFunc(names, func(n string) bool { _, ok := r.catalogue[n]; return !ok }); i >= 0 {
		return nil, fmt.Errorf("%w: %q for %s family group %d", ErrUnknownLayout, names[i], family, i)
	}
	ids := make([]device.BindGroupLayoutID, len(names))
	for i, name := range names {
		id, err := r.LayoutFor(name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (r *registry) Len() int {
	return len(r.built)
}
