package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-pipes/common"
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
)

// Preset names a common pipeline configuration.
type Preset int

const (
	PresetOpaque Preset = iota
	PresetTransparent
	PresetWireframe
	PresetShadow
	PresetUI
	PresetPostProcess
)

var presetNames = [...]string{"opaque", "transparent", "wireframe", "shadow", "ui", "post_process"}

func (p Preset) String() string {
	if p < 0 || int(p) >= len(presetNames) {
		return "unknown"
	}
	return presetNames[p]
}

// ParsePreset returns the preset with the given name.
func ParsePreset(s string) (Preset, error) {
	for i, n := range presetNames {
		if n == s {
			return Preset(i), nil
		}
	}
	return 0, fmt.Errorf("pipeline: unknown preset %q", s)
}

// presetConfig is the part of a semantic key a preset leaves open.
type presetConfig struct {
	shader      string
	doubleSided bool
	texture     bool
	alphaMode   common.AlphaMode
}

// PresetOption adjusts a preset key.
type PresetOption func(*presetConfig)

// WithPresetShader uses a custom shader instead of the vertex format's default.
func WithPresetShader(id string) PresetOption {
	return func(c *presetConfig) {
		c.shader = id
	}
}

// WithPresetDoubleSided disables back-face culling.
func WithPresetDoubleSided(doubleSided bool) PresetOption {
	return func(c *presetConfig) {
		c.doubleSided = doubleSided
	}
}

// WithPresetTexture marks the draw as textured.
func WithPresetTexture(texture bool) PresetOption {
	return func(c *presetConfig) {
		c.texture = texture
	}
}

// WithPresetAlphaMode sets the alpha mode of the draw.
func WithPresetAlphaMode(mode common.AlphaMode) PresetOption {
	return func(c *presetConfig) {
		c.alphaMode = mode
	}
}

// PresetKey returns the semantic key for a preset. Post-process presets ignore format and always
// draw without vertex buffers.
//
// Parameters:
//   - preset: the preset
//   - format: the vertex format of the geometry
//   - options: variadic list of PresetOption functions
//
// Returns:
//   - SemanticKey: the key
func PresetKey(preset Preset, format vertex_layout.Format, options ...PresetOption) SemanticKey {
	cfg := presetConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	key := SemanticKey{
		AlphaMode:    cfg.alphaMode,
		DoubleSided:  cfg.doubleSided,
		VertexFormat: format,
		HasTexture:   cfg.texture,
		CustomShader: cfg.shader,
	}
	switch preset {
	case PresetTransparent:
		key.Pass = PassTransparent
		if key.AlphaMode == common.AlphaOpaque {
			key.AlphaMode = common.AlphaBlend
		}
	case PresetWireframe:
		key.Pass = PassWireframe
		key.Primitive = PrimitiveLine
	case PresetShadow:
		key.Pass = PassShadow
	case PresetUI:
		key.Pass = PassUI
		key.DoubleSided = true
	case PresetPostProcess:
		key.Pass = PassPostProcess
		key.VertexFormat = vertex_layout.FormatNone
		key.DoubleSided = true
	default:
		key.Pass = PassOpaque
	}
	return key
}

// Factory creates pipelines from named presets through a Resolver, so preset pipelines share the
// caches with every other draw.
type Factory interface {
	// Create resolves the pipeline for a preset.
	//
	// Parameters:
	//   - preset: the preset
	//   - format: the vertex format of the geometry
	//   - options: variadic list of PresetOption functions
	//
	// Returns:
	//   - Pipeline: the resolved pipeline
	//   - error: the resolver's error
	Create(preset Preset, format vertex_layout.Format, options ...PresetOption) (Pipeline, error)
}

// factory is the implementation of the Factory interface.
type factory struct {
	resolver Resolver
}

var _ Factory = &factory{}

// NewFactory creates a Factory resolving through r.
func NewFactory(r Resolver) Factory {
	if r == nil {
		panic("pipeline: nil resolver")
	}
	return &factory{resolver: r}
}

func (f *factory) Create(preset Preset, format vertex_layout.Format, options ...PresetOption) (Pipeline, error) {
	return f.resolver.Resolve(PresetKey(preset, format, options...))
}
