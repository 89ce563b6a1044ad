package material

import (
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-pipes/common"
)

// DefaultAlphaCutoff is the cutoff used by AlphaMask materials that do not set one.
const DefaultAlphaCutoff = 0.5

// material is the implementation of the Material interface.
type material struct {
	name                     string
	baseColor                [4]float32
	metallic                 float32
	roughness                float32
	alphaMode                common.AlphaMode
	alphaCutoff              float32
	doubleSided              bool
	diffuseTexture           *common.ImportedTexture
	normalTexture            *common.ImportedTexture
	metallicRoughnessTexture *common.ImportedTexture
	customShader             string
	params                   map[string]float32
}

// Material describes the surface of a renderable: the factors and textures a fragment shader
// reads, and the flags that decide which pipeline draws it.
//
// Materials are read-only once built. Alpha mode, double-sidedness, texture presence and the
// custom shader feed the semantic pipeline key; the remaining properties only reach the GPU
// through GPUParams.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// AlphaMode retrieves how the alpha channel is interpreted.
	AlphaMode() common.AlphaMode

	// AlphaCutoff retrieves the discard threshold used in AlphaMask mode.
	AlphaCutoff() float32

	// DoubleSided reports whether back faces are drawn.
	DoubleSided() bool

	// DiffuseTexture retrieves the diffuse/albedo texture data reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the diffuse texture, or nil
	DiffuseTexture() *common.ImportedTexture

	// NormalTexture retrieves the normal map texture data reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the normal texture, or nil
	NormalTexture() *common.ImportedTexture

	// MetallicRoughnessTexture retrieves the metallic-roughness texture data reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the metallic-roughness texture, or nil
	MetallicRoughnessTexture() *common.ImportedTexture

	// HasTexture reports whether any texture is set.
	HasTexture() bool

	// CustomShader retrieves the shader ID overriding the default for the geometry, or "".
	CustomShader() string

	// Param retrieves a per-shader parameter.
	//
	// Parameters:
	//   - name: the parameter name
	//
	// Returns:
	//   - float32: the value
	//   - bool: false if the parameter is not set
	Param(name string) (float32, bool)

	// ParamNames returns the names of every per-shader parameter in sorted order.
	ParamNames() []string

	// GPUParams returns the material uniform as uploaded to the MATERIAL bind group.
	//
	// Returns:
	//   - GPUMaterialParams: the uniform block
	GPUParams() GPUMaterialParams
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor:   [4]float32{1, 1, 1, 1},
		metallic:    0.0,
		roughness:   1.0,
		alphaMode:   common.AlphaOpaque,
		alphaCutoff: DefaultAlphaCutoff,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// FromImported creates a Material from the material data of an imported model.
//
// Parameters:
//   - im: the imported material
//   - options: options applied after the imported values, e.g. a custom shader
//
// Returns:
//   - Material: the material
func FromImported(im common.ImportedMaterial, options ...MaterialBuilderOption) Material {
	opts := []MaterialBuilderOption{
		WithName(im.Name),
		WithBaseColor(im.BaseColor),
		WithMetallic(im.Metallic),
		WithRoughness(im.Roughness),
		WithAlphaMode(im.AlphaMode),
		WithDoubleSided(im.DoubleSided),
		WithDiffuseTexture(im.DiffuseTexture),
		WithNormalTexture(im.NormalTexture),
		WithMetallicRoughnessTexture(im.MetallicRoughnessTexture),
	}
	if im.AlphaCutoff > 0 {
		opts = append(opts, WithAlphaCutoff(im.AlphaCutoff))
	}
	return NewMaterial(append(opts, options...)...)
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) AlphaMode() common.AlphaMode {
	return m.alphaMode
}

func (m *material) AlphaCutoff() float32 {
	return m.alphaCutoff
}

func (m *material) DoubleSided() bool {
	return m.doubleSided
}

func (m *material) DiffuseTexture() *common.ImportedTexture {
	return m.diffuseTexture
}

func (m *material) NormalTexture() *common.ImportedTexture {
	return m.normalTexture
}

func (m *material) MetallicRoughnessTexture() *common.ImportedTexture {
	return m.metallicRoughnessTexture
}

func (m *material) HasTexture() bool {
	return m.diffuseTexture != nil || m.normalTexture != nil || m.metallicRoughnessTexture != nil
}

func (m *material) CustomShader() string {
	return m.customShader
}

func (m *material) Param(name string) (float32, bool) {
	v, ok := m.params[name]
	return v, ok
}

func (m *material) ParamNames() []string {
	return slices.Sorted(maps.Keys(m.params))
}

func (m *material) GPUParams() GPUMaterialParams {
	p := GPUMaterialParams{
		BaseColor: m.baseColor,
		Metallic:  m.metallic,
		Roughness: m.roughness,
	}
	if m.alphaMode == common.AlphaMask {
		p.AlphaCutoff = m.alphaCutoff
		p.Flags |= FlagAlphaMask
	}
	if m.diffuseTexture != nil {
		p.Flags |= FlagDiffuseTexture
	}
	if m.normalTexture != nil {
		p.Flags |= FlagNormalTexture
	}
	if m.metallicRoughnessTexture != nil {
		p.Flags |= FlagMetallicRoughnessTexture
	}
	return p
}
