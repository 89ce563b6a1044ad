// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// ImportedMaterial represents material properties from an imported model file.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo/diffuse color (RGBA).
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	AlphaMode AlphaMode

	// AlphaCutoff is the mask threshold, 0 when the file does not set one.
	AlphaCutoff float32

	DoubleSided bool

	// DiffuseTexture holds the diffuse/albedo texture (if present).
	DiffuseTexture *ImportedTexture

	// NormalTexture holds the normal map (if present).
	NormalTexture *ImportedTexture

	// MetallicRoughnessTexture holds the metallic/roughness map (if present).
	MetallicRoughnessTexture *ImportedTexture
}

// ImportedTexture references a texture of an imported material. Pipeline resolution only needs
// to know that a texture is bound; decoding and upload belong to the bind group layer.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "diffuse", "normal").
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw image bytes for embedded textures (PNG/JPEG).
	Data []byte
}
