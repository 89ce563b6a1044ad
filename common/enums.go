package common

import "fmt"

// AlphaMode controls how a material's alpha channel is interpreted.
type AlphaMode int

const (
	// AlphaOpaque ignores alpha entirely.
	AlphaOpaque AlphaMode = iota

	// AlphaMask discards fragments whose alpha is below the material's cutoff.
	AlphaMask

	// AlphaBlend blends fragments with the framebuffer using source alpha.
	AlphaBlend
)

var alphaModeNames = [...]string{"opaque", "mask", "blend"}

func (a AlphaMode) String() string {
	if a < 0 || int(a) >= len(alphaModeNames) {
		return fmt.Sprintf("alpha(%d)", int(a))
	}
	return alphaModeNames[a]
}

// ParseAlphaMode parses the names produced by AlphaMode.String.
//
// Parameters:
//   - s: "opaque", "mask" or "blend"
//
// Returns:
//   - AlphaMode: the parsed mode
//   - error: an error if s is not a known mode
func ParseAlphaMode(s string) (AlphaMode, error) {
	for i, n := range alphaModeNames {
		if n == s {
			return AlphaMode(i), nil
		}
	}
	return AlphaOpaque, fmt.Errorf("unknown alpha mode %q", s)
}

// ShaderFamily groups shaders that share one bind group index assignment.
type ShaderFamily int

const (
	// FamilyStandard is [TIME, MVP, TEXTURE, MATERIAL] plus optional LIGHTING.
	FamilyStandard ShaderFamily = iota

	// FamilySkinned is [TIME, MVP, SKINNED_MATERIAL, SKINNED_ANIMATION].
	FamilySkinned

	// FamilyGLTF is [TIME, MVP, GLTF_PBR_MATERIAL].
	FamilyGLTF
)

var shaderFamilyNames = [...]string{"standard", "skinned", "gltf"}

func (f ShaderFamily) String() string {
	if f < 0 || int(f) >= len(shaderFamilyNames) {
		return fmt.Sprintf("family(%d)", int(f))
	}
	return shaderFamilyNames[f]
}

// ParseShaderFamily parses the names produced by ShaderFamily.String. The empty string is the
// standard family.
//
// Parameters:
//   - s: "standard", "skinned", "gltf" or ""
//
// Returns:
//   - ShaderFamily: the parsed family
//   - error: an error if s is not a known family
func ParseShaderFamily(s string) (ShaderFamily, error) {
	if s == "" {
		return FamilyStandard, nil
	}
	for i, n := range shaderFamilyNames {
		if n == s {
			return ShaderFamily(i), nil
		}
	}
	return FamilyStandard, fmt.Errorf("unknown shader family %q", s)
}
