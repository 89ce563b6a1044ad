package vertex_layout

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// AttributeMask is a bitmask of the vertex attributes a pipeline consumes.
type AttributeMask uint32

const (
	AttrPosition AttributeMask = 1 << iota
	AttrNormal
	AttrUV
	AttrColor
	AttrSkinIndex
	AttrSkinWeight
	AttrEdgeRatio

	// AttrGLTF selects the fixed 104-byte GLTF layout regardless of the other bits.
	AttrGLTF
)

// ErrUnsupportedMask is returned for masks that match no row of the layout table.
var ErrUnsupportedMask = errors.New("vertex_layout: unsupported attribute mask")

// Format names the fixed vertex layouts.
type Format int

const (
	FormatNone Format = iota
	FormatPosition
	FormatFull
	FormatColored
	FormatSkinned
	FormatSkinnedEdge
	FormatGLTF
)

var formatNames = [...]string{"none", "position", "full", "colored", "skinned", "skinned_edge", "gltf"}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("format(%d)", int(f))
	}
	return formatNames[f]
}

// Has reports whether every bit in bits is set in m.
func (m AttributeMask) Has(bits AttributeMask) bool {
	return m&bits == bits
}

// Layout is a derived vertex buffer layout: the byte stride and the attributes with explicit
// offsets and sequential shader locations.
type Layout struct {
	Format     Format
	Stride     uint64
	Attributes []wgpu.VertexAttribute
}

// Buffers returns the layout as the vertex buffer list of a render pipeline. The empty layout
// yields no buffers.
//
// Returns:
//   - []wgpu.VertexBufferLayout: zero or one buffer layouts
func (l Layout) Buffers() []wgpu.VertexBufferLayout {
	if l.Format == FormatNone {
		return nil
	}
	return []wgpu.VertexBufferLayout{{
		ArrayStride: l.Stride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  l.Attributes,
	}}
}

// Offset returns the byte offset of the attribute bound at the given shader location.
//
// Parameters:
//   - location: the shader location
//
// Returns:
//   - uint64: the byte offset
//   - bool: false if no attribute uses the location
func (l Layout) Offset(location uint32) (uint64, bool) {
	for _, a := range l.Attributes {
		if a.ShaderLocation == location {
			return a.Offset, true
		}
	}
	return 0, false
}

// LayoutFor derives the vertex layout for an attribute mask. The table is checked in order:
// GLTF, skinned (normal, uv and both skin bits), full (normal and uv), colored, position only.
// An empty mask yields a layout with no buffers for fullscreen passes.
//
// Parameters:
//   - mask: the attribute bitmask
//
// Returns:
//   - Layout: the derived layout
//   - error: ErrUnsupportedMask if the mask has attributes but no position. Incomplete skin bits
//     fall through to the full, colored or position layouts.
func LayoutFor(mask AttributeMask) (Layout, error) {
	switch {
	case mask == 0:
		return Layout{Format: FormatNone}, nil
	case mask.Has(AttrGLTF):
		return build(FormatGLTF, gltfAttrs), nil
	case !mask.Has(AttrPosition):
		return Layout{}, fmt.Errorf("%w: %#x has no position", ErrUnsupportedMask, uint32(mask))
	case mask.Has(AttrNormal | AttrUV | AttrSkinIndex | AttrSkinWeight):
		if mask.Has(AttrEdgeRatio) {
			return build(FormatSkinnedEdge, skinnedEdgeAttrs), nil
		}
		return build(FormatSkinned, skinnedAttrs), nil
	case mask.Has(AttrNormal | AttrUV):
		return build(FormatFull, fullAttrs), nil
	case mask.Has(AttrColor):
		return build(FormatColored, coloredAttrs), nil
	default:
		return build(FormatPosition, positionAttrs), nil
	}
}

// MaskFor returns the canonical attribute mask for a fixed format.
//
// Parameters:
//   - f: the format
//
// Returns:
//   - AttributeMask: the mask that LayoutFor maps back to f
func MaskFor(f Format) AttributeMask {
	switch f {
	case FormatPosition:
		return AttrPosition
	case FormatFull:
		return AttrPosition | AttrNormal | AttrUV
	case FormatColored:
		return AttrPosition | AttrColor
	case FormatSkinned:
		return AttrPosition | AttrNormal | AttrUV | AttrSkinIndex | AttrSkinWeight
	case FormatSkinnedEdge:
		return AttrPosition | AttrNormal | AttrUV | AttrSkinIndex | AttrSkinWeight | AttrEdgeRatio
	case FormatGLTF:
		return AttrGLTF | AttrPosition | AttrNormal | AttrUV | AttrColor | AttrSkinIndex | AttrSkinWeight
	default:
		return 0
	}
}

var (
	positionAttrs    = []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3}
	fullAttrs        = []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x2}
	coloredAttrs     = []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32x4}
	skinnedAttrs     = append(fullAttrs[:3:3], wgpu.VertexFormatUint32x4, wgpu.VertexFormatFloat32x4)
	skinnedEdgeAttrs = append(skinnedAttrs[:5:5], wgpu.VertexFormatFloat32)
	gltfAttrs        = []wgpu.VertexFormat{
		wgpu.VertexFormatFloat32x3, // position
		wgpu.VertexFormatFloat32x3, // normal
		wgpu.VertexFormatFloat32x2, // uv0
		wgpu.VertexFormatFloat32x2, // uv1
		wgpu.VertexFormatFloat32x4, // color
		wgpu.VertexFormatUint32x4,  // joints
		wgpu.VertexFormatFloat32x4, // weights
		wgpu.VertexFormatFloat32x4, // tangent
	}
)

// formatSizes maps the vertex formats used above to their byte sizes.
var formatSizes = map[wgpu.VertexFormat]uint64{
	wgpu.VertexFormatFloat32:   4,
	wgpu.VertexFormatFloat32x2: 8,
	wgpu.VertexFormatFloat32x3: 12,
	wgpu.VertexFormatFloat32x4: 16,
	wgpu.VertexFormatUint32x4:  16,
}

// build packs formats tightly in order, assigning shader locations from 0.
func build(f Format, formats []wgpu.VertexFormat) Layout {
	attrs := make([]wgpu.VertexAttribute, len(formats))
	var offset uint64
	for i, vf := range formats {
		attrs[i] = wgpu.VertexAttribute{
			Format:         vf,
			Offset:         offset,
			ShaderLocation: uint32(i),
		}
		offset += formatSizes[vf]
	}
	return Layout{Format: f, Stride: offset, Attributes: attrs}
}
