package vertex_layout

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offsets(l Layout) []uint64 {
	out := make([]uint64, len(l.Attributes))
	for i, a := range l.Attributes {
		out[i] = a.Offset
	}
	return out
}

func TestLayoutFor_FixedFormats(t *testing.T) {
	tests := []struct {
		name    string
		mask    AttributeMask
		format  Format
		stride  uint64
		offsets []uint64
	}{
		{"position", AttrPosition, FormatPosition, 12, []uint64{0}},
		{"full", AttrPosition | AttrNormal | AttrUV, FormatFull, 32, []uint64{0, 12, 24}},
		{"colored", AttrPosition | AttrColor, FormatColored, 28, []uint64{0, 12}},
		{"skinned", MaskFor(FormatSkinned), FormatSkinned, 64, []uint64{0, 12, 24, 32, 48}},
		{"skinned edge", MaskFor(FormatSkinnedEdge), FormatSkinnedEdge, 68, []uint64{0, 12, 24, 32, 48, 64}},
		{"gltf", MaskFor(FormatGLTF), FormatGLTF, 104, []uint64{0, 12, 24, 32, 40, 56, 72, 88}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := LayoutFor(tt.mask)
			require.NoError(t, err)
			assert.Equal(t, tt.format, l.Format)
			assert.Equal(t, tt.stride, l.Stride)
			assert.Equal(t, tt.offsets, offsets(l))
			for i, a := range l.Attributes {
				assert.Equal(t, uint32(i), a.ShaderLocation, "locations are sequential")
			}
			require.Len(t, l.Buffers(), 1)
			assert.Equal(t, tt.stride, l.Buffers()[0].ArrayStride)
		})
	}
}

func TestLayoutFor_SkinWeightAt48(t *testing.T) {
	l, err := LayoutFor(MaskFor(FormatSkinned))
	require.NoError(t, err)

	off, ok := l.Offset(4)
	require.True(t, ok)
	assert.Equal(t, uint64(48), off)
	assert.Equal(t, wgpu.VertexFormatFloat32x4, l.Attributes[4].Format)
	assert.Equal(t, wgpu.VertexFormatUint32x4, l.Attributes[3].Format)
}

func TestLayoutFor_Priority(t *testing.T) {
	// GLTF wins over everything else
	l, err := LayoutFor(AttrGLTF | AttrPosition)
	require.NoError(t, err)
	assert.Equal(t, FormatGLTF, l.Format)

	// full wins over colored
	l, err = LayoutFor(AttrPosition | AttrNormal | AttrUV | AttrColor)
	require.NoError(t, err)
	assert.Equal(t, FormatFull, l.Format)

	// normal without uv falls back to position only
	l, err = LayoutFor(AttrPosition | AttrNormal)
	require.NoError(t, err)
	assert.Equal(t, FormatPosition, l.Format)
}

func TestLayoutFor_Empty(t *testing.T) {
	l, err := LayoutFor(0)
	require.NoError(t, err)
	assert.Equal(t, FormatNone, l.Format)
	assert.Empty(t, l.Buffers())
}

func TestLayoutFor_Unsupported(t *testing.T) {
	_, err := LayoutFor(AttrNormal | AttrUV)
	assert.ErrorIs(t, err, ErrUnsupportedMask)
}

func TestLayoutFor_IncompleteSkinFallsThrough(t *testing.T) {
	cases := []struct {
		name string
		mask AttributeMask
		want Format
	}{
		{"position with skin", AttrPosition | AttrSkinIndex | AttrSkinWeight, FormatPosition},
		{"colored with skin", AttrPosition | AttrColor | AttrSkinIndex, FormatColored},
		{"full with weights only", AttrPosition | AttrNormal | AttrUV | AttrSkinWeight, FormatFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := LayoutFor(tc.mask)
			require.NoError(t, err)
			assert.Equal(t, tc.want, l.Format)
		})
	}
}

func TestMaskFor_RoundTrip(t *testing.T) {
	for _, f := range []Format{FormatNone, FormatPosition, FormatFull, FormatColored, FormatSkinned, FormatSkinnedEdge, FormatGLTF} {
		l, err := LayoutFor(MaskFor(f))
		require.NoError(t, err)
		assert.Equal(t, f, l.Format, f.String())
	}
}
