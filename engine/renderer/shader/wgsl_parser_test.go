package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestStructSize(t *testing.T) {
	src := `
struct Light {
    position: vec3<f32>,
    intensity: f32,
    color: vec4<f32>,
}
// struct Ignored { a: f32 }
struct Scene {
    lights: array<Light, 4>,
    count: u32,
}
struct Input {
    @builtin(vertex_index) idx: u32,
    @location(0) uv: vec2<f32>,
}
struct Unknown {
    m: SomethingElse,
}
`
	tests := []struct {
		name string
		want uint64
		ok   bool
	}{
		{"Light", 32, true},
		{"Scene", 144, true},
		{"Input", 8, true},
		{"Ignored", 0, false},
		{"Unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StructSize(src, tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEntryPoints(t *testing.T) {
	src := `
@vertex
fn vs_main() {}
/* @fragment fn commented() {} */
@fragment fn fs_a() {}
@fragment fn fs_b() {}
@compute @workgroup_size(1) fn cs() {}
fn helper() {}
`
	got := parseEntryPoints(src)
	assert.Equal(t, []string{"vs_main"}, got[ShaderTypeVertex])
	assert.Equal(t, []string{"fs_a", "fs_b"}, got[ShaderTypeFragment])
	assert.Equal(t, []string{"cs"}, got[ShaderTypeCompute])
}

func TestParseWorkgroupSize(t *testing.T) {
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("fn main() {}"))
	assert.Equal(t, [3]uint32{8, 1, 1}, parseWorkgroupSize("@compute @workgroup_size(8) fn main() {}"))
	assert.Equal(t, [3]uint32{8, 4, 2}, parseWorkgroupSize("@compute @workgroup_size(8, 4, 2) fn main() {}"))
}

func TestParseBindGroupLayouts(t *testing.T) {
	src := `
@group(0) @binding(1) var<storage, read> lights: array<vec4<f32>>;
@group(0) @binding(0) var<uniform> count: u32;
@group(1) @binding(0) var shadow: texture_depth_2d;
@group(1) @binding(1) var shadow_sampler: sampler_comparison;
@group(1) @binding(2) var ids: texture_2d<u32>;
`
	got := parseBindGroupLayouts(src, wgpu.ShaderStageFragment)

	g0 := got[0].Entries
	assert.Len(t, g0, 2)
	assert.Equal(t, uint32(0), g0[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, g0[0].Buffer.Type)
	assert.Equal(t, uint64(4), g0[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, g0[1].Buffer.Type)
	assert.Equal(t, uint64(16), g0[1].Buffer.MinBindingSize)

	g1 := got[1].Entries
	assert.Len(t, g1, 3)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, g1[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, g1[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, g1[1].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeUint, g1[2].Texture.SampleType)
	for _, e := range g1 {
		assert.Equal(t, wgpu.ShaderStageFragment, e.Visibility)
	}
}

func TestStripComments_PreservesLines(t *testing.T) {
	src := "a // x\n/* b\n /* nested */ c\n*/d"
	assert.Equal(t, "a \n\n\nd", stripComments(src))
}
