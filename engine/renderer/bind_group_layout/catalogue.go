package bind_group_layout

import "github.com/cogentcore/webgpu/wgpu"

// Canonical layout names. Each family binds a fixed ordered subset of these at @group(0..n).
const (
	Time             = "TIME"
	MVP              = "MVP"
	Texture          = "TEXTURE"
	Material         = "MATERIAL"
	Lighting         = "LIGHTING"
	SkinnedMaterial  = "SKINNED_MATERIAL"
	SkinnedAnimation = "SKINNED_ANIMATION"
	GLTFPBRMaterial  = "GLTF_PBR_MATERIAL"
)

// GLTF PBR texture slots in binding order. Texture i is at binding 1+2i and its sampler at 2+2i.
const (
	GLTFBaseColor = iota
	GLTFMetallicRoughness
	GLTFNormal
	GLTFOcclusion
	GLTFEmissive
	gltfTextureCount
)

const stageVertexFragment = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

func uniformEntry(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
	entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	return entry
}

func storageEntry(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
	entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	return entry
}

func textureEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: wgpu.ShaderStageFragment}
	entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
	entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	return entry
}

func samplerEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: wgpu.ShaderStageFragment}
	entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	return entry
}

func gltfPBREntries() []wgpu.BindGroupLayoutEntry {
	entries := []wgpu.BindGroupLayoutEntry{uniformEntry(0, stageVertexFragment)}
	for i := range uint32(gltfTextureCount) {
		entries = append(entries, textureEntry(1+2*i), samplerEntry(2+2*i))
	}
	return entries
}

// defaultCatalogue returns fresh descriptors for every canonical layout.
func defaultCatalogue() map[string]*wgpu.BindGroupLayoutDescriptor {
	desc := func(label string, entries ...wgpu.BindGroupLayoutEntry) *wgpu.BindGroupLayoutDescriptor {
		return &wgpu.BindGroupLayoutDescriptor{Label: label, Entries: entries}
	}
	return map[string]*wgpu.BindGroupLayoutDescriptor{
		// elapsed time, delta time
		Time: desc(Time, uniformEntry(0, stageVertexFragment)),
		// model, view, projection matrices
		MVP: desc(MVP, uniformEntry(0, stageVertexFragment)),
		Texture: desc(Texture,
			textureEntry(0),
			samplerEntry(1),
		),
		Material: desc(Material, uniformEntry(0, stageVertexFragment)),
		// light array and count
		Lighting: desc(Lighting,
			storageEntry(0, wgpu.ShaderStageFragment),
			uniformEntry(1, wgpu.ShaderStageFragment),
		),
		// material uniform, diffuse, toon and sphere-map textures sharing one sampler
		SkinnedMaterial: desc(SkinnedMaterial,
			uniformEntry(0, stageVertexFragment),
			textureEntry(1),
			textureEntry(2),
			textureEntry(3),
			samplerEntry(4),
		),
		// bone matrices and morph weights
		SkinnedAnimation: desc(SkinnedAnimation,
			storageEntry(0, wgpu.ShaderStageVertex),
			storageEntry(1, wgpu.ShaderStageVertex),
		),
		GLTFPBRMaterial: desc(GLTFPBRMaterial, gltfPBREntries()...),
	}
}
