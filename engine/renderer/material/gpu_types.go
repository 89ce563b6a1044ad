package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Bits of GPUMaterialParams.Flags.
const (
	FlagAlphaMask uint32 = 1 << iota
	FlagDiffuseTexture
	FlagNormalTexture
	FlagMetallicRoughnessTexture
)

// GPUMaterialParamsSource is the canonical WGSL definition of the MaterialParams struct bound in
// the MATERIAL group. Matches GPUMaterialParams layout exactly (32 bytes).
const GPUMaterialParamsSource = `struct MaterialParams {
    base_color: vec4<f32>,
    metallic: f32,
    roughness: f32,
    alpha_cutoff: f32,
    flags: u32,
}
`

// GPUMaterialParams is the GPU-aligned material uniform.
// Matches the WGSL MaterialParams struct layout exactly (see GPUMaterialParamsSource).
// Size: 32 bytes (std140/std430 aligned, no padding required).
type GPUMaterialParams struct {
	BaseColor   [4]float32 // offset  0: albedo RGBA (16 bytes)
	Metallic    float32    // offset 16
	Roughness   float32    // offset 20
	AlphaCutoff float32    // offset 24: 0 unless alpha masked
	Flags       uint32     // offset 28: Flag* bits
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.BaseColor[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.BaseColor[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.BaseColor[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.BaseColor[3]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.AlphaCutoff))
	binary.LittleEndian.PutUint32(buf[28:32], g.Flags)
	return buf
}
