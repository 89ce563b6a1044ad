package model

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Vertex is a GPU vertex struct that serializes to the stride of its vertex format.
type Vertex interface {
	Size() int
	Marshal() []byte
	position() [3]float32
}

// putFloats writes vals as little-endian float32 starting at off and returns the next offset.
func putFloats(buf []byte, off int, vals ...float32) int {
	for _, v := range vals {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return off
}

// putUints writes vals as little-endian uint32 starting at off and returns the next offset.
func putUints(buf []byte, off int, vals ...uint32) int {
	for _, v := range vals {
		binary.LittleEndian.PutUint32(buf[off:off+4], v)
		off += 4
	}
	return off
}

// GPUPositionVertex is a position-only vertex.
// Size: 12 bytes.
type GPUPositionVertex struct {
	Position [3]float32 // offset 0
}

// Size returns the size of the GPUPositionVertex struct in bytes.
func (g *GPUPositionVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the vertex into a 12-byte buffer suitable for GPU upload.
func (g *GPUPositionVertex) Marshal() []byte {
	buf := make([]byte, 12)
	putFloats(buf, 0, g.Position[:]...)
	return buf
}

func (g *GPUPositionVertex) position() [3]float32 {
	return g.Position
}

// GPUVertex is the GPU-aligned representation of a single mesh vertex for static lit models.
// Size: 32 bytes (no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 32)
	off := putFloats(buf, 0, g.Position[:]...)
	off = putFloats(buf, off, g.Normal[:]...)
	putFloats(buf, off, g.TexCoord[:]...)
	return buf
}

func (g *GPUVertex) position() [3]float32 {
	return g.Position
}

// GPUColoredVertex is a position and RGBA color vertex for unlit debug and UI geometry.
// Size: 28 bytes.
type GPUColoredVertex struct {
	Position [3]float32 // offset  0
	Color    [4]float32 // offset 12
}

// Size returns the size of the GPUColoredVertex struct in bytes.
func (g *GPUColoredVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the vertex into a 28-byte buffer suitable for GPU upload.
func (g *GPUColoredVertex) Marshal() []byte {
	buf := make([]byte, 28)
	off := putFloats(buf, 0, g.Position[:]...)
	putFloats(buf, off, g.Color[:]...)
	return buf
}

func (g *GPUColoredVertex) position() [3]float32 {
	return g.Position
}

// GPUSkinnedVertex is the GPU-aligned representation of a single mesh vertex for skinned (bone-animated) models.
// It extends GPUVertex with per-vertex bone skinning data.
// Size: 64 bytes (32 base vertex + 32 skinning data, no padding required).
type GPUSkinnedVertex struct {
	GPUVertex              // offset  0: base vertex data (position, normal, uv), 32 bytes
	BoneIndices [4]uint32  // offset 32: indices of up to 4 influencing bones (16 bytes)
	BoneWeights [4]float32 // offset 48: blend weights for each bone (must sum to 1.0) (16 bytes)
}

// Size returns the size of the GPUSkinnedVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUSkinnedVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSkinnedVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUSkinnedVertex) Marshal() []byte {
	buf := make([]byte, 64)
	copy(buf, g.GPUVertex.Marshal())
	off := putUints(buf, 32, g.BoneIndices[:]...)
	putFloats(buf, off, g.BoneWeights[:]...)
	return buf
}

// GPUSkinnedEdgeVertex is a skinned vertex with the per-vertex outline scale used by edge passes.
// Size: 68 bytes.
type GPUSkinnedEdgeVertex struct {
	GPUSkinnedVertex         // offset  0: 64 bytes
	EdgeRatio        float32 // offset 64
}

// Size returns the size of the GPUSkinnedEdgeVertex struct in bytes.
func (g *GPUSkinnedEdgeVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the vertex into a 68-byte buffer suitable for GPU upload.
func (g *GPUSkinnedEdgeVertex) Marshal() []byte {
	buf := make([]byte, 68)
	copy(buf, g.GPUSkinnedVertex.Marshal())
	putFloats(buf, 64, g.EdgeRatio)
	return buf
}

// GPUGLTFVertex is the fixed vertex used by every GLTF pipeline.
// Size: 104 bytes.
type GPUGLTFVertex struct {
	Position [3]float32 // offset   0
	Normal   [3]float32 // offset  12
	UV0      [2]float32 // offset  24
	UV1      [2]float32 // offset  32
	Color    [4]float32 // offset  40
	Joints   [4]uint32  // offset  56
	Weights  [4]float32 // offset  72
	Tangent  [4]float32 // offset  88: xyz + handedness
}

// Size returns the size of the GPUGLTFVertex struct in bytes.
func (g *GPUGLTFVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the vertex into a 104-byte buffer suitable for GPU upload.
func (g *GPUGLTFVertex) Marshal() []byte {
	buf := make([]byte, 104)
	off := putFloats(buf, 0, g.Position[:]...)
	off = putFloats(buf, off, g.Normal[:]...)
	off = putFloats(buf, off, g.UV0[:]...)
	off = putFloats(buf, off, g.UV1[:]...)
	off = putFloats(buf, off, g.Color[:]...)
	off = putUints(buf, off, g.Joints[:]...)
	off = putFloats(buf, off, g.Weights[:]...)
	putFloats(buf, off, g.Tangent[:]...)
	return buf
}

func (g *GPUGLTFVertex) position() [3]float32 {
	return g.Position
}

// Pack serializes vertices back to back.
//
// Parameters:
//   - vertices: the vertices, all of one type
//
// Returns:
//   - []byte: the vertex buffer contents
func Pack[V Vertex](vertices []V) []byte {
	if len(vertices) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(vertices)*vertices[0].Size())
	for _, v := range vertices {
		buf = append(buf, v.Marshal()...)
	}
	return buf
}

// ComputeBoundingRadius calculates the bounding sphere radius from vertex positions.
// The radius is the maximum distance from the origin across all vertices in the slice.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius[V Vertex](vertices []V) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.position()
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return float32(math.Sqrt(float64(maxDistSq)))
}
