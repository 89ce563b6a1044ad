package model

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
)

// GeometryBuilderOption is a function that configures a Geometry during construction.
type GeometryBuilderOption func(*geometry)

// WithName is an option builder that sets the name of the geometry.
//
// Parameters:
//   - name: the identifier for the geometry
//
// Returns:
//   - GeometryBuilderOption: a function that applies the name option to a geometry
func WithName(name string) GeometryBuilderOption {
	return func(g *geometry) {
		g.name = name
	}
}

// WithNormals marks the vertices as carrying normals.
func WithNormals(has bool) GeometryBuilderOption {
	return func(g *geometry) {
		g.hasNormals = has
	}
}

// WithUVs marks the vertices as carrying texture coordinates.
func WithUVs(has bool) GeometryBuilderOption {
	return func(g *geometry) {
		g.hasUVs = has
	}
}

// WithColors marks the vertices as carrying RGBA colors.
func WithColors(has bool) GeometryBuilderOption {
	return func(g *geometry) {
		g.hasColors = has
	}
}

// WithSkinned is an option builder that marks the geometry as skinned.
//
// Parameters:
//   - skinned: true if the vertices carry bone indices and weights
//
// Returns:
//   - GeometryBuilderOption: a function that applies the skinned option to a geometry
func WithSkinned(skinned bool) GeometryBuilderOption {
	return func(g *geometry) {
		g.skinned = skinned
	}
}

// WithEdgeRatio marks skinned vertices as carrying an outline scale.
func WithEdgeRatio(has bool) GeometryBuilderOption {
	return func(g *geometry) {
		g.edgeRatio = has
	}
}

// WithGLTF marks the vertices as the fixed GLTF vertex.
func WithGLTF(gltf bool) GeometryBuilderOption {
	return func(g *geometry) {
		g.gltf = gltf
	}
}

// WithFormat is an option builder that sets the vertex format explicitly, overriding the
// format picked from the attribute flags. FormatNone describes fullscreen draws without vertex
// buffers.
//
// Parameters:
//   - format: the vertex format
//
// Returns:
//   - GeometryBuilderOption: a function that applies the format option to a geometry
func WithFormat(format vertex_layout.Format) GeometryBuilderOption {
	return func(g *geometry) {
		g.format = format
		g.formatSet = true
	}
}

// WithVertexCount sets the vertex count of geometry without vertex data, e.g. a fullscreen
// triangle generated in the vertex shader.
func WithVertexCount(n int) GeometryBuilderOption {
	return func(g *geometry) {
		g.vertexCount = n
	}
}

// WithVertexData is an option builder that sets serialized vertex data.
//
// Parameters:
//   - data: the vertex buffer contents
//   - count: the number of vertices in data
//
// Returns:
//   - GeometryBuilderOption: a function that applies the vertex data option to a geometry
func WithVertexData(data []byte, count int) GeometryBuilderOption {
	return func(g *geometry) {
		g.vertexData = data
		g.vertexCount = count
	}
}

// WithVertices packs typed vertices and sets the vertex count and bounding radius.
//
// Parameters:
//   - vertices: the vertices, all of one type
//
// Returns:
//   - GeometryBuilderOption: a function that applies the vertices to a geometry
func WithVertices[V Vertex](vertices []V) GeometryBuilderOption {
	return func(g *geometry) {
		g.vertexData = Pack(vertices)
		g.vertexCount = len(vertices)
		g.boundingRadius = ComputeBoundingRadius(vertices)
	}
}

// WithIndices is an option builder that sets the triangle indices.
//
// Parameters:
//   - indices: the indices, serialized as little-endian uint32
//
// Returns:
//   - GeometryBuilderOption: a function that applies the index option to a geometry
func WithIndices(indices []uint32) GeometryBuilderOption {
	return func(g *geometry) {
		if len(indices) == 0 {
			g.indexData, g.indexCount = nil, 0
			return
		}
		buf := make([]byte, 4*len(indices))
		for i, idx := range indices {
			binary.LittleEndian.PutUint32(buf[i*4:], idx)
		}
		g.indexData = buf
		g.indexCount = len(indices)
	}
}

// WithBoundingRadius is an option builder that sets the bounding sphere radius.
//
// Parameters:
//   - radius: the radius around the origin
//
// Returns:
//   - GeometryBuilderOption: a function that applies the radius option to a geometry
func WithBoundingRadius(radius float32) GeometryBuilderOption {
	return func(g *geometry) {
		g.boundingRadius = radius
	}
}
