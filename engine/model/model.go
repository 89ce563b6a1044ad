package model

import (
	"github.com/Carmen-Shannon/oxy-pipes/engine/renderer/vertex_layout"
)

// geometry is the implementation of the Geometry interface.
type geometry struct {
	name           string
	vertexCount    int
	hasNormals     bool
	hasUVs         bool
	hasColors      bool
	skinned        bool
	edgeRatio      bool
	gltf           bool
	format         vertex_layout.Format
	formatSet      bool
	vertexData     []byte
	indexData      []byte
	indexCount     int
	boundingRadius float32
}

// Geometry describes the vertex data of a renderable. Its attribute flags decide the vertex
// format, and so the vertex layout, of the pipeline that draws it.
type Geometry interface {
	// Name retrieves the geometry identifier.
	//
	// Returns:
	//   - string: the name of the geometry
	Name() string

	// VertexCount returns the number of vertices.
	VertexCount() int

	// HasNormals reports whether the vertices carry normals.
	HasNormals() bool

	// HasUVs reports whether the vertices carry texture coordinates.
	HasUVs() bool

	// HasColors reports whether the vertices carry RGBA colors.
	HasColors() bool

	// Skinned reports whether the vertices carry bone indices and weights.
	Skinned() bool

	// Format returns the vertex format. An explicit WithFormat wins; otherwise the format is
	// picked from the attribute flags: GLTF, skinned (with edge ratio), full, colored, position.
	//
	// Returns:
	//   - vertex_layout.Format: the vertex format
	Format() vertex_layout.Format

	// AttributeMask returns the attribute bitmask of Format.
	AttributeMask() vertex_layout.AttributeMask

	// VertexData retrieves the serialized vertex buffer contents.
	//
	// Returns:
	//   - []byte: the vertex data, whose stride matches Format
	VertexData() []byte

	// IndexData retrieves the serialized index buffer contents.
	//
	// Returns:
	//   - []byte: the index data as little-endian uint32, or nil for non-indexed draws
	IndexData() []byte

	// IndexCount returns the number of indices, 0 for non-indexed draws.
	IndexCount() int

	// BoundingRadius retrieves the bounding sphere radius around the origin.
	BoundingRadius() float32
}

var _ Geometry = &geometry{}

// NewGeometry creates a Geometry configured with the provided options.
//
// Parameters:
//   - options: a variadic list of GeometryBuilderOption functions to configure the Geometry
//
// Returns:
//   - Geometry: the new Geometry
func NewGeometry(options ...GeometryBuilderOption) Geometry {
	g := &geometry{}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// NewStaticGeometry creates a lit, textured-capable geometry from full vertices.
//
// Parameters:
//   - name: the geometry name
//   - vertices: the vertices
//   - indices: the triangle indices, nil for non-indexed draws
//
// Returns:
//   - Geometry: the geometry in the full vertex format
func NewStaticGeometry(name string, vertices []*GPUVertex, indices []uint32) Geometry {
	return NewGeometry(
		WithName(name),
		WithNormals(true),
		WithUVs(true),
		WithVertices(vertices),
		WithIndices(indices),
	)
}

// NewSkinnedGeometry creates a skinned geometry.
//
// Parameters:
//   - name: the geometry name
//   - vertices: the vertices
//   - indices: the triangle indices
//
// Returns:
//   - Geometry: the geometry in the skinned vertex format
func NewSkinnedGeometry(name string, vertices []*GPUSkinnedVertex, indices []uint32) Geometry {
	return NewGeometry(
		WithName(name),
		WithNormals(true),
		WithUVs(true),
		WithSkinned(true),
		WithVertices(vertices),
		WithIndices(indices),
	)
}

func (g *geometry) Name() string {
	return g.name
}

func (g *geometry) VertexCount() int {
	return g.vertexCount
}

func (g *geometry) HasNormals() bool {
	return g.hasNormals
}

func (g *geometry) HasUVs() bool {
	return g.hasUVs
}

func (g *geometry) HasColors() bool {
	return g.hasColors
}

func (g *geometry) Skinned() bool {
	return g.skinned
}

func (g *geometry) Format() vertex_layout.Format {
	switch {
	case g.formatSet:
		return g.format
	case g.gltf:
		return vertex_layout.FormatGLTF
	case g.skinned && g.edgeRatio:
		return vertex_layout.FormatSkinnedEdge
	case g.skinned:
		return vertex_layout.FormatSkinned
	case g.hasNormals && g.hasUVs:
		return vertex_layout.FormatFull
	case g.hasColors:
		return vertex_layout.FormatColored
	default:
		return vertex_layout.FormatPosition
	}
}

func (g *geometry) AttributeMask() vertex_layout.AttributeMask {
	return vertex_layout.MaskFor(g.Format())
}

func (g *geometry) VertexData() []byte {
	return g.vertexData
}

func (g *geometry) IndexData() []byte {
	return g.indexData
}

func (g *geometry) IndexCount() int {
	return g.indexCount
}

func (g *geometry) BoundingRadius() float32 {
	return g.boundingRadius
}
