package kernel

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, face normals has 3 floats per triangle,
// indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices    []float32 `json:"vertices"`    // [x0,y0,z0, x1,y1,z1, ...]
	Normals     []float32 `json:"normals"`     // [nx0,ny0,nz0, ...]
	FaceNormals []float32 `json:"faceNormals"` // one normal per triangle
	Indices     []uint32  `json:"indices"`     // [i0,i1,i2, ...] triangles
	PartName    string    `json:"partName"`    // which scene node this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) [3]float32 {
	return [3]float32{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]}
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) [3]uint32 {
	return [3]uint32{m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]}
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	return &Mesh{
		Vertices:    append([]float32(nil), m.Vertices...),
		Normals:     append([]float32(nil), m.Normals...),
		FaceNormals: append([]float32(nil), m.FaceNormals...),
		Indices:     append([]uint32(nil), m.Indices...),
		PartName:    m.PartName,
	}
}

// builder accumulates vertices and triangles while a shape is tessellated.
type builder struct {
	vertices []float32
	indices  []uint32
}

func newBuilder(vertexCount, triangleCount int) *builder {
	return &builder{
		vertices: make([]float32, 0, vertexCount*3),
		indices:  make([]uint32, 0, triangleCount*3),
	}
}

// vertex appends a vertex and returns its index.
func (b *builder) vertex(x, y, z float32) uint32 {
	b.vertices = append(b.vertices, x, y, z)
	return uint32(len(b.vertices)/3 - 1)
}

func (b *builder) triangle(i0, i1, i2 uint32) {
	b.indices = append(b.indices, i0, i1, i2)
}

// mesh finishes the build, deriving normals from the triangle winding.
func (b *builder) mesh() *Mesh {
	return &Mesh{
		Vertices:    b.vertices,
		Normals:     computeVertexNormals(b.vertices, b.indices),
		FaceNormals: computeFaceNormals(b.vertices, b.indices),
		Indices:     b.indices,
	}
}
