package kernel

// Cube is the axis-aligned cube spanning [-1, 1] on every axis.
type Cube struct{}

// cubeCorners lists the 8 corners of the cube.
var cubeCorners = [8][3]float32{
	{-1, -1, -1}, // 0
	{1, -1, -1},  // 1
	{1, 1, -1},   // 2
	{-1, 1, -1},  // 3
	{-1, -1, 1},  // 4
	{1, -1, 1},   // 5
	{1, 1, 1},    // 6
	{-1, 1, 1},   // 7
}

// cubeFaces lists the 6 faces as triangle pairs, counter-clockwise when
// viewed from outside, with the outward normal they share.
var cubeFaces = [6]struct {
	tris   [2][3]uint32
	normal [3]float32
}{
	{[2][3]uint32{{4, 5, 6}, {4, 6, 7}}, [3]float32{0, 0, 1}},  // front
	{[2][3]uint32{{1, 0, 3}, {1, 3, 2}}, [3]float32{0, 0, -1}}, // back
	{[2][3]uint32{{5, 1, 2}, {5, 2, 6}}, [3]float32{1, 0, 0}},  // right
	{[2][3]uint32{{0, 4, 7}, {0, 7, 3}}, [3]float32{-1, 0, 0}}, // left
	{[2][3]uint32{{7, 6, 2}, {7, 2, 3}}, [3]float32{0, 1, 0}},  // top
	{[2][3]uint32{{0, 1, 5}, {0, 5, 4}}, [3]float32{0, -1, 0}}, // bottom
}

// Name returns "Cube".
func (Cube) Name() string { return "Cube" }

// Geometry returns the 8-vertex, 12-triangle cube. Face normals are the
// exact axis normals; vertex normals average the incident triangles.
func (c Cube) Geometry() *Mesh {
	b := newBuilder(8, 12)
	for _, v := range cubeCorners {
		b.vertex(v[0], v[1], v[2])
	}

	faceNormals := make([]float32, 0, 12*3)
	for _, f := range cubeFaces {
		for _, tri := range f.tris {
			b.triangle(tri[0], tri[1], tri[2])
			faceNormals = append(faceNormals, f.normal[0], f.normal[1], f.normal[2])
		}
	}

	m := b.mesh()
	m.FaceNormals = faceNormals
	m.PartName = c.Name()
	return m
}
