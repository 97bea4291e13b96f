package kernel

import (
	"github.com/chewxy/math32"
)

// faceNormal returns the unnormalized normal of triangle (i0, i1, i2),
// oriented by its counter-clockwise winding.
func faceNormal(vertices []float32, i0, i1, i2 uint32) (nx, ny, nz float32) {
	ax, ay, az := vertices[i0*3], vertices[i0*3+1], vertices[i0*3+2]
	bx, by, bz := vertices[i1*3], vertices[i1*3+1], vertices[i1*3+2]
	cx, cy, cz := vertices[i2*3], vertices[i2*3+1], vertices[i2*3+2]

	// Edge vectors.
	e1x, e1y, e1z := bx-ax, by-ay, bz-az
	e2x, e2y, e2z := cx-ax, cy-ay, cz-az

	nx = e1y*e2z - e1z*e2y
	ny = e1z*e2x - e1x*e2z
	nz = e1x*e2y - e1y*e2x
	return nx, ny, nz
}

// normalize3 scales (x, y, z) to unit length in place.
// Degenerate vectors are left as they are.
func normalize3(v []float32) {
	length := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if length > 1e-12 {
		v[0] /= length
		v[1] /= length
		v[2] /= length
	}
}

// computeFaceNormals returns one unit normal per triangle.
func computeFaceNormals(vertices []float32, indices []uint32) []float32 {
	numTris := len(indices) / 3
	normals := make([]float32, numTris*3)
	for t := 0; t < numTris; t++ {
		nx, ny, nz := faceNormal(vertices, indices[t*3], indices[t*3+1], indices[t*3+2])
		normals[t*3+0], normals[t*3+1], normals[t*3+2] = nx, ny, nz
		normalize3(normals[t*3 : t*3+3])
	}
	return normals
}

// computeVertexNormals generates per-vertex normals by averaging the face normals
// of all triangles incident on each vertex.
func computeVertexNormals(vertices []float32, indices []uint32) []float32 {
	numVerts := len(vertices) / 3
	normals := make([]float32, numVerts*3)

	numTris := len(indices) / 3
	for t := 0; t < numTris; t++ {
		i0, i1, i2 := indices[t*3], indices[t*3+1], indices[t*3+2]
		nx, ny, nz := faceNormal(vertices, i0, i1, i2)

		// Accumulate into each vertex of this triangle.
		for _, idx := range []uint32{i0, i1, i2} {
			normals[idx*3+0] += nx
			normals[idx*3+1] += ny
			normals[idx*3+2] += nz
		}
	}

	for i := 0; i < numVerts; i++ {
		normalize3(normals[i*3 : i*3+3])
	}
	return normals
}
