// Package tessellate walks a scene tree and produces world-space triangle
// meshes, one per node that carries geometry.
package tessellate

import (
	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Tessellate returns the geometry of every node under root, baked into world
// space at the nodes' current pose. Nodes are visited ancestors first. The
// tree is not modified.
func Tessellate(root *scene.Node) []*kernel.Mesh {
	if root == nil {
		return nil
	}
	var meshes []*kernel.Mesh
	root.ForEach(func(n *scene.Node) {
		if n.Mesh.IsEmpty() {
			return
		}
		m := ToWorld(n.Mesh, n.World())
		m.PartName = n.Name
		meshes = append(meshes, m)
	})
	return meshes
}

// ToWorld returns a copy of m transformed by world. Normals are transformed
// by the inverse transpose and renormalized; triangles are rewound when
// world mirrors the geometry so they stay counter-clockwise.
func ToWorld(m *kernel.Mesh, world mgl32.Mat4) *kernel.Mesh {
	out := m.Clone()

	for i := 0; i < len(out.Vertices); i += 3 {
		v := mgl32.TransformCoordinate(mgl32.Vec3{out.Vertices[i], out.Vertices[i+1], out.Vertices[i+2]}, world)
		out.Vertices[i], out.Vertices[i+1], out.Vertices[i+2] = v[0], v[1], v[2]
	}

	normalMat := world.Mat3().Inv().Transpose()
	transformNormals(out.Normals, normalMat)
	transformNormals(out.FaceNormals, normalMat)

	if world.Mat3().Det() < 0 {
		for t := 0; t+2 < len(out.Indices); t += 3 {
			out.Indices[t+1], out.Indices[t+2] = out.Indices[t+2], out.Indices[t+1]
		}
	}
	return out
}

func transformNormals(normals []float32, m mgl32.Mat3) {
	for i := 0; i+2 < len(normals); i += 3 {
		n := m.Mul3x1(mgl32.Vec3{normals[i], normals[i+1], normals[i+2]})
		if l := n.Len(); l > 1e-12 {
			n = n.Mul(1 / l)
		}
		normals[i], normals[i+1], normals[i+2] = n[0], n[1], n[2]
	}
}

// Bounds is an axis-aligned box.
type Bounds struct {
	Min mgl32.Vec3 `json:"min"`
	Max mgl32.Vec3 `json:"max"`
}

// Center returns the middle of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// MeshBounds returns the box around every vertex of meshes. ok is false
// when there are no vertices.
func MeshBounds(meshes []*kernel.Mesh) (b Bounds, ok bool) {
	b.Min = mgl32.Vec3{math32.Inf(1), math32.Inf(1), math32.Inf(1)}
	b.Max = mgl32.Vec3{math32.Inf(-1), math32.Inf(-1), math32.Inf(-1)}
	for _, m := range meshes {
		for i := 0; i+2 < len(m.Vertices); i += 3 {
			for axis := 0; axis < 3; axis++ {
				v := m.Vertices[i+axis]
				b.Min[axis] = math32.Min(b.Min[axis], v)
				b.Max[axis] = math32.Max(b.Max[axis], v)
			}
			ok = true
		}
	}
	if !ok {
		return Bounds{}, false
	}
	return b, true
}
