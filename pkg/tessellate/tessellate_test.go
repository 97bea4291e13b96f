package tessellate_test

import (
	"testing"

	"github.com/chazu/mannequin/pkg/figure"
	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/chazu/mannequin/pkg/scene"
	"github.com/chazu/mannequin/pkg/shapes"
	"github.com/chazu/mannequin/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeNode(name string) *scene.Node {
	return scene.NewNode(name, scene.WithMesh(kernel.Cube{}.Geometry()))
}

func vertex(m *kernel.Mesh, i int) mgl32.Vec3 {
	v := m.Vertex(i)
	return mgl32.Vec3{v[0], v[1], v[2]}
}

func TestTessellateNil(t *testing.T) {
	assert.Nil(t, tessellate.Tessellate(nil))
}

func TestTessellateSkipsEmptyNodes(t *testing.T) {
	root := scene.NewNode("group")
	require.NoError(t, root.AddChild(scene.NewNode("empty")))
	assert.Empty(t, tessellate.Tessellate(root))
}

func TestTessellateWorldSpace(t *testing.T) {
	root := scene.NewNode("root")
	root.Transform().SetPosition(2, 0, 0)
	child := cubeNode("box")
	child.Transform().SetScale(0.5, 0.5, 0.5)
	require.NoError(t, root.AddChild(child))

	meshes := tessellate.Tessellate(root)
	require.Len(t, meshes, 1)
	m := meshes[0]
	assert.Equal(t, "box", m.PartName)
	assert.Equal(t, child.Mesh.VertexCount(), m.VertexCount())
	assert.Equal(t, child.Mesh.TriangleCount(), m.TriangleCount())

	world := child.World()
	for i := 0; i < m.VertexCount(); i++ {
		want := mgl32.TransformCoordinate(vertex(child.Mesh, i), world)
		assert.True(t, want.ApproxEqualThreshold(vertex(m, i), 1e-5), "vertex %d", i)
	}

	b, ok := tessellate.MeshBounds(meshes)
	require.True(t, ok)
	assert.True(t, b.Min.ApproxEqualThreshold(mgl32.Vec3{1.5, -0.5, -0.5}, 1e-5), "min %v", b.Min)
	assert.True(t, b.Max.ApproxEqualThreshold(mgl32.Vec3{2.5, 0.5, 0.5}, 1e-5), "max %v", b.Max)
	assert.True(t, b.Center().ApproxEqualThreshold(mgl32.Vec3{2, 0, 0}, 1e-5))
	assert.True(t, b.Size().ApproxEqualThreshold(mgl32.Vec3{1, 1, 1}, 1e-5))

	// Local geometry is untouched.
	assert.Equal(t, kernel.Cube{}.Geometry().Vertices, child.Mesh.Vertices)
}

func TestTessellateNormalsStayUnit(t *testing.T) {
	n := cubeNode("box")
	n.Transform().SetScale(3, 1, 0.2)
	n.Transform().SetRotation(0.3, 0.6, 0)

	m := tessellate.Tessellate(n)[0]
	for i := 0; i+2 < len(m.Normals); i += 3 {
		l := mgl32.Vec3{m.Normals[i], m.Normals[i+1], m.Normals[i+2]}.Len()
		assert.InDelta(t, 1, l, 1e-5)
	}
}

func TestTessellateMirroredKeepsWinding(t *testing.T) {
	n := cubeNode("box")
	n.Transform().SetScale(-1, 1, 1)

	m := tessellate.Tessellate(n)[0]
	for tri := 0; tri < m.TriangleCount(); tri++ {
		idx := m.Triangle(tri)
		a, b, c := vertex(m, int(idx[0])), vertex(m, int(idx[1])), vertex(m, int(idx[2]))
		wound := b.Sub(a).Cross(c.Sub(a))
		face := mgl32.Vec3{m.FaceNormals[tri*3], m.FaceNormals[tri*3+1], m.FaceNormals[tri*3+2]}
		assert.Greater(t, wound.Dot(face), float32(0), "triangle %d", tri)
	}
}

func TestTessellateFigure(t *testing.T) {
	f := figure.Assemble(shapes.DefaultContext(), figure.Options{CylinderSlices: 6, SphereSlices: 6, SphereStacks: 3})
	meshes := tessellate.Tessellate(f.Root)
	require.Len(t, meshes, len(f.JointNames()))

	names := make(map[string]bool)
	for _, m := range meshes {
		names[m.PartName] = true
	}
	for _, j := range f.JointNames() {
		assert.True(t, names[j], j)
	}

	// A six-sided cylinder: two rings plus two caps.
	torso, err := f.Part(figure.Torso)
	require.NoError(t, err)
	assert.Equal(t, 14, torso.Mesh.VertexCount())
	assert.Equal(t, 24, torso.Mesh.TriangleCount())

	// Feet reach below the hips.
	b, ok := tessellate.MeshBounds(meshes)
	require.True(t, ok)
	assert.Less(t, b.Min.Y(), float32(-2.5))
}

func TestMeshBoundsEmpty(t *testing.T) {
	_, ok := tessellate.MeshBounds(nil)
	assert.False(t, ok)
}
