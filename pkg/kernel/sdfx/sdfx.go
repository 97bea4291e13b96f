// Package sdfx provides rounded shape variants built on the
// github.com/deadsy/sdfx SDF library. The variants register themselves
// with the kernel dispatcher on import.
//
// Every variant fits the unit cube [-1, 1] with its long axis on Y, matching
// the procedural primitives, so it can replace one in a figure without
// changing the surrounding transforms.
package sdfx

import (
	"math"

	"github.com/chazu/mannequin/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

// Shape kinds registered by this package.
const (
	KindRoundedCube     kernel.Kind = "rounded-cube"
	KindRoundedCylinder kernel.Kind = "rounded-cylinder"
	KindCapsule         kernel.Kind = "capsule"
)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 40

// defaultRound is the edge radius used when Params.Round is zero.
const defaultRound = 0.2

func init() {
	kernel.Register(KindRoundedCube, func(p kernel.Params) (kernel.Shape, error) {
		return asShape(NewRoundedCube(p.Round, p.Slices))
	})
	kernel.Register(KindRoundedCylinder, func(p kernel.Params) (kernel.Shape, error) {
		return asShape(NewRoundedCylinder(p.Round, p.Slices))
	})
	kernel.Register(KindCapsule, func(p kernel.Params) (kernel.Shape, error) {
		return asShape(NewCapsule(p.Slices))
	})
}

func asShape(s *Solid, err error) (kernel.Shape, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Solid is a shape variant backed by a signed distance field.
type Solid struct {
	name  string
	s     sdf.SDF3
	cells int
}

// Name returns the display name of the variant.
func (s *Solid) Name() string { return s.name }

// BoundingBox returns the axis-aligned bounding box of the field.
func (s *Solid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Geometry converts the field to a triangle mesh using marching cubes.
// Triangles do not share vertices, so every vertex carries its face normal.
func (s *Solid) Geometry() *kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(s.cells)
	triangles := render.ToTriangles(s.s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	faceNormals := make([]float32, 0, numTri*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)
		faceNormals = append(faceNormals, nx, ny, nz)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices:    vertices,
		Normals:     normals,
		FaceNormals: faceNormals,
		Indices:     indices,
		PartName:    s.name,
	}
}

func cellsOrDefault(cells int) int {
	if cells <= 0 {
		return defaultMeshCells
	}
	return cells
}

func roundOrDefault(round float64) (float64, error) {
	if round == 0 {
		return defaultRound, nil
	}
	if round < 0 || round >= 1 {
		return 0, errors.Wrapf(kernel.ErrInvalidParams, "sdfx: round %v outside (0, 1)", round)
	}
	return round, nil
}

// yUp turns a field whose long axis is Z so that it lies along Y.
func yUp(s sdf.SDF3) sdf.SDF3 {
	return sdf.Transform3D(s, sdf.RotateX(math.Pi/2))
}

// NewRoundedCube returns a cube spanning [-1, 1] with edges rounded by round.
func NewRoundedCube(round float64, cells int) (*Solid, error) {
	round, err := roundOrDefault(round)
	if err != nil {
		return nil, err
	}
	s, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, round)
	if err != nil {
		return nil, errors.Wrap(kernel.ErrInvalidParams, err.Error())
	}
	return &Solid{name: "Rounded Cube", s: s, cells: cellsOrDefault(cells)}, nil
}

// NewRoundedCylinder returns a unit-radius cylinder spanning y = -1 to
// y = +1 with its rims rounded by round.
func NewRoundedCylinder(round float64, cells int) (*Solid, error) {
	round, err := roundOrDefault(round)
	if err != nil {
		return nil, err
	}
	s, err := sdf.Cylinder3D(2, 1, round)
	if err != nil {
		return nil, errors.Wrap(kernel.ErrInvalidParams, err.Error())
	}
	return &Solid{name: "Rounded Cylinder", s: yUp(s), cells: cellsOrDefault(cells)}, nil
}

// NewCapsule returns a capsule of radius 0.5 spanning y = -1 to y = +1:
// a cylinder capped with two hemispheres.
func NewCapsule(cells int) (*Solid, error) {
	const radius = 0.5
	body, err := sdf.Cylinder3D(2-2*radius, radius, 0)
	if err != nil {
		return nil, errors.Wrap(kernel.ErrInvalidParams, err.Error())
	}
	cap0, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, errors.Wrap(kernel.ErrInvalidParams, err.Error())
	}
	top := sdf.Transform3D(cap0, sdf.Translate3d(v3.Vec{Z: 1 - radius}))
	bottom := sdf.Transform3D(cap0, sdf.Translate3d(v3.Vec{Z: radius - 1}))
	s := sdf.Union3D(body, top, bottom)
	return &Solid{name: "Capsule", s: yUp(s), cells: cellsOrDefault(cells)}, nil
}
