package kernel

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Cylinder is a unit-radius cylinder spanning y = -1 to y = +1.
type Cylinder struct {
	Slices int
}

// NewCylinder returns a cylinder with the given number of slices.
// Zero selects DefaultSlices; fewer than 3 slices is an error.
func NewCylinder(slices int) (*Cylinder, error) {
	if slices == 0 {
		slices = DefaultSlices
	}
	if slices < 3 {
		return nil, errors.Wrapf(ErrInvalidParams, "cylinder: need at least 3 slices, got %d", slices)
	}
	return &Cylinder{Slices: slices}, nil
}

// Name returns "Cylinder".
func (c *Cylinder) Name() string { return "Cylinder" }

// Geometry tessellates the cylinder into 2·slices+2 vertices and
// 4·slices triangles. Vertex layout: apex, top ring, base, bottom ring.
func (c *Cylinder) Geometry() *Mesh {
	s := c.Slices
	if s < 3 {
		return nil
	}
	b := newBuilder(2*s+2, 4*s)

	step := 2 * math32.Pi / float32(s)

	apex := b.vertex(0, 1, 0)
	top := make([]uint32, s)
	for i := 0; i < s; i++ {
		theta := float32(i) * step
		top[i] = b.vertex(math32.Cos(theta), 1, math32.Sin(theta))
	}
	base := b.vertex(0, -1, 0)
	bot := make([]uint32, s)
	for i := 0; i < s; i++ {
		theta := float32(i) * step
		bot[i] = b.vertex(math32.Cos(theta), -1, math32.Sin(theta))
	}

	// Top and bottom fans.
	for i := 0; i < s; i++ {
		next := (i + 1) % s
		b.triangle(apex, top[next], top[i])
	}
	for i := 0; i < s; i++ {
		next := (i + 1) % s
		b.triangle(base, bot[i], bot[next])
	}

	// Side wall, one quad per slice, wrapping at the seam.
	for i := 0; i < s; i++ {
		next := (i + 1) % s
		b.triangle(top[i], top[next], bot[i])
		b.triangle(bot[i], top[next], bot[next])
	}

	m := b.mesh()
	m.PartName = c.Name()
	return m
}
