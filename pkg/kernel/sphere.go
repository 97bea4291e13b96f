package kernel

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Sphere is a unit sphere built from latitude rings.
type Sphere struct {
	Slices int
	Stacks int
}

// NewSphere returns a sphere with the given slices (longitude segments)
// and stacks (latitude bands). Zero selects the defaults.
func NewSphere(slices, stacks int) (*Sphere, error) {
	if slices == 0 {
		slices = DefaultSlices
	}
	if stacks == 0 {
		stacks = DefaultStacks
	}
	if slices < 3 {
		return nil, errors.Wrapf(ErrInvalidParams, "sphere: need at least 3 slices, got %d", slices)
	}
	if stacks < 2 {
		return nil, errors.Wrapf(ErrInvalidParams, "sphere: need at least 2 stacks, got %d", stacks)
	}
	return &Sphere{Slices: slices, Stacks: stacks}, nil
}

// Name returns "Sphere".
func (s *Sphere) Name() string { return "Sphere" }

// Geometry tessellates the sphere into slices·(stacks−1)+2 vertices:
// the top pole, stacks−1 rings of slices vertices, then the bottom pole.
func (s *Sphere) Geometry() *Mesh {
	slices, stacks := s.Slices, s.Stacks
	if slices < 3 || stacks < 2 {
		return nil
	}
	rings := stacks - 1
	b := newBuilder(slices*rings+2, 2*slices*rings)

	thetaStep := 2 * math32.Pi / float32(slices)
	phiStep := math32.Pi / float32(stacks)

	top := b.vertex(0, 1, 0)
	for j := 1; j <= rings; j++ {
		phi := float32(j) * phiStep
		sinPhi, cosPhi := math32.Sin(phi), math32.Cos(phi)
		for i := 0; i < slices; i++ {
			theta := float32(i) * thetaStep
			b.vertex(sinPhi*math32.Cos(theta), cosPhi, sinPhi*math32.Sin(theta))
		}
	}
	bottom := b.vertex(0, -1, 0)

	// ring returns the vertex index of slice i on ring j (1-based).
	ring := func(j, i int) uint32 {
		return uint32(1 + (j-1)*slices + i)
	}

	// Top fan.
	for i := 0; i < slices; i++ {
		next := i + 1
		if i == slices-1 {
			next = 0
		}
		b.triangle(top, ring(1, next), ring(1, i))
	}

	// Bands between consecutive rings.
	for j := 1; j < rings; j++ {
		for i := 0; i < slices; i++ {
			next := i + 1
			if i == slices-1 {
				next = 0
			}
			b.triangle(ring(j, i), ring(j, next), ring(j+1, i))
			b.triangle(ring(j+1, i), ring(j, next), ring(j+1, next))
		}
	}

	// Bottom fan.
	for i := 0; i < slices; i++ {
		next := i + 1
		if i == slices-1 {
			next = 0
		}
		b.triangle(bottom, ring(rings, i), ring(rings, next))
	}

	m := b.mesh()
	m.PartName = s.Name()
	return m
}
