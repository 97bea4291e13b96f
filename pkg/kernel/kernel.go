// Package kernel defines the procedural shape generators.
// Each shape variant tessellates itself into a deterministic triangle mesh;
// callers select a variant by kind through NewShape. Additional variants
// (the sdfx-backed rounded shapes, for example) plug in through Register.
package kernel

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Shape is the capability shared by every shape variant: generate raw
// geometry. A nil mesh means the variant has no geometry and callers must
// produce an empty grouping node instead.
type Shape interface {
	// Name is the display name used for nodes generated from the shape.
	Name() string

	// Geometry tessellates the shape. Every call returns a fresh mesh.
	Geometry() *Mesh
}

// Kind tags a shape variant.
type Kind string

const (
	KindEmpty    Kind = "empty"
	KindCylinder Kind = "cylinder"
	KindSphere   Kind = "sphere"
	KindCube     Kind = "cube"
)

// Default tessellation detail.
const (
	DefaultSlices = 16
	DefaultStacks = 12
)

// Params are the construction parameters shared by all variants.
// Variants ignore the fields they do not use; zero values select defaults.
type Params struct {
	Slices int     `json:"slices,omitempty" yaml:"slices,omitempty"`
	Stacks int     `json:"stacks,omitempty" yaml:"stacks,omitempty"`
	Round  float64 `json:"round,omitempty" yaml:"round,omitempty"`
}

// Constructor builds a shape variant from parameters.
type Constructor func(p Params) (Shape, error)

var (
	// ErrUnknownShape is returned by NewShape for kinds with no constructor.
	ErrUnknownShape = errors.New("unknown shape kind")

	// ErrInvalidParams is returned when a variant cannot be built from the
	// given parameters.
	ErrInvalidParams = errors.New("invalid shape parameters")
)

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Constructor{
		KindEmpty:    func(Params) (Shape, error) { return Empty{}, nil },
		KindCylinder: newCylinderShape,
		KindSphere:   newSphereShape,
		KindCube:     func(Params) (Shape, error) { return Cube{}, nil },
	}
)

func newCylinderShape(p Params) (Shape, error) {
	c, err := NewCylinder(p.Slices)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newSphereShape(p Params) (Shape, error) {
	s, err := NewSphere(p.Slices, p.Stacks)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Register installs a constructor for kind, replacing any previous one.
func Register(kind Kind, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = ctor
}

// NewShape selects the variant registered for kind and builds it.
func NewShape(kind Kind, p Params) (Shape, error) {
	registryMu.RLock()
	ctor, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownShape, "kernel: %q", kind)
	}
	return ctor(p)
}

// Kinds lists the registered shape kinds in sorted order.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Empty is the base variant. It has no geometry.
type Empty struct{}

// Name returns "Empty".
func (Empty) Name() string { return "Empty" }

// Geometry always returns nil.
func (Empty) Geometry() *Mesh { return nil }
