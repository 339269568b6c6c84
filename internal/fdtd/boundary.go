package fdtd

import (
	"fmt"
	"strings"

	"github.com/san-kum/fdtdsim/internal/backend"
)

type BoundaryKind int

const (
	PMLBoundary BoundaryKind = iota
	PeriodicBoundary
)

func (k BoundaryKind) String() string {
	switch k {
	case PMLBoundary:
		return "pml"
	case PeriodicBoundary:
		return "periodic"
	}
	return fmt.Sprintf("boundary(%d)", int(k))
}

func ParseBoundaryKind(s string) (BoundaryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pml":
		return PMLBoundary, nil
	case "periodic":
		return PeriodicBoundary, nil
	}
	return 0, configErr("boundary kind", "%q", s)
}

// Side selects a face along an axis.
type Side int

const (
	Low Side = iota
	High
	BothSides
)

func (s Side) String() string {
	switch s {
	case Low:
		return "low"
	case High:
		return "high"
	}
	return "both"
}

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "min", "-":
		return Low, nil
	case "high", "max", "+":
		return High, nil
	case "", "both":
		return BothSides, nil
	}
	return 0, configErr("boundary side", "%q", s)
}

// BoundarySpec describes a boundary to register. A PML with Side BothSides
// registers one layer per face; periodic boundaries ignore Side.
type BoundarySpec struct {
	Name      string
	Kind      BoundaryKind
	Axis      Axis
	Side      Side
	Thickness int

	// TargetReflection sets the PML grading strength; default 1e-8.
	TargetReflection float64
	// SigmaMax, in S/m, overrides TargetReflection when positive.
	SigmaMax float64
	// RefractiveIndex of the medium adjoining the PML; defaults to the grid background.
	RefractiveIndex float64
}

// Boundary is a registered boundary condition. Corrections run right after
// the corresponding field update.
type Boundary interface {
	Spec() BoundarySpec
	applyE(be backend.Backend, g *Grid)
	applyH(be backend.Backend, g *Grid)
	arrays() []*backend.Array
}

// AddBoundary registers a PML or periodic boundary.
func (g *Grid) AddBoundary(spec BoundarySpec) error {
	if err := g.configuring("boundary"); err != nil {
		return err
	}
	if !spec.Axis.valid() {
		return configErr("boundary axis", "%v", spec.Axis)
	}

	switch spec.Kind {
	case PeriodicBoundary:
		for _, b := range g.boundaries {
			if b.Spec().Axis != spec.Axis {
				continue
			}
			if b.Spec().Kind == PMLBoundary {
				return configErr("boundary", "periodic and PML both requested on axis %v", spec.Axis)
			}
			return configErr("boundary", "axis %v is already periodic", spec.Axis)
		}
		spec.Side = BothSides
		b := newPeriodic(g, spec)
		g.boundaries = append(g.boundaries, b)
		g.log.Debug("boundary registered", "kind", "periodic", "axis", spec.Axis.String())
		return nil

	case PMLBoundary:
		sides := []Side{spec.Side}
		if spec.Side == BothSides {
			sides = []Side{Low, High}
		}
		n := g.shape[spec.Axis]
		if spec.Thickness < 1 || spec.Thickness > n {
			return configErr("pml thickness", "%d not in [1, %d] along %v", spec.Thickness, n, spec.Axis)
		}
		if spec.TargetReflection < 0 || spec.TargetReflection >= 1 {
			return configErr("pml reflection", "%g not in (0, 1)", spec.TargetReflection)
		}
		if spec.SigmaMax < 0 || spec.RefractiveIndex < 0 {
			return configErr("pml", "sigma and refractive index must not be negative")
		}
		total := spec.Thickness * len(sides)
		for _, b := range g.boundaries {
			bs := b.Spec()
			if bs.Axis != spec.Axis {
				continue
			}
			if bs.Kind == PeriodicBoundary {
				return configErr("boundary", "periodic and PML both requested on axis %v", spec.Axis)
			}
			for _, side := range sides {
				if bs.Side == side {
					return configErr("boundary", "PML already registered on %v %v face", side, spec.Axis)
				}
			}
			total += bs.Thickness
		}
		if total > n {
			return configErr("pml thickness", "layers on axis %v overlap (%d cells > %d)", spec.Axis, total, n)
		}
		for _, side := range sides {
			s := spec
			s.Side = side
			p := newPML(g, s)
			g.boundaries = append(g.boundaries, p)
			g.log.Debug("boundary registered", "kind", "pml", "axis", s.Axis.String(), "side", side.String(),
				"thickness", s.Thickness, "sigma_max", p.SigmaMax())
		}
		return nil
	}
	return configErr("boundary kind", "%v", spec.Kind)
}

// Boundaries returns the registered boundaries in registration order.
func (g *Grid) Boundaries() []Boundary {
	return append([]Boundary(nil), g.boundaries...)
}

// Periodic wraps fields across an axis: after the E update the low face of E
// takes the high face, after the H update the high face of H takes the low face.
type Periodic struct {
	spec BoundarySpec
	low  []int
	high []int
}

func newPeriodic(g *Grid, spec BoundarySpec) *Periodic {
	p := &Periodic{spec: spec}
	a := spec.Axis
	n := g.shape[a]
	face := Box{Size: g.shape}
	face.Size[a] = 1
	face.each(func(c [3]int) {
		hi := c
		hi[a] = n - 1
		for comp := X; comp <= Z; comp++ {
			p.low = append(p.low, fieldIndex(c, g.shape, comp))
			p.high = append(p.high, fieldIndex(hi, g.shape, comp))
		}
	})
	return p
}

func (p *Periodic) Spec() BoundarySpec { return p.spec }

func (p *Periodic) applyE(be backend.Backend, g *Grid) {
	be.Put(g.e, p.low, be.Take(g.e, p.high))
}

func (p *Periodic) applyH(be backend.Backend, g *Grid) {
	be.Put(g.h, p.high, be.Take(g.h, p.low))
}

func (p *Periodic) arrays() []*backend.Array { return nil }
