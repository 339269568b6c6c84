package fdtd

import (
	"math"

	"github.com/san-kum/fdtdsim/internal/backend"
)

// PML is a graded absorbing layer on one face, implemented as a convolutional
// PML: each difference along the axis inside the layer gains an auxiliary
// term psi <- b·psi + c·diff, which is added to the field update.
//
// Conductivity grows as sigma_max·(d/T)², d being the depth into the layer in
// cells (E samples on integer positions, H on half-integer ones).
type PML struct {
	spec      BoundarySpec
	n         float64
	dt        float64
	sigmaStep float64 // sigma_max·dt/(eps0·n²)

	eTerms []*cpmlTerm
	hTerms []*cpmlTerm
}

type cpmlTerm struct {
	target []int
	hi, lo []int
	coef   float64
	psi    backend.Array
	b, c   backend.Array
}

func newPML(g *Grid, spec BoundarySpec) *PML {
	n := spec.RefractiveIndex
	if n == 0 {
		n = math.Sqrt(g.background[0] * g.background[1])
	}
	p := &PML{spec: spec, n: n, dt: g.dt}

	a := int(spec.Axis)
	s := g.courant[a]
	t := float64(spec.Thickness)
	switch {
	case spec.SigmaMax > 0:
		p.sigmaStep = spec.SigmaMax * g.dt / (VacuumPermittivity * n * n)
	default:
		r := spec.TargetReflection
		if r == 0 {
			r = defaultReflection
		}
		p.sigmaStep = 1.5 * math.Log(1/r) * s / (n * t)
	}

	c1, c2 := (a+1)%3, (a+2)%3
	// E: curl component c2 holds +d_a F_c1, component c1 holds -d_a F_c2.
	p.eTerms = []*cpmlTerm{
		p.term(g, Axis(c2), Axis(c1), s, false),
		p.term(g, Axis(c1), Axis(c2), -s, false),
	}
	// H is updated by subtraction, so the correction sign flips.
	p.hTerms = []*cpmlTerm{
		p.term(g, Axis(c2), Axis(c1), -s, true),
		p.term(g, Axis(c1), Axis(c2), s, true),
	}
	return p
}

// term builds the auxiliary state for one field component inside the layer.
func (p *PML) term(g *Grid, comp, srcComp Axis, coef float64, forward bool) *cpmlTerm {
	a := int(p.spec.Axis)
	n := g.shape[a]
	layer := p.slab(g.shape)

	var target, hi, lo []int
	var bs, cs []float64
	layer.each(func(cell [3]int) {
		pos := cell[a]
		if (forward && pos == n-1) || (!forward && pos == 0) {
			return
		}
		d := p.depth(pos, n, forward)
		if d <= 0 {
			return
		}
		b, c := p.coefficients(d)
		other := cell
		if forward {
			other[a]++
			hi = append(hi, fieldIndex(other, g.shape, srcComp))
			lo = append(lo, fieldIndex(cell, g.shape, srcComp))
		} else {
			other[a]--
			hi = append(hi, fieldIndex(cell, g.shape, srcComp))
			lo = append(lo, fieldIndex(other, g.shape, srcComp))
		}
		target = append(target, fieldIndex(cell, g.shape, comp))
		bs = append(bs, b)
		cs = append(cs, c)
	})

	term := &cpmlTerm{target: target, hi: hi, lo: lo, coef: coef}
	if len(target) == 0 {
		return term
	}
	term.psi = g.be.Zeros(len(target))
	term.b, _ = g.be.FromSlice(bs, len(bs))
	term.c, _ = g.be.FromSlice(cs, len(cs))
	return term
}

// slab is the box of cells covered by the layer.
func (p *PML) slab(shape [3]int) Box {
	a := p.spec.Axis
	b := Box{Size: shape}
	b.Size[a] = p.spec.Thickness
	if p.spec.Side == High {
		b.Start[a] = shape[a] - p.spec.Thickness
	}
	return b
}

// depth into the layer, in cells, of the sample at pos. H samples (forward
// differences) sit half a cell above their index. The interface lies half a
// cell outside the layer's first E sample on either face, so the profile of
// one face is the mirror image of the other under x -> n-1-x.
func (p *PML) depth(pos, n int, h bool) float64 {
	t := float64(p.spec.Thickness)
	x := float64(pos)
	if h {
		x += 0.5
	}
	var d float64
	if p.spec.Side == High {
		d = x - (float64(n-p.spec.Thickness) - 0.5)
	} else {
		d = t - 0.5 - x
	}
	return math.Max(0, math.Min(d, t))
}

// sigma is the per-step normalised conductivity at depth d.
func (p *PML) sigma(d float64) float64 {
	r := d / float64(p.spec.Thickness)
	return p.sigmaStep * r * r
}

func (p *PML) coefficients(d float64) (b, c float64) {
	sig := p.sigma(d)
	b = math.Exp(-(sig + cfsAlpha))
	c = sig / (sig + cfsAlpha) * (b - 1)
	return b, c
}

func (p *PML) Spec() BoundarySpec { return p.spec }

// SigmaMax is the peak conductivity in S/m.
func (p *PML) SigmaMax() float64 {
	return p.sigmaStep * VacuumPermittivity * p.n * p.n / p.dt
}

// Stretch is the complex coordinate stretching 1 - j·sigma/(omega·eps0·n²)
// at depth d cells into the layer.
func (p *PML) Stretch(d, omega float64) complex128 {
	sigma := p.sigma(d) * VacuumPermittivity * p.n * p.n / p.dt
	return complex(1, -sigma/(omega*VacuumPermittivity*p.n*p.n))
}

func (p *PML) applyE(be backend.Backend, g *Grid) {
	for _, t := range p.eTerms {
		t.apply(be, g.e, g.h, g.invEps)
	}
}

func (p *PML) applyH(be backend.Backend, g *Grid) {
	for _, t := range p.hTerms {
		t.apply(be, g.h, g.e, g.invMu)
	}
}

func (t *cpmlTerm) apply(be backend.Backend, field, other, inv backend.Array) {
	if len(t.target) == 0 {
		return
	}
	diff := be.Take(other, t.hi)
	be.Sub(diff, diff, be.Take(other, t.lo))
	be.Mul(t.psi, t.psi, t.b)
	be.Mul(diff, diff, t.c)
	be.Add(t.psi, t.psi, diff)

	w := be.Take(inv, t.target)
	be.Mul(w, w, t.psi)
	be.Scale(w, t.coef)
	be.PutAdd(field, t.target, w)
}

func (p *PML) arrays() []*backend.Array {
	var out []*backend.Array
	for _, t := range append(append([]*cpmlTerm(nil), p.eTerms...), p.hTerms...) {
		if len(t.target) == 0 {
			continue
		}
		out = append(out, &t.psi, &t.b, &t.c)
	}
	return out
}

func (p *PML) reset(be backend.Backend) {
	for _, t := range append(append([]*cpmlTerm(nil), p.eTerms...), p.hTerms...) {
		if t.psi != nil {
			be.Fill(t.psi, 0)
		}
	}
}
