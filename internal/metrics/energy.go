package metrics

import (
	"math"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// square returns a·a in a scratch array owned by be, reusing buf when it fits.
func square(be backend.Backend, a backend.Array, buf *backend.Array) backend.Array {
	if *buf == nil || !be.Owns(*buf) || (*buf).Len() != a.Len() {
		*buf = be.Zeros(a.Shape()...)
	}
	be.Mul(*buf, a, a)
	return *buf
}

// Energy tracks the electromagnetic energy on the grid, ½·Σ(ε0E² + μ0H²)·dV,
// weighted with vacuum material constants.
type Energy struct {
	name    string
	buf     backend.Array
	current float64
	peak    float64
	samples int
}

func NewEnergy() *Energy {
	return &Energy{name: "field_energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(g *fdtd.Grid) {
	e.current = FieldEnergy(g, &e.buf)
	e.peak = math.Max(e.peak, e.current)
	e.samples++
}

// Value is the energy after the latest step, in joules.
func (e *Energy) Value() float64 { return e.current }

// Peak is the largest energy seen since Reset.
func (e *Energy) Peak() float64 { return e.peak }

func (e *Energy) Reset() {
	e.current, e.peak = 0, 0
	e.samples = 0
}

// FieldEnergy evaluates the grid energy on its backend. buf is optional scratch.
func FieldEnergy(g *fdtd.Grid, buf *backend.Array) float64 {
	if buf == nil {
		buf = new(backend.Array)
	}
	be := g.Backend()
	// internal units already carry sqrt(eps0) and sqrt(mu0)
	sum := be.Sum(square(be, g.EArray(), buf)) + be.Sum(square(be, g.HArray(), buf))
	d := g.Spacing()
	return 0.5 * sum * d[0] * d[1] * d[2]
}

// EnergyDrift is the largest relative change of field energy against a
// reference sample, taken at the first observation after Reset. It is only
// meaningful once sources have switched off.
type EnergyDrift struct {
	name     string
	buf      backend.Array
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(g *fdtd.Grid) {
	energy := FieldEnergy(g, &e.buf)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++
	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
