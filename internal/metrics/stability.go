package metrics

import (
	"math"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// PeakField is the largest |E| component seen on the grid, in V/m.
type PeakField struct {
	name string
	buf  backend.Array
	peak float64
}

func NewPeakField() *PeakField {
	return &PeakField{name: "peak_field"}
}

func (p *PeakField) Name() string { return p.name }

func (p *PeakField) Observe(g *fdtd.Grid) {
	be := g.Backend()
	e := g.EArray()
	if p.buf == nil || !be.Owns(p.buf) || p.buf.Len() != e.Len() {
		p.buf = be.Zeros(e.Shape()...)
	}
	be.Abs(p.buf, e)
	v := be.Max(p.buf) / math.Sqrt(fdtd.VacuumPermittivity)
	if v > p.peak || math.IsNaN(v) {
		p.peak = v
	}
}

func (p *PeakField) Value() float64 { return p.peak }
func (p *PeakField) Reset()         { p.peak = 0 }

// Stability is the fraction of observed steps whose fields were finite and
// below threshold (V/m). It watches without failing the run.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
	firstBad   int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
		firstBad:  -1,
	}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) Observe(g *fdtd.Grid) {
	s.samples++
	be := g.Backend()
	bad := !g.Finite()
	if !bad && s.threshold > 0 {
		limit := s.threshold * math.Sqrt(fdtd.VacuumPermittivity)
		bad = be.Max(g.EArray()) > limit || -be.Min(g.EArray()) > limit
	}
	if bad {
		s.violations++
		if s.firstBad < 0 {
			s.firstBad = g.TimeStepsPassed()
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

// FirstViolation is the step count at the first bad observation, or -1.
func (s *Stability) FirstViolation() int { return s.firstBad }

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
	s.firstBad = -1
}
