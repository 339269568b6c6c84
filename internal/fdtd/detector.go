package fdtd

import (
	"fmt"
	"math"

	"github.com/san-kum/fdtdsim/internal/backend"
)

type DetectorKind int

const (
	LineDetector DetectorKind = iota
	BlockDetector
)

func (k DetectorKind) String() string {
	switch k {
	case LineDetector:
		return "line"
	case BlockDetector:
		return "block"
	}
	return fmt.Sprintf("detector(%d)", int(k))
}

func ParseDetectorKind(s string) (DetectorKind, error) {
	switch s {
	case "line", "":
		return LineDetector, nil
	case "block":
		return BlockDetector, nil
	}
	return 0, configErr("detector kind", "%q", s)
}

// DetectorMode selects which fields are recorded.
type DetectorMode int

const (
	RecordBoth DetectorMode = iota
	RecordE
	RecordH
)

func (m DetectorMode) String() string {
	switch m {
	case RecordE:
		return "E"
	case RecordH:
		return "H"
	}
	return "EH"
}

func (m DetectorMode) recordsE() bool { return m != RecordH }
func (m DetectorMode) recordsH() bool { return m != RecordE }

func ParseDetectorMode(s string) (DetectorMode, error) {
	switch s {
	case "", "both", "EH", "eh":
		return RecordBoth, nil
	case "E", "e":
		return RecordE, nil
	case "H", "h":
		return RecordH, nil
	}
	return 0, configErr("detector mode", "%q", s)
}

// DetectorSpec describes a detector to register.
type DetectorSpec struct {
	Name string
	Kind DetectorKind
	// From and To are the inclusive endpoints of a line detector.
	From, To [3]int
	// Region is the volume of a block detector.
	Region Box
	Mode   DetectorMode
}

// Detector records field values at its cells after every completed step.
// Entry i of each buffer is the state after step i+1.
type Detector struct {
	spec  DetectorSpec
	cells [][3]int
	idx   []int
	e     [][]float64
	h     [][]float64
}

func (d *Detector) Name() string       { return d.spec.Name }
func (d *Detector) Kind() DetectorKind { return d.spec.Kind }
func (d *Detector) Mode() DetectorMode { return d.spec.Mode }
func (d *Detector) Cells() [][3]int    { return append([][3]int(nil), d.cells...) }

// Len is the number of recorded steps.
func (d *Detector) Len() int {
	if d.spec.Mode.recordsE() {
		return len(d.e)
	}
	return len(d.h)
}

// AddDetector registers a detector against the grid.
func (g *Grid) AddDetector(spec DetectorSpec) (*Detector, error) {
	if err := g.configuring("detector"); err != nil {
		return nil, err
	}
	for _, d := range g.detectors {
		if spec.Name != "" && d.spec.Name == spec.Name {
			return nil, configErr("detector name", "%q already registered", spec.Name)
		}
	}

	var cells [][3]int
	switch spec.Kind {
	case LineDetector:
		if !inGrid(spec.From, g.shape) || !inGrid(spec.To, g.shape) {
			return nil, &BoundsError{What: "detector " + spec.Name, Start: spec.From, End: spec.To, Shape: g.shape}
		}
		cells = lineCells(spec.From, spec.To)
	case BlockDetector:
		if err := spec.Region.check("detector "+spec.Name, g.shape); err != nil {
			return nil, err
		}
		spec.Region.each(func(p [3]int) { cells = append(cells, p) })
	default:
		return nil, configErr("detector kind", "%s: %v", spec.Name, spec.Kind)
	}

	idx := make([]int, 0, 3*len(cells))
	for _, p := range cells {
		for c := X; c <= Z; c++ {
			idx = append(idx, fieldIndex(p, g.shape, c))
		}
	}
	d := &Detector{spec: spec, cells: cells, idx: idx}
	g.detectors = append(g.detectors, d)
	g.log.Debug("detector registered", "name", spec.Name, "kind", spec.Kind.String(), "cells", len(cells), "mode", spec.Mode.String())
	return d, nil
}

func (d *Detector) record(be backend.Backend, e, h backend.Array) {
	if d.spec.Mode.recordsE() {
		d.e = append(d.e, be.ToSlice(be.Take(e, d.idx)))
	}
	if d.spec.Mode.recordsH() {
		d.h = append(d.h, be.ToSlice(be.Take(h, d.idx)))
	}
}

func (d *Detector) reset() {
	d.e, d.h = nil, nil
}

// E returns the recorded electric field in V/m, indexed [step][cell][component].
// It is nil when the detector does not record E.
func (d *Detector) E() [][][3]float64 { return d.series(d.e, 1/math.Sqrt(VacuumPermittivity)) }

// H returns the recorded magnetic field in A/m, indexed [step][cell][component].
func (d *Detector) H() [][][3]float64 { return d.series(d.h, 1/math.Sqrt(VacuumPermeability)) }

func (d *Detector) series(buf [][]float64, scale float64) [][][3]float64 {
	if buf == nil {
		return nil
	}
	out := make([][][3]float64, len(buf))
	for s, flat := range buf {
		cells := make([][3]float64, len(d.cells))
		for i := range cells {
			for c := 0; c < 3; c++ {
				cells[i][c] = flat[i*3+c] * scale
			}
		}
		out[s] = cells
	}
	return out
}

// Trace is the time series of one E component at one detector cell, in V/m.
func (d *Detector) Trace(cell int, c Axis) []float64 {
	if cell < 0 || cell >= len(d.cells) || !c.valid() {
		return nil
	}
	scale := 1 / math.Sqrt(VacuumPermittivity)
	out := make([]float64, len(d.e))
	for s, flat := range d.e {
		out[s] = flat[cell*3+int(c)] * scale
	}
	return out
}

// Component is the per-step average over the detector cells of one component
// of E ('E') or H ('H'), in SI units.
func (d *Detector) Component(field byte, c Axis) []float64 {
	buf, scale := d.e, 1/math.Sqrt(VacuumPermittivity)
	if field == 'H' || field == 'h' {
		buf, scale = d.h, 1/math.Sqrt(VacuumPermeability)
	}
	if buf == nil || !c.valid() || len(d.cells) == 0 {
		return nil
	}
	out := make([]float64, len(buf))
	n := float64(len(d.cells))
	for s, flat := range buf {
		var sum float64
		for i := range d.cells {
			sum += flat[i*3+int(c)]
		}
		out[s] = sum / n * scale
	}
	return out
}

// Raw returns the internal-unit E and H buffers, flat per step.
func (d *Detector) Raw() (e, h [][]float64) { return d.e, d.h }
