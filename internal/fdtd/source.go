package fdtd

import (
	"fmt"
	"math"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/waveforms"
)

type SourceKind int

const (
	// PointSource overwrites a single E component (hard source).
	PointSource SourceKind = iota
	// LineSource adds to E along a rasterised segment (soft source).
	LineSource
	// PlaneSource adds to E over a slab one cell thick along some axis (soft source).
	PlaneSource
)

func (k SourceKind) String() string {
	switch k {
	case PointSource:
		return "point"
	case LineSource:
		return "line"
	case PlaneSource:
		return "plane"
	}
	return fmt.Sprintf("source(%d)", int(k))
}

func ParseSourceKind(s string) (SourceKind, error) {
	switch s {
	case "point", "":
		return PointSource, nil
	case "line":
		return LineSource, nil
	case "plane":
		return PlaneSource, nil
	}
	return 0, configErr("source kind", "%q", s)
}

// SourceSpec describes a source to register.
type SourceSpec struct {
	Name string
	Kind SourceKind

	// Cell locates a point source.
	Cell [3]int
	// From and To are the inclusive endpoints of a line source.
	From, To [3]int
	// Region is the slab of a plane source.
	Region Box

	Polarization Axis
	// Amplitude is the peak field in V/m.
	Amplitude float64
	Waveform  waveforms.Waveform
	// Taper applies a Gaussian profile across line and plane sources.
	Taper bool
}

// Source is a registered excitation.
type Source struct {
	spec    SourceSpec
	cells   [][3]int
	idx     []int
	amp     float64
	gen     waveforms.Generator
	weights backend.Array
	scratch backend.Array
	hard    bool
}

func (s *Source) Name() string       { return s.spec.Name }
func (s *Source) Kind() SourceKind   { return s.spec.Kind }
func (s *Source) Cells() [][3]int    { return append([][3]int(nil), s.cells...) }
func (s *Source) Polarization() Axis { return s.spec.Polarization }
func (s *Source) Spec() SourceSpec   { return s.spec }

// Value is the internal-unit field written at step q, before any taper.
func (s *Source) Value(q int) float64 { return s.amp * s.gen(q) }

// AddSource registers a source against the grid.
func (g *Grid) AddSource(spec SourceSpec) (*Source, error) {
	if err := g.configuring("source"); err != nil {
		return nil, err
	}
	if !spec.Polarization.valid() {
		return nil, configErr("source polarization", "%s: %v", spec.Name, spec.Polarization)
	}
	if spec.Waveform == nil {
		return nil, configErr("source waveform", "%s: missing", spec.Name)
	}
	gen, err := spec.Waveform.Bind(g.dt)
	if err != nil {
		return nil, &ConfigError{Field: "source waveform", Reason: spec.Name, Wrapped: err}
	}

	var cells [][3]int
	var weights []float64
	switch spec.Kind {
	case PointSource:
		if !inGrid(spec.Cell, g.shape) {
			return nil, &BoundsError{What: "source " + spec.Name, Start: spec.Cell, End: spec.Cell, Shape: g.shape}
		}
		cells = [][3]int{spec.Cell}
		weights = []float64{1}
	case LineSource:
		if !inGrid(spec.From, g.shape) || !inGrid(spec.To, g.shape) {
			return nil, &BoundsError{What: "source " + spec.Name, Start: spec.From, End: spec.To, Shape: g.shape}
		}
		cells = lineCells(spec.From, spec.To)
		weights = lineProfile(len(cells), spec.Taper)
	case PlaneSource:
		if err := spec.Region.check("source "+spec.Name, g.shape); err != nil {
			return nil, err
		}
		if spec.Region.Size[0] != 1 && spec.Region.Size[1] != 1 && spec.Region.Size[2] != 1 {
			return nil, configErr("plane source", "%s: region %v is not one cell thick along any axis", spec.Name, spec.Region.Size)
		}
		spec.Region.each(func(p [3]int) { cells = append(cells, p) })
		weights = planeProfile(spec.Region, spec.Taper)
	default:
		return nil, configErr("source kind", "%s: %v", spec.Name, spec.Kind)
	}

	idx := make([]int, len(cells))
	for i, p := range cells {
		idx[i] = fieldIndex(p, g.shape, spec.Polarization)
	}
	w, err := g.be.FromSlice(weights, len(weights))
	if err != nil {
		return nil, err
	}

	src := &Source{
		spec:    spec,
		cells:   cells,
		idx:     idx,
		amp:     spec.Amplitude * math.Sqrt(VacuumPermittivity),
		gen:     gen,
		weights: w,
		scratch: g.be.Zeros(len(weights)),
		hard:    spec.Kind == PointSource,
	}
	g.sources = append(g.sources, src)
	g.log.Debug("source registered", "name", spec.Name, "kind", spec.Kind.String(), "cells", len(cells), "polarization", spec.Polarization.String())
	return src, nil
}

// apply writes (hard) or adds (soft) the excitation for step q into e.
func (s *Source) apply(be backend.Backend, e backend.Array, q int) {
	be.Fill(s.scratch, s.Value(q))
	be.Mul(s.scratch, s.scratch, s.weights)
	if s.hard {
		be.Put(e, s.idx, s.scratch)
	} else {
		be.PutAdd(e, s.idx, s.scratch)
	}
}

func (s *Source) arrays() []*backend.Array {
	return []*backend.Array{&s.weights, &s.scratch}
}

// lineProfile is flat, or a Gaussian with sigma a quarter of the length.
func lineProfile(n int, taper bool) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
		if taper && n > 1 {
			w[i] = gaussianWeight(float64(i), float64(n))
		}
	}
	return w
}

func planeProfile(b Box, taper bool) []float64 {
	w := make([]float64, 0, b.Cells())
	b.each(func(p [3]int) {
		v := 1.0
		if taper {
			for a := 0; a < 3; a++ {
				if b.Size[a] > 1 {
					v *= gaussianWeight(float64(p[a]-b.Start[a]), float64(b.Size[a]))
				}
			}
		}
		w = append(w, v)
	})
	return w
}

func gaussianWeight(i, n float64) float64 {
	center := (n - 1) / 2
	sigma := n / 4
	d := (i - center) / sigma
	return math.Exp(-0.5 * d * d)
}
