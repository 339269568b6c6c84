package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/metrics"
	"github.com/san-kum/fdtdsim/internal/shapes"
	"github.com/san-kum/fdtdsim/internal/sim"
)

// DefaultStabilityThreshold is the peak |E| in V/m above which a step counts as unstable.
const DefaultStabilityThreshold = 1e6

type Registry struct {
	shapes  map[string]func(config.ObjectConfig) (shapes.Shape, error)
	metrics map[string]func() sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		shapes:  make(map[string]func(config.ObjectConfig) (shapes.Shape, error)),
		metrics: make(map[string]func() sim.Metric),
	}

	r.shapes["block"] = func(o config.ObjectConfig) (shapes.Shape, error) {
		return shapes.Block{Name: o.Name, Start: o.Start, Size: o.Size,
			Permittivity: o.Permittivity, Permeability: o.Permeability, Priority: o.Priority}, nil
	}
	r.shapes["waveguide"] = func(o config.ObjectConfig) (shapes.Shape, error) {
		axis, err := fdtd.ParseAxis(o.Axis)
		if err != nil {
			return nil, err
		}
		var center [3]int
		for a, c := range o.Center {
			center[a] = int(math.Round(c))
		}
		return shapes.Waveguide{Name: o.Name, Axis: axis, Center: center, Width: o.Width, Height: o.Height,
			Start: o.Start[axis], Length: o.Length, Permittivity: o.Permittivity, Priority: o.Priority}, nil
	}
	r.shapes["disk"] = func(o config.ObjectConfig) (shapes.Shape, error) {
		return shapes.Disk{Name: o.Name, Center: [2]float64{o.Center[0], o.Center[1]}, Radius: o.Radius,
			Z0: o.Start[2], Height: o.Height, Permittivity: o.Permittivity, Background: o.Background, Priority: o.Priority}, nil
	}
	r.shapes["ring"] = func(o config.ObjectConfig) (shapes.Shape, error) {
		return shapes.Ring{Name: o.Name, Center: [2]float64{o.Center[0], o.Center[1]}, Inner: o.Inner, Outer: o.Outer,
			Z0: o.Start[2], Height: o.Height, Permittivity: o.Permittivity, Background: o.Background, Priority: o.Priority}, nil
	}

	r.metrics["field_energy"] = func() sim.Metric { return metrics.NewEnergy() }
	r.metrics["energy_drift"] = func() sim.Metric { return metrics.NewEnergyDrift() }
	r.metrics["peak_field"] = func() sim.Metric { return metrics.NewPeakField() }
	r.metrics["stability"] = func() sim.Metric { return metrics.NewStability(DefaultStabilityThreshold) }

	return r
}

// Shape converts an object entry of a scene into a shape.
func (r *Registry) Shape(o config.ObjectConfig) (shapes.Shape, error) {
	fn, ok := r.shapes[o.Shape]
	if !ok {
		return nil, fmt.Errorf("unknown shape %q for object %q", o.Shape, o.Name)
	}
	return fn(o)
}

func (r *Registry) GetMetric(name string) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListShapes() []string  { return sortedKeys(r.shapes) }
func (r *Registry) ListMetrics() []string { return sortedKeys(r.metrics) }

func (r *Registry) DefaultMetrics() []sim.Metric {
	out := make([]sim.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
