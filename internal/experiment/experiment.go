package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/logging"
	"github.com/san-kum/fdtdsim/internal/sim"
	"github.com/san-kum/fdtdsim/internal/waveforms"
)

// Experiment is a scene assembled into a grid and a runner.
type Experiment struct {
	scene  *config.Scene
	grid   *fdtd.Grid
	runner *sim.Runner
}

// New resolves the scene's backend and builds the experiment on it.
func New(scene *config.Scene, log *slog.Logger) (*Experiment, error) {
	be, err := fdtd.ResolveBackend(scene.Backend)
	if err != nil {
		return nil, err
	}
	return NewOn(scene, be, log)
}

// NewOn builds the experiment on an explicit backend, ignoring scene.Backend.
func NewOn(scene *config.Scene, be backend.Backend, log *slog.Logger) (*Experiment, error) {
	if log == nil {
		log = logging.Discard()
	}
	reg := NewRegistry()
	g, err := Build(scene, be, reg, log)
	if err != nil {
		return nil, err
	}
	r := sim.New(g, log)
	for _, m := range reg.DefaultMetrics() {
		r.AddMetric(m)
	}
	return &Experiment{scene: scene, grid: g, runner: r}, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.runner.Run(ctx, e.RunConfig())
}

// RunConfig is the scene's run section, defaulting to config.DefaultSteps.
func (e *Experiment) RunConfig() sim.Config {
	cfg := sim.Config{
		Steps:         e.scene.Run.Steps,
		Duration:      e.scene.Run.Duration,
		ProgressEvery: e.scene.Run.ProgressEvery,
	}
	if cfg.Steps == 0 && cfg.Duration == 0 {
		cfg.Steps = config.DefaultSteps
	}
	return cfg
}

func (e *Experiment) Scene() *config.Scene { return e.scene }
func (e *Experiment) Grid() *fdtd.Grid     { return e.grid }
func (e *Experiment) Runner() *sim.Runner  { return e.runner }

// Build assembles a grid from a scene. Components are registered in the
// order boundaries, objects, sources, detectors, each in file order, so
// equal-priority objects resolve to the later entry.
func Build(scene *config.Scene, be backend.Backend, reg *Registry, log *slog.Logger) (*fdtd.Grid, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	gc := scene.Grid
	g, err := fdtd.New(fdtd.Config{
		Shape:           gc.Shape,
		GridSpacing:     gc.Spacing,
		Spacing:         gc.SpacingXYZ,
		Permittivity:    gc.Permittivity,
		Permeability:    gc.Permeability,
		CourantNumber:   gc.Courant,
		CheckDivergence: gc.CheckDivergence,
		Logger:          log,
	}, be)
	if err != nil {
		return nil, err
	}

	for i, b := range scene.Boundaries {
		spec, err := boundarySpec(b)
		if err != nil {
			return nil, fmt.Errorf("boundary %d: %w", i, err)
		}
		if err := g.AddBoundary(spec); err != nil {
			return nil, fmt.Errorf("boundary %d: %w", i, err)
		}
	}
	for _, o := range scene.Objects {
		shape, err := reg.Shape(o)
		if err != nil {
			return nil, err
		}
		obj, err := shape.Object(be, g.Shape())
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", o.Name, err)
		}
		if err := g.AddObject(obj); err != nil {
			return nil, fmt.Errorf("object %q: %w", o.Name, err)
		}
	}
	for _, s := range scene.Sources {
		spec, err := sourceSpec(s)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", s.Name, err)
		}
		if _, err := g.AddSource(spec); err != nil {
			return nil, fmt.Errorf("source %q: %w", s.Name, err)
		}
	}
	for _, d := range scene.Detectors {
		spec, err := detectorSpec(d)
		if err != nil {
			return nil, fmt.Errorf("detector %q: %w", d.Name, err)
		}
		if _, err := g.AddDetector(spec); err != nil {
			return nil, fmt.Errorf("detector %q: %w", d.Name, err)
		}
	}

	log.Debug("scene assembled", "scene", scene.Name,
		"boundaries", len(scene.Boundaries), "objects", len(scene.Objects),
		"sources", len(scene.Sources), "detectors", len(scene.Detectors))
	return g, nil
}

func boundarySpec(b config.BoundaryConfig) (fdtd.BoundarySpec, error) {
	kind, err := fdtd.ParseBoundaryKind(b.Kind)
	if err != nil {
		return fdtd.BoundarySpec{}, err
	}
	axis, err := fdtd.ParseAxis(b.Axis)
	if err != nil {
		return fdtd.BoundarySpec{}, err
	}
	side, err := fdtd.ParseSide(b.Side)
	if err != nil {
		return fdtd.BoundarySpec{}, err
	}
	return fdtd.BoundarySpec{
		Kind:             kind,
		Axis:             axis,
		Side:             side,
		Thickness:        b.Thickness,
		TargetReflection: b.Reflection,
		SigmaMax:         b.SigmaMax,
	}, nil
}

func sourceSpec(s config.SourceConfig) (fdtd.SourceSpec, error) {
	kind, err := fdtd.ParseSourceKind(s.Kind)
	if err != nil {
		return fdtd.SourceSpec{}, err
	}
	pol, err := fdtd.ParseAxis(s.Polarization)
	if err != nil {
		return fdtd.SourceSpec{}, err
	}
	w, err := waveforms.ByName(s.Waveform.Kind, s.Waveform.Params)
	if err != nil {
		return fdtd.SourceSpec{}, err
	}
	return fdtd.SourceSpec{
		Name:         s.Name,
		Kind:         kind,
		Cell:         s.Cell,
		From:         s.From,
		To:           s.To,
		Region:       fdtd.Box{Start: s.Start, Size: s.Size},
		Polarization: pol,
		Amplitude:    s.Amplitude,
		Waveform:     w,
		Taper:        s.Taper,
	}, nil
}

func detectorSpec(d config.DetectorConfig) (fdtd.DetectorSpec, error) {
	kind, err := fdtd.ParseDetectorKind(d.Kind)
	if err != nil {
		return fdtd.DetectorSpec{}, err
	}
	mode, err := fdtd.ParseDetectorMode(d.Mode)
	if err != nil {
		return fdtd.DetectorSpec{}, err
	}
	return fdtd.DetectorSpec{
		Name:   d.Name,
		Kind:   kind,
		From:   d.From,
		To:     d.To,
		Region: fdtd.Box{Start: d.Start, Size: d.Size},
		Mode:   mode,
	}, nil
}
