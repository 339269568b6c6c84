package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fdtdsim/internal/waveforms"
)

const (
	DefaultSpacing    = 20e-9
	DefaultWavelength = 1550e-9
	DefaultSteps      = 300
	DefaultBackend    = "cpu"
)

var ErrInvalid = errors.New("config: invalid scene")

// Scene is a complete simulation description as stored in YAML.
type Scene struct {
	Name       string           `yaml:"name"`
	Backend    string           `yaml:"backend"`
	Grid       GridConfig       `yaml:"grid"`
	Boundaries []BoundaryConfig `yaml:"boundaries,omitempty"`
	Objects    []ObjectConfig   `yaml:"objects,omitempty"`
	Sources    []SourceConfig   `yaml:"sources,omitempty"`
	Detectors  []DetectorConfig `yaml:"detectors,omitempty"`
	Run        RunConfig        `yaml:"run"`
}

type GridConfig struct {
	Shape           [3]int     `yaml:"shape,flow"`
	Spacing         float64    `yaml:"spacing"`
	SpacingXYZ      [3]float64 `yaml:"spacing_xyz,flow,omitempty"`
	Permittivity    float64    `yaml:"permittivity,omitempty"`
	Permeability    float64    `yaml:"permeability,omitempty"`
	Courant         float64    `yaml:"courant,omitempty"`
	CheckDivergence bool       `yaml:"check_divergence,omitempty"`
}

type BoundaryConfig struct {
	Kind       string  `yaml:"kind"`
	Axis       string  `yaml:"axis"`
	Side       string  `yaml:"side,omitempty"`
	Thickness  int     `yaml:"thickness,omitempty"`
	Reflection float64 `yaml:"reflection,omitempty"`
	SigmaMax   float64 `yaml:"sigma_max,omitempty"`
}

// ObjectConfig covers every shape kind; fields irrelevant to Shape are ignored.
type ObjectConfig struct {
	Name         string     `yaml:"name"`
	Shape        string     `yaml:"shape"`
	Start        [3]int     `yaml:"start,flow,omitempty"`
	Size         [3]int     `yaml:"size,flow,omitempty"`
	Axis         string     `yaml:"axis,omitempty"`
	Center       [3]float64 `yaml:"center,flow,omitempty"`
	Width        int        `yaml:"width,omitempty"`
	Height       int        `yaml:"height,omitempty"`
	Length       int        `yaml:"length,omitempty"`
	Radius       float64    `yaml:"radius,omitempty"`
	Inner        float64    `yaml:"inner,omitempty"`
	Outer        float64    `yaml:"outer,omitempty"`
	Permittivity float64    `yaml:"permittivity"`
	Permeability float64    `yaml:"permeability,omitempty"`
	Background   float64    `yaml:"background,omitempty"`
	Priority     int        `yaml:"priority,omitempty"`
}

type WaveformConfig struct {
	Kind             string `yaml:"kind"`
	waveforms.Params `yaml:",inline"`
}

type SourceConfig struct {
	Name         string         `yaml:"name"`
	Kind         string         `yaml:"kind"`
	Cell         [3]int         `yaml:"cell,flow,omitempty"`
	From         [3]int         `yaml:"from,flow,omitempty"`
	To           [3]int         `yaml:"to,flow,omitempty"`
	Start        [3]int         `yaml:"start,flow,omitempty"`
	Size         [3]int         `yaml:"size,flow,omitempty"`
	Polarization string         `yaml:"polarization"`
	Amplitude    float64        `yaml:"amplitude"`
	Taper        bool           `yaml:"taper,omitempty"`
	Waveform     WaveformConfig `yaml:"waveform"`
}

type DetectorConfig struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	From  [3]int `yaml:"from,flow,omitempty"`
	To    [3]int `yaml:"to,flow,omitempty"`
	Start [3]int `yaml:"start,flow,omitempty"`
	Size  [3]int `yaml:"size,flow,omitempty"`
	Mode  string `yaml:"mode,omitempty"`
}

type RunConfig struct {
	Steps         int     `yaml:"steps,omitempty"`
	Duration      float64 `yaml:"duration,omitempty"`
	ProgressEvery int     `yaml:"progress_every,omitempty"`
}

// DefaultScene is a 1-D vacuum line driven by a 1550 nm point source.
func DefaultScene() *Scene {
	return &Scene{
		Name:    "vacuum_1550",
		Backend: DefaultBackend,
		Grid: GridConfig{
			Shape:   [3]int{200, 1, 1},
			Spacing: DefaultSpacing,
		},
		Sources: []SourceConfig{{
			Name:         "src",
			Kind:         "point",
			Cell:         [3]int{50, 0, 0},
			Polarization: "z",
			Amplitude:    1,
			Waveform: WaveformConfig{
				Kind:   "continuous",
				Params: waveforms.Params{Wavelength: DefaultWavelength},
			},
		}},
		Detectors: []DetectorConfig{{
			Name: "sensor",
			Kind: "line",
			From: [3]int{150, 0, 0},
			To:   [3]int{150, 0, 0},
			Mode: "E",
		}},
		Run: RunConfig{Steps: DefaultSteps},
	}
}

// Parse decodes a scene. Missing top-level fields keep the defaults of an
// empty scene: cpu backend and the default spacing.
func Parse(data []byte) (*Scene, error) {
	s := &Scene{Backend: DefaultBackend, Grid: GridConfig{Spacing: DefaultSpacing}}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Save(path string, s *Scene) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what can be checked without building the grid. Geometry
// is validated when the grid is assembled.
func (s *Scene) Validate() error {
	for a, n := range s.Grid.Shape {
		if n < 1 {
			return fmt.Errorf("%w: grid shape %v has a non-positive extent on axis %d", ErrInvalid, s.Grid.Shape, a)
		}
	}
	if s.Grid.Spacing <= 0 && s.Grid.SpacingXYZ == ([3]float64{}) {
		return fmt.Errorf("%w: grid spacing must be positive", ErrInvalid)
	}
	if s.Run.Steps < 0 || s.Run.Duration < 0 {
		return fmt.Errorf("%w: run length must not be negative", ErrInvalid)
	}
	if err := checkName("scene", s.Name); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, d := range s.Detectors {
		if d.Name == "" {
			return fmt.Errorf("%w: detector without a name", ErrInvalid)
		}
		if err := checkName("detector", d.Name); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate detector %q", ErrInvalid, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// checkName rejects names that would not stay inside a run directory.
func checkName(what, name string) error {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %s name %q must not contain path separators or \"..\"", ErrInvalid, what, name)
	}
	return nil
}

// Clone returns a deep copy via a YAML round trip.
func (s *Scene) Clone() *Scene {
	data, err := yaml.Marshal(s)
	if err != nil {
		panic(err)
	}
	out := &Scene{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}
