package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultScene(t *testing.T) {
	s := DefaultScene()
	if s.Name != "vacuum_1550" {
		t.Errorf("expected name vacuum_1550, got %s", s.Name)
	}
	if s.Grid.Shape != [3]int{200, 1, 1} {
		t.Errorf("unexpected shape %v", s.Grid.Shape)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("default scene invalid: %v", err)
	}
	if s.Run.Steps != DefaultSteps {
		t.Errorf("steps = %d, want %d", s.Run.Steps, DefaultSteps)
	}
}

func TestGetPreset(t *testing.T) {
	s := GetPreset("pml_pulse")
	if s == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(s.Boundaries) != 1 || s.Boundaries[0].Thickness != 40 {
		t.Errorf("unexpected boundaries %+v", s.Boundaries)
	}

	// every call builds a new scene
	s.Boundaries[0].Thickness = 1
	if GetPreset("pml_pulse").Boundaries[0].Thickness != 40 {
		t.Error("preset mutated through a previous copy")
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for unknown preset")
	}
}

func TestPresetsValid(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			s := GetPreset(name)
			if s.Name != name {
				t.Errorf("preset %q is named %q", name, s.Name)
			}
			if err := s.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestListPresetsSorted(t *testing.T) {
	want := []string{"pml_pulse", "ring", "vacuum_1550", "waveguide"}
	if diff := cmp.Diff(want, ListPresets()); diff != "" {
		t.Errorf("presets mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	doc := `
name: slab
grid:
  shape: [100, 1, 1]
boundaries:
  - {kind: pml, axis: x, side: both, thickness: 10}
objects:
  - {name: glass, shape: block, start: [40, 0, 0], size: [20, 1, 1], permittivity: 2.25}
sources:
  - name: src
    kind: point
    cell: [20, 0, 0]
    polarization: z
    amplitude: 1
    waveform: {kind: gaussian, wavelength: 1.55e-6, pulse_length: 5e-15}
detectors:
  - {name: sensor, kind: line, from: [80, 0, 0], to: [80, 0, 0]}
run:
  steps: 50
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if s.Backend != DefaultBackend || s.Grid.Spacing != DefaultSpacing {
		t.Errorf("defaults not applied: backend %q spacing %v", s.Backend, s.Grid.Spacing)
	}
	if s.Objects[0].Permittivity != 2.25 || s.Objects[0].Start != [3]int{40, 0, 0} {
		t.Errorf("object = %+v", s.Objects[0])
	}
	w := s.Sources[0].Waveform
	if w.Kind != "gaussian" || w.Wavelength != 1.55e-6 || w.PulseLength != 5e-15 {
		t.Errorf("waveform = %+v", w)
	}
	if s.Run.Steps != 50 {
		t.Errorf("steps = %d", s.Run.Steps)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero extent", "grid: {shape: [0, 1, 1]}"},
		{"negative spacing", "grid: {shape: [4, 1, 1], spacing: -1}"},
		{"negative steps", "grid: {shape: [4, 1, 1]}\nrun: {steps: -3}"},
		{"duplicate detector", "grid: {shape: [4, 1, 1]}\ndetectors: [{name: a, kind: line}, {name: a, kind: line}]"},
		{"unnamed detector", "grid: {shape: [4, 1, 1]}\ndetectors: [{kind: line}]"},
		{"detector path", "grid: {shape: [4, 1, 1]}\ndetectors: [{name: /../../../escaped, kind: line}]"},
		{"detector backslash", "grid: {shape: [4, 1, 1]}\ndetectors: [{name: 'a\\b', kind: line}]"},
		{"scene dot segment", "name: ..up\ngrid: {shape: [4, 1, 1]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	if _, err := Parse([]byte("grid: [")); err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("expected a decode error, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	want := GetPreset("ring")
	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "shape: [120, 120, 1]") {
		t.Errorf("expected flow-style shape in:\n%s", data)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestClone(t *testing.T) {
	s := GetPreset("waveguide")
	c := s.Clone()
	if diff := cmp.Diff(s, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}
	c.Objects[0].Permittivity = 1
	if s.Objects[0].Permittivity != 12.25 {
		t.Error("clone shares object storage")
	}
}

func TestSetParam(t *testing.T) {
	s := GetPreset("ring")
	params := map[string]float64{
		"objects.ring.outer":       38,
		"objects.bus.width":        5.6,
		"sources.launch.cycles":    8,
		"sources.launch.amplitude": 2,
		"grid.courant":             0.5,
		"run.steps":                120,
	}
	if err := SetParams(s, params); err != nil {
		t.Fatal(err)
	}
	if s.Objects[1].Outer != 38 || s.Objects[0].Width != 6 {
		t.Errorf("objects = %+v", s.Objects)
	}
	if s.Sources[0].Waveform.Cycles != 8 || s.Sources[0].Amplitude != 2 {
		t.Errorf("source = %+v", s.Sources[0])
	}
	if s.Grid.Courant != 0.5 || s.Run.Steps != 120 {
		t.Errorf("grid %+v run %+v", s.Grid, s.Run)
	}

	if err := SetParam(s, "sources.launch.frequency", 2e14); err != nil {
		t.Fatal(err)
	}
	if w := s.Sources[0].Waveform; w.Frequency != 2e14 || w.Wavelength != 0 {
		t.Errorf("frequency should replace wavelength: %+v", w)
	}

	if err := SetParam(s, "sources.launch.offset", 0); err != nil {
		t.Fatal(err)
	}
	if off := s.Sources[0].Waveform.Offset; off == nil || *off != 0 {
		t.Errorf("explicit zero offset lost: %v", off)
	}
}

func TestSetParamUnknown(t *testing.T) {
	for _, path := range []string{"", "grid", "grid.shape", "objects.missing.permittivity", "objects.ring.color", "sources.nope.amplitude", "run.speed"} {
		if err := SetParam(GetPreset("ring"), path, 1); !errors.Is(err, ErrInvalid) {
			t.Errorf("%q: expected ErrInvalid, got %v", path, err)
		}
	}
}
