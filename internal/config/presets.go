package config

import (
	"sort"

	"github.com/san-kum/fdtdsim/internal/waveforms"
)

// period of the default 1550 nm carrier, in seconds
const carrierPeriod = DefaultWavelength / waveforms.SpeedOfLight

// Presets builds fresh copies of the built-in scenes.
var Presets = map[string]func() *Scene{
	"vacuum_1550": DefaultScene,

	"pml_pulse": func() *Scene {
		return &Scene{
			Name:    "pml_pulse",
			Backend: DefaultBackend,
			Grid:    GridConfig{Shape: [3]int{1000, 1, 1}, Spacing: DefaultSpacing},
			Boundaries: []BoundaryConfig{
				{Kind: "pml", Axis: "x", Side: "both", Thickness: 40, Reflection: 1e-8},
			},
			Sources: []SourceConfig{{
				Name: "pulse", Kind: "point", Cell: [3]int{300, 0, 0}, Polarization: "z", Amplitude: 1,
				Waveform: WaveformConfig{Kind: "gaussian", Params: waveforms.Params{
					Wavelength: DefaultWavelength, PulseLength: carrierPeriod,
				}},
			}},
			Detectors: []DetectorConfig{
				{Name: "sensor", Kind: "line", From: [3]int{500, 0, 0}, To: [3]int{500, 0, 0}, Mode: "E"},
			},
			Run: RunConfig{Steps: 2400, ProgressEvery: 400},
		}
	},

	"waveguide": func() *Scene {
		return &Scene{
			Name:    "waveguide",
			Backend: DefaultBackend,
			Grid:    GridConfig{Shape: [3]int{160, 80, 1}, Spacing: 25e-9},
			Boundaries: []BoundaryConfig{
				{Kind: "pml", Axis: "x", Side: "both", Thickness: 10},
				{Kind: "pml", Axis: "y", Side: "both", Thickness: 10},
			},
			Objects: []ObjectConfig{
				{Name: "core", Shape: "waveguide", Axis: "x", Center: [3]float64{0, 40, 0}, Width: 8, Height: 1, Permittivity: 12.25},
			},
			Sources: []SourceConfig{{
				Name: "launch", Kind: "line", From: [3]int{20, 34, 0}, To: [3]int{20, 46, 0}, Polarization: "z",
				Amplitude: 1, Taper: true,
				Waveform: WaveformConfig{Kind: "continuous", Params: waveforms.Params{Wavelength: DefaultWavelength}},
			}},
			Detectors: []DetectorConfig{
				{Name: "output", Kind: "line", From: [3]int{140, 30, 0}, To: [3]int{140, 50, 0}, Mode: "E"},
				{Name: "field", Kind: "block", Start: [3]int{10, 10, 0}, Size: [3]int{140, 60, 1}, Mode: "E"},
			},
			Run: RunConfig{Steps: 1000, ProgressEvery: 200},
		}
	},

	"ring": func() *Scene {
		return &Scene{
			Name:    "ring",
			Backend: DefaultBackend,
			Grid:    GridConfig{Shape: [3]int{120, 120, 1}, Spacing: 25e-9},
			Boundaries: []BoundaryConfig{
				{Kind: "pml", Axis: "x", Side: "both", Thickness: 10},
				{Kind: "pml", Axis: "y", Side: "both", Thickness: 10},
			},
			Objects: []ObjectConfig{
				{Name: "bus", Shape: "waveguide", Axis: "x", Center: [3]float64{0, 20, 0}, Width: 6, Height: 1, Permittivity: 12.25, Priority: 1},
				{Name: "ring", Shape: "ring", Center: [3]float64{60, 62, 0}, Inner: 30, Outer: 36, Permittivity: 12.25},
			},
			Sources: []SourceConfig{{
				Name: "launch", Kind: "line", From: [3]int{15, 17, 0}, To: [3]int{15, 23, 0}, Polarization: "z",
				Amplitude: 1,
				Waveform:  WaveformConfig{Kind: "hanning", Params: waveforms.Params{Wavelength: DefaultWavelength, Cycles: 5}},
			}},
			Detectors: []DetectorConfig{
				{Name: "through", Kind: "line", From: [3]int{105, 17, 0}, To: [3]int{105, 23, 0}, Mode: "E"},
				{Name: "ring", Kind: "line", From: [3]int{60, 93, 0}, To: [3]int{60, 98, 0}, Mode: "E"},
			},
			Run: RunConfig{Steps: 2000, ProgressEvery: 500},
		}
	},
}

// GetPreset returns a fresh copy of a built-in scene, or nil.
func GetPreset(name string) *Scene {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
