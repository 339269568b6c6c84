package tui

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/sim"
	"github.com/san-kum/fdtdsim/internal/waveforms"
)

func TestLiveRenderer(t *testing.T) {
	g, err := fdtd.New(fdtd.Config{Shape: [3]int{100, 1, 1}, GridSpacing: 20e-9}, backend.NewCPUBackend())
	if err != nil {
		t.Fatal(err)
	}
	src := fdtd.SourceSpec{Cell: [3]int{50, 0, 0}, Polarization: fdtd.Z, Amplitude: 1,
		Waveform: waveforms.Continuous{Wavelength: 1550e-9, Phase: math.Pi / 2}}
	if _, err := g.AddSource(src); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	r := NewLiveRenderer(&out, "sensor", fdtd.Z, 0)
	runner := sim.New(g, nil)
	runner.AddObserver(r)
	if _, err := runner.Run(context.Background(), sim.Config{Steps: 5}); err != nil {
		t.Fatal(err)
	}

	if r.Frames() != 5 {
		t.Errorf("frames = %d, want 5 with no rate limit", r.Frames())
	}
	text := out.String()
	if !strings.Contains(text, "step=5") || !strings.Contains(text, "Ez") {
		t.Errorf("last frame missing header:\n%s", text)
	}
	if !strings.Contains(text, "*") {
		t.Error("profile not drawn")
	}
}

func TestLiveRendererRateLimit(t *testing.T) {
	g, err := fdtd.New(fdtd.Config{Shape: [3]int{10, 1, 1}, GridSpacing: 20e-9}, backend.NewCPUBackend())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	r := NewLiveRenderer(&out, "quiet", fdtd.Z, 1)
	for i := 0; i < 10; i++ {
		r.OnStep(g)
	}
	if r.Frames() != 1 {
		t.Errorf("frames = %d, want 1 within one second", r.Frames())
	}
}
