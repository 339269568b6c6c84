package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/waveforms"
)

func newGrid(t *testing.T, n int) *fdtd.Grid {
	t.Helper()
	g, err := fdtd.New(fdtd.Config{Shape: [3]int{n, 1, 1}, GridSpacing: 20e-9}, backend.NewCPUBackend())
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestEnergyEmptyGrid(t *testing.T) {
	g := newGrid(t, 10)
	m := NewEnergy()
	m.Observe(g)
	if m.Value() != 0 {
		t.Errorf("expected zero energy, got %v", m.Value())
	}
}

func TestEnergyAfterSource(t *testing.T) {
	g := newGrid(t, 40)
	src := fdtd.SourceSpec{Cell: [3]int{20, 0, 0}, Polarization: fdtd.Z, Amplitude: 2,
		Waveform: waveforms.Continuous{Wavelength: 1550e-9, Phase: math.Pi / 2}}
	if _, err := g.AddSource(src); err != nil {
		t.Fatal(err)
	}
	if err := g.Step(); err != nil {
		t.Fatal(err)
	}

	m := NewEnergy()
	m.Observe(g)

	// brute force from the host snapshots
	e, h := g.E(), g.H()
	d := g.Spacing()
	want := 0.5 * (fdtd.VacuumPermittivity*e.Energy() + fdtd.VacuumPermeability*h.Energy()) * d[0] * d[1] * d[2]
	if math.Abs(m.Value()-want)/want > 1e-9 {
		t.Errorf("energy = %v, want %v", m.Value(), want)
	}
	if m.Peak() != m.Value() {
		t.Errorf("peak %v != value %v after one sample", m.Peak(), m.Value())
	}

	m.Reset()
	if m.Value() != 0 || m.Peak() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestPeakField(t *testing.T) {
	g := newGrid(t, 40)
	src := fdtd.SourceSpec{Cell: [3]int{20, 0, 0}, Polarization: fdtd.Z, Amplitude: 5,
		Waveform: waveforms.Continuous{Wavelength: 1550e-9, Phase: math.Pi / 2}}
	if _, err := g.AddSource(src); err != nil {
		t.Fatal(err)
	}
	m := NewPeakField()
	if err := g.Step(); err != nil {
		t.Fatal(err)
	}
	m.Observe(g)
	if math.Abs(m.Value()-5) > 1e-9 {
		t.Errorf("peak = %v, want 5", m.Value())
	}
}

func TestStability(t *testing.T) {
	g := newGrid(t, 10)
	s := NewStability(1)
	if s.Value() != 1 {
		t.Errorf("no samples: got %v, want 1", s.Value())
	}
	s.Observe(g)
	if s.Value() != 1 || s.FirstViolation() != -1 {
		t.Errorf("quiet grid flagged: value %v first %d", s.Value(), s.FirstViolation())
	}

	src := fdtd.SourceSpec{Cell: [3]int{5, 0, 0}, Polarization: fdtd.Z, Amplitude: 10,
		Waveform: waveforms.Continuous{Wavelength: 1550e-9, Phase: math.Pi / 2}}
	g2 := newGrid(t, 10)
	if _, err := g2.AddSource(src); err != nil {
		t.Fatal(err)
	}
	if err := g2.Step(); err != nil {
		t.Fatal(err)
	}
	s.Observe(g2)
	if s.Value() != 0.5 || s.FirstViolation() != 1 {
		t.Errorf("value %v first %d, want 0.5 and 1", s.Value(), s.FirstViolation())
	}
	s.Reset()
	if s.FirstViolation() != -1 {
		t.Error("reset kept violation")
	}
}

func TestStabilityLargeFinite(t *testing.T) {
	g := newGrid(t, 10)
	g.Backend().Fill(g.EArray(), 1e308)
	g.Backend().Fill(g.HArray(), 1e308)
	s := NewStability(0)
	s.Observe(g)
	if s.Value() != 1 || s.FirstViolation() != -1 {
		t.Errorf("large finite fields flagged: value %v first %d", s.Value(), s.FirstViolation())
	}

	nan := g.Backend().Full(math.NaN(), 1)
	g.Backend().Put(g.EArray(), []int{4}, nan)
	s.Observe(g)
	if s.Value() != 0.5 || s.FirstViolation() != 0 {
		t.Errorf("nan not flagged: value %v first %d", s.Value(), s.FirstViolation())
	}
}

func TestEnergyDrift(t *testing.T) {
	g := newGrid(t, 60)
	src := fdtd.SourceSpec{Cell: [3]int{30, 0, 0}, Polarization: fdtd.Z, Amplitude: 1,
		Waveform: waveforms.HanningPulse{Wavelength: 1550e-9, Cycles: 1}}
	if _, err := g.AddSource(src); err != nil {
		t.Fatal(err)
	}
	// let the pulse finish: one period is about 78 steps
	if err := g.Run(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	d := NewEnergyDrift()
	d.Observe(g)
	if err := g.Run(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	d.Observe(g)
	if d.Value() < 0 || math.IsNaN(d.Value()) {
		t.Errorf("drift = %v", d.Value())
	}
	d.Reset()
	if d.Value() != 0 {
		t.Error("reset kept drift")
	}
}
