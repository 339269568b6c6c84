package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/waveforms"
)

func newGrid(t *testing.T, be backend.Backend) *fdtd.Grid {
	t.Helper()
	g, err := fdtd.New(fdtd.Config{Shape: [3]int{64, 1, 1}, GridSpacing: 20e-9}, be)
	if err != nil {
		t.Fatal(err)
	}
	src := fdtd.SourceSpec{Cell: [3]int{32, 0, 0}, Polarization: fdtd.Z, Amplitude: 1,
		Waveform: waveforms.Continuous{Wavelength: 1550e-9}}
	if _, err := g.AddSource(src); err != nil {
		t.Fatal(err)
	}
	return g
}

type testMetric struct {
	count int
	last  int
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(g *fdtd.Grid) {
	t.count++
	t.last = g.TimeStepsPassed()
}
func (t *testMetric) Value() float64 { return float64(t.count) }
func (t *testMetric) Reset()         { t.count, t.last = 0, 0 }

type countingObserver struct{ n int }

func (c *countingObserver) OnStep(*fdtd.Grid) { c.n++ }

func TestRunnerRun(t *testing.T) {
	g := newGrid(t, backend.NewCPUBackend())
	r := New(g, nil)
	metric := &testMetric{}
	obs := &countingObserver{}
	r.AddMetric(metric)
	r.AddObserver(obs)

	result, err := r.Run(context.Background(), Config{Steps: 25, ProgressEvery: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Steps != 25 || g.TimeStepsPassed() != 25 {
		t.Errorf("steps = %d / %d, want 25", result.Steps, g.TimeStepsPassed())
	}
	if got, ok := result.Metrics["test"]; !ok || got != 25 {
		t.Errorf("metric = %v (present %v), want 25", got, ok)
	}
	if metric.last != 25 || obs.n != 25 {
		t.Errorf("metric saw step %d, observer %d calls", metric.last, obs.n)
	}
	if math.Abs(result.Time-25*g.TimeStep()) > 1e-30 {
		t.Errorf("time = %v", result.Time)
	}
}

func TestRunnerDuration(t *testing.T) {
	g := newGrid(t, backend.NewCPUBackend())
	r := New(g, nil)
	result, err := r.Run(context.Background(), Config{Duration: 10 * g.TimeStep()})
	if err != nil {
		t.Fatal(err)
	}
	if result.Steps != 10 {
		t.Errorf("steps = %d, want 10", result.Steps)
	}
}

func TestRunnerInvalidConfig(t *testing.T) {
	r := New(newGrid(t, backend.NewCPUBackend()), nil)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty", Config{}},
		{"negative steps", Config{Steps: -1}},
		{"negative duration", Config{Duration: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Run(context.Background(), tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRunnerCancel(t *testing.T) {
	r := New(newGrid(t, backend.NewCPUBackend()), nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.RunWithCallback(ctx, Config{Steps: 100}, func(g *fdtd.Grid) bool {
		calls++
		if calls == 5 {
			cancel()
		}
		return true
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 5 {
		t.Errorf("callback ran %d times, want 5", calls)
	}
}

func TestRunWithCallbackStops(t *testing.T) {
	r := New(newGrid(t, backend.NewCPUBackend()), nil)
	err := r.RunWithCallback(context.Background(), Config{Steps: 100}, func(g *fdtd.Grid) bool {
		return g.TimeStepsPassed() < 7
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := r.Grid().TimeStepsPassed(); n != 7 {
		t.Errorf("stopped after %d steps, want 7", n)
	}
}

func TestRunAll(t *testing.T) {
	runners := []*Runner{
		New(newGrid(t, backend.NewCPUBackend()), nil),
		New(newGrid(t, backend.NewTensorBackend(backend.Float64)), nil),
		New(newGrid(t, backend.NewCPUBackend()), nil),
	}
	results, err := RunAll(context.Background(), runners, Config{Steps: 40})
	if err != nil {
		t.Fatal(err)
	}
	ref := runners[0].Grid().E()
	for i, r := range runners {
		if results[i].Steps != 40 {
			t.Errorf("runner %d took %d steps", i, results[i].Steps)
		}
		got := r.Grid().E()
		for k := range ref.Data {
			if math.Abs(got.Data[k]-ref.Data[k]) > 1e-9*math.Max(1, math.Abs(ref.Data[k])) {
				t.Fatalf("runner %d diverges from the reference at %d", i, k)
			}
		}
	}
}
