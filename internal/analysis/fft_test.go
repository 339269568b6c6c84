package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/fdtdsim/internal/backend"
)

func TestPowerSpectrumPeak(t *testing.T) {
	tests := []struct {
		name string
		be   backend.Backend
		n    int
		bin  int
	}{
		{"cpu power of two", backend.NewCPUBackend(), 256, 16},
		{"cpu odd length", backend.NewCPUBackend(), 300, 25},
		{"tensor", backend.NewTensorBackend(backend.Float64), 128, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt := 1e-16
			series := make([]float64, tt.n)
			for i := range series {
				series[i] = 2 + 3*math.Sin(2*math.Pi*float64(tt.bin*i)/float64(tt.n))
			}
			spec := PowerSpectrum(tt.be, series, dt)
			if len(spec.Frequencies) != tt.n/2+1 {
				t.Fatalf("got %d bins", len(spec.Frequencies))
			}
			f, amp := spec.Peak()
			want := float64(tt.bin) / (float64(tt.n) * dt)
			if math.Abs(f-want)/want > 1e-12 {
				t.Errorf("peak at %v, want %v", f, want)
			}
			// a real sine splits its amplitude over the two sidebands
			if math.Abs(amp-1.5) > 1e-9 {
				t.Errorf("amplitude = %v, want 1.5", amp)
			}
			if spec.Amplitude[0] > 1e-9 {
				t.Errorf("DC bin %v survived mean removal", spec.Amplitude[0])
			}
		})
	}
}

func TestPowerSpectrumEmpty(t *testing.T) {
	spec := PowerSpectrum(backend.NewCPUBackend(), nil, 1)
	if f, a := spec.Peak(); f != 0 || a != 0 {
		t.Errorf("empty spectrum peak = %v, %v", f, a)
	}
}

func TestWavelength(t *testing.T) {
	f := 299792458.0 / 1550e-9
	if got := Wavelength(f); math.Abs(got-1550e-9) > 1e-18 {
		t.Errorf("wavelength = %v", got)
	}
	if !math.IsInf(Wavelength(0), 1) {
		t.Error("zero frequency should map to +Inf")
	}
}

func TestArrivalStep(t *testing.T) {
	tests := []struct {
		series    []float64
		threshold float64
		want      int
	}{
		{[]float64{0, 0, 0.5, -2}, 1, 4},
		{[]float64{0, -3}, 1, 2},
		{[]float64{0, 0.1}, 1, -1},
		{nil, 1, -1},
	}
	for _, tt := range tests {
		if got := ArrivalStep(tt.series, tt.threshold); got != tt.want {
			t.Errorf("ArrivalStep(%v, %v) = %d, want %d", tt.series, tt.threshold, got, tt.want)
		}
	}
}

func TestTransmission(t *testing.T) {
	in := []float64{1, -1, 1, -1}
	out := []float64{0.5, -0.5, 0.5, -0.5}
	if got := Transmission(in, out); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("transmission = %v, want 0.25", got)
	}
	if Transmission([]float64{0, 0}, out) != 0 {
		t.Error("silent input should give zero")
	}
}
