package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// Transformer is the part of a numeric backend used here.
type Transformer interface {
	FFT(series []float64) []complex128
}

// Spectrum is a one-sided amplitude spectrum.
type Spectrum struct {
	Frequencies []float64
	Amplitude   []float64
}

// PowerSpectrum transforms a series sampled every dt seconds. The mean is
// removed first so the DC bin does not dominate.
func PowerSpectrum(tr Transformer, series []float64, dt float64) Spectrum {
	n := len(series)
	if n == 0 || dt <= 0 {
		return Spectrum{}
	}
	centered := make([]float64, n)
	copy(centered, series)
	floats.AddConst(-floats.Sum(series)/float64(n), centered)

	coeffs := tr.FFT(centered)
	half := n/2 + 1
	spec := Spectrum{
		Frequencies: make([]float64, half),
		Amplitude:   make([]float64, half),
	}
	for k := 0; k < half; k++ {
		spec.Frequencies[k] = float64(k) / (float64(n) * dt)
		spec.Amplitude[k] = cmplx.Abs(coeffs[k]) / float64(n)
	}
	return spec
}

// Peak returns the strongest non-DC bin, or zeros when there is none.
func (s Spectrum) Peak() (freq, amp float64) {
	if len(s.Amplitude) < 2 {
		return 0, 0
	}
	k := floats.MaxIdx(s.Amplitude[1:]) + 1
	return s.Frequencies[k], s.Amplitude[k]
}

// Wavelength converts a frequency in Hz to a vacuum wavelength in metres.
func Wavelength(freq float64) float64 {
	if freq <= 0 {
		return math.Inf(1)
	}
	return fdtd.SpeedOfLight / freq
}

// ArrivalStep is the 1-based step at which |series| first exceeds threshold,
// or -1. Detector series start at step 1.
func ArrivalStep(series []float64, threshold float64) int {
	for i, v := range series {
		if math.Abs(v) > threshold {
			return i + 1
		}
	}
	return -1
}

// Transmission is the ratio of the summed squared output to the summed
// squared input, 0 for a silent input.
func Transmission(in, out []float64) float64 {
	pin := floats.Dot(in, in)
	if pin == 0 {
		return 0
	}
	return floats.Dot(out, out) / pin
}
