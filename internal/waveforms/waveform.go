package waveforms

import (
	"errors"
	"fmt"
	"math"
)

// SpeedOfLight in vacuum, m/s.
const SpeedOfLight = 299792458.0

var ErrInvalid = errors.New("waveforms: invalid waveform parameters")

// Generator returns the unit-amplitude excitation at time step q.
type Generator func(q int) float64

// Waveform is a time signature that binds to a concrete time step.
type Waveform interface {
	Kind() string
	Bind(dt float64) (Generator, error)
}

// Continuous is a sine wave. Exactly one of Period, Frequency or Wavelength
// (vacuum) must be set.
type Continuous struct {
	Period     float64 `yaml:"period"`
	Frequency  float64 `yaml:"frequency"`
	Wavelength float64 `yaml:"wavelength"`
	Phase      float64 `yaml:"phase"`
}

func (c Continuous) Kind() string { return "continuous" }

// PeriodSeconds resolves whichever of period, frequency or wavelength is set.
func (c Continuous) PeriodSeconds() (float64, error) {
	return resolvePeriod(c.Period, c.Frequency, c.Wavelength)
}

func (c Continuous) Bind(dt float64) (Generator, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("%w: time step must be positive, got %g", ErrInvalid, dt)
	}
	period, err := c.PeriodSeconds()
	if err != nil {
		return nil, err
	}
	steps := period / dt
	phase := c.Phase
	return func(q int) float64 {
		return math.Sin(2*math.Pi*float64(q)/steps + phase)
	}, nil
}

// GaussianPulse is a sine carrier under a Gaussian envelope. PulseLength is
// the envelope FWHM in seconds; Offset places the envelope peak and defaults
// to three pulse lengths when nil. An explicit zero centres the peak at t=0.
type GaussianPulse struct {
	Frequency   float64  `yaml:"frequency"`
	Wavelength  float64  `yaml:"wavelength"`
	PulseLength float64  `yaml:"pulse_length"`
	Offset      *float64 `yaml:"offset,omitempty"`
}

func (g GaussianPulse) Kind() string { return "gaussian" }

// Sigma is the envelope standard deviation, FWHM / (2·sqrt(2·ln 2)).
func (g GaussianPulse) Sigma() float64 {
	return g.PulseLength / (2 * math.Sqrt(2*math.Ln2))
}

func (g GaussianPulse) offset() float64 {
	if g.Offset != nil {
		return *g.Offset
	}
	return 3 * g.PulseLength
}

func (g GaussianPulse) Bind(dt float64) (Generator, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("%w: time step must be positive, got %g", ErrInvalid, dt)
	}
	if g.PulseLength <= 0 {
		return nil, fmt.Errorf("%w: pulse length must be positive, got %g", ErrInvalid, g.PulseLength)
	}
	period, err := resolvePeriod(0, g.Frequency, g.Wavelength)
	if err != nil {
		return nil, err
	}
	omega := 2 * math.Pi / period
	sigma := g.Sigma()
	t0 := g.offset()
	return func(q int) float64 {
		t := float64(q)*dt - t0
		return math.Sin(-omega*t) * math.Exp(-t*t/(2*sigma*sigma))
	}, nil
}

// HanningPulse is a sine carrier under a Hann window spanning Cycles periods.
// The signal is zero once the window has closed.
type HanningPulse struct {
	Frequency  float64 `yaml:"frequency"`
	Wavelength float64 `yaml:"wavelength"`
	Cycles     float64 `yaml:"cycles"`
}

func (h HanningPulse) Kind() string { return "hanning" }

func (h HanningPulse) Bind(dt float64) (Generator, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("%w: time step must be positive, got %g", ErrInvalid, dt)
	}
	if h.Cycles <= 0 {
		return nil, fmt.Errorf("%w: cycles must be positive, got %g", ErrInvalid, h.Cycles)
	}
	period, err := resolvePeriod(0, h.Frequency, h.Wavelength)
	if err != nil {
		return nil, err
	}
	omega := 2 * math.Pi / period
	cycles := h.Cycles
	cutoff := cycles * period
	return func(q int) float64 {
		t := float64(q) * dt
		if t >= cutoff {
			return 0
		}
		return 0.5 * (1 - math.Cos(omega*t/cycles)) * math.Sin(omega*t)
	}, nil
}

func resolvePeriod(period, frequency, wavelength float64) (float64, error) {
	set := 0
	for _, v := range []float64{period, frequency, wavelength} {
		if v != 0 {
			set++
		}
	}
	if set != 1 {
		return 0, fmt.Errorf("%w: exactly one of period, frequency, wavelength must be set", ErrInvalid)
	}
	switch {
	case period > 0:
		return period, nil
	case frequency > 0:
		return 1 / frequency, nil
	case wavelength > 0:
		return wavelength / SpeedOfLight, nil
	}
	return 0, fmt.Errorf("%w: period, frequency and wavelength must be positive", ErrInvalid)
}

// ByName builds a waveform from its kind and a parameter set, as found in
// scene files.
func ByName(kind string, p Params) (Waveform, error) {
	switch kind {
	case "", "continuous", "cw":
		return Continuous{Period: p.Period, Frequency: p.Frequency, Wavelength: p.Wavelength, Phase: p.Phase}, nil
	case "gaussian", "gaussian-pulse":
		return GaussianPulse{Frequency: p.Frequency, Wavelength: p.Wavelength, PulseLength: p.PulseLength, Offset: p.Offset}, nil
	case "hanning", "hanning-pulse":
		return HanningPulse{Frequency: p.Frequency, Wavelength: p.Wavelength, Cycles: p.Cycles}, nil
	default:
		return nil, fmt.Errorf("%w: unknown waveform kind %q", ErrInvalid, kind)
	}
}

// Params is the union of waveform parameters.
type Params struct {
	Period      float64  `yaml:"period,omitempty"`
	Frequency   float64  `yaml:"frequency,omitempty"`
	Wavelength  float64  `yaml:"wavelength,omitempty"`
	Phase       float64  `yaml:"phase,omitempty"`
	PulseLength float64  `yaml:"pulse_length,omitempty"`
	Offset      *float64 `yaml:"offset,omitempty"`
	Cycles      float64  `yaml:"cycles,omitempty"`
}
