package config

import (
	"fmt"
	"math"
	"strings"
)

// SetParam assigns a numeric scene parameter addressed by a dotted path:
//
//	grid.courant, grid.permittivity, grid.permeability
//	objects.<name>.permittivity (also permeability, width, height, radius, inner, outer, priority)
//	sources.<name>.amplitude (also wavelength, frequency, period, phase, pulse_length, offset, cycles)
//	run.steps, run.duration
//
// Integer fields are rounded.
func SetParam(s *Scene, path string, v float64) error {
	parts := strings.Split(path, ".")
	bad := func() error { return fmt.Errorf("%w: unknown parameter %q", ErrInvalid, path) }

	switch {
	case len(parts) == 2 && parts[0] == "grid":
		switch parts[1] {
		case "courant":
			s.Grid.Courant = v
		case "permittivity":
			s.Grid.Permittivity = v
		case "permeability":
			s.Grid.Permeability = v
		default:
			return bad()
		}
	case len(parts) == 2 && parts[0] == "run":
		switch parts[1] {
		case "steps":
			s.Run.Steps = round(v)
		case "duration":
			s.Run.Duration = v
		default:
			return bad()
		}
	case len(parts) == 3 && parts[0] == "objects":
		o := s.object(parts[1])
		if o == nil {
			return fmt.Errorf("%w: no object %q", ErrInvalid, parts[1])
		}
		switch parts[2] {
		case "permittivity":
			o.Permittivity = v
		case "permeability":
			o.Permeability = v
		case "width":
			o.Width = round(v)
		case "height":
			o.Height = round(v)
		case "radius":
			o.Radius = v
		case "inner":
			o.Inner = v
		case "outer":
			o.Outer = v
		case "priority":
			o.Priority = round(v)
		default:
			return bad()
		}
	case len(parts) == 3 && parts[0] == "sources":
		src := s.source(parts[1])
		if src == nil {
			return fmt.Errorf("%w: no source %q", ErrInvalid, parts[1])
		}
		w := &src.Waveform.Params
		switch parts[2] {
		case "amplitude":
			src.Amplitude = v
		case "wavelength":
			w.Wavelength, w.Frequency, w.Period = v, 0, 0
		case "frequency":
			w.Wavelength, w.Frequency, w.Period = 0, v, 0
		case "period":
			w.Wavelength, w.Frequency, w.Period = 0, 0, v
		case "phase":
			w.Phase = v
		case "pulse_length":
			w.PulseLength = v
		case "offset":
			off := v
			w.Offset = &off
		case "cycles":
			w.Cycles = v
		default:
			return bad()
		}
	default:
		return bad()
	}
	return nil
}

// SetParams applies every entry of params; see SetParam.
func SetParams(s *Scene, params map[string]float64) error {
	for path, v := range params {
		if err := SetParam(s, path, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) object(name string) *ObjectConfig {
	for i := range s.Objects {
		if s.Objects[i].Name == name {
			return &s.Objects[i]
		}
	}
	return nil
}

func (s *Scene) source(name string) *SourceConfig {
	for i := range s.Sources {
		if s.Sources[i].Name == name {
			return &s.Sources[i]
		}
	}
	return nil
}

func round(v float64) int { return int(math.Round(v)) }
