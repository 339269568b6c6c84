package fdtd

import (
	"fmt"
	"math"
	"strings"
)

const (
	SpeedOfLight       = 299792458.0
	VacuumPermittivity = 8.8541878128e-12
	VacuumPermeability = 1.25663706212e-6
	DefaultCourant     = 0.99

	defaultReflection  = 1e-8
	cfsAlpha           = 1e-8
	backgroundPriority = math.MinInt
)

// Axis selects a Cartesian axis or field component.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

func (a Axis) valid() bool { return a >= X && a <= Z }

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x", "0":
		return X, nil
	case "y", "1":
		return Y, nil
	case "z", "2":
		return Z, nil
	}
	return 0, configErr("axis", "%q is not one of x, y, z", s)
}
