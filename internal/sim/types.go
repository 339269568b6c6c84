package sim

import (
	"time"

	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// Metric observes the grid after every completed step.
type Metric interface {
	Name() string
	Observe(g *fdtd.Grid)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(g *fdtd.Grid)
}

// Config selects how long to run. Steps wins over Duration when both are set.
type Config struct {
	Steps    int
	Duration float64
	// ProgressEvery logs progress every n steps; zero disables it.
	ProgressEvery int
}

type Result struct {
	Steps          int
	Time           float64
	Metrics        map[string]float64
	Elapsed        time.Duration
	StepsPerSecond float64
}
