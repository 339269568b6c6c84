package fdtd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/san-kum/fdtdsim/internal/backend"
	"gonum.org/v1/gonum/floats"
)

// State is the grid lifecycle: Configuring until the first step, Running
// while stepping, Idle between runs.
type State int

const (
	Configuring State = iota
	Running
	Idle
)

func (s State) String() string {
	switch s {
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	}
	return "idle"
}

// Config holds the grid settings. Zero values select defaults where one exists.
type Config struct {
	Shape [3]int
	// GridSpacing is the uniform cell size in metres.
	GridSpacing float64
	// Spacing overrides GridSpacing per axis when any entry is non-zero.
	Spacing [3]float64
	// Permittivity and Permeability of the background, relative; default 1.
	Permittivity float64
	Permeability float64
	// CourantNumber must lie in (0, 1); default 0.99.
	CourantNumber float64
	// CheckDivergence makes Step fail with ErrDiverged on NaN or Inf fields.
	CheckDivergence bool
	Logger          *slog.Logger
}

// Grid owns the fields and material arrays and advances them in time.
type Grid struct {
	be    backend.Backend
	log   *slog.Logger
	cfg   Config
	state State

	shape      [3]int
	spacing    [3]float64
	background [2]float64
	dt         float64
	courant    [3]float64
	steps      int

	e, h          backend.Array
	invEps, invMu backend.Array
	scratch       backend.Array
	prio          []int

	objects    []Object
	sources    []*Source
	detectors  []*Detector
	boundaries []Boundary
}

// New validates cfg and allocates a grid on be.
func New(cfg Config, be backend.Backend) (*Grid, error) {
	if be == nil {
		return nil, configErr("backend", "nil")
	}
	if !be.Available() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, be.Name())
	}
	for a := 0; a < 3; a++ {
		if cfg.Shape[a] < 1 {
			return nil, configErr("shape", "%v: every extent must be at least 1", cfg.Shape)
		}
	}

	spacing := cfg.Spacing
	if spacing == ([3]float64{}) {
		spacing = [3]float64{cfg.GridSpacing, cfg.GridSpacing, cfg.GridSpacing}
	}
	for a := 0; a < 3; a++ {
		if !(spacing[a] > 0) || math.IsInf(spacing[a], 0) {
			return nil, configErr("grid spacing", "%v along %v", spacing[a], Axis(a))
		}
	}

	courant := cfg.CourantNumber
	if courant == 0 {
		courant = DefaultCourant
	}
	if !(courant > 0 && courant < 1) {
		return nil, configErr("courant number", "%g not in (0, 1)", cfg.CourantNumber)
	}
	cfg.CourantNumber = courant

	bg := [2]float64{cfg.Permittivity, cfg.Permeability}
	for i, name := range []string{"permittivity", "permeability"} {
		if bg[i] == 0 {
			bg[i] = 1
		}
		if !(bg[i] > 0) {
			return nil, configErr(name, "%g must be positive", bg[i])
		}
	}
	cfg.Permittivity, cfg.Permeability = bg[0], bg[1]

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	g := &Grid{
		be:         be,
		log:        log,
		cfg:        cfg,
		shape:      cfg.Shape,
		spacing:    spacing,
		background: bg,
	}
	g.dt = TimeStep(cfg.Shape, spacing, courant)
	for a := 0; a < 3; a++ {
		g.courant[a] = SpeedOfLight * g.dt / spacing[a]
	}

	nx, ny, nz := g.shape[0], g.shape[1], g.shape[2]
	g.e = be.Zeros(nx, ny, nz, 3)
	g.h = be.Zeros(nx, ny, nz, 3)
	g.scratch = be.Zeros(nx, ny, nz, 3)
	g.invEps = be.Full(1/bg[0], nx, ny, nz, 3)
	g.invMu = be.Full(1/bg[1], nx, ny, nz, 3)
	g.prio = make([]int, nx*ny*nz)
	for i := range g.prio {
		g.prio[i] = backgroundPriority
	}

	log.Info("grid created", "shape", g.shape, "spacing", spacing, "dt", g.dt,
		"courant", courant, "dims", g.Dims(), "backend", be.Name())
	return g, nil
}

// TimeStep is the stable step for a grid: courant / (c·sqrt(sum 1/dx²)) over
// the axes with more than one cell.
func TimeStep(shape [3]int, spacing [3]float64, courant float64) float64 {
	var sum float64
	for a := 0; a < 3; a++ {
		if shape[a] > 1 {
			sum += 1 / (spacing[a] * spacing[a])
		}
	}
	if sum == 0 {
		sum = 1 / (spacing[0] * spacing[0])
	}
	return courant / (SpeedOfLight * math.Sqrt(sum))
}

func (g *Grid) configuring(what string) error {
	if g.state != Configuring {
		return configErr(what, "registration after the first step")
	}
	return nil
}

// Step advances the grid by one time step.
func (g *Grid) Step() error {
	g.state = Running
	defer func() { g.state = Idle }()

	q := g.steps
	UpdateE(g.be, g.e, g.h, g.invEps, g.scratch, g.courant)
	for _, s := range g.sources {
		s.apply(g.be, g.e, q)
	}
	for _, b := range g.boundaries {
		b.applyE(g.be, g)
	}

	UpdateH(g.be, g.e, g.h, g.invMu, g.scratch, g.courant)
	for _, b := range g.boundaries {
		b.applyH(g.be, g)
	}

	g.steps++
	for _, d := range g.detectors {
		d.record(g.be, g.e, g.h)
	}

	if g.cfg.CheckDivergence && !g.Finite() {
		return &StepError{Step: g.steps, Time: g.Time(), Wrapped: ErrDiverged}
	}
	return nil
}

// Finite reports whether every E and H component is a finite number.
func (g *Grid) Finite() bool {
	return finite(g.be.ToSlice(g.e)) && finite(g.be.ToSlice(g.h))
}

func finite(data []float64) bool {
	if len(data) == 0 {
		return true
	}
	if floats.HasNaN(data) {
		return false
	}
	return !math.IsInf(floats.Max(data), 1) && !math.IsInf(floats.Min(data), -1)
}

// Run performs steps time steps, stopping early if ctx is cancelled.
func (g *Grid) Run(ctx context.Context, steps int) error {
	if steps < 0 {
		return configErr("steps", "%d is negative", steps)
	}
	g.log.Debug("run started", "steps", steps, "from", g.steps)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := g.Step(); err != nil {
			g.log.Error("step failed", "step", g.steps, "error", err)
			return err
		}
	}
	g.log.Debug("run finished", "time_steps_passed", g.steps, "time", g.Time())
	return nil
}

// RunFor runs for the number of whole steps that fit in the given duration.
func (g *Grid) RunFor(ctx context.Context, seconds float64) error {
	if seconds < 0 {
		return configErr("duration", "%g is negative", seconds)
	}
	return g.Run(ctx, g.StepsFor(seconds))
}

// StepsFor converts a duration in seconds to whole steps.
func (g *Grid) StepsFor(seconds float64) int {
	return int(seconds/g.dt + 1e-9)
}

// Reset zeroes the fields, auxiliary PML state and detector buffers and
// rewinds time. Materials, sources and boundaries are kept.
func (g *Grid) Reset() {
	g.be.Fill(g.e, 0)
	g.be.Fill(g.h, 0)
	for _, b := range g.boundaries {
		if r, ok := b.(interface{ reset(backend.Backend) }); ok {
			r.reset(g.be)
		}
	}
	for _, d := range g.detectors {
		d.reset()
	}
	g.steps = 0
	g.state = Configuring
}

// Rebind moves every array the grid owns onto be. Nothing changes unless
// every array converts.
func (g *Grid) Rebind(be backend.Backend) error {
	if be == nil || !be.Available() {
		return fmt.Errorf("%w: cannot rebind", ErrUnsupportedBackend)
	}
	slots := g.arraySlots()
	moved := make([]backend.Array, len(slots))
	for i, slot := range slots {
		a, err := backend.Convert(be, *slot)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedBackend, err)
		}
		moved[i] = a
	}
	for i, slot := range slots {
		*slot = moved[i]
	}
	g.log.Info("grid rebound", "from", g.be.Name(), "to", be.Name())
	g.be = be
	return nil
}

// arraySlots lists every backend array the grid and its components hold.
func (g *Grid) arraySlots() []*backend.Array {
	slots := []*backend.Array{&g.e, &g.h, &g.invEps, &g.invMu, &g.scratch}
	for i := range g.objects {
		slots = append(slots, &g.objects[i].Tensor)
	}
	for _, s := range g.sources {
		slots = append(slots, s.arrays()...)
	}
	for _, b := range g.boundaries {
		slots = append(slots, b.arrays()...)
	}
	return slots
}

func (g *Grid) Backend() backend.Backend { return g.be }
func (g *Grid) Shape() [3]int            { return g.shape }
func (g *Grid) Spacing() [3]float64      { return g.spacing }
func (g *Grid) TimeStep() float64        { return g.dt }
func (g *Grid) Courant() [3]float64      { return g.courant }
func (g *Grid) TimeStepsPassed() int     { return g.steps }
func (g *Grid) Time() float64            { return float64(g.steps) * g.dt }
func (g *Grid) State() State             { return g.state }
func (g *Grid) Config() Config           { return g.cfg }

// Dims is the number of axes with more than one cell.
func (g *Grid) Dims() int {
	d := 0
	for _, n := range g.shape {
		if n > 1 {
			d++
		}
	}
	return d
}

// EArray and HArray expose the backend-resident fields in internal units.
func (g *Grid) EArray() backend.Array { return g.e }
func (g *Grid) HArray() backend.Array { return g.h }

// E returns a host copy of the electric field in V/m.
func (g *Grid) E() Field {
	return g.field(g.e, 1/math.Sqrt(VacuumPermittivity))
}

// H returns a host copy of the magnetic field in A/m.
func (g *Grid) H() Field {
	return g.field(g.h, 1/math.Sqrt(VacuumPermeability))
}

func (g *Grid) field(a backend.Array, scale float64) Field {
	data := g.be.ToSlice(a)
	for i := range data {
		data[i] *= scale
	}
	return Field{Shape: g.shape, Data: data}
}

// Permittivity returns the relative permittivity of component c at cell p.
func (g *Grid) Permittivity(p [3]int, c Axis) (float64, error) {
	if !inGrid(p, g.shape) || !c.valid() {
		return 0, &BoundsError{What: "cell", Start: p, End: p, Shape: g.shape}
	}
	v := g.be.ToSlice(g.be.Take(g.invEps, []int{fieldIndex(p, g.shape, c)}))
	return 1 / v[0], nil
}

func (g *Grid) Sources() []*Source {
	return append([]*Source(nil), g.sources...)
}

func (g *Grid) Detectors() []*Detector {
	return append([]*Detector(nil), g.detectors...)
}

// Detector looks up a detector by name.
func (g *Grid) Detector(name string) (*Detector, bool) {
	for _, d := range g.detectors {
		if d.spec.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Field is a host snapshot of a vector field on the grid.
type Field struct {
	Shape [3]int
	Data  []float64
}

func (f Field) At(x, y, z int, c Axis) float64 {
	return f.Data[fieldIndex([3]int{x, y, z}, f.Shape, c)]
}

// Component extracts one component as a flat (Nx·Ny·Nz) slice.
func (f Field) Component(c Axis) []float64 {
	out := make([]float64, len(f.Data)/3)
	for i := range out {
		out[i] = f.Data[i*3+int(c)]
	}
	return out
}

// Energy is the sum of squared field values over all cells and components.
func (f Field) Energy() float64 {
	return floats.Dot(f.Data, f.Data)
}

// MaxAbs is the largest absolute component value. NaN propagates.
func (f Field) MaxAbs() float64 {
	var m float64
	for _, v := range f.Data {
		if a := math.Abs(v); a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}
