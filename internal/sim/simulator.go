package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// Runner drives a grid through a run, feeding metrics and observers.
type Runner struct {
	grid      *fdtd.Grid
	log       *slog.Logger
	metrics   []Metric
	observers []Observer
}

func New(g *fdtd.Grid, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		grid:      g,
		log:       log,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }
func (r *Runner) Grid() *fdtd.Grid       { return r.grid }

func (r *Runner) steps(cfg Config) (int, error) {
	if cfg.Steps < 0 {
		return 0, fmt.Errorf("steps must not be negative, got %d", cfg.Steps)
	}
	if cfg.Steps > 0 {
		return cfg.Steps, nil
	}
	if cfg.Duration <= 0 {
		return 0, fmt.Errorf("either steps or a positive duration is required")
	}
	return r.grid.StepsFor(cfg.Duration), nil
}

// Run advances the grid, returning the partial result alongside any error.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	steps, err := r.steps(cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range r.metrics {
		m.Reset()
	}

	r.log.Info("run started", "steps", steps, "dt", r.grid.TimeStep(), "backend", r.grid.Backend().Name())
	start := time.Now()
	err = r.loop(ctx, steps, cfg.ProgressEvery, func() bool { return true }, result)
	result.Elapsed = time.Since(start)
	if secs := result.Elapsed.Seconds(); secs > 0 {
		result.StepsPerSecond = float64(result.Steps) / secs
	}
	result.Time = r.grid.Time()
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	if err != nil {
		return result, err
	}
	r.log.Info("run finished", "steps", result.Steps, "elapsed", result.Elapsed, "steps_per_second", result.StepsPerSecond)
	return result, nil
}

// RunWithCallback steps until the budget is spent or callback returns false.
func (r *Runner) RunWithCallback(ctx context.Context, cfg Config, callback func(g *fdtd.Grid) bool) error {
	steps, err := r.steps(cfg)
	if err != nil {
		return err
	}
	return r.loop(ctx, steps, cfg.ProgressEvery, func() bool { return callback(r.grid) }, &Result{})
}

func (r *Runner) loop(ctx context.Context, steps, progress int, keepGoing func() bool, result *Result) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.grid.Step(); err != nil {
			return err
		}
		result.Steps++

		for _, m := range r.metrics {
			m.Observe(r.grid)
		}
		for _, obs := range r.observers {
			obs.OnStep(r.grid)
		}
		if progress > 0 && result.Steps%progress == 0 {
			r.log.Info("progress", "step", r.grid.TimeStepsPassed(), "of", steps, "time", r.grid.Time())
		}
		if !keepGoing() {
			return nil
		}
	}
	return nil
}
