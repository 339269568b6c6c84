package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/experiment"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/logging"
	"github.com/san-kum/fdtdsim/internal/sim"
	"github.com/san-kum/fdtdsim/internal/storage"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. The scene comes from Scene
// (a file) or Preset, in that order; Params are applied on top.
type ScenarioStep struct {
	Preset  string             `yaml:"preset"`
	Scene   string             `yaml:"scene"`
	Backend string             `yaml:"backend"`
	Steps   int                `yaml:"steps"`
	Params  map[string]float64 `yaml:"params"`
	SaveAs  string             `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step. RunID is empty when the
// run was not stored.
type StepResult struct {
	Scene  *config.Scene
	Grid   *fdtd.Grid
	Result *sim.Result
	RunID  string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: %w: scenario has no steps", path, config.ErrInvalid)
	}

	return &scenario, nil
}

func (s ScenarioStep) scene() (*config.Scene, error) {
	var scene *config.Scene
	switch {
	case s.Scene != "":
		loaded, err := config.Load(s.Scene)
		if err != nil {
			return nil, err
		}
		scene = loaded
	case s.Preset != "":
		scene = config.GetPreset(s.Preset)
		if scene == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", config.ErrInvalid, s.Preset)
		}
	default:
		scene = config.DefaultScene()
	}
	if s.Backend != "" {
		scene.Backend = s.Backend
	}
	if s.Steps > 0 {
		scene.Run.Steps, scene.Run.Duration = s.Steps, 0
	}
	if s.SaveAs != "" {
		scene.Name = s.SaveAs
	}
	if err := config.SetParams(scene, s.Params); err != nil {
		return nil, err
	}
	return scene, nil
}

// RunScenario executes all steps in a scenario, storing each run when st
// is not nil.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, log *slog.Logger) ([]StepResult, error) {
	if log == nil {
		log = logging.Discard()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		scene, err := step.scene()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "scene", scene.Name)

		exp, err := experiment.New(scene, log)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		out := StepResult{Scene: scene, Grid: exp.Grid(), Result: result}
		if st != nil {
			id, err := st.Save(scene, exp.Grid(), result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			out.RunID = id
		}
		results = append(results, out)
	}

	return results, nil
}

// ParameterSweep runs a scene across a linear range of one parameter
type ParameterSweep struct {
	Base     *config.Scene
	Param    string
	Min, Max float64
	NumSteps int
}

// SweepResult holds the metrics of one sweep point
type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
}

// Values lists the swept parameter values.
func (p *ParameterSweep) Values() []float64 {
	if p.NumSteps < 1 {
		return nil
	}
	if p.NumSteps == 1 {
		return []float64{p.Min}
	}
	step := (p.Max - p.Min) / float64(p.NumSteps-1)
	out := make([]float64, p.NumSteps)
	for i := range out {
		out[i] = p.Min + float64(i)*step
	}
	return out
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, log *slog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one point", config.ErrInvalid)
	}
	if log == nil {
		log = logging.Discard()
	}
	values := sweep.Values()
	results := make([]SweepResult, 0, len(values))

	for i, v := range values {
		scene := sweep.Base.Clone()
		if err := config.SetParam(scene, sweep.Param, v); err != nil {
			return nil, err
		}
		exp, err := experiment.New(scene, log)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		results = append(results, SweepResult{ParamValue: v, Metrics: result.Metrics})
		log.Info("sweep point", "n", i+1, "of", len(values), "param", sweep.Param, "value", v)
	}

	return results, nil
}

// MonteCarloConfig perturbs object permittivities to model fabrication
// spread. Perturbation is relative: each permittivity is scaled by a
// uniform factor in [1-p, 1+p]. Objects empty means every object. Seed is
// used as given, zero included, so equal configs draw equal trials.
type MonteCarloConfig struct {
	Base         *config.Scene
	Objects      []string
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds one trial
type MonteCarloResult struct {
	TrialID      int
	Permittivity map[string]float64
	Metrics      map[string]float64
	Stable       bool
}

// RunMonteCarlo executes trials with divergence checking enabled; a
// diverged trial is recorded as unstable rather than failing the batch.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log *slog.Logger) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("%w: monte carlo needs at least one trial", config.ErrInvalid)
	}
	if log == nil {
		log = logging.Discard()
	}
	targets := cfg.Objects
	if len(targets) == 0 {
		for _, o := range cfg.Base.Objects {
			targets = append(targets, o.Name)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		scene := cfg.Base.Clone()
		scene.Grid.CheckDivergence = true
		eps := make(map[string]float64, len(targets))
		for _, name := range targets {
			base, ok := permittivity(scene, name)
			if !ok {
				return nil, fmt.Errorf("%w: no object %q", config.ErrInvalid, name)
			}
			eps[name] = base * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)
			if err := config.SetParam(scene, "objects."+name+".permittivity", eps[name]); err != nil {
				return nil, err
			}
		}

		exp, err := experiment.New(scene, log)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		result, err := exp.Run(ctx)
		if err != nil && !errors.Is(err, fdtd.ErrDiverged) {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		r := MonteCarloResult{TrialID: trial, Permittivity: eps, Stable: err == nil}
		if result != nil {
			r.Metrics = result.Metrics
			if s, ok := result.Metrics["stability"]; ok && s < 1 {
				r.Stable = false
			}
		}
		results = append(results, r)

		if (trial+1)%10 == 0 {
			log.Info("monte carlo", "trials", trial+1, "of", cfg.NumTrials)
		}
	}

	return results, nil
}

func permittivity(s *config.Scene, name string) (float64, bool) {
	for _, o := range s.Objects {
		if o.Name == name {
			return o.Permittivity, true
		}
	}
	return 0, false
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
