package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/experiment"
)

// Evaluation is one point of a search.
type Evaluation struct {
	Params map[string]float64
	Value  float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	maximize   bool
	evals      []Evaluation
}

// NewGridSearch searches the cartesian product of ranges; params[i] takes
// the values of ranges[i]. Parameter names are scene paths, see config.SetParam.
func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Maximize flips the objective; the default minimizes the metric.
func (g *GridSearch) Maximize() *GridSearch {
	g.maximize = true
	return g
}

// Evaluations lists every point of the last search in visiting order.
func (g *GridSearch) Evaluations() []Evaluation { return g.evals }

// SceneBuilder builds experiments from copies of base with the search
// parameters applied.
func SceneBuilder(base *config.Scene, log *slog.Logger) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		scene := base.Clone()
		if err := config.SetParams(scene, params); err != nil {
			return nil, err
		}
		return experiment.New(scene, log)
	}
}

func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("grid search: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	g.evals = nil

	best := math.Inf(1)
	if g.maximize {
		best = math.Inf(-1)
	}
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, metricName, &best, &bestParams)
	if err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, best, fmt.Errorf("grid search: no evaluations")
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			return fmt.Errorf("build %v: %w", current, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return fmt.Errorf("run %v: %w", current, err)
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("metric %q not recorded", metricName)
		}
		g.evals = append(g.evals, Evaluation{Params: current, Value: val})
		if (!g.maximize && val < *best) || (g.maximize && val > *best) {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
