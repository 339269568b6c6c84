package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/logging"
)

func sweepScene() *config.Scene {
	s := config.DefaultScene()
	s.Grid.Shape = [3]int{80, 1, 1}
	s.Sources[0].Cell = [3]int{20, 0, 0}
	s.Detectors[0].From = [3]int{60, 0, 0}
	s.Detectors[0].To = [3]int{60, 0, 0}
	s.Run.Steps = 60
	return s
}

func TestGridSearchAmplitude(t *testing.T) {
	gs := NewGridSearch([]string{"sources.src.amplitude"}, [][]float64{{0.5, 1, 2}})
	build := SceneBuilder(sweepScene(), logging.Discard())

	params, best, err := gs.Search(context.Background(), build, "peak_field")
	if err != nil {
		t.Fatal(err)
	}
	if params["sources.src.amplitude"] != 0.5 {
		t.Errorf("minimum at %v, want amplitude 0.5", params)
	}
	if len(gs.Evaluations()) != 3 {
		t.Fatalf("evaluations = %d, want 3", len(gs.Evaluations()))
	}

	params, top, err := gs.Maximize().Search(context.Background(), build, "peak_field")
	if err != nil {
		t.Fatal(err)
	}
	if params["sources.src.amplitude"] != 2 || top <= best {
		t.Errorf("maximum %v at %v, minimum %v", top, params, best)
	}
}

func TestGridSearchProduct(t *testing.T) {
	gs := NewGridSearch(
		[]string{"sources.src.amplitude", "run.steps"},
		[][]float64{{1, 2}, {20, 30, 40}},
	)
	if _, _, err := gs.Search(context.Background(), SceneBuilder(sweepScene(), nil), "field_energy"); err != nil {
		t.Fatal(err)
	}
	if n := len(gs.Evaluations()); n != 6 {
		t.Errorf("evaluations = %d, want 6", n)
	}
}

func TestGridSearchErrors(t *testing.T) {
	build := SceneBuilder(sweepScene(), nil)
	ctx := context.Background()

	if _, _, err := NewGridSearch([]string{"a"}, nil).Search(ctx, build, "peak_field"); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	_, _, err := NewGridSearch([]string{"objects.none.permittivity"}, [][]float64{{2}}).Search(ctx, build, "peak_field")
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected config.ErrInvalid, got %v", err)
	}
	if _, _, err := NewGridSearch([]string{"run.steps"}, [][]float64{{5}}).Search(ctx, build, "nope"); err == nil {
		t.Error("expected error for unknown metric")
	}
}
