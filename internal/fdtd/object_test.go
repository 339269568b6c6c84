package fdtd

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fdtdsim/internal/backend"
)

func permittivityAlongX(t *testing.T, g *Grid) []float64 {
	t.Helper()
	out := make([]float64, g.Shape()[0])
	for x := range out {
		v, err := g.Permittivity([3]int{x, 0, 0}, Z)
		if err != nil {
			t.Fatal(err)
		}
		out[x] = v
	}
	return out
}

func TestObjectPriority(t *testing.T) {
	low := Object{Name: "low", Box: Box{Start: [3]int{4, 0, 0}, Size: [3]int{6, 1, 1}}, Permittivity: 3, Priority: 0}
	high := Object{Name: "high", Box: Box{Start: [3]int{0, 0, 0}, Size: [3]int{6, 1, 1}}, Permittivity: 2, Priority: 1}
	want := []float64{2, 2, 2, 2, 2, 2, 3, 3, 3, 3}

	tests := []struct {
		name  string
		order []Object
	}{
		{"high first", []Object{high, low}},
		{"low first", []Object{low, high}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGrid(t, [3]int{10, 1, 1})
			for _, o := range tt.order {
				if err := g.AddObject(o); err != nil {
					t.Fatal(err)
				}
			}
			got := permittivityAlongX(t, g)
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("cell %d: permittivity %v, want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestObjectEqualPriorityLastWins(t *testing.T) {
	g := newTestGrid(t, [3]int{10, 1, 1})
	a := Object{Name: "a", Box: Box{Size: [3]int{6, 1, 1}}, Permittivity: 2}
	b := Object{Name: "b", Box: Box{Start: [3]int{4, 0, 0}, Size: [3]int{6, 1, 1}}, Permittivity: 4}
	for _, o := range []Object{a, b} {
		if err := g.AddObject(o); err != nil {
			t.Fatal(err)
		}
	}
	got := permittivityAlongX(t, g)
	if got[4] != 4 || got[5] != 4 || got[3] != 2 {
		t.Errorf("permittivity = %v", got)
	}
	if n := len(g.Objects()); n != 2 {
		t.Errorf("Objects() has %d entries, want 2", n)
	}
}

func TestObjectTensor(t *testing.T) {
	be := backend.NewCPUBackend()
	g, err := New(Config{Shape: [3]int{4, 4, 1}, GridSpacing: testSpacing}, be)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]float64, 2*2*1*3)
	for i := range data {
		data[i] = float64(1 + i%3) // x:1 y:2 z:3
	}
	tensor, err := be.FromSlice(data, 2, 2, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.AddObject(Object{Box: Box{Start: [3]int{1, 1, 0}, Size: [3]int{2, 2, 1}}, Tensor: tensor}); err != nil {
		t.Fatal(err)
	}
	for c, want := range []float64{1, 2, 3} {
		got, _ := g.Permittivity([3]int{2, 2, 0}, Axis(c))
		if got != want {
			t.Errorf("component %v = %v, want %v", Axis(c), got, want)
		}
	}
}

func TestObjectValidation(t *testing.T) {
	g := newTestGrid(t, [3]int{4, 4, 1})
	foreign := backend.NewTensorBackend(backend.Float64).Ones(2, 2, 1, 3)
	wrongShape := g.Backend().Ones(3, 2, 1, 3)

	tests := []struct {
		name    string
		obj     Object
		wantErr error
	}{
		{"outside", Object{Box: Box{Start: [3]int{3, 0, 0}, Size: [3]int{2, 1, 1}}, Permittivity: 2}, ErrOutOfBounds},
		{"negative start", Object{Box: Box{Start: [3]int{-1, 0, 0}, Size: [3]int{2, 1, 1}}, Permittivity: 2}, ErrOutOfBounds},
		{"empty", Object{Box: Box{Size: [3]int{0, 1, 1}}, Permittivity: 2}, ErrConfiguration},
		{"zero permittivity", Object{Box: Cell(0, 0, 0)}, ErrConfiguration},
		{"negative permeability", Object{Box: Cell(0, 0, 0), Permittivity: 2, Permeability: -1}, ErrConfiguration},
		{"foreign tensor", Object{Box: Box{Size: [3]int{2, 2, 1}}, Tensor: foreign}, ErrConfiguration},
		{"tensor shape", Object{Box: Box{Size: [3]int{2, 2, 1}}, Tensor: wrongShape}, ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.AddObject(tt.obj); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestObjectTensorBackgroundFill(t *testing.T) {
	be := backend.NewCPUBackend()
	g, err := New(Config{Shape: [3]int{2, 1, 1}, GridSpacing: testSpacing}, be)
	if err != nil {
		t.Fatal(err)
	}
	tensor, _ := be.FromSlice([]float64{0, 0, 0, 4, 4, 4}, 2, 1, 1, 3)
	if err := g.AddObject(Object{Box: Box{Size: [3]int{2, 1, 1}}, Tensor: tensor, BackgroundIndex: 1.5}); err != nil {
		t.Fatal(err)
	}
	got := permittivityAlongX(t, g)
	if math.Abs(got[0]-2.25) > 1e-12 || got[1] != 4 {
		t.Errorf("permittivity = %v, want [2.25 4]", got)
	}
}
