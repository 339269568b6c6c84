package shapes

import (
	"fmt"
	"math"

	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/fdtd"
)

// Shape produces a material object for a grid of the given shape on be.
type Shape interface {
	Object(be backend.Backend, grid [3]int) (fdtd.Object, error)
}

// Block is a rectangular region of uniform material.
type Block struct {
	Name         string
	Start, Size  [3]int
	Permittivity float64
	Permeability float64
	Priority     int
}

func (b Block) Object(backend.Backend, [3]int) (fdtd.Object, error) {
	return fdtd.Object{
		Name:         b.Name,
		Box:          fdtd.Box{Start: b.Start, Size: b.Size},
		Permittivity: b.Permittivity,
		Permeability: b.Permeability,
		Priority:     b.Priority,
	}, nil
}

// Waveguide is a straight rectangular core along Axis. Center fixes the two
// transverse coordinates; Width spans the next axis, Height the one after.
// A zero Length runs the full grid.
type Waveguide struct {
	Name          string
	Axis          fdtd.Axis
	Center        [3]int
	Width, Height int
	Start, Length int
	Permittivity  float64
	Priority      int
}

func (w Waveguide) Object(_ backend.Backend, grid [3]int) (fdtd.Object, error) {
	if w.Width < 1 || w.Height < 1 {
		return fdtd.Object{}, fmt.Errorf("waveguide %s: width and height must be positive", w.Name)
	}
	a := int(w.Axis)
	t1, t2 := (a+1)%3, (a+2)%3
	var box fdtd.Box
	box.Start[a] = w.Start
	box.Size[a] = w.Length
	if w.Length == 0 {
		box.Size[a] = grid[a] - w.Start
	}
	box.Start[t1], box.Size[t1] = transverse(w.Center[t1], w.Width, grid[t1])
	box.Start[t2], box.Size[t2] = transverse(w.Center[t2], w.Height, grid[t2])
	return fdtd.Object{Name: w.Name, Box: box, Permittivity: w.Permittivity, Priority: w.Priority}, nil
}

// transverse centers an extent on c, collapsing onto unit axes.
func transverse(c, extent, n int) (start, size int) {
	if n == 1 {
		return 0, 1
	}
	return c - extent/2, extent
}

// Disk is a cylinder with its axis along z.
type Disk struct {
	Name         string
	Center       [2]float64
	Radius       float64
	Z0, Height   int
	Permittivity float64
	Background   float64
	Priority     int
}

func (d Disk) Object(be backend.Backend, grid [3]int) (fdtd.Object, error) {
	return radial(be, grid, d.Name, d.Center, d.Radius, d.Z0, d.Height, d.Background, d.Priority, func(r float64) float64 {
		if r <= d.Radius {
			return d.Permittivity
		}
		return 0
	})
}

// Ring is an annulus with its axis along z, e.g. a ring resonator.
type Ring struct {
	Name         string
	Center       [2]float64
	Inner, Outer float64
	Z0, Height   int
	Permittivity float64
	Background   float64
	Priority     int
}

func (r Ring) Object(be backend.Backend, grid [3]int) (fdtd.Object, error) {
	if r.Inner >= r.Outer {
		return fdtd.Object{}, fmt.Errorf("ring %s: inner radius %g must be below outer %g", r.Name, r.Inner, r.Outer)
	}
	return radial(be, grid, r.Name, r.Center, r.Outer, r.Z0, r.Height, r.Background, r.Priority, func(rad float64) float64 {
		if rad >= r.Inner && rad <= r.Outer {
			return r.Permittivity
		}
		return 0
	})
}

// radial builds a tensor object over the bounding box of a circle, with the
// distance of every cell to the center evaluated on the backend.
func radial(be backend.Backend, grid [3]int, name string, center [2]float64, radius float64, z0, height int, background float64, priority int, eps func(r float64) float64) (fdtd.Object, error) {
	if radius <= 0 {
		return fdtd.Object{}, fmt.Errorf("%s: radius must be positive", name)
	}
	if height == 0 {
		height = grid[2] - z0
	}
	var box fdtd.Box
	for a := 0; a < 2; a++ {
		lo := int(math.Floor(center[a] - radius))
		hi := int(math.Ceil(center[a]+radius)) + 1
		lo, hi = max(lo, 0), min(hi, grid[a])
		if hi <= lo {
			return fdtd.Object{}, fmt.Errorf("%s: outside the grid", name)
		}
		box.Start[a], box.Size[a] = lo, hi-lo
	}
	box.Start[2], box.Size[2] = z0, height

	xs := offsets(box.Start[0], box.Size[0], center[0])
	ys := offsets(box.Start[1], box.Size[1], center[1])
	zs := make([]float64, box.Size[2])
	x, y, _ := be.Meshgrid(xs, ys, zs)
	be.Mul(x, x, x)
	be.Mul(y, y, y)
	be.Add(x, x, y)
	be.Sqrt(x, x)

	dist := be.ToSlice(x)
	data := make([]float64, 3*len(dist))
	for i, r := range dist {
		v := eps(r)
		data[3*i], data[3*i+1], data[3*i+2] = v, v, v
	}
	tensor, err := be.FromSlice(data, box.Size[0], box.Size[1], box.Size[2], 3)
	if err != nil {
		return fdtd.Object{}, err
	}
	bg := 1.0
	if background > 0 {
		bg = math.Sqrt(background)
	}
	return fdtd.Object{Name: name, Box: box, Tensor: tensor, BackgroundIndex: bg, Priority: priority}, nil
}

func offsets(start, n int, center float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start+i) - center
	}
	return out
}
