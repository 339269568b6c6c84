package fdtd

import "math"

// Box is an axis-aligned block of cells, [Start, Start+Size).
type Box struct {
	Start [3]int `yaml:"start" json:"start"`
	Size  [3]int `yaml:"size" json:"size"`
}

// Cell is the single-cell box at (x, y, z).
func Cell(x, y, z int) Box {
	return Box{Start: [3]int{x, y, z}, Size: [3]int{1, 1, 1}}
}

// Span builds the box covering [from, to) on every axis.
func Span(from, to [3]int) Box {
	var b Box
	for a := 0; a < 3; a++ {
		b.Start[a] = from[a]
		b.Size[a] = to[a] - from[a]
	}
	return b
}

func (b Box) End() [3]int {
	return [3]int{b.Start[0] + b.Size[0], b.Start[1] + b.Size[1], b.Start[2] + b.Size[2]}
}

func (b Box) Cells() int {
	if b.Size[0] <= 0 || b.Size[1] <= 0 || b.Size[2] <= 0 {
		return 0
	}
	return b.Size[0] * b.Size[1] * b.Size[2]
}

func (b Box) Contains(p [3]int) bool {
	for a := 0; a < 3; a++ {
		if p[a] < b.Start[a] || p[a] >= b.Start[a]+b.Size[a] {
			return false
		}
	}
	return true
}

// check rejects empty boxes and boxes leaving the grid.
func (b Box) check(what string, shape [3]int) error {
	end := b.End()
	for a := 0; a < 3; a++ {
		if b.Size[a] <= 0 {
			return configErr(what, "empty extent along %v", Axis(a))
		}
		if b.Start[a] < 0 || end[a] > shape[a] {
			return &BoundsError{What: what, Start: b.Start, End: end, Shape: shape}
		}
	}
	return nil
}

// each visits the box cells in row-major order.
func (b Box) each(fn func(p [3]int)) {
	end := b.End()
	for x := b.Start[0]; x < end[0]; x++ {
		for y := b.Start[1]; y < end[1]; y++ {
			for z := b.Start[2]; z < end[2]; z++ {
				fn([3]int{x, y, z})
			}
		}
	}
}

func inGrid(p, shape [3]int) bool {
	for a := 0; a < 3; a++ {
		if p[a] < 0 || p[a] >= shape[a] {
			return false
		}
	}
	return true
}

// lineCells rasterises the segment between two cells, inclusive, with one
// cell per step along the dominant axis.
func lineCells(from, to [3]int) [][3]int {
	n := 0
	for a := 0; a < 3; a++ {
		if d := abs(to[a] - from[a]); d > n {
			n = d
		}
	}
	cells := make([][3]int, 0, n+1)
	for k := 0; k <= n; k++ {
		var p [3]int
		for a := 0; a < 3; a++ {
			if n == 0 {
				p[a] = from[a]
				continue
			}
			f := float64(k) / float64(n)
			p[a] = from[a] + int(math.Round(f*float64(to[a]-from[a])))
		}
		cells = append(cells, p)
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// cellIndex is the row-major index of a cell in an (Nx, Ny, Nz) grid.
func cellIndex(p, shape [3]int) int {
	return (p[0]*shape[1]+p[1])*shape[2] + p[2]
}

// fieldIndex is the flat index of component c at cell p in an (Nx, Ny, Nz, 3) array.
func fieldIndex(p, shape [3]int, c Axis) int {
	return cellIndex(p, shape)*3 + int(c)
}
