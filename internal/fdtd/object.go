package fdtd

import (
	"github.com/san-kum/fdtdsim/internal/backend"
)

// Object is a block of material. Where objects overlap, the one with the
// higher Priority wins per cell; on equal priority the later registration wins.
type Object struct {
	Name string
	Box  Box

	// Permittivity is the relative permittivity used when Tensor is nil.
	Permittivity float64
	// Tensor optionally holds per-cell, per-component relative permittivity
	// with shape (Sx, Sy, Sz, 3). It must belong to the grid's backend.
	Tensor backend.Array
	// Permeability is the relative permeability; zero means 1.
	Permeability float64
	// BackgroundIndex fills zero Tensor entries with BackgroundIndex²; zero means 1.
	BackgroundIndex float64

	Priority int
}

func (o Object) permeability() float64 {
	if o.Permeability == 0 {
		return 1
	}
	return o.Permeability
}

// AddObject stamps an object's material into the grid.
func (g *Grid) AddObject(obj Object) error {
	if err := g.configuring("object"); err != nil {
		return err
	}
	if err := obj.Box.check("object "+obj.Name, g.shape); err != nil {
		return err
	}
	if obj.permeability() <= 0 {
		return configErr("object permeability", "%s: must be positive, got %g", obj.Name, obj.Permeability)
	}

	var eps []float64
	if obj.Tensor != nil {
		if !g.be.Owns(obj.Tensor) {
			return configErr("object tensor", "%s: array belongs to a different backend than %s", obj.Name, g.be.Name())
		}
		want := []int{obj.Box.Size[0], obj.Box.Size[1], obj.Box.Size[2], 3}
		if got := obj.Tensor.Shape(); !equalInts(got, want) {
			return configErr("object tensor", "%s: shape %v, want %v", obj.Name, got, want)
		}
		eps = g.be.ToSlice(obj.Tensor)
		fill := 1.0
		if obj.BackgroundIndex != 0 {
			fill = obj.BackgroundIndex * obj.BackgroundIndex
		}
		for i, v := range eps {
			if v == 0 {
				eps[i] = fill
				continue
			}
			if !(v > 0) {
				return configErr("object tensor", "%s: permittivity must be positive, got %g", obj.Name, v)
			}
		}
	} else if !(obj.Permittivity > 0) {
		return configErr("object permittivity", "%s: must be positive, got %g", obj.Name, obj.Permittivity)
	}

	mu := obj.permeability()
	var idx []int
	var invE, invM []float64
	local := 0
	obj.Box.each(func(p [3]int) {
		ci := cellIndex(p, g.shape)
		if obj.Priority >= g.prio[ci] {
			g.prio[ci] = obj.Priority
			for c := 0; c < 3; c++ {
				e := obj.Permittivity
				if eps != nil {
					e = eps[local*3+c]
				}
				idx = append(idx, ci*3+c)
				invE = append(invE, 1/e)
				invM = append(invM, 1/mu)
			}
		}
		local++
	})

	if len(idx) > 0 {
		ve, err := g.be.FromSlice(invE, len(invE))
		if err != nil {
			return err
		}
		vm, err := g.be.FromSlice(invM, len(invM))
		if err != nil {
			return err
		}
		g.be.Put(g.invEps, idx, ve)
		g.be.Put(g.invMu, idx, vm)
	}

	g.objects = append(g.objects, obj)
	g.log.Debug("object registered", "name", obj.Name, "box", obj.Box, "priority", obj.Priority, "cells_won", len(idx)/3)
	return nil
}

// Objects returns the registered objects in registration order.
func (g *Grid) Objects() []Object {
	out := make([]Object, len(g.objects))
	copy(out, g.objects)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
