package backend

import (
	"fmt"
	"math"
	"runtime"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// minParallel is the element count below which kernels run on one goroutine.
const minParallel = 1 << 14

type cpuArray struct {
	owner *CPUBackend
	shape []int
	data  []float64
}

func (a *cpuArray) Shape() []int { return copyShape(a.shape) }
func (a *cpuArray) Len() int     { return len(a.data) }
func (a *cpuArray) DType() DType { return Float64 }

// CPUBackend runs on host float64 slices using gonum kernels, splitting large
// arrays across runtime.NumCPU workers.
type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) DType() DType    { return Float64 }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) Owns(a Array) bool {
	ca, ok := a.(*cpuArray)
	return ok && ca.owner == c
}

func (c *CPUBackend) arr(a Array) *cpuArray {
	ca, ok := a.(*cpuArray)
	if !ok || ca.owner != c {
		panic(fmt.Sprintf("backend: array %T not owned by %s backend", a, c.Name()))
	}
	return ca
}

func (c *CPUBackend) same(dst *cpuArray, others ...*cpuArray) {
	for _, o := range others {
		if len(o.data) != len(dst.data) {
			panic(fmt.Sprintf("backend: length mismatch %d != %d", len(o.data), len(dst.data)))
		}
	}
}

func (c *CPUBackend) Zeros(shape ...int) Array {
	return &cpuArray{owner: c, shape: copyShape(shape), data: make([]float64, numel(shape))}
}

func (c *CPUBackend) Ones(shape ...int) Array { return c.Full(1, shape...) }

func (c *CPUBackend) Full(v float64, shape ...int) Array {
	a := c.Zeros(shape...).(*cpuArray)
	if v != 0 {
		for i := range a.data {
			a.data[i] = v
		}
	}
	return a
}

func (c *CPUBackend) FromSlice(data []float64, shape ...int) (Array, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if numel(shape) != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	out := make([]float64, len(data))
	copy(out, data)
	return &cpuArray{owner: c, shape: copyShape(shape), data: out}, nil
}

func (c *CPUBackend) ToSlice(a Array) []float64 {
	ca := c.arr(a)
	out := make([]float64, len(ca.data))
	copy(out, ca.data)
	return out
}

func (c *CPUBackend) Clone(a Array) Array {
	ca := c.arr(a)
	out := make([]float64, len(ca.data))
	copy(out, ca.data)
	return &cpuArray{owner: c, shape: copyShape(ca.shape), data: out}
}

func (c *CPUBackend) Fill(dst Array, v float64) {
	d := c.arr(dst).data
	for i := range d {
		d[i] = v
	}
}

// chunked splits an elementwise kernel across workers for large arrays.
func (c *CPUBackend) chunked(n int, fn func(start, end int)) {
	ParallelFor(n, minParallel, c.workers, fn)
}

func (c *CPUBackend) Add(dst, a, b Array) {
	d, x, y := c.arr(dst), c.arr(a), c.arr(b)
	c.same(d, x, y)
	c.chunked(len(d.data), func(s, e int) {
		floats.AddTo(d.data[s:e], x.data[s:e], y.data[s:e])
	})
}

func (c *CPUBackend) Sub(dst, a, b Array) {
	d, x, y := c.arr(dst), c.arr(a), c.arr(b)
	c.same(d, x, y)
	c.chunked(len(d.data), func(s, e int) {
		floats.SubTo(d.data[s:e], x.data[s:e], y.data[s:e])
	})
}

func (c *CPUBackend) Mul(dst, a, b Array) {
	d, x, y := c.arr(dst), c.arr(a), c.arr(b)
	c.same(d, x, y)
	c.chunked(len(d.data), func(s, e int) {
		floats.MulTo(d.data[s:e], x.data[s:e], y.data[s:e])
	})
}

func (c *CPUBackend) Div(dst, a, b Array) {
	d, x, y := c.arr(dst), c.arr(a), c.arr(b)
	c.same(d, x, y)
	c.chunked(len(d.data), func(s, e int) {
		floats.DivTo(d.data[s:e], x.data[s:e], y.data[s:e])
	})
}

func (c *CPUBackend) Scale(dst Array, s float64) {
	d := c.arr(dst)
	c.chunked(len(d.data), func(lo, hi int) {
		floats.Scale(s, d.data[lo:hi])
	})
}

func (c *CPUBackend) AddScaled(dst Array, s float64, x Array) {
	d, xa := c.arr(dst), c.arr(x)
	c.same(d, xa)
	c.chunked(len(d.data), func(lo, hi int) {
		floats.AddScaled(d.data[lo:hi], s, xa.data[lo:hi])
	})
}

func (c *CPUBackend) unary(dst, a Array, fn func(float64) float64) {
	d, x := c.arr(dst), c.arr(a)
	c.same(d, x)
	c.chunked(len(d.data), func(s, e int) {
		for i := s; i < e; i++ {
			d.data[i] = fn(x.data[i])
		}
	})
}

func (c *CPUBackend) Exp(dst, a Array)  { c.unary(dst, a, math.Exp) }
func (c *CPUBackend) Sin(dst, a Array)  { c.unary(dst, a, math.Sin) }
func (c *CPUBackend) Cos(dst, a Array)  { c.unary(dst, a, math.Cos) }
func (c *CPUBackend) Sqrt(dst, a Array) { c.unary(dst, a, math.Sqrt) }
func (c *CPUBackend) Abs(dst, a Array)  { c.unary(dst, a, math.Abs) }

func (c *CPUBackend) Sum(a Array) float64 { return floats.Sum(c.arr(a).data) }

func (c *CPUBackend) Min(a Array) float64 {
	d := c.arr(a).data
	if len(d) == 0 {
		return math.NaN()
	}
	return floats.Min(d)
}

func (c *CPUBackend) Max(a Array) float64 {
	d := c.arr(a).data
	if len(d) == 0 {
		return math.NaN()
	}
	return floats.Max(d)
}

func (c *CPUBackend) SumAxis(a Array, axis int) Array {
	ca := c.arr(a)
	data, shape := sumAxisData(ca.data, ca.shape, axis)
	return &cpuArray{owner: c, shape: shape, data: data}
}

func (c *CPUBackend) Meshgrid(xs, ys, zs []float64) (Array, Array, Array) {
	x, y, z, shape := meshgridData(xs, ys, zs)
	return &cpuArray{owner: c, shape: shape, data: x},
		&cpuArray{owner: c, shape: copyShape(shape), data: y},
		&cpuArray{owner: c, shape: copyShape(shape), data: z}
}

func (c *CPUBackend) DiffAccum(dst Array, dc int, src Array, sc int, axis int, forward bool, coef float64) {
	d, s := c.arr(dst), c.arr(src)
	if !sameShape(d.shape, s.shape) {
		panic(fmt.Sprintf("backend: shape mismatch %v != %v", d.shape, s.shape))
	}
	nx := d.shape[0]
	// Each x-slab writes only its own cells, so slabs are independent.
	minSlabs := 1
	if per := numel(d.shape[1:]); per > 0 && per < minParallel {
		minSlabs = minParallel / per
	}
	ParallelFor(nx, minSlabs, c.workers, func(x0, x1 int) {
		diffAccum(d.data, dc, s.data, sc, d.shape, axis, forward, coef, x0, x1)
	})
}

func (c *CPUBackend) Take(a Array, idx []int) Array {
	src := c.arr(a).data
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = src[i]
	}
	return &cpuArray{owner: c, shape: []int{len(idx)}, data: out}
}

func (c *CPUBackend) Put(dst Array, idx []int, vals Array) {
	d, v := c.arr(dst).data, c.arr(vals).data
	for k, i := range idx {
		d[i] = v[k]
	}
}

func (c *CPUBackend) PutAdd(dst Array, idx []int, vals Array) {
	d, v := c.arr(dst).data, c.arr(vals).data
	for k, i := range idx {
		d[i] += v[k]
	}
}

func (c *CPUBackend) FFT(series []float64) []complex128 {
	return fft.FFTReal(series)
}
