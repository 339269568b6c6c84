package backend

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gorgonia.org/tensor"
)

// tensorArray wraps a gorgonia Dense tensor. The Dense is built over the
// typed slice held here, so both views always see the same memory.
type tensorArray struct {
	owner *TensorBackend
	shape []int
	t     *tensor.Dense
	f64   []float64
	f32   []float32
}

func (a *tensorArray) Shape() []int { return copyShape(a.shape) }
func (a *tensorArray) Len() int     { return numel(a.shape) }

func (a *tensorArray) DType() DType {
	if a.f32 != nil {
		return Float32
	}
	return Float64
}

func (a *tensorArray) float64s() []float64 {
	if a.f32 == nil {
		out := make([]float64, len(a.f64))
		copy(out, a.f64)
		return out
	}
	out := make([]float64, len(a.f32))
	for i, v := range a.f32 {
		out[i] = float64(v)
	}
	return out
}

// TensorBackend executes on gorgonia tensors, standing in for device-tensor
// engines. It supports float64 and float32 storage.
type TensorBackend struct {
	dtype DType
}

func NewTensorBackend(dtype DType) *TensorBackend {
	return &TensorBackend{dtype: dtype}
}

func (tb *TensorBackend) Name() string {
	return "tensor." + tb.dtype.String()
}

func (tb *TensorBackend) Available() bool { return true }
func (tb *TensorBackend) DType() DType    { return tb.dtype }
func (tb *TensorBackend) Cleanup()        {}

func (tb *TensorBackend) Owns(a Array) bool {
	ta, ok := a.(*tensorArray)
	return ok && ta.owner == tb
}

func (tb *TensorBackend) arr(a Array) *tensorArray {
	ta, ok := a.(*tensorArray)
	if !ok || ta.owner != tb {
		panic(fmt.Sprintf("backend: array %T not owned by %s backend", a, tb.Name()))
	}
	return ta
}

func (tb *TensorBackend) wrap(shape []int, f64 []float64, f32 []float32) *tensorArray {
	a := &tensorArray{owner: tb, shape: copyShape(shape), f64: f64, f32: f32}
	if f32 != nil {
		a.t = tensor.New(tensor.WithShape(shape...), tensor.WithBacking(f32))
	} else {
		a.t = tensor.New(tensor.WithShape(shape...), tensor.WithBacking(f64))
	}
	return a
}

func (tb *TensorBackend) alloc(shape []int) *tensorArray {
	n := numel(shape)
	if tb.dtype == Float32 {
		return tb.wrap(shape, nil, make([]float32, n))
	}
	return tb.wrap(shape, make([]float64, n), nil)
}

func (tb *TensorBackend) Zeros(shape ...int) Array { return tb.alloc(shape) }
func (tb *TensorBackend) Ones(shape ...int) Array  { return tb.Full(1, shape...) }

func (tb *TensorBackend) Full(v float64, shape ...int) Array {
	a := tb.alloc(shape)
	tb.Fill(a, v)
	return a
}

func (tb *TensorBackend) FromSlice(data []float64, shape ...int) (Array, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if numel(shape) != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	a := tb.alloc(shape)
	a.store(data)
	return a, nil
}

// store overwrites the array contents from float64 values.
func (a *tensorArray) store(data []float64) {
	if a.f32 != nil {
		for i, v := range data {
			a.f32[i] = float32(v)
		}
		return
	}
	copy(a.f64, data)
}

func (tb *TensorBackend) ToSlice(a Array) []float64 { return tb.arr(a).float64s() }

func (tb *TensorBackend) Clone(a Array) Array {
	ta := tb.arr(a)
	if ta.f32 != nil {
		out := make([]float32, len(ta.f32))
		copy(out, ta.f32)
		return tb.wrap(ta.shape, nil, out)
	}
	out := make([]float64, len(ta.f64))
	copy(out, ta.f64)
	return tb.wrap(ta.shape, out, nil)
}

func (tb *TensorBackend) Fill(dst Array, v float64) {
	d := tb.arr(dst)
	if d.f32 != nil {
		fv := float32(v)
		for i := range d.f32 {
			d.f32[i] = fv
		}
		return
	}
	for i := range d.f64 {
		d.f64[i] = v
	}
}

// scalar returns v typed to match the backend dtype, as tensor scalar ops require.
func (tb *TensorBackend) scalar(v float64) interface{} {
	if tb.dtype == Float32 {
		return float32(v)
	}
	return v
}

// assign copies an op result back into dst's backing memory.
func (tb *TensorBackend) assign(dst *tensorArray, res tensor.Tensor, err error) {
	if err != nil {
		panic(fmt.Sprintf("backend: tensor op failed: %v", err))
	}
	switch v := res.Data().(type) {
	case []float64:
		copy(dst.f64, v)
	case []float32:
		copy(dst.f32, v)
	case float64:
		dst.f64[0] = v
	case float32:
		dst.f32[0] = v
	default:
		panic(fmt.Sprintf("backend: unexpected tensor data %T", v))
	}
}

type tensorBinary func(a, b interface{}, opts ...tensor.FuncOpt) (tensor.Tensor, error)

func (tb *TensorBackend) binary(op tensorBinary, dst, a, b Array) {
	d, x, y := tb.arr(dst), tb.arr(a), tb.arr(b)
	if !sameShape(x.shape, y.shape) || !sameShape(d.shape, x.shape) {
		panic(fmt.Sprintf("backend: shape mismatch %v, %v -> %v", x.shape, y.shape, d.shape))
	}
	res, err := op(x.t, y.t)
	tb.assign(d, res, err)
}

func (tb *TensorBackend) Add(dst, a, b Array) { tb.binary(tensor.Add, dst, a, b) }
func (tb *TensorBackend) Sub(dst, a, b Array) { tb.binary(tensor.Sub, dst, a, b) }
func (tb *TensorBackend) Mul(dst, a, b Array) { tb.binary(tensor.Mul, dst, a, b) }
func (tb *TensorBackend) Div(dst, a, b Array) { tb.binary(tensor.Div, dst, a, b) }

func (tb *TensorBackend) Scale(dst Array, s float64) {
	d := tb.arr(dst)
	res, err := tensor.Mul(d.t, tb.scalar(s))
	tb.assign(d, res, err)
}

func (tb *TensorBackend) AddScaled(dst Array, s float64, x Array) {
	d, xa := tb.arr(dst), tb.arr(x)
	scaled, err := tensor.Mul(xa.t, tb.scalar(s))
	if err != nil {
		panic(fmt.Sprintf("backend: tensor op failed: %v", err))
	}
	res, err := tensor.Add(d.t, scaled)
	tb.assign(d, res, err)
}

func (tb *TensorBackend) apply(dst, a Array, fn func(float64) float64) {
	d, x := tb.arr(dst), tb.arr(a)
	var res tensor.Tensor
	var err error
	if tb.dtype == Float32 {
		res, err = x.t.Apply(func(v float32) float32 { return float32(fn(float64(v))) })
	} else {
		res, err = x.t.Apply(fn)
	}
	tb.assign(d, res, err)
}

func (tb *TensorBackend) Exp(dst, a Array) {
	res, err := tensor.Exp(tb.arr(a).t)
	tb.assign(tb.arr(dst), res, err)
}

func (tb *TensorBackend) Sqrt(dst, a Array) {
	res, err := tensor.Sqrt(tb.arr(a).t)
	tb.assign(tb.arr(dst), res, err)
}

func (tb *TensorBackend) Abs(dst, a Array) {
	res, err := tensor.Abs(tb.arr(a).t)
	tb.assign(tb.arr(dst), res, err)
}

func (tb *TensorBackend) Sin(dst, a Array) { tb.apply(dst, a, math.Sin) }
func (tb *TensorBackend) Cos(dst, a Array) { tb.apply(dst, a, math.Cos) }

func (tb *TensorBackend) Sum(a Array) float64 {
	ta := tb.arr(a)
	if ta.Len() == 0 {
		return 0
	}
	res, err := ta.t.Sum()
	if err != nil {
		panic(fmt.Sprintf("backend: tensor sum failed: %v", err))
	}
	switch v := res.Data().(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case []float64:
		return v[0]
	case []float32:
		return float64(v[0])
	}
	panic(fmt.Sprintf("backend: unexpected tensor data %T", res.Data()))
}

func (tb *TensorBackend) Min(a Array) float64 {
	vals := tb.arr(a).float64s()
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func (tb *TensorBackend) Max(a Array) float64 {
	vals := tb.arr(a).float64s()
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func (tb *TensorBackend) SumAxis(a Array, axis int) Array {
	ta := tb.arr(a)
	data, shape := sumAxisData(ta.float64s(), ta.shape, axis)
	out := tb.alloc(shape)
	out.store(data)
	return out
}

func (tb *TensorBackend) Meshgrid(xs, ys, zs []float64) (Array, Array, Array) {
	x, y, z, shape := meshgridData(xs, ys, zs)
	ax, ay, az := tb.alloc(shape), tb.alloc(shape), tb.alloc(shape)
	ax.store(x)
	ay.store(y)
	az.store(z)
	return ax, ay, az
}

func (tb *TensorBackend) DiffAccum(dst Array, dc int, src Array, sc int, axis int, forward bool, coef float64) {
	d, s := tb.arr(dst), tb.arr(src)
	if !sameShape(d.shape, s.shape) {
		panic(fmt.Sprintf("backend: shape mismatch %v != %v", d.shape, s.shape))
	}
	if d.f32 != nil {
		diffAccum(d.f32, dc, s.f32, sc, d.shape, axis, forward, float32(coef), 0, d.shape[0])
		return
	}
	diffAccum(d.f64, dc, s.f64, sc, d.shape, axis, forward, coef, 0, d.shape[0])
}

func (tb *TensorBackend) Take(a Array, idx []int) Array {
	src := tb.arr(a)
	out := tb.alloc([]int{len(idx)})
	if src.f32 != nil {
		for k, i := range idx {
			out.f32[k] = src.f32[i]
		}
		return out
	}
	for k, i := range idx {
		out.f64[k] = src.f64[i]
	}
	return out
}

func (tb *TensorBackend) Put(dst Array, idx []int, vals Array) {
	d, v := tb.arr(dst), tb.arr(vals)
	if d.f32 != nil {
		for k, i := range idx {
			d.f32[i] = v.f32[k]
		}
		return
	}
	for k, i := range idx {
		d.f64[i] = v.f64[k]
	}
}

func (tb *TensorBackend) PutAdd(dst Array, idx []int, vals Array) {
	d, v := tb.arr(dst), tb.arr(vals)
	if d.f32 != nil {
		for k, i := range idx {
			d.f32[i] += v.f32[k]
		}
		return
	}
	for k, i := range idx {
		d.f64[i] += v.f64[k]
	}
}

// FFT runs on the host; the spectrum is consumed by host-side analysis only.
func (tb *TensorBackend) FFT(series []float64) []complex128 {
	return fft.FFTReal(series)
}
