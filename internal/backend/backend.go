package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknown indicates a backend name that does not resolve to any target.
	ErrUnknown = errors.New("backend: unknown backend")

	// ErrUnsupported indicates the requested execution target is not available.
	ErrUnsupported = errors.New("backend: execution target unavailable")

	// ErrShape indicates a data/shape mismatch at array creation.
	ErrShape = errors.New("backend: data length does not match shape")
)

type DType int

const (
	Float64 DType = iota
	Float32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	default:
		return "float64"
	}
}

// Array is a dense row-major array created by a Backend.
type Array interface {
	Shape() []int
	Len() int
	DType() DType
}

// Backend is the uniform array-operation surface every engine component uses.
// Binary and unary operations write into dst, which may alias an operand.
// All operands must be owned by the receiving backend.
type Backend interface {
	Name() string
	Available() bool
	DType() DType
	Cleanup()

	Zeros(shape ...int) Array
	Ones(shape ...int) Array
	Full(v float64, shape ...int) Array
	FromSlice(data []float64, shape ...int) (Array, error)
	ToSlice(a Array) []float64
	Clone(a Array) Array
	Owns(a Array) bool

	Fill(dst Array, v float64)
	Add(dst, a, b Array)
	Sub(dst, a, b Array)
	Mul(dst, a, b Array)
	Div(dst, a, b Array)
	Scale(dst Array, s float64)
	AddScaled(dst Array, s float64, x Array)

	Exp(dst, a Array)
	Sin(dst, a Array)
	Cos(dst, a Array)
	Sqrt(dst, a Array)
	Abs(dst, a Array)

	Sum(a Array) float64
	Min(a Array) float64
	Max(a Array) float64
	SumAxis(a Array, axis int) Array

	Meshgrid(xs, ys, zs []float64) (x, y, z Array)

	// DiffAccum adds coef·(src[..., sc] shifted difference along axis) into dst[..., dc].
	// Both arrays have shape (Nx, Ny, Nz, 3). Forward stores src[i+1]-src[i] at i
	// (zero at the last cell); backward stores src[i]-src[i-1] at i (zero at the first).
	DiffAccum(dst Array, dc int, src Array, sc int, axis int, forward bool, coef float64)

	// Take gathers flat elements of a at idx into a new 1-D array.
	Take(a Array, idx []int) Array
	// Put scatters vals into dst at flat idx.
	Put(dst Array, idx []int, vals Array)
	// PutAdd scatters vals into dst at flat idx, accumulating.
	PutAdd(dst Array, idx []int, vals Array)

	FFT(series []float64) []complex128
}

// New resolves a backend by name. The same name always produces a fresh,
// independent instance; nothing is shared between instances.
func New(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cpu", "host", "numpy":
		return NewCPUBackend(), nil
	case "tensor", "torch", "tensor.float64", "torch.float64":
		return NewTensorBackend(Float64), nil
	case "tensor.float32", "torch.float32":
		return NewTensorBackend(Float32), nil
	case "cuda", "gpu", "torch.cuda", "tensor.cuda":
		cuda := NewCUDABackend()
		if !cuda.Available() {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, cuda.Name())
		}
		return cuda, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}

// Names lists the canonical backend names accepted by New.
func Names() []string {
	return []string{"cpu", "tensor", "tensor.float32", "cuda"}
}

// AutoSelect returns the accelerator when present and the CPU backend otherwise.
func AutoSelect() Backend {
	cuda := NewCUDABackend()
	if cuda.Available() {
		return cuda
	}
	return NewCPUBackend()
}

// Convert copies a onto the target backend.
func Convert(to Backend, a Array) (Array, error) {
	if a == nil {
		return nil, nil
	}
	if to.Owns(a) {
		return a, nil
	}
	host, err := hostData(a)
	if err != nil {
		return nil, err
	}
	return to.FromSlice(host, a.Shape()...)
}

// hostData reads any known array type without going through its owner.
func hostData(a Array) ([]float64, error) {
	switch v := a.(type) {
	case *cpuArray:
		out := make([]float64, len(v.data))
		copy(out, v.data)
		return out, nil
	case *tensorArray:
		return v.float64s(), nil
	default:
		return nil, fmt.Errorf("backend: cannot convert array of type %T", a)
	}
}

func numel(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func copyShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}

func sameShape(a, b []int) bool {
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

// fieldStrides returns the flat strides of a (Nx, Ny, Nz, 3) array.
func fieldStrides(shape []int) (sx, sy, sz int) {
	if len(shape) != 4 || shape[3] != 3 {
		panic(fmt.Sprintf("backend: DiffAccum requires shape (Nx,Ny,Nz,3), got %v", shape))
	}
	sz = 3
	sy = shape[2] * sz
	sx = shape[1] * sy
	return
}

// diffAccum is the shared stencil kernel over a flat backing slice. It walks
// x-slabs [x0, x1) so callers can split work across goroutines.
func diffAccum[T float32 | float64](dst []T, dc int, src []T, sc int, shape []int, axis int, forward bool, coef T, x0, x1 int) {
	sx, sy, sz := fieldStrides(shape)
	ny, nz := shape[1], shape[2]
	n := shape[axis]
	if n < 2 {
		return
	}
	var step int
	switch axis {
	case 0:
		step = sx
	case 1:
		step = sy
	default:
		step = sz
	}
	for x := x0; x < x1; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				var pos int
				switch axis {
				case 0:
					pos = x
				case 1:
					pos = y
				default:
					pos = z
				}
				base := x*sx + y*sy + z*sz
				if forward {
					if pos == n-1 {
						continue
					}
					dst[base+dc] += coef * (src[base+step+sc] - src[base+sc])
				} else {
					if pos == 0 {
						continue
					}
					dst[base+dc] += coef * (src[base+sc] - src[base-step+sc])
				}
			}
		}
	}
}

func meshgridData(xs, ys, zs []float64) (x, y, z []float64, shape []int) {
	nx, ny, nz := len(xs), len(ys), len(zs)
	n := nx * ny * nz
	x = make([]float64, n)
	y = make([]float64, n)
	z = make([]float64, n)
	i := 0
	for a := 0; a < nx; a++ {
		for b := 0; b < ny; b++ {
			for c := 0; c < nz; c++ {
				x[i], y[i], z[i] = xs[a], ys[b], zs[c]
				i++
			}
		}
	}
	return x, y, z, []int{nx, ny, nz}
}

// sumAxisData reduces data of the given shape along axis.
func sumAxisData(data []float64, shape []int, axis int) ([]float64, []int) {
	if axis < 0 || axis >= len(shape) {
		panic(fmt.Sprintf("backend: axis %d out of range for shape %v", axis, shape))
	}
	outer := numel(shape[:axis])
	inner := numel(shape[axis+1:])
	n := shape[axis]
	out := make([]float64, outer*inner)
	for o := 0; o < outer; o++ {
		for k := 0; k < n; k++ {
			row := data[(o*n+k)*inner : (o*n+k+1)*inner]
			dst := out[o*inner : (o+1)*inner]
			for i, v := range row {
				dst[i] += v
			}
		}
	}
	outShape := append(copyShape(shape[:axis]), shape[axis+1:]...)
	if len(outShape) == 0 {
		outShape = []int{1}
	}
	return out, outShape
}
