package backend

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

func testBackends() []Backend {
	return []Backend{
		NewCPUBackend(),
		NewTensorBackend(Float64),
		NewTensorBackend(Float32),
	}
}

func approxSlice(t *testing.T, name string, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr error
	}{
		{"cpu", "cpu", nil},
		{"numpy", "cpu", nil},
		{"", "cpu", nil},
		{"tensor", "tensor.float64", nil},
		{"torch.float32", "tensor.float32", nil},
		{"cuda", "", ErrUnsupported},
		{"torch.cuda", "", ErrUnsupported},
		{"fortran", "", ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be, err := New(tt.name)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New(%q) error = %v, want %v", tt.name, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.name, err)
			}
			if be.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", be.Name(), tt.want)
			}
		})
	}
}

func TestNewReturnsIndependentInstances(t *testing.T) {
	a, _ := New("cpu")
	b, _ := New("cpu")
	arr := a.Zeros(3)
	if b.Owns(arr) {
		t.Error("array owned by a second backend instance")
	}
	if !a.Owns(arr) {
		t.Error("array not owned by its creator")
	}
}

func TestAllocation(t *testing.T) {
	for _, be := range testBackends() {
		t.Run(be.Name(), func(t *testing.T) {
			z := be.Zeros(2, 3)
			if z.Len() != 6 {
				t.Errorf("Len() = %d, want 6", z.Len())
			}
			if s := z.Shape(); len(s) != 2 || s[0] != 2 || s[1] != 3 {
				t.Errorf("Shape() = %v, want [2 3]", s)
			}
			if z.DType() != be.DType() {
				t.Errorf("DType() = %v, want %v", z.DType(), be.DType())
			}
			approxSlice(t, "ones", be.ToSlice(be.Ones(3)), []float64{1, 1, 1}, 0)
			approxSlice(t, "full", be.ToSlice(be.Full(2.5, 2)), []float64{2.5, 2.5}, 0)

			if _, err := be.FromSlice([]float64{1, 2, 3}, 2, 2); !errors.Is(err, ErrShape) {
				t.Errorf("FromSlice shape mismatch error = %v, want ErrShape", err)
			}
		})
	}
}

func TestElementwise(t *testing.T) {
	for _, be := range testBackends() {
		t.Run(be.Name(), func(t *testing.T) {
			a, _ := be.FromSlice([]float64{1, 2, 3, 4})
			b, _ := be.FromSlice([]float64{4, 3, 2, 1})
			dst := be.Zeros(4)

			be.Add(dst, a, b)
			approxSlice(t, "add", be.ToSlice(dst), []float64{5, 5, 5, 5}, 1e-6)

			be.Sub(dst, a, b)
			approxSlice(t, "sub", be.ToSlice(dst), []float64{-3, -1, 1, 3}, 1e-6)

			be.Mul(dst, a, b)
			approxSlice(t, "mul", be.ToSlice(dst), []float64{4, 6, 6, 4}, 1e-6)

			be.Div(dst, a, b)
			approxSlice(t, "div", be.ToSlice(dst), []float64{0.25, 2.0 / 3, 1.5, 4}, 1e-6)

			// dst aliasing an operand
			c := be.Clone(a)
			be.Add(c, c, b)
			approxSlice(t, "add alias", be.ToSlice(c), []float64{5, 5, 5, 5}, 1e-6)

			be.Scale(c, 2)
			approxSlice(t, "scale", be.ToSlice(c), []float64{10, 10, 10, 10}, 1e-6)

			be.AddScaled(c, -1, a)
			approxSlice(t, "addscaled", be.ToSlice(c), []float64{9, 8, 7, 6}, 1e-6)

			be.Fill(c, 0.5)
			approxSlice(t, "fill", be.ToSlice(c), []float64{0.5, 0.5, 0.5, 0.5}, 0)
		})
	}
}

func TestUnary(t *testing.T) {
	in := []float64{-1, 0, 0.5, 2}
	tests := []struct {
		name string
		op   func(Backend, Array, Array)
		fn   func(float64) float64
	}{
		{"exp", Backend.Exp, math.Exp},
		{"sin", Backend.Sin, math.Sin},
		{"cos", Backend.Cos, math.Cos},
		{"abs", Backend.Abs, math.Abs},
	}

	for _, be := range testBackends() {
		for _, tt := range tests {
			t.Run(be.Name()+"/"+tt.name, func(t *testing.T) {
				a, _ := be.FromSlice(in)
				dst := be.Zeros(len(in))
				tt.op(be, dst, a)
				want := make([]float64, len(in))
				for i, v := range in {
					want[i] = tt.fn(v)
				}
				approxSlice(t, tt.name, be.ToSlice(dst), want, 1e-6)
			})
		}

		t.Run(be.Name()+"/sqrt", func(t *testing.T) {
			a, _ := be.FromSlice([]float64{0, 1, 4, 9})
			dst := be.Zeros(4)
			be.Sqrt(dst, a)
			approxSlice(t, "sqrt", be.ToSlice(dst), []float64{0, 1, 2, 3}, 1e-6)
		})
	}
}

func TestReductions(t *testing.T) {
	for _, be := range testBackends() {
		t.Run(be.Name(), func(t *testing.T) {
			a, _ := be.FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
			if got := be.Sum(a); math.Abs(got-21) > 1e-6 {
				t.Errorf("Sum = %v, want 21", got)
			}
			if got := be.Min(a); got != 1 {
				t.Errorf("Min = %v, want 1", got)
			}
			if got := be.Max(a); got != 6 {
				t.Errorf("Max = %v, want 6", got)
			}

			rows := be.SumAxis(a, 1)
			approxSlice(t, "sum axis 1", be.ToSlice(rows), []float64{6, 15}, 1e-6)
			cols := be.SumAxis(a, 0)
			approxSlice(t, "sum axis 0", be.ToSlice(cols), []float64{5, 7, 9}, 1e-6)
		})
	}
}

func TestSumPropagatesNaN(t *testing.T) {
	for _, be := range testBackends() {
		a, _ := be.FromSlice([]float64{1, math.NaN(), 3})
		if !math.IsNaN(be.Sum(a)) {
			t.Errorf("%s: Sum did not propagate NaN", be.Name())
		}
	}
}

func TestMeshgrid(t *testing.T) {
	for _, be := range testBackends() {
		t.Run(be.Name(), func(t *testing.T) {
			x, y, z := be.Meshgrid([]float64{0, 1}, []float64{10, 20, 30}, []float64{5})
			if s := x.Shape(); len(s) != 3 || s[0] != 2 || s[1] != 3 || s[2] != 1 {
				t.Fatalf("shape = %v, want [2 3 1]", s)
			}
			approxSlice(t, "x", be.ToSlice(x), []float64{0, 0, 0, 1, 1, 1}, 0)
			approxSlice(t, "y", be.ToSlice(y), []float64{10, 20, 30, 10, 20, 30}, 0)
			approxSlice(t, "z", be.ToSlice(z), []float64{5, 5, 5, 5, 5, 5}, 0)
		})
	}
}

func TestDiffAccum(t *testing.T) {
	// 4x1x1 field, component 2 holds 0, 1, 4, 9 along x.
	src := make([]float64, 12)
	for i, v := range []float64{0, 1, 4, 9} {
		src[i*3+2] = v
	}

	for _, be := range testBackends() {
		t.Run(be.Name(), func(t *testing.T) {
			s, _ := be.FromSlice(src, 4, 1, 1, 3)

			fwd := be.Zeros(4, 1, 1, 3)
			be.DiffAccum(fwd, 1, s, 2, 0, true, 2)
			got := be.ToSlice(fwd)
			approxSlice(t, "forward", []float64{got[1], got[4], got[7], got[10]}, []float64{2, 6, 10, 0}, 1e-6)

			bwd := be.Zeros(4, 1, 1, 3)
			be.DiffAccum(bwd, 0, s, 2, 0, false, -1)
			got = be.ToSlice(bwd)
			approxSlice(t, "backward", []float64{got[0], got[3], got[6], got[9]}, []float64{0, -1, -3, -5}, 1e-6)

			// axes of extent one contribute nothing
			flat := be.Zeros(4, 1, 1, 3)
			be.DiffAccum(flat, 0, s, 2, 1, true, 1)
			if be.Sum(flat) != 0 {
				t.Error("difference along a unit axis is not zero")
			}
		})
	}
}

func TestTakePut(t *testing.T) {
	for _, be := range testBackends() {
		t.Run(be.Name(), func(t *testing.T) {
			a, _ := be.FromSlice([]float64{10, 11, 12, 13, 14})
			got := be.Take(a, []int{4, 0, 2})
			approxSlice(t, "take", be.ToSlice(got), []float64{14, 10, 12}, 0)

			vals, _ := be.FromSlice([]float64{1, 2})
			be.Put(a, []int{1, 3}, vals)
			approxSlice(t, "put", be.ToSlice(a), []float64{10, 1, 12, 2, 14}, 0)

			be.PutAdd(a, []int{1, 3}, vals)
			approxSlice(t, "putadd", be.ToSlice(a), []float64{10, 2, 12, 4, 14}, 0)
		})
	}
}

func TestForeignArrayPanics(t *testing.T) {
	cpu := NewCPUBackend()
	tb := NewTensorBackend(Float64)
	foreign := tb.Zeros(3)

	defer func() {
		if recover() == nil {
			t.Error("mixing arrays from two backends did not panic")
		}
	}()
	cpu.Add(cpu.Zeros(3), cpu.Zeros(3), foreign)
}

func TestConvert(t *testing.T) {
	cpu := NewCPUBackend()
	tb := NewTensorBackend(Float32)
	a, _ := cpu.FromSlice([]float64{1, 2, 3, 4}, 2, 2)

	b, err := Convert(tb, a)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if !tb.Owns(b) {
		t.Fatal("converted array not owned by target")
	}
	if s := b.Shape(); s[0] != 2 || s[1] != 2 {
		t.Errorf("shape = %v, want [2 2]", s)
	}
	approxSlice(t, "convert", tb.ToSlice(b), []float64{1, 2, 3, 4}, 0)

	same, _ := Convert(cpu, a)
	if same != a {
		t.Error("Convert onto the owning backend copied the array")
	}
}

func TestFFT(t *testing.T) {
	n := 64
	series := make([]float64, n)
	for i := range series {
		series[i] = math.Sin(2 * math.Pi * 4 * float64(i) / float64(n))
	}

	for _, be := range testBackends() {
		spec := be.FFT(series)
		if len(spec) != n {
			t.Fatalf("%s: FFT length %d, want %d", be.Name(), len(spec), n)
		}
		peak := 0
		for k := 1; k < n/2; k++ {
			if cmplx.Abs(spec[k]) > cmplx.Abs(spec[peak]) {
				peak = k
			}
		}
		if peak != 4 {
			t.Errorf("%s: peak bin %d, want 4", be.Name(), peak)
		}
	}
}

func TestCUDAUnavailable(t *testing.T) {
	cuda := NewCUDABackend()
	if cuda.Available() {
		t.Skip("accelerator present")
	}
	if got := AutoSelect(); got.Name() != "cpu" {
		t.Errorf("AutoSelect() = %s, want cpu", got.Name())
	}
}

func TestParallelFor(t *testing.T) {
	n := 1000
	hits := make([]int, n)
	ParallelFor(n, 10, 4, func(s, e int) {
		for i := s; i < e; i++ {
			hits[i]++
		}
	})
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}
