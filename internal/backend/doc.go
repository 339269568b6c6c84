// Package backend provides the numeric array engines the FDTD core runs on.
//
// Every engine component talks to a [Backend] and never to a concrete array
// library. Three execution targets exist:
//
//   - cpu: host float64 slices driven by gonum kernels, split across workers
//   - tensor: gorgonia tensors in float64 or float32
//   - cuda: accelerator target, reported unavailable in this build
//
// # Selection
//
// A backend is an explicit value handed to the grid at construction:
//
//	be, err := backend.New("tensor")
//	if err != nil {
//	    return err // wraps ErrUnknown or ErrUnsupported
//	}
//	g, err := fdtd.New(cfg, be)
//
// There is no process-wide default. Two grids built on two backends never
// share arrays; [Convert] copies an array between targets explicitly.
//
// # Ownership
//
// Arrays remember the backend instance that created them. Passing a foreign
// array to an operation panics, the same way gonum panics on length mismatch.
// Callers that accept arrays from outside validate them with [Backend.Owns].
package backend
