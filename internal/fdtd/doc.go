// Package fdtd implements a finite-difference time-domain solver for
// Maxwell's equations on a staggered Yee grid.
//
// A Grid is configured with objects, sources, detectors and boundaries, then
// advanced with Step or Run. Fields live on the backend the grid was created
// with and are stored in normalised units; the E and H accessors and the
// detector read-outs convert back to V/m and A/m.
//
// One step performs, in order: E update, sources, E boundary corrections,
// H update, H boundary corrections, detector recording.
package fdtd
