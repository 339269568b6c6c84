// Package analysis post-processes detector time series.
//
//   - [PowerSpectrum]: one-sided amplitude spectrum through a backend FFT
//   - [Spectrum.Peak] and [Wavelength]: dominant frequency and its vacuum wavelength
//   - [ArrivalStep]: first step a signal crosses a threshold
//   - [Transmission]: output to input energy ratio between two detectors
//
// # Example
//
//	d, _ := grid.Detector("sensor")
//	spec := analysis.PowerSpectrum(grid.Backend(), d.Component('E', fdtd.Z), grid.TimeStep())
//	f, _ := spec.Peak()
//	fmt.Println(analysis.Wavelength(f))
package analysis
