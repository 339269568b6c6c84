// Package viz renders a running grid in the terminal with Bubble Tea.
//
//   - [Model]: live view stepping a grid, with a field profile or heat map,
//     an energy chart and run statistics
//   - [Canvas]: Braille and shaded character canvas
//
// One-dimensional grids show the selected E component along x. Grids with
// a second active axis show |E| in the central z plane as a heat map.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset fields and step counter
//	C     - Cycle the displayed component
//	+/-   - More or fewer steps per frame
//	T     - Cycle color themes
//	Q     - Quit
package viz
