// Package tui prints a plain-text field view while a run progresses, for
// terminals where the full-screen viewer is unwanted.
package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/san-kum/fdtdsim/internal/fdtd"
)

const (
	width       = 70
	height      = 15
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer draws the E component along the central x line at most
// frameRate times per second. It satisfies sim.Observer.
type LiveRenderer struct {
	out       io.Writer
	title     string
	component fdtd.Axis
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	scale     float64
	frames    int
}

func NewLiveRenderer(out io.Writer, title string, component fdtd.Axis, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{
		out:       out,
		title:     title,
		component: component,
		frameRate: frameRate,
		canvas:    canvas,
	}
}

func (r *LiveRenderer) OnStep(g *fdtd.Grid) {
	if r.frameRate > 0 && time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	r.Render(g)
}

// Render draws one frame unconditionally.
func (r *LiveRenderer) Render(g *fdtd.Grid) {
	e := g.E()
	shape := e.Shape
	profile := make([]float64, shape[0])
	for x := range profile {
		profile[x] = e.At(x, shape[1]/2, shape[2]/2, r.component)
	}
	if peak := e.MaxAbs(); peak > r.scale && !math.IsInf(peak, 0) {
		r.scale = peak
	}

	r.clear()
	r.drawProfile(profile)
	r.render(g, e.MaxAbs())
	r.frames++
}

// Frames counts the frames drawn so far.
func (r *LiveRenderer) Frames() int { return r.frames }

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) drawProfile(profile []float64) {
	cy := height / 2
	for x := 0; x < width; x++ {
		r.set(x, cy, '-')
	}
	if len(profile) == 0 || r.scale == 0 {
		return
	}
	for x := 0; x < width; x++ {
		i := x * len(profile) / width
		v := profile[i] / r.scale
		if math.IsNaN(v) {
			r.set(x, cy, '?')
			continue
		}
		y := cy - int(math.Round(v*float64(height/2-1)))
		r.set(x, y, '*')
	}
}

func (r *LiveRenderer) render(g *fdtd.Grid, peak float64) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  step=%d  t=%.3ffs  E%s\n", r.title, g.TimeStepsPassed(), g.Time()*1e15, r.component))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString(fmt.Sprintf("  peak |E| = %.4g V/m\n", peak))
	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
