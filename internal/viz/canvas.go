package viz

import (
	"math"
	"strings"
)

// dot bits of a braille cell by sub-row and sub-column; cells start at U+2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// shades orders characters from empty to full for heat maps.
var shades = []rune(" .:-=+*#%@")

// Canvas is a character grid. Braille plotting addresses it in sub-pixels,
// (Width*2) x (Height*4); heat maps write whole characters.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel at (x, y).
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	if c.Grid[row][col] < blank {
		c.Grid[row][col] = blank
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine joins two sub-pixels, stepping along the longer axis.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	n := max(absInt(x1-x0), absInt(y1-y0))
	if n == 0 {
		c.Set(x0, y0)
		return
	}
	for k := 0; k <= n; k++ {
		t := float64(k) / float64(n)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		c.Set(x, y)
	}
}

// DrawProfile plots values across the full width, scaled so ±limit spans
// the height, with the zero line in the middle.
func (c *Canvas) DrawProfile(values []float64, limit float64) {
	cw, ch := c.Width*2, c.Height*4
	if len(values) == 0 || cw < 2 {
		return
	}
	if limit <= 0 {
		limit = 1
	}
	mid := ch / 2
	for x := 0; x < cw; x += 2 {
		c.Set(x, mid)
	}
	px, py := -1, 0
	for x := 0; x < cw; x++ {
		i := x * (len(values) - 1) / (cw - 1)
		v := values[i] / limit
		v = math.Max(-1, math.Min(1, v))
		y := mid - int(math.Round(v*float64(ch/2-1)))
		if px >= 0 {
			c.DrawLine(px, py, x, y)
		}
		px, py = x, y
	}
}

// DrawHeatmap fills the canvas with |value|/limit shades; values is
// indexed [x][y] and is resampled to the canvas, y increasing upwards.
func (c *Canvas) DrawHeatmap(values [][]float64, limit float64) {
	if len(values) == 0 || len(values[0]) == 0 {
		return
	}
	if limit <= 0 {
		limit = 1
	}
	nx, ny := len(values), len(values[0])
	for row := 0; row < c.Height; row++ {
		j := (c.Height - 1 - row) * ny / c.Height
		for col := 0; col < c.Width; col++ {
			i := col * nx / c.Width
			level := math.Min(1, math.Abs(values[i][j])/limit)
			c.Grid[row][col] = shades[int(level*float64(len(shades)-1))]
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
