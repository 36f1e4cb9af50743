package viz

import (
	"math"
	"strings"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a character grid addressed in sub-pixels; it is
// Width*2 sub-pixels wide and Height*4 tall.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) SubWidth() int  { return c.Width * 2 }
func (c *Canvas) SubHeight() int { return c.Height * 4 }

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawCross marks (x, y) with a small plus, used for the central body.
func (c *Canvas) DrawCross(x, y int) {
	for d := -1; d <= 1; d++ {
		c.Set(x+d, y)
		c.Set(x, y+d)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// PlotTracks draws each track as a polyline through the view, scaled so
// the largest extent of any point fits the canvas. The origin is marked.
func (c *Canvas) PlotTracks(tracks [][]Vec3, view *View) {
	c.Clear()
	extent := 0.0
	for _, tr := range tracks {
		for _, p := range tr {
			extent = math.Max(extent, p.Length())
		}
	}
	if extent == 0 {
		extent = 1
	}
	w, h := c.SubWidth(), c.SubHeight()
	ox, oy := view.Project(Vec3{}, extent, w, h)
	c.DrawCross(ox, oy)
	for _, tr := range tracks {
		for i, p := range tr {
			x, y := view.Project(p, extent, w, h)
			if i == 0 {
				c.Set(x, y)
				continue
			}
			px, py := view.Project(tr[i-1], extent, w, h)
			c.DrawLine(px, py, x, y)
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
