package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const brailleBase = 0x2800

var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Point is a position in world coordinates, metres.
type Point struct {
	X, Y float64
}

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

// Set lights the dot at (x, y) in sub-pixel coordinates. The canvas is
// (Width*2) x (Height*4) sub-pixels.
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
			c.Grid[i][j] = brailleBase
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
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

// Bounds is an axis-aligned box in world coordinates.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// BoundsOf returns the padded box around points, square so turns are not
// distorted. An empty path yields a unit box at the origin.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{-1, 1, -1, 1}
	}
	b := Bounds{points[0].X, points[0].X, points[0].Y, points[0].Y}
	for _, p := range points[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}

	span := math.Max(b.MaxX-b.MinX, b.MaxY-b.MinY)
	if span == 0 {
		span = 1
	}
	span *= 1.1
	cx, cy := (b.MinX+b.MaxX)/2, (b.MinY+b.MaxY)/2
	return Bounds{cx - span/2, cx + span/2, cy - span/2, cy + span/2}
}

// project maps a world point into sub-pixels, +y up.
func (c *Canvas) project(p Point, b Bounds) (int, int) {
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	x := (p.X - b.MinX) / (b.MaxX - b.MinX) * w
	y := h - (p.Y-b.MinY)/(b.MaxY-b.MinY)*h
	return int(math.Round(x)), int(math.Round(y))
}

// DrawPath connects consecutive points scaled into b.
func (c *Canvas) DrawPath(points []Point, b Bounds) {
	for i, p := range points {
		x1, y1 := c.project(p, b)
		if i == 0 {
			c.Set(x1, y1)
			continue
		}
		x0, y0 := c.project(points[i-1], b)
		c.DrawLine(x0, y0, x1, y1)
	}
}

// DrawHeading draws a short tick from p along theta.
func (c *Canvas) DrawHeading(p Point, theta float64, b Bounds) {
	length := (b.MaxX - b.MinX) * 0.05
	tip := Point{p.X + length*math.Cos(theta), p.Y + length*math.Sin(theta)}
	x0, y0 := c.project(p, b)
	x1, y1 := c.project(tip, b)
	c.DrawLine(x0, y0, x1, y1)
}

// Dots reports which sub-pixels of the cell at (row, col) are lit, as
// [dy][dx] pairs.
func (c *Canvas) Dots(row, col int) [][2]int {
	r := c.Grid[row][col]
	if r < brailleBase {
		return nil
	}
	pattern := int(r - brailleBase)
	dots := make([][2]int, 0, 8)
	for dy := 0; dy < 4; dy++ {
		for dx := 0; dx < 2; dx++ {
			if pattern&pixelMap[dy][dx] != 0 {
				dots = append(dots, [2]int{dy, dx})
			}
		}
	}
	return dots
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
