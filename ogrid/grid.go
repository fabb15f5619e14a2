// Package ogrid implements the occupancy grid and the pixel-space
// morphology (thresholding, dilation, flood fill, boundary analysis) the
// exploration shaper uses to pick a sample space, bias, and guide point.
package ogrid

import (
	"math"

	"github.com/golang/geo/r3"
)

// Grid is a row-major occupancy grid. A cell is "occupied" iff its raw
// value exceeds a configured threshold (the threshold lives with the
// caller, not the grid, since different callers may binarize at different
// thresholds). The grid is meant to be replaced wholesale on every update
// (Supervisor.OnGrid swaps its grid pointer), never mutated in place, so
// that readers always see a self-consistent snapshot.
type Grid struct {
	// Values holds Height*Width raw occupancy values, row-major.
	Values []int16
	Width  int
	Height int

	// Origin is the world-frame position of pixel (row=0, col=0).
	Origin r3.Vector
	// Resolution is world units per cell.
	Resolution float64
}

// NewGrid builds a Grid from raw row-major data.
func NewGrid(values []int16, width, height int, origin r3.Vector, resolution float64) *Grid {
	return &Grid{Values: values, Width: width, Height: height, Origin: origin, Resolution: resolution}
}

// CellsPerMeter is the inverse of Resolution.
func (g *Grid) CellsPerMeter() float64 {
	return 1 / g.Resolution
}

// InBounds reports whether (row, col) indexes a real cell.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Height && col >= 0 && col < g.Width
}

// At returns the raw occupancy value at (row, col).
func (g *Grid) At(row, col int) int16 {
	return g.Values[row*g.Width+col]
}

// WorldToPixel converts a world-frame point into (row, col) pixel
// coordinates, flooring to the containing cell.
func (g *Grid) WorldToPixel(p r3.Vector) (row, col int) {
	cpm := g.CellsPerMeter()
	col = int(math.Floor(cpm * (p.X - g.Origin.X)))
	row = int(math.Floor(cpm * (p.Y - g.Origin.Y)))
	return row, col
}

// PixelToWorld converts a (row, col) pixel index back to a world-frame
// point at the cell's lower corner.
func (g *Grid) PixelToWorld(row, col int) r3.Vector {
	res := g.Resolution
	return r3.Vector{X: float64(col)*res + g.Origin.X, Y: float64(row)*res + g.Origin.Y}
}

// Occupied reports whether (row, col) is occupied under the given
// threshold. Out-of-bounds indices are never feasible to query; callers
// must check InBounds first (the feasibility oracle treats an
// out-of-bounds lookup as infeasible, not occupied).
func (g *Grid) Occupied(row, col int, threshold int16) bool {
	return g.At(row, col) > threshold
}

// ThresholdImage binarizes the grid into an Image where occupied cells
// (value > threshold) become 255 and all others become 0.
func (g *Grid) ThresholdImage(threshold int16) *Image {
	im := NewImage(g.Width, g.Height)
	for i, v := range g.Values {
		if v > threshold {
			im.Pix[i] = 255
		}
	}
	return im
}
