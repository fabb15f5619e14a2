package ogrid

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestThresholdImage(t *testing.T) {
	values := []int16{0, 50, 100, 0}
	g := NewGrid(values, 2, 2, r3.Vector{}, 1.0)
	im := g.ThresholdImage(90)
	test.That(t, im.At(0, 0), test.ShouldEqual, uint8(0))
	test.That(t, im.At(0, 1), test.ShouldEqual, uint8(0))
	test.That(t, im.At(1, 0), test.ShouldEqual, uint8(255))
	test.That(t, im.At(1, 1), test.ShouldEqual, uint8(0))
}

func TestWorldPixelRoundTrip(t *testing.T) {
	g := NewGrid(make([]int16, 100), 10, 10, r3.Vector{X: -5, Y: -5}, 1.0)
	row, col := g.WorldToPixel(r3.Vector{X: 0, Y: 0})
	test.That(t, row, test.ShouldEqual, 5)
	test.That(t, col, test.ShouldEqual, 5)
	back := g.PixelToWorld(row, col)
	test.That(t, back.X, test.ShouldEqual, 0.0)
	test.That(t, back.Y, test.ShouldEqual, 0.0)
}

func TestDilateGrowsObstacles(t *testing.T) {
	im := NewImage(5, 5)
	im.Set(2, 2, 255)
	dil := im.Dilate(2)
	// a kernel of side 2 (radius 1) should mark the 3x3 neighborhood.
	test.That(t, dil.At(1, 1), test.ShouldEqual, uint8(255))
	test.That(t, dil.At(3, 3), test.ShouldEqual, uint8(255))
	test.That(t, dil.At(0, 0), test.ShouldEqual, uint8(0))
}

func TestFloodFillStaysWithinWalls(t *testing.T) {
	im := NewImage(5, 5)
	for c := 0; c < 5; c++ {
		im.Set(2, c, 255)
	}
	filled := im.FloodFill(0, 0, 200)
	test.That(t, filled.At(0, 0), test.ShouldEqual, uint8(200))
	test.That(t, filled.At(1, 4), test.ShouldEqual, uint8(200))
	// below the wall is unreachable from above.
	test.That(t, filled.At(3, 0), test.ShouldEqual, uint8(0))
	test.That(t, filled.At(2, 0), test.ShouldEqual, uint8(255))
}

func TestBoundaryAnalysisEmptyWhenConnected(t *testing.T) {
	im := NewImage(10, 10)
	bpts := BoundaryAnalysis(im, 1, 1, 8, 8)
	test.That(t, len(bpts), test.ShouldEqual, 0)
}

func TestBoundaryAnalysisFindsWallBetween(t *testing.T) {
	im := NewImage(10, 10)
	for r := 0; r < 10; r++ {
		im.Set(r, 5, 255)
	}
	bpts := BoundaryAnalysis(im, 2, 2, 2, 8)
	test.That(t, len(bpts) > 0, test.ShouldBeTrue)
	for _, p := range bpts {
		test.That(t, p[1], test.ShouldEqual, 5)
	}
}

func TestFreeRatio(t *testing.T) {
	im := NewImage(2, 2)
	im.Set(0, 0, 255)
	test.That(t, im.FreeRatio(), test.ShouldEqual, 0.75)
}
