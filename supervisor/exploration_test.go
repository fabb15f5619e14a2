package supervisor

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/config"
	"github.com/mattlangford/lqrrt/ogrid"
	"github.com/mattlangford/lqrrt/spatialmath"
)

func TestEscapeExplorationPushesGuideOutward(t *testing.T) {
	escape := behaviors.NewEscape()
	seed := spatialmath.State{X: 0, Y: 0}
	goal := spatialmath.State{X: 1, Y: 0}
	bp := config.Default().Escape
	bp.FreeRadius = 5

	bias, _, guide := escapeExploration(escape, seed, goal, bp)
	test.That(t, bias, test.ShouldResemble, [6]float64{})
	// goal is nearer than 2*FreeRadius, so guide is pushed past it.
	test.That(t, guide.X, test.ShouldBeGreaterThan, goal.X)
}

func TestEscapeExplorationKeepsGoalWhenFar(t *testing.T) {
	escape := behaviors.NewEscape()
	seed := spatialmath.State{X: 0, Y: 0}
	goal := spatialmath.State{X: 100, Y: 0}
	bp := config.Default().Escape
	bp.FreeRadius = 1

	_, _, guide := escapeExploration(escape, seed, goal, bp)
	test.That(t, guide.X, test.ShouldEqual, goal.X)
}

func TestSelectExplorationNilGridFallsBack(t *testing.T) {
	car := behaviors.NewCar()
	escape := behaviors.NewEscape()
	seed := spatialmath.State{X: 0, Y: 0}
	goal := spatialmath.State{X: 5, Y: 0}
	bp := config.Default().Car

	bias, ss, guide := selectExploration(behaviors.Car, car, escape, seed, goal, nil, 90, bp)
	test.That(t, guide.X, test.ShouldEqual, goal.X)
	test.That(t, ss.XMax, test.ShouldBeGreaterThan, goal.X)
	test.That(t, bias[0], test.ShouldBeGreaterThan, 0)
}

func TestSelectExplorationOutOfBoundsFallsBack(t *testing.T) {
	car := behaviors.NewCar()
	escape := behaviors.NewEscape()
	seed := spatialmath.State{X: 0, Y: 0}
	goal := spatialmath.State{X: 5, Y: 0}
	bp := config.Default().Car

	// A tiny grid that does not cover seed or goal.
	grid := ogrid.NewGrid(make([]int16, 4), 2, 2, r3.Vector{X: 50, Y: 50}, 1.0)
	_, ss, guide := selectExploration(behaviors.Car, car, escape, seed, goal, grid, 90, bp)
	test.That(t, guide.X, test.ShouldEqual, goal.X)
	test.That(t, ss.XMax, test.ShouldBeGreaterThan, goal.X)
}

func TestSelectExplorationRoutesAroundWall(t *testing.T) {
	car := behaviors.NewCar()
	escape := behaviors.NewEscape()

	// A 1 meter/cell grid spanning [0,20)x[0,20), with a wall across
	// column 10 save for a gap near the top, forcing the guide to route
	// through the gap rather than straight toward goal.
	w, h := 20, 20
	values := make([]int16, w*h)
	for row := 0; row < h; row++ {
		if row < h-3 {
			values[row*w+10] = 200
		}
	}
	grid := ogrid.NewGrid(values, w, h, r3.Vector{X: 0, Y: 0}, 1.0)

	seed := spatialmath.State{X: 5, Y: 5}
	goal := spatialmath.State{X: 15, Y: 5}
	bp := config.Default().Car
	bp.BoatWidth = 0.5
	bp.SSStep = 2

	bias, ss, guide := selectExploration(behaviors.Car, car, escape, seed, goal, grid, 90, bp)
	test.That(t, ss.XMax, test.ShouldBeGreaterThan, goal.X-1)
	test.That(t, bias[0], test.ShouldBeGreaterThanOrEqualTo, 0.0)
	// The guide moves off the goal's row toward the gap at the top.
	test.That(t, guide.Y, test.ShouldBeGreaterThan, goal.Y)
}

func TestWeightBiasBoatNearUsesFullLateralAuthority(t *testing.T) {
	bp := config.Default().Boat
	bp.FreeRadius = 10
	seed := spatialmath.State{X: 0, Y: 0}
	goal := spatialmath.State{X: 1, Y: 0}
	bias := weightBias(behaviors.Boat, 0.5, seed, goal, bp)
	test.That(t, bias, test.ShouldResemble, [6]float64{1, 1, 1, 0.1, 0.1, 0})
}

func TestWeightBiasBoatFarUsesFreeRatioBias(t *testing.T) {
	bp := config.Default().Boat
	bp.FreeRadius = 1
	seed := spatialmath.State{X: 0, Y: 0}
	goal := spatialmath.State{X: 100, Y: 0}
	bias := weightBias(behaviors.Boat, 0.5, seed, goal, bp)
	test.That(t, bias, test.ShouldResemble, [6]float64{0.5, 0.5, 1, 0, 0, 1})
}

func TestWeightBiasCarClipsTo075(t *testing.T) {
	bp := config.Default().Car
	bias := weightBias(behaviors.Car, 0.95, spatialmath.State{}, spatialmath.State{X: 1}, bp)
	test.That(t, bias, test.ShouldResemble, [6]float64{0.75, 0.75, 0, 0, 0.5, 0})
}

func TestClipBounds(t *testing.T) {
	test.That(t, clip(-1, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, clip(2, 0, 1), test.ShouldEqual, 1.0)
	test.That(t, clip(0.5, 0, 1), test.ShouldEqual, 0.5)
}
