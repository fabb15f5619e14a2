package supervisor

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/ogrid"
	"github.com/mattlangford/lqrrt/spatialmath"
)

func TestRotationMoveReachesHeading(t *testing.T) {
	boat := behaviors.NewBoat()
	x := spatialmath.State{Theta: 0}
	xSeq, uSeq, duration, ok := rotationMove(boat, nil, 90, nil, x, math.Pi/2, 0.05, 0.05, 0.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(xSeq), test.ShouldBeGreaterThan, 1)
	test.That(t, len(uSeq), test.ShouldEqual, len(xSeq))
	test.That(t, duration, test.ShouldBeGreaterThan, 0.0)
	last := xSeq[len(xSeq)-1]
	test.That(t, math.Abs(spatialmath.AngleDiff(math.Pi/2, last.Theta)) < 0.05, test.ShouldBeTrue)
}

func TestRotationMoveTruncatesOnInfeasibility(t *testing.T) {
	boat := behaviors.NewBoat()
	values := make([]int16, 21*21)
	values[10*21+10] = 200 // occupied near world (0.7, 0.7), astride a pi/4 sweep
	grid := ogrid.NewGrid(values, 21, 21, r3.Vector{X: -10, Y: -10}, 1.0)
	vps := []r3.Vector{{X: 1, Y: 0}}

	x := spatialmath.State{Theta: 0}
	xSeq, _, _, ok := rotationMove(boat, grid, 90, vps, x, math.Pi/2, 0.05, 0.05, 0.5)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, len(xSeq), test.ShouldBeGreaterThan, 0)
	last := xSeq[len(xSeq)-1]
	test.That(t, last.Theta < math.Pi/2, test.ShouldBeTrue)
}
