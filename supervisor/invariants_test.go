package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/mattlangford/lqrrt/action"
	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/ogrid"
	"github.com/mattlangford/lqrrt/spatialmath"
)

func TestInvariantGetRefWithinInterpTol(t *testing.T) {
	seg := &Segment{
		XSeq: []spatialmath.State{{X: 0, Y: 0}, {X: 10, Y: 20}, {X: 30, Y: 10}},
		USeq: []spatialmath.Effort{{FX: 1}, {FX: 2}},
		DT:   0.5,
	}
	for _, tt := range []struct {
		t            float64
		wantX, wantY float64
	}{
		{0, 0, 0},
		{0.25, 5, 10},
		{0.5, 10, 20},
		{0.75, 20, 15},
		{1.0, 30, 10},
	} {
		x, _ := seg.Sample(tt.t)
		test.That(t, x.X, test.ShouldAlmostEqual, tt.wantX, interpTol)
		test.That(t, x.Y, test.ShouldAlmostEqual, tt.wantY, interpTol)
	}
}

func TestInvariantReevaluateAgreesWithIsFeasible(t *testing.T) {
	values := make([]int16, 100)
	for c := 0; c < 10; c++ {
		values[4*10+c] = 200
	}
	grid := ogrid.NewGrid(values, 10, 10, r3.Vector{}, 1.0)
	vps := []r3.Vector{{}}

	xSeq := make([]spatialmath.State, 10)
	for i := range xSeq {
		xSeq[i] = spatialmath.State{X: 0.5, Y: float64(i) + 0.5}
	}
	seg := &Segment{XSeq: xSeq, DT: 0.1}

	res := reevaluatePlan(seg, grid, 90, vps, 0.25, spatialmath.State{}, 0, false)
	test.That(t, res.IssueFound, test.ShouldBeTrue)

	idx := int(res.TimeTillIssue / seg.DT)
	probe := xSeq[idx]
	probe.VX, probe.VY, probe.Omega = 0, 0, 0
	test.That(t, isFeasible(grid, 90, vps, probe), test.ShouldBeFalse)
}

func TestInvariantTreeChainMutualExclusion(t *testing.T) {
	s, _ := newTestSupervisor(t)
	s.OnOdometry(spatialmath.State{})
	s.goal = spatialmath.State{X: 5}
	s.busy.Store(true)

	before := s.committed
	ok := s.treeChain(context.Background())
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, s.committed, test.ShouldEqual, before)
}

func TestInvariantNextSeedMatchesGetRefAfterCleanChain(t *testing.T) {
	s, _ := newTestSupervisor(t)
	s.OnOdometry(spatialmath.State{})
	s.mu.Lock()
	s.goal = spatialmath.State{X: 5, Y: 0}
	s.moveType = action.Drive
	s.behaviorKind = behaviors.Car
	s.nextSeed = spatialmath.State{}
	s.mu.Unlock()

	ok := s.treeChain(context.Background())
	test.That(t, ok, test.ShouldBeTrue)

	s.mu.Lock()
	nextSeed := s.nextSeed
	nextRuntime := s.nextRuntime
	committed := s.committed
	s.mu.Unlock()

	want, _ := committed.Sample(nextRuntime)
	test.That(t, nextSeed.X, test.ShouldAlmostEqual, want.X, interpTol)
	test.That(t, nextSeed.Y, test.ShouldAlmostEqual, want.Y, interpTol)
	test.That(t, nextSeed.Theta, test.ShouldAlmostEqual, want.Theta, interpTol)
}

func TestInvariantSeedUsedForPlanningResamplesCommitted(t *testing.T) {
	s, mockClock := newTestSupervisor(t)
	s.OnOdometry(spatialmath.State{})
	s.mu.Lock()
	s.goal = spatialmath.State{X: 5, Y: 0}
	s.moveType = action.Drive
	s.behaviorKind = behaviors.Car
	s.mu.Unlock()

	ok := s.treeChain(context.Background())
	test.That(t, ok, test.ShouldBeTrue)

	// Let wall-clock time pass since the first commit, and stash a
	// wildly-stale next_seed to simulate what a previous iteration left
	// behind. The second chain iteration must plan from the committed
	// segment resampled at the runtime it actually chooses, not from
	// this stale value directly.
	mockClock.Add(50 * time.Millisecond)
	s.mu.Lock()
	stale := spatialmath.State{X: -1000, Y: -1000}
	s.nextSeed = stale
	s.mu.Unlock()

	ok = s.treeChain(context.Background())
	test.That(t, ok, test.ShouldBeTrue)

	s.mu.Lock()
	committedAfter := s.committed
	s.mu.Unlock()

	test.That(t, committedAfter.Seed.X, test.ShouldNotEqual, stale.X)
}

func TestInvariantSOTwoErf(t *testing.T) {
	goal := spatialmath.State{X: 1, Y: 2, Theta: 1.0}
	x := spatialmath.State{X: 1, Y: 2, Theta: 1.0 - 0.3}
	e := spatialmath.ERF(goal, x)
	test.That(t, e.X, test.ShouldEqual, 0.0)
	test.That(t, e.Y, test.ShouldEqual, 0.0)
	test.That(t, e.Theta, test.ShouldAlmostEqual, 0.3, 1e-9)
}
