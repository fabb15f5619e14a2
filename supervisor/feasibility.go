package supervisor

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/mattlangford/lqrrt/ogrid"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// isFeasible tests a (state, effort) pair for collision against grid. A
// nil grid means no obstacle information is available, so everything is
// feasible. vps is the body-frame footprint point cloud; an out-of-bounds
// pixel lookup is treated as infeasible, never as an error.
func isFeasible(grid *ogrid.Grid, threshold int16, vps []r3.Vector, x spatialmath.State) bool {
	if grid == nil {
		return true
	}
	c, s := math.Cos(x.Theta), math.Sin(x.Theta)
	for _, p := range vps {
		wx := x.X + p.X*c - p.Y*s
		wy := x.Y + p.X*s + p.Y*c
		row, col := grid.WorldToPixel(r3.Vector{X: wx, Y: wy})
		if !grid.InBounds(row, col) {
			return false
		}
		if grid.Occupied(row, col, threshold) {
			return false
		}
	}
	return true
}

// reevaluation is the outcome of a call to reevaluatePlan.
type reevaluation struct {
	// IssueFound is true when a finite time_till_issue was recorded.
	IssueFound bool
	// TimeTillIssue is only meaningful when IssueFound is true.
	TimeTillIssue float64
	// EscapeRecovered is true when the escape-to-drive recovery sweep
	// succeeded: the caller should force move_type = drive and clear
	// stuck state.
	EscapeRecovered bool
}

// reevaluatePlan re-verifies the committed segment against grid. now is
// the wall-clock time the grid update was observed at. If the committed
// behavior is escape, it also checks whether a straight-line sweep from
// the current reference to goal has become fully feasible, signaling
// recovery back to drive.
func reevaluatePlan(
	seg *Segment,
	grid *ogrid.Grid,
	threshold int16,
	vps []r3.Vector,
	vpsSpacing float64,
	goal spatialmath.State,
	now float64,
	isEscape bool,
) reevaluation {
	if seg == nil {
		return reevaluation{}
	}
	elapsed := now
	startIdx := seg.iterAt(elapsed)
	if startIdx < 0 {
		startIdx = 0
	}
	for i := startIdx; i < len(seg.XSeq); i++ {
		probe := seg.XSeq[i]
		probe.VX, probe.VY, probe.Omega = 0, 0, 0
		if !isFeasible(grid, threshold, vps, probe) {
			return reevaluation{IssueFound: true, TimeTillIssue: float64(i-startIdx) * seg.DT}
		}
	}

	if isEscape {
		cur, _ := seg.Sample(elapsed)
		if sweepFeasible(grid, threshold, vps, vpsSpacing, cur, goal) {
			return reevaluation{EscapeRecovered: true}
		}
	}

	return reevaluation{}
}

// sweepFeasible samples the straight line from a to b every vpsSpacing
// world units (heading held at a's heading, zero velocity) and reports
// whether every sample is feasible.
func sweepFeasible(grid *ogrid.Grid, threshold int16, vps []r3.Vector, vpsSpacing float64, a, b spatialmath.State) bool {
	delta := b.Point().Sub(a.Point())
	dist := delta.Norm()
	if dist < 1e-9 {
		return isFeasible(grid, threshold, vps, a)
	}
	dir := delta.Normalize()
	steps := int(dist/vpsSpacing) + 1
	for i := 0; i <= steps; i++ {
		t := math.Min(float64(i)*vpsSpacing, dist)
		p := a.Point().Add(dir.Mul(t))
		probe := spatialmath.State{X: p.X, Y: p.Y, Theta: a.Theta}
		if !isFeasible(grid, threshold, vps, probe) {
			return false
		}
	}
	return true
}
