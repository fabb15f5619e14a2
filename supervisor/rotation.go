package supervisor

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/ogrid"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// rotationMove simulates a rotate-in-place pre-move using boat's own
// dynamics and LQR gain, stepping at dt until the heading error is
// within tol of h. If the simulated pose becomes infeasible partway
// through, the trajectory is truncated to fpr of its length and success
// is false, so the caller can downgrade the move type.
func rotationMove(
	boat behaviors.Behavior,
	grid *ogrid.Grid,
	threshold int16,
	vps []r3.Vector,
	x spatialmath.State,
	h, tol, dt, fpr float64,
) (xSeq []spatialmath.State, uSeq []spatialmath.Effort, duration float64, success bool) {
	goal := x
	goal.Theta = h

	var t float64
	var u spatialmath.Effort
	cur := x

	for {
		if len(xSeq) > 0 && !isFeasible(grid, threshold, vps, cur) {
			portion := int(fpr * float64(len(xSeq)))
			return xSeq[:portion], uSeq[:portion], t - float64(portion)*dt, false
		}
		xSeq = append(xSeq, cur)
		uSeq = append(uSeq, u)

		e := spatialmath.ERF(goal, cur)
		if math.Abs(e.Theta) <= tol {
			return xSeq, uSeq, t, true
		}

		_, k := boat.LQR(cur, u)
		earr := e.Array()
		eVec := mat.NewVecDense(6, earr[:])
		uVec := mat.NewVecDense(3, nil)
		uVec.MulVec(k, eVec)
		u = spatialmath.Effort{
			FX:   3 * uVec.AtVec(0),
			FY:   3 * uVec.AtVec(1),
			TauZ: 3 * uVec.AtVec(2),
		}
		cur = boat.Dynamics(cur, u, dt)
		t += dt
	}
}
