// Package spatialmath holds the planar state/effort vectors and the SO(2)
// angle-error math the rest of the supervisor is built on.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// State is the 6-scalar planar state vector: pose (X, Y, Theta) with
// Theta measured on SO(2) in (-pi, pi], plus body-frame velocities
// (VX, VY) and yaw rate Omega.
type State struct {
	X, Y, Theta    float64
	VX, VY, Omega  float64
}

// Effort is the 3-scalar body-frame effort vector: forces (FX, FY) and
// torque TauZ.
type Effort struct {
	FX, FY, TauZ float64
}

// Point returns the planar position as an r3.Vector with Z=0, for
// interoperating with the geo-aware parts of the codebase (grid
// coordinates, footprint transforms).
func (s State) Point() r3.Vector {
	return r3.Vector{X: s.X, Y: s.Y, Z: 0}
}

// Sub returns the componentwise difference s - other, with the heading
// component taken as the raw difference (callers that need the SO(2)
// error should use ERF instead).
func (s State) Sub(other State) State {
	return State{
		X: s.X - other.X, Y: s.Y - other.Y, Theta: s.Theta - other.Theta,
		VX: s.VX - other.VX, VY: s.VY - other.VY, Omega: s.Omega - other.Omega,
	}
}

// Array returns the state as a fixed 6-vector, matching the ordering used
// by behaviors.Dynamics and the rotation-move simulator.
func (s State) Array() [6]float64 {
	return [6]float64{s.X, s.Y, s.Theta, s.VX, s.VY, s.Omega}
}

// FromArray builds a State from a 6-vector in the same order as Array.
func FromArray(a [6]float64) State {
	return State{X: a[0], Y: a[1], Theta: a[2], VX: a[3], VY: a[4], Omega: a[5]}
}

// AbsLessEqual reports whether every component of s is within the
// matching component of tol in absolute value. tol must have 6 entries in
// the same order as Array.
func (s State) AbsLessEqual(tol [6]float64) bool {
	a := s.Array()
	for i := range a {
		if math.Abs(a[i]) > tol[i] {
			return false
		}
	}
	return true
}

// AngleDiff takes the angle difference aGoal - a properly on SO(2),
// returning a value in (-pi, pi]. It is computed via the sine/cosine of
// each angle rather than a naive subtraction so it is well-behaved
// across the +-pi wrap.
func AngleDiff(aGoal, a float64) float64 {
	c, s := math.Cos(a), math.Sin(a)
	cg, sg := math.Cos(aGoal), math.Sin(aGoal)
	d := math.Atan2(sg*c-cg*s, cg*c+sg*s)
	if d <= -math.Pi {
		d = math.Pi
	}
	return d
}

// ERF ("error function") returns the error between two states, taking the
// heading component properly on SO(2) via AngleDiff. The translational and
// velocity components are a plain subtraction.
func ERF(goal, x State) State {
	e := goal.Sub(x)
	e.Theta = AngleDiff(goal.Theta, x.Theta)
	return e
}
