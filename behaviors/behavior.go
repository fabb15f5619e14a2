// Package behaviors implements the car/boat/escape planning regimes the
// supervisor chooses between. The real dynamics and cost models backing a
// given vehicle are installed by the caller; what the supervisor relies on
// is the Behavior interface's contract (GenSS, Dynamics, LQR) and each
// Kind's identity.
package behaviors

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mattlangford/lqrrt/spatialmath"
)

// Kind tags which planning regime a Behavior implements.
type Kind int

const (
	Car Kind = iota
	Boat
	Escape
)

func (k Kind) String() string {
	switch k {
	case Car:
		return "car"
	case Boat:
		return "boat"
	case Escape:
		return "escape"
	default:
		return "unknown"
	}
}

// SampleSpace is an axis-aligned rectangle in world coordinates
// restricting where the RRT may draw new samples.
type SampleSpace struct {
	XMin, XMax, YMin, YMax float64
}

// Push is the per-edge world-unit margin GenSS adds beyond the raw
// bounding box of seed and goal: (xmin, xmax, ymin, ymax).
type Push [4]float64

// Behavior is the per-regime contract the supervisor plans against. The
// planner handle itself lives in package planner; a Behavior only needs to
// know how to shape a sample space and simulate/linearize its own dynamics.
type Behavior interface {
	Kind() Kind

	// GenSS returns the axis-aligned sample space rectangle around seed
	// and goal, expanded by push on each edge.
	GenSS(seed, goal spatialmath.State, push Push) SampleSpace

	// Dynamics advances x by dt under effort u.
	Dynamics(x spatialmath.State, u spatialmath.Effort, dt float64) spatialmath.State

	// LQR returns the cost-to-go matrix S and the feedback gain K for the
	// linearization around (x, u). K has 3 rows (matching Effort) and 6
	// columns (matching State).
	LQR(x spatialmath.State, u spatialmath.Effort) (S, K *mat.Dense)
}

// params bundles the physical constants a Dynamics/LQR implementation
// needs. Real per-vehicle tuning lives in config.BehaviorParams.
type params struct {
	mass, inertia float64
	// sidewaysLocked zeroes VY every step, modeling a nonholonomic
	// car-like vehicle that cannot slip sideways.
	sidewaysLocked bool
	// explorationMargin multiplies the base GenSS margin; escape uses a
	// larger value to favor maximal exploration.
	explorationMargin float64
}

type behavior struct {
	kind Kind
	p    params
}

// NewCar returns the car behavior: nonholonomic (no sideways slip), used
// when driving far from the goal.
func NewCar() Behavior {
	return &behavior{kind: Car, p: params{mass: 50, inertia: 10, sidewaysLocked: true, explorationMargin: 1.0}}
}

// NewBoat returns the boat behavior: full body-frame thruster authority,
// used when driving close to the goal or skidding.
func NewBoat() Behavior {
	return &behavior{kind: Boat, p: params{mass: 50, inertia: 10, sidewaysLocked: false, explorationMargin: 1.0}}
}

// NewEscape returns the escape behavior: same dynamics as boat but a
// wider exploration margin, used when stuck or evading an imminent
// collision.
func NewEscape() Behavior {
	return &behavior{kind: Escape, p: params{mass: 50, inertia: 10, sidewaysLocked: false, explorationMargin: 3.0}}
}

func (b *behavior) Kind() Kind { return b.kind }

const baseSSMargin = 1.0 // world units; base slack GenSS adds before push/margin scaling.

func (b *behavior) GenSS(seed, goal spatialmath.State, push Push) SampleSpace {
	margin := baseSSMargin * b.p.explorationMargin
	return SampleSpace{
		XMin: math.Min(seed.X, goal.X) - margin - push[0],
		XMax: math.Max(seed.X, goal.X) + margin + push[1],
		YMin: math.Min(seed.Y, goal.Y) - margin - push[2],
		YMax: math.Max(seed.Y, goal.Y) + margin + push[3],
	}
}

func (b *behavior) Dynamics(x spatialmath.State, u spatialmath.Effort, dt float64) spatialmath.State {
	c, s := math.Cos(x.Theta), math.Sin(x.Theta)
	xdot := x.VX*c - x.VY*s
	ydot := x.VX*s + x.VY*c

	vy := x.VY + (u.FY/b.p.mass)*dt
	if b.p.sidewaysLocked {
		vy = 0
	}

	return spatialmath.State{
		X:     x.X + xdot*dt,
		Y:     x.Y + ydot*dt,
		Theta: wrapToPi(x.Theta + x.Omega*dt),
		VX:    x.VX + (u.FX/b.p.mass)*dt,
		VY:    vy,
		Omega: x.Omega + (u.TauZ/b.p.inertia)*dt,
	}
}

func wrapToPi(theta float64) float64 {
	return spatialmath.AngleDiff(theta, 0)
}

// LQR returns a fixed diagonal feedback gain mapping state error to
// effort: K*e gives a restoring effort proportional to each error
// component, with a zero column for the heading error on the boat's
// force axes so fixing heading doesn't fight translation.
func (b *behavior) LQR(x spatialmath.State, u spatialmath.Effort) (S, K *mat.Dense) {
	k := mat.NewDense(3, 6, []float64{
		b.p.mass, 0, 0, 1, 0, 0,
		0, b.p.mass, 0, 0, 1, 0,
		0, 0, b.p.inertia, 0, 0, 1,
	})
	s := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		s.Set(i, i, 1)
	}
	return s, k
}
