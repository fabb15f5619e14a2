// Package planner specifies the external LQR-RRT collaborator's
// interface. The RRT tree expansion and LQR cost-to-go live in a
// separate planning library; this package only defines the contract the
// supervisor drives, plus (in fake.go) a deterministic stand-in used by
// tests and local simulation.
package planner

import (
	"context"
	"time"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// ErrorFunc computes the error between a goal and current state, taking
// the heading error on SO(2). Installed once via SetSystem.
type ErrorFunc func(goal, x spatialmath.State) spatialmath.State

// FeasibilityFunc tests a (state, effort) pair for collision against the
// current occupancy grid. Installed once via SetFeasibilityFunction.
type FeasibilityFunc func(x spatialmath.State, u spatialmath.Effort) bool

// ClockFunc returns the current wall-clock time. Installed once via
// SetRuntime.
type ClockFunc func() time.Time

// GoalBias is the per-dimension sampling bias vector, in state order
// (X, Y, Theta, VX, VY, Omega).
type GoalBias [6]float64

// Planner is the external LQR-RRT collaborator's interface. One Planner
// exists per behaviors.Behavior; the supervisor owns no others.
type Planner interface {
	SetSystem(erf ErrorFunc)
	SetRuntime(clock ClockFunc)
	SetFeasibilityFunction(f FeasibilityFunc)
	SetGoal(goal spatialmath.State)

	// KillUpdate requests that the in-progress (or next) UpdatePlan abort
	// and return (false, nil) as soon as it next checks the cancellation
	// flag. Idempotent.
	KillUpdate()
	// Unkill clears a prior KillUpdate request. Must be called before the
	// next UpdatePlan.
	Unkill()

	// UpdatePlan runs one short-horizon plan from x0 toward guide within
	// sample_space, biased by goalBias, targeting specificTime seconds of
	// horizon (if specificTime <= 0, the planner picks its own horizon).
	// Returns true on a clean completion, false if killed mid-update.
	UpdatePlan(
		ctx context.Context,
		x0 spatialmath.State,
		sampleSpace behaviors.SampleSpace,
		goalBias GoalBias,
		guide spatialmath.State,
		specificTime float64,
	) (bool, error)

	// The following are only meaningful after a clean UpdatePlan; callers
	// must not read them while busy or after a killed update.
	XSeq() []spatialmath.State
	USeq() []spatialmath.Effort
	T() float64
	TreeSize() int
	TreeState(i int) spatialmath.State
	PlanReachedGoal() bool

	// GetState and GetEffort linearly interpolate the most recent clean
	// plan at parameter t seconds, clamped to the plan's endpoints.
	GetState(t float64) spatialmath.State
	GetEffort(t float64) spatialmath.Effort
}
