package planner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// defaultHorizonSteps bounds a plan when UpdatePlan is called with
// specificTime <= 0.
const defaultHorizonSteps = 20

// SimPlanner is a deterministic stand-in for the real LQR-RRT collaborator.
// It builds a straight-line trajectory from x0 toward guide in discrete
// dt-sized steps, checking each candidate state with the installed
// feasibility function and truncating the plan at the first infeasible
// step. It is not a search: it never samples outside the line between
// x0 and guide, and its "tree" is simply the accepted states, one node
// per step. This is enough to drive the supervisor's state machine in
// tests and local simulation without a real planning library installed.
type SimPlanner struct {
	dt float64

	erf      ErrorFunc
	clock    ClockFunc
	feasible FeasibilityFunc
	goal     spatialmath.State

	killed atomic.Bool

	xSeq         []spatialmath.State
	uSeq         []spatialmath.Effort
	treeStates   []spatialmath.State
	reachedGoal  bool
	planDuration float64
}

// NewSimPlanner returns a SimPlanner stepping at the given control period.
func NewSimPlanner(dt float64) *SimPlanner {
	return &SimPlanner{dt: dt, clock: time.Now}
}

func (p *SimPlanner) SetSystem(erf ErrorFunc)                    { p.erf = erf }
func (p *SimPlanner) SetRuntime(clock ClockFunc)                 { p.clock = clock }
func (p *SimPlanner) SetFeasibilityFunction(f FeasibilityFunc)   { p.feasible = f }
func (p *SimPlanner) SetGoal(goal spatialmath.State)             { p.goal = goal }
func (p *SimPlanner) KillUpdate()                                { p.killed.Store(true) }
func (p *SimPlanner) Unkill()                                    { p.killed.Store(false) }

func (p *SimPlanner) UpdatePlan(
	ctx context.Context,
	x0 spatialmath.State,
	sampleSpace behaviors.SampleSpace,
	goalBias GoalBias,
	guide spatialmath.State,
	specificTime float64,
) (bool, error) {
	steps := defaultHorizonSteps
	if specificTime > 0 {
		steps = int(specificTime/p.dt + 0.5)
		if steps < 1 {
			steps = 1
		}
	}

	xSeq := make([]spatialmath.State, 0, steps+1)
	uSeq := make([]spatialmath.Effort, 0, steps)
	xSeq = append(xSeq, x0)

	cur := x0
	reached := false
	for i := 0; i < steps; i++ {
		if p.killed.Load() {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		err := p.erf(guide, cur)
		dist := err.Point().Norm()
		if dist < 1e-6 {
			reached = true
			break
		}

		u := spatialmath.Effort{
			FX:   clampMagnitude(err.X, 50),
			FY:   clampMagnitude(err.Y, 50),
			TauZ: clampMagnitude(err.Theta, 10),
		}

		candidate := integrate(cur, u, p.dt)
		if p.feasible != nil && !p.feasible(candidate, u) {
			break
		}
		cur = candidate
		xSeq = append(xSeq, cur)
		uSeq = append(uSeq, u)
	}

	p.xSeq = xSeq
	p.uSeq = uSeq
	p.treeStates = xSeq
	p.planDuration = float64(len(uSeq)) * p.dt
	p.reachedGoal = reached || p.erf(guide, cur).Point().Norm() < 0.25

	return true, nil
}

func integrate(x spatialmath.State, u spatialmath.Effort, dt float64) spatialmath.State {
	return spatialmath.State{
		X:     x.X + u.FX*dt*0.02,
		Y:     x.Y + u.FY*dt*0.02,
		Theta: spatialmath.AngleDiff(x.Theta+u.TauZ*dt*0.02, 0),
		VX:    x.VX,
		VY:    x.VY,
		Omega: x.Omega,
	}
}

func clampMagnitude(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}

func (p *SimPlanner) XSeq() []spatialmath.State    { return p.xSeq }
func (p *SimPlanner) USeq() []spatialmath.Effort   { return p.uSeq }
func (p *SimPlanner) T() float64                   { return p.planDuration }
func (p *SimPlanner) TreeSize() int                { return len(p.treeStates) }
func (p *SimPlanner) TreeState(i int) spatialmath.State { return p.treeStates[i] }
func (p *SimPlanner) PlanReachedGoal() bool        { return p.reachedGoal }

// GetState linearly interpolates the most recent clean plan at t seconds,
// clamped to the plan's endpoints.
func (p *SimPlanner) GetState(t float64) spatialmath.State {
	if len(p.xSeq) == 0 {
		return spatialmath.State{}
	}
	if t <= 0 {
		return p.xSeq[0]
	}
	idx := t / p.dt
	lo := int(idx)
	if lo >= len(p.xSeq)-1 {
		return p.xSeq[len(p.xSeq)-1]
	}
	frac := idx - float64(lo)
	a, b := p.xSeq[lo], p.xSeq[lo+1]
	return lerpState(a, b, frac)
}

// GetEffort linearly interpolates the most recent clean plan's effort at
// t seconds, clamped to the plan's endpoints. There is one fewer effort
// sample than state sample; t beyond the last effort returns the last.
func (p *SimPlanner) GetEffort(t float64) spatialmath.Effort {
	if len(p.uSeq) == 0 {
		return spatialmath.Effort{}
	}
	if t <= 0 {
		return p.uSeq[0]
	}
	idx := t / p.dt
	lo := int(idx)
	if lo >= len(p.uSeq)-1 {
		return p.uSeq[len(p.uSeq)-1]
	}
	frac := idx - float64(lo)
	a, b := p.uSeq[lo], p.uSeq[lo+1]
	return spatialmath.Effort{
		FX:   a.FX + (b.FX-a.FX)*frac,
		FY:   a.FY + (b.FY-a.FY)*frac,
		TauZ: a.TauZ + (b.TauZ-a.TauZ)*frac,
	}
}

func lerpState(a, b spatialmath.State, frac float64) spatialmath.State {
	aa, ba := a.Array(), b.Array()
	var out [6]float64
	for i := range out {
		out[i] = aa[i] + (ba[i]-aa[i])*frac
	}
	result := spatialmath.FromArray(out)
	result.Theta = a.Theta + spatialmath.AngleDiff(b.Theta, a.Theta)*frac
	return result
}

var _ Planner = (*SimPlanner)(nil)
