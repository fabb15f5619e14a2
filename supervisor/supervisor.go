// Package supervisor implements the replanning supervisor: the state
// machine and algorithms that choose a planning behavior, shape the
// exploration region, chain successive short plans, continuously
// re-verify the committed trajectory against new occupancy-grid data,
// and coordinate kill/restart of in-progress planner updates so a
// tracked vehicle always has a valid reference to follow.
package supervisor

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"

	"github.com/mattlangford/lqrrt/action"
	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/config"
	"github.com/mattlangford/lqrrt/logging"
	"github.com/mattlangford/lqrrt/ogrid"
	"github.com/mattlangford/lqrrt/planner"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// interpTol is the tolerance used by tests asserting get_ref is faithful
// to the committed sequence between sample points.
const interpTol = 1e-9

// Supervisor drives a single vehicle through one Move at a time,
// chaining short-horizon plans from one of three behaviors and
// continuously re-verifying them against the latest occupancy grid.
type Supervisor struct {
	logger logging.Logger
	clk    clock.Clock
	cfg    config.Params

	behaviorsByKind map[behaviors.Kind]behaviors.Behavior
	plannersByKind  map[behaviors.Kind]planner.Planner

	outputs action.Outputs

	mu         sync.Mutex
	haveOdom   bool
	state      spatialmath.State
	tracking   bool
	grid       *ogrid.Grid
	committed  *Segment
	nextSeed   spatialmath.State
	nextRuntime float64
	stuck       bool
	stuckCount  int
	behaviorKind behaviors.Kind
	moveType     action.MoveType
	goal         spatialmath.State
	focus        *r3.Vector
	timeTillIssue *float64

	busy atomic.Bool
}

// New returns a Supervisor wired against the given behaviors/planners
// (one planner handle per behavior, matching the external planner
// contract's per-behavior ownership) and configuration.
func New(
	logger logging.Logger,
	clk clock.Clock,
	cfg config.Params,
	car, boat, escape behaviors.Behavior,
	carPlanner, boatPlanner, escapePlanner planner.Planner,
	outputs action.Outputs,
) *Supervisor {
	s := &Supervisor{
		logger: logger,
		clk:    clk,
		cfg:    cfg,
		behaviorsByKind: map[behaviors.Kind]behaviors.Behavior{
			behaviors.Car: car, behaviors.Boat: boat, behaviors.Escape: escape,
		},
		plannersByKind: map[behaviors.Kind]planner.Planner{
			behaviors.Car: carPlanner, behaviors.Boat: boatPlanner, behaviors.Escape: escapePlanner,
		},
		outputs: outputs,
	}
	for _, p := range s.plannersByKind {
		p.SetSystem(planner.ErrorFunc(spatialmath.ERF))
		p.SetRuntime(planner.ClockFunc(clk.Now))
		p.SetFeasibilityFunction(s.feasibilityFunc())
	}
	return s
}

func (s *Supervisor) feasibilityFunc() planner.FeasibilityFunc {
	return func(x spatialmath.State, u spatialmath.Effort) bool {
		s.mu.Lock()
		grid := s.grid
		kind := s.behaviorKind
		s.mu.Unlock()
		return isFeasible(grid, s.cfg.OgridThreshold, s.bpFor(kind).VPS, x)
	}
}

// sharedParams returns the parameter set used for cross-behavior
// decisions (free_radius, basic_duration, real_tol, stuck_threshold,
// dt used for timer pacing): the boat params, treated as the canonical
// set the way a single shared configuration namespace would be.
func (s *Supervisor) sharedParams() config.BehaviorParams {
	return s.cfg.Boat
}

func (s *Supervisor) bpFor(kind behaviors.Kind) config.BehaviorParams {
	switch kind {
	case behaviors.Boat:
		return s.cfg.Boat
	case behaviors.Escape:
		return s.cfg.Escape
	default:
		return s.cfg.Car
	}
}

// OnOdometry records a new vehicle state and recomputes the tracking
// flag against the committed segment's reference at the current time.
func (s *Supervisor) OnOdometry(x spatialmath.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haveOdom = true
	s.state = x
	if s.committed == nil {
		return
	}
	elapsed := s.clk.Now().Sub(s.committed.UpdateTime).Seconds()
	ref, _ := s.committed.Sample(elapsed)
	err := spatialmath.ERF(ref, x)
	tol := scaleTol(s.sharedParams().RealTol, 2)
	s.tracking = err.AbsLessEqual(tol)
}

func scaleTol(tol [6]float64, factor float64) [6]float64 {
	var out [6]float64
	for i, t := range tol {
		out[i] = t * factor
	}
	return out
}

// OnGrid installs a new occupancy grid and re-verifies the committed
// plan against it.
func (s *Supervisor) OnGrid(g *ogrid.Grid) {
	s.mu.Lock()
	s.grid = g
	committed := s.committed
	behaviorKind := s.behaviorKind
	goal := s.goal
	var now float64
	if committed != nil {
		now = s.clk.Now().Sub(committed.UpdateTime).Seconds()
	}
	alreadyPending := s.timeTillIssue != nil
	s.mu.Unlock()

	if alreadyPending || committed == nil {
		return
	}

	bp := s.bpFor(behaviorKind)
	result := reevaluatePlan(committed, g, s.cfg.OgridThreshold, bp.VPS, bp.VPSSpacing, goal, now, behaviorKind == behaviors.Escape)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case result.IssueFound:
		t := result.TimeTillIssue
		s.timeTillIssue = &t
		s.killAll()
	case result.EscapeRecovered:
		s.timeTillIssue = nil
		s.moveType = action.Drive
		s.stuck = false
		s.stuckCount = 0
		s.killAll()
	}
}

func (s *Supervisor) killAll() {
	for _, p := range s.plannersByKind {
		p.KillUpdate()
	}
}

func (s *Supervisor) unkillAll() {
	for _, p := range s.plannersByKind {
		p.Unkill()
	}
}

// Move runs req to completion (or failure, or preemption via ctx),
// reporting feedback on fb. It implements action.Mover.
func (s *Supervisor) Move(ctx context.Context, req action.Request, fb chan<- action.Feedback) action.Result {
	s.mu.Lock()
	if !s.haveOdom {
		s.mu.Unlock()
		return action.Result{Err: action.ErrOdom}
	}
	current := s.state
	s.mu.Unlock()

	switch req.MoveType {
	case action.Hold, action.Drive, action.Skid:
	case action.Circle:
		return action.Result{Err: action.ErrPatience}
	default:
		return action.Result{Err: action.ErrMoveType}
	}

	goal := req.Goal
	if req.MoveType == action.Skid && req.Focus != nil {
		goal = rotateGoalToFocus(goal, *req.Focus)
	}

	s.mu.Lock()
	s.goal = goal
	s.moveType = req.MoveType
	s.focus = req.Focus
	s.nextSeed = current
	s.nextRuntime = 0
	s.stuck = false
	s.stuckCount = 0
	s.timeTillIssue = nil
	s.mu.Unlock()
	s.outputs.PublishGoal(goal)
	s.outputs.PublishFocus(req.Focus)

	if req.MoveType == action.Hold {
		s.mu.Lock()
		s.committed = constantSegment(current, s.sharedParams().DT, s.clk.Now())
		s.mu.Unlock()
		return action.Result{}
	}

	if req.MoveType == action.Drive {
		bp := s.cfg.Boat
		headingErr := math.Abs(spatialmath.AngleDiff(headingTo(current, goal), current.Theta))
		dist := goal.Point().Sub(current.Point()).Norm()
		if headingErr > bp.PointshootTol && dist > bp.FreeRadius {
			xSeq, uSeq, duration, ok := rotationMove(
				s.behaviorsByKind[behaviors.Boat],
				s.currentGrid(), s.cfg.OgridThreshold, bp.VPS,
				current, headingTo(current, goal), bp.PointshootTol, bp.DT, bp.FPR,
			)
			s.commitRotation(xSeq, uSeq, duration)
			if !ok {
				s.mu.Lock()
				s.moveType = action.Skid
				s.mu.Unlock()
			}
			if len(xSeq) > 0 {
				s.mu.Lock()
				s.nextSeed = xSeq[len(xSeq)-1]
				// next_runtime must reflect how long the rotation actually
				// took, clipped to [basic_duration, one full turn at the
				// angular velocity limit], so the first post-rotation chain
				// iteration doesn't always bump to basic_duration outright.
				shared := s.sharedParams()
				maxTurnTime := 2 * math.Pi / bp.VelmaxPos
				s.nextRuntime = clip(duration, shared.BasicDuration, maxTurnTime)
				s.mu.Unlock()
			}
		}
	}

	return s.chainUntilDone(ctx, fb)
}

func (s *Supervisor) currentGrid() *ogrid.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid
}

func (s *Supervisor) commitRotation(xSeq []spatialmath.State, uSeq []spatialmath.Effort, duration float64) {
	if len(xSeq) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = &Segment{
		XSeq: xSeq, USeq: uSeq, DT: s.cfg.Boat.DT, Horizon: duration,
		TreeSize: len(xSeq), Seed: xSeq[0], Behavior: behaviors.Boat, UpdateTime: s.clk.Now(),
	}
}

func headingTo(from, to spatialmath.State) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X)
}

// rotateGoalToFocus rotates goal's heading to look from goal toward
// focus. A focus with Z == 0 leaves goal untouched (no focus).
func rotateGoalToFocus(goal spatialmath.State, focus r3.Vector) spatialmath.State {
	if focus.Z == 0 {
		return goal
	}
	out := goal
	out.Theta = math.Atan2(focus.Y-goal.Y, focus.X-goal.X)
	return out
}

// chainUntilDone repeatedly runs tree_chain until the goal is reached,
// the move is aborted, or ctx is canceled (preemption).
func (s *Supervisor) chainUntilDone(ctx context.Context, fb chan<- action.Feedback) action.Result {
	for {
		select {
		case <-ctx.Done():
			s.killAll()
			return action.Result{Err: action.ErrKilled}
		default:
		}

		s.mu.Lock()
		cur := s.state
		goal := s.goal
		s.mu.Unlock()

		tol := s.sharedParams().RealTol
		if spatialmath.ERF(goal, cur).AbsLessEqual(tol) {
			s.mu.Lock()
			s.committed = constantSegment(goal, s.sharedParams().DT, s.clk.Now())
			s.mu.Unlock()
			return action.Result{}
		}

		clean := s.treeChain(ctx)
		if f, ok := s.currentFeedback(); ok && clean {
			select {
			case fb <- f:
			default:
			}
		}

		s.mu.Lock()
		wait := s.nextRuntime
		s.mu.Unlock()
		if wait <= 0 {
			wait = s.sharedParams().DT
		}
		t := s.clk.Timer(time.Duration(wait * float64(time.Second)))
		select {
		case <-ctx.Done():
			t.Stop()
			s.killAll()
			return action.Result{Err: action.ErrKilled}
		case <-t.C:
		}
	}
}

func (s *Supervisor) currentFeedback() (action.Feedback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed == nil {
		return action.Feedback{}, false
	}
	elapsed := s.nextRuntime - s.clk.Now().Sub(s.committed.UpdateTime).Seconds()
	return action.Feedback{
		BehaviorName:       s.behaviorKind.String(),
		TreeSize:           s.committed.TreeSize,
		ReachedGoal:        s.committed.ReachedGoal,
		Tracking:           s.tracking,
		TimeUntilNextChain: time.Duration(elapsed * float64(time.Second)),
	}, true
}

// treeChain is one chaining iteration: decide this iteration's seed,
// runtime, behavior and exploration parameters, invoke the external
// planner, and (on a clean update) commit the result.
func (s *Supervisor) treeChain(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	defer s.busy.Store(false)
	defer s.unkillAll()

	s.mu.Lock()
	issue := s.timeTillIssue
	stuck := s.stuck
	nextRuntime := s.nextRuntime
	nextSeed := s.nextSeed
	committed := s.committed
	goal := s.goal
	moveType := s.moveType
	basicDuration := s.sharedParams().BasicDuration
	var elapsedSinceCommit float64
	if committed != nil {
		elapsedSinceCommit = s.clk.Now().Sub(committed.UpdateTime).Seconds()
	}
	s.mu.Unlock()

	// resample advances the seed along the committed segment to the point
	// it will actually be at once this iteration's runtime elapses,
	// rather than reusing the previous iteration's next_seed (which was
	// sampled at a possibly different runtime).
	resample := func(runtime float64) spatialmath.State {
		if committed == nil {
			return nextSeed
		}
		x, _ := committed.Sample(runtime + elapsedSinceCommit)
		return x
	}

	var runtime float64
	var seed spatialmath.State
	var forcedEscape bool

	switch {
	case issue == nil:
		if nextRuntime < basicDuration && !stuck {
			runtime = basicDuration
		} else if stuck {
			runtime = 0
		} else {
			runtime = nextRuntime
		}
		seed = resample(runtime)
	case *issue > 2*basicDuration:
		runtime = basicDuration
		seed = resample(runtime)
	default:
		runtime = *issue / 2
		seed = resample(runtime)
		forcedEscape = true
	}

	var kind behaviors.Kind
	var err error
	if forcedEscape {
		kind = behaviors.Escape
	} else {
		dist := goal.Point().Sub(seed.Point()).Norm()
		kind, err = selectBehavior(stuck, moveType, dist, s.sharedParams().FreeRadius)
		if err != nil {
			s.logger.Errorf("behavior selector: %v", err)
			return false
		}
	}

	beh := s.behaviorsByKind[kind]
	escapeBeh := s.behaviorsByKind[behaviors.Escape]
	bp := s.bpFor(kind)

	var goalBias [6]float64
	var ss behaviors.SampleSpace
	var guide spatialmath.State
	if forcedEscape {
		goalBias = [6]float64{}
		ss = escapeBeh.GenSS(seed, goal, behaviors.Push{})
		guide = goal
	} else {
		goalBias, ss, guide = selectExploration(kind, beh, escapeBeh, seed, goal, s.currentGrid(), s.cfg.OgridThreshold, bp)
	}

	s.outputs.PublishSampleSpace(ss)
	s.outputs.PublishGuide(guide)

	p := s.plannersByKind[kind]
	p.SetGoal(goal)
	ok, plannerErr := p.UpdatePlan(ctx, seed, ss, planner.GoalBias(goalBias), guide, runtime)
	if plannerErr != nil {
		s.logger.Errorf("update_plan: %v", plannerErr)
	}
	if !ok {
		return false
	}

	shared := s.sharedParams()
	treeSize := p.TreeSize()
	oddlySmall := treeSize <= shared.StuckThreshold || p.T() <= bp.DT
	distFromGoal := goal.Point().Sub(seed.Point()).Norm()

	s.mu.Lock()
	defer s.mu.Unlock()

	if oddlySmall && !p.PlanReachedGoal() && distFromGoal > shared.FreeRadius {
		s.stuckCount++
		if s.stuckCount >= shared.StuckThreshold {
			s.stuck = true
		}
	} else {
		s.stuck = false
		s.stuckCount = 0
	}

	xSeq := p.XSeq()
	treeStates := make([]spatialmath.State, p.TreeSize())
	for i := range treeStates {
		treeStates[i] = p.TreeState(i)
	}

	s.committed = &Segment{
		XSeq: xSeq, USeq: p.USeq(), DT: bp.DT, Horizon: p.T(),
		TreeSize: treeSize, ReachedGoal: p.PlanReachedGoal(),
		Seed: seed, Behavior: kind, UpdateTime: s.clk.Now(),
	}
	s.behaviorKind = kind
	s.outputs.PublishTree(treeStates)
	s.outputs.PublishPath(xSeq)

	s.nextRuntime = runtime
	if p.T() > basicDuration {
		s.nextRuntime = runtime * bp.FudgeFactor
	}
	s.nextSeed, _ = s.committed.Sample(s.nextRuntime)
	if issue != nil {
		s.timeTillIssue = nil
	}

	return true
}
