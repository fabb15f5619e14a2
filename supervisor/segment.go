package supervisor

import (
	"time"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// Segment is an immutable committed plan: a fixed-timestep sequence of
// states and efforts produced by one planner update, plus the bookkeeping
// needed to interpolate and chain off it. Replacing the committed segment
// is always a pointer swap, never an in-place mutation, so a reader
// holding a *Segment sees a self-consistent snapshot even if a newer
// segment is committed concurrently.
type Segment struct {
	XSeq        []spatialmath.State
	USeq        []spatialmath.Effort
	DT          float64
	Horizon     float64
	TreeSize    int
	ReachedGoal bool
	Seed        spatialmath.State
	Behavior    behaviors.Kind
	UpdateTime  time.Time
}

// Sample linearly interpolates the segment at parameter t seconds past
// its start, clamped to the segment's endpoints.
func (s *Segment) Sample(t float64) (spatialmath.State, spatialmath.Effort) {
	if len(s.XSeq) == 0 {
		return spatialmath.State{}, spatialmath.Effort{}
	}
	if t <= 0 {
		return s.XSeq[0], s.firstEffort()
	}
	idx := t / s.DT
	lo := int(idx)
	if lo >= len(s.XSeq)-1 {
		return s.XSeq[len(s.XSeq)-1], s.lastEffort()
	}
	frac := idx - float64(lo)
	x := lerpState(s.XSeq[lo], s.XSeq[lo+1], frac)

	var u spatialmath.Effort
	switch {
	case lo+1 < len(s.USeq):
		a, b := s.USeq[lo], s.USeq[lo+1]
		u = spatialmath.Effort{
			FX:   a.FX + (b.FX-a.FX)*frac,
			FY:   a.FY + (b.FY-a.FY)*frac,
			TauZ: a.TauZ + (b.TauZ-a.TauZ)*frac,
		}
	case lo < len(s.USeq):
		u = s.USeq[lo]
	case len(s.USeq) > 0:
		u = s.USeq[len(s.USeq)-1]
	}
	return x, u
}

func (s *Segment) firstEffort() spatialmath.Effort {
	if len(s.USeq) == 0 {
		return spatialmath.Effort{}
	}
	return s.USeq[0]
}

func (s *Segment) lastEffort() spatialmath.Effort {
	if len(s.USeq) == 0 {
		return spatialmath.Effort{}
	}
	return s.USeq[len(s.USeq)-1]
}

// iterAt returns the sample index corresponding to elapsed, floored, and
// clamped to a valid index into XSeq (or -1 if XSeq is empty).
func (s *Segment) iterAt(elapsed float64) int {
	if len(s.XSeq) == 0 {
		return -1
	}
	i := int(elapsed / s.DT)
	if i < 0 {
		i = 0
	}
	if i >= len(s.XSeq) {
		i = len(s.XSeq) - 1
	}
	return i
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

// constantSegment returns a zero-duration segment that holds x forever
// with zero effort, used for hold moves and for a successfully reached
// goal.
func constantSegment(x spatialmath.State, dt float64, now time.Time) *Segment {
	return &Segment{
		XSeq:       []spatialmath.State{x},
		USeq:       []spatialmath.Effort{{}},
		DT:         dt,
		Horizon:    0,
		TreeSize:   1,
		Seed:       x,
		UpdateTime: now,
	}
}
