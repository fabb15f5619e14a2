package supervisor

import (
	"github.com/mattlangford/lqrrt/action"
	"github.com/mattlangford/lqrrt/behaviors"
)

// phase is a purely observational label for what a Supervisor is doing
// right now. It has no effect on control flow — chainUntilDone/treeChain
// never branch on it — it exists only so Phase() can report something
// more legible than raw bookkeeping fields to a caller building a status
// display.
type phase int

const (
	phaseIdle phase = iota
	phasePreparing
	phaseRotating
	phaseChaining
	phaseEscaping
	phaseCompleting
	phaseAborting
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phasePreparing:
		return "preparing"
	case phaseRotating:
		return "rotating"
	case phaseChaining:
		return "chaining"
	case phaseEscaping:
		return "escaping"
	case phaseCompleting:
		return "completing"
	case phaseAborting:
		return "aborting"
	default:
		return "unknown"
	}
}

// Phase reports the Supervisor's current observational phase, derived
// from its bookkeeping fields rather than tracked as its own state
// machine.
func (s *Supervisor) Phase() phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed == nil {
		return phaseIdle
	}
	if s.timeTillIssue != nil {
		return phaseAborting
	}
	if s.stuck && s.behaviorKind == behaviors.Escape {
		return phaseEscaping
	}
	if s.committed.ReachedGoal {
		return phaseCompleting
	}
	if s.moveType == action.Hold {
		return phaseIdle
	}
	if s.committed.Behavior == behaviors.Escape {
		return phaseEscaping
	}
	return phaseChaining
}
