package supervisor

import (
	"github.com/pkg/errors"

	"github.com/mattlangford/lqrrt/action"
	"github.com/mattlangford/lqrrt/behaviors"
)

// errIndeterminateBehavior marks a (stuck, moveType, distance) combination
// the behavior selector has no rule for. It should be unreachable for any
// moveType the supervisor itself allows past validation.
var errIndeterminateBehavior = errors.New("no behavior rule matches this move state")

// selectBehavior is a pure function of the current stuck latch, move
// type, and distance from next_seed to goal.
func selectBehavior(stuck bool, moveType action.MoveType, distance, freeRadius float64) (behaviors.Kind, error) {
	if stuck {
		return behaviors.Escape, nil
	}
	switch moveType {
	case action.Drive:
		if distance < freeRadius {
			return behaviors.Boat, nil
		}
		return behaviors.Car, nil
	case action.Skid:
		return behaviors.Boat, nil
	default:
		return behaviors.Car, errIndeterminateBehavior
	}
}
