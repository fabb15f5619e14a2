// Package config defines the supervisor's tunable parameter surface and
// validates it, in the same spirit as an RDK component's
// Config.Validate(path) pattern: catch a bad deployment config before any
// planning loop starts rather than failing deep inside the chain loop.
package config

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// BehaviorParams holds the tunables that differ per behavior (car vs
// boat vs escape use the same field names but different values).
type BehaviorParams struct {
	// DT is the fixed timestep of a plan segment's x_seq/u_seq, in
	// seconds.
	DT float64
	// BasicDuration is the default chain horizon requested of the
	// planner when no more specific runtime is implied, in seconds.
	BasicDuration float64
	// PointshootTol is the heading-error tolerance, in radians, below
	// which a drive move skips the rotate-in-place pre-move.
	PointshootTol float64
	// FreeRadius is the distance, in world units, inside which a drive
	// move always uses the boat behavior regardless of heading error.
	FreeRadius float64
	// RealTol is the componentwise goal tolerance (X, Y, Theta, VX, VY,
	// Omega) below which a move is considered complete.
	RealTol [6]float64
	// VelmaxPos is the maximum positive velocity. The supervisor uses it
	// as the angular-rate bound when sizing next_runtime after a
	// rotate-in-place pre-move (one full turn takes 2*pi/VelmaxPos).
	VelmaxPos float64
	// StuckThreshold is the number of consecutive degenerate planning
	// updates required to latch the stuck condition.
	StuckThreshold int
	// FudgeFactor scales next_runtime below T when T exceeds
	// BasicDuration, guaranteeing the next chain starts before this one
	// ends. Must be in (0, 1).
	FudgeFactor float64
	// FPR (fraction preserved on rollback) truncates a rotation-in-place
	// trajectory to this fraction of its length when it becomes
	// infeasible mid-sweep. Must be in (0, 1).
	FPR float64
	// SSStep is the pixel step the exploration shaper pushes a sample
	// space edge outward by on each expansion iteration.
	SSStep int
	// SSStart sets the world-unit margin of the grid-shaped sample space:
	// 4*SSStart is added to all four edges regardless of whether any push
	// happened. The no-grid and out-of-grid fallbacks do not add it.
	SSStart float64
	// BoatWidth and BoatLength size the dilation kernel and the slack
	// added to pushed sample-space edges, in world units.
	BoatWidth  float64
	BoatLength float64
	// VPS is the body-frame footprint point cloud used by the
	// feasibility oracle.
	VPS []r3.Vector
	// VPSSpacing is the sampling spacing, in world units, used when
	// sweeping a straight line between two points for feasibility (the
	// escape-to-drive recovery check).
	VPSSpacing float64
}

// Params bundles the per-behavior parameter sets plus the shared
// occupancy-grid threshold.
type Params struct {
	Car    BehaviorParams
	Boat   BehaviorParams
	Escape BehaviorParams

	// OgridThreshold is the raw occupancy value above which a grid cell
	// is considered occupied.
	OgridThreshold int16
}

// Validate reports the first configuration error found, or nil if every
// field is within range.
func (p *Params) Validate() error {
	for name, bp := range map[string]BehaviorParams{"car": p.Car, "boat": p.Boat, "escape": p.Escape} {
		if err := bp.validate(); err != nil {
			return errors.Wrapf(err, "behavior %q", name)
		}
	}
	return nil
}

func (bp *BehaviorParams) validate() error {
	if bp.DT <= 0 {
		return errors.New("dt must be positive")
	}
	if bp.BasicDuration <= 0 {
		return errors.New("basic_duration must be positive")
	}
	if bp.PointshootTol < 0 {
		return errors.New("pointshoot_tol must be non-negative")
	}
	if bp.FreeRadius < 0 {
		return errors.New("free_radius must be non-negative")
	}
	for _, t := range bp.RealTol {
		if t < 0 {
			return errors.New("real_tol entries must be non-negative")
		}
	}
	if bp.VelmaxPos <= 0 {
		return errors.New("velmax_pos must be positive")
	}
	if bp.StuckThreshold <= 0 {
		return errors.New("stuck_threshold must be positive")
	}
	if bp.FudgeFactor <= 0 || bp.FudgeFactor >= 1 {
		return errors.New("fudge_factor must be in (0, 1)")
	}
	if bp.FPR <= 0 || bp.FPR >= 1 {
		return errors.New("FPR must be in (0, 1)")
	}
	if bp.SSStep <= 0 {
		return errors.New("ss_step must be positive")
	}
	if bp.SSStart < 0 {
		return errors.New("ss_start must be non-negative")
	}
	if bp.BoatWidth <= 0 || bp.BoatLength <= 0 {
		return errors.New("boat_width and boat_length must be positive")
	}
	if len(bp.VPS) == 0 {
		return errors.New("vps must not be empty")
	}
	if bp.VPSSpacing <= 0 {
		return errors.New("vps_spacing must be positive")
	}
	return nil
}

// Default returns a parameter set with reasonable values for a small
// boat, shared across all three behaviors except where the behavior
// specifically differs (escape gets a looser FPR to favor escaping over
// precision).
func Default() Params {
	footprint := []r3.Vector{
		{X: 1.0, Y: 0.5},
		{X: 1.0, Y: -0.5},
		{X: -1.0, Y: -0.5},
		{X: -1.0, Y: 0.5},
	}
	base := BehaviorParams{
		DT:             0.1,
		BasicDuration:  2.0,
		PointshootTol:  0.3,
		FreeRadius:     3.0,
		RealTol:        [6]float64{0.5, 0.5, 0.2, 0.5, 0.5, 0.2},
		VelmaxPos:      2.0,
		StuckThreshold: 3,
		FudgeFactor:    0.9,
		FPR:            0.5,
		SSStep:         2,
		SSStart:        1.0,
		BoatWidth:      2.0,
		BoatLength:     3.0,
		VPS:            footprint,
		VPSSpacing:     0.25,
	}
	escape := base
	escape.FPR = 0.25

	return Params{
		Car:            base,
		Boat:           base,
		Escape:         escape,
		OgridThreshold: 90,
	}
}
