package supervisor

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/config"
	"github.com/mattlangford/lqrrt/ogrid"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// selectExploration is the exploration shaper: it picks the goal-bias
// vector, sample-space rectangle, and guide point the planner should use
// for the next chain iteration.
func selectExploration(
	behaviorKind behaviors.Kind,
	beh behaviors.Behavior,
	escapeBeh behaviors.Behavior,
	seed, goal spatialmath.State,
	grid *ogrid.Grid,
	threshold int16,
	bp config.BehaviorParams,
) ([6]float64, behaviors.SampleSpace, spatialmath.State) {
	if behaviorKind == behaviors.Escape {
		return escapeExploration(escapeBeh, seed, goal, bp)
	}

	if grid == nil {
		ss := escapeBeh.GenSS(seed, goal, behaviors.Push{})
		return weightBias(behaviorKind, 1.0, seed, goal, bp), ss, goal
	}

	occImg := grid.ThresholdImage(threshold)
	cpm := grid.CellsPerMeter()
	boatPix := int(math.Ceil(bp.BoatWidth * cpm))
	if boatPix%2 != 0 {
		boatPix++
	}
	dilated := occImg.Dilate(boatPix)

	ssWorld := beh.GenSS(seed, goal, behaviors.Push{})
	rA, cA := grid.WorldToPixel(r3.Vector{X: ssWorld.XMin, Y: ssWorld.YMin})
	rB, cB := grid.WorldToPixel(r3.Vector{X: ssWorld.XMax, Y: ssWorld.YMax})
	pRowMin, pRowMax := minInt(rA, rB), maxInt(rA, rB)
	pColMin, pColMax := minInt(cA, cB), maxInt(cA, cB)

	seedRow, seedCol := grid.WorldToPixel(seed.Point())
	goalRow, goalCol := grid.WorldToPixel(goal.Point())

	if !grid.InBounds(seedRow, seedCol) || !grid.InBounds(goalRow, goalCol) {
		ss := escapeBeh.GenSS(seed, goal, behaviors.Push{})
		return weightBias(behaviorKind, 1.0, seed, goal, bp), ss, goal
	}

	pushColMin, pushColMax, pushRowMin, pushRowMax := 0, 0, 0, 0
	npush := 0
	guide := goal

	offRow, offCol := pRowMin, pColMin
	ssImg := dilated.Crop(pRowMin, pRowMax, pColMin, pColMax)

	maxPush := grid.Height

expand:
	for pushRowMin <= maxPush && pushRowMax <= maxPush && pushColMin <= maxPush && pushColMax <= maxPush {
		ssSeedRow, ssSeedCol := seedRow-offRow, seedCol-offCol
		ssGoalRow, ssGoalCol := goalRow-offRow, goalCol-offCol

		bpts := ogrid.BoundaryAnalysis(ssImg, ssSeedRow, ssSeedCol, ssGoalRow, ssGoalCol)
		if len(bpts) == 0 {
			break
		}

		for _, p := range bpts {
			row, col := p[0], p[1]
			rowMinLocal, colMinLocal := 1, 1
			rowMaxLocal := ssImg.H - 2
			colMaxLocal := ssImg.W - 2

			pushXMin, pushXMax, pushYMin, pushYMax := false, false, false, false
			switch {
			case col == colMinLocal:
				pushXMin = true
				if row == rowMinLocal {
					pushYMin = true
				} else if row == rowMaxLocal {
					pushYMax = true
				}
			case col == colMaxLocal:
				pushXMax = true
				if row == rowMinLocal {
					pushYMin = true
				} else if row == rowMaxLocal {
					pushYMax = true
				}
			case row == rowMinLocal:
				pushYMin = true
			case row == rowMaxLocal:
				pushYMax = true
			}

			if pushXMin {
				pushColMin += bp.SSStep
				npush++
			}
			if pushXMax {
				pushColMax += bp.SSStep
				npush++
			}
			if pushYMin {
				pushRowMin += bp.SSStep
				npush++
			}
			if pushYMax {
				pushRowMax += bp.SSStep
				npush++
			}

			newOffRow, newOffCol := pRowMin-pushRowMin, pColMin-pushColMin
			newMaxRow, newMaxCol := pRowMax+pushRowMax, pColMax+pushColMax
			ssImg = dilated.Crop(newOffRow, newMaxRow, newOffCol, newMaxCol)

			newSSGoalRow, newSSGoalCol := goalRow-newOffRow, goalCol-newOffCol
			newSSSeedRow, newSSSeedCol := seedRow-newOffRow, seedCol-newOffCol

			const floodMarker = 69
			flooded := ssImg.FloodFill(newSSGoalRow, newSSGoalCol, floodMarker)
			if flooded.At(newSSSeedRow, newSSSeedCol) == floodMarker {
				worldGuide := grid.PixelToWorld(row+offRow, col+offCol)
				guide = spatialmath.State{X: worldGuide.X, Y: worldGuide.Y, Theta: goal.Theta}
				offRow, offCol = newOffRow, newOffCol
				break expand
			}
			offRow, offCol = newOffRow, newOffCol
		}
	}

	pushWorld := behaviors.Push{
		float64(pushColMin) / cpm,
		float64(pushColMax) / cpm,
		float64(pushRowMin) / cpm,
		float64(pushRowMax) / cpm,
	}
	if npush > 0 {
		for i := range pushWorld {
			pushWorld[i] += bp.BoatLength
		}
	}
	for i := range pushWorld {
		pushWorld[i] += 4 * bp.SSStart
	}
	ss := beh.GenSS(seed, goal, pushWorld)

	var b float64
	if ssImg.W*ssImg.H > 0 {
		b = clip(ssImg.FreeRatio()-0.05*float64(npush), 0, 0.9)
	} else {
		b = 1
	}

	return weightBias(behaviorKind, b, seed, goal, bp), ss, guide
}

func escapeExploration(escapeBeh behaviors.Behavior, seed, goal spatialmath.State, bp config.BehaviorParams) ([6]float64, behaviors.SampleSpace, spatialmath.State) {
	vec := goal.Point().Sub(seed.Point())
	dist := vec.Norm()
	guide := goal
	if dist > 1e-9 && dist < 2*bp.FreeRadius {
		dir := vec.Normalize()
		guide.X = seed.X + dir.X*2*bp.FreeRadius
		guide.Y = seed.Y + dir.Y*2*bp.FreeRadius
	}
	return [6]float64{}, escapeBeh.GenSS(seed, goal, behaviors.Push{}), guide
}

// weightBias applies the per-behavior bias weighting described for
// boat/car; escape never reaches here (escapeExploration returns zero
// bias directly).
func weightBias(kind behaviors.Kind, b float64, seed, goal spatialmath.State, bp config.BehaviorParams) [6]float64 {
	switch kind {
	case behaviors.Boat:
		if goal.Point().Sub(seed.Point()).Norm() < bp.FreeRadius {
			return [6]float64{1, 1, 1, 0.1, 0.1, 0}
		}
		return [6]float64{b, b, 1, 0, 0, 1}
	default: // car
		bCar := clip(b, 0, 0.75)
		return [6]float64{bCar, bCar, 0, 0, 0.5, 0}
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
