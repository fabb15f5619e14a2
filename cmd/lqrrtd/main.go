// Command lqrrtd wires a replanning supervisor against the deterministic
// simulated planner and runs it against a single hard-coded move, logging
// the latest feedback periodically until the move ends. Only the initial
// odometry is fed in, so the vehicle state never advances and the move
// keeps chaining until it is interrupted. It exists to exercise the
// supervisor end to end without a real LQR-RRT planner or vehicle
// attached; a production deployment would replace the SimPlanner
// instances with a client to the real planner and the NoopOutputs with a
// transport-backed implementation of action.Outputs.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mattlangford/lqrrt/action"
	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/config"
	"github.com/mattlangford/lqrrt/logging"
	"github.com/mattlangford/lqrrt/operation"
	"github.com/mattlangford/lqrrt/planner"
	"github.com/mattlangford/lqrrt/spatialmath"
	"github.com/mattlangford/lqrrt/supervisor"
)

func main() {
	logger := logging.New("lqrrtd")
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	clk := clock.New()
	car := behaviors.NewCar()
	boat := behaviors.NewBoat()
	escape := behaviors.NewEscape()

	carPlanner := planner.NewSimPlanner(cfg.Car.DT)
	boatPlanner := planner.NewSimPlanner(cfg.Boat.DT)
	escapePlanner := planner.NewSimPlanner(cfg.Escape.DT)

	sup := supervisor.New(logger, clk, cfg, car, boat, escape, carPlanner, boatPlanner, escapePlanner, action.NoopOutputs{})

	ops := operation.NewManager()
	server := action.NewServer(sup, ops)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sup.OnOdometry(spatialmath.State{})

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f := server.LatestFeedback()
				logger.Infof("feedback: behavior=%s tree_size=%d reached=%v tracking=%v",
					f.BehaviorName, f.TreeSize, f.ReachedGoal, f.Tracking)
			}
		}
	}()

	result := server.Do(ctx, action.Request{
		Goal:     spatialmath.State{X: 10, Y: 0},
		MoveType: action.Drive,
	})

	if result.Err != nil {
		logger.Errorf("move failed: %v", result.Err)
		os.Exit(1)
	}
	logger.Infof("move completed")
}
