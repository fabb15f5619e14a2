// Package action defines the Move action's wire-independent
// request/feedback/result types, the preemption-aware in-process server
// that drives a single in-flight move, and the Outputs interface a
// transport adapter implements to publish visualization topics. Wire
// serialization and transport are left to that adapter.
package action

import (
	"context"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/mattlangford/lqrrt/behaviors"
	"github.com/mattlangford/lqrrt/spatialmath"
)

// MoveType selects how the supervisor should approach the goal.
type MoveType int

const (
	Hold MoveType = iota
	Drive
	Skid
	Circle
)

func (m MoveType) String() string {
	switch m {
	case Hold:
		return "hold"
	case Drive:
		return "drive"
	case Skid:
		return "skid"
	case Circle:
		return "circle"
	default:
		return "unknown"
	}
}

// Sentinel errors for a Move's terminal Result. ErrPatience also covers
// the always-rejected Circle move type.
var (
	ErrOdom     = errors.New("no odometry available")
	ErrMoveType = errors.New("unknown move type")
	ErrPatience = errors.New("move type not supported")
	ErrBusy     = errors.New("supervisor busy with another move")
	ErrKilled   = errors.New("move preempted")
)

// Request carries a single Move goal.
type Request struct {
	Goal     spatialmath.State
	MoveType MoveType
	// Focus is only meaningful for Skid; a focus with nonzero Z rotates
	// the goal heading to look from the goal toward this point.
	Focus *r3.Vector
}

// Feedback is the periodic progress report the server emits while a
// move is in flight.
type Feedback struct {
	BehaviorName        string
	TreeSize            int
	ReachedGoal         bool
	Tracking            bool
	TimeUntilNextChain  time.Duration
}

// Result is the terminal outcome of a Move. A nil Err means the goal
// was reached; ErrKilled means preempted by a newer Move.
type Result struct {
	Err error
}

// Mover is implemented by the supervisor: it runs one move to
// completion, reporting feedback on fb and returning when the move
// finishes, fails, or ctx is canceled (preemption).
type Mover interface {
	Move(ctx context.Context, req Request, fb chan<- Feedback) Result
}

// Outputs is the set of visualization/telemetry publish hooks a
// transport adapter wires up. All methods must be safe to call from the
// chaining goroutine; an adapter with nothing to publish can use
// NoopOutputs.
type Outputs interface {
	PublishGoal(spatialmath.State)
	PublishFocus(*r3.Vector)
	PublishSampleSpace(behaviors.SampleSpace)
	PublishGuide(spatialmath.State)
	PublishTree(states []spatialmath.State)
	PublishPath(xSeq []spatialmath.State)
	PublishRef(spatialmath.State)
	PublishEffort(spatialmath.Effort)
}

// NoopOutputs implements Outputs with no-ops, for tests and headless
// local simulation.
type NoopOutputs struct{}

func (NoopOutputs) PublishGoal(spatialmath.State)                 {}
func (NoopOutputs) PublishFocus(*r3.Vector)                       {}
func (NoopOutputs) PublishSampleSpace(behaviors.SampleSpace)      {}
func (NoopOutputs) PublishGuide(spatialmath.State)                {}
func (NoopOutputs) PublishTree(states []spatialmath.State)        {}
func (NoopOutputs) PublishPath(xSeq []spatialmath.State)          {}
func (NoopOutputs) PublishRef(spatialmath.State)                  {}
func (NoopOutputs) PublishEffort(spatialmath.Effort)              {}

var _ Outputs = NoopOutputs{}

const moveOpLabel = "lqrrt-move"

// Server runs at most one Move at a time against an underlying Mover,
// preempting any in-flight move when a new request arrives.
type Server struct {
	mover Mover
	ops   operationManager

	mu      sync.Mutex
	current uuid.UUID
	fb      Feedback
}

// operationManager is the minimal subset of package operation's Manager
// the server needs; defined here as an interface so this file does not
// import package operation (which would make this a cyclic dependency if
// operation ever needed action's types). *operation.Manager satisfies it.
type operationManager interface {
	CancelOtherWithLabel(ctx context.Context, label string) context.Context
	Done(label string)
}

// NewServer returns a Server driving mover, using ops for preemption.
func NewServer(mover Mover, ops operationManager) *Server {
	return &Server{mover: mover, ops: ops}
}

// Do starts req, preempting any move currently running on this server,
// and blocks until it completes, returning the move's Result. Callers
// that want live feedback should read it via LatestFeedback while Do
// runs in a separate goroutine.
func (s *Server) Do(ctx context.Context, req Request) Result {
	opCtx := s.ops.CancelOtherWithLabel(ctx, moveOpLabel)
	defer s.ops.Done(moveOpLabel)

	id := uuid.New()
	s.mu.Lock()
	s.current = id
	s.fb = Feedback{}
	s.mu.Unlock()

	fbCh := make(chan Feedback, 1)
	done := make(chan Result, 1)
	utils.PanicCapturingGo(func() {
		done <- s.mover.Move(opCtx, req, fbCh)
	})

	for {
		select {
		case fb := <-fbCh:
			s.mu.Lock()
			if s.current == id {
				s.fb = fb
			}
			s.mu.Unlock()
		case res := <-done:
			return res
		}
	}
}

// LatestFeedback returns the most recently observed feedback for the
// current (or most recently completed) move.
func (s *Server) LatestFeedback() Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fb
}
