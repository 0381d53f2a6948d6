// Package session holds the per-session working memory of the control
// loop and the manager that isolates sessions from each other.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/gate"
	"github.com/fyrsmithlabs/crewd/internal/plan"
	"github.com/fyrsmithlabs/crewd/internal/quality"
	"github.com/fyrsmithlabs/crewd/internal/worker"
)

// Default ceilings. Refinement cycles consume iterations; every worker
// dispatch consumes a step. Both cap unconditionally.
const (
	DefaultIterationLimit = 5
	DefaultStepLimit      = 15
)

// Entry is one transcript message.
type Entry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ErrorEntry records a failure observed during the run.
type ErrorEntry struct {
	Source      string    `json:"source"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	At          time.Time `json:"at"`
}

// RunState is the orchestration state machine's working memory. It is
// created once per session and mutated only by the orchestrator and the
// interrupt handler; workers get a read view.
type RunState struct {
	ID   string
	Goal string

	// OriginalGoal is the request the session was created with. A reset
	// interrupt may redirect Goal; the original text is never lost.
	OriginalGoal string

	Transcript []Entry
	NextWorker string

	Plan      *plan.ExecutionPlan
	StepIndex int

	Artifacts *artifact.Store
	Quality   *quality.Log

	Iteration      int
	IterationLimit int
	Steps          int
	StepLimit      int

	Directive *worker.Directive

	// PendingGate is set while the session is suspended on a checkpoint.
	PendingGate *gate.Request

	Terminated     bool
	TerminalReason string

	Errors    []ErrorEntry
	StartedAt time.Time
}

// NewRunState creates the working memory for a fresh session. Zero or
// negative limits fall back to the defaults.
func NewRunState(goal string, iterationLimit, stepLimit int) *RunState {
	if iterationLimit <= 0 {
		iterationLimit = DefaultIterationLimit
	}
	if stepLimit <= 0 {
		stepLimit = DefaultStepLimit
	}
	return &RunState{
		ID:             uuid.NewString(),
		Goal:           goal,
		OriginalGoal:   goal,
		Artifacts:      artifact.NewStore(),
		Quality:        quality.NewLog(),
		IterationLimit: iterationLimit,
		StepLimit:      stepLimit,
		StartedAt:      time.Now(),
	}
}

// Phase is the control loop's current macro state.
type Phase string

const (
	PhaseNoPlan           Phase = "NO_PLAN"
	PhaseFollowingPlan    Phase = "FOLLOWING_PLAN"
	PhaseFreeformDeciding Phase = "FREEFORM_DECIDING"
	PhaseTerminated       Phase = "TERMINATED"
)

// Phase derives the macro state from the working memory. Plan following
// only holds before the first refinement cycle; once an iteration has
// been consumed the loop decides freeform.
func (s *RunState) Phase() Phase {
	switch {
	case s.Terminated:
		return PhaseTerminated
	case s.Plan == nil:
		return PhaseNoPlan
	case s.Iteration == 0:
		return PhaseFollowingPlan
	default:
		return PhaseFreeformDeciding
	}
}

// Append adds a transcript message.
func (s *RunState) Append(role, content string) {
	s.Transcript = append(s.Transcript, Entry{Role: role, Content: content, At: time.Now()})
}

// Tail returns the last n transcript entries rendered as "role: content",
// oldest first.
func (s *RunState) Tail(n int) []string {
	start := len(s.Transcript) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(s.Transcript)-start)
	for _, e := range s.Transcript[start:] {
		out = append(out, e.Role+": "+e.Content)
	}
	return out
}

// RecordError appends to the error log.
func (s *RunState) RecordError(source, message string, recoverable bool) {
	s.Errors = append(s.Errors, ErrorEntry{
		Source:      source,
		Message:     message,
		Recoverable: recoverable,
		At:          time.Now(),
	})
}

// Terminate moves the session to its terminal state with a user-facing
// reason. Terminal is absorbing; later calls keep the first reason.
func (s *RunState) Terminate(reason string) {
	if s.Terminated {
		return
	}
	s.Terminated = true
	s.TerminalReason = reason
}

// SetPlan commits a plan atomically with its cursor and first worker.
func (s *RunState) SetPlan(p *plan.ExecutionPlan) {
	s.Plan = p
	s.StepIndex = 0
	if len(p.Steps) > 0 {
		s.NextWorker = p.Steps[0].Worker
	}
}

// Reset discards all produced work while keeping the session identity,
// the transcript, and the original goal text. Used by the reset
// interrupt scope; the caller may redirect Goal afterwards.
func (s *RunState) Reset() {
	s.Plan = nil
	s.StepIndex = 0
	s.NextWorker = ""
	s.Artifacts.Clear()
	s.Quality = quality.NewLog()
	s.Iteration = 0
	s.Steps = 0
	s.Directive = nil
	s.PendingGate = nil
	s.Terminated = false
	s.TerminalReason = ""
}

// TakeDirective returns the pending directive and clears it. A directive
// is consumed by exactly one worker invocation.
func (s *RunState) TakeDirective() *worker.Directive {
	d := s.Directive
	s.Directive = nil
	return d
}
